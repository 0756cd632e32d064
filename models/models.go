package models

// Feed is a tracked RSS channel. Created once per successful load and never
// mutated afterwards.
type Feed struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Post is a single feed item as accepted into the state.
type Post struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channelId"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

type LoadingStatus string

const (
	StatusIdle    LoadingStatus = "idle"
	StatusLoading LoadingStatus = "loading"
	StatusFailed  LoadingStatus = "failed"
)

// ErrorKind is the stable, user facing classification of a load failure.
type ErrorKind string

const (
	KindParsing ErrorKind = "noRss"
	KindNetwork ErrorKind = "network"
	KindUnknown ErrorKind = "unknown"
)

type LoadingProcess struct {
	Status LoadingStatus `json:"status"`
	Error  *ErrorKind    `json:"error"`
}

type FormStatus string

const (
	FormFilling   FormStatus = "filling"
	FormSubmitted FormStatus = "submitted"
)

// Form error keys
const (
	FormErrRequired = "required"
	FormErrNotURL   = "notUrl"
	FormErrExists   = "exists"
)

type Form struct {
	Status FormStatus `json:"status"`
	Valid  bool       `json:"valid"`
	Error  string     `json:"error,omitempty"`
}

type Modal struct {
	PostID string `json:"postId,omitempty"`
}

type UI struct {
	SeenPosts map[string]struct{} `json:"-"`
}

// Seen reports whether the post with the given id has been opened.
func (ui UI) Seen(id string) bool {
	_, ok := ui.SeenPosts[id]
	return ok
}

// State is the whole application state tree. Feeds and Posts are kept
// newest first.
type State struct {
	Feeds          []Feed         `json:"feeds"`
	Posts          []Post         `json:"posts"`
	LoadingProcess LoadingProcess `json:"loadingProcess"`
	Form           Form           `json:"form"`
	Modal          Modal          `json:"modal"`
	UI             UI             `json:"-"`
}

func NewState() State {
	return State{
		Feeds: []Feed{},
		Posts: []Post{},
		LoadingProcess: LoadingProcess{
			Status: StatusIdle,
		},
		Form: Form{
			Status: FormFilling,
		},
		UI: UI{
			SeenPosts: map[string]struct{}{},
		},
	}
}

// Clone returns a copy that shares nothing mutable with s.
func (s State) Clone() State {
	c := s
	c.Feeds = append([]Feed{}, s.Feeds...)
	c.Posts = append([]Post{}, s.Posts...)
	if s.LoadingProcess.Error != nil {
		kind := *s.LoadingProcess.Error
		c.LoadingProcess.Error = &kind
	}
	c.UI.SeenPosts = make(map[string]struct{}, len(s.UI.SeenPosts))
	for id := range s.UI.SeenPosts {
		c.UI.SeenPosts[id] = struct{}{}
	}
	return c
}

// SeenPostIDs lists the opened post ids in no particular order.
func (s State) SeenPostIDs() []string {
	ids := make([]string, 0, len(s.UI.SeenPosts))
	for id := range s.UI.SeenPosts {
		ids = append(ids, id)
	}
	return ids
}
