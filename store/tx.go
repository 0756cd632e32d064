package store

import "rssagg/models"

// Tx is the write handle passed to Mutate. It is only valid inside the
// Mutate callback.
type Tx struct {
	store *Store
}

// State exposes the state for reading inside a mutation. Writes made through
// the returned pointer are not observed.
func (tx *Tx) State() *models.State {
	return &tx.store.state
}

func (tx *Tx) commit(segments ...string) {
	tx.store.dispatch(pathOf(segments...))
}

// PrependPosts puts posts ahead of every stored post, keeping their order.
func (tx *Tx) PrependPosts(posts ...models.Post) {
	if len(posts) == 0 {
		return
	}
	state := &tx.store.state
	merged := make([]models.Post, 0, len(posts)+len(state.Posts))
	merged = append(merged, posts...)
	state.Posts = append(merged, state.Posts...)
	tx.commit("posts")
}

// PrependFeeds puts feeds ahead of every stored feed, keeping their order.
func (tx *Tx) PrependFeeds(feeds ...models.Feed) {
	if len(feeds) == 0 {
		return
	}
	state := &tx.store.state
	merged := make([]models.Feed, 0, len(feeds)+len(state.Feeds))
	merged = append(merged, feeds...)
	state.Feeds = append(merged, state.Feeds...)
	tx.commit("feeds")
}

func (tx *Tx) SetLoadingStatus(status models.LoadingStatus) {
	state := &tx.store.state
	if state.LoadingProcess.Status == status {
		return
	}
	state.LoadingProcess.Status = status
	tx.commit("loadingProcess", "status")
}

// SetLoadingError records the kind of the last load failure, nil clears it.
func (tx *Tx) SetLoadingError(kind *models.ErrorKind) {
	state := &tx.store.state
	if sameKind(state.LoadingProcess.Error, kind) {
		return
	}
	if kind != nil {
		k := *kind
		kind = &k
	}
	state.LoadingProcess.Error = kind
	tx.commit("loadingProcess", "error")
}

// SetForm replaces the form.
func (tx *Tx) SetForm(form models.Form) {
	tx.store.state.Form = form
	tx.commit("form")
}

// UpdateForm edits the form in place. It is reported once, as "form".
func (tx *Tx) UpdateForm(fn func(form *models.Form)) {
	fn(&tx.store.state.Form)
	tx.commit("form")
}

func (tx *Tx) SetFormValid(valid bool) {
	tx.store.state.Form.Valid = valid
	tx.commit("form", "valid")
}

func (tx *Tx) SetFormError(key string) {
	tx.store.state.Form.Error = key
	tx.commit("form", "error")
}

func (tx *Tx) SetModalPost(id string) {
	state := &tx.store.state
	if state.Modal.PostID == id {
		return
	}
	state.Modal.PostID = id
	tx.commit("modal", "postId")
}

// MarkSeen adds a post to the seen set. Already seen posts are not reported.
func (tx *Tx) MarkSeen(id string) {
	seen := tx.store.state.UI.SeenPosts
	if _, ok := seen[id]; ok {
		return
	}
	seen[id] = struct{}{}
	tx.commit("ui", "seenPosts")
}

func sameKind(a, b *models.ErrorKind) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
