package store

import (
	"strings"

	"github.com/samber/lo"
)

// Path is the dotted location of a change in the state tree.
type Path string

const (
	PathForm          Path = "form"
	PathLoadingStatus Path = "loadingProcess.status"
	PathLoadingError  Path = "loadingProcess.error"
	PathFeeds         Path = "feeds"
	PathPosts         Path = "posts"
	PathModalPost     Path = "modal.postId"
	PathSeenPosts     Path = "ui.seenPosts"
)

// Boundary is the complete set of paths the presentation side may react to.
var Boundary = []Path{
	PathForm,
	PathLoadingStatus,
	PathFeeds,
	PathPosts,
	PathModalPost,
	PathSeenPosts,
}

func (p Path) OnBoundary() bool {
	return lo.Contains(Boundary, p)
}

// Containers listed here are replaced as a whole value: a write to any of
// their fields is reported on the container's own path. Every other
// container reports the written field.
var coarse = map[string]bool{
	"form": true,
}

// pathOf computes the reported path for a write to the given location.
// Collections are reported by their own path, never per element.
func pathOf(segments ...string) Path {
	if len(segments) > 1 && coarse[segments[0]] {
		return Path(segments[0])
	}
	return Path(strings.Join(segments, "."))
}
