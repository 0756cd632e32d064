package server

import (
	"encoding/json"
	"sync"

	"rssagg/models"
	"rssagg/store"

	log "github.com/sirupsen/logrus"
)

// Event is one boundary notification as sent to SSE clients
type Event struct {
	Path store.Path
	Data json.RawMessage
}

// Broadcaster fans store notifications out to connected SSE clients
type Broadcaster struct {
	sync.RWMutex
	clients map[string]chan Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan Event),
	}
}

// Attach registers the broadcaster as a catch-all reaction on the store.
// Only boundary paths are forwarded.
func (b *Broadcaster) Attach(s *store.Store) {
	s.Watch(func(path store.Path, state *models.State) {
		if !path.OnBoundary() {
			return
		}
		data, err := json.Marshal(Subtree(path, state))
		if err != nil {
			log.WithFields(log.Fields{
				"path":  path,
				"error": err,
			}).Error("Error marshalling state for broadcast")
			return
		}
		b.Broadcast(Event{Path: path, Data: data})
	})
}

func (b *Broadcaster) Broadcast(event Event) {
	b.RLock()
	defer b.RUnlock()

	for key, client := range b.clients {
		select {
		case client <- event: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping %s event for client: %v", event.Path, key)
		}
	}
}

func (b *Broadcaster) AddClient(key string, client chan Event) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = client
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Adding client to broadcaster")
}

func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.clients[key]; ok {
		close(client)
		delete(b.clients, key)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
}

func (b *Broadcaster) Count() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client)
		delete(b.clients, key)
	}
}

// Subtree returns the part of the state a boundary path refers to
func Subtree(path store.Path, state *models.State) any {
	switch path {
	case store.PathForm:
		return state.Form
	case store.PathLoadingStatus:
		return state.LoadingProcess.Status
	case store.PathLoadingError:
		return state.LoadingProcess.Error
	case store.PathFeeds:
		return state.Feeds
	case store.PathPosts:
		return state.Posts
	case store.PathModalPost:
		return state.Modal.PostID
	case store.PathSeenPosts:
		return state.SeenPostIDs()
	}
	return nil
}
