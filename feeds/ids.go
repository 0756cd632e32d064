package feeds

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Minter hands out identities for feeds and posts. Ids are never derived from
// feed content.
type Minter interface {
	NewID() string
}

// Counter mints "1", "2", ... for the lifetime of the process.
type Counter struct {
	last atomic.Uint64
}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) NewID() string {
	return strconv.FormatUint(c.last.Add(1), 10)
}

// UUIDs mints random version 4 uuids.
type UUIDs struct{}

func (UUIDs) NewID() string {
	return uuid.New().String()
}

// NewMinter returns the minter registered under name: "counter" or "uuid".
func NewMinter(name string) (Minter, error) {
	switch name {
	case "", "counter":
		return NewCounter(), nil
	case "uuid":
		return UUIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown id minter %q", name)
	}
}
