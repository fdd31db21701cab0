package outage

import (
	"context"
	"time"
)

type Repo interface {
	// Open persists a new open interval and fills in its ID.
	Open(ctx context.Context, i *Interval) error
	Close(ctx context.Context, id int64, endedAt time.Time) error
	// Current returns the open interval, or nil when the link is up.
	Current(ctx context.Context) (*Interval, error)
	ListRange(ctx context.Context, from, to time.Time) ([]Interval, error)
}
