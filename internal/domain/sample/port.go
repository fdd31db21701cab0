package sample

import (
	"context"
	"time"
)

type Repo interface {
	// AppendBatch persists the whole batch atomically, in order.
	AppendBatch(ctx context.Context, batch []Sample) error
	Latest(ctx context.Context) (*Sample, error)
	ListRange(ctx context.Context, from, to time.Time) ([]Sample, error)
}
