package speed

import (
	"context"
	"time"
)

type Repo interface {
	Insert(ctx context.Context, r *Result) error
	Last(ctx context.Context) (*Result, error)
	LastSuccessful(ctx context.Context) (*Result, error)
	ListRange(ctx context.Context, from, to time.Time) ([]Result, error)
}
