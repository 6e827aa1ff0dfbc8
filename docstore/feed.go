package docstore

import "context"

// Feed carries "collection changed" events between processes sharing one database.
type Feed interface {
	Publish(ctx context.Context, collection string) error
	// Listen blocks, calling fn for every event, until ctx is done.
	Listen(ctx context.Context, fn func(ctx context.Context, collection string)) error
}
