package archive

import "context"

// Repository port for persisting and querying archived analyses
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	SaveFailure(ctx context.Context, f *Failure) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Entry, error)
	Ping(ctx context.Context) error
}
