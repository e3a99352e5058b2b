package backup

import (
	"context"
	"io"
	"time"

	"github.com/sekolahkita/portalguru/core"
)

// NowFunc stamps exported envelopes. Exported to be mocked in tests.
var NowFunc = time.Now

type (
	// CollectionStore is the persistence surface the pipeline runs over: one
	// ownership-filtered read and one batch upsert per collection.
	CollectionStore interface {
		// SelectOwned returns all rows of collection owned by ownerID.
		SelectOwned(ctx context.Context, collection, ownerID string, exec ...core.DBExecutor) ([]Row, error)
		// UpsertRows writes rows into collection, inserting new ids and
		// overwriting existing ones. All rows go through a single transaction.
		UpsertRows(ctx context.Context, collection string, rows []Row, exec ...core.DBExecutor) error
	}

	Service interface {
		// Export serializes everything ownerID owns into an indented JSON envelope.
		Export(ctx context.Context, ownerID string) ([]byte, error)
		// Import merges a backup file into ownerID's account.
		Import(ctx context.Context, r io.Reader, ownerID string) error
	}

	service struct {
		store CollectionStore
	}
)

var _ Service = (*service)(nil)

func NewService(store CollectionStore) Service {
	return &service{store: store}
}
