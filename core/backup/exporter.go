package backup

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Export reads every collection owned by ownerID concurrently and wraps the
// results in a fresh versioned envelope. A collection with no rows still
// appears as an empty list so a restore on another device clears nothing by
// accident. Any single read failure fails the whole export; a partial backup
// is worse than none.
func (svc *service) Export(ctx context.Context, ownerID string) ([]byte, error) {
	var (
		mu   sync.Mutex
		data = make(map[string][]Row, len(Collections))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range Collections {
		name := name
		g.Go(func() error {
			rows, err := svc.store.SelectOwned(gctx, name, ownerID)
			if err != nil {
				return errors.Wrapf(err, "reading %s", name)
			}
			if rows == nil {
				rows = []Row{}
			}
			mu.Lock()
			data[name] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	env := Envelope{
		Version:   FormatVersion,
		Timestamp: NowFunc().UnixMilli(),
		Data:      data,
	}
	blob, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "serializing backup")
	}
	return blob, nil
}
