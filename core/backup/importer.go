package backup

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Import failure modes callers are expected to dispatch on with errors.Cause.
var (
	ErrUnreadableFile    = errors.New("backup file cannot be read")
	ErrInvalidFormat     = errors.New("invalid backup file: missing version or data")
	ErrOwnershipMismatch = errors.New("backup file contains data belonging to another account")
)

// Import merges a backup file into ownerID's account: existing ids are
// overwritten, new ids are inserted, and records absent from the file are
// left untouched. Classes are written first, then students, then the seven
// collections hanging off students, concurrently. There is no cross-collection
// rollback; collections committed before a failure stay committed, and
// re-running the same import converges on the same state.
func (svc *service) Import(ctx context.Context, r io.Reader, ownerID string) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ErrUnreadableFile
	}

	// light format check; the full dry-run lives in Validate
	var doc struct {
		Version *int                       `json:"version"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ErrInvalidFormat
	}
	if doc.Version == nil || doc.Data == nil {
		return ErrInvalidFormat
	}

	data := make(map[string][]Row, len(Collections))
	for _, name := range Collections {
		blob, found := doc.Data[name]
		if !found {
			continue
		}
		var rows []Row
		if err := json.Unmarshal(blob, &rows); err != nil {
			return errors.Wrapf(ErrInvalidFormat, "parsing %s", name)
		}
		data[name] = rows
	}

	// refuse the whole file before the first write if any row claims a
	// different owner; a partial import of foreign data is not recoverable
	for _, name := range Collections {
		for _, row := range data[name] {
			if _, found := row[OwnerField]; !found {
				continue
			}
			if owner := row.OwnerID(); owner != "" && owner != ownerID {
				return errors.Wrapf(ErrOwnershipMismatch, "%s row %q", name, row.ID())
			}
		}
	}
	for _, name := range Collections {
		for _, row := range data[name] {
			if _, found := row[OwnerField]; found {
				row[OwnerField] = ownerID
			}
		}
	}

	// classes before students before everything else; the schema enforces
	// these foreign keys
	for _, name := range []string{CollectionClasses, CollectionStudents} {
		if err := svc.upsert(ctx, name, data[name]); err != nil {
			return err
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range dependentCollections {
		name, rows := name, data[name]
		g.Go(func() error {
			return svc.upsert(gctx, name, rows)
		})
	}
	return g.Wait()
}

func (svc *service) upsert(ctx context.Context, collection string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	return errors.Wrapf(svc.store.UpsertRows(ctx, collection, rows), "restoring %s", collection)
}
