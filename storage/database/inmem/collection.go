package inmemdb

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/attendance"
	"github.com/sekolahkita/portalguru/core/backup"
	"github.com/sekolahkita/portalguru/core/class"
	"github.com/sekolahkita/portalguru/core/student"
)

// collectionStore exposes every backed-up collection as generic rows. Typed
// entities round-trip through their JSON tags, which match the column names
// the SQL store uses, so both stores produce interchangeable backup files.
type collectionStore struct {
	db *DB
}

var _ backup.CollectionStore = (*collectionStore)(nil) // interface compliance check

func NewCollectionStore(db *DB) *collectionStore {
	return &collectionStore{db: db}
}

func (store *collectionStore) SelectOwned(ctx context.Context, collection, ownerID string, exec ...core.DBExecutor) ([]backup.Row, error) {
	store.db.mutex.RLock()
	defer store.db.mutex.RUnlock()

	var rows []backup.Row
	switch collection {
	case backup.CollectionStudents:
		for _, std := range store.db.students {
			if std.OwnerID != ownerID {
				continue
			}
			row, err := toRow(std)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	case backup.CollectionClasses:
		for _, cls := range store.db.classes {
			if cls.OwnerID != ownerID {
				continue
			}
			row, err := toRow(cls)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	case backup.CollectionAttendance:
		for _, rec := range store.db.attendance {
			if rec.OwnerID != ownerID {
				continue
			}
			row, err := toRow(rec)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	default:
		stored, ok := store.db.collections[collection]
		if !ok {
			return nil, errors.Errorf("unknown collection %q", collection)
		}
		for _, row := range stored {
			if row.OwnerID() != ownerID {
				continue
			}
			rows = append(rows, copyRow(row))
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ID() < rows[j].ID() })
	return rows, nil
}

func (store *collectionStore) UpsertRows(ctx context.Context, collection string, rows []backup.Row, exec ...core.DBExecutor) error {
	if len(rows) == 0 {
		return nil
	}

	store.db.mutex.Lock()
	defer store.db.mutex.Unlock()

	for _, row := range rows {
		id := row.ID()
		if id == "" {
			return errors.Errorf("%s row without id", collection)
		}

		// decode onto a copy of the stored value so fields absent from the
		// row keep their current value, like a column-wise SQL upsert
		var err error
		switch collection {
		case backup.CollectionStudents:
			var std student.Student
			if existing, ok := store.db.students[id]; ok {
				std = *existing
			}
			if err = applyRow(row, &std); err == nil {
				store.db.students[id] = &std
			}
		case backup.CollectionClasses:
			var cls class.Class
			if existing, ok := store.db.classes[id]; ok {
				cls = *existing
			}
			if err = applyRow(row, &cls); err == nil {
				store.db.classes[id] = &cls
			}
		case backup.CollectionAttendance:
			var rec attendance.Record
			if existing, ok := store.db.attendance[id]; ok {
				rec = *existing
			}
			if err = applyRow(row, &rec); err == nil {
				store.db.attendance[id] = &rec
			}
		default:
			stored, ok := store.db.collections[collection]
			if !ok {
				return errors.Errorf("unknown collection %q", collection)
			}
			merged := copyRow(stored[id])
			for field, val := range row {
				merged[field] = val
			}
			stored[id] = merged
		}
		if err != nil {
			return errors.Wrapf(err, "upserting %s row %s", collection, id)
		}
	}
	return nil
}

func toRow(v interface{}) (backup.Row, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding row")
	}
	var row backup.Row
	if err = json.Unmarshal(blob, &row); err != nil {
		return nil, errors.Wrap(err, "decoding row")
	}
	return row, nil
}

func applyRow(row backup.Row, target interface{}) error {
	blob, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "encoding row")
	}
	return errors.Wrap(json.Unmarshal(blob, target), "decoding row")
}

func copyRow(row backup.Row) backup.Row {
	cp := make(backup.Row, len(row))
	for field, val := range row {
		cp[field] = val
	}
	return cp
}
