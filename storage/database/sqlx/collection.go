package sqlxrepos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/backup"
)

// collectionColumns whitelists the writable columns of every backup
// collection. Row fields outside the list are dropped rather than erroring;
// a backup taken by a newer app may carry fields this backend does not know.
var collectionColumns = map[string][]string{
	backup.CollectionStudents:        {"id", "user_id", "class_id", "full_name", "nisn", "gender", "birth_date", "parent_name", "parent_phone", "parent_email", "created_at", "updated_at"},
	backup.CollectionClasses:         {"id", "user_id", "name", "subject", "academic_year", "created_at", "updated_at"},
	backup.CollectionAttendance:      {"id", "user_id", "student_id", "class_id", "date", "status", "note", "created_at", "updated_at"},
	backup.CollectionAcademicRecords: {"id", "user_id", "student_id", "subject", "semester", "academic_year", "assessment_type", "score", "notes", "created_at", "updated_at"},
	backup.CollectionViolations:      {"id", "user_id", "student_id", "date", "violation_type", "description", "points", "follow_up", "created_at", "updated_at"},
	backup.CollectionQuizPoints:      {"id", "user_id", "student_id", "date", "subject", "quiz_name", "points", "notes", "created_at", "updated_at"},
	backup.CollectionReports:         {"id", "user_id", "student_id", "date", "report_type", "title", "content", "created_at", "updated_at"},
	backup.CollectionTasks:           {"id", "user_id", "student_id", "subject", "title", "description", "due_date", "status", "score", "created_at", "updated_at"},
	backup.CollectionSchedules:       {"id", "user_id", "student_id", "class_id", "day_of_week", "subject", "start_time", "end_time", "room", "created_at", "updated_at"},
}

// collectionRepository reads and writes whole collections as opaque rows.
// Collection names double as table names.
type collectionRepository struct {
	db core.DB
}

var _ backup.CollectionStore = (*collectionRepository)(nil) // interface compliance check

func NewCollectionRepository(db core.DB) *collectionRepository {
	return &collectionRepository{db: db}
}

// SelectOwned lets PostgreSQL do the serialization: row_to_json gives every
// column a stable JSON representation (dates as ISO strings, numerics as
// numbers) regardless of driver scan types.
func (repo *collectionRepository) SelectOwned(ctx context.Context, collection, ownerID string, exec ...core.DBExecutor) ([]backup.Row, error) {
	if _, known := collectionColumns[collection]; !known {
		return nil, errors.Errorf("unknown collection %q", collection)
	}

	var blobs []string
	q := fmt.Sprintf(`SELECT row_to_json(t) FROM %s t WHERE t.user_id = $1`, pq.QuoteIdentifier(collection))
	if err := getExec(repo.db, exec).SelectContext(ctx, &blobs, q, ownerID); err != nil {
		return nil, errors.Wrapf(err, "selecting %s", collection)
	}

	rows := make([]backup.Row, 0, len(blobs))
	for _, blob := range blobs {
		var row backup.Row
		if err := json.Unmarshal([]byte(blob), &row); err != nil {
			return nil, errors.Wrapf(err, "decoding %s row", collection)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// UpsertRows writes the whole batch in one transaction unless the caller
// brought its own executor.
func (repo *collectionRepository) UpsertRows(ctx context.Context, collection string, rows []backup.Row, exec ...core.DBExecutor) error {
	columns, known := collectionColumns[collection]
	if !known {
		return errors.Errorf("unknown collection %q", collection)
	}
	if len(rows) == 0 {
		return nil
	}
	if len(exec) > 0 {
		return repo.upsertRows(ctx, exec[0], collection, columns, rows)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := repo.upsertRows(ctx, tx, collection, columns, rows); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo *collectionRepository) upsertRows(ctx context.Context, exec core.DBExecutor, collection string, columns []string, rows []backup.Row) error {
	for _, row := range rows {
		if row.ID() == "" {
			return errors.Errorf("%s row without id", collection)
		}

		cols := make([]string, 0, len(columns))
		params := make([]string, 0, len(columns))
		sets := make([]string, 0, len(columns))
		var args argList
		for _, col := range columns {
			val, found := row[col]
			if !found {
				continue
			}
			quoted := pq.QuoteIdentifier(col)
			cols = append(cols, quoted)
			params = append(params, args.add(val))
			if col != backup.IDField {
				sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", quoted, quoted))
			}
		}

		q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
			pq.QuoteIdentifier(collection), strings.Join(cols, ", "), strings.Join(params, ", "))
		if len(sets) > 0 {
			q += ` ON CONFLICT (id) DO UPDATE SET ` + strings.Join(sets, ", ")
		} else {
			q += ` ON CONFLICT (id) DO NOTHING`
		}
		if _, err := exec.ExecContext(ctx, q, args...); err != nil {
			return errors.Wrapf(err, "upserting %s row %s", collection, row.ID())
		}
	}
	return nil
}
