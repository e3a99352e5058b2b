package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/attendance"
)

const attendanceColumns = `id, user_id, student_id, class_id, date, status, note, created_at, updated_at`

type attendanceRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	StudentID string      `db:"student_id"`
	ClassID   null.String `db:"class_id"`
	Date      time.Time   `db:"date"`
	Status    string      `db:"status"`
	Note      null.String `db:"note"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type attendanceRepository struct {
	exec core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{exec: exec}
}

func (repo *attendanceRepository) unpack(row attendanceRow) attendance.Record {
	return attendance.Record{
		ID:        row.ID,
		OwnerID:   row.UserID,
		StudentID: row.StudentID,
		ClassID:   row.ClassID,
		Date:      row.Date,
		Status:    attendance.Status(row.Status),
		Note:      row.Note,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// UpsertRecord merges on (student_id, date): the existing record's id and
// created_at survive, everything else is overwritten.
func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec *attendance.Record, exec ...core.DBExecutor) error {
	q := `
		INSERT INTO attendance (` + attendanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (student_id, date) DO UPDATE
		SET class_id = EXCLUDED.class_id, status = EXCLUDED.status, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	row := struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}{}
	err := getExec(repo.exec, exec).GetContext(ctx, &row, q,
		rec.ID, rec.OwnerID, rec.StudentID, rec.ClassID, rec.Date, string(rec.Status), rec.Note,
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "upserting attendance record")
	}
	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	return nil
}

func (repo *attendanceRepository) FilterRecords(ctx context.Context, ownerID string, filter attendance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendance.Record, error) {
	where := []string{"TRUE"}
	var args argList

	if ownerID != "" {
		where = append(where, `user_id = `+args.add(ownerID))
	}
	if filter.StudentID != "" {
		where = append(where, `student_id = `+args.add(filter.StudentID))
	}
	if filter.ClassID != "" {
		where = append(where, `class_id = `+args.add(filter.ClassID))
	}
	if !filter.From.IsZero() {
		where = append(where, `date >= `+args.add(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, `date <= `+args.add(filter.To))
	}

	var rows []attendanceRow
	q := `SELECT ` + attendanceColumns + ` FROM attendance WHERE ` + strings.Join(where, " AND ") + orderBy(ordering)
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}

	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.unpack(row))
	}
	return records, nil
}
