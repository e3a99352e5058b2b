package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/class"
)

const classColumns = `id, user_id, name, subject, academic_year, created_at, updated_at`

type classRow struct {
	ID           string      `db:"id"`
	UserID       string      `db:"user_id"`
	Name         string      `db:"name"`
	Subject      null.String `db:"subject"`
	AcademicYear string      `db:"academic_year"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type classRepository struct {
	exec core.DBExecutor
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{exec: exec}
}

func (repo *classRepository) unpack(row classRow) class.Class {
	return class.Class{
		ID:           row.ID,
		OwnerID:      row.UserID,
		Name:         row.Name,
		Subject:      row.Subject,
		AcademicYear: row.AcademicYear,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls *class.Class, exec ...core.DBExecutor) error {
	q := `
		INSERT INTO classes (` + classColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := getExec(repo.exec, exec).ExecContext(ctx, q,
		cls.ID, cls.OwnerID, cls.Name, cls.Subject, cls.AcademicYear, cls.CreatedAt.UTC(), cls.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "inserting class")
	}
	return nil
}

func (repo *classRepository) GetClass(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (class.Class, error) {
	q := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	args := []interface{}{id}
	if ownerID != "" {
		q += ` AND user_id = $2`
		args = append(args, ownerID)
	}

	var row classRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, args...); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	return repo.unpack(row), nil
}

func (repo *classRepository) FilterClasses(ctx context.Context, ownerID string, filter class.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]class.Class, error) {
	where := []string{"TRUE"}
	var args argList

	if ownerID != "" {
		where = append(where, `user_id = `+args.add(ownerID))
	}
	if filter.Search != "" {
		p := args.add("%" + filter.Search + "%")
		where = append(where, `(name ILIKE `+p+` OR subject ILIKE `+p+`)`)
	}
	if filter.AcademicYear != "" {
		where = append(where, `academic_year = `+args.add(filter.AcademicYear))
	}

	var rows []classRow
	q := `SELECT ` + classColumns + ` FROM classes WHERE ` + strings.Join(where, " AND ") + orderBy(ordering)
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}

	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, repo.unpack(row))
	}
	return classes, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls *class.Class, exec ...core.DBExecutor) error {
	q := `
		UPDATE classes
		SET name = $1, subject = $2, academic_year = $3, updated_at = $4
		WHERE id = $5`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q,
		cls.Name, cls.Subject, cls.AcademicYear, cls.UpdatedAt.UTC(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return class.ErrNotFound
	}
	return nil
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ownerID string, ids []string, exec ...core.DBExecutor) error {
	q := `DELETE FROM classes WHERE id = ANY($1)`
	args := []interface{}{pq.StringArray(ids)}
	if ownerID != "" {
		q += ` AND user_id = $2`
		args = append(args, ownerID)
	}
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "deleting classes")
	}
	return nil
}
