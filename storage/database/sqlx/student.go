package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/student"
)

const studentColumns = `id, user_id, class_id, full_name, nisn, gender, birth_date, parent_name, parent_phone, parent_email, created_at, updated_at`

type studentRow struct {
	ID          string      `db:"id"`
	UserID      string      `db:"user_id"`
	ClassID     null.String `db:"class_id"`
	FullName    string      `db:"full_name"`
	NISN        null.String `db:"nisn"`
	Gender      null.String `db:"gender"`
	BirthDate   null.Time   `db:"birth_date"`
	ParentName  null.String `db:"parent_name"`
	ParentPhone null.String `db:"parent_phone"`
	ParentEmail null.String `db:"parent_email"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo *studentRepository) unpack(row studentRow) student.Student {
	return student.Student{
		ID:          row.ID,
		OwnerID:     row.UserID,
		ClassID:     row.ClassID,
		FullName:    row.FullName,
		NISN:        row.NISN,
		Gender:      row.Gender,
		BirthDate:   row.BirthDate,
		ParentName:  row.ParentName,
		ParentPhone: row.ParentPhone,
		ParentEmail: row.ParentEmail,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (repo *studentRepository) unpackSlice(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unpack(row))
	}
	return students
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std *student.Student, exec ...core.DBExecutor) error {
	q := `
		INSERT INTO students (` + studentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := getExec(repo.exec, exec).ExecContext(ctx, q,
		std.ID, std.OwnerID, std.ClassID, std.FullName, std.NISN, std.Gender, std.BirthDate,
		std.ParentName, std.ParentPhone, std.ParentEmail, std.CreatedAt.UTC(), std.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "inserting student")
	}
	return nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (student.Student, error) {
	q := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	args := []interface{}{id}
	if ownerID != "" {
		q += ` AND user_id = $2`
		args = append(args, ownerID)
	}

	var row studentRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, args...); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return repo.unpack(row), nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, ownerID string, filter student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	where := []string{"TRUE"}
	var args argList

	if ownerID != "" {
		where = append(where, `user_id = `+args.add(ownerID))
	}
	if filter.Search != "" {
		p := args.add("%" + filter.Search + "%")
		where = append(where, `(full_name ILIKE `+p+` OR nisn ILIKE `+p+`)`)
	}
	if filter.ClassID != "" {
		where = append(where, `class_id = `+args.add(filter.ClassID))
	}
	if filter.Gender != "" {
		where = append(where, `gender = `+args.add(filter.Gender))
	}

	var rows []studentRow
	q := `SELECT ` + studentColumns + ` FROM students WHERE ` + strings.Join(where, " AND ") + orderBy(ordering)
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return repo.unpackSlice(rows), nil
}

func (repo *studentRepository) FilterStudentsByParentEmail(ctx context.Context, email string, exec ...core.DBExecutor) ([]student.Student, error) {
	var rows []studentRow
	q := `SELECT ` + studentColumns + ` FROM students WHERE LOWER(parent_email) = $1 ORDER BY full_name ASC`
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, strings.ToLower(email)); err != nil {
		return nil, errors.Wrap(err, "querying students by parent email")
	}
	return repo.unpackSlice(rows), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std *student.Student, exec ...core.DBExecutor) error {
	q := `
		UPDATE students
		SET class_id = $1, full_name = $2, nisn = $3, gender = $4, birth_date = $5,
		    parent_name = $6, parent_phone = $7, parent_email = $8, updated_at = $9
		WHERE id = $10`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q,
		std.ClassID, std.FullName, std.NISN, std.Gender, std.BirthDate,
		std.ParentName, std.ParentPhone, std.ParentEmail, std.UpdatedAt.UTC(), std.ID)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ownerID string, ids []string, exec ...core.DBExecutor) error {
	q := `DELETE FROM students WHERE id = ANY($1)`
	args := []interface{}{pq.StringArray(ids)}
	if ownerID != "" {
		q += ` AND user_id = $2`
		args = append(args, ownerID)
	}
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}
