package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/student"
)

var ErrNotFound = errors.New("attendance record not found")

type (
	// Repository is the interface an attendance storage implementation must
	// satisfy. An empty ownerID disables the ownership filter (admin access).
	Repository interface {
		// UpsertRecord saves rec, merging on (student, date): when a record
		// already exists for that pair its id is kept and only status, note
		// and updated_at change.
		UpsertRecord(ctx context.Context, rec *Record, exec ...core.DBExecutor) error
		FilterRecords(ctx context.Context, ownerID string, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Record, error)
	}

	// StudentDirectory is the slice of the student service the recap needs.
	StudentDirectory interface {
		Query(ctx context.Context, ownerID string, filter student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error)
	}

	Service interface {
		// Record saves one student's attendance for one date, overwriting any
		// earlier entry for the same student and date.
		Record(ctx context.Context, ownerID string, nr NewRecord) (Record, error)
		Query(ctx context.Context, ownerID string, filter QueryFilter, ordering ...core.DBOrdering) ([]Record, error)
		// MonthlyRecap renders one month of attendance as an xlsx workbook.
		MonthlyRecap(ctx context.Context, ownerID string, year int, month time.Month, classID string) ([]byte, error)
	}

	service struct {
		repo     Repository
		students StudentDirectory
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, students StudentDirectory) Service {
	return &service{repo: repo, students: students}
}

func (svc *service) Record(ctx context.Context, ownerID string, nr NewRecord) (Record, error) {
	date, err := time.Parse(core.DateFormat, nr.Date)
	if err != nil {
		return Record{}, errors.Wrap(err, "parsing date")
	}

	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		StudentID: nr.StudentID,
		Date:      date,
		Status:    Status(nr.Status),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nr.ClassID != "" {
		rec.ClassID = null.StringFrom(nr.ClassID)
	}
	if nr.Note != "" {
		rec.Note = null.StringFrom(nr.Note)
	}

	if err := svc.repo.UpsertRecord(ctx, &rec); err != nil {
		return Record{}, errors.Wrap(err, "recording attendance")
	}
	return rec, nil
}

func (svc *service) Query(ctx context.Context, ownerID string, filter QueryFilter, ordering ...core.DBOrdering) ([]Record, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "date"}}
	}
	return svc.repo.FilterRecords(ctx, ownerID, filter, ordering)
}
