package student

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core"
)

var ErrNotFound = errors.New("student not found")

type (
	// Repository is the interface a Student storage implementation must satisfy.
	// An empty ownerID disables the ownership filter (admin access).
	Repository interface {
		CreateStudent(ctx context.Context, std *Student, exec ...core.DBExecutor) error
		GetStudent(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (Student, error)
		FilterStudents(ctx context.Context, ownerID string, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		// FilterStudentsByParentEmail looks across all owners; a parent's
		// children may be enrolled with different teachers.
		FilterStudentsByParentEmail(ctx context.Context, email string, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudent(ctx context.Context, std *Student, exec ...core.DBExecutor) error
		DeleteStudentsByID(ctx context.Context, ownerID string, ids []string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, ownerID string, ns NewStudent) (Student, error)
		Query(ctx context.Context, ownerID string, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error)
		GetByID(ctx context.Context, id, ownerID string) (Student, error)
		Update(ctx context.Context, id, ownerID string, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, ownerID string, ids ...string) error
		QueryByParentEmail(ctx context.Context, email string) ([]Student, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, ownerID string, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		FullName:  ns.FullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	setOptionalFields(&std, ns.ClassID, ns.NISN, ns.Gender, ns.ParentName, ns.ParentPhone, ns.ParentEmail)
	if ns.BirthDate != "" {
		bd, err := time.Parse(core.DateFormat, ns.BirthDate)
		if err != nil {
			return Student{}, errors.Wrap(err, "parsing birth date")
		}
		std.BirthDate = null.TimeFrom(bd)
	}

	if err := svc.repo.CreateStudent(ctx, &std); err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (svc *service) Query(ctx context.Context, ownerID string, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "full_name", Ascending: true}}
	}
	return svc.repo.FilterStudents(ctx, ownerID, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id, ownerID string) (Student, error) {
	return svc.repo.GetStudent(ctx, id, ownerID)
}

func (svc *service) Update(ctx context.Context, id, ownerID string, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id, ownerID)
	if err != nil {
		return Student{}, err
	}

	std.FullName = us.FullName
	setOptionalFields(&std, us.ClassID, us.NISN, us.Gender, us.ParentName, us.ParentPhone, us.ParentEmail)
	if us.BirthDate != "" {
		bd, err := time.Parse(core.DateFormat, us.BirthDate)
		if err != nil {
			return Student{}, errors.Wrap(err, "parsing birth date")
		}
		std.BirthDate = null.TimeFrom(bd)
	}
	std.UpdatedAt = time.Now().UTC()

	if err := svc.repo.UpdateStudent(ctx, &std); err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	return std, nil
}

func (svc *service) Delete(ctx context.Context, ownerID string, ids ...string) error {
	return svc.repo.DeleteStudentsByID(ctx, ownerID, ids)
}

func (svc *service) QueryByParentEmail(ctx context.Context, email string) ([]Student, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return []Student{}, nil
	}
	return svc.repo.FilterStudentsByParentEmail(ctx, email)
}

func setOptionalFields(std *Student, classID, nisn, gender, parentName, parentPhone, parentEmail string) {
	if classID != "" {
		std.ClassID = null.StringFrom(classID)
	}
	if nisn != "" {
		std.NISN = null.StringFrom(nisn)
	}
	if gender != "" {
		std.Gender = null.StringFrom(gender)
	}
	if parentName != "" {
		std.ParentName = null.StringFrom(parentName)
	}
	if parentPhone != "" {
		std.ParentPhone = null.StringFrom(parentPhone)
	}
	if parentEmail != "" {
		std.ParentEmail = null.StringFrom(parentEmail)
	}
}
