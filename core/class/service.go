package class

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core"
)

var ErrNotFound = errors.New("class not found")

type (
	// Repository is the interface a Class storage implementation must satisfy.
	// An empty ownerID disables the ownership filter (admin access).
	Repository interface {
		CreateClass(ctx context.Context, cls *Class, exec ...core.DBExecutor) error
		GetClass(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (Class, error)
		FilterClasses(ctx context.Context, ownerID string, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Class, error)
		UpdateClass(ctx context.Context, cls *Class, exec ...core.DBExecutor) error
		DeleteClassesByID(ctx context.Context, ownerID string, ids []string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, ownerID string, nc NewClass) (Class, error)
		Query(ctx context.Context, ownerID string, filter QueryFilter, ordering ...core.DBOrdering) ([]Class, error)
		GetByID(ctx context.Context, id, ownerID string) (Class, error)
		Update(ctx context.Context, id, ownerID string, uc UpdateClass) (Class, error)
		Delete(ctx context.Context, ownerID string, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, ownerID string, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Name:         nc.Name,
		AcademicYear: nc.AcademicYear,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nc.Subject != "" {
		cls.Subject = null.StringFrom(nc.Subject)
	}
	if err := svc.repo.CreateClass(ctx, &cls); err != nil {
		return Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (svc *service) Query(ctx context.Context, ownerID string, filter QueryFilter, ordering ...core.DBOrdering) ([]Class, error) {
	filter.Clean()
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.FilterClasses(ctx, ownerID, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id, ownerID string) (Class, error) {
	return svc.repo.GetClass(ctx, id, ownerID)
}

func (svc *service) Update(ctx context.Context, id, ownerID string, uc UpdateClass) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id, ownerID)
	if err != nil {
		return Class{}, err
	}

	cls.Name = uc.Name
	cls.AcademicYear = uc.AcademicYear
	if uc.Subject != "" {
		cls.Subject = null.StringFrom(uc.Subject)
	}
	cls.UpdatedAt = time.Now().UTC()
	if err := svc.repo.UpdateClass(ctx, &cls); err != nil {
		return Class{}, errors.Wrap(err, "updating class")
	}
	return cls, nil
}

func (svc *service) Delete(ctx context.Context, ownerID string, ids ...string) error {
	return svc.repo.DeleteClassesByID(ctx, ownerID, ids)
}
