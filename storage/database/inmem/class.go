package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls *class.Class, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if cls.ID == "" {
		cls.ID = uuid.NewString()
	}
	clone := *cls
	repo.db.classes[cls.ID] = &clone
	return nil
}

func (repo *classRepository) GetClass(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cls, ok := repo.db.classes[id]
	if !ok || (ownerID != "" && cls.OwnerID != ownerID) {
		return class.Class{}, class.ErrNotFound
	}
	return *cls, nil
}

func (repo *classRepository) FilterClasses(ctx context.Context, ownerID string, filter class.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]class.Class, 0)
	for _, cls := range repo.db.classes {
		if ownerID != "" && cls.OwnerID != ownerID {
			continue
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(cls.Name), search) &&
				!strings.Contains(strings.ToLower(cls.Subject.String), search) {
				continue
			}
		}
		if filter.AcademicYear != "" && cls.AcademicYear != filter.AcademicYear {
			continue
		}
		classes = append(classes, *cls)
	}

	sortClasses(classes, ordering)
	return classes, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls *class.Class, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return class.ErrNotFound
	}
	clone := *cls
	repo.db.classes[cls.ID] = &clone
	return nil
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ownerID string, ids []string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		if cls, ok := repo.db.classes[id]; ok && (ownerID == "" || cls.OwnerID == ownerID) {
			delete(repo.db.classes, id)
		}
	}
	return nil
}

func sortClasses(classes []class.Class, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(classes, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareClasses(classes[i], classes[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

func compareClasses(a, b class.Class, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "academic_year":
		return strings.Compare(a.AcademicYear, b.AcademicYear)
	case "updated_at":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	default: // created_at
		return compareTimes(a.CreatedAt, b.CreatedAt)
	}
}
