package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std *student.Student, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if std.ID == "" {
		std.ID = uuid.NewString()
	}
	clone := *std
	repo.db.students[std.ID] = &clone
	return nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	std, ok := repo.db.students[id]
	if !ok || (ownerID != "" && std.OwnerID != ownerID) {
		return student.Student{}, student.ErrNotFound
	}
	return *std, nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, ownerID string, filter student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0)
	for _, std := range repo.db.students {
		if ownerID != "" && std.OwnerID != ownerID {
			continue
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(std.FullName), search) &&
				!strings.Contains(strings.ToLower(std.NISN.String), search) {
				continue
			}
		}
		if filter.ClassID != "" && std.ClassID.String != filter.ClassID {
			continue
		}
		if filter.Gender != "" && std.Gender.String != filter.Gender {
			continue
		}
		students = append(students, *std)
	}

	sortStudents(students, ordering)
	return students, nil
}

func (repo *studentRepository) FilterStudentsByParentEmail(ctx context.Context, email string, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	email = strings.ToLower(email)
	students := make([]student.Student, 0)
	for _, std := range repo.db.students {
		if std.ParentEmail.String != "" && strings.ToLower(std.ParentEmail.String) == email {
			students = append(students, *std)
		}
	}

	sortStudents(students, []core.DBOrdering{{Field: "full_name", Ascending: true}})
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std *student.Student, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return student.ErrNotFound
	}
	clone := *std
	repo.db.students[std.ID] = &clone
	return nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ownerID string, ids []string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		if std, ok := repo.db.students[id]; ok && (ownerID == "" || std.OwnerID == ownerID) {
			delete(repo.db.students, id)
		}
	}
	return nil
}

func sortStudents(students []student.Student, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(students, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareStudents(students[i], students[j], ord.Field)
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

func compareStudents(a, b student.Student, field string) int {
	switch field {
	case "full_name":
		return strings.Compare(a.FullName, b.FullName)
	case "nisn":
		return strings.Compare(a.NISN.String, b.NISN.String)
	case "birth_date":
		return compareTimes(a.BirthDate.Time, b.BirthDate.Time)
	case "updated_at":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	default: // created_at
		return compareTimes(a.CreatedAt, b.CreatedAt)
	}
}
