package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec *attendance.Record, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// merge on (student, date): the existing id and created_at survive
	for _, existing := range repo.db.attendance {
		if existing.StudentID == rec.StudentID && sameDay(existing.Date, rec.Date) {
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
			clone := *rec
			repo.db.attendance[rec.ID] = &clone
			return nil
		}
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	clone := *rec
	repo.db.attendance[rec.ID] = &clone
	return nil
}

func (repo *attendanceRepository) FilterRecords(ctx context.Context, ownerID string, filter attendance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]attendance.Record, 0)
	for _, rec := range repo.db.attendance {
		if ownerID != "" && rec.OwnerID != ownerID {
			continue
		}
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != "" && rec.ClassID.String != filter.ClassID {
			continue
		}
		if !filter.From.IsZero() && rec.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && rec.Date.After(filter.To) {
			continue
		}
		records = append(records, *rec)
	}

	sortRecords(records, ordering)
	return records, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func sortRecords(records []attendance.Record, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareRecords(records[i], records[j], ord.Field)
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

func compareRecords(a, b attendance.Record, field string) int {
	switch field {
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	default: // date
		return compareTimes(a.Date, b.Date)
	}
}
