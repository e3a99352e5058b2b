// Package inmemdb provides in-memory repositories, primarily for tests.
package inmemdb

import (
	"sync"
	"time"

	"github.com/sekolahkita/portalguru/core/attendance"
	"github.com/sekolahkita/portalguru/core/backup"
	"github.com/sekolahkita/portalguru/core/class"
	"github.com/sekolahkita/portalguru/core/student"
	"github.com/sekolahkita/portalguru/core/user"
)

type DB struct {
	mutex      sync.RWMutex
	users      map[string]*user.User
	classes    map[string]*class.Class
	students   map[string]*student.Student
	attendance map[string]*attendance.Record

	// collections without a typed repository, keyed collection -> id -> row
	collections map[string]map[string]backup.Row
}

func NewDB() *DB {
	return &DB{
		users:      make(map[string]*user.User),
		classes:    make(map[string]*class.Class),
		students:   make(map[string]*student.Student),
		attendance: make(map[string]*attendance.Record),
		collections: map[string]map[string]backup.Row{
			backup.CollectionAcademicRecords: {},
			backup.CollectionViolations:      {},
			backup.CollectionQuizPoints:      {},
			backup.CollectionReports:         {},
			backup.CollectionTasks:           {},
			backup.CollectionSchedules:       {},
		},
	}
}

// Reset drops all stored data. Tests use it to start from a clean slate.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.users = make(map[string]*user.User)
	db.classes = make(map[string]*class.Class)
	db.students = make(map[string]*student.Student)
	db.attendance = make(map[string]*attendance.Record)
	for name := range db.collections {
		db.collections[name] = map[string]backup.Row{}
	}
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareBools(a, b bool) int {
	switch {
	case !a && b:
		return -1
	case a && !b:
		return 1
	default:
		return 0
	}
}
