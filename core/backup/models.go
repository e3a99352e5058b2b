package backup

import (
	"fmt"
	"time"

	"github.com/sekolahkita/portalguru/core"
)

// FormatVersion is the current backup file format tag. Older versions are
// accepted with a warning; there is no per-version migration logic.
const FormatVersion = 1

// Row field names the pipeline treats specially: the natural key used for
// upserts and the ownership field used for export filtering and import
// re-scoping.
const (
	IDField    = "id"
	OwnerField = "user_id"
)

// Recognized collections. Anything else found in a backup file is ignored.
const (
	CollectionStudents        = "students"
	CollectionClasses         = "classes"
	CollectionAttendance      = "attendance"
	CollectionAcademicRecords = "academic_records"
	CollectionViolations      = "violations"
	CollectionQuizPoints      = "quiz_points"
	CollectionReports         = "reports"
	CollectionTasks           = "tasks"
	CollectionSchedules       = "schedules"
)

var (
	// Collections lists every recognized collection, in envelope order.
	Collections = []string{
		CollectionStudents,
		CollectionClasses,
		CollectionAttendance,
		CollectionAcademicRecords,
		CollectionViolations,
		CollectionQuizPoints,
		CollectionReports,
		CollectionTasks,
		CollectionSchedules,
	}

	// dependentCollections are only written once classes and students have been
	// committed; every one of them references a student row.
	dependentCollections = []string{
		CollectionAttendance,
		CollectionAcademicRecords,
		CollectionViolations,
		CollectionQuizPoints,
		CollectionReports,
		CollectionTasks,
		CollectionSchedules,
	}
)

// Row is one backed-up record: an opaque field→value mapping, validated at the
// boundaries and never trusted as strongly typed.
type Row map[string]interface{}

// ID returns the row's natural key, or "" when absent.
func (r Row) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// OwnerID returns the row's ownership field value, or "" when absent or unset.
func (r Row) OwnerID() string {
	owner, _ := r[OwnerField].(string)
	return owner
}

// Envelope is the top-level versioned container wrapping all exported
// collections. It is built fresh on every export and never persisted.
type Envelope struct {
	Version   int              `json:"version"`
	Timestamp int64            `json:"timestamp"` // epoch ms
	Data      map[string][]Row `json:"data"`
}

// Filename returns the download file name for a backup taken at t,
// e.g. "portal_guru_backup_2026-08-24.json".
func Filename(t time.Time) string {
	return fmt.Sprintf("portal_guru_backup_%s.json", t.Format(core.DateFormat))
}
