package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core"
)

// Status is a daily attendance code as used on Indonesian report cards.
type Status string

const (
	StatusPresent Status = "H" // hadir
	StatusSick    Status = "S" // sakit
	StatusExcused Status = "I" // izin
	StatusAbsent  Status = "A" // alpha
)

// Statuses lists all valid codes, in recap column order.
var Statuses = []Status{StatusPresent, StatusSick, StatusExcused, StatusAbsent}

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusSick, StatusExcused, StatusAbsent:
		return true
	}
	return false
}

// Record is one student's attendance on one date. There is at most one Record
// per student per date; recording again overwrites status and note.
type Record struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"user_id"`
	StudentID string      `json:"student_id"`
	ClassID   null.String `json:"class_id"`
	Date      time.Time   `json:"date"`
	Status    Status      `json:"status"`
	Note      null.String `json:"note"`
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

// NewRecord contains information needed to record attendance.
type NewRecord struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id"`
	Date      string `json:"date" validate:"required,isodate"`
	Status    string `json:"status" validate:"required,oneof=H S I A"`
	Note      string `json:"note"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.Note = core.CleanString(nr.Note)
	return validate.Struct(nr)
}

type QueryFilter struct {
	StudentID string
	ClassID   string
	From      time.Time
	To        time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.ClassID == "" && qf.From.IsZero() && qf.To.IsZero()
}
