package class

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core"
)

type Class struct {
	ID           string      `json:"id"`
	OwnerID      string      `json:"user_id"`
	Name         string      `json:"name"`
	Subject      null.String `json:"subject"`
	AcademicYear string      `json:"academic_year"` // e.g. 2025/2026
	CreatedAt    time.Time   `json:"created_at"`    // UTC
	UpdatedAt    time.Time   `json:"updated_at"`    // UTC
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name         string `json:"name" validate:"required"`
	Subject      string `json:"subject"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Subject = core.CleanString(nc.Subject)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
// Empty fields keep their current value.
type UpdateClass struct {
	Name         string `json:"name"`
	Subject      string `json:"subject"`
	AcademicYear string `json:"academic_year"`
}

func (uc *UpdateClass) Validate(origCls Class, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = origCls.Name
	}
	if subject := core.CleanString(uc.Subject); subject != "" {
		uc.Subject = subject
	} else {
		uc.Subject = origCls.Subject.String
	}
	if year := core.CleanString(uc.AcademicYear); year != "" {
		uc.AcademicYear = year
	} else {
		uc.AcademicYear = origCls.AcademicYear
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search       string `query:"search"`
	AcademicYear string `query:"academic_year"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.AcademicYear == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
}
