package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core"
)

// Genders, as recorded on the national register.
const (
	GenderMale   = "L" // laki-laki
	GenderFemale = "P" // perempuan
)

type Student struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"user_id"`
	ClassID     null.String `json:"class_id"`
	FullName    string      `json:"full_name"`
	NISN        null.String `json:"nisn"` // 10-digit national student number
	Gender      null.String `json:"gender"`
	BirthDate   null.Time   `json:"birth_date"`
	ParentName  null.String `json:"parent_name"`
	ParentPhone null.String `json:"parent_phone"`
	ParentEmail null.String `json:"parent_email"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	ClassID     string `json:"class_id"`
	FullName    string `json:"full_name" validate:"required"`
	NISN        string `json:"nisn" validate:"omitempty,number,len=10"`
	Gender      string `json:"gender" validate:"omitempty,oneof=L P"`
	BirthDate   string `json:"birth_date" validate:"omitempty,isodate"`
	ParentName  string `json:"parent_name"`
	ParentPhone string `json:"parent_phone"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FullName = core.CleanString(ns.FullName)
	ns.NISN = core.CleanString(ns.NISN)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing
// Student. Empty fields keep their current value.
type UpdateStudent struct {
	ClassID     string `json:"class_id"`
	FullName    string `json:"full_name"`
	NISN        string `json:"nisn" validate:"omitempty,number,len=10"`
	Gender      string `json:"gender" validate:"omitempty,oneof=L P"`
	BirthDate   string `json:"birth_date" validate:"omitempty,isodate"`
	ParentName  string `json:"parent_name"`
	ParentPhone string `json:"parent_phone"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
}

func (us *UpdateStudent) Validate(origStd Student, validate *validator.Validate) error {
	if name := core.CleanString(us.FullName); name != "" {
		us.FullName = name
	} else {
		us.FullName = origStd.FullName
	}
	us.ParentEmail = core.CleanString(us.ParentEmail, true /* lower */)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search  string `query:"search"`
	ClassID string `query:"class_id"`
	Gender  string `query:"gender"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ClassID == "" && qf.Gender == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
