package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/sekolahkita/portalguru/core/attendance"
	"github.com/sekolahkita/portalguru/core/class"
	"github.com/sekolahkita/portalguru/core/student"
	"github.com/sekolahkita/portalguru/core/user"
	inmemdb "github.com/sekolahkita/portalguru/storage/database/inmem"
)

// ResetDB drops all stored data so each test starts from a clean slate.
func ResetDB(t *testing.T, db *inmemdb.DB) {
	db.Reset()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  &isActive,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(
	t *testing.T,
	repo class.Repository,
	ownerID, name, subject, academicYear string,
	createdAt ...time.Time,
) class.Class {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	cls := class.Class{
		OwnerID:      ownerID,
		Name:         name,
		AcademicYear: academicYear,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	if subject != "" {
		cls.Subject = null.StringFrom(subject)
	}
	if err := repo.CreateClass(context.Background(), &cls); err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	ownerID, classID, fullName, nisn, parentEmail string,
	createdAt ...time.Time,
) student.Student {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	std := student.Student{
		OwnerID:   ownerID,
		FullName:  fullName,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if classID != "" {
		std.ClassID = null.StringFrom(classID)
	}
	if nisn != "" {
		std.NISN = null.StringFrom(nisn)
	}
	if parentEmail != "" {
		std.ParentEmail = null.StringFrom(parentEmail)
	}
	if err := repo.CreateStudent(context.Background(), &std); err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateRecord(
	t *testing.T,
	repo attendance.Repository,
	ownerID, studentID, classID string,
	date time.Time,
	status attendance.Status,
) attendance.Record {
	now := time.Now().UTC()
	rec := attendance.Record{
		OwnerID:   ownerID,
		StudentID: studentID,
		Date:      date,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if classID != "" {
		rec.ClassID = null.StringFrom(classID)
	}
	if err := repo.UpsertRecord(context.Background(), &rec); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}
