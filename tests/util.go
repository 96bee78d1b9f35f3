package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
)

type (
	courseCreator interface {
		CreateCourse(ctx context.Context, crs course.Course) (course.Course, error)
	}
	enrollmentCreator interface {
		CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error)
	}
	userCreator interface {
		CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error)
	}
)

func CreateCourse(t *testing.T, repo courseCreator, title, subjectCode, createdBy string) course.Course {
	t.Helper()

	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		SubjectCode: subjectCode,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateUser(t *testing.T, repo userCreator, name, email string, roles []string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Email:     email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateEnrollment(
	t *testing.T,
	repo enrollmentCreator,
	studentID, courseID, status string,
	createdAt ...time.Time,
) enrollment.Enrollment {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	enr, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		Status:    status,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

// NopLogger satisfies core.Logger for services under test.
type NopLogger struct{}

var _ core.Logger = (*NopLogger)(nil)

func (NopLogger) Enable(bool)                  {}
func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
