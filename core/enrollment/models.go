package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

var ErrNotFound = errors.New("enrollment not found")

// Statuses. Only approved enrollments are eligible for section placement.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

type (
	// Enrollment is created by the enrollment workflow; this service only
	// ever sets SectionID.
	Enrollment struct {
		ID        string      `json:"id"`
		StudentID string      `json:"student_id"`
		CourseID  string      `json:"course_id"`
		SectionID null.String `json:"section_id"`
		Status    string      `json:"status"`
		CreatedAt time.Time   `json:"created_at"` // UTC; FIFO ordering key
	}

	// SectionUpdate sets one enrollment's section.
	SectionUpdate struct {
		EnrollmentID string
		SectionID    string
	}

	Repository interface {
		// ListApproved returns approved enrollments for the course ordered by
		// ascending CreatedAt (ID as tiebreak) - earliest approved first.
		ListApproved(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Enrollment, error)
		CountApproved(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error)
		// CountBySection counts approved enrollments currently placed in the section.
		CountBySection(ctx context.Context, sectionID string, exec ...core.DBExecutor) (int, error)
		// BulkSetSection applies updates item by item; callers run it inside
		// an enclosing transaction when atomicity is required.
		BulkSetSection(ctx context.Context, updates []SectionUpdate, exec ...core.DBExecutor) error
	}
)

// Eligible reports whether the enrollment may be placed into a section.
func (e Enrollment) Eligible() bool {
	return e.Status == StatusApproved
}
