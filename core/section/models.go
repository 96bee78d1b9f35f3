package section

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound                = errors.New("section not found")
	ErrNameTaken               = errors.New("a section with this name already exists for this course")
	ErrEnrollmentCountMismatch = errors.New("eligible enrollment count does not match total section capacity")
	ErrInvalidTransition       = errors.New("invalid section status transition")

	// ErrPlanInvariant signals a broken capacity plan. It indicates a bug
	// in the planner, never a recoverable input problem.
	ErrPlanInvariant = errors.New("capacity plan invariant violation")
)

// Statuses
const (
	StatusDraft     = "DRAFT"
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

var AllStatuses = []string{StatusDraft, StatusActive, StatusCompleted, StatusCancelled}

// transitions: DRAFT -> ACTIVE -> COMPLETED; DRAFT|ACTIVE -> CANCELLED
var transitions = map[string][]string{
	StatusDraft:  {StatusActive, StatusCancelled},
	StatusActive: {StatusCompleted, StatusCancelled},
}

type (
	// Section is a teaching sub-group ("class") of a course with a fixed
	// capacity ceiling. CurrentEnrollmentCount is denormalized and never
	// exceeds Capacity.
	Section struct {
		ID                     string    `json:"id"`
		CourseID               string    `json:"course_id"`
		Name                   string    `json:"name"` // unique per course
		Capacity               int       `json:"capacity"`
		CurrentEnrollmentCount int       `json:"current_enrollment_count"`
		Status                 string    `json:"status"`
		CreatedBy              string    `json:"created_by"`
		CreatedAt              time.Time `json:"created_at"` // UTC
		UpdatedAt              time.Time `json:"updated_at"` // UTC
	}

	// PlanConfig holds the sizing thresholds, passed explicitly so threshold
	// combinations stay testable.
	PlanConfig struct {
		Recommended int // preferred target section size
		HardMax     int // absolute ceiling a section may ever reach
	}

	// NewSections contains information needed to provision a course's sections.
	NewSections struct {
		CourseID      string `json:"course_id" validate:"required"`
		CreatedBy     string `json:"created_by" validate:"required"`
		TotalStudents *int   `json:"total_students" validate:"omitempty,min=0"` // overrides the eligible-enrollment count
	}

	// AssignStudents contains information needed to distribute approved
	// enrollments into existing sections.
	AssignStudents struct {
		CourseID   string   `json:"course_id" validate:"required"`
		SectionIDs []string `json:"section_ids" validate:"required,min=1,dive,required"`
	}

	// UpdateStatus requests a section status transition.
	UpdateStatus struct {
		Status string `json:"status" validate:"required,sectionstatus"`
	}

	// QueryFilter applies AND operation on available fields.
	QueryFilter struct {
		CourseID  string   `query:"course_id"`
		CreatedBy string   `query:"created_by"`
		StudentID string   `query:"student_id"`
		Status    string   `query:"status"`
		IDs       []string `query:"-"`
	}

	Repository interface {
		// CreateSections inserts all sections or none; callers provide the
		// enclosing transaction executor.
		CreateSections(ctx context.Context, secs []Section, exec ...core.DBExecutor) ([]Section, error)
		GetSectionByID(ctx context.Context, id string, exec ...core.DBExecutor) (Section, error)
		// GetSectionsByIDs preserves the order of ids in its result.
		GetSectionsByIDs(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Section, error)
		// CountNameMatches counts the course's sections whose name starts with prefix.
		CountNameMatches(ctx context.Context, courseID, prefix string, exec ...core.DBExecutor) (int, error)
		NameExists(ctx context.Context, courseID, name string, exec ...core.DBExecutor) (bool, error)
		UpdateSectionCount(ctx context.Context, id string, count int, exec ...core.DBExecutor) (Section, error)
		UpdateSectionStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) (Section, error)
		QuerySections(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Section, error)
	}
)

func (cfg PlanConfig) Validate() error {
	var flds []core.FieldError
	if cfg.Recommended <= 0 {
		flds = append(flds, core.FieldError{Field: "recommended", Error: "must be a positive integer"})
	}
	if cfg.HardMax < cfg.Recommended {
		flds = append(flds, core.FieldError{Field: "hard_max", Error: "must be greater than or equal to the recommended size"})
	}
	if flds != nil {
		return core.NewValidationError(errors.New("invalid plan thresholds"), flds...)
	}
	return nil
}

// minThreshold is the smallest section size the planner tries to avoid
// going under when distributing remainders.
func (cfg PlanConfig) minThreshold() int {
	t := cfg.Recommended * 4 / 10
	if t < 10 {
		t = 10
	}
	return t
}

func (s Section) IsDraft() bool { return s.Status == StatusDraft }

// HasRoom reports whether the denormalized count is below capacity.
// The authoritative check lives in Service.HasCapacity.
func (s Section) HasRoom() bool { return s.CurrentEnrollmentCount < s.Capacity }

// CanTransition reports whether the status change is allowed.
func (s Section) CanTransition(status string) bool {
	for _, next := range transitions[s.Status] {
		if next == status {
			return true
		}
	}
	return false
}

func (ns *NewSections) Validate() error {
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.CreatedBy = core.CleanString(ns.CreatedBy)
	return core.Validate.Struct(ns)
}

func (as *AssignStudents) Validate() error {
	as.CourseID = core.CleanString(as.CourseID)
	return core.Validate.Struct(as)
}

func (us *UpdateStatus) Validate() error {
	us.Status = strings.ToUpper(core.CleanString(us.Status))
	return core.Validate.Struct(us)
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.CourseID == "" && qf.CreatedBy == "" && qf.StudentID == "" && qf.Status == "" && qf.IDs == nil
}

func (qf *QueryFilter) Clean() {
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.CreatedBy = core.CleanString(qf.CreatedBy)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Status = strings.ToUpper(core.CleanString(qf.Status))
}
