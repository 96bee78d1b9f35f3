package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

type enrollmentRow struct {
	ID        string      `db:"id"`
	StudentID null.String `db:"student_id"`
	CourseID  string      `db:"course_id"`
	SectionID null.String `db:"section_id"`
	Status    string      `db:"status"`
	CreatedAt time.Time   `db:"created_at"`
}

func (r enrollmentRow) unrow() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:        r.ID,
		StudentID: r.StudentID.String,
		CourseID:  r.CourseID,
		SectionID: r.SectionID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func (repo enrollmentRepository) ListApproved(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	e := getExec(repo.db, exec)

	const q = `
		SELECT id, student_id, course_id, section_id, status, created_at
		FROM enrollment
		WHERE course_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC`
	var rows []enrollmentRow
	if err := sqlx.SelectContext(ctx, e, &rows, q, courseID, enrollment.StatusApproved); err != nil {
		return nil, errors.Wrap(err, "listing approved enrollments")
	}

	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.unrow())
	}
	return enrs, nil
}

func (repo enrollmentRepository) CountApproved(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error) {
	e := getExec(repo.db, exec)

	var count int
	const q = "SELECT COUNT(*) FROM enrollment WHERE course_id = $1 AND status = $2"
	if err := sqlx.GetContext(ctx, e, &count, q, courseID, enrollment.StatusApproved); err != nil {
		return 0, errors.Wrap(err, "counting approved enrollments")
	}
	return count, nil
}

func (repo enrollmentRepository) CountBySection(ctx context.Context, sectionID string, exec ...core.DBExecutor) (int, error) {
	e := getExec(repo.db, exec)

	var count int
	const q = "SELECT COUNT(*) FROM enrollment WHERE section_id = $1 AND status = $2"
	if err := sqlx.GetContext(ctx, e, &count, q, sectionID, enrollment.StatusApproved); err != nil {
		return 0, errors.Wrap(err, "counting section enrollments")
	}
	return count, nil
}

// BulkSetSection applies updates one by one; run it inside an enclosing
// transaction when the batch must be all-or-nothing.
func (repo enrollmentRepository) BulkSetSection(ctx context.Context, updates []enrollment.SectionUpdate, exec ...core.DBExecutor) error {
	e := getExec(repo.db, exec)

	const q = "UPDATE enrollment SET section_id = $2 WHERE id = $1"
	for _, upd := range updates {
		res, err := e.ExecContext(ctx, q, upd.EnrollmentID, upd.SectionID)
		if err != nil {
			return errors.Wrapf(err, "setting section on enrollment %s", upd.EnrollmentID)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errors.Wrapf(enrollment.ErrNotFound, "enrollment %s", upd.EnrollmentID)
		}
	}
	return nil
}
