package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

// CreateEnrollment exists for test fixtures; production enrollments come
// from the enrollment workflow.
func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	if enr.ID == "" {
		enr.ID = uuid.New().String()
	}
	cp := enr
	repo.db.enrollment.table[enr.ID] = &cp
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	if enr, ok := repo.db.enrollment.table[id]; ok {
		return *enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) ListApproved(_ context.Context, courseID string, _ ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollment.table {
		if enr.CourseID == courseID && enr.Status == enrollment.StatusApproved {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool {
		if enrs[i].CreatedAt.Equal(enrs[j].CreatedAt) {
			return enrs[i].ID < enrs[j].ID
		}
		return enrs[i].CreatedAt.Before(enrs[j].CreatedAt)
	})
	return enrs, nil
}

func (repo *enrollmentRepository) CountApproved(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error) {
	enrs, err := repo.ListApproved(ctx, courseID, exec...)
	if err != nil {
		return 0, err
	}
	return len(enrs), nil
}

func (repo *enrollmentRepository) CountBySection(_ context.Context, sectionID string, _ ...core.DBExecutor) (int, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	var count int
	for _, enr := range repo.db.enrollment.table {
		if enr.Status == enrollment.StatusApproved && enr.SectionID.String == sectionID && enr.SectionID.Valid {
			count++
		}
	}
	return count, nil
}

func (repo *enrollmentRepository) BulkSetSection(_ context.Context, updates []enrollment.SectionUpdate, _ ...core.DBExecutor) error {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	for _, upd := range updates {
		enr, ok := repo.db.enrollment.table[upd.EnrollmentID]
		if !ok {
			return enrollment.ErrNotFound
		}
		enr.SectionID = null.StringFrom(upd.SectionID)
	}
	return nil
}
