package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// CreateCourse exists for test fixtures; the course catalog owns courses.
func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	cp := crs
	repo.db.course.table[crs.ID] = &cp
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if crs, ok := repo.db.course.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetNamingMetadata(ctx context.Context, courseID string, exec ...core.DBExecutor) (course.NamingMetadata, error) {
	crs, err := repo.GetCourseByID(ctx, courseID, exec...)
	if err != nil {
		return course.NamingMetadata{}, err
	}
	return course.NamingMetadata{SubjectCode: crs.SubjectCode, CreatedBy: crs.CreatedBy}, nil
}
