package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	e := getExec(repo.db, exec)

	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var crs course.Course
	const q = `
		SELECT id, title, subject_code AS subjectcode, created_by AS createdby, created_at AS createdat
		FROM course WHERE id = $1`
	if err := sqlx.GetContext(ctx, e, &crs, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course by ID")
	}
	return crs, nil
}

func (repo courseRepository) GetNamingMetadata(ctx context.Context, courseID string, exec ...core.DBExecutor) (course.NamingMetadata, error) {
	e := getExec(repo.db, exec)

	if _, err := uuid.Parse(courseID); err != nil {
		return course.NamingMetadata{}, course.ErrNotFound
	}
	var meta course.NamingMetadata
	const q = `SELECT subject_code AS subjectcode, created_by AS createdby FROM course WHERE id = $1`
	if err := sqlx.GetContext(ctx, e, &meta, q, courseID); err != nil {
		if err == sql.ErrNoRows {
			return course.NamingMetadata{}, course.ErrNotFound
		}
		return course.NamingMetadata{}, errors.Wrap(err, "finding course naming metadata")
	}
	return meta, nil
}
