package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
)

var ErrNotFound = errors.New("course not found")

type (
	// Course is owned by the course catalog; this service only ever reads it.
	Course struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		SubjectCode string    `json:"subject_code"`
		CreatedBy   string    `json:"created_by"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	// NamingMetadata is what section naming needs from the catalog.
	NamingMetadata struct {
		SubjectCode string
		CreatedBy   string
	}

	Repository interface {
		GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		GetNamingMetadata(ctx context.Context, courseID string, exec ...core.DBExecutor) (NamingMetadata, error)
	}
)
