package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
)

type sectionRepository struct {
	db *sqlx.DB
}

var _ section.Repository = (*sectionRepository)(nil) // interface compliance check

func NewSectionRepository(db *sqlx.DB) *sectionRepository {
	return &sectionRepository{db: db}
}

type sectionRow struct {
	ID                     string      `db:"id"`
	CourseID               string      `db:"course_id"`
	Name                   string      `db:"name"`
	Capacity               int         `db:"capacity"`
	CurrentEnrollmentCount int         `db:"current_enrollment_count"`
	Status                 string      `db:"status"`
	CreatedBy              null.String `db:"created_by"`
	CreatedAt              time.Time   `db:"created_at"`
	UpdatedAt              time.Time   `db:"updated_at"`
}

func (r sectionRow) unrow() section.Section {
	return section.Section{
		ID:                     r.ID,
		CourseID:               r.CourseID,
		Name:                   r.Name,
		Capacity:               r.Capacity,
		CurrentEnrollmentCount: r.CurrentEnrollmentCount,
		Status:                 r.Status,
		CreatedBy:              r.CreatedBy.String,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

const sectionColumns = "id, course_id, name, capacity, current_enrollment_count, status, created_by, created_at, updated_at"

// trapNoRowsErr maps psql "no rows" err to section.ErrNotFound
func (repo sectionRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return section.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo sectionRepository) CreateSections(ctx context.Context, secs []section.Section, exec ...core.DBExecutor) ([]section.Section, error) {
	e := getExec(repo.db, exec)

	const q = `
		INSERT INTO section (id, course_id, name, capacity, current_enrollment_count, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	created := make([]section.Section, 0, len(secs))
	for _, sec := range secs {
		sec.ID = uuid.New().String()
		_, err := e.ExecContext(ctx, q,
			sec.ID, sec.CourseID, sec.Name, sec.Capacity, sec.CurrentEnrollmentCount,
			sec.Status, null.NewString(sec.CreatedBy, sec.CreatedBy != ""), sec.CreatedAt, sec.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, errors.Wrapf(section.ErrNameTaken, "section %q", sec.Name)
			}
			return nil, errors.Wrap(err, "inserting section")
		}
		created = append(created, sec)
	}
	return created, nil
}

func (repo sectionRepository) GetSectionByID(ctx context.Context, id string, exec ...core.DBExecutor) (section.Section, error) {
	e := getExec(repo.db, exec)

	if _, err := uuid.Parse(id); err != nil {
		return section.Section{}, section.ErrNotFound
	}
	var row sectionRow
	q := fmt.Sprintf("SELECT %s FROM section WHERE id = $1", sectionColumns)
	if err := sqlx.GetContext(ctx, e, &row, q, id); err != nil {
		return section.Section{}, repo.trapNoRowsErr(err, "finding section by ID")
	}
	return row.unrow(), nil
}

func (repo sectionRepository) GetSectionsByIDs(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]section.Section, error) {
	if len(ids) == 0 {
		return []section.Section{}, nil
	}
	e := getExec(repo.db, exec)

	q, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM section WHERE id IN (?)", sectionColumns), ids)
	if err != nil {
		return nil, errors.Wrap(err, "building section query")
	}
	var rows []sectionRow
	if err = sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "finding sections by IDs")
	}

	// preserve the caller's ordering
	byID := make(map[string]section.Section, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.unrow()
	}
	secs := make([]section.Section, 0, len(rows))
	for _, id := range ids {
		if sec, ok := byID[id]; ok {
			secs = append(secs, sec)
		}
	}
	return secs, nil
}

func (repo sectionRepository) CountNameMatches(ctx context.Context, courseID, prefix string, exec ...core.DBExecutor) (int, error) {
	e := getExec(repo.db, exec)

	var count int
	const q = "SELECT COUNT(*) FROM section WHERE course_id = $1 AND name LIKE $2"
	if err := sqlx.GetContext(ctx, e, &count, q, courseID, likePrefix(prefix)); err != nil {
		return 0, errors.Wrap(err, "counting section name matches")
	}
	return count, nil
}

func (repo sectionRepository) NameExists(ctx context.Context, courseID, name string, exec ...core.DBExecutor) (bool, error) {
	e := getExec(repo.db, exec)

	var exists bool
	const q = "SELECT EXISTS (SELECT 1 FROM section WHERE course_id = $1 AND name = $2)"
	if err := sqlx.GetContext(ctx, e, &exists, q, courseID, name); err != nil {
		return false, errors.Wrap(err, "checking section name")
	}
	return exists, nil
}

func (repo sectionRepository) UpdateSectionCount(ctx context.Context, id string, count int, exec ...core.DBExecutor) (section.Section, error) {
	e := getExec(repo.db, exec)

	var row sectionRow
	q := fmt.Sprintf(`
		UPDATE section SET current_enrollment_count = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s`, sectionColumns)
	if err := sqlx.GetContext(ctx, e, &row, q, id, count); err != nil {
		return section.Section{}, repo.trapNoRowsErr(err, "updating section count")
	}
	return row.unrow(), nil
}

func (repo sectionRepository) UpdateSectionStatus(ctx context.Context, id, status string, exec ...core.DBExecutor) (section.Section, error) {
	e := getExec(repo.db, exec)

	var row sectionRow
	q := fmt.Sprintf(`
		UPDATE section SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s`, sectionColumns)
	if err := sqlx.GetContext(ctx, e, &row, q, id, status); err != nil {
		return section.Section{}, repo.trapNoRowsErr(err, "updating section status")
	}
	return row.unrow(), nil
}

func (repo sectionRepository) QuerySections(ctx context.Context, filter section.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]section.Section, error) {
	e := getExec(repo.db, exec)

	var conds []string
	var args []interface{}
	if filter.CourseID != "" {
		conds = append(conds, "course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.CreatedBy != "" {
		conds = append(conds, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.IDs != nil {
		conds = append(conds, "id IN (?)")
		args = append(args, filter.IDs)
	}

	q := fmt.Sprintf("SELECT %s FROM section", sectionColumns)
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	}

	q, inArgs, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building section query")
	}
	var rows []sectionRow
	if err = sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), inArgs...); err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}

	secs := make([]section.Section, 0, len(rows))
	for _, row := range rows {
		secs = append(secs, row.unrow())
	}
	return secs, nil
}

// likePrefix escapes LIKE wildcards in prefix and anchors it at the start.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
