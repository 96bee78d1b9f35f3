package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
)

type sectionRepository struct {
	db *DB
}

var _ section.Repository = (*sectionRepository)(nil) // interface compliance check

func NewSectionRepository(db *DB) *sectionRepository {
	return &sectionRepository{db: db}
}

func (repo *sectionRepository) CreateSections(_ context.Context, secs []section.Section, _ ...core.DBExecutor) ([]section.Section, error) {
	repo.db.section.Lock()
	defer repo.db.section.Unlock()

	created := make([]section.Section, 0, len(secs))
	for _, sec := range secs {
		for _, existing := range repo.db.section.table {
			if existing.CourseID == sec.CourseID && existing.Name == sec.Name {
				return nil, section.ErrNameTaken
			}
		}
		sec.ID = uuid.New().String()
		cp := sec
		repo.db.section.table[sec.ID] = &cp
		created = append(created, sec)
	}
	return created, nil
}

func (repo *sectionRepository) GetSectionByID(_ context.Context, id string, _ ...core.DBExecutor) (section.Section, error) {
	repo.db.section.RLock()
	defer repo.db.section.RUnlock()

	if sec, ok := repo.db.section.table[id]; ok {
		return *sec, nil
	}
	return section.Section{}, section.ErrNotFound
}

func (repo *sectionRepository) GetSectionsByIDs(_ context.Context, ids []string, _ ...core.DBExecutor) ([]section.Section, error) {
	repo.db.section.RLock()
	defer repo.db.section.RUnlock()

	secs := make([]section.Section, 0, len(ids))
	for _, id := range ids {
		if sec, ok := repo.db.section.table[id]; ok {
			secs = append(secs, *sec)
		}
	}
	return secs, nil
}

func (repo *sectionRepository) CountNameMatches(_ context.Context, courseID, prefix string, _ ...core.DBExecutor) (int, error) {
	repo.db.section.RLock()
	defer repo.db.section.RUnlock()

	var count int
	for _, sec := range repo.db.section.table {
		if sec.CourseID == courseID && strings.HasPrefix(sec.Name, prefix) {
			count++
		}
	}
	return count, nil
}

func (repo *sectionRepository) NameExists(_ context.Context, courseID, name string, _ ...core.DBExecutor) (bool, error) {
	repo.db.section.RLock()
	defer repo.db.section.RUnlock()

	for _, sec := range repo.db.section.table {
		if sec.CourseID == courseID && sec.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (repo *sectionRepository) UpdateSectionCount(_ context.Context, id string, count int, _ ...core.DBExecutor) (section.Section, error) {
	repo.db.section.Lock()
	defer repo.db.section.Unlock()

	sec, ok := repo.db.section.table[id]
	if !ok {
		return section.Section{}, section.ErrNotFound
	}
	sec.CurrentEnrollmentCount = count
	sec.UpdatedAt = time.Now().UTC()
	return *sec, nil
}

func (repo *sectionRepository) UpdateSectionStatus(_ context.Context, id, status string, _ ...core.DBExecutor) (section.Section, error) {
	repo.db.section.Lock()
	defer repo.db.section.Unlock()

	sec, ok := repo.db.section.table[id]
	if !ok {
		return section.Section{}, section.ErrNotFound
	}
	sec.Status = status
	sec.UpdatedAt = time.Now().UTC()
	return *sec, nil
}

func (repo *sectionRepository) QuerySections(_ context.Context, filter section.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]section.Section, error) {
	repo.db.section.RLock()
	defer repo.db.section.RUnlock()

	secs := make([]section.Section, 0, len(repo.db.section.table))
	for _, sec := range repo.db.section.table {
		if filter.CourseID != "" && sec.CourseID != filter.CourseID {
			continue
		}
		if filter.CreatedBy != "" && sec.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Status != "" && sec.Status != filter.Status {
			continue
		}
		if filter.IDs != nil && !containsString(filter.IDs, sec.ID) {
			continue
		}
		secs = append(secs, *sec)
	}

	sort.Slice(secs, func(i, j int) bool { return secs[i].Name < secs[j].Name })
	for _, ord := range ordering {
		if ord.Field == "name" && !ord.Ascending {
			sort.Slice(secs, func(i, j int) bool { return secs[i].Name > secs[j].Name })
		}
	}
	return secs, nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
