package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) GetUserByID(_ context.Context, id string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	if usr, ok := repo.db.user.table[id]; ok {
		cp := *usr
		cp.SectionIDs = append([]string(nil), usr.SectionIDs...)
		return cp, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	cp := usr
	repo.db.user.table[usr.ID] = &cp
	return usr, nil
}

func (repo *userRepository) BulkAddSections(_ context.Context, grants []user.SectionGrant, _ ...core.DBExecutor) error {
	if err := repo.db.takeBulkAddSectionsFailure(); err != nil {
		return err
	}

	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	for _, grant := range grants {
		usr, ok := repo.db.user.table[grant.UserID]
		if !ok {
			return user.ErrNotFound
		}
		if !usr.MemberOf(grant.SectionID) {
			usr.SectionIDs = append(usr.SectionIDs, grant.SectionID)
		}
	}
	return nil
}
