package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

var ErrNotFound = errors.New("user not found")

// Roles
const (
	RoleAdmin   = "admin:"
	RoleTeacher = "teacher:"
	RoleStudent = "student:"
)

type (
	// User is the platform account record. This service reads it and
	// maintains SectionIDs, the student's section-membership projection.
	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		IsActive     bool      `json:"is_active"`
		Roles        []string  `json:"roles"`
		SectionIDs   []string  `json:"section_ids"`
		PasswordHash []byte    `json:"-"`
		CreatedAt    time.Time `json:"created_at"` // UTC
		UpdatedAt    time.Time `json:"updated_at"` // UTC
	}

	// SectionGrant adds one section to one student's membership set.
	SectionGrant struct {
		UserID    string
		SectionID string
	}

	Repository interface {
		GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// BulkAddSections unions each grant's section into the user's
		// membership set. Re-applying a grant never duplicates an entry.
		BulkAddSections(ctx context.Context, grants []SectionGrant, exec ...core.DBExecutor) error
	}
)

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.RoleStartsWith(RoleAdmin) }
func (u *User) IsTeacher() bool { return u.RoleStartsWith(RoleTeacher) }
func (u *User) IsStudent() bool { return u.RoleStartsWith(RoleStudent) }

// MemberOf reports whether the section is in the user's membership set.
func (u *User) MemberOf(sectionID string) bool {
	for _, id := range u.SectionIDs {
		if id == sectionID {
			return true
		}
	}
	return false
}
