package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		txMu sync.Mutex // serializes transactions

		section    *sectionTable
		enrollment *enrollmentTable
		user       *userTable
		course     *courseTable

		// failure injection for transaction tests
		failMu              sync.Mutex
		failBulkAddSections error
	}

	sectionTable struct {
		sync.RWMutex
		table map[string]*section.Section
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*enrollment.Enrollment
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}
)

var _ core.Atomizer = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		section:    &sectionTable{table: make(map[string]*section.Section)},
		enrollment: &enrollmentTable{table: make(map[string]*enrollment.Enrollment)},
		user:       &userTable{table: make(map[string]*user.User)},
		course:     &courseTable{table: make(map[string]*course.Course)},
	}
	return db, nil
}

// Atomic snapshots every table, runs fn and restores the snapshots if fn
// fails. It gives tests the same all-or-nothing semantics a sql.Tx provides.
func (db *DB) Atomic(ctx context.Context, fn func(tx core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	secSnap := db.snapshotSections()
	enrSnap := db.snapshotEnrollments()
	usrSnap := db.snapshotUsers()

	if err := fn(nil); err != nil {
		db.restoreSections(secSnap)
		db.restoreEnrollments(enrSnap)
		db.restoreUsers(usrSnap)
		return err
	}
	return nil
}

// FailNextBulkAddSections makes the next membership batch write fail with
// err, after which writes succeed again.
func (db *DB) FailNextBulkAddSections(err error) {
	db.failMu.Lock()
	db.failBulkAddSections = err
	db.failMu.Unlock()
}

func (db *DB) takeBulkAddSectionsFailure() error {
	db.failMu.Lock()
	defer db.failMu.Unlock()
	err := db.failBulkAddSections
	db.failBulkAddSections = nil
	return err
}

func (db *DB) snapshotSections() map[string]*section.Section {
	db.section.RLock()
	defer db.section.RUnlock()
	snap := make(map[string]*section.Section, len(db.section.table))
	for id, sec := range db.section.table {
		cp := *sec
		snap[id] = &cp
	}
	return snap
}

func (db *DB) restoreSections(snap map[string]*section.Section) {
	db.section.Lock()
	db.section.table = snap
	db.section.Unlock()
}

func (db *DB) snapshotEnrollments() map[string]*enrollment.Enrollment {
	db.enrollment.RLock()
	defer db.enrollment.RUnlock()
	snap := make(map[string]*enrollment.Enrollment, len(db.enrollment.table))
	for id, enr := range db.enrollment.table {
		cp := *enr
		snap[id] = &cp
	}
	return snap
}

func (db *DB) restoreEnrollments(snap map[string]*enrollment.Enrollment) {
	db.enrollment.Lock()
	db.enrollment.table = snap
	db.enrollment.Unlock()
}

func (db *DB) snapshotUsers() map[string]*user.User {
	db.user.RLock()
	defer db.user.RUnlock()
	snap := make(map[string]*user.User, len(db.user.table))
	for id, usr := range db.user.table {
		cp := *usr
		cp.SectionIDs = append([]string(nil), usr.SectionIDs...)
		cp.Roles = append([]string(nil), usr.Roles...)
		snap[id] = &cp
	}
	return snap
}

func (db *DB) restoreUsers(snap map[string]*user.User) {
	db.user.Lock()
	db.user.table = snap
	db.user.Unlock()
}
