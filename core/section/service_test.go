package section_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

type (
	// fixture-creating supersets of the collaborator contracts, as the
	// dummy repositories implement them
	enrollmentFixtureRepo interface {
		enrollment.Repository
		CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error)
	}
	courseFixtureRepo interface {
		course.Repository
		CreateCourse(ctx context.Context, crs course.Course) (course.Course, error)
	}

	testEnv struct {
		db      *dummydb.DB
		svc     *section.Service
		secRepo section.Repository
		enrRepo enrollmentFixtureRepo
		usrRepo user.Repository
		crsRepo courseFixtureRepo
		mails   *mailRecorder
	}
)

type mailRecorder struct {
	sent []*core.EmailMessage
}

var _ core.EmailService = (*mailRecorder)(nil)

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	env := &testEnv{
		db:      db,
		secRepo: dummydb.NewSectionRepository(db),
		enrRepo: dummydb.NewEnrollmentRepository(db),
		usrRepo: dummydb.NewUserRepository(db),
		crsRepo: dummydb.NewCourseRepository(db),
		mails:   &mailRecorder{},
	}
	conf := &core.Config{Class: core.ClassConfig{RecommendedSize: 30, MaxSize: 40}}
	env.svc = section.NewService(
		db, env.secRepo, env.enrRepo, env.usrRepo, env.crsRepo,
		env.mails, testutil.NopLogger{}, conf,
	)
	return env
}

// enrollStudents creates n active students with approved enrollments,
// createdAt strictly increasing so FIFO order is deterministic.
func (env *testEnv) enrollStudents(t *testing.T, courseID string, n int) []user.User {
	t.Helper()

	base := time.Now().UTC().Add(-time.Duration(n) * time.Minute)
	students := make([]user.User, 0, n)
	for i := 0; i < n; i++ {
		student := testutil.CreateUser(t, env.usrRepo, fmt.Sprintf("Student %02d", i+1),
			fmt.Sprintf("student%02d@test.cd", i+1), []string{user.RoleStudent})
		testutil.CreateEnrollment(t, env.enrRepo, student.ID, courseID,
			enrollment.StatusApproved, base.Add(time.Duration(i)*time.Minute))
		students = append(students, student)
	}
	return students
}

func Test_sectionService_CreateSections(t *testing.T) {
	ctx := context.Background()

	t.Run("plans from approved enrollments", func(t *testing.T) {
		env := setup(t)
		crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", "teacher1")
		env.enrollStudents(t, crs.ID, 65)

		secs, err := env.svc.CreateSections(ctx, section.NewSections{CourseID: crs.ID, CreatedBy: "teacher1"})
		require.NoError(t, err)
		require.Len(t, secs, 2)

		assert.Equal(t, "CS101-1", secs[0].Name)
		assert.Equal(t, "CS101-2", secs[1].Name)
		assert.Equal(t, 33, secs[0].Capacity)
		assert.Equal(t, 32, secs[1].Capacity)
		for _, sec := range secs {
			assert.NotEmpty(t, sec.ID)
			assert.Equal(t, crs.ID, sec.CourseID)
			assert.Equal(t, section.StatusDraft, sec.Status)
			assert.Equal(t, 0, sec.CurrentEnrollmentCount)
			assert.Equal(t, "teacher1", sec.CreatedBy)
		}
	})

	t.Run("no students gets one empty placeholder", func(t *testing.T) {
		env := setup(t)
		crs := testutil.CreateCourse(t, env.crsRepo, "Topology", "MATH301", "teacher1")

		secs, err := env.svc.CreateSections(ctx, section.NewSections{CourseID: crs.ID, CreatedBy: "teacher1"})
		require.NoError(t, err)
		require.Len(t, secs, 1)
		assert.Equal(t, "MATH301-1", secs[0].Name)
		assert.Equal(t, 40, secs[0].Capacity) // hard max
		assert.Equal(t, section.StatusDraft, secs[0].Status)
	})

	t.Run("total override skips counting", func(t *testing.T) {
		env := setup(t)
		crs := testutil.CreateCourse(t, env.crsRepo, "Databases", "CS305", "teacher1")
		total := 100

		secs, err := env.svc.CreateSections(ctx, section.NewSections{
			CourseID: crs.ID, CreatedBy: "teacher1", TotalStudents: &total,
		})
		require.NoError(t, err)
		require.Len(t, secs, 3)
		assert.Equal(t, []int{34, 33, 33}, []int{secs[0].Capacity, secs[1].Capacity, secs[2].Capacity})
	})

	t.Run("unknown course", func(t *testing.T) {
		env := setup(t)

		_, err := env.svc.CreateSections(ctx, section.NewSections{CourseID: "nope", CreatedBy: "teacher1"})
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})

	t.Run("second provisioning conflicts with zero inserts", func(t *testing.T) {
		env := setup(t)
		crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", "teacher1")
		env.enrollStudents(t, crs.ID, 65)

		_, err := env.svc.CreateSections(ctx, section.NewSections{CourseID: crs.ID, CreatedBy: "teacher1"})
		require.NoError(t, err)

		_, err = env.svc.CreateSections(ctx, section.NewSections{CourseID: crs.ID, CreatedBy: "teacher1"})
		assert.Equal(t, section.ErrNameTaken, errors.Cause(err))

		secs, err := env.svc.Query(ctx, section.QueryFilter{CourseID: crs.ID})
		require.NoError(t, err)
		assert.Len(t, secs, 2) // only the first batch
	})
}

func Test_sectionService_Assign(t *testing.T) {
	ctx := context.Background()

	// createSections inserts sections with the given capacities directly.
	createSections := func(t *testing.T, env *testEnv, courseID, createdBy string, capacities []int) []string {
		t.Helper()
		now := time.Now().UTC()
		secs := make([]section.Section, len(capacities))
		for i, capacity := range capacities {
			secs[i] = section.Section{
				CourseID: courseID, Name: fmt.Sprintf("CS101-%d", i+1), Capacity: capacity,
				Status: section.StatusDraft, CreatedBy: createdBy, CreatedAt: now, UpdatedAt: now,
			}
		}
		created, err := env.secRepo.CreateSections(ctx, secs)
		require.NoError(t, err)
		ids := make([]string, len(created))
		for i, sec := range created {
			ids[i] = sec.ID
		}
		return ids
	}

	t.Run("FIFO prefix per section", func(t *testing.T) {
		env := setup(t)
		teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
		crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", teacher.ID)
		students := env.enrollStudents(t, crs.ID, 25)
		ids := createSections(t, env, crs.ID, teacher.ID, []int{10, 10, 5})

		secs, err := env.svc.Assign(ctx, section.AssignStudents{CourseID: crs.ID, SectionIDs: ids})
		require.NoError(t, err)
		require.Len(t, secs, 3)

		// denormalized counts reach capacity
		for i, want := range []int{10, 10, 5} {
			assert.Equal(t, want, secs[i].CurrentEnrollmentCount)
		}

		// enrollments 1-10 -> section 1, 11-20 -> section 2, 21-25 -> section 3
		enrs, err := env.enrRepo.ListApproved(ctx, crs.ID)
		require.NoError(t, err)
		require.Len(t, enrs, 25)
		for i, enr := range enrs {
			wantSec := ids[0]
			switch {
			case i >= 20:
				wantSec = ids[2]
			case i >= 10:
				wantSec = ids[1]
			}
			require.True(t, enr.SectionID.Valid, "enrollment %d has no section", i)
			assert.Equal(t, wantSec, enr.SectionID.String, "enrollment %d", i)
		}

		// each student's membership set holds exactly the assigned section
		for i, student := range students {
			usr, err := env.usrRepo.GetUserByID(ctx, student.ID)
			require.NoError(t, err)
			require.Len(t, usr.SectionIDs, 1, "student %d", i)
		}

		// completion notice went to the creator
		require.Len(t, env.mails.sent, 1)
		assert.Equal(t, teacher.Email, env.mails.sent[0].To[0].Address)
	})

	t.Run("rerun does not duplicate memberships", func(t *testing.T) {
		env := setup(t)
		teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
		crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", teacher.ID)
		students := env.enrollStudents(t, crs.ID, 25)
		ids := createSections(t, env, crs.ID, teacher.ID, []int{10, 10, 5})

		_, err := env.svc.Assign(ctx, section.AssignStudents{CourseID: crs.ID, SectionIDs: ids})
		require.NoError(t, err)
		_, err = env.svc.Assign(ctx, section.AssignStudents{CourseID: crs.ID, SectionIDs: ids})
		require.NoError(t, err)

		for _, student := range students {
			usr, err := env.usrRepo.GetUserByID(ctx, student.ID)
			require.NoError(t, err)
			assert.Len(t, usr.SectionIDs, 1)
		}
	})

	t.Run("skips enrollments missing a student", func(t *testing.T) {
		env := setup(t)
		teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
		crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", teacher.ID)
		env.enrollStudents(t, crs.ID, 15)
		// corrupt record, first in FIFO order
		testutil.CreateEnrollment(t, env.enrRepo, "", crs.ID, enrollment.StatusApproved,
			time.Now().UTC().Add(-24*time.Hour))
		ids := createSections(t, env, crs.ID, teacher.ID, []int{10, 5})

		secs, err := env.svc.Assign(ctx, section.AssignStudents{CourseID: crs.ID, SectionIDs: ids})
		require.NoError(t, err)
		assert.Equal(t, 10, secs[0].CurrentEnrollmentCount)
		assert.Equal(t, 5, secs[1].CurrentEnrollmentCount)
	})

	t.Run("rejects capacity drift", func(t *testing.T) {
		env := setup(t)
		teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
		crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", teacher.ID)
		env.enrollStudents(t, crs.ID, 20) // 5 fewer than the 25 seats
		ids := createSections(t, env, crs.ID, teacher.ID, []int{10, 10, 5})

		_, err := env.svc.Assign(ctx, section.AssignStudents{CourseID: crs.ID, SectionIDs: ids})
		assert.Equal(t, section.ErrEnrollmentCountMismatch, errors.Cause(err))

		// nothing was written
		enrs, err := env.enrRepo.ListApproved(ctx, crs.ID)
		require.NoError(t, err)
		for _, enr := range enrs {
			assert.False(t, enr.SectionID.Valid)
		}
	})

	t.Run("unknown section", func(t *testing.T) {
		env := setup(t)
		crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", "teacher1")

		_, err := env.svc.Assign(ctx, section.AssignStudents{CourseID: crs.ID, SectionIDs: []string{"nope"}})
		assert.Equal(t, section.ErrNotFound, errors.Cause(err))
	})

	t.Run("section from another course", func(t *testing.T) {
		env := setup(t)
		teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
		crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", teacher.ID)
		other := testutil.CreateCourse(t, env.crsRepo, "Compilers", "CS401", teacher.ID)
		ids := createSections(t, env, other.ID, teacher.ID, []int{10})

		_, err := env.svc.Assign(ctx, section.AssignStudents{CourseID: crs.ID, SectionIDs: ids})
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr), "want ValidationError, got %v", err)
	})

	t.Run("membership write failure rolls everything back", func(t *testing.T) {
		env := setup(t)
		teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
		crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", teacher.ID)
		students := env.enrollStudents(t, crs.ID, 25)
		ids := createSections(t, env, crs.ID, teacher.ID, []int{10, 10, 5})

		boom := errors.New("storage exploded")
		env.db.FailNextBulkAddSections(boom)

		_, err := env.svc.Assign(ctx, section.AssignStudents{CourseID: crs.ID, SectionIDs: ids})
		require.Error(t, err)
		assert.Equal(t, boom, errors.Cause(err))

		// the enrollment batch had already been applied inside the
		// transaction; after rollback neither store shows any change
		enrs, err := env.enrRepo.ListApproved(ctx, crs.ID)
		require.NoError(t, err)
		for _, enr := range enrs {
			assert.False(t, enr.SectionID.Valid)
		}
		for _, student := range students {
			usr, err := env.usrRepo.GetUserByID(ctx, student.ID)
			require.NoError(t, err)
			assert.Empty(t, usr.SectionIDs)
		}
		secs, err := env.secRepo.GetSectionsByIDs(ctx, ids)
		require.NoError(t, err)
		for _, sec := range secs {
			assert.Equal(t, 0, sec.CurrentEnrollmentCount)
		}
		assert.Empty(t, env.mails.sent)
	})
}

func Test_sectionService_capacityQueries(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher@test.cd", []string{user.RoleTeacher})
	crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", teacher.ID)
	env.enrollStudents(t, crs.ID, 5)

	now := time.Now().UTC()
	created, err := env.secRepo.CreateSections(ctx, []section.Section{{
		CourseID: crs.ID, Name: "CS101-1", Capacity: 5,
		Status: section.StatusDraft, CreatedBy: teacher.ID, CreatedAt: now, UpdatedAt: now,
	}})
	require.NoError(t, err)
	secID := created[0].ID

	ok, err := env.svc.HasCapacity(ctx, secID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = env.svc.Assign(ctx, section.AssignStudents{CourseID: crs.ID, SectionIDs: []string{secID}})
	require.NoError(t, err)

	ok, err = env.svc.HasCapacity(ctx, secID)
	require.NoError(t, err)
	assert.False(t, ok)

	// drift the denormalized count, then repair it
	_, err = env.secRepo.UpdateSectionCount(ctx, secID, 99)
	require.NoError(t, err)
	sec, err := env.svc.SyncCount(ctx, secID)
	require.NoError(t, err)
	assert.Equal(t, 5, sec.CurrentEnrollmentCount)

	_, err = env.svc.HasCapacity(ctx, "nope")
	assert.Equal(t, section.ErrNotFound, errors.Cause(err))
}

func Test_sectionService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{name: "draft to active", from: section.StatusDraft, to: section.StatusActive},
		{name: "active to completed", from: section.StatusActive, to: section.StatusCompleted},
		{name: "draft to cancelled", from: section.StatusDraft, to: section.StatusCancelled},
		{name: "active to cancelled", from: section.StatusActive, to: section.StatusCancelled},
		{name: "draft to completed", from: section.StatusDraft, to: section.StatusCompleted, wantErr: section.ErrInvalidTransition},
		{name: "completed to active", from: section.StatusCompleted, to: section.StatusActive, wantErr: section.ErrInvalidTransition},
		{name: "cancelled to active", from: section.StatusCancelled, to: section.StatusActive, wantErr: section.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			crs := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", "teacher1")
			now := time.Now().UTC()
			created, err := env.secRepo.CreateSections(ctx, []section.Section{{
				CourseID: crs.ID, Name: "CS101-1", Capacity: 40,
				Status: tt.from, CreatedBy: "teacher1", CreatedAt: now, UpdatedAt: now,
			}})
			require.NoError(t, err)

			sec, err := env.svc.UpdateStatus(ctx, created[0].ID, tt.to)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, sec.Status)
		})
	}
}

func Test_sectionService_Query(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	teacher1 := testutil.CreateUser(t, env.usrRepo, "Teacher One", "t1@test.cd", []string{user.RoleTeacher})
	teacher2 := testutil.CreateUser(t, env.usrRepo, "Teacher Two", "t2@test.cd", []string{user.RoleTeacher})
	crs1 := testutil.CreateCourse(t, env.crsRepo, "Algorithms", "CS101", teacher1.ID)
	crs2 := testutil.CreateCourse(t, env.crsRepo, "Compilers", "CS401", teacher2.ID)

	now := time.Now().UTC()
	mkSec := func(courseID, name, createdBy string) section.Section {
		return section.Section{
			CourseID: courseID, Name: name, Capacity: 40,
			Status: section.StatusDraft, CreatedBy: createdBy, CreatedAt: now, UpdatedAt: now,
		}
	}
	created, err := env.secRepo.CreateSections(ctx, []section.Section{
		mkSec(crs1.ID, "CS101-1", teacher1.ID),
		mkSec(crs1.ID, "CS101-2", teacher1.ID),
		mkSec(crs2.ID, "CS401-1", teacher2.ID),
	})
	require.NoError(t, err)

	byCourse, err := env.svc.Query(ctx, section.QueryFilter{CourseID: crs1.ID})
	require.NoError(t, err)
	require.Len(t, byCourse, 2)
	assert.Equal(t, "CS101-1", byCourse[0].Name) // name ascending by default
	assert.Equal(t, "CS101-2", byCourse[1].Name)

	byTeacher, err := env.svc.Query(ctx, section.QueryFilter{CreatedBy: teacher2.ID})
	require.NoError(t, err)
	require.Len(t, byTeacher, 1)
	assert.Equal(t, "CS401-1", byTeacher[0].Name)

	// student membership filter
	student := testutil.CreateUser(t, env.usrRepo, "Student", "s@test.cd", []string{user.RoleStudent})
	err = env.usrRepo.BulkAddSections(ctx, []user.SectionGrant{{UserID: student.ID, SectionID: created[1].ID}})
	require.NoError(t, err)

	byStudent, err := env.svc.Query(ctx, section.QueryFilter{StudentID: student.ID})
	require.NoError(t, err)
	require.Len(t, byStudent, 1)
	assert.Equal(t, "CS101-2", byStudent[0].Name)

	// student with no memberships
	loner := testutil.CreateUser(t, env.usrRepo, "Loner", "l@test.cd", []string{user.RoleStudent})
	none, err := env.svc.Query(ctx, section.QueryFilter{StudentID: loner.ID})
	require.NoError(t, err)
	assert.Empty(t, none)
}
