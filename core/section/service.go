package section

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
)

type Service struct {
	db      core.Atomizer
	repo    Repository
	enrRepo enrollment.Repository
	usrRepo user.Repository
	crsRepo course.Repository
	mailSvc core.EmailService
	logger  core.Logger
	plan    PlanConfig
}

func NewService(
	db core.Atomizer,
	repo Repository,
	enrRepo enrollment.Repository,
	usrRepo user.Repository,
	crsRepo course.Repository,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		enrRepo: enrRepo,
		usrRepo: usrRepo,
		crsRepo: crsRepo,
		mailSvc: mailSvc,
		logger:  logger,
		plan: PlanConfig{
			Recommended: conf.Class.RecommendedSize,
			HardMax:     conf.Class.MaxSize,
		},
	}
}

// CreateSections partitions the course's approved enrollees into sections
// per the capacity plan and persists them in one all-or-nothing batch.
// ns.TotalStudents, when set, overrides the eligible-enrollment count.
//
// A course with no eligible enrollees gets a single empty placeholder
// section sized at the hard ceiling.
func (svc *Service) CreateSections(ctx context.Context, ns NewSections) ([]Section, error) {
	meta, err := svc.crsRepo.GetNamingMetadata(ctx, ns.CourseID)
	if err != nil {
		return nil, err
	}

	var total int
	if ns.TotalStudents != nil {
		total = *ns.TotalStudents
	} else {
		if total, err = svc.enrRepo.CountApproved(ctx, ns.CourseID); err != nil {
			return nil, err
		}
	}

	capacities, err := PlanSizes(total, svc.plan)
	if err != nil {
		return nil, err
	}
	if len(capacities) == 0 {
		capacities = []int{svc.plan.HardMax} // empty placeholder
	}

	// section names are 1-based per course pattern and provisioning is
	// one-shot: anything already matching the pattern is a collision.
	// fail before any write; the store's unique index backs this up under
	// concurrent provisioning
	prefix := meta.SubjectCode + "-"
	existing, err := svc.repo.CountNameMatches(ctx, ns.CourseID, prefix)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, errors.Wrapf(ErrNameTaken, "%d sections matching %q*", existing, prefix)
	}
	names := make([]string, len(capacities))
	for i := range capacities {
		names[i] = prefix + strconv.Itoa(i+1)
		taken, err := svc.repo.NameExists(ctx, ns.CourseID, names[i])
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errors.Wrapf(ErrNameTaken, "section %q", names[i])
		}
	}

	now := time.Now().UTC()
	secs := make([]Section, len(capacities))
	for i, capacity := range capacities {
		secs[i] = Section{
			CourseID:  ns.CourseID,
			Name:      names[i],
			Capacity:  capacity,
			Status:    StatusDraft,
			CreatedBy: ns.CreatedBy,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	var created []Section
	err = svc.db.Atomic(ctx, func(tx core.DBExecutor) error {
		created, err = svc.repo.CreateSections(ctx, secs, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Assign distributes the course's approved enrollments into the given
// sections, earliest approved first, each section taking exactly its
// capacity. Enrollment updates, membership grants and section counts are
// committed in a single transaction; any failure leaves all three stores
// untouched.
func (svc *Service) Assign(ctx context.Context, as AssignStudents) ([]Section, error) {
	secs, err := svc.repo.GetSectionsByIDs(ctx, as.SectionIDs)
	if err != nil {
		return nil, err
	}
	if len(secs) != len(as.SectionIDs) {
		return nil, errors.Wrapf(ErrNotFound, "%d of %d sections found", len(secs), len(as.SectionIDs))
	}
	var totalCapacity int
	for _, sec := range secs {
		if sec.CourseID != as.CourseID {
			return nil, core.NewValidationError(
				errors.Errorf("section %s belongs to another course", sec.ID),
				core.FieldError{Field: "section_ids", Error: "all sections must belong to the course"},
			)
		}
		if !sec.IsDraft() {
			svc.logger.Warn(fmt.Sprintf("assigning into non-draft section %s (%s)", sec.Name, sec.Status))
		}
		totalCapacity += sec.Capacity
	}

	queue, err := svc.enrRepo.ListApproved(ctx, as.CourseID)
	if err != nil {
		return nil, err
	}
	eligible := 0
	for _, enr := range queue {
		if enr.StudentID != "" {
			eligible++
		}
	}
	// capacities are sized to the eligible count at provisioning time; any
	// drift since then is rejected before a single write is staged
	if eligible != totalCapacity {
		return nil, errors.Wrapf(ErrEnrollmentCountMismatch, "%d eligible, %d seats", eligible, totalCapacity)
	}

	// fold the FIFO queue over the sections, consuming a prefix per section
	updates := make([]enrollment.SectionUpdate, 0, eligible)
	grants := make([]user.SectionGrant, 0, eligible)
	consumed := 0
	for _, sec := range secs {
		need := sec.Capacity
		for need > 0 && len(queue) > 0 {
			enr := queue[0]
			queue = queue[1:]
			if enr.StudentID == "" {
				// corrupt record: advance past it without consuming a seat
				svc.logger.Warn(fmt.Sprintf("enrollment %s has no student, skipping", enr.ID))
				continue
			}
			updates = append(updates, enrollment.SectionUpdate{EnrollmentID: enr.ID, SectionID: sec.ID})
			grants = append(grants, user.SectionGrant{UserID: enr.StudentID, SectionID: sec.ID})
			consumed++
			need--
		}
	}
	if consumed != totalCapacity {
		return nil, errors.Wrapf(ErrPlanInvariant, "consumed %d of %d seats", consumed, totalCapacity)
	}

	err = svc.db.Atomic(ctx, func(tx core.DBExecutor) error {
		if err := svc.enrRepo.BulkSetSection(ctx, updates, tx); err != nil {
			return errors.Wrap(err, "setting enrollment sections")
		}
		if err := svc.usrRepo.BulkAddSections(ctx, grants, tx); err != nil {
			return errors.Wrap(err, "granting section memberships")
		}
		for i, sec := range secs {
			updated, err := svc.repo.UpdateSectionCount(ctx, sec.ID, sec.Capacity, tx)
			if err != nil {
				return errors.Wrap(err, "updating section counts")
			}
			secs[i] = updated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.notifyAssigned(ctx, secs, consumed)
	return secs, nil
}

// HasCapacity reports whether the section can still take an approved
// enrollment, counted from the authoritative enrollment store.
func (svc *Service) HasCapacity(ctx context.Context, sectionID string) (bool, error) {
	sec, err := svc.repo.GetSectionByID(ctx, sectionID)
	if err != nil {
		return false, err
	}
	count, err := svc.enrRepo.CountBySection(ctx, sectionID)
	if err != nil {
		return false, err
	}
	return count < sec.Capacity, nil
}

// SyncCount recomputes the denormalized enrollment count from the
// authoritative enrollment store and persists it.
func (svc *Service) SyncCount(ctx context.Context, sectionID string) (Section, error) {
	if _, err := svc.repo.GetSectionByID(ctx, sectionID); err != nil {
		return Section{}, err
	}
	count, err := svc.enrRepo.CountBySection(ctx, sectionID)
	if err != nil {
		return Section{}, err
	}
	return svc.repo.UpdateSectionCount(ctx, sectionID, count)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Section, error) {
	return svc.repo.GetSectionByID(ctx, id)
}

// Query filters sections by course, creator and/or student membership.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Section, error) {
	filter.Clean()
	if filter.StudentID != "" {
		usr, err := svc.usrRepo.GetUserByID(ctx, filter.StudentID)
		if err != nil {
			return nil, err
		}
		if len(usr.SectionIDs) == 0 {
			return []Section{}, nil
		}
		filter.IDs = usr.SectionIDs
		filter.StudentID = ""
	}
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QuerySections(ctx, filter, ordering)
}

// UpdateStatus applies the status transition table:
// DRAFT -> ACTIVE -> COMPLETED; DRAFT|ACTIVE -> CANCELLED.
func (svc *Service) UpdateStatus(ctx context.Context, sectionID, status string) (Section, error) {
	sec, err := svc.repo.GetSectionByID(ctx, sectionID)
	if err != nil {
		return Section{}, err
	}
	if !sec.CanTransition(status) {
		return Section{}, errors.Wrapf(ErrInvalidTransition, "%s -> %s", sec.Status, status)
	}
	return svc.repo.UpdateSectionStatus(ctx, sectionID, status)
}

// notifyAssigned emails the sections' creator a completion notice.
// Failures only get logged; the assignment already committed.
func (svc *Service) notifyAssigned(ctx context.Context, secs []Section, placed int) {
	if svc.mailSvc == nil || len(secs) == 0 {
		return
	}
	creator, err := svc.usrRepo.GetUserByID(ctx, secs[0].CreatedBy)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("looking up section creator %s: %v", secs[0].CreatedBy, err))
		return
	}
	if creator.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: creator.Name, Address: creator.Email}},
		Subject: "Class assignment completed",
		BodyStr: fmt.Sprintf("%d students were placed into %d sections.", placed, len(secs)),
	})
}
