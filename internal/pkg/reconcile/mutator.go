package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/coursebridge/coursebridge/app/models"
	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
)

// EnrollmentStore is the external enrollment system this core mutates.
type EnrollmentStore interface {
	// GetEnrollment returns the record for a (user, course) pair, or
	// (nil, nil) when none exists.
	GetEnrollment(ctx context.Context, userID uint, courseID entitlements.CourseID) (*models.Enrollment, error)
	// CreateOrReactivate upserts the record for (e.UserID, e.CourseID) and
	// reloads e from the store. An existing row keeps its UUID and history.
	CreateOrReactivate(ctx context.Context, e *models.Enrollment) error
	// Cancel flips an active record to cancelled. No-op when none is active.
	Cancel(ctx context.Context, userID uint, courseID entitlements.CourseID) error
	// ListActiveByUser returns every active record for a user.
	ListActiveByUser(ctx context.Context, userID uint) ([]models.Enrollment, error)
}

// Mutator applies enrollment diffs idempotently. Write failures are returned
// unchanged and never retried here: every mutation is idempotent, so the
// caller can safely re-run the whole reconciliation later.
type Mutator struct {
	store EnrollmentStore
}

// NewMutator wires a mutator onto the enrollment store.
func NewMutator(store EnrollmentStore) *Mutator {
	return &Mutator{store: store}
}

// ApplyEnroll grants access to one course. If an active record already
// exists it is returned unchanged: no duplicate write, no status churn.
// Otherwise the record is created or reactivated with provenance stamped.
func (m *Mutator) ApplyEnroll(ctx context.Context, userID uint, grant entitlements.Entitlement) (*models.Enrollment, error) {
	existing, err := m.store.GetEnrollment(ctx, userID, grant.CourseID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsActive() {
		return existing, nil
	}

	e := &models.Enrollment{
		UUID:                   uuid.New().String(),
		UserID:                 userID,
		CourseID:               uint(grant.CourseID),
		Status:                 models.EnrollmentStatusActive,
		OriginLevelID:          uint(grant.OriginLevel),
		IsMembershipEnrollment: true,
		FromBundle:             grant.FromBundle,
	}
	if err := m.store.CreateOrReactivate(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ApplyUnenroll retracts access to one course. No-op when no active record
// exists, and manual (non-membership) records are never touched: only the
// membership flow may cancel what the membership flow created. The record is
// soft-deleted so provenance survives for audit and refund reconciliation.
func (m *Mutator) ApplyUnenroll(ctx context.Context, userID uint, courseID entitlements.CourseID) error {
	existing, err := m.store.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if existing == nil || !existing.IsActive() {
		return nil
	}
	if !existing.IsMembershipEnrollment {
		return nil
	}
	return m.store.Cancel(ctx, userID, courseID)
}

// ObserveManualEnrollment records an enrollment seen from outside the
// membership flow so later reconciliations leave it alone. Idempotent: an
// existing active record, membership-driven or not, is kept as is.
func (m *Mutator) ObserveManualEnrollment(ctx context.Context, userID uint, courseID entitlements.CourseID) (*models.Enrollment, error) {
	existing, err := m.store.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsActive() {
		return existing, nil
	}

	e := &models.Enrollment{
		UUID:                   uuid.New().String(),
		UserID:                 userID,
		CourseID:               uint(courseID),
		Status:                 models.EnrollmentStatusActive,
		IsMembershipEnrollment: false,
	}
	if err := m.store.CreateOrReactivate(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}
