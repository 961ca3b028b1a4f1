package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/coursebridge/coursebridge/app/models"
	"github.com/coursebridge/coursebridge/app/repository"
	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
)

// MembershipDirectory is the membership system's read surface.
type MembershipDirectory interface {
	GetActiveLevels(ctx context.Context, userID uint) ([]entitlements.LevelID, error)
	GetLevel(ctx context.Context, id entitlements.LevelID) (*models.MembershipLevel, error)
}

// WebhookLog persists inbound lifecycle payloads with deduplication.
type WebhookLog interface {
	CreateIfNotExists(ctx context.Context, event *models.MembershipWebhookEvent) (bool, *models.MembershipWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// Result reports what one reconciliation changed.
type Result struct {
	Enrolled   []entitlements.CourseID
	Unenrolled []entitlements.CourseID
}

// Service runs the reconciliation pipeline: resolve both level sets, filter
// them, diff, and apply the diff to the enrollment store. Every collaborator
// is injected so tests can substitute fakes per interface.
type Service struct {
	resolver    *entitlements.Resolver
	filter      *entitlements.PricingFilter
	mutator     *Mutator
	store       EnrollmentStore
	memberships MembershipDirectory
	webhookLog  WebhookLog
}

// NewService wires the pipeline from its collaborators. bundles may be nil
// when the bundle feature is not installed; webhookLog may be nil for
// callers that handle event deduplication themselves.
func NewService(
	levels entitlements.LevelDirectory,
	courses entitlements.CourseCatalog,
	bundles entitlements.BundleCatalog,
	memberships MembershipDirectory,
	store EnrollmentStore,
	webhookLog WebhookLog,
) *Service {
	return &Service{
		resolver:    entitlements.NewResolver(levels, courses, bundles),
		filter:      entitlements.NewPricingFilter(courses),
		mutator:     NewMutator(store),
		store:       store,
		memberships: memberships,
		webhookLog:  webhookLog,
	}
}

// NewServiceFromDB wires the pipeline onto GORM-backed repositories.
func NewServiceFromDB(db *gorm.DB) *Service {
	repos := repository.NewFactory(db).GetRepositories()
	return NewService(
		repos.Membership,
		repos.Course,
		repos.Bundle,
		repos.Membership,
		repos.Enrollment,
		repos.WebhookEvent,
	)
}

// Reconcile computes the entitlement diff between the event's previous and
// current level sets and applies it. Resolution failures degrade to empty
// sets; mutation failures propagate unchanged and are not retried, since the
// whole call is idempotent and safe to re-run after a partial failure.
func (s *Service) Reconcile(ctx context.Context, ev Event) (*Result, error) {
	if ev.UserID == 0 {
		return nil, ErrMissingUserID
	}

	previousSet, err := s.resolver.Resolve(ctx, ev.Previous)
	if err != nil {
		return nil, err
	}
	currentSet, err := s.resolver.Resolve(ctx, ev.Current)
	if err != nil {
		return nil, err
	}

	previous := s.filter.Filter(ctx, previousSet)
	current := s.filter.Filter(ctx, currentSet)
	toEnroll, toUnenroll := entitlements.Diff(previous, current)

	return s.apply(ctx, ev.UserID, currentSet, toEnroll, toUnenroll)
}

// apply runs the mutator over a computed diff. Provenance for each enroll
// comes from the current entitlement set.
func (s *Service) apply(ctx context.Context, userID uint, currentSet *entitlements.EntitlementSet, toEnroll, toUnenroll entitlements.CourseSet) (*Result, error) {
	result := &Result{}
	for _, courseID := range toEnroll.IDs() {
		grant, ok := currentSet.Get(courseID)
		if !ok {
			grant = entitlements.Entitlement{CourseID: courseID}
		}
		if _, err := s.mutator.ApplyEnroll(ctx, userID, grant); err != nil {
			return result, err
		}
		result.Enrolled = append(result.Enrolled, courseID)
	}
	for _, courseID := range toUnenroll.IDs() {
		if err := s.mutator.ApplyUnenroll(ctx, userID, courseID); err != nil {
			return result, err
		}
		result.Unenrolled = append(result.Unenrolled, courseID)
	}
	return result, nil
}

// ReconcileAll converges one user from scratch: the desired course set is
// resolved from their currently active levels and diffed against the stored
// membership enrollments, so both missing and stale grants are repaired.
// Manual enrollments are excluded from the stored side and stay untouched.
func (s *Service) ReconcileAll(ctx context.Context, userID uint) (*Result, error) {
	if userID == 0 {
		return nil, ErrMissingUserID
	}
	levels, err := s.memberships.GetActiveLevels(ctx, userID)
	if err != nil {
		return nil, err
	}

	currentSet, err := s.resolver.Resolve(ctx, levels)
	if err != nil {
		return nil, err
	}
	desired := s.filter.Filter(ctx, currentSet)

	stored, err := s.store.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	actual := entitlements.NewCourseSet()
	for _, e := range stored {
		if e.IsMembershipEnrollment {
			actual.Add(entitlements.CourseID(e.CourseID))
		}
	}

	toEnroll, toUnenroll := entitlements.Diff(actual, desired)
	return s.apply(ctx, userID, currentSet, toEnroll, toUnenroll)
}

// ObserveManualEnrollment records an externally created enrollment so later
// reconciliations never cancel it.
func (s *Service) ObserveManualEnrollment(ctx context.Context, userID uint, courseID entitlements.CourseID) (*models.Enrollment, error) {
	if userID == 0 {
		return nil, ErrMissingUserID
	}
	return s.mutator.ObserveManualEnrollment(ctx, userID, courseID)
}

// ActiveLevels exposes the membership directory for adapters that need the
// user's state before or after an event.
func (s *Service) ActiveLevels(ctx context.Context, userID uint) ([]entitlements.LevelID, error) {
	return s.memberships.GetActiveLevels(ctx, userID)
}

// LevelExists reports whether a level is known to the membership directory.
func (s *Service) LevelExists(ctx context.Context, id entitlements.LevelID) (bool, error) {
	_, err := s.memberships.GetLevel(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RecordWebhookEvent persists an inbound payload idempotently. Payloads
// without a provider event id are keyed by a hash of the body.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.MembershipWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.MembershipWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.webhookLog.CreateIfNotExists(ctx, event)
}

// MarkWebhookProcessed marks an event as handled and stores an optional
// processing error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.webhookLog.MarkProcessed(ctx, webhookEventID, errMsg)
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
