package repository

import (
	"context"

	"github.com/coursebridge/coursebridge/app/models"
	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
)

// MembershipRepository defines read access to the membership directory: the
// levels a user holds and the resolution metadata stored on each level.
type MembershipRepository interface {
	GetActiveLevels(ctx context.Context, userID uint) ([]entitlements.LevelID, error)
	GetLevel(ctx context.Context, id entitlements.LevelID) (*models.MembershipLevel, error)
	GetLevelMeta(ctx context.Context, id entitlements.LevelID) (entitlements.LevelMeta, error)
	ListCourseIDsByLevel(ctx context.Context, id entitlements.LevelID) ([]entitlements.CourseID, error)
}

// CourseRepository defines read access to the course catalog.
type CourseRepository interface {
	GetByID(ctx context.Context, id entitlements.CourseID) (*models.Course, error)
	GetCoursePricing(ctx context.Context, id entitlements.CourseID) (entitlements.CoursePricing, error)
	CourseExistsPublished(ctx context.Context, id entitlements.CourseID) (bool, error)
}

// BundleRepository defines read access to the bundle catalog.
type BundleRepository interface {
	GetBundleCourseIDs(ctx context.Context, bundleID uint) ([]entitlements.CourseID, error)
}

// EnrollmentRepository defines the operations on the enrollment store.
type EnrollmentRepository interface {
	GetEnrollment(ctx context.Context, userID uint, courseID entitlements.CourseID) (*models.Enrollment, error)
	IsEnrolled(ctx context.Context, userID uint, courseID entitlements.CourseID) (bool, error)
	ListActiveByUser(ctx context.Context, userID uint) ([]models.Enrollment, error)
	CreateOrReactivate(ctx context.Context, e *models.Enrollment) error
	Cancel(ctx context.Context, userID uint, courseID entitlements.CourseID) error
}

// WebhookEventRepository defines the idempotent webhook event log.
type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.MembershipWebhookEvent) (bool, *models.MembershipWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}
