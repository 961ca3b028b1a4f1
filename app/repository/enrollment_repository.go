package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coursebridge/coursebridge/app/models"
	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
)

// enrollmentRepository implements the EnrollmentRepository interface
type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository creates a new enrollment repository instance
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

// GetEnrollment returns the record for a (user, course) pair regardless of
// status, or (nil, nil) when no record exists.
func (r *enrollmentRepository) GetEnrollment(ctx context.Context, userID uint, courseID entitlements.CourseID) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, uint(courseID)).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// IsEnrolled reports whether an active record exists for the pair.
func (r *enrollmentRepository) IsEnrolled(ctx context.Context, userID uint, courseID entitlements.CourseID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, uint(courseID), models.EnrollmentStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListActiveByUser returns all active enrollments for a user.
func (r *enrollmentRepository) ListActiveByUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var out []models.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.EnrollmentStatusActive).
		Find(&out).Error
	return out, err
}

// CreateOrReactivate upserts the record for (e.UserID, e.CourseID). On
// conflict the existing row keeps its UUID and enrollment history; status
// and provenance are refreshed. e is reloaded from the store afterwards.
func (r *enrollmentRepository) CreateOrReactivate(ctx context.Context, e *models.Enrollment) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "course_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":                   e.Status,
			"origin_level_id":          e.OriginLevelID,
			"is_membership_enrollment": e.IsMembershipEnrollment,
			"from_bundle":              e.FromBundle,
			"cancelled_at":             nil,
			"updated_at":               time.Now(),
		}),
	}).Create(e).Error; err != nil {
		return err
	}

	// Ensure ID and UUID reflect the stored row after upsert.
	return r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", e.UserID, e.CourseID).
		First(e).Error
}

// Cancel soft-deletes an active record. The row is retained for audit and
// refund reconciliation.
func (r *enrollmentRepository) Cancel(ctx context.Context, userID uint, courseID entitlements.CourseID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, uint(courseID), models.EnrollmentStatusActive).
		Updates(map[string]interface{}{
			"status":       models.EnrollmentStatusCancelled,
			"cancelled_at": &now,
		}).Error
}
