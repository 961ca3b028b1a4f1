package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/coursebridge/coursebridge/app/models"
	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
)

// bundleRepository implements the BundleRepository interface
type bundleRepository struct {
	db *gorm.DB
}

// NewBundleRepository creates a new bundle repository instance
func NewBundleRepository(db *gorm.DB) BundleRepository {
	return &bundleRepository{db: db}
}

// GetBundleCourseIDs returns the full member-course list of a bundle. An
// unknown bundle id yields an empty list, not an error.
func (r *bundleRepository) GetBundleCourseIDs(ctx context.Context, bundleID uint) ([]entitlements.CourseID, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.BundleCourse{}).
		Where("bundle_id = ?", bundleID).
		Order("position ASC").
		Pluck("course_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make([]entitlements.CourseID, 0, len(ids))
	for _, id := range ids {
		out = append(out, entitlements.CourseID(id))
	}
	return out, nil
}
