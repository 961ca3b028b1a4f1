package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/coursebridge/coursebridge/app/models"
	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
)

// membershipRepository implements the MembershipRepository interface
type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository instance
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// GetActiveLevels returns the ids of all levels a user currently holds.
func (r *membershipRepository) GetActiveLevels(ctx context.Context, userID uint) ([]entitlements.LevelID, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.UserMembership{}).
		Where("user_id = ? AND status = ?", userID, models.MembershipStatusActive).
		Pluck("level_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make([]entitlements.LevelID, 0, len(ids))
	for _, id := range ids {
		out = append(out, entitlements.LevelID(id))
	}
	return out, nil
}

// GetLevel retrieves a membership level by id.
func (r *membershipRepository) GetLevel(ctx context.Context, id entitlements.LevelID) (*models.MembershipLevel, error) {
	var level models.MembershipLevel
	err := r.db.WithContext(ctx).First(&level, uint(id)).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}

// GetLevelMeta returns the resolution hints stored on a level.
func (r *membershipRepository) GetLevelMeta(ctx context.Context, id entitlements.LevelID) (entitlements.LevelMeta, error) {
	level, err := r.GetLevel(ctx, id)
	if err != nil {
		return entitlements.LevelMeta{}, err
	}
	meta := entitlements.LevelMeta{BundleID: level.BundleID}
	if level.CourseTagID != nil {
		tag := entitlements.CourseID(*level.CourseTagID)
		meta.CourseTag = &tag
	}
	return meta, nil
}

// ListCourseIDsByLevel returns the courses explicitly attached to a level
// through the join table.
func (r *membershipRepository) ListCourseIDsByLevel(ctx context.Context, id entitlements.LevelID) ([]entitlements.CourseID, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.LevelCourseLink{}).
		Where("level_id = ?", uint(id)).
		Pluck("course_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make([]entitlements.CourseID, 0, len(ids))
	for _, cid := range ids {
		out = append(out, entitlements.CourseID(cid))
	}
	return out, nil
}
