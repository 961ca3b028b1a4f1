package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/coursebridge/coursebridge/app/models"
	"github.com/coursebridge/coursebridge/internal/pkg/cache"
	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
)

const coursePricingCacheTTL = 5 * time.Minute

// courseRepository implements the CourseRepository interface
type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository creates a new course repository instance
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

// GetByID retrieves a course by id.
func (r *courseRepository) GetByID(ctx context.Context, id entitlements.CourseID) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).First(&course, uint(id)).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// GetCoursePricing returns the pricing attributes for a course. Results are
// cached briefly since the same courses are looked up on both sides of every
// diff.
func (r *courseRepository) GetCoursePricing(ctx context.Context, id entitlements.CourseID) (entitlements.CoursePricing, error) {
	cacheKey := fmt.Sprintf("course:pricing:%d", id)
	if cached, err := cache.Get(cacheKey); err == nil {
		var pricing entitlements.CoursePricing
		if err := json.Unmarshal([]byte(cached), &pricing); err == nil {
			return pricing, nil
		}
	}

	course, err := r.GetByID(ctx, id)
	if err != nil {
		return entitlements.CoursePricing{}, err
	}
	pricing := entitlements.CoursePricing{
		IsPublic: course.IsPublic,
		IsFree:   course.IsFree,
	}

	if payload, err := json.Marshal(pricing); err == nil {
		_ = cache.Set(cacheKey, string(payload), coursePricingCacheTTL)
	}
	return pricing, nil
}

// CourseExistsPublished reports whether the course exists, is published, and
// carries the course content type.
func (r *courseRepository) CourseExistsPublished(ctx context.Context, id entitlements.CourseID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND status = ? AND content_type = ?", uint(id), models.CourseStatusPublished, models.CourseContentTypeCourse).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
