package models

import "time"

const (
	CourseStatusPublished = "published"
	CourseStatusDraft     = "draft"
	CourseStatusArchived  = "archived"

	CourseContentTypeCourse = "course"
)

// Course mirrors a unit of learning content in the course platform. The
// catalog is owned by the course platform; this service reads the pricing and
// visibility attributes used by the pricing filter.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(191);not null" json:"title"`
	ContentType string    `gorm:"type:varchar(32);not null;default:'course';index" json:"content_type"`
	Status      string    `gorm:"type:varchar(32);not null;default:'draft';index" json:"status"`
	IsFree      bool      `gorm:"default:false" json:"is_free"`
	IsPublic    bool      `gorm:"default:false" json:"is_public"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPublished reports whether the course is visible in the catalog.
func (c *Course) IsPublished() bool {
	return c.Status == CourseStatusPublished
}
