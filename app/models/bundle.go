package models

import "time"

// Bundle groups multiple courses under one purchasable unit. The bundle
// feature ships separately from the base course platform, so rows may be
// absent entirely on installs without it.
type Bundle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"type:varchar(191);not null" json:"title"`
	Status    string    `gorm:"type:varchar(32);not null;default:'draft';index" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BundleCourse is the bundle membership join table.
type BundleCourse struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BundleID  uint      `gorm:"not null;index:ux_bundle_courses,unique,priority:1" json:"bundle_id"`
	CourseID  uint      `gorm:"not null;index:ux_bundle_courses,unique,priority:2" json:"course_id"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
