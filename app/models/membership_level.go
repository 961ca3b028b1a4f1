package models

import "time"

// MembershipLevel mirrors a paid tier from the membership system. The level
// catalog itself is owned by the membership product; this service only reads
// the columns needed for entitlement resolution.
type MembershipLevel struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(191);not null" json:"name"`
	CycleInfo   string `gorm:"type:varchar(100)" json:"cycle_info"`
	BillingInfo string `gorm:"type:varchar(191)" json:"billing_info"`
	// CourseTagID points at a single course for levels created through the
	// simplified "course level" admin flow. Honored only when the course is
	// still published.
	CourseTagID *uint `gorm:"index" json:"course_tag_id,omitempty"`
	// BundleID links the level to a bundle product; resolution expands it to
	// the bundle's full member-course list.
	BundleID  *uint     `gorm:"index" json:"bundle_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LevelCourseLink is the explicit level-to-course join table used by the
// direct resolution strategy.
type LevelCourseLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LevelID   uint      `gorm:"not null;index:ux_level_course_links,unique,priority:1" json:"level_id"`
	CourseID  uint      `gorm:"not null;index:ux_level_course_links,unique,priority:2;index" json:"course_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserMembership records an active level held by a user. Ownership of the
// lifecycle stays with the membership system; rows here are synchronized in.
type UserMembership struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:ux_user_memberships,unique,priority:1" json:"user_id"`
	LevelID   uint       `gorm:"not null;index:ux_user_memberships,unique,priority:2" json:"level_id"`
	Status    string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	StartedAt time.Time  `gorm:"autoCreateTime" json:"started_at"`
	EndedAt   *time.Time `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`
}

const (
	MembershipStatusActive    = "active"
	MembershipStatusCancelled = "cancelled"
	MembershipStatusExpired   = "expired"
)
