package models

import "time"

const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCancelled = "cancelled"
)

// Enrollment ties a (user, course) pair to an access status with provenance
// describing why the record exists. Records are soft-deleted: unenrolling
// flips the status to cancelled, the row is never removed, and re-enrollment
// reactivates the same row instead of inserting a duplicate.
type Enrollment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UUID     string `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	UserID   uint   `gorm:"not null;index:ux_enrollments_user_course,unique,priority:1" json:"user_id"`
	CourseID uint   `gorm:"not null;index:ux_enrollments_user_course,unique,priority:2;index" json:"course_id"`
	Status   string `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	// OriginLevelID records which membership level caused the enrollment.
	// Zero for manual enrollments observed from outside the membership flow.
	OriginLevelID uint `gorm:"not null;default:0;index" json:"origin_level_id"`
	// IsMembershipEnrollment distinguishes membership-driven records from
	// manual ones; reconciliation never cancels a manual record.
	IsMembershipEnrollment bool `gorm:"default:false;index" json:"is_membership_enrollment"`
	// FromBundle marks courses granted through bundle expansion rather than
	// a direct level-course grant.
	FromBundle  bool       `gorm:"default:false" json:"from_bundle"`
	EnrolledAt  time.Time  `gorm:"autoCreateTime" json:"enrolled_at"`
	CancelledAt *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the enrollment currently grants access.
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentStatusActive
}
