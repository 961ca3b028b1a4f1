package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository instances.
type Repositories struct {
	Membership   MembershipRepository
	Course       CourseRepository
	Bundle       BundleRepository
	Enrollment   EnrollmentRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates all repositories on a shared DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Membership:   NewMembershipRepository(db),
		Course:       NewCourseRepository(db),
		Bundle:       NewBundleRepository(db),
		Enrollment:   NewEnrollmentRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetMembershipRepository returns the membership repository instance
func (f *Factory) GetMembershipRepository() MembershipRepository {
	return f.GetRepositories().Membership
}

// GetCourseRepository returns the course repository instance
func (f *Factory) GetCourseRepository() CourseRepository {
	return f.GetRepositories().Course
}

// GetBundleRepository returns the bundle repository instance
func (f *Factory) GetBundleRepository() BundleRepository {
	return f.GetRepositories().Bundle
}

// GetEnrollmentRepository returns the enrollment repository instance
func (f *Factory) GetEnrollmentRepository() EnrollmentRepository {
	return f.GetRepositories().Enrollment
}

// GetWebhookEventRepository returns the webhook event repository instance
func (f *Factory) GetWebhookEventRepository() WebhookEventRepository {
	return f.GetRepositories().WebhookEvent
}
