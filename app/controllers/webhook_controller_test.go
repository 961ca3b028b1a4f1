package controllers

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/coursebridge/coursebridge/app/models"
	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
	"github.com/coursebridge/coursebridge/internal/pkg/reconcile"
)

type memStore struct {
	records map[[2]uint]*models.Enrollment
	nextID  uint
}

func (s *memStore) GetEnrollment(_ context.Context, userID uint, courseID entitlements.CourseID) (*models.Enrollment, error) {
	e, ok := s.records[[2]uint{userID, uint(courseID)}]
	if !ok {
		return nil, nil
	}
	return e, nil
}

func (s *memStore) CreateOrReactivate(_ context.Context, e *models.Enrollment) error {
	key := [2]uint{e.UserID, e.CourseID}
	if existing, ok := s.records[key]; ok {
		existing.Status = models.EnrollmentStatusActive
		existing.OriginLevelID = e.OriginLevelID
		existing.IsMembershipEnrollment = e.IsMembershipEnrollment
		existing.FromBundle = e.FromBundle
		*e = *existing
		return nil
	}
	s.nextID++
	e.ID = s.nextID
	stored := *e
	s.records[key] = &stored
	return nil
}

func (s *memStore) Cancel(_ context.Context, userID uint, courseID entitlements.CourseID) error {
	if e, ok := s.records[[2]uint{userID, uint(courseID)}]; ok {
		e.Status = models.EnrollmentStatusCancelled
	}
	return nil
}

func (s *memStore) ListActiveByUser(_ context.Context, userID uint) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range s.records {
		if e.UserID == userID && e.IsActive() {
			out = append(out, *e)
		}
	}
	return out, nil
}

type memDirectory struct {
	links  map[entitlements.LevelID][]entitlements.CourseID
	active map[uint][]entitlements.LevelID
}

func (d *memDirectory) ListCourseIDsByLevel(_ context.Context, id entitlements.LevelID) ([]entitlements.CourseID, error) {
	return d.links[id], nil
}

func (d *memDirectory) GetLevelMeta(_ context.Context, _ entitlements.LevelID) (entitlements.LevelMeta, error) {
	return entitlements.LevelMeta{}, nil
}

func (d *memDirectory) GetActiveLevels(_ context.Context, userID uint) ([]entitlements.LevelID, error) {
	return d.active[userID], nil
}

func (d *memDirectory) GetLevel(_ context.Context, id entitlements.LevelID) (*models.MembershipLevel, error) {
	if _, ok := d.links[id]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.MembershipLevel{ID: uint(id)}, nil
}

type memCatalog struct{}

func (memCatalog) GetCoursePricing(_ context.Context, _ entitlements.CourseID) (entitlements.CoursePricing, error) {
	return entitlements.CoursePricing{}, nil
}

func (memCatalog) CourseExistsPublished(_ context.Context, _ entitlements.CourseID) (bool, error) {
	return false, nil
}

func testService(store *memStore, dir *memDirectory) *reconcile.Service {
	return reconcile.NewService(dir, memCatalog{}, nil, dir, store, nil)
}

func TestDispatchCheckoutCompleted(t *testing.T) {
	store := &memStore{records: map[[2]uint]*models.Enrollment{}}
	dir := &memDirectory{
		links:  map[entitlements.LevelID][]entitlements.CourseID{1: {10, 11}},
		active: map[uint][]entitlements.LevelID{},
	}
	svc := testService(store, dir)

	status, err := dispatchMembershipEvent(context.Background(), svc, "checkout.completed",
		[]byte(`{"user_id": 7, "level_id": 1}`))

	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, status)
	enrolled, _ := store.ListActiveByUser(context.Background(), 7)
	assert.Len(t, enrolled, 2)
}

func TestDispatchLevelChanged(t *testing.T) {
	store := &memStore{records: map[[2]uint]*models.Enrollment{}}
	dir := &memDirectory{
		links: map[entitlements.LevelID][]entitlements.CourseID{
			1: {10},
			2: {11},
		},
		active: map[uint][]entitlements.LevelID{},
	}
	svc := testService(store, dir)
	ctx := context.Background()

	_, err := dispatchMembershipEvent(ctx, svc, "checkout.completed", []byte(`{"user_id": 7, "level_id": 1}`))
	assert.NoError(t, err)

	status, err := dispatchMembershipEvent(ctx, svc, "level.changed",
		[]byte(`{"user_id": 7, "old_level_id": 1, "new_level_id": 2}`))

	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, status)

	old, _ := store.GetEnrollment(ctx, 7, 10)
	assert.False(t, old.IsActive())
	now, _ := store.GetEnrollment(ctx, 7, 11)
	assert.True(t, now.IsActive())
}

func TestDispatchRejectsMalformedPayloads(t *testing.T) {
	store := &memStore{records: map[[2]uint]*models.Enrollment{}}
	dir := &memDirectory{links: map[entitlements.LevelID][]entitlements.CourseID{}, active: map[uint][]entitlements.LevelID{}}
	svc := testService(store, dir)

	tests := []struct {
		eventType string
		payload   string
	}{
		{"checkout.completed", `{"level_id": 1}`},
		{"level.changed", `{}`},
		{"levels.changed", `{"changes": []}`},
		{"order.refunded", `not json`},
		{"enrollment.observed", `{"user_id": 7}`},
		{"membership.resync", `{}`},
	}
	for _, tt := range tests {
		status, err := dispatchMembershipEvent(context.Background(), svc, tt.eventType, []byte(tt.payload))
		assert.Error(t, err, tt.eventType)
		assert.Equal(t, fiber.StatusBadRequest, status, tt.eventType)
	}
}

func TestDispatchUnknownEventAcknowledged(t *testing.T) {
	store := &memStore{records: map[[2]uint]*models.Enrollment{}}
	dir := &memDirectory{links: map[entitlements.LevelID][]entitlements.CourseID{}, active: map[uint][]entitlements.LevelID{}}
	svc := testService(store, dir)

	status, err := dispatchMembershipEvent(context.Background(), svc, "member.pinged", []byte(`{}`))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestDispatchResyncRepairsState(t *testing.T) {
	store := &memStore{records: map[[2]uint]*models.Enrollment{}}
	dir := &memDirectory{
		links:  map[entitlements.LevelID][]entitlements.CourseID{2: {11}},
		active: map[uint][]entitlements.LevelID{7: {2}},
	}
	svc := testService(store, dir)
	ctx := context.Background()

	// Stale membership grant for a course no active level provides.
	stale := &models.Enrollment{
		UUID: "stale", UserID: 7, CourseID: 10,
		Status: models.EnrollmentStatusActive, IsMembershipEnrollment: true,
	}
	assert.NoError(t, store.CreateOrReactivate(ctx, stale))

	status, err := dispatchMembershipEvent(ctx, svc, "membership.resync", []byte(`{"user_id": 7}`))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, status)

	repaired, _ := store.GetEnrollment(ctx, 7, 10)
	assert.False(t, repaired.IsActive())
	granted, _ := store.GetEnrollment(ctx, 7, 11)
	assert.True(t, granted.IsActive())
}
