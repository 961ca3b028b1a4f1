package entitlements

import (
	"context"
	"errors"
	"testing"
)

type fakeLevelDirectory struct {
	links   map[LevelID][]CourseID
	meta    map[LevelID]LevelMeta
	linkErr error
	metaErr error
}

func (f *fakeLevelDirectory) ListCourseIDsByLevel(_ context.Context, id LevelID) ([]CourseID, error) {
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	return f.links[id], nil
}

func (f *fakeLevelDirectory) GetLevelMeta(_ context.Context, id LevelID) (LevelMeta, error) {
	if f.metaErr != nil {
		return LevelMeta{}, f.metaErr
	}
	return f.meta[id], nil
}

type fakeCourseCatalog struct {
	pricing    map[CourseID]CoursePricing
	published  map[CourseID]bool
	pricingErr error
}

func (f *fakeCourseCatalog) GetCoursePricing(_ context.Context, id CourseID) (CoursePricing, error) {
	if f.pricingErr != nil {
		return CoursePricing{}, f.pricingErr
	}
	return f.pricing[id], nil
}

func (f *fakeCourseCatalog) CourseExistsPublished(_ context.Context, id CourseID) (bool, error) {
	return f.published[id], nil
}

type fakeBundleCatalog struct {
	bundles map[uint][]CourseID
	err     error
}

func (f *fakeBundleCatalog) GetBundleCourseIDs(_ context.Context, bundleID uint) ([]CourseID, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bundles[bundleID], nil
}

func courseTag(id CourseID) *CourseID { return &id }
func bundleRef(id uint) *uint         { return &id }

func TestResolveEmptyInput(t *testing.T) {
	r := NewResolver(&fakeLevelDirectory{}, &fakeCourseCatalog{}, nil)

	set, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %d courses", set.Len())
	}
}

func TestResolveDirectMapping(t *testing.T) {
	levels := &fakeLevelDirectory{
		links: map[LevelID][]CourseID{1: {10, 11}},
		meta:  map[LevelID]LevelMeta{},
	}
	r := NewResolver(levels, &fakeCourseCatalog{}, nil)

	set, err := r.Resolve(context.Background(), []LevelID{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Len() != 2 || !set.All().Contains(10) || !set.All().Contains(11) {
		t.Fatalf("unexpected resolution: %v", set.All().IDs())
	}
	got, _ := set.Get(10)
	if got.OriginLevel != 1 || got.FromBundle {
		t.Fatalf("unexpected provenance: %+v", got)
	}
}

func TestResolveCourseTag(t *testing.T) {
	levels := &fakeLevelDirectory{
		links: map[LevelID][]CourseID{},
		meta: map[LevelID]LevelMeta{
			1: {CourseTag: courseTag(20)},
			2: {CourseTag: courseTag(21)},
		},
	}
	courses := &fakeCourseCatalog{published: map[CourseID]bool{20: true}}
	r := NewResolver(levels, courses, nil)

	set, err := r.Resolve(context.Background(), []LevelID{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !set.All().Contains(20) {
		t.Fatalf("expected published tagged course to resolve")
	}
	// Tag pointing at an unpublished course is silently ignored.
	if set.All().Contains(21) {
		t.Fatalf("expected unpublished tagged course to be skipped")
	}
}

func TestResolveBundleExpansion(t *testing.T) {
	levels := &fakeLevelDirectory{
		links: map[LevelID][]CourseID{},
		meta:  map[LevelID]LevelMeta{3: {BundleID: bundleRef(7)}},
	}
	bundles := &fakeBundleCatalog{bundles: map[uint][]CourseID{7: {4, 5}}}
	r := NewResolver(levels, &fakeCourseCatalog{}, bundles)

	set, err := r.Resolve(context.Background(), []LevelID{3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bundle := set.BundleCourses()
	if len(bundle) != 2 || !bundle.Contains(4) || !bundle.Contains(5) {
		t.Fatalf("expected bundle courses {4,5}, got %v", bundle.IDs())
	}
	// Invariant: bundle courses are a subset of all courses.
	for id := range bundle {
		if !set.All().Contains(id) {
			t.Fatalf("bundle course %d missing from all", id)
		}
	}
}

func TestResolveBundleCatalogAbsent(t *testing.T) {
	levels := &fakeLevelDirectory{
		links: map[LevelID][]CourseID{},
		meta:  map[LevelID]LevelMeta{3: {BundleID: bundleRef(7)}},
	}
	r := NewResolver(levels, &fakeCourseCatalog{}, nil)

	set, err := r.Resolve(context.Background(), []LevelID{3})
	if err != nil {
		t.Fatalf("expected missing bundle feature to degrade, got %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set without bundle catalog, got %v", set.All().IDs())
	}
}

func TestResolveStrategiesUnionAndDedupe(t *testing.T) {
	levels := &fakeLevelDirectory{
		links: map[LevelID][]CourseID{1: {10}},
		meta:  map[LevelID]LevelMeta{1: {CourseTag: courseTag(10), BundleID: bundleRef(7)}},
	}
	courses := &fakeCourseCatalog{published: map[CourseID]bool{10: true}}
	bundles := &fakeBundleCatalog{bundles: map[uint][]CourseID{7: {10, 11}}}
	r := NewResolver(levels, courses, bundles)

	set, err := r.Resolve(context.Background(), []LevelID{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected {10,11}, got %v", set.All().IDs())
	}
	// Course 10 arrived via all three strategies; the bundle path keeps it
	// exempt from price filtering.
	got, _ := set.Get(10)
	if !got.FromBundle {
		t.Fatalf("expected course 10 to carry the bundle flag")
	}
}

func TestResolveLookupFailuresDegrade(t *testing.T) {
	levels := &fakeLevelDirectory{
		linkErr: errors.New("links unavailable"),
		metaErr: errors.New("meta unavailable"),
	}
	r := NewResolver(levels, &fakeCourseCatalog{}, nil)

	set, err := r.Resolve(context.Background(), []LevelID{1, 2})
	if err != nil {
		t.Fatalf("expected degradation to empty, got %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected no grants on lookup failure, got %v", set.All().IDs())
	}
}
