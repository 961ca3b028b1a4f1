package entitlements

import (
	"context"
	"errors"
	"testing"
)

func TestFilterExcludesFreeAndPublicRegulars(t *testing.T) {
	courses := &fakeCourseCatalog{pricing: map[CourseID]CoursePricing{
		1: {},
		2: {IsFree: true},
		3: {IsPublic: true},
	}}
	f := NewPricingFilter(courses)

	es := NewEntitlementSet()
	es.Add(Entitlement{CourseID: 1, OriginLevel: 1})
	es.Add(Entitlement{CourseID: 2, OriginLevel: 1})
	es.Add(Entitlement{CourseID: 3, OriginLevel: 1})

	out := f.Filter(context.Background(), es)
	if len(out) != 1 || !out.Contains(1) {
		t.Fatalf("expected only paid course 1, got %v", out.IDs())
	}
}

func TestFilterKeepsBundleCoursesRegardlessOfPrice(t *testing.T) {
	courses := &fakeCourseCatalog{pricing: map[CourseID]CoursePricing{
		4: {IsFree: true},
		5: {},
	}}
	f := NewPricingFilter(courses)

	// Scenario: bundle with a free course and a paid course.
	es := NewEntitlementSet()
	es.Add(Entitlement{CourseID: 4, OriginLevel: 3, FromBundle: true})
	es.Add(Entitlement{CourseID: 5, OriginLevel: 3, FromBundle: true})

	out := f.Filter(context.Background(), es)
	if len(out) != 2 || !out.Contains(4) || !out.Contains(5) {
		t.Fatalf("expected both bundle courses including the free one, got %v", out.IDs())
	}
}

func TestFilterFreeCourseOnlyViaBundleSurvives(t *testing.T) {
	courses := &fakeCourseCatalog{pricing: map[CourseID]CoursePricing{6: {IsFree: true}}}
	f := NewPricingFilter(courses)

	es := NewEntitlementSet()
	es.Add(Entitlement{CourseID: 6, OriginLevel: 1})
	es.Add(Entitlement{CourseID: 6, OriginLevel: 3, FromBundle: true})

	out := f.Filter(context.Background(), es)
	if !out.Contains(6) {
		t.Fatalf("free course reachable via bundle must not be filtered")
	}
}

func TestFilterPricingLookupFailureKeepsCourse(t *testing.T) {
	courses := &fakeCourseCatalog{pricingErr: errors.New("catalog down")}
	f := NewPricingFilter(courses)

	es := NewEntitlementSet()
	es.Add(Entitlement{CourseID: 1, OriginLevel: 1})

	out := f.Filter(context.Background(), es)
	if !out.Contains(1) {
		t.Fatalf("a failed pricing read must not drop a grant")
	}
}
