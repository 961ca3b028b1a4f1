package entitlements

import "context"

// PricingFilter removes courses that are already freely accessible from the
// non-bundle portion of a resolved entitlement set. Tracking entitlements for
// free or public courses would be redundant and cause spurious enroll and
// unenroll churn on every level change.
type PricingFilter struct {
	courses CourseCatalog
}

// NewPricingFilter wires a filter onto the course catalog.
func NewPricingFilter(courses CourseCatalog) *PricingFilter {
	return &PricingFilter{courses: courses}
}

// Filter returns the final "should have access" course set for diffing.
// Bundle-derived courses always pass regardless of price: the grant is the
// whole bundle, not individual course economics. A failed pricing lookup
// keeps the course, since dropping it would later produce a wrong unenroll.
func (f *PricingFilter) Filter(ctx context.Context, set *EntitlementSet) CourseSet {
	out := make(CourseSet, set.Len())

	for _, id := range set.RegularCourses().IDs() {
		pricing, err := f.courses.GetCoursePricing(ctx, id)
		if err == nil && (pricing.IsFree || pricing.IsPublic) {
			continue
		}
		out.Add(id)
	}
	for id := range set.BundleCourses() {
		out.Add(id)
	}
	return out
}
