package entitlements

import "context"

// CoursePricing carries the catalog attributes the pricing filter reads.
type CoursePricing struct {
	IsPublic bool
	IsFree   bool
}

// LevelMeta carries the resolution hints stored on a membership level.
type LevelMeta struct {
	// CourseTag points at a single course for levels created through the
	// simplified course-level admin flow.
	CourseTag *CourseID
	// BundleID links the level to a bundle product.
	BundleID *uint
}

// CourseCatalog provides read access to the course platform's catalog.
type CourseCatalog interface {
	GetCoursePricing(ctx context.Context, id CourseID) (CoursePricing, error)
	CourseExistsPublished(ctx context.Context, id CourseID) (bool, error)
}

// BundleCatalog resolves a bundle to its member courses. May be nil when the
// bundle feature is not installed.
type BundleCatalog interface {
	GetBundleCourseIDs(ctx context.Context, bundleID uint) ([]CourseID, error)
}

// LevelDirectory provides read access to level metadata and the explicit
// level-to-course join table.
type LevelDirectory interface {
	ListCourseIDsByLevel(ctx context.Context, id LevelID) ([]CourseID, error)
	GetLevelMeta(ctx context.Context, id LevelID) (LevelMeta, error)
}

// Resolver maps sets of membership levels to the courses they unlock using
// three independent strategies whose results are unioned: the explicit join
// table, the reverse course tag, and bundle expansion.
type Resolver struct {
	levels  LevelDirectory
	courses CourseCatalog
	bundles BundleCatalog
}

// NewResolver wires a resolver from its collaborators. bundles may be nil;
// bundle-linked levels then simply resolve to nothing.
func NewResolver(levels LevelDirectory, courses CourseCatalog, bundles BundleCatalog) *Resolver {
	return &Resolver{levels: levels, courses: courses, bundles: bundles}
}

// Resolve computes the entitlement set for the given levels. An empty input
// yields an empty set. Lookup failures on any strategy degrade to "grants
// nothing" for that strategy; a level that cannot be resolved is never fatal.
func (r *Resolver) Resolve(ctx context.Context, levelIDs []LevelID) (*EntitlementSet, error) {
	set := NewEntitlementSet()

	for _, levelID := range levelIDs {
		r.resolveDirect(ctx, levelID, set)

		meta, err := r.levels.GetLevelMeta(ctx, levelID)
		if err != nil {
			// Unknown or unreadable level grants no tagged or bundled courses.
			continue
		}
		r.resolveCourseTag(ctx, levelID, meta, set)
		r.resolveBundle(ctx, levelID, meta, set)
	}

	return set, nil
}

// resolveDirect applies the level-to-course join table strategy.
func (r *Resolver) resolveDirect(ctx context.Context, levelID LevelID, set *EntitlementSet) {
	courseIDs, err := r.levels.ListCourseIDsByLevel(ctx, levelID)
	if err != nil {
		return
	}
	for _, id := range courseIDs {
		set.Add(Entitlement{CourseID: id, OriginLevel: levelID})
	}
}

// resolveCourseTag applies the reverse tag strategy. Tags pointing at
// unpublished or missing courses are silently ignored.
func (r *Resolver) resolveCourseTag(ctx context.Context, levelID LevelID, meta LevelMeta, set *EntitlementSet) {
	if meta.CourseTag == nil {
		return
	}
	ok, err := r.courses.CourseExistsPublished(ctx, *meta.CourseTag)
	if err != nil || !ok {
		return
	}
	set.Add(Entitlement{CourseID: *meta.CourseTag, OriginLevel: levelID})
}

// resolveBundle expands a bundle-linked level into the bundle's full course
// list. Every course arriving this way is flagged bundle-derived.
func (r *Resolver) resolveBundle(ctx context.Context, levelID LevelID, meta LevelMeta, set *EntitlementSet) {
	if meta.BundleID == nil || r.bundles == nil {
		return
	}
	courseIDs, err := r.bundles.GetBundleCourseIDs(ctx, *meta.BundleID)
	if err != nil {
		return
	}
	for _, id := range courseIDs {
		set.Add(Entitlement{CourseID: id, OriginLevel: levelID, FromBundle: true})
	}
}
