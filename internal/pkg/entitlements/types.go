package entitlements

import "sort"

// LevelID identifies a paid membership level. A user may hold zero, one, or
// many simultaneously.
type LevelID uint

// CourseID identifies a unit of learning content in the course platform.
type CourseID uint

// CourseSet is a deduplicated collection of course ids.
type CourseSet map[CourseID]struct{}

// NewCourseSet builds a set from the given ids.
func NewCourseSet(ids ...CourseID) CourseSet {
	s := make(CourseSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts an id into the set.
func (s CourseSet) Add(id CourseID) {
	s[id] = struct{}{}
}

// Contains reports whether id is in the set.
func (s CourseSet) Contains(id CourseID) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set containing every id from s and other.
func (s CourseSet) Union(other CourseSet) CourseSet {
	out := make(CourseSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Diff returns a new set containing the ids of s that are not in other.
func (s CourseSet) Diff(other CourseSet) CourseSet {
	out := make(CourseSet)
	for id := range s {
		if !other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// IDs returns the set's ids sorted ascending. Sorting is for stable logging
// and test output only; callers must not rely on processing order.
func (s CourseSet) IDs() []CourseID {
	out := make([]CourseID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Entitlement is one resolved course grant with its provenance.
type Entitlement struct {
	CourseID    CourseID
	OriginLevel LevelID
	FromBundle  bool
}

// EntitlementSet is the deduplicated result of resolving a collection of
// membership levels. Courses arriving via bundle expansion are flagged so the
// pricing filter can exempt them.
type EntitlementSet struct {
	entries map[CourseID]Entitlement
}

// NewEntitlementSet returns an empty set.
func NewEntitlementSet() *EntitlementSet {
	return &EntitlementSet{entries: make(map[CourseID]Entitlement)}
}

// Add records a grant. A course already present keeps its original origin
// level; the bundle flag is sticky so a course reachable through any bundle
// path stays exempt from price filtering.
func (es *EntitlementSet) Add(e Entitlement) {
	if existing, ok := es.entries[e.CourseID]; ok {
		if e.FromBundle && !existing.FromBundle {
			existing.FromBundle = true
			es.entries[e.CourseID] = existing
		}
		return
	}
	es.entries[e.CourseID] = e
}

// Len returns the number of distinct courses in the set.
func (es *EntitlementSet) Len() int {
	return len(es.entries)
}

// Get returns the grant for a course, if present.
func (es *EntitlementSet) Get(id CourseID) (Entitlement, bool) {
	e, ok := es.entries[id]
	return e, ok
}

// All returns every resolved course id.
func (es *EntitlementSet) All() CourseSet {
	out := make(CourseSet, len(es.entries))
	for id := range es.entries {
		out[id] = struct{}{}
	}
	return out
}

// BundleCourses returns the subset that originated from bundle expansion.
func (es *EntitlementSet) BundleCourses() CourseSet {
	out := make(CourseSet)
	for id, e := range es.entries {
		if e.FromBundle {
			out[id] = struct{}{}
		}
	}
	return out
}

// RegularCourses returns the non-bundle subset.
func (es *EntitlementSet) RegularCourses() CourseSet {
	out := make(CourseSet)
	for id, e := range es.entries {
		if !e.FromBundle {
			out[id] = struct{}{}
		}
	}
	return out
}
