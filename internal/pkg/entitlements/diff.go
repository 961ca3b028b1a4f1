package entitlements

// Diff computes the enrollment changes needed to move a user from the
// previous filtered course set to the current one. Callers must pass empty
// sets, never nil, when a side is unknown: "no prior levels" has to be an
// intentional decision because it turns the diff into a full enroll pass.
func Diff(previous, current CourseSet) (toEnroll, toUnenroll CourseSet) {
	return current.Diff(previous), previous.Diff(current)
}
