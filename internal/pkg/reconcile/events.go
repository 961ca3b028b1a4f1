package reconcile

import (
	"errors"

	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
)

// ErrMissingUserID is returned when a lifecycle notification cannot be tied
// to a user. This is the one hard stop in the pipeline: a partial
// reconciliation against an unknown user is worse than doing nothing.
var ErrMissingUserID = errors.New("membership event is missing a user id")

// Event is one reconciliation request: the user's previous and current sets
// of active membership levels. It is ephemeral and never persisted.
type Event struct {
	UserID   uint
	Previous []entitlements.LevelID
	Current  []entitlements.LevelID
}

// UserLevelChange is one user's slice of a plan-wide batch change.
type UserLevelChange struct {
	UserID      uint
	OldLevelIDs []entitlements.LevelID
	NewLevelIDs []entitlements.LevelID
}

// CheckoutCompleted builds the event for a completed purchase. activeBefore
// is best effort and may be empty when the prior state is unknown; the
// purchased level is added on top of it.
func CheckoutCompleted(userID uint, purchased entitlements.LevelID, activeBefore []entitlements.LevelID) (Event, error) {
	if userID == 0 {
		return Event{}, ErrMissingUserID
	}
	current := appendLevel(activeBefore, purchased)
	return Event{
		UserID:   userID,
		Previous: dedupeLevels(activeBefore),
		Current:  current,
	}, nil
}

// LevelChanged builds the event for a single-level transition: upgrade,
// downgrade, or cancel-to-zero. A zero level id means "none" on that side.
func LevelChanged(userID uint, oldLevel, newLevel entitlements.LevelID) (Event, error) {
	if userID == 0 {
		return Event{}, ErrMissingUserID
	}
	ev := Event{UserID: userID, Previous: []entitlements.LevelID{}, Current: []entitlements.LevelID{}}
	if oldLevel != 0 {
		ev.Previous = append(ev.Previous, oldLevel)
	}
	if newLevel != 0 {
		ev.Current = append(ev.Current, newLevel)
	}
	return ev, nil
}

// BatchLevelsChanged builds one event per affected user from a plan-wide
// change. A change with a missing user id aborts the whole batch before any
// reconciliation runs.
func BatchLevelsChanged(changes []UserLevelChange) ([]Event, error) {
	events := make([]Event, 0, len(changes))
	for _, ch := range changes {
		if ch.UserID == 0 {
			return nil, ErrMissingUserID
		}
		events = append(events, Event{
			UserID:   ch.UserID,
			Previous: dedupeLevels(ch.OldLevelIDs),
			Current:  dedupeLevels(ch.NewLevelIDs),
		})
	}
	return events, nil
}

// OrderRefunded builds the event for a refunded order. The refunded level is
// treated as still present in the previous state so the diff produces an
// unenroll only for courses no remaining level still grants.
func OrderRefunded(userID uint, refunded entitlements.LevelID, remaining []entitlements.LevelID) (Event, error) {
	if userID == 0 {
		return Event{}, ErrMissingUserID
	}
	current := dedupeLevels(removeLevel(remaining, refunded))
	return Event{
		UserID:   userID,
		Previous: appendLevel(current, refunded),
		Current:  current,
	}, nil
}

func appendLevel(levels []entitlements.LevelID, level entitlements.LevelID) []entitlements.LevelID {
	out := dedupeLevels(levels)
	if level == 0 {
		return out
	}
	for _, id := range out {
		if id == level {
			return out
		}
	}
	return append(out, level)
}

func removeLevel(levels []entitlements.LevelID, level entitlements.LevelID) []entitlements.LevelID {
	out := make([]entitlements.LevelID, 0, len(levels))
	for _, id := range levels {
		if id != level {
			out = append(out, id)
		}
	}
	return out
}

func dedupeLevels(levels []entitlements.LevelID) []entitlements.LevelID {
	out := make([]entitlements.LevelID, 0, len(levels))
	seen := make(map[entitlements.LevelID]struct{}, len(levels))
	for _, id := range levels {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
