package view

import "feedsync/internal/cache"

// NegateFollowStatus flips a cached follow-status lookup. An unknown status
// stays unknown.
func NegateFollowStatus() cache.Updater[bool] {
	return func(prior bool, ok bool) (bool, bool) {
		if !ok {
			return prior, false
		}
		return !prior, true
	}
}

// SetFollowStatus overwrites a cached follow-status lookup with the
// authoritative value. It never creates the entry.
func SetFollowStatus(following bool) cache.Updater[bool] {
	return func(prior bool, ok bool) (bool, bool) {
		if !ok || prior == following {
			return prior, false
		}
		return following, true
	}
}
