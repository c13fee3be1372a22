package view

import (
	"feedsync/internal/cache"
	"feedsync/internal/model"
)

// AdjustPostCount adds delta to the profile's PostCount, never going below 0.
func AdjustPostCount(delta int) cache.Updater[model.UserSummary] {
	return func(prior model.UserSummary, ok bool) (model.UserSummary, bool) {
		if !ok {
			return prior, false
		}
		prior.PostCount = clampAdd(prior.PostCount, delta)
		return prior, true
	}
}

// AdjustFollowingCount adds delta to the profile's FollowingCount.
func AdjustFollowingCount(delta int) cache.Updater[model.UserSummary] {
	return func(prior model.UserSummary, ok bool) (model.UserSummary, bool) {
		if !ok {
			return prior, false
		}
		prior.FollowingCount = clampAdd(prior.FollowingCount, delta)
		return prior, true
	}
}

// ToggleFollow flips IsFollowing on a followee's profile and moves
// FollowerCount by one in the same direction.
func ToggleFollow() cache.Updater[model.UserSummary] {
	return func(prior model.UserSummary, ok bool) (model.UserSummary, bool) {
		if !ok {
			return prior, false
		}
		return flipFollow(prior), true
	}
}

// AlignFollow sets IsFollowing to the authoritative value, flipping only when
// the cached profile disagrees.
func AlignFollow(following bool) cache.Updater[model.UserSummary] {
	return func(prior model.UserSummary, ok bool) (model.UserSummary, bool) {
		if !ok || prior.IsFollowing == following {
			return prior, false
		}
		return flipFollow(prior), true
	}
}

func flipFollow(u model.UserSummary) model.UserSummary {
	if u.IsFollowing {
		u.IsFollowing = false
		u.FollowerCount = clampAdd(u.FollowerCount, -1)
	} else {
		u.IsFollowing = true
		u.FollowerCount++
	}
	return u
}

func clampAdd(n, delta int) int {
	n += delta
	if n < 0 {
		return 0
	}
	return n
}
