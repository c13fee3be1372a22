package service

import (
	"context"
	"log"

	"feedsync/internal/cache"
	"feedsync/internal/identity"
	"feedsync/internal/model"
	"feedsync/internal/optimistic"
	"feedsync/internal/queue"
	"feedsync/internal/view"
)

const MutationToggleFollow = "toggle_follow"

type FollowService struct {
	exec     *optimistic.Executor
	identity identity.Provider
	api      FollowAPI
	sync     syncPublisher
}

func NewFollowService(exec *optimistic.Executor, identity identity.Provider, api FollowAPI) *FollowService {
	return &FollowService{
		exec:     exec,
		identity: identity,
		api:      api,
	}
}

// SetPublisher sets the sync-event publisher (optional).
func (s *FollowService) SetPublisher(publisher queue.Publisher, origin string) {
	s.sync = syncPublisher{publisher: publisher, origin: origin}
}

// ToggleFollow follows or unfollows followeeID and waits for the outcome.
func (s *FollowService) ToggleFollow(ctx context.Context, followeeID int64) (*model.FollowResult, error) {
	pending, err := s.StartToggleFollow(ctx, followeeID)
	if err != nil {
		return nil, err
	}
	return pending.Wait(ctx)
}

// StartToggleFollow flips the follow state on the followee's profile and the
// follower -> followee status lookup, and moves the actor's following count.
func (s *FollowService) StartToggleFollow(ctx context.Context, followeeID int64) (*optimistic.Pending[*model.FollowResult], error) {
	me, ok := s.identity.Current()
	if !ok {
		return nil, model.ErrUnauthenticated
	}
	if me.UserID == followeeID {
		return nil, model.ErrCannotFollowSelf
	}

	st := s.exec.Store()
	following, found := view.FollowState(st, me.UserID, followeeID)
	if !found {
		return nil, model.ErrFollowStateUnknown
	}
	target := !following

	delta := 1
	if !target {
		delta = -1
	}

	profile := view.ProfileKey(followeeID)
	status := view.FollowStatusKey(me.UserID, followeeID)
	own := view.ProfileKey(me.UserID)

	var priorProfile, priorStatus *bool
	var ownPatched bool
	var ownGen uint64

	m := optimistic.Mutation[*model.FollowResult]{
		Name: MutationToggleFollow,
		Apply: func(st *cache.Store) {
			if u, ok := cache.GetEntry[model.UserSummary](st, profile); ok {
				v := u.IsFollowing
				priorProfile = &v
				cache.SetEntry(st, profile, view.ToggleFollow())
			}
			if v, ok := cache.GetEntry[bool](st, status); ok {
				priorStatus = &v
				cache.SetEntry(st, status, view.NegateFollowStatus())
			}
			if _, ok := cache.GetEntry[model.UserSummary](st, own); ok {
				ownPatched = true
				ownGen = cache.SetEntry(st, own, view.AdjustFollowingCount(delta))
			}
		},
		Call: func(ctx context.Context) (*model.FollowResult, error) {
			return s.api.SetFollow(ctx, me.UserID, followeeID, target)
		},
		Commit: func(st *cache.Store, result *model.FollowResult) {
			cache.SetEntry(st, profile, view.AlignFollow(result.Following))
			cache.SetEntry(st, status, view.SetFollowStatus(result.Following))
			if ownPatched && result.Following != target {
				cache.SetEntryAt(st, own, ownGen, view.AdjustFollowingCount(-delta))
			}
		},
		Rollback: func(st *cache.Store) {
			if priorProfile != nil {
				cache.SetEntry(st, profile, view.AlignFollow(*priorProfile))
			}
			if priorStatus != nil {
				cache.SetEntry(st, status, view.SetFollowStatus(*priorStatus))
			}
			if ownPatched {
				cache.SetEntryAt(st, own, ownGen, view.AdjustFollowingCount(-delta))
			}
		},
		AfterCommit: func(ctx context.Context, result *model.FollowResult) {
			s.sync.publish(ctx, "FollowService",
				queue.NewFollowEvent(s.sync.origin, me.UserID, followeeID, result.Following))
		},
	}

	log.Printf("[FollowService] ToggleFollow: follower=%d followee=%d following=%v->%v",
		me.UserID, followeeID, following, target)
	return optimistic.Start(ctx, s.exec, m), nil
}
