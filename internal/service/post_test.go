package service

import (
	"context"
	"encoding/json"
	"reflect"
	"errors"
	"sync"
	"testing"
	"time"

	"feedsync/internal/cache"
	"feedsync/internal/identity"
	"feedsync/internal/model"
	"feedsync/internal/optimistic"
	"feedsync/internal/queue"
	"feedsync/internal/view"
)

// =============================================================================
// MOCKS
// =============================================================================

type mockPostAPI struct {
	createPostFn func(ctx context.Context, content string) (*model.Post, error)
	setLikeFn    func(ctx context.Context, postID int64, liked bool) (*model.LikeResult, error)

	mu          sync.Mutex
	createCalls []string
	likeCalls   []likeCall
}

type likeCall struct {
	PostID int64
	Liked  bool
}

func (m *mockPostAPI) CreatePost(ctx context.Context, content string) (*model.Post, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, content)
	m.mu.Unlock()
	if m.createPostFn != nil {
		return m.createPostFn(ctx, content)
	}
	return &model.Post{ID: 100, Content: content}, nil
}

func (m *mockPostAPI) SetLike(ctx context.Context, postID int64, liked bool) (*model.LikeResult, error) {
	m.mu.Lock()
	m.likeCalls = append(m.likeCalls, likeCall{PostID: postID, Liked: liked})
	m.mu.Unlock()
	if m.setLikeFn != nil {
		return m.setLikeFn(ctx, postID, liked)
	}
	return &model.LikeResult{PostID: postID, Liked: liked}, nil
}

func (m *mockPostAPI) calls() (creates int, likes []likeCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.createCalls), append([]likeCall(nil), m.likeCalls...)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []queue.SyncEvent
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.SyncEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return "1-0", nil
}

func (m *mockPublisher) Events() []queue.SyncEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]queue.SyncEvent(nil), m.events...)
}

// =============================================================================
// FIXTURES
// =============================================================================

const me = int64(1)

func signedIn() identity.Static {
	name := "Me"
	return identity.Static{UserID: me, DisplayName: &name}
}

func feedOf(posts ...model.Post) *view.Feed {
	return &view.Feed{Pages: []view.FeedPage{{Items: posts}}}
}

func seedFeed(st *cache.Store) {
	st.Put(view.FeedKey(), feedOf(
		model.Post{ID: 3, Content: "c", LikeCount: 5},
		model.Post{ID: 2, Content: "b"},
		model.Post{ID: 1, Content: "a"},
	))
}

func feedAt(t *testing.T, st *cache.Store, key cache.Key) *view.Feed {
	t.Helper()
	feed, ok := cache.GetInfiniteEntry[model.Post](st, key)
	if !ok {
		t.Fatalf("feed %s not resident", key)
	}
	return feed
}

func waitDone[R any](t *testing.T, p *optimistic.Pending[R]) (R, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

// =============================================================================
// CREATE POST TESTS
// =============================================================================

func TestPostService_CreatePost_PrependsBeforeRemote(t *testing.T) {
	st := cache.NewStore()
	seedFeed(st)

	release := make(chan struct{})
	api := &mockPostAPI{
		createPostFn: func(ctx context.Context, content string) (*model.Post, error) {
			<-release
			return &model.Post{ID: 100, Content: content, CreatedAt: time.Unix(1700000000, 0)}, nil
		},
	}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)

	pending, err := svc.StartCreatePost(context.Background(), "hello")
	if err != nil {
		t.Fatalf("StartCreatePost failed: %v", err)
	}

	items := feedAt(t, st, view.FeedKey()).Pages[0].Items
	if len(items) != 4 {
		t.Fatalf("page 1 has %d posts, want 4", len(items))
	}
	if items[0].Content != "hello" {
		t.Errorf("items[0].Content = %q, want %q", items[0].Content, "hello")
	}
	if items[0].Confirmed() {
		t.Error("provisional post should not have a server id before commit")
	}
	if items[0].Author.ID != me {
		t.Errorf("author = %d, want %d", items[0].Author.ID, me)
	}

	close(release)
	created, err := waitDone(t, pending)
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if created.ID != 100 {
		t.Errorf("created.ID = %d, want 100", created.ID)
	}

	items = feedAt(t, st, view.FeedKey()).Pages[0].Items
	if len(items) != 4 {
		t.Fatalf("page 1 has %d posts after commit, want 4", len(items))
	}
	if items[0].ID != 100 || items[0].ClientID != "" {
		t.Errorf("items[0] = %+v, want confirmed post 100 in place", items[0])
	}
	if !items[0].CreatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("CreatedAt = %v, want server time", items[0].CreatedAt)
	}
	if items[0].Author.ID != me {
		t.Error("author should fall back to the acting user")
	}
}

func TestPostService_CreatePost_PatchesProfileViews(t *testing.T) {
	st := cache.NewStore()
	st.Put(view.ProfileFeedKey(me), feedOf(model.Post{ID: 1}))
	st.Put(view.ProfileKey(me), model.UserSummary{ID: me, PostCount: 1})

	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), &mockPostAPI{})
	if _, err := svc.CreatePost(context.Background(), "hello"); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if items := feedAt(t, st, view.ProfileFeedKey(me)).Items(); len(items) != 2 || items[0].ID != 100 {
		t.Errorf("profile feed = %+v, want post 100 first", items)
	}
	u, _ := cache.GetEntry[model.UserSummary](st, view.ProfileKey(me))
	if u.PostCount != 2 {
		t.Errorf("PostCount = %d, want 2", u.PostCount)
	}
}

func TestPostService_CreatePost_RollbackRestores(t *testing.T) {
	st := cache.NewStore()
	seedFeed(st)
	st.Put(view.ProfileKey(me), model.UserSummary{ID: me, PostCount: 3})
	before := feedAt(t, st, view.FeedKey())

	remoteErr := errors.New("server unavailable")
	api := &mockPostAPI{
		createPostFn: func(ctx context.Context, content string) (*model.Post, error) {
			return nil, remoteErr
		},
	}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)

	_, err := svc.CreatePost(context.Background(), "hello")

	var rejection *model.RemoteRejection
	if !errors.As(err, &rejection) {
		t.Fatalf("err = %v, want *RemoteRejection", err)
	}
	if !errors.Is(err, remoteErr) {
		t.Errorf("err should wrap the remote cause")
	}

	after := feedAt(t, st, view.FeedKey())
	if len(after.Items()) != len(before.Items()) {
		t.Errorf("feed has %d posts after rollback, want %d", len(after.Items()), len(before.Items()))
	}
	for i, p := range after.Items() {
		if p != before.Items()[i] {
			t.Errorf("items[%d] = %+v, want %+v", i, p, before.Items()[i])
		}
	}
	u, _ := cache.GetEntry[model.UserSummary](st, view.ProfileKey(me))
	if u.PostCount != 3 {
		t.Errorf("PostCount = %d, want 3", u.PostCount)
	}
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty", "", model.ErrContentEmpty},
		{"too long", string(make([]rune, 141)), model.ErrContentTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := cache.NewStore()
			seedFeed(st)
			api := &mockPostAPI{}
			svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)

			_, err := svc.CreatePost(context.Background(), tt.content)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, model.ErrValidation) {
				t.Error("err should be a validation error")
			}
			if creates, _ := api.calls(); creates != 0 {
				t.Errorf("remote called %d times, want 0", creates)
			}
			if n := len(feedAt(t, st, view.FeedKey()).Items()); n != 3 {
				t.Errorf("feed has %d posts, want 3", n)
			}
		})
	}
}

func TestPostService_CreatePost_CountsCodePoints(t *testing.T) {
	st := cache.NewStore()
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), &mockPostAPI{})

	// 140 multi-byte characters is within the limit.
	content := ""
	for i := 0; i < 140; i++ {
		content += "é"
	}
	if _, err := svc.CreatePost(context.Background(), content); err != nil {
		t.Errorf("CreatePost(140 runes) failed: %v", err)
	}
}

func TestPostService_CreatePost_Unauthenticated(t *testing.T) {
	st := cache.NewStore()
	seedFeed(st)
	api := &mockPostAPI{}
	svc := NewPostService(optimistic.NewExecutor(st), identity.Static{}, api)

	_, err := svc.CreatePost(context.Background(), "hello")

	if !errors.Is(err, model.ErrPrecondition) {
		t.Errorf("err = %v, want precondition error", err)
	}
	if creates, _ := api.calls(); creates != 0 {
		t.Errorf("remote called %d times, want 0", creates)
	}
	if n := len(feedAt(t, st, view.FeedKey()).Items()); n != 3 {
		t.Errorf("feed has %d posts, want 3", n)
	}
}

func TestPostService_CreatePost_PublishesAfterCommit(t *testing.T) {
	st := cache.NewStore()
	pub := &mockPublisher{}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), &mockPostAPI{})
	svc.SetPublisher(pub, "instance-a")

	if _, err := svc.CreatePost(context.Background(), "hello"); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	// AfterCommit runs after Wait returns.
	deadline := time.Now().Add(time.Second)
	for len(pub.Events()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	events := pub.Events()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	if events[0].Type != queue.EventPostCreated || events[0].PostID != 100 || events[0].Origin != "instance-a" {
		t.Errorf("event = %+v", events[0])
	}
}

// =============================================================================
// TOGGLE LIKE TESTS
// =============================================================================

func TestPostService_ToggleLike_RollbackOnRejection(t *testing.T) {
	st := cache.NewStore()
	seedFeed(st)
	st.Put(view.PostKey(3), model.Post{ID: 3, LikeCount: 5})

	release := make(chan struct{})
	api := &mockPostAPI{
		setLikeFn: func(ctx context.Context, postID int64, liked bool) (*model.LikeResult, error) {
			<-release
			return nil, errors.New("conflict")
		},
	}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)

	pending, err := svc.StartToggleLike(context.Background(), 3)
	if err != nil {
		t.Fatalf("StartToggleLike failed: %v", err)
	}

	p, _ := view.FindPost(feedAt(t, st, view.FeedKey()), 3)
	if p.LikeCount != 6 || !p.LikedByMe {
		t.Errorf("optimistic feed post = (%d, %v), want (6, true)", p.LikeCount, p.LikedByMe)
	}
	one, _ := cache.GetEntry[model.Post](st, view.PostKey(3))
	if one.LikeCount != 6 || !one.LikedByMe {
		t.Errorf("optimistic lookup = (%d, %v), want (6, true)", one.LikeCount, one.LikedByMe)
	}

	close(release)
	if _, err := waitDone(t, pending); err == nil {
		t.Fatal("expected remote rejection")
	}

	p, _ = view.FindPost(feedAt(t, st, view.FeedKey()), 3)
	if p.LikeCount != 5 || p.LikedByMe {
		t.Errorf("rolled back feed post = (%d, %v), want (5, false)", p.LikeCount, p.LikedByMe)
	}
	one, _ = cache.GetEntry[model.Post](st, view.PostKey(3))
	if one.LikeCount != 5 || one.LikedByMe {
		t.Errorf("rolled back lookup = (%d, %v), want (5, false)", one.LikeCount, one.LikedByMe)
	}

	_, likes := api.calls()
	if len(likes) != 1 || !likes[0].Liked {
		t.Errorf("like calls = %+v, want one like", likes)
	}
}

func TestPostService_ToggleLike_Unlike(t *testing.T) {
	st := cache.NewStore()
	st.Put(view.FeedKey(), feedOf(model.Post{ID: 7, LikeCount: 2, LikedByMe: true}))
	api := &mockPostAPI{}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)

	result, err := svc.ToggleLike(context.Background(), 7)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if result.Liked {
		t.Error("result.Liked = true, want false")
	}
	_, likes := api.calls()
	if len(likes) != 1 || likes[0].Liked {
		t.Errorf("like calls = %+v, want one unlike", likes)
	}
	p, _ := view.FindPost(feedAt(t, st, view.FeedKey()), 7)
	if p.LikeCount != 1 || p.LikedByMe {
		t.Errorf("post = (%d, %v), want (1, false)", p.LikeCount, p.LikedByMe)
	}
}

func TestPostService_ToggleLike_CommitAlignsToServer(t *testing.T) {
	st := cache.NewStore()
	seedFeed(st)
	api := &mockPostAPI{
		setLikeFn: func(ctx context.Context, postID int64, liked bool) (*model.LikeResult, error) {
			// Server already had the post unliked by us.
			return &model.LikeResult{PostID: postID, Liked: false}, nil
		},
	}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)

	if _, err := svc.ToggleLike(context.Background(), 3); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}

	p, _ := view.FindPost(feedAt(t, st, view.FeedKey()), 3)
	if p.LikeCount != 5 || p.LikedByMe {
		t.Errorf("post = (%d, %v), want (5, false)", p.LikeCount, p.LikedByMe)
	}
}

func TestPostService_ToggleLike_AllPaginatedViews(t *testing.T) {
	st := cache.NewStore()
	seedFeed(st)
	st.Put(view.ProfileFeedKey(9), feedOf(model.Post{ID: 3, LikeCount: 5}))
	st.Put(view.ProfileFeedKey(8), feedOf(model.Post{ID: 4, LikeCount: 1}))
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), &mockPostAPI{})

	if _, err := svc.ToggleLike(context.Background(), 3); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}

	for _, key := range []cache.Key{view.FeedKey(), view.ProfileFeedKey(9)} {
		p, _ := view.FindPost(feedAt(t, st, key), 3)
		if p.LikeCount != 6 || !p.LikedByMe {
			t.Errorf("%s: post = (%d, %v), want (6, true)", key, p.LikeCount, p.LikedByMe)
		}
	}
	other, _ := view.FindPost(feedAt(t, st, view.ProfileFeedKey(8)), 4)
	if other.LikeCount != 1 || other.LikedByMe {
		t.Error("view without the post should be untouched")
	}
}

func TestPostService_ToggleLike_NotCached(t *testing.T) {
	api := &mockPostAPI{}
	svc := NewPostService(optimistic.NewExecutor(cache.NewStore()), signedIn(), api)

	_, err := svc.ToggleLike(context.Background(), 42)
	if !errors.Is(err, model.ErrPostNotCached) {
		t.Errorf("err = %v, want %v", err, model.ErrPostNotCached)
	}
	if _, likes := api.calls(); len(likes) != 0 {
		t.Error("remote should not be called")
	}
}

func TestPostService_ToggleLike_OverlappingTogglesSettle(t *testing.T) {
	st := cache.NewStore()
	seedFeed(st)

	first := make(chan struct{})
	api := &mockPostAPI{
		setLikeFn: func(ctx context.Context, postID int64, liked bool) (*model.LikeResult, error) {
			if liked {
				<-first
				return nil, errors.New("timeout")
			}
			return &model.LikeResult{PostID: postID, Liked: false}, nil
		},
	}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)

	likePending, err := svc.StartToggleLike(context.Background(), 3)
	if err != nil {
		t.Fatalf("like failed: %v", err)
	}
	if _, err := svc.ToggleLike(context.Background(), 3); err != nil {
		t.Fatalf("unlike failed: %v", err)
	}
	close(first)
	waitDone(t, likePending)

	p, _ := view.FindPost(feedAt(t, st, view.FeedKey()), 3)
	if p.LikeCount != 5 || p.LikedByMe {
		t.Errorf("post = (%d, %v), want (5, false)", p.LikeCount, p.LikedByMe)
	}
}

func TestPostService_CreatePost_RollbackRestoresEmptyProfileFeed(t *testing.T) {
	st := cache.NewStore()
	var resp model.FeedPage
	if err := json.Unmarshal([]byte(`{"posts":[],"has_more":false}`), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	st.Put(view.ProfileFeedKey(me), &view.Feed{Pages: []view.FeedPage{view.PageFromResponse(&resp)}})
	before := feedAt(t, st, view.ProfileFeedKey(me))

	api := &mockPostAPI{
		createPostFn: func(ctx context.Context, content string) (*model.Post, error) {
			return nil, errors.New("server unavailable")
		},
	}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)

	if _, err := svc.CreatePost(context.Background(), "first post"); err == nil {
		t.Fatal("expected rejection")
	}

	after := feedAt(t, st, view.ProfileFeedKey(me))
	if !reflect.DeepEqual(after, before) {
		t.Errorf("profile feed = %+v, want %+v", after, before)
	}
}

func TestPostService_CreatePost_RollbackSkipsRefetchedProfile(t *testing.T) {
	st := cache.NewStore()
	st.Put(view.ProfileKey(me), model.UserSummary{ID: me, PostCount: 3})

	release := make(chan struct{})
	api := &mockPostAPI{
		createPostFn: func(ctx context.Context, content string) (*model.Post, error) {
			<-release
			return nil, errors.New("server unavailable")
		},
	}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)

	pending, err := svc.StartCreatePost(context.Background(), "hello")
	if err != nil {
		t.Fatalf("StartCreatePost: %v", err)
	}

	// A background refetch lands the server's count while the create is pending.
	st.Put(view.ProfileKey(me), model.UserSummary{ID: me, PostCount: 3})
	close(release)
	if _, err := waitDone(t, pending); err == nil {
		t.Fatal("expected rejection")
	}

	u, _ := cache.GetEntry[model.UserSummary](st, view.ProfileKey(me))
	if u.PostCount != 3 {
		t.Errorf("PostCount = %d, want 3", u.PostCount)
	}
}

func TestPostService_ToggleLike_SignOutDiscardsCompletion(t *testing.T) {
	st := cache.NewStore()
	seedFeed(st)

	release := make(chan struct{})
	api := &mockPostAPI{
		setLikeFn: func(ctx context.Context, postID int64, liked bool) (*model.LikeResult, error) {
			<-release
			return &model.LikeResult{PostID: postID, Liked: liked}, nil
		},
	}
	svc := NewPostService(optimistic.NewExecutor(st), signedIn(), api)
	feeds := NewFeedService(st, &mockQueryAPI{}, signedIn(), 10)

	pending, err := svc.StartToggleLike(context.Background(), 3)
	if err != nil {
		t.Fatalf("StartToggleLike: %v", err)
	}

	// Sign out, then the next user loads the same feed.
	feeds.Invalidate()
	seedFeed(st)

	close(release)
	if _, err := waitDone(t, pending); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}

	p, ok := view.FindPost(feedAt(t, st, view.FeedKey()), 3)
	if !ok {
		t.Fatal("post 3 missing")
	}
	if p.LikeCount != 5 || p.LikedByMe {
		t.Errorf("post = (%d, %v), want (5, false)", p.LikeCount, p.LikedByMe)
	}
}
