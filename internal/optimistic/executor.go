// Package optimistic runs a single logical write as an optimistic mutation:
// the local cache patch is applied before the remote call is dispatched, and
// the remote outcome either reconciles the patch or rolls it back.
package optimistic

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedsync/internal/cache"
	"feedsync/internal/model"
)

// State is the lifecycle state of one mutation invocation.
type State int

const (
	StatePending State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Mutation describes one optimistic write.
type Mutation[R any] struct {
	// Name identifies the action in logs, errors and the journal.
	Name string

	// Apply is the local patch. It runs synchronously, before Call.
	Apply func(s *cache.Store)

	// Call is the remote write. It runs at most once.
	Call func(ctx context.Context) (R, error)

	// Commit reconciles the cache with the authoritative result.
	Commit func(s *cache.Store, result R)

	// Rollback is the exact inverse of Apply.
	Rollback func(s *cache.Store)

	// AfterCommit runs after Commit, e.g. to announce the write. Optional.
	AfterCommit func(ctx context.Context, result R)
}

// Journal persists the lifecycle of each mutation.
type Journal interface {
	Create(ctx context.Context, id uuid.UUID, name string) error
	UpdateState(ctx context.Context, id uuid.UUID, state string, errMsg *string) error
}

// Executor applies mutations against a shared store.
type Executor struct {
	store   *cache.Store
	journal Journal
}

// NewExecutor creates an executor bound to store.
func NewExecutor(store *cache.Store) *Executor {
	return &Executor{store: store}
}

// SetJournal sets the mutation journal (optional).
func (e *Executor) SetJournal(j Journal) {
	e.journal = j
}

// Store returns the store the executor patches.
func (e *Executor) Store() *cache.Store {
	return e.store
}

// Pending is a handle on an in-flight mutation.
type Pending[R any] struct {
	ID   uuid.UUID
	Name string

	done chan struct{}

	mu     sync.Mutex
	state  State
	result R
	err    error
}

// Done is closed once the mutation reaches a terminal state.
func (p *Pending[R]) Done() <-chan struct{} {
	return p.done
}

// State returns the current lifecycle state.
func (p *Pending[R]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Wait blocks until the mutation completes or ctx is done. Giving up on ctx
// does not stop the mutation; its commit or rollback is still applied.
func (p *Pending[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, p.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

func (p *Pending[R]) finish(state State, result R, err error) {
	p.mu.Lock()
	p.state = state
	p.result = result
	p.err = err
	p.mu.Unlock()
	close(p.done)
}

// Start applies the local patch, then dispatches the remote call in the
// background. When Start returns, the patched state is already visible in the
// store.
//
// The remote call runs detached from ctx cancellation so a caller that goes
// away mid-flight still gets its commit or rollback applied to the store.
// If the store is cleared while the call is in flight, the commit or rollback
// is dropped: the entries it was meant for no longer exist.
func Start[R any](ctx context.Context, e *Executor, m Mutation[R]) *Pending[R] {
	p := &Pending[R]{
		ID:    uuid.New(),
		Name:  m.Name,
		state: StatePending,
		done:  make(chan struct{}),
	}

	epoch := e.store.Begin(m.Apply)
	log.Printf("[Executor] %s PENDING: id=%s", m.Name, p.ID)

	go complete(context.WithoutCancel(ctx), e, p, m, epoch)
	return p
}

// Run is Start followed by Wait.
func Run[R any](ctx context.Context, e *Executor, m Mutation[R]) (R, error) {
	return Start(ctx, e, m).Wait(ctx)
}

func complete[R any](ctx context.Context, e *Executor, p *Pending[R], m Mutation[R], epoch uint64) {
	startTime := time.Now()

	if e.journal != nil {
		if err := e.journal.Create(ctx, p.ID, m.Name); err != nil {
			log.Printf("[Executor] journal create failed: id=%s err=%v", p.ID, err)
		}
	}

	result, err := m.Call(ctx)
	if err != nil {
		if !e.store.Within(epoch, m.Rollback) {
			log.Printf("[Executor] %s rollback discarded, cache cleared: id=%s", m.Name, p.ID)
		}
		rejection := &model.RemoteRejection{Mutation: m.Name, Err: err}
		log.Printf("[Executor] %s ROLLED BACK: id=%s duration=%v err=%v",
			m.Name, p.ID, time.Since(startTime), err)

		e.recordState(ctx, p.ID, StateRolledBack, rejection)
		var zero R
		p.finish(StateRolledBack, zero, rejection)
		return
	}

	var commit func(*cache.Store)
	if m.Commit != nil {
		commit = func(st *cache.Store) { m.Commit(st, result) }
	}
	if !e.store.Within(epoch, commit) {
		log.Printf("[Executor] %s commit discarded, cache cleared: id=%s", m.Name, p.ID)
	}
	log.Printf("[Executor] %s COMMITTED: id=%s duration=%v", m.Name, p.ID, time.Since(startTime))

	e.recordState(ctx, p.ID, StateCommitted, nil)
	p.finish(StateCommitted, result, nil)

	if m.AfterCommit != nil {
		m.AfterCommit(ctx, result)
	}
}

func (e *Executor) recordState(ctx context.Context, id uuid.UUID, state State, cause error) {
	if e.journal == nil {
		return
	}
	var errMsg *string
	if cause != nil {
		msg := cause.Error()
		errMsg = &msg
	}
	if err := e.journal.UpdateState(ctx, id, state.String(), errMsg); err != nil {
		log.Printf("[Executor] journal update failed: id=%s state=%s err=%v", id, state, err)
	}
}
