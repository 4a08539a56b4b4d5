package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
)

const issuanceLockPrefix = "navicf:lock:certificate:"

// IssuanceState is the lifecycle of one enrollment's certificate issuance.
type IssuanceState int

const (
	IssuanceIdle IssuanceState = iota
	IssuanceInProgress
	IssuanceSucceeded
	IssuanceFailed
)

func (s IssuanceState) String() string {
	switch s {
	case IssuanceIdle:
		return "idle"
	case IssuanceInProgress:
		return "in_progress"
	case IssuanceSucceeded:
		return "succeeded"
	case IssuanceFailed:
		return "failed"
	}
	return fmt.Sprintf("IssuanceState(%d)", int(s))
}

// canTransition lists the allowed moves. Finished issuances are forgotten,
// so a retry after a failure starts again from Idle.
func canTransition(from, to IssuanceState) bool {
	switch to {
	case IssuanceInProgress:
		return from == IssuanceIdle
	case IssuanceSucceeded, IssuanceFailed:
		return from == IssuanceInProgress
	}
	return false
}

type issuanceLock interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// IssuanceTracker rejects a second issuance for an enrollment while one is
// running. The in-memory state machine covers a single process; the optional
// lock extends the guard across instances. Only in-flight enrollments are
// held: Finish validates the outcome and forgets the entry, leaving the
// pendiente guard on the record as the only memory of a finished issuance.
type IssuanceTracker struct {
	mu     sync.Mutex
	states map[string]IssuanceState
	lock   issuanceLock
	ttl    time.Duration
	logger *zap.Logger
}

// NewIssuanceTracker constructs a tracker. lock may be nil.
func NewIssuanceTracker(lock issuanceLock, ttl time.Duration, logger *zap.Logger) *IssuanceTracker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssuanceTracker{states: make(map[string]IssuanceState), lock: lock, ttl: ttl, logger: logger}
}

// IssuanceTicket is held by the request that won Begin.
type IssuanceTicket struct {
	tracker      *IssuanceTracker
	enrollmentID string
	token        string
	locked       bool
}

// State reports the current state of enrollmentID.
func (t *IssuanceTracker) State(enrollmentID string) IssuanceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[enrollmentID]
}

// Begin moves enrollmentID to InProgress, failing with CONFLICT when it is
// already in flight here or on another instance.
func (t *IssuanceTracker) Begin(ctx context.Context, enrollmentID string) (*IssuanceTicket, error) {
	previous, err := t.transition(enrollmentID, IssuanceInProgress)
	if err != nil {
		return nil, err
	}

	ticket := &IssuanceTicket{tracker: t, enrollmentID: enrollmentID, token: uuid.NewString()}
	if t.lock == nil {
		return ticket, nil
	}

	acquired, err := t.lock.AcquireLock(ctx, issuanceLockPrefix+enrollmentID, ticket.token, t.ttl)
	if err != nil || !acquired {
		t.restore(enrollmentID, previous)
		if err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to acquire issuance lock")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "certificate issuance already in progress")
	}
	ticket.locked = true
	return ticket, nil
}

// Finish records the outcome and releases the cross-instance lock.
func (k *IssuanceTicket) Finish(ctx context.Context, succeeded bool) error {
	if k == nil {
		return nil
	}
	next := IssuanceFailed
	if succeeded {
		next = IssuanceSucceeded
	}
	err := k.tracker.settle(k.enrollmentID, next)

	if k.locked {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := k.tracker.lock.ReleaseLock(releaseCtx, issuanceLockPrefix+k.enrollmentID, k.token); relErr != nil {
			k.tracker.logger.Warn("failed to release issuance lock", zap.String("enrollment_id", k.enrollmentID), zap.Error(relErr))
		}
		k.locked = false
	}
	return err
}

func (t *IssuanceTracker) transition(enrollmentID string, to IssuanceState) (IssuanceState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	from := t.states[enrollmentID]
	if !canTransition(from, to) {
		if from == IssuanceInProgress {
			return from, appErrors.Clone(appErrors.ErrConflict, "certificate issuance already in progress")
		}
		return from, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("invalid issuance transition %s -> %s", from, to))
	}
	t.states[enrollmentID] = to
	return from, nil
}

// settle applies the final transition and drops the entry.
func (t *IssuanceTracker) settle(enrollmentID string, outcome IssuanceState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	from := t.states[enrollmentID]
	if !canTransition(from, outcome) {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("invalid issuance transition %s -> %s", from, outcome))
	}
	delete(t.states, enrollmentID)
	return nil
}

func (t *IssuanceTracker) restore(enrollmentID string, state IssuanceState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state == IssuanceIdle {
		delete(t.states, enrollmentID)
		return
	}
	t.states[enrollmentID] = state
}
