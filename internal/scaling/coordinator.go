// Package scaling tracks optimistic scale operations for replica-backed
// workloads. A session is created when the user asks for a new replica
// count, the target is shown immediately, and the session resolves when the
// cluster's reported status converges on the target, the dispatch fails, or
// the reconcile window elapses.
package scaling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultReconcileWindow is how long a session may stay Reconciling before
// it is forced to TimedOut. Matches the frontend's in-progress indicator.
const DefaultReconcileWindow = 15 * time.Second

// Rejection errors. None of these produce a dispatch call.
var (
	ErrScaleInProgress = errors.New("a scale operation is already in progress for this resource")
	ErrBelowZero       = errors.New("cannot scale below zero replicas")
	ErrNotScalable     = errors.New("resource kind does not support scaling")
)

// scalableKinds are the workload kinds with a scale subresource.
// DaemonSet and friends never construct a session.
var scalableKinds = map[string]bool{
	"Deployment":  true,
	"StatefulSet": true,
	"ReplicaSet":  true,
}

// IsScalable reports whether kind supports a replica count.
func IsScalable(kind string) bool {
	return scalableKinds[kind]
}

// ResourceRef identifies a single workload instance.
type ResourceRef struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

func (r ResourceRef) key() string {
	return r.Kind + "/" + r.Namespace + "/" + r.Name
}

func (r ResourceRef) String() string {
	if r.Namespace == "" {
		return r.Kind + "/" + r.Name
	}
	return r.Kind + "/" + r.Namespace + "/" + r.Name
}

// ScaleRequest is a user-issued scale intent.
type ScaleRequest struct {
	Ref            ResourceRef `json:"ref"`
	TargetReplicas int32       `json:"targetReplicas"`
}

// SessionStatus is the lifecycle state of a scaling session.
type SessionStatus string

const (
	StatusPending     SessionStatus = "Pending"
	StatusReconciling SessionStatus = "Reconciling"
	StatusCompleted   SessionStatus = "Completed"
	StatusFailed      SessionStatus = "Failed"
	StatusTimedOut    SessionStatus = "TimedOut"
)

// Active reports whether the session still blocks new scale requests.
func (s SessionStatus) Active() bool {
	return s == StatusPending || s == StatusReconciling
}

// Session is the unit of truth for one in-flight scale operation. Desired
// mirrors the request target from the moment the session is created and
// never reverts until the session resolves.
type Session struct {
	Request   ScaleRequest  `json:"request"`
	Desired   int32         `json:"desiredReplicas"`
	StartedAt time.Time     `json:"startedAt"`
	Status    SessionStatus `json:"status"`
}

// ReplicaStatus is a backend-reported replica snapshot. Fields are pointers
// so a status that omits a field is never mistaken for a converged one.
type ReplicaStatus struct {
	Ready     *int32 `json:"readyReplicas,omitempty"`
	Available *int32 `json:"availableReplicas,omitempty"`
	Updated   *int32 `json:"updatedReplicas,omitempty"`
}

// Converged reports whether the snapshot has reached target. The full rule
// requires ready, available, and updated all present and equal to target; a
// minimal status carrying only updated converges on updated == target.
func (s ReplicaStatus) Converged(target int32) bool {
	if s.Updated == nil || *s.Updated != target {
		return false
	}
	if s.Ready == nil && s.Available == nil {
		return true
	}
	if s.Ready == nil || s.Available == nil {
		return false
	}
	return *s.Ready == target && *s.Available == target
}

// Dispatcher performs the backend scale call. It is the coordinator's single
// asynchronous boundary.
type Dispatcher interface {
	ScaleResource(ctx context.Context, ref ResourceRef, replicas int32) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, ref ResourceRef, replicas int32) error

func (f DispatcherFunc) ScaleResource(ctx context.Context, ref ResourceRef, replicas int32) error {
	return f(ctx, ref, replicas)
}

// Coordinator manages at most one active session per resource. All methods
// are safe for concurrent use; OnStatusUpdate and CheckTimeouts may be
// invoked at any time, including while a dispatch is in flight.
type Coordinator struct {
	mu       sync.Mutex
	sessions map[string]*Session

	dispatcher Dispatcher
	window     time.Duration

	onScaled   func(ref ResourceRef, replicas int32)
	onResolved func(s Session)

	now func() time.Time
}

// NewCoordinator creates a coordinator. A window of 0 uses
// DefaultReconcileWindow.
func NewCoordinator(dispatcher Dispatcher, window time.Duration) *Coordinator {
	if window <= 0 {
		window = DefaultReconcileWindow
	}
	return &Coordinator{
		sessions:   make(map[string]*Session),
		dispatcher: dispatcher,
		window:     window,
		now:        time.Now,
	}
}

// OnScaled registers the callback fired once per completed session with the
// achieved replica count. Call before the coordinator is in use.
func (c *Coordinator) OnScaled(fn func(ref ResourceRef, replicas int32)) {
	c.onScaled = fn
}

// OnResolved registers a callback fired on every terminal transition
// (Completed, Failed, TimedOut), e.g. for history recording.
func (c *Coordinator) OnResolved(fn func(s Session)) {
	c.onResolved = fn
}

// ScaleUp requests current+1 replicas.
func (c *Coordinator) ScaleUp(ctx context.Context, ref ResourceRef, current int32) (int32, error) {
	return c.scale(ctx, ref, current+1)
}

// ScaleDown requests current-1 replicas, rejecting a move below zero.
func (c *Coordinator) ScaleDown(ctx context.Context, ref ResourceRef, current int32) (int32, error) {
	if current <= 0 {
		return 0, ErrBelowZero
	}
	return c.scale(ctx, ref, current-1)
}

func (c *Coordinator) scale(ctx context.Context, ref ResourceRef, target int32) (int32, error) {
	if !IsScalable(ref.Kind) {
		return 0, fmt.Errorf("%w: %s", ErrNotScalable, ref.Kind)
	}

	c.mu.Lock()
	if existing, ok := c.sessions[ref.key()]; ok && existing.Status.Active() {
		c.mu.Unlock()
		return existing.Desired, ErrScaleInProgress
	}
	sess := &Session{
		Request:   ScaleRequest{Ref: ref, TargetReplicas: target},
		Desired:   target,
		StartedAt: c.now(),
		Status:    StatusPending,
	}
	c.sessions[ref.key()] = sess
	c.mu.Unlock()

	// Dispatch outside the lock; the Pending session is the exclusion gate.
	if err := c.dispatcher.ScaleResource(ctx, ref, target); err != nil {
		c.resolve(ref, StatusFailed)
		return 0, fmt.Errorf("scale %s to %d: %w", ref, target, err)
	}

	c.mu.Lock()
	if cur, ok := c.sessions[ref.key()]; ok && cur == sess && cur.Status == StatusPending {
		cur.Status = StatusReconciling
	}
	c.mu.Unlock()
	return target, nil
}

// OnStatusUpdate feeds a replica snapshot for ref. Snapshots with no
// tracking session, duplicates, and partial statuses are ignored. A
// snapshot that converges on the session's desired count completes the
// session and fires the scaled notification exactly once.
func (c *Coordinator) OnStatusUpdate(ref ResourceRef, status ReplicaStatus) {
	c.mu.Lock()
	sess, ok := c.sessions[ref.key()]
	if !ok || sess.Status != StatusReconciling || !status.Converged(sess.Desired) {
		c.mu.Unlock()
		return
	}
	sess.Status = StatusCompleted
	resolved := *sess
	delete(c.sessions, ref.key())
	onScaled, onResolved := c.onScaled, c.onResolved
	c.mu.Unlock()

	if onScaled != nil {
		onScaled(ref, resolved.Desired)
	}
	if onResolved != nil {
		onResolved(resolved)
	}
}

// CheckTimeouts forces sessions that have been Reconciling longer than the
// window to TimedOut and clears them. Timeout is recovery, not an error: no
// scaled notification fires.
func (c *Coordinator) CheckTimeouts() {
	now := c.now()

	c.mu.Lock()
	var expired []Session
	for key, sess := range c.sessions {
		if sess.Status == StatusReconciling && now.Sub(sess.StartedAt) > c.window {
			sess.Status = StatusTimedOut
			expired = append(expired, *sess)
			delete(c.sessions, key)
		}
	}
	onResolved := c.onResolved
	c.mu.Unlock()

	for _, sess := range expired {
		if onResolved != nil {
			onResolved(sess)
		}
	}
}

// Run drives CheckTimeouts on a ticker until ctx is cancelled. The caller
// owns the loop's lifecycle; there is no process-wide timer registry.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckTimeouts()
		}
	}
}

// Session returns a copy of the active session for ref, if any.
func (c *Coordinator) Session(ref ResourceRef) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[ref.key()]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// InProgress reports whether ref has an active session (controls disabled).
func (c *Coordinator) InProgress(ref ResourceRef) bool {
	sess, ok := c.Session(ref)
	return ok && sess.Status.Active()
}

// resolve moves the session for ref to a terminal status and clears it.
func (c *Coordinator) resolve(ref ResourceRef, status SessionStatus) {
	c.mu.Lock()
	sess, ok := c.sessions[ref.key()]
	if !ok {
		c.mu.Unlock()
		return
	}
	sess.Status = status
	resolved := *sess
	delete(c.sessions, ref.key())
	onResolved := c.onResolved
	c.mu.Unlock()

	if onResolved != nil {
		onResolved(resolved)
	}
}
