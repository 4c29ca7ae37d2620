package scaling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []ScaleRequest
	err   error
	// onDispatch runs inside ScaleResource, before it returns. Used to
	// interleave status updates with an in-flight dispatch.
	onDispatch func()
}

func (f *fakeDispatcher) ScaleResource(_ context.Context, ref ResourceRef, replicas int32) error {
	f.mu.Lock()
	f.calls = append(f.calls, ScaleRequest{Ref: ref, TargetReplicas: replicas})
	f.mu.Unlock()
	if f.onDispatch != nil {
		f.onDispatch()
	}
	return f.err
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func int32p(v int32) *int32 { return &v }

func deployRef() ResourceRef {
	return ResourceRef{Kind: "Deployment", Namespace: "default", Name: "web"}
}

func TestScaleUpDispatchesTargetPlusOne(t *testing.T) {
	for _, kind := range []string{"Deployment", "StatefulSet", "ReplicaSet"} {
		d := &fakeDispatcher{}
		c := NewCoordinator(d, 0)
		ref := ResourceRef{Kind: kind, Namespace: "default", Name: "web"}

		target, err := c.ScaleUp(context.Background(), ref, 3)
		require.NoError(t, err)
		assert.Equal(t, int32(4), target)
		require.Len(t, d.calls, 1)
		assert.Equal(t, int32(4), d.calls[0].TargetReplicas)
		assert.Equal(t, ref, d.calls[0].Ref)

		sess, ok := c.Session(ref)
		require.True(t, ok)
		assert.Equal(t, int32(4), sess.Desired)
		assert.Equal(t, StatusReconciling, sess.Status)
	}
}

func TestDesiredIsVisibleBeforeDispatchReturns(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)
	ref := deployRef()

	var midDispatch Session
	var midOK bool
	d.onDispatch = func() {
		midDispatch, midOK = c.Session(ref)
	}

	_, err := c.ScaleUp(context.Background(), ref, 2)
	require.NoError(t, err)
	require.True(t, midOK, "session should exist while dispatch is in flight")
	assert.Equal(t, int32(3), midDispatch.Desired)
	assert.Equal(t, StatusPending, midDispatch.Status)
}

func TestScaleDownAtZeroIsRejectedWithoutDispatch(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)

	_, err := c.ScaleDown(context.Background(), deployRef(), 0)
	assert.ErrorIs(t, err, ErrBelowZero)
	assert.Zero(t, d.callCount())
}

func TestScaleDownDispatchesTargetMinusOne(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)

	target, err := c.ScaleDown(context.Background(), deployRef(), 2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), target)
	require.Len(t, d.calls, 1)
	assert.Equal(t, int32(1), d.calls[0].TargetReplicas)
}

func TestNonScalableKindIsRejected(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)
	ref := ResourceRef{Kind: "DaemonSet", Namespace: "kube-system", Name: "proxy"}

	_, err := c.ScaleUp(context.Background(), ref, 1)
	assert.ErrorIs(t, err, ErrNotScalable)
	assert.Zero(t, d.callCount())
	assert.False(t, c.InProgress(ref))
}

func TestSecondScaleWhileInProgressProducesNoDispatch(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)
	ref := deployRef()

	_, err := c.ScaleUp(context.Background(), ref, 1)
	require.NoError(t, err)
	require.Equal(t, 1, d.callCount())

	_, err = c.ScaleUp(context.Background(), ref, 2)
	assert.ErrorIs(t, err, ErrScaleInProgress)
	_, err = c.ScaleDown(context.Background(), ref, 2)
	assert.ErrorIs(t, err, ErrScaleInProgress)
	assert.Equal(t, 1, d.callCount())

	// Desired still reflects the first request.
	sess, ok := c.Session(ref)
	require.True(t, ok)
	assert.Equal(t, int32(2), sess.Desired)
}

func TestDispatchFailureClearsSessionAndSurfacesError(t *testing.T) {
	dispatchErr := errors.New("deployments.apps \"web\" is forbidden")
	d := &fakeDispatcher{err: dispatchErr}
	c := NewCoordinator(d, 0)
	ref := deployRef()

	var resolved []Session
	c.OnResolved(func(s Session) { resolved = append(resolved, s) })

	_, err := c.ScaleUp(context.Background(), ref, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, dispatchErr)
	assert.Contains(t, err.Error(), "forbidden")

	// Session cleared; controls re-enable and a retry dispatches again.
	assert.False(t, c.InProgress(ref))
	require.Len(t, resolved, 1)
	assert.Equal(t, StatusFailed, resolved[0].Status)

	d.err = nil
	_, err = c.ScaleUp(context.Background(), ref, 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, d.callCount())
}

func TestMatchingSnapshotCompletesAndEmitsScaledOnce(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)
	ref := deployRef()

	var scaled []int32
	c.OnScaled(func(_ ResourceRef, replicas int32) { scaled = append(scaled, replicas) })

	_, err := c.ScaleUp(context.Background(), ref, 3)
	require.NoError(t, err)

	// Partial convergence: updated at target, ready/available lagging.
	c.OnStatusUpdate(ref, ReplicaStatus{Ready: int32p(3), Available: int32p(3), Updated: int32p(4)})
	sess, ok := c.Session(ref)
	require.True(t, ok)
	assert.Equal(t, StatusReconciling, sess.Status)
	assert.Empty(t, scaled)

	c.OnStatusUpdate(ref, ReplicaStatus{Ready: int32p(4), Available: int32p(4), Updated: int32p(4)})
	assert.Equal(t, []int32{4}, scaled)
	assert.False(t, c.InProgress(ref))

	// A duplicate snapshot after resolution is ignored.
	c.OnStatusUpdate(ref, ReplicaStatus{Ready: int32p(4), Available: int32p(4), Updated: int32p(4)})
	assert.Equal(t, []int32{4}, scaled)
}

func TestMinimalStatusConvergesOnUpdatedAlone(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)
	ref := ResourceRef{Kind: "ReplicaSet", Namespace: "default", Name: "web-abc"}

	var scaled []int32
	c.OnScaled(func(_ ResourceRef, replicas int32) { scaled = append(scaled, replicas) })

	_, err := c.ScaleUp(context.Background(), ref, 1)
	require.NoError(t, err)

	c.OnStatusUpdate(ref, ReplicaStatus{Updated: int32p(2)})
	assert.Equal(t, []int32{2}, scaled)
}

func TestPartialStatusNeverConverges(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)
	ref := deployRef()

	_, err := c.ScaleUp(context.Background(), ref, 1)
	require.NoError(t, err)

	// Missing fields are never read as matching the target.
	c.OnStatusUpdate(ref, ReplicaStatus{Ready: int32p(2), Updated: int32p(2)})
	c.OnStatusUpdate(ref, ReplicaStatus{Ready: int32p(2), Available: int32p(2)})
	c.OnStatusUpdate(ref, ReplicaStatus{})
	assert.True(t, c.InProgress(ref))
}

func TestSnapshotWithoutSessionIsNoOp(t *testing.T) {
	c := NewCoordinator(&fakeDispatcher{}, 0)
	assert.NotPanics(t, func() {
		c.OnStatusUpdate(deployRef(), ReplicaStatus{Ready: int32p(1), Available: int32p(1), Updated: int32p(1)})
		c.CheckTimeouts()
	})
}

func TestTimeoutClearsWithoutScaledNotification(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 15*time.Second)
	ref := deployRef()

	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }

	var scaled []int32
	var resolved []Session
	c.OnScaled(func(_ ResourceRef, replicas int32) { scaled = append(scaled, replicas) })
	c.OnResolved(func(s Session) { resolved = append(resolved, s) })

	_, err := c.ScaleUp(context.Background(), ref, 3)
	require.NoError(t, err)

	// Inside the window: nothing expires.
	now = now.Add(10 * time.Second)
	c.CheckTimeouts()
	assert.True(t, c.InProgress(ref))

	now = now.Add(6 * time.Second)
	c.CheckTimeouts()
	assert.False(t, c.InProgress(ref))
	assert.Empty(t, scaled)
	require.Len(t, resolved, 1)
	assert.Equal(t, StatusTimedOut, resolved[0].Status)

	// The backend may still finish later; the stray snapshot is ignored.
	c.OnStatusUpdate(ref, ReplicaStatus{Ready: int32p(4), Available: int32p(4), Updated: int32p(4)})
	assert.Empty(t, scaled)

	// And a fresh request is accepted again.
	_, err = c.ScaleUp(context.Background(), ref, 3)
	assert.NoError(t, err)
}

func TestSnapshotDuringInFlightDispatchDoesNotCorruptSession(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)
	ref := deployRef()

	var scaled []int32
	c.OnScaled(func(_ ResourceRef, replicas int32) { scaled = append(scaled, replicas) })

	// Snapshot arrives before the dispatch call returns: the session is
	// still Pending and must not complete or be dropped.
	d.onDispatch = func() {
		c.OnStatusUpdate(ref, ReplicaStatus{Ready: int32p(2), Available: int32p(2), Updated: int32p(2)})
	}

	_, err := c.ScaleUp(context.Background(), ref, 1)
	require.NoError(t, err)
	assert.Empty(t, scaled)

	sess, ok := c.Session(ref)
	require.True(t, ok)
	assert.Equal(t, StatusReconciling, sess.Status)

	c.OnStatusUpdate(ref, ReplicaStatus{Ready: int32p(2), Available: int32p(2), Updated: int32p(2)})
	assert.Equal(t, []int32{2}, scaled)
}

func TestSessionsAreIndependentPerResource(t *testing.T) {
	d := &fakeDispatcher{}
	c := NewCoordinator(d, 0)
	a := ResourceRef{Kind: "Deployment", Namespace: "default", Name: "a"}
	b := ResourceRef{Kind: "Deployment", Namespace: "default", Name: "b"}

	_, err := c.ScaleUp(context.Background(), a, 1)
	require.NoError(t, err)
	_, err = c.ScaleUp(context.Background(), b, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, d.callCount())

	c.OnStatusUpdate(a, ReplicaStatus{Ready: int32p(2), Available: int32p(2), Updated: int32p(2)})
	assert.False(t, c.InProgress(a))
	assert.True(t, c.InProgress(b))
}

func TestConverged(t *testing.T) {
	tests := []struct {
		name   string
		status ReplicaStatus
		target int32
		want   bool
	}{
		{"all match", ReplicaStatus{int32p(4), int32p(4), int32p(4)}, 4, true},
		{"ready lags", ReplicaStatus{int32p(3), int32p(4), int32p(4)}, 4, false},
		{"available lags", ReplicaStatus{int32p(4), int32p(3), int32p(4)}, 4, false},
		{"updated lags", ReplicaStatus{int32p(4), int32p(4), int32p(3)}, 4, false},
		{"updated only at target", ReplicaStatus{Updated: int32p(4)}, 4, true},
		{"updated only below target", ReplicaStatus{Updated: int32p(3)}, 4, false},
		{"updated missing", ReplicaStatus{Ready: int32p(4), Available: int32p(4)}, 4, false},
		{"ready missing", ReplicaStatus{Available: int32p(4), Updated: int32p(4)}, 4, false},
		{"empty", ReplicaStatus{}, 0, false},
		{"zero target all zero", ReplicaStatus{int32p(0), int32p(0), int32p(0)}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Converged(tt.target))
		})
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	c := NewCoordinator(&fakeDispatcher{}, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
