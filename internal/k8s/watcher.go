package k8s

import (
	"fmt"
	"sync"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"

	"github.com/kubedeck/kubedeck-backend/internal/scaling"
)

// ReplicaStatusHandler receives replica status snapshots from the watcher.
// Delivery order relative to scale dispatches is not guaranteed; duplicate
// and no-op snapshots occur and consumers must treat them idempotently.
type ReplicaStatusHandler func(ref scaling.ResourceRef, status scaling.ReplicaStatus)

// StatusWatcher pushes replica status snapshots for the scalable workload
// kinds (Deployments, StatefulSets, ReplicaSets) using shared informers.
// Resync period matches the informer cadence used elsewhere in the app: the
// Watch stream is the data source, the periodic re-list is a safety net for
// missed events.
type StatusWatcher struct {
	factory  informers.SharedInformerFactory
	stopCh   chan struct{}
	stopOnce sync.Once
	handler  ReplicaStatusHandler
}

// NewStatusWatcher creates a watcher delivering snapshots to handler.
func NewStatusWatcher(clientset kubernetes.Interface, handler ReplicaStatusHandler) *StatusWatcher {
	return &StatusWatcher{
		factory: informers.NewSharedInformerFactory(clientset, 5*time.Minute),
		stopCh:  make(chan struct{}),
		handler: handler,
	}
}

// Start registers informers for the scalable kinds, starts them, and waits
// for the initial cache sync.
func (w *StatusWatcher) Start() error {
	handlers := cache.ResourceEventHandlerFuncs{
		AddFunc:    w.emit,
		UpdateFunc: func(_, newObj interface{}) { w.emit(newObj) },
	}

	if _, err := w.factory.Apps().V1().Deployments().Informer().AddEventHandler(handlers); err != nil {
		return fmt.Errorf("failed to register deployment informer: %w", err)
	}
	if _, err := w.factory.Apps().V1().StatefulSets().Informer().AddEventHandler(handlers); err != nil {
		return fmt.Errorf("failed to register statefulset informer: %w", err)
	}
	if _, err := w.factory.Apps().V1().ReplicaSets().Informer().AddEventHandler(handlers); err != nil {
		return fmt.Errorf("failed to register replicaset informer: %w", err)
	}

	w.factory.Start(w.stopCh)

	synced := w.factory.WaitForCacheSync(w.stopCh)
	for resource, ok := range synced {
		if !ok {
			return fmt.Errorf("failed to sync cache for resource: %v", resource)
		}
	}
	return nil
}

// Stop stops all informers. Safe to call more than once and from deferred
// shutdown paths.
func (w *StatusWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

func (w *StatusWatcher) emit(obj interface{}) {
	ref, status, ok := extractReplicaStatus(obj)
	if !ok {
		return
	}
	w.handler(ref, status)
}

// extractReplicaStatus maps a typed workload object to a resource ref and
// replica status snapshot. ReplicaSet status carries no updatedReplicas; its
// replicas count (controller-created replicas) stands in for it.
func extractReplicaStatus(obj interface{}) (scaling.ResourceRef, scaling.ReplicaStatus, bool) {
	switch o := obj.(type) {
	case *appsv1.Deployment:
		ref := scaling.ResourceRef{Kind: "Deployment", Namespace: o.Namespace, Name: o.Name}
		st := o.Status
		return ref, scaling.ReplicaStatus{
			Ready:     &st.ReadyReplicas,
			Available: &st.AvailableReplicas,
			Updated:   &st.UpdatedReplicas,
		}, true
	case *appsv1.StatefulSet:
		ref := scaling.ResourceRef{Kind: "StatefulSet", Namespace: o.Namespace, Name: o.Name}
		st := o.Status
		return ref, scaling.ReplicaStatus{
			Ready:     &st.ReadyReplicas,
			Available: &st.AvailableReplicas,
			Updated:   &st.UpdatedReplicas,
		}, true
	case *appsv1.ReplicaSet:
		ref := scaling.ResourceRef{Kind: "ReplicaSet", Namespace: o.Namespace, Name: o.Name}
		st := o.Status
		return ref, scaling.ReplicaStatus{
			Ready:     &st.ReadyReplicas,
			Available: &st.AvailableReplicas,
			Updated:   &st.Replicas,
		}, true
	default:
		return scaling.ResourceRef{}, scaling.ReplicaStatus{}, false
	}
}
