package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kubedeck/kubedeck-backend/internal/models"
	"github.com/kubedeck/kubedeck-backend/internal/scaling"
)

// WorkloadScaler reads and writes replica counts through the scale
// subresource. Satisfied by *k8s.Client.
type WorkloadScaler interface {
	GetScale(ctx context.Context, kind, namespace, name string) (int32, error)
	ScaleWorkload(ctx context.Context, kind, namespace, name string, replicas int32) error
}

// ScalingHistory persists resolved sessions. Satisfied by
// *repository.SQLiteRepository.
type ScalingHistory interface {
	RecordScalingEvent(ctx context.Context, ev *models.ScalingEvent) error
	ListScalingEvents(ctx context.Context, limit int) ([]models.ScalingEvent, error)
}

// ScalingService drives the optimistic scaling workflow for the REST and
// WebSocket surfaces.
type ScalingService interface {
	ScaleUp(ctx context.Context, kind, namespace, name string) (*models.ScaleResult, error)
	ScaleDown(ctx context.Context, kind, namespace, name string) (*models.ScaleResult, error)
	ActiveSession(kind, namespace, name string) (scaling.Session, bool)
	History(ctx context.Context, limit int) ([]models.ScalingEvent, error)

	// HandleStatusUpdate is the sink for the replica status feed.
	HandleStatusUpdate(ref scaling.ResourceRef, status scaling.ReplicaStatus)
	// Run drives the coordinator's timeout sweep until ctx is cancelled.
	Run(ctx context.Context, interval time.Duration)
}

type scalingService struct {
	scaler  WorkloadScaler
	history ScalingHistory
	coord   *scaling.Coordinator
	log     *slog.Logger
}

// NewScalingService creates the service and its coordinator. onScaled is
// fired once per completed session (nil to disable); history may be nil.
func NewScalingService(scaler WorkloadScaler, history ScalingHistory, window time.Duration,
	onScaled func(ref scaling.ResourceRef, replicas int32), log *slog.Logger) ScalingService {

	s := &scalingService{
		scaler:  scaler,
		history: history,
		log:     log,
	}
	s.coord = scaling.NewCoordinator(scaling.DispatcherFunc(s.dispatch), window)
	if onScaled != nil {
		s.coord.OnScaled(onScaled)
	}
	s.coord.OnResolved(s.recordResolved)
	return s
}

func (s *scalingService) dispatch(ctx context.Context, ref scaling.ResourceRef, replicas int32) error {
	return s.scaler.ScaleWorkload(ctx, ref.Kind, ref.Namespace, ref.Name, replicas)
}

func (s *scalingService) recordResolved(sess scaling.Session) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := &models.ScalingEvent{
		Kind:           sess.Request.Ref.Kind,
		Namespace:      sess.Request.Ref.Namespace,
		Name:           sess.Request.Ref.Name,
		TargetReplicas: sess.Request.TargetReplicas,
		Status:         string(sess.Status),
		StartedAt:      sess.StartedAt,
	}
	if err := s.history.RecordScalingEvent(ctx, ev); err != nil && s.log != nil {
		s.log.Warn("failed to record scaling event", "resource", sess.Request.Ref.String(), "error", err)
	}
}

func (s *scalingService) ScaleUp(ctx context.Context, kind, namespace, name string) (*models.ScaleResult, error) {
	return s.scale(ctx, kind, namespace, name, true)
}

func (s *scalingService) ScaleDown(ctx context.Context, kind, namespace, name string) (*models.ScaleResult, error) {
	return s.scale(ctx, kind, namespace, name, false)
}

func (s *scalingService) scale(ctx context.Context, kind, namespace, name string, up bool) (*models.ScaleResult, error) {
	if !scaling.IsScalable(kind) {
		return nil, scaling.ErrNotScalable
	}
	ref := scaling.ResourceRef{Kind: kind, Namespace: namespace, Name: name}

	// Reject early so a no-op request never hits the cluster.
	if s.coord.InProgress(ref) {
		return nil, scaling.ErrScaleInProgress
	}

	current, err := s.scaler.GetScale(ctx, kind, namespace, name)
	if err != nil {
		return nil, err
	}

	var desired int32
	if up {
		desired, err = s.coord.ScaleUp(ctx, ref, current)
	} else {
		desired, err = s.coord.ScaleDown(ctx, ref, current)
	}
	if err != nil {
		return nil, err
	}

	status := string(scaling.StatusReconciling)
	if sess, ok := s.coord.Session(ref); ok {
		status = string(sess.Status)
	}
	return &models.ScaleResult{
		Kind:             kind,
		Namespace:        namespace,
		Name:             name,
		PreviousReplicas: current,
		DesiredReplicas:  desired,
		Status:           status,
	}, nil
}

func (s *scalingService) ActiveSession(kind, namespace, name string) (scaling.Session, bool) {
	return s.coord.Session(scaling.ResourceRef{Kind: kind, Namespace: namespace, Name: name})
}

func (s *scalingService) History(ctx context.Context, limit int) ([]models.ScalingEvent, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListScalingEvents(ctx, limit)
}

func (s *scalingService) HandleStatusUpdate(ref scaling.ResourceRef, status scaling.ReplicaStatus) {
	s.coord.OnStatusUpdate(ref, status)
}

func (s *scalingService) Run(ctx context.Context, interval time.Duration) {
	s.coord.Run(ctx, interval)
}
