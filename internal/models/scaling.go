package models

import "time"

// ScaleResult is the response body for a scale-up/down request. Desired is
// the optimistic target the UI shows immediately.
type ScaleResult struct {
	Kind             string `json:"kind"`
	Namespace        string `json:"namespace,omitempty"`
	Name             string `json:"name"`
	PreviousReplicas int32  `json:"previousReplicas"`
	DesiredReplicas  int32  `json:"desiredReplicas"`
	Status           string `json:"status"`
}

// ScalingEvent is one resolved scaling session in the history log.
type ScalingEvent struct {
	ID             string     `json:"id" db:"id"`
	Kind           string     `json:"kind" db:"kind"`
	Namespace      string     `json:"namespace,omitempty" db:"namespace"`
	Name           string     `json:"name" db:"name"`
	TargetReplicas int32      `json:"targetReplicas" db:"target_replicas"`
	Status         string     `json:"status" db:"status"`
	StartedAt      time.Time  `json:"startedAt" db:"started_at"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty" db:"resolved_at"`
}
