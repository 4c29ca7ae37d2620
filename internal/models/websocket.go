package models

import "time"

// WebSocket message types pushed to the frontend.
const (
	WSTypeReplicaStatus = "replica_status"
	WSTypeScaled        = "scaled"
)

// WebSocketMessage is the envelope for all pushed messages.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// ReplicaStatusPayload mirrors one backend status snapshot for a workload.
type ReplicaStatusPayload struct {
	Kind              string `json:"kind"`
	Namespace         string `json:"namespace,omitempty"`
	Name              string `json:"name"`
	ReadyReplicas     *int32 `json:"readyReplicas,omitempty"`
	AvailableReplicas *int32 `json:"availableReplicas,omitempty"`
	UpdatedReplicas   *int32 `json:"updatedReplicas,omitempty"`
}

// ScaledPayload announces a completed scale operation with the achieved
// replica count.
type ScaledPayload struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
	Replicas  int32  `json:"replicas"`
}
