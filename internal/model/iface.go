package model

import "context"

// ClassroomAPI is the backend contract consumed by the client.
// Implementations must return an error for transport failures and
// non-2xx responses; they must not panic.
type ClassroomAPI interface {
	OpenClassrooms(ctx context.Context) (OpenClassrooms, error)
	CooldownStatus(ctx context.Context) (CooldownStatus, error)
	Refresh(ctx context.Context) (RefreshResult, error)
}

// LastUpdatedReader is implemented by backends exposing /api/last-updated.
type LastUpdatedReader interface {
	LastUpdated(ctx context.Context) (LastUpdated, error)
}
