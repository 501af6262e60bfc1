package session

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go github.com/jumbleapp/jumble/internal/services/session Service

import "context"

// Service defines the interface for session operations. It is the sole
// entry point transport code calls into.
type Service interface {
	// CreateSession creates a new session and returns its share code
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)

	// JoinSession adds a member to a session and broadcasts the new roster
	JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error)

	// LeaveSession removes a member from a session
	LeaveSession(ctx context.Context, input *LeaveSessionInput) (*LeaveSessionOutput, error)

	// UpdateConfig validates and merges a partial shuffle configuration
	UpdateConfig(ctx context.Context, input *UpdateConfigInput) (*UpdateConfigOutput, error)

	// RunShuffle partitions the current roster into teams
	RunShuffle(ctx context.Context, input *RunShuffleInput) (*RunShuffleOutput, error)

	// GetSnapshot returns a read-only projection of a session
	GetSnapshot(ctx context.Context, input *GetSnapshotInput) (*GetSnapshotOutput, error)

	// EndSession tears a session down and announces it
	EndSession(ctx context.Context, input *EndSessionInput) (*EndSessionOutput, error)
}
