package session

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/jumbleapp/jumble/internal/repositories/session Repository

import (
	"context"

	"github.com/jumbleapp/jumble/internal/models"
)

// Repository defines the interface for session persistence and notification
type Repository interface {
	// CreateSession persists a new session under a freshly generated code
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)

	// GetSession retrieves a session by code
	GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error)

	// Exists reports whether a session code is present without deserializing it
	Exists(ctx context.Context, input *ExistsInput) (bool, error)

	// UpsertMember inserts or replaces a member by ID
	UpsertMember(ctx context.Context, input *UpsertMemberInput) error

	// RemoveMember removes a member; removing an absent member is not an error
	RemoveMember(ctx context.Context, input *RemoveMemberInput) error

	// UpdateConfig merges the provided fields over the stored configuration
	UpdateConfig(ctx context.Context, input *UpdateConfigInput) error

	// SetShuffleResult attaches a shuffle result and marks the session shuffled
	SetShuffleResult(ctx context.Context, input *SetShuffleResultInput) error

	// DeleteSession removes a session, reporting whether it existed
	DeleteSession(ctx context.Context, input *DeleteSessionInput) (bool, error)

	// Publish broadcasts an event on the session's channel
	Publish(ctx context.Context, input *PublishInput) error

	// Subscribe delivers the session's events to a handler until closed
	Subscribe(ctx context.Context, input *SubscribeInput) (*Subscription, error)
}
