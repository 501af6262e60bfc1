package session

import (
	"time"

	"github.com/jumbleapp/jumble/internal/models"
	sessionRepo "github.com/jumbleapp/jumble/internal/repositories/session"
	"github.com/jumbleapp/jumble/internal/shuffle"
	"go.uber.org/zap"
)

// Event names published on a session's channel
const (
	// EventMemberJoined carries the new member and the full roster
	EventMemberJoined = "member-joined"

	// EventMemberLeft carries the departed member's ID and the remaining roster
	EventMemberLeft = "member-left"

	// EventConfigUpdated carries the full merged configuration
	EventConfigUpdated = "config-updated"

	// EventShuffleComplete carries the teams and both fairness scores
	EventShuffleComplete = "partition-complete"

	// EventSessionEnded announces teardown before the record is deleted
	EventSessionEnded = "session-ended"
)

// Config holds configuration for the session service
type Config struct {
	// Repository dependency
	Repo sessionRepo.Repository

	// Shuffler runs the partitioning
	Shuffler *shuffle.Shuffler

	// Logger, defaults to a no-op logger
	Logger *zap.SugaredLogger
}

// CreateSessionInput contains parameters for creating a session
type CreateSessionInput struct {
	// HostConnID is the connection creating the session
	HostConnID string
}

// CreateSessionOutput contains the result of creating a session
type CreateSessionOutput struct {
	// Code is the shareable session code
	Code string
}

// JoinSessionInput contains parameters for joining a session
type JoinSessionInput struct {
	// Code is the session to join
	Code string

	// ConnID is the joining connection and becomes the member ID
	ConnID string

	// Name is the member's display name
	Name string

	// College is the member's organization label
	College string

	// Gender is the member's self-reported gender category
	Gender models.Gender
}

// JoinSessionOutput contains the result of joining a session
type JoinSessionOutput struct {
	// Member is the stored member, its ID assigned from the connection
	Member *models.Member

	// Roster is the full member list including the new member
	Roster []*models.Member
}

// LeaveSessionInput contains parameters for leaving a session
type LeaveSessionInput struct {
	Code     string
	MemberID string
}

// LeaveSessionOutput contains the roster after the member left
type LeaveSessionOutput struct {
	Roster []*models.Member
}

// UpdateConfigInput contains a partial configuration to merge
type UpdateConfigInput struct {
	Code  string
	Patch *sessionRepo.ConfigPatch
}

// UpdateConfigOutput contains the merged configuration
type UpdateConfigOutput struct {
	Config models.ShuffleConfig
}

// RunShuffleInput contains parameters for running a shuffle
type RunShuffleInput struct {
	Code string
}

// RunShuffleOutput contains the shuffle outcome
type RunShuffleOutput struct {
	Result *models.ShuffleResult
}

// GetSnapshotInput contains parameters for reading a session projection
type GetSnapshotInput struct {
	Code string
}

// GetSnapshotOutput is a read-only projection of a session. It is also
// the shape transports hand to reconnecting clients, so it carries wire
// tags.
type GetSnapshotOutput struct {
	Code       string                `json:"code"`
	HostConnID string                `json:"hostConnId"`
	Roster     []*models.Member      `json:"members"`
	Config     models.ShuffleConfig  `json:"shuffleConfig"`
	Result     *models.ShuffleResult `json:"result,omitempty"`
	Shuffled   bool                  `json:"isShuffled"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// EndSessionInput contains parameters for tearing a session down
type EndSessionInput struct {
	Code string
}

// EndSessionOutput reports whether the session existed
type EndSessionOutput struct {
	Existed bool
}

// memberJoinedPayload is the wire shape of EventMemberJoined
type memberJoinedPayload struct {
	Member *models.Member   `json:"member"`
	Roster []*models.Member `json:"members"`
}

// memberLeftPayload is the wire shape of EventMemberLeft
type memberLeftPayload struct {
	MemberID string           `json:"id"`
	Roster   []*models.Member `json:"members"`
}

// sessionEndedPayload is the wire shape of EventSessionEnded
type sessionEndedPayload struct {
	Code string `json:"code"`
}
