package session

import (
	"encoding/json"
	"time"

	"github.com/jumbleapp/jumble/internal/common/clock"
	"github.com/jumbleapp/jumble/internal/models"
	"github.com/redis/go-redis/v9"
)

// Config holds configuration for the Redis session repository
type Config struct {
	// Redis client
	RedisClient *redis.Client

	// TTL is the sliding session lifetime, reset on every write.
	// Defaults to 24 hours.
	TTL time.Duration

	// Clock for creation and event timestamps, defaults to the system clock
	Clock clock.Clock
}

// CreateSessionInput contains parameters for creating a session
type CreateSessionInput struct {
	// HostConnID is the connection creating the session
	HostConnID string
}

// CreateSessionOutput contains the result of creating a session
type CreateSessionOutput struct {
	// Session is the newly persisted session
	Session *models.Session
}

type GetSessionInput struct {
	Code string
}

type ExistsInput struct {
	Code string
}

type UpsertMemberInput struct {
	Code   string
	Member *models.Member
}

type RemoveMemberInput struct {
	Code     string
	MemberID string
}

// ConfigPatch carries a partial shuffle configuration; nil fields are
// left unchanged on merge
type ConfigPatch struct {
	NumTeams            *int     `json:"numTeams,omitempty"`
	BalanceGender       *bool    `json:"balanceGender,omitempty"`
	DiversityWeight     *float64 `json:"maxDiversityWeight,omitempty"`
	GenderBalanceWeight *float64 `json:"genderBalanceWeight,omitempty"`
}

// Apply merges the patch over a stored configuration
func (p *ConfigPatch) Apply(cfg *models.ShuffleConfig) {
	if p.NumTeams != nil {
		cfg.NumTeams = *p.NumTeams
	}
	if p.BalanceGender != nil {
		cfg.BalanceGender = *p.BalanceGender
	}
	if p.DiversityWeight != nil {
		cfg.DiversityWeight = *p.DiversityWeight
	}
	if p.GenderBalanceWeight != nil {
		cfg.GenderBalanceWeight = *p.GenderBalanceWeight
	}
}

type UpdateConfigInput struct {
	Code  string
	Patch *ConfigPatch
}

type SetShuffleResultInput struct {
	Code   string
	Result *models.ShuffleResult
}

type DeleteSessionInput struct {
	Code string
}

// Envelope is the message shape carried on a session's event channel
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// PublishInput contains parameters for broadcasting a session event
type PublishInput struct {
	Code  string
	Event string

	// Data is marshaled into the envelope's data field
	Data any
}

// EventHandler receives envelopes published on a subscribed channel
type EventHandler func(env *Envelope)

type SubscribeInput struct {
	Code    string
	Handler EventHandler
}
