package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jumbleapp/jumble/internal/common/clock"
	"github.com/jumbleapp/jumble/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key and channel layout in Redis
	sessionKeyPrefix   = "session:"
	eventChannelSuffix = ":events"

	// Session codes are drawn from this alphabet at fixed length
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 6

	// Collisions are near-impossible over 36^6 codes, but they are
	// checked rather than assumed absent
	maxCodeAttempts = 10

	defaultTTL = 24 * time.Hour
)

// ErrSessionNotFound is returned when a session is absent or expired
var ErrSessionNotFound = errors.New("session not found")

// ErrBackendUnavailable tags Redis transport failures so callers can treat
// them as transient
var ErrBackendUnavailable = errors.New("session backend unavailable")

// redisRepository implements the Repository interface using Redis.
// Every mutation is a read-modify-write of the whole session blob: two
// concurrent writes to the same code race and the later write wins. That is
// an accepted trade-off for small, short-lived, low-contention sessions.
type redisRepository struct {
	client *redis.Client
	ttl    time.Duration
	clock  clock.Clock
}

// NewRedis creates a new Redis-backed session repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	// Validate config
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	clk := cfg.Clock
	if clk == nil {
		clk = &clock.DefaultClock{}
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
		ttl:    ttl,
		clock:  clk,
	}, nil
}

// CreateSession persists a new session under a freshly generated code
func (r *redisRepository) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		session := &models.Session{
			Code:       generateCode(),
			HostConnID: input.HostConnID,
			Members:    map[string]*models.Member{},
			Config:     models.DefaultShuffleConfig(),
			Shuffled:   false,
			CreatedAt:  r.clock.Now(),
		}

		sessionJSON, err := json.Marshal(session)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal session: %w", err)
		}

		// SETNX guards against handing the same code to two sessions
		ok, err := r.client.SetNX(ctx, sessionKey(session.Code), sessionJSON, r.ttl).Result()
		if err != nil {
			return nil, backendError(err)
		}

		if ok {
			return &CreateSessionOutput{Session: session}, nil
		}
	}

	return nil, fmt.Errorf("failed to allocate a unique session code after %d attempts", maxCodeAttempts)
}

// GetSession retrieves a session by code. Reads never touch the expiry.
func (r *redisRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	sessionJSON, err := r.client.Get(ctx, sessionKey(input.Code)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, backendError(err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.Members == nil {
		session.Members = map[string]*models.Member{}
	}

	return &session, nil
}

// Exists reports whether a session code is present without deserializing it
func (r *redisRepository) Exists(ctx context.Context, input *ExistsInput) (bool, error) {
	if input == nil || input.Code == "" {
		return false, errors.New("input and code cannot be empty")
	}

	count, err := r.client.Exists(ctx, sessionKey(input.Code)).Result()
	if err != nil {
		return false, backendError(err)
	}

	return count > 0, nil
}

// UpsertMember inserts or replaces a member by ID and resets the expiry window
func (r *redisRepository) UpsertMember(ctx context.Context, input *UpsertMemberInput) error {
	if input == nil || input.Member == nil {
		return errors.New("input and member cannot be nil")
	}

	if input.Member.ID == "" {
		return errors.New("member ID cannot be empty")
	}

	session, err := r.GetSession(ctx, &GetSessionInput{Code: input.Code})
	if err != nil {
		return err
	}

	session.Members[input.Member.ID] = input.Member

	return r.saveSession(ctx, session)
}

// RemoveMember removes a member and resets the expiry window. Removing an
// absent member is not an error.
func (r *redisRepository) RemoveMember(ctx context.Context, input *RemoveMemberInput) error {
	if input == nil || input.MemberID == "" {
		return errors.New("input and member ID cannot be empty")
	}

	session, err := r.GetSession(ctx, &GetSessionInput{Code: input.Code})
	if err != nil {
		return err
	}

	delete(session.Members, input.MemberID)

	return r.saveSession(ctx, session)
}

// UpdateConfig merges the patch over the stored configuration
func (r *redisRepository) UpdateConfig(ctx context.Context, input *UpdateConfigInput) error {
	if input == nil || input.Patch == nil {
		return errors.New("input and patch cannot be nil")
	}

	session, err := r.GetSession(ctx, &GetSessionInput{Code: input.Code})
	if err != nil {
		return err
	}

	input.Patch.Apply(&session.Config)

	return r.saveSession(ctx, session)
}

// SetShuffleResult attaches a shuffle result and marks the session shuffled
func (r *redisRepository) SetShuffleResult(ctx context.Context, input *SetShuffleResultInput) error {
	if input == nil || input.Result == nil {
		return errors.New("input and result cannot be nil")
	}

	session, err := r.GetSession(ctx, &GetSessionInput{Code: input.Code})
	if err != nil {
		return err
	}

	session.Result = input.Result
	session.Shuffled = true

	return r.saveSession(ctx, session)
}

// DeleteSession removes a session, reporting whether it existed
func (r *redisRepository) DeleteSession(ctx context.Context, input *DeleteSessionInput) (bool, error) {
	if input == nil || input.Code == "" {
		return false, errors.New("input and code cannot be empty")
	}

	deleted, err := r.client.Del(ctx, sessionKey(input.Code)).Result()
	if err != nil {
		return false, backendError(err)
	}

	return deleted > 0, nil
}

// Publish broadcasts an event on the session's channel. Delivery is
// fire-and-forget: subscribers not currently listening miss the event.
func (r *redisRepository) Publish(ctx context.Context, input *PublishInput) error {
	if input == nil || input.Code == "" || input.Event == "" {
		return errors.New("input, code and event cannot be empty")
	}

	data, err := json.Marshal(input.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	envelope, err := json.Marshal(&Envelope{
		Event:     input.Event,
		Data:      data,
		Timestamp: r.clock.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := r.client.Publish(ctx, eventChannel(input.Code), envelope).Err(); err != nil {
		return backendError(err)
	}

	return nil
}

// Subscribe delivers the session's events to the handler until the returned
// subscription is closed. Any process sharing the backend sees the same
// events.
func (r *redisRepository) Subscribe(ctx context.Context, input *SubscribeInput) (*Subscription, error) {
	if input == nil || input.Code == "" || input.Handler == nil {
		return nil, errors.New("input, code and handler cannot be empty")
	}

	pubsub := r.client.Subscribe(ctx, eventChannel(input.Code))

	// Wait for the subscription to be confirmed before returning, so the
	// caller can rely on subsequent publishes being delivered
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, backendError(err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			input.Handler(&env)
		}
	}()

	return &Subscription{pubsub: pubsub}, nil
}

// Subscription is a handle on an active session channel subscription
type Subscription struct {
	pubsub *redis.PubSub
}

// Close stops event delivery and releases the channel
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

// saveSession overwrites the session blob and resets its expiry window
func (r *redisRepository) saveSession(ctx context.Context, session *models.Session) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(session.Code), sessionJSON, r.ttl).Err(); err != nil {
		return backendError(err)
	}

	return nil
}

func sessionKey(code string) string {
	return sessionKeyPrefix + code
}

func eventChannel(code string) string {
	return sessionKeyPrefix + code + eventChannelSuffix
}

func generateCode() string {
	var sb strings.Builder
	sb.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		sb.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return sb.String()
}

func backendError(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
