package session

import (
	"context"
	"errors"

	"github.com/jumbleapp/jumble/internal/models"
	sessionRepo "github.com/jumbleapp/jumble/internal/repositories/session"
	"github.com/jumbleapp/jumble/internal/shuffle"
	"go.uber.org/zap"
)

// service implements the Service interface
type service struct {
	repo     sessionRepo.Repository
	shuffler *shuffle.Shuffler
	log      *zap.SugaredLogger
}

// New creates a new session service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.Repo == nil {
		return nil, ErrNilRepository
	}

	if cfg.Shuffler == nil {
		return nil, ErrNilShuffler
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &service{
		repo:     cfg.Repo,
		shuffler: cfg.Shuffler,
		log:      log,
	}, nil
}

// CreateSession creates a new session and returns its share code.
// Nothing is published: the session has no subscribers yet.
func (s *service) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	out, err := s.repo.CreateSession(ctx, &sessionRepo.CreateSessionInput{
		HostConnID: input.HostConnID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("session created", "code", out.Session.Code, "host", input.HostConnID)

	return &CreateSessionOutput{
		Code: out.Session.Code,
	}, nil
}

// JoinSession adds a member to a session, broadcasts the new roster, and
// returns it synchronously so the joiner does not depend on receiving its
// own broadcast.
func (s *service) JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	if input.Code == "" || input.ConnID == "" {
		return nil, errors.New("code and connection ID are required")
	}

	member := &models.Member{
		ID:      input.ConnID,
		Name:    input.Name,
		College: input.College,
		Gender:  input.Gender,
		ConnID:  input.ConnID,
	}

	err := s.repo.UpsertMember(ctx, &sessionRepo.UpsertMemberInput{
		Code:   input.Code,
		Member: member,
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	session, err := s.repo.GetSession(ctx, &sessionRepo.GetSessionInput{Code: input.Code})
	if err != nil {
		return nil, mapNotFound(err)
	}

	roster := session.MemberList()

	s.publish(ctx, input.Code, EventMemberJoined, &memberJoinedPayload{
		Member: member,
		Roster: roster,
	})

	s.log.Infow("member joined", "code", input.Code, "member", member.ID, "roster_size", len(roster))

	return &JoinSessionOutput{
		Member: member,
		Roster: roster,
	}, nil
}

// LeaveSession removes a member from a session. Removing a member that
// already left is not an error.
func (s *service) LeaveSession(ctx context.Context, input *LeaveSessionInput) (*LeaveSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	err := s.repo.RemoveMember(ctx, &sessionRepo.RemoveMemberInput{
		Code:     input.Code,
		MemberID: input.MemberID,
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	session, err := s.repo.GetSession(ctx, &sessionRepo.GetSessionInput{Code: input.Code})
	if err != nil {
		return nil, mapNotFound(err)
	}

	roster := session.MemberList()

	s.publish(ctx, input.Code, EventMemberLeft, &memberLeftPayload{
		MemberID: input.MemberID,
		Roster:   roster,
	})

	s.log.Infow("member left", "code", input.Code, "member", input.MemberID)

	return &LeaveSessionOutput{Roster: roster}, nil
}

// UpdateConfig validates the patch, merges it over the stored
// configuration, and broadcasts the result
func (s *service) UpdateConfig(ctx context.Context, input *UpdateConfigInput) (*UpdateConfigOutput, error) {
	if input == nil || input.Patch == nil {
		return nil, errors.New("input and patch cannot be nil")
	}

	if err := validatePatch(input.Patch); err != nil {
		return nil, err
	}

	err := s.repo.UpdateConfig(ctx, &sessionRepo.UpdateConfigInput{
		Code:  input.Code,
		Patch: input.Patch,
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	session, err := s.repo.GetSession(ctx, &sessionRepo.GetSessionInput{Code: input.Code})
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.publish(ctx, input.Code, EventConfigUpdated, session.Config)

	s.log.Infow("config updated", "code", input.Code, "num_teams", session.Config.NumTeams)

	return &UpdateConfigOutput{Config: session.Config}, nil
}

// RunShuffle partitions the current roster, persists the result, and
// broadcasts it
func (s *service) RunShuffle(ctx context.Context, input *RunShuffleInput) (*RunShuffleOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	session, err := s.repo.GetSession(ctx, &sessionRepo.GetSessionInput{Code: input.Code})
	if err != nil {
		return nil, mapNotFound(err)
	}

	if len(session.Members) == 0 {
		return nil, ErrEmptySession
	}

	result := s.shuffler.Shuffle(session.MemberList(), session.Config)

	err = s.repo.SetShuffleResult(ctx, &sessionRepo.SetShuffleResultInput{
		Code:   input.Code,
		Result: result,
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.publish(ctx, input.Code, EventShuffleComplete, result)

	s.log.Infow("shuffle complete", "code", input.Code,
		"teams", len(result.Teams),
		"diversity_score", result.DiversityScore,
		"gender_balance_score", result.GenderBalanceScore)

	return &RunShuffleOutput{Result: result}, nil
}

// GetSnapshot returns a read-only projection of a session. It never
// mutates the session or renews its expiry.
func (s *service) GetSnapshot(ctx context.Context, input *GetSnapshotInput) (*GetSnapshotOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	session, err := s.repo.GetSession(ctx, &sessionRepo.GetSessionInput{Code: input.Code})
	if err != nil {
		return nil, mapNotFound(err)
	}

	return &GetSnapshotOutput{
		Code:       session.Code,
		HostConnID: session.HostConnID,
		Roster:     session.MemberList(),
		Config:     session.Config,
		Result:     session.Result,
		Shuffled:   session.Shuffled,
		CreatedAt:  session.CreatedAt,
	}, nil
}

// EndSession announces teardown to subscribers and deletes the record
func (s *service) EndSession(ctx context.Context, input *EndSessionInput) (*EndSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	s.publish(ctx, input.Code, EventSessionEnded, &sessionEndedPayload{Code: input.Code})

	existed, err := s.repo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{Code: input.Code})
	if err != nil {
		return nil, err
	}

	s.log.Infow("session ended", "code", input.Code, "existed", existed)

	return &EndSessionOutput{Existed: existed}, nil
}

// publish is fire-and-forget: the caller's write already succeeded, so a
// failed notification is logged and not surfaced
func (s *service) publish(ctx context.Context, code, event string, data any) {
	err := s.repo.Publish(ctx, &sessionRepo.PublishInput{
		Code:  code,
		Event: event,
		Data:  data,
	})
	if err != nil {
		s.log.Errorw("failed to publish session event", "code", code, "event", event, "error", err)
	}
}

// validatePatch enforces the documented configuration ranges before any
// value reaches the store or the shuffler
func validatePatch(patch *sessionRepo.ConfigPatch) error {
	if patch.NumTeams != nil && *patch.NumTeams < 1 {
		return ErrInvalidConfig
	}

	if patch.DiversityWeight != nil && (*patch.DiversityWeight < 0 || *patch.DiversityWeight > 1) {
		return ErrInvalidConfig
	}

	if patch.GenderBalanceWeight != nil && (*patch.GenderBalanceWeight < 0 || *patch.GenderBalanceWeight > 1) {
		return ErrInvalidConfig
	}

	return nil
}

// mapNotFound translates the repository's not-found sentinel into the
// service error kind; anything else passes through unchanged
func mapNotFound(err error) error {
	if errors.Is(err, sessionRepo.ErrSessionNotFound) {
		return ErrSessionNotFound
	}
	return err
}
