package models

import (
	"time"
)

// Session represents one jumble session, keyed by a shareable code
type Session struct {
	// Code is the 6 character share code identifying the session
	Code string `json:"code"`

	// HostConnID is the connection that created the session
	HostConnID string `json:"hostConnId"`

	// Members maps member ID to member
	Members map[string]*Member `json:"members"`

	// Config is the current fairness configuration
	Config ShuffleConfig `json:"shuffleConfig"`

	// Result is the last shuffle outcome, nil until a shuffle has run
	Result *ShuffleResult `json:"result,omitempty"`

	// Shuffled indicates a shuffle has run at least once
	Shuffled bool `json:"isShuffled"`

	// CreatedAt is when the session was created
	CreatedAt time.Time `json:"createdAt"`
}

// MemberList returns the roster as a slice. Order is not significant.
func (s *Session) MemberList() []*Member {
	members := make([]*Member, 0, len(s.Members))
	for _, m := range s.Members {
		members = append(members, m)
	}
	return members
}
