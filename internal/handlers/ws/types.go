package ws

import (
	"encoding/json"

	"github.com/jumbleapp/jumble/internal/models"
	sessionRepo "github.com/jumbleapp/jumble/internal/repositories/session"
)

// Client actions
const (
	ActionCreateSession = "create_session"
	ActionJoinSession   = "join_session"
	ActionLeaveSession  = "leave_session"
	ActionUpdateConfig  = "update_config"
	ActionRunShuffle    = "run_shuffle"
	ActionGetSnapshot   = "get_snapshot"
	ActionEndSession    = "end_session"
)

// Request is one inbound client frame
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Response is the synchronous ack for one request, delivered only to the
// connection that sent it
type Response struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// joinRequest is the data field of a join_session request
type joinRequest struct {
	Code    string        `json:"code"`
	Name    string        `json:"name"`
	College string        `json:"college"`
	Gender  models.Gender `json:"gender"`
}

// codeRequest is the data field of requests that only name a session
type codeRequest struct {
	Code string `json:"code"`
}

// configRequest is the data field of an update_config request
type configRequest struct {
	Code   string                   `json:"code"`
	Config *sessionRepo.ConfigPatch `json:"config"`
}

// createdResponse is the data field of a successful create_session ack
type createdResponse struct {
	Code string `json:"code"`
}

// joinedResponse is the data field of a successful join_session ack
type joinedResponse struct {
	Member *models.Member   `json:"member"`
	Roster []*models.Member `json:"members"`
}
