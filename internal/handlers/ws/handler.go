package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	sessionRepo "github.com/jumbleapp/jumble/internal/repositories/session"
	sessionSvc "github.com/jumbleapp/jumble/internal/services/session"
	"go.uber.org/zap"
)

// Handler bridges websocket connections to the session service. It keeps
// the core transport-agnostic: inbound frames map onto service operations,
// and store events fan out to every local connection in the session. Events
// travel through the store's channel even for local connections, so
// replicated gateway processes all observe the same mutations.
type Handler struct {
	service  sessionSvc.Service
	repo     sessionRepo.Repository
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	hubs map[string]*hub
}

// Config holds the configuration for the websocket handler
type Config struct {
	// Session service
	Service sessionSvc.Service

	// Session repository, used for channel subscriptions
	Repo sessionRepo.Repository

	// Logger, defaults to a no-op logger
	Logger *zap.SugaredLogger
}

// hub fans one session's events out to the local connections watching it
type hub struct {
	sub   *sessionRepo.Subscription
	conns map[*conn]bool
}

// conn is one websocket client
type conn struct {
	id      string
	ws      *websocket.Conn
	writeMu sync.Mutex

	// code of the session this connection is attached to, if any
	code string
}

// New creates a new websocket handler
func New(cfg *Config) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Service == nil {
		return nil, errors.New("session service cannot be nil")
	}

	if cfg.Repo == nil {
		return nil, errors.New("session repository cannot be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Handler{
		service: cfg.Service,
		repo:    cfg.Repo,
		log:     log,
		upgrader: websocket.Upgrader{
			// Origin policy is the deployment's concern
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hubs: map[string]*hub{},
	}, nil
}

// ServeHTTP upgrades the request and runs the connection's read loop
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("failed to upgrade connection", "error", err)
		return
	}

	c := &conn{
		id: uuid.NewString(),
		ws: ws,
	}

	h.log.Infow("client connected", "conn", c.id)
	h.readLoop(r.Context(), c)
}

func (h *Handler) readLoop(ctx context.Context, c *conn) {
	defer h.disconnect(ctx, c)

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(payload, &req); err != nil {
			h.reply(c, &Response{Success: false, Error: "malformed request"})
			continue
		}

		h.reply(c, h.dispatch(ctx, c, &req))
	}
}

func (h *Handler) dispatch(ctx context.Context, c *conn, req *Request) *Response {
	switch req.Action {
	case ActionCreateSession:
		return h.handleCreate(ctx, c, req)
	case ActionJoinSession:
		return h.handleJoin(ctx, c, req)
	case ActionLeaveSession:
		return h.handleLeave(ctx, c, req)
	case ActionUpdateConfig:
		return h.handleUpdateConfig(ctx, c, req)
	case ActionRunShuffle:
		return h.handleRunShuffle(ctx, c, req)
	case ActionGetSnapshot:
		return h.handleGetSnapshot(ctx, c, req)
	case ActionEndSession:
		return h.handleEndSession(ctx, c, req)
	default:
		return failure(req.Action, errors.New("unknown action"))
	}
}

func (h *Handler) handleCreate(ctx context.Context, c *conn, req *Request) *Response {
	out, err := h.service.CreateSession(ctx, &sessionSvc.CreateSessionInput{
		HostConnID: c.id,
	})
	if err != nil {
		return failure(req.Action, err)
	}

	if err := h.attach(ctx, c, out.Code); err != nil {
		return failure(req.Action, err)
	}

	return success(req.Action, &createdResponse{Code: out.Code})
}

func (h *Handler) handleJoin(ctx context.Context, c *conn, req *Request) *Response {
	var data joinRequest
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return failure(req.Action, errors.New("malformed join request"))
	}

	out, err := h.service.JoinSession(ctx, &sessionSvc.JoinSessionInput{
		Code:    data.Code,
		ConnID:  c.id,
		Name:    data.Name,
		College: data.College,
		Gender:  data.Gender,
	})
	if err != nil {
		return failure(req.Action, err)
	}

	if err := h.attach(ctx, c, data.Code); err != nil {
		return failure(req.Action, err)
	}

	return success(req.Action, &joinedResponse{
		Member: out.Member,
		Roster: out.Roster,
	})
}

func (h *Handler) handleLeave(ctx context.Context, c *conn, req *Request) *Response {
	var data codeRequest
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return failure(req.Action, errors.New("malformed leave request"))
	}

	_, err := h.service.LeaveSession(ctx, &sessionSvc.LeaveSessionInput{
		Code:     data.Code,
		MemberID: c.id,
	})
	if err != nil {
		return failure(req.Action, err)
	}

	h.detach(c)

	return success(req.Action, nil)
}

func (h *Handler) handleUpdateConfig(ctx context.Context, c *conn, req *Request) *Response {
	var data configRequest
	if err := json.Unmarshal(req.Data, &data); err != nil || data.Config == nil {
		return failure(req.Action, errors.New("malformed config request"))
	}

	out, err := h.service.UpdateConfig(ctx, &sessionSvc.UpdateConfigInput{
		Code:  data.Code,
		Patch: data.Config,
	})
	if err != nil {
		return failure(req.Action, err)
	}

	return success(req.Action, out.Config)
}

func (h *Handler) handleRunShuffle(ctx context.Context, c *conn, req *Request) *Response {
	var data codeRequest
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return failure(req.Action, errors.New("malformed shuffle request"))
	}

	out, err := h.service.RunShuffle(ctx, &sessionSvc.RunShuffleInput{Code: data.Code})
	if err != nil {
		return failure(req.Action, err)
	}

	return success(req.Action, out.Result)
}

func (h *Handler) handleGetSnapshot(ctx context.Context, c *conn, req *Request) *Response {
	var data codeRequest
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return failure(req.Action, errors.New("malformed snapshot request"))
	}

	out, err := h.service.GetSnapshot(ctx, &sessionSvc.GetSnapshotInput{Code: data.Code})
	if err != nil {
		return failure(req.Action, err)
	}

	return success(req.Action, out)
}

func (h *Handler) handleEndSession(ctx context.Context, c *conn, req *Request) *Response {
	var data codeRequest
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return failure(req.Action, errors.New("malformed end request"))
	}

	out, err := h.service.EndSession(ctx, &sessionSvc.EndSessionInput{Code: data.Code})
	if err != nil {
		return failure(req.Action, err)
	}

	h.detach(c)

	return success(req.Action, out)
}

// attach registers the connection for the session's events, opening one
// store subscription per session per process
func (h *Handler) attach(ctx context.Context, c *conn, code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.code == code {
		return nil
	}

	// Moving to another session leaves the old hub first, otherwise the
	// connection keeps receiving the old session's broadcasts and its
	// subscription can never close
	h.detachLocked(c)

	hb, ok := h.hubs[code]
	if !ok {
		// The subscription's lifetime is the hub's, not the request's
		sub, err := h.repo.Subscribe(context.Background(), &sessionRepo.SubscribeInput{
			Code: code,
			Handler: func(env *sessionRepo.Envelope) {
				h.broadcast(code, env)
			},
		})
		if err != nil {
			return err
		}

		hb = &hub{sub: sub, conns: map[*conn]bool{}}
		h.hubs[code] = hb
	}

	hb.conns[c] = true
	c.code = code

	return nil
}

// detach removes the connection from its session's hub, closing the store
// subscription once no local connection is watching
func (h *Handler) detach(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detachLocked(c)
}

func (h *Handler) detachLocked(c *conn) {
	if c.code == "" {
		return
	}

	hb, ok := h.hubs[c.code]
	if ok {
		delete(hb.conns, c)
		if len(hb.conns) == 0 {
			_ = hb.sub.Close()
			delete(h.hubs, c.code)
		}
	}

	c.code = ""
}

// broadcast relays a store event to every local connection in the session
func (h *Handler) broadcast(code string, env *sessionRepo.Envelope) {
	h.mu.Lock()
	hb, ok := h.hubs[code]
	if !ok {
		h.mu.Unlock()
		return
	}

	conns := make([]*conn, 0, len(hb.conns))
	for c := range hb.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.writeMu.Lock()
		err := c.ws.WriteJSON(env)
		c.writeMu.Unlock()
		if err != nil {
			h.log.Errorw("failed to relay event", "conn", c.id, "event", env.Event, "error", err)
		}
	}
}

// disconnect cleans up after a closed connection. A member that vanishes
// without an explicit leave is removed from its session's roster.
func (h *Handler) disconnect(ctx context.Context, c *conn) {
	code := c.code
	h.detach(c)

	if code != "" {
		_, err := h.service.LeaveSession(ctx, &sessionSvc.LeaveSessionInput{
			Code:     code,
			MemberID: c.id,
		})
		if err != nil && !errors.Is(err, sessionSvc.ErrSessionNotFound) {
			h.log.Errorw("failed to remove disconnected member", "conn", c.id, "code", code, "error", err)
		}
	}

	_ = c.ws.Close()
	h.log.Infow("client disconnected", "conn", c.id)
}

func (h *Handler) reply(c *conn, resp *Response) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteJSON(resp); err != nil {
		h.log.Errorw("failed to write response", "conn", c.id, "error", err)
	}
}

func success(action string, data any) *Response {
	return &Response{Action: action, Success: true, Data: data}
}

func failure(action string, err error) *Response {
	return &Response{Action: action, Success: false, Error: err.Error()}
}
