// Package client implements the portal protocol client: it learns a session id,
// declares the client parameters, identifies the user and then dispatches sequenced
// function calls. A Client runs its handshake once; after any failure it must be
// discarded and a new Client created.
package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tansive/pronote/internal/common/httpclient"
	"github.com/tansive/pronote/internal/common/logtrace"
	"github.com/tansive/pronote/internal/pronote/bootstrap"
	"github.com/tansive/pronote/internal/pronote/cryptocodec"
	"github.com/tansive/pronote/internal/pronote/envelope"
	"github.com/tansive/pronote/internal/pronote/protoerror"
	"github.com/tansive/pronote/internal/pronote/session"
)

// Options configure a Client.
type Options struct {
	EntryURL   string                 // page the session id is read from
	PortalRoot string                 // base URL of function calls
	Deriver    cryptocodec.KeyDeriver // defaults to PlaceholderDeriver
	Rand       io.Reader              // IV source, defaults to crypto/rand
}

// ProtocolResponse is the raw answer to a function call.
type ProtocolResponse struct {
	Function   string
	Order      int64
	StatusCode int
	Body       string
}

// Client is one portal session. The zero value is not usable; call New.
type Client struct {
	opts       Options
	transport  httpclient.HTTPClientInterface
	transcript Transcript

	mu         sync.RWMutex
	state      State
	connecting bool
	session    *session.Session
}

// New creates a client in state Uninitialized.
func New(transport httpclient.HTTPClientInterface, opts Options) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.EntryURL == "" || opts.PortalRoot == "" {
		return nil, fmt.Errorf("entry url and portal root are required")
	}
	if opts.Deriver == nil {
		opts.Deriver = cryptocodec.PlaceholderDeriver{}
	}
	return &Client{
		opts:      opts,
		transport: transport,
	}, nil
}

// State returns the current handshake state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Session returns the session once the id is known, nil before.
func (c *Client) Session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Transcript returns the calls made so far.
func (c *Client) Transcript() []Entry {
	return c.transcript.Entries()
}

// Connect runs the handshake from Uninitialized to Identified and stops at the
// first failing step, returning that step's error. The client keeps the state it
// had reached; it cannot be resumed.
func (c *Client) Connect(ctx context.Context, id Identity) error {
	if id.Username == "" {
		return protoerror.ErrProtocol.Msg("identity has no username")
	}
	if err := c.beginConnect(); err != nil {
		return err
	}
	defer c.endConnect()

	ctx, traceID := logtrace.WithTrace(ctx)
	logger := logtrace.Ctx(ctx).With().Str("component", "client").Logger()
	start := time.Now()

	// Uninitialized -> SessionKnown
	sessionID, err := bootstrap.Fetch(ctx, c.transport, c.opts.EntryURL)
	if err != nil {
		logger.Error().Err(err).Msg("bootstrap failed")
		return err
	}
	iv, err := session.RandomIV(c.opts.Rand)
	if err != nil {
		return err
	}
	s, err := session.New(sessionID, iv, c.opts.Deriver)
	if err != nil {
		return err
	}
	c.advance(StateSessionKnown, s)
	logger = logger.With().Int("session_id", sessionID).Logger()
	logger.Info().Str("key_derivation", s.Deriver()).Msg("session established")

	// SessionKnown -> ParametersSent
	call, err := parametersCall(s.ClientIV())
	if err != nil {
		return protoerror.ErrProtocol.MsgErr("building parameters call", err)
	}
	if _, err := c.send(ctx, &logger, s, call); err != nil {
		return err
	}
	c.advance(StateParametersSent, nil)

	// ParametersSent -> Identified
	call, err = identificationCall(id)
	if err != nil {
		return protoerror.ErrProtocol.MsgErr("building identification call", err)
	}
	if _, err := c.send(ctx, &logger, s, call); err != nil {
		return err
	}
	c.advance(StateIdentified, nil)

	logger.Info().
		Str("trace_id", traceID).
		Dur("elapsed", time.Since(start)).
		Msg("handshake complete")
	return nil
}

// Call sends a function call on an identified session and returns the raw response.
func (c *Client) Call(ctx context.Context, call envelope.FunctionCall) (*ProtocolResponse, error) {
	c.mu.RLock()
	state, s := c.state, c.session
	c.mu.RUnlock()
	if state != StateIdentified {
		return nil, protoerror.ErrProtocolState.Msg(fmt.Sprintf("%s requires state %s, client is %s", call.Name, StateIdentified, state))
	}
	logger := logtrace.Ctx(ctx).With().Str("component", "client").Int("session_id", s.ID()).Logger()
	return c.send(ctx, &logger, s, call)
}

func (c *Client) beginConnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connecting {
		return protoerror.ErrProtocolState.Msg("handshake already in progress")
	}
	if c.state != StateUninitialized {
		return protoerror.ErrProtocolState.Msg(fmt.Sprintf("handshake requires state %s, client is %s; create a new client", StateUninitialized, c.state))
	}
	c.connecting = true
	return nil
}

func (c *Client) endConnect() {
	c.mu.Lock()
	c.connecting = false
	c.mu.Unlock()
}

func (c *Client) advance(to State, s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s != nil {
		c.session = s
	}
	c.state = to
}

// send builds and posts one call. The order number is spent before the network call.
func (c *Client) send(ctx context.Context, logger *zerolog.Logger, s *session.Session, call envelope.FunctionCall) (*ProtocolResponse, error) {
	req, err := envelope.Build(c.opts.PortalRoot, s, call)
	if err != nil {
		return nil, err
	}
	entry := Entry{
		Function: call.Name,
		Order:    req.Order,
		Token:    req.Token,
		At:       time.Now().UTC(),
	}

	resp, err := c.transport.PostJSON(ctx, req.URL, req.Body)
	if err != nil {
		entry.Error = err.Error()
		c.transcript.add(entry)
		logger.Error().Err(err).Str("function", call.Name).Int64("order", req.Order).Msg("function call failed")
		return nil, err
	}

	entry.StatusCode = resp.StatusCode
	entry.Response = string(resp.Body)
	entry.ServerError = serverError(resp.Body)
	c.transcript.add(entry)

	ev := logger.Debug()
	if !resp.OK() || entry.ServerError != "" {
		ev = logger.Warn()
	}
	ev.Str("function", call.Name).
		Int64("order", req.Order).
		Int("status", resp.StatusCode).
		Str("server_error", entry.ServerError).
		Msg("function call completed")

	return &ProtocolResponse{
		Function:   call.Name,
		Order:      req.Order,
		StatusCode: resp.StatusCode,
		Body:       string(resp.Body),
	}, nil
}
