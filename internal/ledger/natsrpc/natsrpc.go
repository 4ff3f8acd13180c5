// Package natsrpc carries ledger calls over NATS request-reply, so thin
// clients can talk to a process that owns the actual backend. The envelope is
// JSON; the server answers on the reply inbox with either records or a
// structured ledger error.
package natsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/groblegark/agora/internal/ledger"
)

// Subject is the request-reply subject all calls go through. Servers join
// the queue group so calls are load-balanced across replicas.
const (
	Subject    = "agora.rpc.call"
	queueGroup = "agora-rpc"
)

// defaultTimeout bounds calls whose context carries no deadline.
const defaultTimeout = 10 * time.Second

type request struct {
	Domain  string          `json:"domain"`
	Fn      string          `json:"fn"`
	Author  string          `json:"author,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	List    bool            `json:"list"`
}

type response struct {
	Records []*ledger.Record `json:"records,omitempty"`
	Error   *wireError       `json:"error,omitempty"`
}

type wireError struct {
	Code   ledger.Code `json:"code"`
	Domain string      `json:"domain"`
	Fn     string      `json:"fn"`
	Msg    string      `json:"msg,omitempty"`
}

// Client implements ledger.Caller against a remote server.
type Client struct {
	conn *nats.Conn
}

var _ ledger.Caller = (*Client)(nil)

// NewClient connects to NATS with automatic reconnection support.
func NewClient(url string, opts ...nats.Option) (*Client, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Client{conn: nc}, nil
}

// NewClientWithConn wraps an existing connection. The caller keeps ownership
// of the connection.
func NewClientWithConn(nc *nats.Conn) *Client {
	return &Client{conn: nc}
}

// Call implements ledger.Caller for single-record functions.
func (c *Client) Call(ctx context.Context, domain, fn string, payload any) (*ledger.Record, error) {
	records, err := c.roundTrip(ctx, domain, fn, payload, false)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ledger.Errf(ledger.CodeInternal, domain, fn, "empty reply")
	}
	return records[0], nil
}

// CallList implements ledger.Caller for multi-record functions.
func (c *Client) CallList(ctx context.Context, domain, fn string, payload any) ([]*ledger.Record, error) {
	return c.roundTrip(ctx, domain, fn, payload, true)
}

func (c *Client) roundTrip(ctx context.Context, domain, fn string, payload any, list bool) ([]*ledger.Record, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}
	req, err := json.Marshal(request{
		Domain:  domain,
		Fn:      fn,
		Author:  ledger.AuthorFromContext(ctx),
		Payload: raw,
		List:    list,
	})
	if err != nil {
		return nil, ledger.Errf(ledger.CodeInvalid, domain, fn, "%v", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	msg, err := c.conn.RequestWithContext(ctx, Subject, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return nil, ledger.Errf(ledger.CodeTimeout, domain, fn, "request timed out")
		}
		return nil, ledger.Errf(ledger.CodeInternal, domain, fn, "%v", err)
	}

	var resp response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, ledger.Errf(ledger.CodeInternal, domain, fn, "bad reply: %v", err)
	}
	if resp.Error != nil {
		return nil, &ledger.Error{
			Code:   resp.Error.Code,
			Domain: resp.Error.Domain,
			Fn:     resp.Error.Fn,
			Msg:    resp.Error.Msg,
		}
	}
	return resp.Records, nil
}

// Close closes the client's connection.
func (c *Client) Close() error {
	c.conn.Close()
	return nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}

// Server exposes any ledger.Caller over the wire.
type Server struct {
	conn    *nats.Conn
	backend ledger.Caller
	logger  *slog.Logger
	sub     *nats.Subscription
}

// NewServer wraps an existing connection. Call Start to begin serving.
func NewServer(nc *nats.Conn, backend ledger.Caller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{conn: nc, backend: backend, logger: logger}
}

// Start subscribes to the call subject in the shared queue group.
func (s *Server) Start() error {
	sub, err := s.conn.QueueSubscribe(Subject, queueGroup, s.handle)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", Subject, err)
	}
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flushing subscription: %w", err)
	}
	s.sub = sub
	return nil
}

// Stop unsubscribes; in-flight handlers finish on their own.
func (s *Server) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}

func (s *Server) handle(msg *nats.Msg) {
	var req request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.reply(msg, response{Error: &wireError{Code: ledger.CodeInvalid, Msg: "bad request: " + err.Error()}})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if req.Author != "" {
		ctx = ledger.WithAuthor(ctx, req.Author)
	}

	var (
		records []*ledger.Record
		err     error
	)
	if req.List {
		records, err = s.backend.CallList(ctx, req.Domain, req.Fn, req.Payload)
	} else {
		var rec *ledger.Record
		rec, err = s.backend.Call(ctx, req.Domain, req.Fn, req.Payload)
		if rec != nil {
			records = []*ledger.Record{rec}
		}
	}
	if err != nil {
		var lerr *ledger.Error
		if !errors.As(err, &lerr) {
			lerr = ledger.Errf(ledger.CodeInternal, req.Domain, req.Fn, "%v", err)
		}
		s.reply(msg, response{Error: &wireError{
			Code:   lerr.Code,
			Domain: lerr.Domain,
			Fn:     lerr.Fn,
			Msg:    lerr.Msg,
		}})
		return
	}
	s.reply(msg, response{Records: records})
}

func (s *Server) reply(msg *nats.Msg, resp response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("natsrpc: encoding reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Error("natsrpc: sending reply", "error", err)
	}
}
