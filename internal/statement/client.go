package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/uuidlens/internal/querysql"
)

const (
	statementsPath = "/api/2.0/sql/statements"

	// DefaultWaitTimeout is the server-side wait requested on submit.
	DefaultWaitTimeout = 30 * time.Second

	// DefaultPollInterval is the fixed delay between status polls.
	DefaultPollInterval = 1 * time.Second

	// DefaultMaxPolls caps the number of status polls per statement.
	DefaultMaxPolls = 300

	// DefaultTimeout caps the whole submit/poll cycle.
	DefaultTimeout = 5 * time.Minute

	// cancelTimeout bounds the best-effort cancel request.
	cancelTimeout = 5 * time.Second

	tracerName = "github.com/roach88/uuidlens/internal/statement"
)

// Config binds a Client to one endpoint, credential and warehouse.
type Config struct {
	// Host is the workspace URL, e.g. "https://dbc-1234.cloud.databricks.com".
	// A missing scheme defaults to https.
	Host string

	// Token is the bearer credential.
	Token string

	// WarehouseID is the compute target statements run on.
	WarehouseID string

	// WaitTimeout is the server-side wait requested on submit.
	// Default: 30s (DefaultWaitTimeout). The endpoint accepts 0 or 5s-50s.
	WaitTimeout time.Duration

	// PollInterval is the delay between status polls. Default: 1s.
	PollInterval time.Duration

	// MaxPolls caps status polls per statement. Default: 300.
	MaxPolls int

	// Timeout caps the full submit/poll cycle. Default: 5m.
	Timeout time.Duration
}

// withDefaults fills in zero fields.
func (c Config) withDefaults() Config {
	if c.WaitTimeout == 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPolls == 0 {
		c.MaxPolls = DefaultMaxPolls
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Client executes statements against one endpoint.
//
// Thread-safety: Client is safe for concurrent use. Each Execute call owns
// its QueryJob.
type Client struct {
	cfg    Config
	host   string
	http   *client.Client
	tracer trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithTracerProvider records a span per Execute call.
// Default: no-op provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.WarehouseID == "" {
		return nil, fmt.Errorf("warehouse id is required")
	}
	host, err := normalizeHost(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid host: %w", err)
	}

	hc, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	c := &Client{
		cfg:    cfg.withDefaults(),
		host:   host,
		http:   hc,
		tracer: noop.NewTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// normalizeHost ensures a scheme and strips any path or trailing slash.
func normalizeHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("cannot parse %q", host)
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// Execute submits stmt, polls until it reaches a terminal state and returns
// the result rows (possibly empty).
//
// Failures are returned as *QueryError. Cancelling ctx aborts the wait and
// returns the context error.
func (c *Client) Execute(ctx context.Context, stmt querysql.Statement) ([][]any, error) {
	job, err := c.Run(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return job.Rows, nil
}

// Run is Execute but returns the full QueryJob, poll count included.
func (c *Client) Run(ctx context.Context, stmt querysql.Statement) (*QueryJob, error) {
	ctx, span := c.tracer.Start(ctx, "statement.execute",
		trace.WithAttributes(attribute.Int("statement.params", len(stmt.Params))),
	)
	defer span.End()

	job, err := c.run(ctx, stmt)

	if job != nil {
		span.SetAttributes(
			attribute.String("statement.id", job.StatementID),
			attribute.String("statement.state", string(job.State)),
			attribute.Int("statement.polls", job.Polls),
			attribute.Int("statement.rows", len(job.Rows)),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return job, nil
}

func (c *Client) run(parent context.Context, stmt querysql.Statement) (*QueryJob, error) {
	ctx, cancel := context.WithTimeout(parent, c.cfg.Timeout)
	defer cancel()

	job := &QueryJob{}

	resp, err := c.submit(ctx, stmt)
	if err != nil {
		return job, c.contextError(parent, ctx, job, err)
	}
	job.StatementID = resp.StatementID
	job.State = resp.Status.State

	slog.Debug("statement submitted",
		"statement_id", job.StatementID,
		"state", job.State,
	)

	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()

	for job.State.InProgress() {
		if job.Polls >= c.cfg.MaxPolls {
			c.cancelRemote(job.StatementID)
			return job, &QueryError{
				Code:        ErrCodeTimeout,
				Message:     fmt.Sprintf("statement still %s after %d polls", job.State, job.Polls),
				StatementID: job.StatementID,
			}
		}

		timer.Reset(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return job, c.contextError(parent, ctx, job, ctx.Err())
		case <-timer.C:
		}

		resp, err = c.poll(ctx, job.StatementID)
		job.Polls++
		if err != nil {
			return job, c.contextError(parent, ctx, job, err)
		}
		job.State = resp.Status.State

		slog.Debug("statement polled",
			"statement_id", job.StatementID,
			"state", job.State,
			"polls", job.Polls,
		)
	}

	switch job.State {
	case StateSucceeded:
		rows, err := c.collectRows(ctx, job.StatementID, resp.Result)
		if err != nil {
			return job, c.contextError(parent, ctx, job, err)
		}
		job.Rows = rows
		return job, nil

	case StateFailed, StateCanceled, StateClosed:
		msg := fmt.Sprintf("statement %s", strings.ToLower(string(job.State)))
		if resp.Status.Error != nil && resp.Status.Error.Message != "" {
			msg = resp.Status.Error.Message
		}
		return job, &QueryError{
			Code:        ErrCodeStatement,
			Message:     msg,
			StatementID: job.StatementID,
		}

	default:
		return job, &QueryError{
			Code:        ErrCodeDecode,
			Message:     fmt.Sprintf("unexpected statement state %q", job.State),
			StatementID: job.StatementID,
		}
	}
}

// contextError maps an error seen while ctx was live onto the caller's view.
// Parent cancellation wins; expiry of the executor's own deadline is a TIMEOUT.
func (c *Client) contextError(parent, ctx context.Context, job *QueryJob, err error) error {
	if parent.Err() != nil {
		c.cancelRemote(job.StatementID)
		return parent.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.cancelRemote(job.StatementID)
		return &QueryError{
			Code:        ErrCodeTimeout,
			Message:     fmt.Sprintf("statement did not finish within %s", c.cfg.Timeout),
			StatementID: job.StatementID,
			Err:         err,
		}
	}
	return err
}

func (c *Client) submit(ctx context.Context, stmt querysql.Statement) (*statementResponse, error) {
	params := make([]parameter, len(stmt.Params))
	for i, p := range stmt.Params {
		params[i] = parameter{Name: p.Name, Value: p.Value, Type: p.Type}
	}

	body, err := sonic.Marshal(submitRequest{
		WarehouseID:   c.cfg.WarehouseID,
		Statement:     stmt.Text,
		Parameters:    params,
		WaitTimeout:   fmt.Sprintf("%ds", int(c.cfg.WaitTimeout.Seconds())),
		OnWaitTimeout: "CONTINUE",
		Disposition:   "INLINE",
		Format:        "JSON_ARRAY",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	status, respBody, err := c.do(ctx, consts.MethodPost, c.host+statementsPath, body)
	if err != nil {
		return nil, &QueryError{Code: ErrCodeSubmission, Message: "submit request failed", Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &QueryError{
			Code:       ErrCodeSubmission,
			Message:    "statement submission rejected",
			StatusCode: status,
			Body:       truncateBody(respBody),
		}
	}

	var resp statementResponse
	if err := sonic.Unmarshal(respBody, &resp); err != nil {
		return nil, &QueryError{Code: ErrCodeDecode, Message: "cannot decode submit response", Err: err}
	}
	if resp.StatementID == "" && resp.Status.State.InProgress() {
		return nil, &QueryError{Code: ErrCodeDecode, Message: "submit response has no statement_id"}
	}
	return &resp, nil
}

func (c *Client) poll(ctx context.Context, statementID string) (*statementResponse, error) {
	target := c.host + statementsPath + "/" + url.PathEscape(statementID)

	status, respBody, err := c.do(ctx, consts.MethodGet, target, nil)
	if err != nil {
		return nil, &QueryError{Code: ErrCodePoll, Message: "poll request failed", StatementID: statementID, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &QueryError{
			Code:        ErrCodePoll,
			Message:     "statement status check rejected",
			StatementID: statementID,
			StatusCode:  status,
			Body:        truncateBody(respBody),
		}
	}

	var resp statementResponse
	if err := sonic.Unmarshal(respBody, &resp); err != nil {
		return nil, &QueryError{Code: ErrCodeDecode, Message: "cannot decode poll response", StatementID: statementID, Err: err}
	}
	return &resp, nil
}

// collectRows concatenates the first inline chunk with any chunks linked
// from it, in order.
func (c *Client) collectRows(ctx context.Context, statementID string, first *resultData) ([][]any, error) {
	if first == nil {
		return [][]any{}, nil
	}

	rows := append([][]any{}, first.DataArray...)
	next := first.NextChunkInternalLink
	for next != "" {
		status, respBody, err := c.do(ctx, consts.MethodGet, c.host+next, nil)
		if err != nil {
			return nil, &QueryError{Code: ErrCodePoll, Message: "chunk request failed", StatementID: statementID, Err: err}
		}
		if status < 200 || status >= 300 {
			return nil, &QueryError{
				Code:        ErrCodePoll,
				Message:     "result chunk fetch rejected",
				StatementID: statementID,
				StatusCode:  status,
				Body:        truncateBody(respBody),
			}
		}

		var chunk resultData
		if err := sonic.Unmarshal(respBody, &chunk); err != nil {
			return nil, &QueryError{Code: ErrCodeDecode, Message: "cannot decode result chunk", StatementID: statementID, Err: err}
		}
		rows = append(rows, chunk.DataArray...)
		next = chunk.NextChunkInternalLink
	}
	return rows, nil
}

// cancelRemote asks the endpoint to stop a statement we gave up on.
// Best effort: failures are only logged.
func (c *Client) cancelRemote(statementID string) {
	if statementID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()

	target := c.host + statementsPath + "/" + url.PathEscape(statementID) + "/cancel"
	status, _, err := c.do(ctx, consts.MethodPost, target, []byte("{}"))
	if err != nil || status < 200 || status >= 300 {
		slog.Warn("statement cancel failed",
			"statement_id", statementID,
			"status", status,
			"error", err,
		)
		return
	}
	slog.Debug("statement cancelled", "statement_id", statementID)
}

// do sends one request and returns the status code and a copy of the body.
// The hertz client only honours deadlines, so the call runs on its own
// goroutine and ctx cancellation abandons it; req and resp are released
// once that goroutine is done with them.
func (c *Client) do(ctx context.Context, method, target string, body []byte) (int, []byte, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	release := func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}

	req.SetMethod(method)
	req.SetRequestURI(target)
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.SetContentTypeBytes([]byte("application/json"))
		req.SetBody(body)
	}

	done := make(chan error, 1)
	go func() {
		if deadline, ok := ctx.Deadline(); ok {
			done <- c.http.DoDeadline(ctx, req, resp, deadline)
			return
		}
		done <- c.http.Do(ctx, req, resp)
	}()

	select {
	case <-ctx.Done():
		go func() {
			<-done
			release()
		}()
		return 0, nil, ctx.Err()
	case err := <-done:
		defer release()
		if err != nil {
			return 0, nil, err
		}
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		// resp is released on return, so the body must be copied out.
		out := append([]byte(nil), resp.Body()...)
		return resp.StatusCode(), out, nil
	}
}
