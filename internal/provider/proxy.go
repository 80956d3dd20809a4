package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleveque/webacquire/internal/content"
	"github.com/fleveque/webacquire/internal/metrics"
	"github.com/fleveque/webacquire/internal/model"
	"github.com/fleveque/webacquire/internal/requestid"
	"github.com/fleveque/webacquire/internal/storage"
)

// DefaultEndpoint is the proxy's request endpoint.
const DefaultEndpoint = "https://api.brightdata.com/request"

const (
	defaultTimeout = 60 * time.Second
	defaultMaxBody = 20 << 20
)

// proxyBody is the JSON sent to the proxy endpoint.
type proxyBody struct {
	Zone       string `json:"zone"`
	URL        string `json:"url"`
	Format     string `json:"format"`
	DataFormat string `json:"data_format,omitempty"`
}

// statusError is a non-2xx answer from the proxy. Its message is what ends
// up in the item's error field.
type statusError struct {
	label  string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s error (%d): %s", e.label, e.status, e.body)
}

// ProxyClient posts target URLs to the proxy and returns the raw payload.
// It is safe for concurrent use; one instance serves every fan-out worker.
type ProxyClient struct {
	endpoint string
	client   *http.Client
	retry    RetryPolicy
	limiter  *rate.Limiter
	timeout  time.Duration
	maxBody  int64
	calls    storage.CallRepository
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// ProxyOption configures a ProxyClient.
//
// Go note: functional options keep the constructor signature stable while
// letting tests swap just the piece they care about (usually the endpoint).
type ProxyOption func(*ProxyClient)

// WithEndpoint overrides the proxy endpoint URL.
func WithEndpoint(endpoint string) ProxyOption {
	return func(p *ProxyClient) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) ProxyOption {
	return func(p *ProxyClient) {
		if c != nil {
			p.client = c
		}
	}
}

// WithRetry sets the retry policy. The default fires once.
func WithRetry(policy RetryPolicy) ProxyOption {
	return func(p *ProxyClient) { p.retry = policy }
}

// WithRateLimit throttles outbound calls to perMinute (0 disables it).
func WithRateLimit(perMinute, burst int) ProxyOption {
	return func(p *ProxyClient) {
		if perMinute <= 0 {
			p.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) ProxyOption {
	return func(p *ProxyClient) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMaxBody caps how many payload bytes are read.
func WithMaxBody(n int64) ProxyOption {
	return func(p *ProxyClient) {
		if n > 0 {
			p.maxBody = n
		}
	}
}

// WithCallLedger records every call for cost monitoring.
func WithCallLedger(repo storage.CallRepository) ProxyOption {
	return func(p *ProxyClient) { p.calls = repo }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) ProxyOption {
	return func(p *ProxyClient) { p.metrics = m }
}

// NewProxyClient creates a client with the default endpoint and a 60s
// per-attempt timeout.
func NewProxyClient(logger *zap.Logger, opts ...ProxyOption) *ProxyClient {
	p := &ProxyClient{
		endpoint: DefaultEndpoint,
		client:   &http.Client{},
		timeout:  defaultTimeout,
		maxBody:  defaultMaxBody,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch performs the proxy call. It never returns an error: transport and
// upstream failures become a FetchOutcome with Success=false.
func (p *ProxyClient) Fetch(ctx context.Context, req ProxyRequest) model.FetchOutcome {
	out := model.FetchOutcome{Item: req.URL}
	label := req.Label
	if label == "" {
		label = LabelUnlocker
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			out.Error = fmt.Sprintf("%s request not sent: %v", label, err)
			return out
		}
	}

	start := time.Now()

	var (
		payload []byte
		header  string
		status  int
	)
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		var err error
		payload, header, status, err = p.post(attemptCtx, req, label)
		return err
	})
	duration := time.Since(start)

	out.StatusCode = status
	if err != nil {
		out.Error = p.describe(err, label)
	} else {
		out.Success = true
		out.Payload = payload
		out.ContentTypeHeader = header
		if req.Markdown {
			out.Classified = model.ContentText
		} else {
			out.Classified = content.Classify(string(payload), header, req.URL)
		}
	}

	p.metrics.ObserveProxy(req.Zone, out.Success, duration)
	p.record(ctx, req, out, duration)

	if !out.Success {
		p.logger.Debug("proxy call failed",
			zap.String("url", req.URL),
			zap.String("zone", req.Zone),
			zap.Int("status", status),
			zap.String("error", out.Error),
		)
	}

	return out
}

func (p *ProxyClient) post(ctx context.Context, req ProxyRequest, label string) ([]byte, string, int, error) {
	body := proxyBody{Zone: req.Zone, URL: req.URL, Format: "raw"}
	if req.Markdown {
		body.DataFormat = "markdown"
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, "", 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, "", 0, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "webacquire/1.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, "", 0, err
	}
	defer resp.Body.Close()

	// io.LimitReader caps the read so a runaway page can't exhaust memory.
	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody))
	if err != nil {
		return nil, "", resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body goes into the error verbatim; only an empty one is
		// replaced by the status text.
		msg := string(data)
		if strings.TrimSpace(msg) == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, "", resp.StatusCode, &statusError{label: label, status: resp.StatusCode, body: msg}
	}

	return data, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}

func (p *ProxyClient) describe(err error, label string) string {
	var se *statusError
	if errors.As(err, &se) {
		return se.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s request timed out after %s", label, p.timeout)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Sprintf("%s request cancelled", label)
	}
	return fmt.Sprintf("%s request failed: %v", label, err)
}

func (p *ProxyClient) record(ctx context.Context, req ProxyRequest, out model.FetchOutcome, d time.Duration) {
	if p.calls == nil {
		return
	}

	ms := d.Milliseconds()
	call := &model.CallRecord{
		RequestID:  requestid.From(ctx),
		Kind:       model.CallProxy,
		Target:     req.URL,
		Provider:   req.Zone,
		Success:    out.Success,
		DurationMs: &ms,
	}
	if out.StatusCode != 0 {
		status := out.StatusCode
		call.StatusCode = &status
	}
	if out.Error != "" {
		msg := out.Error
		call.ErrorMessage = &msg
	}

	// The ledger write must survive the caller's cancellation.
	if err := p.calls.Create(context.WithoutCancel(ctx), call); err != nil {
		p.logger.Error("recording proxy call", zap.Error(err))
	}
}
