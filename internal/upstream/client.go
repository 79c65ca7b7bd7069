// Package upstream implements the streaming HTTP transport used to reach
// LLM providers: a single POST per call, yielding raw SSE lines as they
// arrive, with per-call total/connect/sock_read deadlines and an optional
// forward proxy. It carries no protocol knowledge — building the request
// body/headers and decoding SSE payloads is the wire adapters' job
// (internal/wire); this package only moves bytes.
package upstream

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
	"github.com/xinyihrsinuo/DeepClaude/internal/metrics"
	"github.com/xinyihrsinuo/DeepClaude/internal/tlsutil"
)

// Default per-call deadlines, per spec.
const (
	DefaultTotalTimeout    = 600 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultSockReadTimeout = 500 * time.Second
)

// Timeouts overrides the three per-call deadlines. A zero field means "use
// the client-wide default".
type Timeouts struct {
	Total    time.Duration
	Connect  time.Duration
	SockRead time.Duration
}

// Call describes one outgoing streaming POST.
type Call struct {
	URL       string
	Headers   http.Header
	Body      []byte
	UseProxy  bool
	Timeouts  Timeouts
	Provider  string // label for metrics only
	Model     string // label for metrics only
	Phase     string // "reason" or "answer", label for metrics only
}

// Client performs streaming HTTP POSTs against LLM provider endpoints. One
// Client is shared by the whole process; the proxy URL is resolved once at
// construction per the gateway's read-once resource policy.
type Client struct {
	transport *http.Transport
	proxyURL  *url.URL
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// New constructs a Client, reading PROXY_URL once. If PROXY_URL is unset
// (or cannot be parsed), calls with UseProxy=true proceed without a proxy and
// log a warning, matching spec.md §4.B.
func New(logger *zap.Logger, m *metrics.Collector) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	var proxyURL *url.URL
	if raw := strings.TrimSpace(os.Getenv("PROXY_URL")); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil {
			logger.Warn("PROXY_URL is set but could not be parsed; proceeding without a proxy", zap.Error(err))
		} else {
			proxyURL = parsed
		}
	}

	return &Client{
		transport: tlsutil.SecureTransport(tlsutil.TransportOptions{
			MaxConnsPerHost:     100,
			MaxIdleConnsPerHost: 100,
			ConnectTimeout:      DefaultConnectTimeout,
		}),
		proxyURL: proxyURL,
		logger:   logger,
		metrics:  m,
	}
}

// Line is one non-empty SSE line delivered from the upstream body, or a
// terminal error.
type Line struct {
	Text string
	Err  error
}

// Stream performs the POST described by call and returns a channel of raw
// SSE lines as they arrive. The channel is closed when the body is
// exhausted, the context is canceled, or a fatal error occurs (in which
// case exactly one Line carrying Err is sent before the channel closes).
// Empty lines are filtered; force_close is applied per call via
// Request.Close so the shared transport's pool is unaffected for other
// calls.
func (c *Client) Stream(ctx context.Context, call Call) (<-chan Line, error) {
	total := call.Timeouts.Total
	if total <= 0 {
		total = DefaultTotalTimeout
	}
	connect := call.Timeouts.Connect
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	sockRead := call.Timeouts.SockRead
	if sockRead <= 0 {
		sockRead = DefaultSockReadTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, total)

	transport := c.transport
	needsClone := call.UseProxy || connect != DefaultConnectTimeout
	if needsClone {
		cloned := c.transport.Clone()
		cloned.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
		if call.UseProxy {
			if c.proxyURL != nil {
				proxyURL := c.proxyURL
				cloned.Proxy = func(*http.Request) (*url.URL, error) { return proxyURL, nil }
			} else {
				c.logger.Warn("call requested a proxy but PROXY_URL is unset; proceeding without one",
					zap.String("provider", call.Provider))
			}
		}
		transport = cloned
	}
	client := &http.Client{Transport: transport}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.URL, strings.NewReader(string(call.Body)))
	if err != nil {
		cancel()
		return nil, apierr.New(apierr.Transport, "failed to build upstream request").WithCause(err)
	}
	req.Header = call.Headers
	req.Close = true

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		c.recordOutcome(call, start, classifyDialError(ctx, err))
		if ctx.Err() != nil {
			return nil, apierr.New(apierr.Timeout, "upstream call exceeded total timeout").WithCause(err).WithProvider(call.Provider)
		}
		return nil, apierr.New(apierr.Transport, "upstream request failed").WithCause(err).WithProvider(call.Provider)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		defer cancel()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		c.recordOutcome(call, start, "upstream_http_error")
		return nil, apierr.New(apierr.UpstreamHTTPError, "upstream returned non-2xx status").
			WithHTTPStatus(resp.StatusCode).
			WithProvider(call.Provider).
			WithCause(errorBodyf(resp.StatusCode, body))
	}

	ch := make(chan Line)
	go c.pump(ctx, cancel, resp.Body, sockRead, ch, call, start)
	return ch, nil
}

func (c *Client) pump(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, sockRead time.Duration, ch chan<- Line, call Call, start time.Time) {
	defer cancel()
	defer body.Close()
	defer close(ch)

	reader := bufio.NewReader(body)
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					errs <- err
				}
				close(lines)
				return
			}
		}
	}()

	watchdog := time.NewTimer(sockRead)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			c.recordOutcome(call, start, "canceled")
			send(ctx, ch, Line{Err: apierr.New(apierr.Canceled, "upstream stream canceled").WithProvider(call.Provider)})
			return

		case <-watchdog.C:
			c.recordOutcome(call, start, "timeout")
			send(ctx, ch, Line{Err: apierr.New(apierr.Timeout, "upstream socket read timed out").WithProvider(call.Provider)})
			return

		case err := <-errs:
			c.recordOutcome(call, start, "transport_error")
			send(ctx, ch, Line{Err: apierr.New(apierr.Transport, "upstream stream read failed").WithCause(err).WithProvider(call.Provider)})
			return

		case line, ok := <-lines:
			if !ok {
				c.recordOutcome(call, start, "ok")
				return
			}
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(sockRead)

			trimmed := strings.TrimRight(line, "\r\n")
			if trimmed == "" {
				continue
			}
			if !send(ctx, ch, Line{Text: trimmed}) {
				return
			}
		}
	}
}

func send(ctx context.Context, ch chan<- Line, l Line) bool {
	select {
	case ch <- l:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) recordOutcome(call Call, start time.Time, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordUpstreamRequest(call.Provider, call.Model, call.Phase, status, time.Since(start))
}

func classifyDialError(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return "timeout"
	}
	return "transport_error"
}

type errorBody struct {
	status int
	body   string
}

func errorBodyf(status int, body []byte) error {
	return &errorBody{status: status, body: string(body)}
}

func (e *errorBody) Error() string {
	return "status=" + http.StatusText(e.status) + " body=" + e.body
}
