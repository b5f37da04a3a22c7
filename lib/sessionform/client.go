// Package sessionform drives multi-step conversations with stateful
// legacy web applications: cookie-carrying, hidden-form-state-carrying
// HTTP round trips with automatic session re-establishment after
// repeated failures.
package sessionform

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	random "github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"cpaintel-backend/lib/htmlutil"
	"cpaintel-backend/lib/telemetry"
)

var tracer = otel.Tracer("lib/sessionform")

// ErrSessionLost is returned when re-establishing an expired session
// itself fails. The current enumeration step should be abandoned.
var ErrSessionLost = fmt.Errorf("session re-establishment failed")

type State int

const (
	StateUninitialized State = iota
	StateEstablished
	StateSearching
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateEstablished:
		return "established"
	case StateSearching:
		return "searching"
	case StateExpired:
		return "expired"
	}
	return "uninitialized"
}

// target sites start returning degraded or empty responses when hit
// faster than this, so the delay is a correctness constraint rather
// than politeness
const defaultDelay = time.Second * 2
const jitterMs = 1000

// re-establish the session after this many consecutive failures
const maxConsecutiveFailures = 5

const userAgent = "CPAIntelCollector/1.0 (professional directory aggregation; contact ops@cpaintel.ca)"

type Options struct {
	EntryURL string
	// defaults to 20s
	Timeout time.Duration
	// inter-request delay, defaults to 2s (+ up to 1s jitter)
	Delay time.Duration
	// overridable in tests, defaults to time.Sleep
	Sleep func(time.Duration)
}

type Client struct {
	Http *resty.Client

	entryURL   string
	currentURL string
	hidden     map[string]string
	state      State
	failures   int
	delay      time.Duration
	sleep      func(time.Duration)
}

func NewClient(opts Options) (*Client, error) {
	if opts.EntryURL == "" {
		return nil, fmt.Errorf("an entry url is required")
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 20
	}
	delay := opts.Delay
	if delay == 0 {
		delay = defaultDelay
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "sessionform/http")

	return &Client{
		Http:     client,
		entryURL: opts.EntryURL,
		hidden:   map[string]string{},
		delay:    delay,
		sleep:    sleep,
	}, nil
}

func (c *Client) State() State { return c.state }

// HiddenFields returns the hidden-field set captured from the most
// recent page.
func (c *Client) HiddenFields() map[string]string {
	out := make(map[string]string, len(c.hidden))
	for k, v := range c.hidden {
		out[k] = v
	}
	return out
}

// Throttle sleeps for the mandatory inter-request delay plus jitter.
func (c *Client) Throttle() {
	jitter, err := random.IntRange(0, jitterMs)
	if err != nil {
		jitter = jitterMs / 2
	}
	c.sleep(c.delay + time.Duration(jitter)*time.Millisecond)
}

// EstablishSession fetches the entry page, capturing session cookies
// and the hidden form inputs the next POST must echo back.
func (c *Client) EstablishSession(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:EstablishSession")
	defer span.End()

	res, err := c.Http.R().SetContext(ctx).Get(c.entryURL)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch entry page")
		return fmt.Errorf("fetch entry page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse entry page")
		return fmt.Errorf("parse entry page: %w", err)
	}

	c.hidden = htmlutil.HiddenInputs(doc)
	c.currentURL = c.entryURL
	c.state = StateEstablished
	c.failures = 0

	slog.DebugContext(ctx, "session established",
		"entry", c.entryURL,
		"hidden_fields", len(c.hidden),
	)
	return nil
}

// SubmitSearch POSTs a form built from the carried hidden fields with
// the fields named in `clear` blanked and `params` overwriting. The
// response's refreshed hidden-field set replaces the carried one;
// failing to echo the refreshed set desynchronizes from server-side
// view state and yields empty or stale pages.
//
// Failures are counted: after five consecutive ones the session is
// re-established from scratch. If re-establishment itself fails the
// returned error wraps ErrSessionLost.
func (c *Client) SubmitSearch(ctx context.Context, action string, params map[string]string, clear []string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:SubmitSearch")
	defer span.End()

	if c.state == StateUninitialized {
		if err := c.EstablishSession(ctx); err != nil {
			return nil, err
		}
	}

	form := make(map[string]string, len(c.hidden)+len(params))
	for k, v := range c.hidden {
		form[k] = v
	}
	for _, k := range clear {
		form[k] = ""
	}
	for k, v := range params {
		form[k] = v
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("referer", c.currentURL).
		SetFormData(form).
		Post(action)
	if err != nil {
		span.SetStatus(codes.Error, "search post failed")
		return nil, c.recordFailure(ctx, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "search response unparseable")
		return nil, c.recordFailure(ctx, err)
	}

	c.hidden = htmlutil.HiddenInputs(doc)
	c.currentURL = action
	c.state = StateSearching
	c.failures = 0
	return doc, nil
}

// Get performs a plain cookie-carrying GET. Used for cheap probe
// requests and the SPA query-string fallback.
func (c *Client) Get(ctx context.Context, url string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:Get")
	defer span.End()

	res, err := c.Http.R().SetContext(ctx).Get(url)
	if err != nil {
		span.SetStatus(codes.Error, "get failed")
		return nil, c.recordFailure(ctx, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "get response unparseable")
		return nil, c.recordFailure(ctx, err)
	}
	c.failures = 0
	return doc, nil
}

func (c *Client) recordFailure(ctx context.Context, cause error) error {
	c.failures++
	slog.WarnContext(ctx, "request failed",
		"consecutive", c.failures,
		"state", c.state.String(),
		"err", cause,
	)
	if c.failures < maxConsecutiveFailures {
		return cause
	}

	c.state = StateExpired
	slog.InfoContext(ctx, "session presumed expired, re-establishing", "entry", c.entryURL)
	if err := c.EstablishSession(ctx); err != nil {
		return fmt.Errorf("%w: %s (after: %s)", ErrSessionLost, err, cause)
	}
	return cause
}
