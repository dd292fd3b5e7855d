// Package probe exercises a running API and checks the properties every
// deployment must hold: JSON responses, stable bytes across repeated calls,
// ordered season bounds and rejection of career splits with a season.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/datablase/pkg/logger"
)

// Sentinel failures reported by checks.
var (
	ErrStatus      = errors.New("unexpected status")
	ErrContentType = errors.New("unexpected content type")
	ErrInvalidJSON = errors.New("invalid json body")
	ErrUnstable    = errors.New("response bytes differ between calls")
	ErrBounds      = errors.New("season starts after it ends")
)

const (
	defaultRepeat  = 2
	defaultTimeout = 10 * time.Second
	maxBody        = 32 << 20
)

// Check is the outcome of one probe.
type Check struct {
	Name     string
	Path     string
	Err      error
	Duration time.Duration
}

// OK reports whether the check passed.
func (c Check) OK() bool { return c.Err == nil }

// Report collects every check of a run in a fixed order.
type Report struct {
	Checks []Check
}

// Failed counts failing checks.
func (r Report) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if !c.OK() {
			n++
		}
	}
	return n
}

// OK reports whether every check passed.
func (r Report) OK() bool { return r.Failed() == 0 }

// Prober runs checks against one base URL.
type Prober struct {
	base    *url.URL
	season  string
	repeat  int
	timeout time.Duration
	client  *http.Client
	logger  logger.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithSeason sets the season probed; empty means "current".
func WithSeason(season string) Option {
	return func(p *Prober) {
		if s := strings.TrimSpace(season); s != "" {
			p.season = s
		}
	}
}

// WithRepeat sets how often each endpoint is fetched; at least 2.
func WithRepeat(n int) Option {
	return func(p *Prober) {
		if n >= 2 {
			p.repeat = n
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithHTTPClient replaces the client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		if c != nil {
			p.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Prober for baseURL.
func New(baseURL string, opts ...Option) (*Prober, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("probe: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("probe: url %q must be http or https", baseURL)
	}
	p := &Prober{
		base:    u,
		season:  "current",
		repeat:  defaultRepeat,
		timeout: defaultTimeout,
		client:  http.DefaultClient,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// endpoints are the read paths whose bytes must be stable.
func (p *Prober) endpoints() []string {
	s := url.QueryEscape(p.season)
	return []string{
		"/v2/config",
		"/v2/seasons",
		"/v2/seasons/" + url.PathEscape(p.season),
		"/v2/teams?season=" + s,
		"/v2/players?season=" + s + "&limit=25",
		"/v2/stats?group=hitting,pitching&season=" + s,
		"/v2/stats?group=hitting&type=career&limit=25",
		"/v2/stats/leaders?group=hitting,pitching&season=" + s,
		"/v2/games?season=" + s,
	}
}

// Run executes every check. Failures are recorded in the report; the error
// is only set when ctx ends.
func (p *Prober) Run(ctx context.Context) (Report, error) {
	paths := p.endpoints()
	checks := make([]Check, len(paths)+2)

	g := new(errgroup.Group)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			checks[i] = p.timed("stable json", path, func() error { return p.checkStable(ctx, path) })
			return nil
		})
	}
	g.Go(func() error {
		checks[len(paths)] = p.timed("season bounds", "/v2/seasons", func() error { return p.checkBounds(ctx) })
		return nil
	})
	careerPath := "/v2/stats?group=hitting&type=career&season=" + url.QueryEscape(p.season)
	g.Go(func() error {
		checks[len(paths)+1] = p.timed("career rejects season", careerPath, func() error { return p.checkCareer(ctx, careerPath) })
		return nil
	})
	_ = g.Wait()

	report := Report{Checks: checks}
	for _, c := range checks {
		if !c.OK() {
			p.logger.Warn(ctx, "probe failed", logger.String("check", c.Name), logger.String("path", c.Path), logger.Error(c.Err))
		}
	}
	return report, ctx.Err()
}

func (p *Prober) timed(name, path string, fn func() error) Check {
	start := time.Now()
	err := fn()
	return Check{Name: name, Path: path, Err: err, Duration: time.Since(start)}
}

// checkStable fetches path repeatedly and compares the bodies.
func (p *Prober) checkStable(ctx context.Context, path string) error {
	var first []byte
	for i := range p.repeat {
		body, err := p.getJSON(ctx, path, http.StatusOK)
		if err != nil {
			return err
		}
		if i == 0 {
			first = body
			continue
		}
		if !bytes.Equal(first, body) {
			return fmt.Errorf("%w: call %d", ErrUnstable, i+1)
		}
	}
	return nil
}

type seasonBounds struct {
	Season    int       `json:"season"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

func (p *Prober) checkBounds(ctx context.Context) error {
	body, err := p.getJSON(ctx, "/v2/seasons", http.StatusOK)
	if err != nil {
		return err
	}
	var seasons []seasonBounds
	if err := json.Unmarshal(body, &seasons); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	for _, s := range seasons {
		if s.EndTime.Before(s.StartTime) {
			return fmt.Errorf("%w: season %d", ErrBounds, s.Season)
		}
	}
	return nil
}

func (p *Prober) checkCareer(ctx context.Context, path string) error {
	body, err := p.getJSON(ctx, path, http.StatusBadRequest)
	if err != nil {
		return err
	}
	var e struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if e.Code != "unsupported_combination" {
		return fmt.Errorf("%w: code %q", ErrStatus, e.Code)
	}
	return nil
}

// getJSON fetches path and checks status, content type and JSON syntax.
func (p *Prober) getJSON(ctx context.Context, path string, want int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base.String()+path, http.NoBody)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", id)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	p.logger.Debug(ctx, "probe request",
		logger.String("path", path),
		logger.String("requestId", id),
		logger.Int("status", resp.StatusCode),
		logger.Int("bytes", len(body)))

	if resp.StatusCode != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrStatus, resp.StatusCode, want)
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		return nil, fmt.Errorf("%w: %q", ErrContentType, resp.Header.Get("Content-Type"))
	}
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}
	return body, nil
}
