package currency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL  = "https://api.freecurrencyapi.com/v1/latest"
	DefaultTimeout  = 10 * time.Second
	DefaultBase     = "BRL"
	DefaultTarget   = "USD"
	maxResponseBody = 1 << 20
)

var (
	// ErrRateResolution is wrapped by every failure of Resolve.
	ErrRateResolution = errors.New("rate resolution failed")

	ErrNetwork         = errors.New("quote service unreachable")
	ErrMissingRate     = errors.New("target currency missing from quote")
	ErrInvalidRateType = errors.New("quote rate is not a number")
	ErrNonPositiveRate = errors.New("quote rate is not positive")
)

// Config describes the quote endpoint
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Error carries the failure reason and, when a response arrived, its HTTP status
type Error struct {
	Reason     error
	StatusCode int
	Base       string
	Target     string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s %s->%s", ErrRateResolution, e.Reason, e.Base, e.Target)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := []error{ErrRateResolution, e.Reason}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Resolver fetches a single conversion rate per call. It never retries;
// callers that need resilience wrap it.
type Resolver struct {
	cfg    Config
	client *http.Client
}

// NewResolver builds a Resolver with its own bounded http.Client
func NewResolver(cfg Config) *Resolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Resolver{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type quoteResponse struct {
	Data map[string]json.RawMessage `json:"data"`
}

// Resolve returns how many target units one base unit buys.
func (r *Resolver) Resolve(ctx context.Context, base, target string) (decimal.Decimal, error) {
	if base == "" {
		base = DefaultBase
	}
	if target == "" {
		target = DefaultTarget
	}
	fail := func(reason error, status int, err error) (decimal.Decimal, error) {
		return decimal.Zero, &Error{Reason: reason, StatusCode: status, Base: base, Target: target, Err: err}
	}

	u, err := url.Parse(r.cfg.BaseURL)
	if err != nil {
		return fail(ErrNetwork, 0, fmt.Errorf("invalid quote url: %w", err))
	}
	q := u.Query()
	q.Set("apikey", r.cfg.APIKey)
	q.Set("base_currency", base)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fail(ErrNetwork, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fail(ErrNetwork, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fail(ErrNetwork, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(ErrNetwork, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var quote quoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return fail(ErrMissingRate, resp.StatusCode, fmt.Errorf("decode quote: %w", err))
	}

	raw, ok := quote.Data[target]
	raw = bytes.TrimSpace(raw)
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fail(ErrMissingRate, resp.StatusCode, nil)
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil || !isJSONNumber(raw) {
		return fail(ErrInvalidRateType, resp.StatusCode, fmt.Errorf("got %s", raw))
	}
	rate, err := decimal.NewFromString(num.String())
	if err != nil {
		return fail(ErrInvalidRateType, resp.StatusCode, err)
	}
	if !rate.IsPositive() {
		return fail(ErrNonPositiveRate, resp.StatusCode, fmt.Errorf("got %s", rate))
	}

	slog.Info("resolved exchange rate", "base", base, "target", target, "rate", rate.String())
	return rate, nil
}

// isJSONNumber rejects quoted numbers, which json.Number would otherwise accept
func isJSONNumber(raw []byte) bool {
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}
