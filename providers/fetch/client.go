// Package fetch stellt den gemeinsamen HTTP-Client aller Quellen bereit: begrenzte
// Wiederholungen, exponentielles Backoff und Rücksicht auf Rate-Limits.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pharma-deck/metrics"
)

const (
	// DefaultMaxRetries und DefaultInitialDelay gelten, wenn ein Aufrufer keine Options setzt.
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 500 * time.Millisecond

	rateLimitFloor   = 2000 * time.Millisecond
	serverErrorFloor = 1000 * time.Millisecond

	userAgent = "pharma-deck/1.0 (+https://github.com/pharma-deck)"
)

// Options steuert die Wiederholungen eines einzelnen Aufrufs.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// DefaultOptions entspricht drei Wiederholungen ab 500ms.
var DefaultOptions = Options{MaxRetries: DefaultMaxRetries, InitialDelay: DefaultInitialDelay}

// StatusError meldet eine Antwort außerhalb von 2xx, nachdem alle Versuche verbraucht sind.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// TransportError kapselt Netzwerkfehler, bei denen nie eine HTTP-Antwort ankam.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport meldet, ob err ein reiner Netzwerkfehler ist.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// userAgentTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type userAgentTransport struct {
	Transport http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

// Sleeper wartet d oder bricht mit ctx ab.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client ist der Resilient Fetch Client. Ein Client pro Quelle, damit jede Quelle ihr eigenes
// Rate-Limit bekommt.
type Client struct {
	HTTP    *http.Client
	Logger  *zap.Logger
	limiter *rate.Limiter
	sleep   Sleeper
}

// Option konfiguriert einen Client.
type Option func(*Client)

// WithTimeout setzt das Gesamt-Timeout pro Einzelversuch.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.HTTP.Timeout = d
		}
	}
}

// WithRateLimit begrenzt die Anfragen pro Sekunde. rps <= 0 bedeutet unbegrenzt.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithSleeper ersetzt das Warten zwischen Versuchen (für Tests).
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// NewClient erstellt einen neuen Fetch-Client.
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		HTTP: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &userAgentTransport{Transport: http.DefaultTransport},
		},
		Logger: logger,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backoff berechnet die Wartezeit vor dem nächsten Versuch. resp darf nil sein (Netzwerkfehler).
func Backoff(attempt int, initial time.Duration, resp *http.Response) time.Duration {
	delay := initial * time.Duration(1<<uint(attempt))
	if resp == nil {
		return delay
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		delay = max(delay, rateLimitFloor)
	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		delay = max(delay, serverErrorFloor)
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if sec, err := strconv.Atoi(ra); err == nil {
			delay = max(delay, time.Duration(sec)*time.Second)
		}
	}
	return delay
}

func retryCause(resp *http.Response) string {
	switch {
	case resp == nil:
		return "transport"
	case resp.StatusCode == http.StatusTooManyRequests:
		return "429"
	case resp.StatusCode >= 500:
		return "5xx"
	default:
		return "4xx"
	}
}

// Get führt einen GET mit Wiederholungen aus. Nach dem letzten Versuch wird eine nicht-2xx-Antwort
// unverändert zurückgegeben; nur reine Netzwerkfehler liefern einen Fehler.
func (c *Client) Get(ctx context.Context, rawURL string, opts Options) (*http.Response, error) {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	log := c.Logger.With(zap.String("url", rawURL))

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &TransportError{URL: rawURL, Err: err}
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTP.Do(req)
		if err == nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 || attempt == opts.MaxRetries {
				return resp, nil
			}
			delay := Backoff(attempt, opts.InitialDelay, resp)
			metrics.FetchRetries.WithLabelValues(retryCause(resp)).Inc()
			log.Debug("Nicht-2xx-Antwort, neuer Versuch folgt",
				zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt), zap.Duration("delay", delay))
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &TransportError{URL: rawURL, Err: err}
			}
			continue
		}

		lastErr = &TransportError{URL: rawURL, Err: err}
		if ctx.Err() != nil {
			return nil, lastErr
		}
		if attempt < opts.MaxRetries {
			delay := Backoff(attempt, opts.InitialDelay, nil)
			metrics.FetchRetries.WithLabelValues(retryCause(nil)).Inc()
			log.Debug("Netzwerkfehler, neuer Versuch folgt", zap.Error(err), zap.Int("attempt", attempt), zap.Duration("delay", delay))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &TransportError{URL: rawURL, Err: err}
			}
		}
	}
	if lastErr == nil {
		lastErr = &TransportError{URL: rawURL, Err: errors.New("fetch failed")}
	}
	return nil, lastErr
}

// GetJSON ruft rawURL ab und dekodiert eine 2xx-Antwort nach dest. Für nicht-2xx-Antworten
// liefert es einen *StatusError, für Netzwerkfehler einen *TransportError.
func (c *Client) GetJSON(ctx context.Context, rawURL string, opts Options, dest any) error {
	resp, err := c.Get(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// IsNotFound meldet einen 404, den openFDA u.a. für "keine Treffer" verwenden.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
