package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMaxAttempts      = 5
	defaultMaxResponseBytes = 1 << 20
	defaultRequestTimeout   = 3 * time.Minute

	backoffBase = time.Second
	backoffCap  = time.Minute
	// Ceiling for provider-supplied reset times so a bad hint cannot
	// stall the pipeline indefinitely.
	maxHintWait = 5 * time.Minute
)

// Options configures a Client.
type Options struct {
	Provider         Provider
	RequestTimeout   time.Duration
	MaxAttempts      int
	MaxResponseBytes int64
	// AllowKeepCurrent is set when the operating mode permits leaving
	// items in place. It decides the coercion target for destinations
	// outside the vocabulary.
	AllowKeepCurrent bool
	Logger           *slog.Logger
}

// Client drives batch classification against a single provider with
// retry and backoff. One request is in flight at a time.
type Client struct {
	provider         Provider
	httpClient       *http.Client
	maxAttempts      int
	maxResponseBytes int64
	allowKeepCurrent bool
	log              *slog.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client. The provider must not be nil.
func New(opts Options) *Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	maxBytes := opts.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		provider:         opts.Provider,
		httpClient:       &http.Client{Timeout: timeout},
		maxAttempts:      maxAttempts,
		maxResponseBytes: maxBytes,
		allowKeepCurrent: opts.AllowKeepCurrent,
		log:              log,
		sleep:            sleepCtx,
	}
}

// batchEntry is one element of the reply the provider must produce.
type batchEntry struct {
	Index       int    `json:"index"`
	Destination string `json:"destination"`
}

// retryableError marks a condition worth another attempt: 429, 5xx,
// timeout, network failure or a malformed reply. Other 4xx and
// configuration problems are terminal.
type retryableError struct {
	err  error
	hint time.Duration // 0 = no provider hint
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// ClassifyBatch submits one batch and returns exactly one destination
// per item, in item order. destCounts carries the per-destination item
// counts accumulated by earlier batches (the folder-balancing hint).
// Usage reflects only the attempt that produced the returned
// assignments, never failed attempts.
func (c *Client) ClassifyBatch(ctx context.Context, items []Item, vocab []string, destCounts map[string]int) (Result, error) {
	if len(vocab) == 0 {
		return Result{}, ErrEmptyVocabulary
	}
	if len(items) == 0 {
		return Result{}, nil
	}

	system := buildSystemPrompt(vocab, c.allowKeepCurrent)
	user := buildUserPrompt(items, vocab, destCounts)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.attempt(ctx, system, user, items, vocab)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var retryable *retryableError
		if !errors.As(err, &retryable) {
			return Result{}, &BatchError{Attempts: attempt, Err: err}
		}
		if attempt == c.maxAttempts {
			break
		}

		wait := backoffDuration(attempt)
		if retryable.hint > 0 {
			wait = retryable.hint
			if wait > maxHintWait {
				wait = maxHintWait
			}
		}
		c.log.Warn("classifier attempt failed",
			"provider", c.provider.Name(),
			"attempt", attempt,
			"max", c.maxAttempts,
			"retry_in", wait,
			"error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return Result{}, &BatchError{Attempts: attempt, Err: err}
		}
	}

	return Result{}, &BatchError{Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) attempt(ctx context.Context, system, user string, items []Item, vocab []string) (Result, error) {
	req, err := c.provider.BuildRequest(ctx, system, user)
	if err != nil {
		return Result{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and network failures are transient.
		return Result{}, &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes))
	if err != nil {
		return Result{}, &retryableError{err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			hint, _ := c.provider.RetryHint(resp.Header, body)
			return Result{}, &retryableError{err: err, hint: hint}
		}
		return Result{}, err
	}

	text, usage, err := c.provider.ParseReply(body)
	if err != nil {
		return Result{}, &retryableError{err: err}
	}

	destinations, err := decodeAssignments(text, len(items))
	if err != nil {
		return Result{}, &retryableError{err: err}
	}

	result := Result{Destinations: destinations, Usage: usage}
	c.reconcile(&result, vocab)
	return result, nil
}

// decodeAssignments parses the reply into one destination per index.
// Any missing, duplicate or out-of-range index is a batch failure, not
// a partial result.
func decodeAssignments(text string, count int) ([]string, error) {
	var entries []batchEntry
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &entries); err != nil {
		return nil, fmt.Errorf("decode assignments: %w", err)
	}

	destinations := make([]string, count)
	seen := make([]bool, count)
	for _, e := range entries {
		if e.Index < 0 || e.Index >= count {
			return nil, fmt.Errorf("decode assignments: index %d out of range", e.Index)
		}
		if seen[e.Index] {
			return nil, fmt.Errorf("decode assignments: duplicate index %d", e.Index)
		}
		seen[e.Index] = true
		destinations[e.Index] = strings.TrimSpace(e.Destination)
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("decode assignments: missing index %d", i)
		}
	}
	return destinations, nil
}

// reconcile coerces every destination that is neither KeepCurrent nor a
// vocabulary member. Case and whitespace slips are mapped back onto the
// canonical vocabulary spelling; anything else is rewritten to
// KeepCurrent (keep-allowed mode) or to the first vocabulary entry.
func (c *Client) reconcile(result *Result, vocab []string) {
	canonical := make(map[string]string, len(vocab))
	for _, name := range vocab {
		canonical[foldName(name)] = name
	}

	for i, dest := range result.Destinations {
		if dest == KeepCurrent {
			continue
		}
		if name, ok := canonical[foldName(dest)]; ok {
			result.Destinations[i] = name
			continue
		}

		to := KeepCurrent
		if !c.allowKeepCurrent {
			to = vocab[0]
		}
		result.Coercions = append(result.Coercions, Coercion{Index: i, From: dest, To: to})
		result.Destinations[i] = to
		c.log.Warn("coerced destination outside vocabulary",
			"provider", c.provider.Name(), "index", i, "from", dest, "to", to)
	}
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func backoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	wait := backoffBase * time.Duration(1<<uint(attempt-1))
	if wait > backoffCap {
		return backoffCap
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
