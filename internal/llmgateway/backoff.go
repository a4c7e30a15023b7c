package llmgateway

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/kraklabs/devsentry/internal/apperr"
)

// BackoffConfig parameterizes the retry curve of spec.md §4.D:
// "exponential backoff with jitter: base 1s, factor 2, cap 60s, maximum
// 5 attempts."
type BackoffConfig struct {
	Base       time.Duration
	Factor     float64
	Cap        time.Duration
	MaxAttempts int
}

// DefaultBackoffConfig matches the documented defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Base: time.Second, Factor: 2, Cap: 60 * time.Second, MaxAttempts: 5}
}

// delay returns the jittered wait taken after attempt n fails (1-indexed:
// the wait before the second attempt is delay(1)): uniformly between half
// and all of Base*Factor^(n-1), capped at Cap.
func (b BackoffConfig) delay(attempt int) time.Duration {
	wait := float64(b.Base) * pow(b.Factor, float64(attempt-1))
	if wait > float64(b.Cap) {
		wait = float64(b.Cap)
	}
	return time.Duration(wait*0.5 + rand.Float64()*wait*0.5)
}

func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}

// retry runs fn up to cfg.MaxAttempts times, sleeping between attempts
// per the backoff curve, and stops immediately on a non-retriable
// error or context cancellation.
func retry(ctx context.Context, cfg BackoffConfig, fn func() (ProviderResult, error)) (ProviderResult, error) {
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ProviderResult{}, apperr.Cancelled("llm call cancelled")
		}
		if !apperr.Is(err, apperr.KindTransientIO) {
			return ProviderResult{}, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ProviderResult{}, apperr.Cancelled("llm call cancelled")
		case <-time.After(cfg.delay(attempt)):
		}
	}
	return ProviderResult{}, lastErr
}

// isRetriableProviderError reports whether err looks like a transient
// transport failure (HTTP 429, 5xx, connection reset) per spec.md
// §4.D's retriable-error set.
func isRetriableProviderError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return true
	case strings.Contains(msg, "connection reset"):
		return true
	case strings.Contains(msg, "timeout"):
		return true
	}
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
