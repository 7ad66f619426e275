// Package sources contains the upstream adapters: the Port Esbjerg weather
// page, the DMI water-level page, and DMI's public ocean observation
// endpoint. Each adapter normalizes to whole cm DVR90 before returning and
// converts every internal failure into an error wrapping one of the
// waterlevel sentinels.
package sources

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soeholm/vandstand/internal/waterlevel"
)

// Bounds is the plausible water-level band. Readings outside it are rejected
// as sensor glitches instead of anchoring the series.
type Bounds struct {
	MinCm int
	MaxCm int
}

// DefaultBounds covers everything between a hard Wadden Sea low and a storm
// surge well above the 1981 record.
func DefaultBounds() Bounds {
	return Bounds{MinCm: -500, MaxCm: 600}
}

// Check validates a normalized reading against the band.
func (b Bounds) Check(cm int) error {
	if cm < b.MinCm || cm > b.MaxCm {
		return fmt.Errorf("%w: %d cm not in [%d, %d]", waterlevel.ErrOutOfRange, cm, b.MinCm, b.MaxCm)
	}
	return nil
}

// backoff controls retry behaviour for one adapter.
type backoff struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

func defaultBackoff() backoff {
	return backoff{
		maxRetries:      2,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     5 * time.Second,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errBadStatus   = errors.New("unexpected status code")
)

// fetchWithResilience executes the request with retries, exponential backoff
// and a circuit breaker. All failure modes come back wrapping ErrUnreachable
// so callers need only one branch.
func fetchWithResilience(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, bo backoff, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", waterlevel.ErrUnreachable, ctx.Err())
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				resp.Body.Close()
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				resp.Body.Close()
				return nil, errServerError
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errBadStatus, resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open: %v", waterlevel.ErrUnreachable, err)
		}

		lastErr = err
		if attempt >= bo.maxRetries {
			return nil, fmt.Errorf("%w: %v", waterlevel.ErrUnreachable, lastErr)
		}

		delay := bo.initialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if bo.maxInterval > 0 && delay > bo.maxInterval {
			delay = bo.maxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", waterlevel.ErrUnreachable, ctx.Err())
		case <-timer.C:
		}
		attempt++
	}
}

var numberPattern = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// parseNumber extracts the first numeric token from scraped text, accepting
// the Danish decimal comma.
func parseNumber(s string) (float64, error) {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, fmt.Errorf("%w: no number in %q", waterlevel.ErrParse, strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", waterlevel.ErrParse, match, err)
	}
	return v, nil
}

// metersToCm converts a meter reading to whole cm.
func metersToCm(m float64) int {
	return int(math.Round(m * 100))
}
