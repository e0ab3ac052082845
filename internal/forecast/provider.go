package forecast

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownProvider means the configuration names a provider variant with no
// adapter. This is a configuration error, not a runtime condition.
var ErrUnknownProvider = errors.New("unknown weather provider")

// UpstreamError wraps any failure talking to an upstream API: network error,
// non-2xx status, or a malformed payload.
type UpstreamError struct {
	Locator    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s returned status %d", e.Locator, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s: %v", e.Locator, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Provider abstracts one upstream weather source. Each variant knows how to
// resolve a location to point metadata and how to fetch and normalize that
// point's hourly series.
type Provider interface {
	Name() string

	// ResolveMetadata performs the first pipeline stage for a location. The
	// result itself is not cached; only the underlying HTTP response is.
	ResolveMetadata(ctx context.Context, loc Location) (PointMetadata, error)

	// FetchHourly performs the second stage, returning chronological (but
	// not necessarily sorted-by-local-day) normalized records plus the
	// resolved timezone.
	FetchHourly(ctx context.Context, meta PointMetadata, unitSystem UnitSystem) (HourlySeries, error)
}
