package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStale is returned by Set when the cache was invalidated after the
// caller read its version. The value was computed from outdated data and is
// not stored.
var ErrStale = errors.New("report cache invalidated during compute")

// ReportCache stores computed report payloads until stock or sales change.
//
// Callers read Version before computing a report and pass it to Set, so a
// report computed across a concurrent write is never stored.
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Version(ctx context.Context) (int64, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration, version int64) error
	Invalidate(ctx context.Context) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string, _ interface{}) (bool, error) {
	return false, nil
}

func (NoopReportCache) Version(_ context.Context) (int64, error) {
	return 0, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ interface{}, _ time.Duration, _ int64) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context) error {
	return nil
}
