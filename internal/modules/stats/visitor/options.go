package visitor

import (
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/mx-space/footprint/internal/pkg/metrics"
)

// Windows are the time spans the service reasons in.
type Windows struct {
	StaleAfter      time.Duration // retention age cutoff
	DuplicateWindow time.Duration // how far back duplicate collapse looks
	RealtimeWindow  time.Duration // trailing lastVisit window of the realtime view
	RecentDebug     time.Duration // trailing createdAt window of the debug view
}

// DefaultWindows returns one hour of retention and five-minute dedup and realtime windows.
func DefaultWindows() Windows {
	return Windows{
		StaleAfter:      time.Hour,
		DuplicateWindow: 5 * time.Minute,
		RealtimeWindow:  5 * time.Minute,
		RecentDebug:     5 * time.Minute,
	}
}

func (w Windows) withDefaults() Windows {
	d := DefaultWindows()
	if w.StaleAfter <= 0 {
		w.StaleAfter = d.StaleAfter
	}
	if w.DuplicateWindow <= 0 {
		w.DuplicateWindow = d.DuplicateWindow
	}
	if w.RealtimeWindow <= 0 {
		w.RealtimeWindow = d.RealtimeWindow
	}
	if w.RecentDebug <= 0 {
		w.RecentDebug = d.RecentDebug
	}
	return w
}

type options struct {
	logger  *zap.Logger
	clock   quartz.Clock
	metrics *metrics.Metrics
	windows Windows
}

// Option configures a Service, Engine or Retention.
type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithClock(c quartz.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithWindows overrides the time windows; zero fields keep their defaults.
func WithWindows(w Windows) Option {
	return func(o *options) { o.windows = w.withDefaults() }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  zap.NewNop(),
		clock:   quartz.NewReal(),
		windows: DefaultWindows(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
