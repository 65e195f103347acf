// Package tracker is the client side of visitor tracking: it turns navigation,
// visibility and unload events of one browsing tab into ingestion calls.
package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultDedupWindow     = 30 * time.Second
	DefaultSessionInterval = 30 * time.Second

	trackedMarkerTTL = time.Hour

	keySessionID   = "sessionId"
	keyCurrentPage = "currentPage"
	trackedPrefix  = "tracked_"
)

// Identity is who is browsing. Either side may be nil.
type Identity struct {
	UserID  *string
	GuestID *string
}

// Tracker follows one tab. All methods are safe for concurrent use.
type Tracker struct {
	transport Transport
	storage   SessionStorage
	clock     quartz.Clock
	log       *zap.Logger
	identity  func() Identity
	dedup     time.Duration
	interval  time.Duration

	sessionID string
	inFlight  atomic.Bool

	mu           sync.Mutex
	visitID      string
	tracking     bool
	pageStart    time.Time
	sessionStart time.Time
}

type Option func(*Tracker)

func WithClock(c quartz.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

func WithStorage(s SessionStorage) Option {
	return func(t *Tracker) {
		if s != nil {
			t.storage = s
		}
	}
}

// WithIdentity supplies the current user and guest ids at each track call.
func WithIdentity(fn func() Identity) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.identity = fn
		}
	}
}

func WithDedupWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.dedup = d
		}
	}
}

func WithSessionInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// New restores or creates the session id in storage and prunes stale dedup markers.
func New(transport Transport, opts ...Option) *Tracker {
	t := &Tracker{
		transport: transport,
		storage:   NewMemoryStorage(),
		clock:     quartz.NewReal(),
		log:       zap.NewNop(),
		identity:  func() Identity { return Identity{} },
		dedup:     DefaultDedupWindow,
		interval:  DefaultSessionInterval,
	}
	for _, opt := range opts {
		opt(t)
	}

	now := t.clock.Now()
	if id, ok := t.storage.Get(keySessionID); ok && id != "" {
		t.sessionID = id
	} else {
		t.sessionID = newSessionID(now)
		t.storage.Set(keySessionID, t.sessionID)
	}
	t.pruneMarkers(now)

	t.pageStart = now
	t.sessionStart = now
	return t
}

func newSessionID(now time.Time) string {
	rand := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), rand[:9])
}

func (t *Tracker) pruneMarkers(now time.Time) {
	cutoff := now.Add(-trackedMarkerTTL).UnixMilli()
	for _, key := range t.storage.Keys() {
		if !strings.HasPrefix(key, trackedPrefix) {
			continue
		}
		raw, _ := t.storage.Get(key)
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms < cutoff {
			t.storage.Delete(key)
		}
	}
}

func (t *Tracker) SessionID() string { return t.sessionID }

// CurrentVisitID is the id of the visit being timed, or "" before the first successful track.
func (t *Tracker) CurrentVisitID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visitID
}

// Navigate records a route change. The previous page's time is flushed first; a new
// track event is emitted only when page differs from the last tracked one.
func (t *Tracker) Navigate(ctx context.Context, page, title string) {
	t.flush(ctx, false, "")

	if current, _ := t.storage.Get(keyCurrentPage); current == page {
		return
	}
	t.track(ctx, page, title)
	t.storage.Set(keyCurrentPage, page)
}

// Hidden flushes page and session time when the tab goes to the background.
func (t *Tracker) Hidden(ctx context.Context) {
	if !t.flush(ctx, false, "") {
		return
	}
	t.broadcastSession(ctx)
}

// Visible restarts the page timer so background time is not charged to the page.
func (t *Tracker) Visible() {
	t.mu.Lock()
	t.pageStart = t.clock.Now()
	t.mu.Unlock()
}

// Unload hands the final timings to a non-blocking beacon.
func (t *Tracker) Unload() {
	visitID, req, ok := t.pending(false, "")
	if !ok {
		return
	}
	t.transport.Beacon(visitID, req)
}

// TrackConversion marks the current visit as converted with kind.
func (t *Tracker) TrackConversion(ctx context.Context, kind string) {
	t.flush(ctx, true, kind)
}

// Run broadcasts session time every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	w := t.clock.TickerFunc(ctx, t.interval, func() error {
		t.broadcastSession(ctx)
		return nil
	}, "tracker")
	return w.Wait()
}

func (t *Tracker) track(ctx context.Context, page, title string) {
	if !t.inFlight.CompareAndSwap(false, true) {
		t.log.Debug("track dropped, another call in flight", zap.String("page", page))
		return
	}
	defer t.inFlight.Store(false)

	key := trackedPrefix + t.sessionID + "_" + page
	now := t.clock.Now()
	if raw, ok := t.storage.Get(key); ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && now.Sub(time.UnixMilli(ms)) < t.dedup {
			return
		}
	}

	t.mu.Lock()
	sessionTime := secondsBetween(t.sessionStart, now)
	t.mu.Unlock()

	who := t.identity()
	resp, err := t.transport.Track(ctx, TrackRequest{
		Page:        page,
		PageTitle:   title,
		SessionID:   t.sessionID,
		GuestID:     who.GuestID,
		UserID:      who.UserID,
		SessionTime: sessionTime,
		IsBounce:    true,
	})
	if err != nil {
		t.log.Debug("track failed", zap.String("page", page), zap.Error(err))
		return
	}
	if resp == nil || !resp.Success {
		return
	}

	t.mu.Lock()
	t.visitID = resp.VisitorID
	t.tracking = true
	t.pageStart = t.clock.Now()
	t.mu.Unlock()
	t.storage.Set(key, strconv.FormatInt(now.UnixMilli(), 10))
}

// flush sends the elapsed time of the current visit. It reports whether a visit was active.
func (t *Tracker) flush(ctx context.Context, converted bool, kind string) bool {
	visitID, req, ok := t.pending(converted, kind)
	if !ok {
		return false
	}
	if err := t.transport.Update(ctx, visitID, req); err != nil {
		t.log.Debug("visit update failed", zap.String("visitId", visitID), zap.Error(err))
	}
	return true
}

func (t *Tracker) pending(converted bool, kind string) (string, UpdateRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking || t.visitID == "" {
		return "", UpdateRequest{}, false
	}
	now := t.clock.Now()
	return t.visitID, UpdateRequest{
		TimeOnPage:     secondsBetween(t.pageStart, now),
		SessionTime:    secondsBetween(t.sessionStart, now),
		Converted:      converted,
		ConversionType: kind,
	}, true
}

func (t *Tracker) broadcastSession(ctx context.Context) {
	t.mu.Lock()
	active := t.tracking
	sessionTime := secondsBetween(t.sessionStart, t.clock.Now())
	t.mu.Unlock()
	if !active {
		return
	}
	if err := t.transport.UpdateSession(ctx, t.sessionID, sessionTime); err != nil {
		t.log.Debug("session time update failed", zap.Error(err))
	}
}

func secondsBetween(from, to time.Time) int64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
