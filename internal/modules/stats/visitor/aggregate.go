package visitor

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/mx-space/footprint/internal/models"
)

// Stats is the window summary, computed per session first and then across sessions.
type Stats struct {
	TotalPageViews  int64   `json:"totalPageViews"`
	TotalVisits     int64   `json:"totalVisits"`
	UniqueVisitors  int64   `json:"uniqueVisitors"`
	UniqueUsers     int64   `json:"uniqueUsers"`
	UniqueSessions  int64   `json:"uniqueSessions"`
	TotalTimeOnSite int64   `json:"totalTimeOnSite"`
	Bounces         int64   `json:"bounces"`
	Conversions     int64   `json:"conversions"`
	BounceRate      float64 `json:"bounceRate"`
	ConversionRate  float64 `json:"conversionRate"`
	AvgTimeOnSite   float64 `json:"avgTimeOnSite"`
}

type PageStat struct {
	Page           string  `json:"page"`
	Visits         int64   `json:"visits"`
	UniqueVisitors int64   `json:"uniqueVisitors"`
	AvgTimeOnPage  float64 `json:"avgTimeOnPage"`
	Bounces        int64   `json:"bounces"`
	BounceRate     float64 `json:"bounceRate"`
}

type DeviceStat struct {
	Device         string `json:"device"`
	Visits         int64  `json:"visits"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
}

type CountryStat struct {
	Country        string `json:"country"`
	Visits         int64  `json:"visits"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
}

type DateRange struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Report is the full analytics answer for one window.
type Report struct {
	Period           string        `json:"period"`
	DateRange        DateRange     `json:"dateRange"`
	Stats            Stats         `json:"stats"`
	PageAnalytics    []PageStat    `json:"pageAnalytics"`
	DeviceAnalytics  []DeviceStat  `json:"deviceAnalytics"`
	CountryAnalytics []CountryStat `json:"countryAnalytics"`
}

type IPActivity struct {
	IP           string    `json:"ip"`
	LastActivity time.Time `json:"lastActivity"`
	SessionCount int64     `json:"sessionCount"`
}

// Realtime is the trailing activity snapshot keyed on lastVisit.
type Realtime struct {
	ActiveVisitors  int64        `json:"activeVisitors"`
	ActiveSessions  int64        `json:"activeSessions"`
	TotalVisits     int64        `json:"totalVisits"`
	VisitorActivity []IPActivity `json:"visitorActivity"`
	Timestamp       time.Time    `json:"timestamp"`
}

type DebugVisit struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	SessionID string    `json:"sessionId"`
	Page      string    `json:"page"`
	CreatedAt time.Time `json:"createdAt"`
}

// Debug lists the newest records created in the trailing debug window.
type Debug struct {
	TotalVisits    int64        `json:"totalVisits"`
	UniqueIPs      int64        `json:"uniqueIPs"`
	UniqueSessions int64        `json:"uniqueSessions"`
	Visits         []DebugVisit `json:"visits"`
}

const (
	countryLimit = 10
	debugLimit   = 20
)

// Engine answers read-only questions over the Store.
type Engine struct {
	store Store
	opts  options
}

func NewEngine(store Store, opts ...Option) *Engine {
	return &Engine{store: store, opts: buildOptions(opts)}
}

// PeriodDays maps the accepted period labels to their length in days.
var PeriodDays = map[string]int{"1d": 1, "7d": 7, "30d": 30, "90d": 90}

// DefaultPeriod is used for an empty or unknown period label.
const DefaultPeriod = "7d"

// Analytics reports on the window ending now. Unknown periods fall back to seven
// days while the requested label is echoed.
func (e *Engine) Analytics(ctx context.Context, period string) (*Report, error) {
	if period == "" {
		period = DefaultPeriod
	}
	days, ok := PeriodDays[period]
	if !ok {
		days = PeriodDays[DefaultPeriod]
	}
	end := e.opts.clock.Now()
	start := end.AddDate(0, 0, -days)

	report, err := e.Window(ctx, start, end)
	if err != nil {
		return nil, err
	}
	report.Period = period
	return report, nil
}

// Window reports on the closed createdAt range [start, end].
func (e *Engine) Window(ctx context.Context, start, end time.Time) (*Report, error) {
	rows, err := e.store.CreatedBetween(ctx, start, end)
	if err != nil {
		return nil, storeErr("analytics window", err)
	}
	return &Report{
		DateRange:        DateRange{StartDate: start, EndDate: end},
		Stats:            SummarizeSessions(rows),
		PageAnalytics:    GroupByPage(rows),
		DeviceAnalytics:  GroupByDevice(rows),
		CountryAnalytics: GroupByCountry(rows),
	}, nil
}

// Realtime snapshots records whose lastVisit falls inside the trailing window, boundary included.
func (e *Engine) Realtime(ctx context.Context) (*Realtime, error) {
	now := e.opts.clock.Now()
	rows, err := e.store.ActiveSince(ctx, now.Add(-e.opts.windows.RealtimeWindow))
	if err != nil {
		return nil, storeErr("realtime window", err)
	}
	snap := BuildRealtime(rows)
	snap.Timestamp = now
	return &snap, nil
}

func (e *Engine) Debug(ctx context.Context) (*Debug, error) {
	rows, err := e.store.CreatedSince(ctx, e.opts.clock.Now().Add(-e.opts.windows.RecentDebug))
	if err != nil {
		return nil, storeErr("debug window", err)
	}

	// newest first, capped
	newest := make([]DebugVisit, 0, debugLimit)
	for i := len(rows) - 1; i >= 0 && len(newest) < debugLimit; i-- {
		v := rows[i]
		newest = append(newest, DebugVisit{ID: v.ID, IP: v.IP, SessionID: v.SessionID, Page: v.Page, CreatedAt: v.CreatedAt})
	}
	ips := make(map[string]struct{})
	sessions := make(map[string]struct{})
	for _, v := range newest {
		ips[v.IP] = struct{}{}
		sessions[v.SessionID] = struct{}{}
	}
	return &Debug{
		TotalVisits:    int64(len(newest)),
		UniqueIPs:      int64(len(ips)),
		UniqueSessions: int64(len(sessions)),
		Visits:         newest,
	}, nil
}

// sessionRow is a session collapsed to the values of its first record.
type sessionRow struct {
	sessionTime int64
	ip          string
	userID      *string
	isBounce    bool
	converted   bool
}

// SummarizeSessions collapses rows to one entry per session, taking the first record
// seen, then reduces across sessions. rows must be ordered oldest first.
func SummarizeSessions(rows []models.VisitModel) Stats {
	sessions := make(map[string]sessionRow)
	for _, v := range rows {
		if _, seen := sessions[v.SessionID]; seen {
			continue
		}
		sessions[v.SessionID] = sessionRow{
			sessionTime: v.SessionTime,
			ip:          v.IP,
			userID:      v.UserID,
			isBounce:    v.IsBounce,
			converted:   v.Converted,
		}
	}
	if len(sessions) == 0 {
		return Stats{}
	}

	ips := make(map[string]struct{})
	users := make(map[string]struct{})
	var out Stats
	for _, s := range sessions {
		ips[s.ip] = struct{}{}
		if s.userID != nil {
			users[*s.userID] = struct{}{}
		}
		out.TotalTimeOnSite += s.sessionTime
		if s.isBounce {
			out.Bounces++
		}
		if s.converted {
			out.Conversions++
		}
	}

	n := float64(len(sessions))
	out.TotalPageViews = int64(len(rows))
	out.UniqueSessions = int64(len(sessions))
	out.TotalVisits = out.UniqueSessions
	out.UniqueVisitors = int64(len(ips))
	out.UniqueUsers = int64(len(users))
	out.BounceRate = float64(out.Bounces) / n * 100
	out.ConversionRate = float64(out.Conversions) / n * 100
	out.AvgTimeOnSite = float64(out.TotalTimeOnSite) / n
	return out
}

type bucket struct {
	key        string
	visits     int64
	ips        map[string]struct{}
	timeOnPage int64
	bounces    int64
}

// groupBy buckets rows by key, skipping rows for which keep returns false.
func groupBy(rows []models.VisitModel, key func(models.VisitModel) string, keep func(models.VisitModel) bool) []*bucket {
	index := make(map[string]*bucket)
	var buckets []*bucket
	for _, v := range rows {
		if keep != nil && !keep(v) {
			continue
		}
		k := key(v)
		b, ok := index[k]
		if !ok {
			b = &bucket{key: k, ips: make(map[string]struct{})}
			index[k] = b
			buckets = append(buckets, b)
		}
		b.visits++
		b.ips[v.IP] = struct{}{}
		b.timeOnPage += v.TimeOnPage
		if v.IsBounce {
			b.bounces++
		}
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].visits != buckets[j].visits {
			return buckets[i].visits > buckets[j].visits
		}
		return buckets[i].key < buckets[j].key
	})
	return buckets
}

func GroupByPage(rows []models.VisitModel) []PageStat {
	buckets := groupBy(rows, func(v models.VisitModel) string { return v.Page }, nil)
	out := make([]PageStat, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, PageStat{
			Page:           b.key,
			Visits:         b.visits,
			UniqueVisitors: int64(len(b.ips)),
			AvgTimeOnPage:  round2(float64(b.timeOnPage) / float64(b.visits)),
			Bounces:        b.bounces,
			BounceRate:     float64(b.bounces) / float64(b.visits) * 100,
		})
	}
	return out
}

func GroupByDevice(rows []models.VisitModel) []DeviceStat {
	buckets := groupBy(rows, func(v models.VisitModel) string { return v.Device }, nil)
	out := make([]DeviceStat, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, DeviceStat{Device: b.key, Visits: b.visits, UniqueVisitors: int64(len(b.ips))})
	}
	return out
}

// GroupByCountry ignores rows without a country and keeps the top ten.
func GroupByCountry(rows []models.VisitModel) []CountryStat {
	buckets := groupBy(rows,
		func(v models.VisitModel) string { return v.Country },
		func(v models.VisitModel) bool { return v.Country != "" },
	)
	if len(buckets) > countryLimit {
		buckets = buckets[:countryLimit]
	}
	out := make([]CountryStat, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, CountryStat{Country: b.key, Visits: b.visits, UniqueVisitors: int64(len(b.ips))})
	}
	return out
}

// BuildRealtime reduces the active rows; per-ip activity is listed in first-seen order.
func BuildRealtime(rows []models.VisitModel) Realtime {
	sessions := make(map[string]struct{})
	index := make(map[string]int)
	activity := make([]IPActivity, 0)
	for _, v := range rows {
		sessions[v.SessionID] = struct{}{}
		i, ok := index[v.IP]
		if !ok {
			index[v.IP] = len(activity)
			activity = append(activity, IPActivity{IP: v.IP, LastActivity: v.LastVisit, SessionCount: 1})
			continue
		}
		activity[i].SessionCount++
		if v.LastVisit.After(activity[i].LastActivity) {
			activity[i].LastActivity = v.LastVisit
		}
	}
	return Realtime{
		ActiveVisitors:  int64(len(activity)),
		ActiveSessions:  int64(len(sessions)),
		TotalVisits:     int64(len(rows)),
		VisitorActivity: activity,
	}
}

func round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}
