package visitor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mx-space/footprint/internal/models"
)

// TrackInput is one track event together with what the transport learned about the client.
type TrackInput struct {
	Page           string
	PageTitle      string
	SessionID      string
	GuestID        *string
	UserID         *string
	TimeOnPage     int64
	IsBounce       *bool
	Converted      *bool
	ConversionType string

	IP        string
	UserAgent string
	Referrer  string
	Country   string
	City      string
}

// TrackResult identifies the record a track event landed on.
type TrackResult struct {
	VisitID string
	Merged  bool
}

// Message is the human readable outcome returned to the client.
func (r TrackResult) Message() string {
	if r.Merged {
		return "Visit updated"
	}
	return "Visit tracked successfully"
}

// Service applies track, update and session-time events to the Store.
type Service struct {
	store Store
	opts  options
}

func NewService(store Store, opts ...Option) *Service {
	return &Service{store: store, opts: buildOptions(opts)}
}

// Track merges into the latest visit of (session, page) or creates a new one.
func (s *Service) Track(ctx context.Context, in TrackInput) (*TrackResult, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Page = strings.TrimSpace(in.Page)
	if in.SessionID == "" {
		return nil, badRequest("sessionId is required")
	}
	if in.Page == "" {
		return nil, badRequest("page is required")
	}
	if in.TimeOnPage < 0 {
		return nil, badRequest("timeOnPage must not be negative")
	}
	if !models.ValidConversionType(in.ConversionType) {
		return nil, badRequest("unknown conversionType %q", in.ConversionType)
	}

	now := s.opts.clock.Now()
	existing, err := s.store.LatestBySessionPage(ctx, in.SessionID, in.Page)
	if err != nil {
		return nil, s.fail("lookup visit", err)
	}
	if existing != nil {
		if err := s.store.Merge(ctx, existing.ID, in.TimeOnPage, now); err != nil {
			return nil, s.fail("merge visit", err)
		}
		s.opts.metrics.VisitTracked("merged")
		return &TrackResult{VisitID: existing.ID, Merged: true}, nil
	}

	client := parseUA(in.UserAgent)
	visit := &models.VisitModel{
		IP:             in.IP,
		UserAgent:      in.UserAgent,
		Referrer:       in.Referrer,
		UserID:         optional(in.UserID),
		GuestID:        optional(in.GuestID),
		SessionID:      in.SessionID,
		Page:           in.Page,
		PageTitle:      in.PageTitle,
		Device:         client.Device,
		Browser:        client.Browser,
		OS:             client.OS,
		Country:        in.Country,
		City:           in.City,
		TimeOnPage:     in.TimeOnPage,
		IsBounce:       true,
		ConversionType: in.ConversionType,
		FirstVisit:     now,
		LastVisit:      now,
	}
	if visit.Referrer == "" {
		visit.Referrer = models.DefaultReferrer
	}
	if in.IsBounce != nil {
		visit.IsBounce = *in.IsBounce
	}
	if in.Converted != nil {
		visit.Converted = *in.Converted
	}
	visit.CreatedAt = now
	visit.UpdatedAt = now

	if err := s.store.Create(ctx, visit); err != nil {
		return nil, s.fail("create visit", err)
	}
	s.opts.metrics.VisitTracked("created")
	return &TrackResult{VisitID: visit.ID}, nil
}

// Update overwrites the present fields of one visit and refreshes lastVisit.
func (s *Service) Update(ctx context.Context, id string, patch VisitPatch) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return badRequest("id is required")
	}
	if patch.TimeOnPage != nil && *patch.TimeOnPage < 0 {
		return badRequest("timeOnPage must not be negative")
	}
	if patch.SessionTime != nil && *patch.SessionTime < 0 {
		return badRequest("sessionTime must not be negative")
	}
	if patch.ConversionType != nil && !models.ValidConversionType(*patch.ConversionType) {
		return badRequest("unknown conversionType %q", *patch.ConversionType)
	}

	if err := s.store.Patch(ctx, id, patch, s.opts.clock.Now()); err != nil {
		s.opts.metrics.VisitUpdated("error")
		return s.fail("update visit", err)
	}
	s.opts.metrics.VisitUpdated("ok")
	return nil
}

// UpdateSessionTime overwrites sessionTime on every record of the session.
// The last call wins; no maximum is taken.
func (s *Service) UpdateSessionTime(ctx context.Context, sessionID string, sessionTime *int64) (int64, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, badRequest("sessionId is required")
	}
	if sessionTime == nil {
		return 0, badRequest("sessionTime is required")
	}
	if *sessionTime < 0 {
		return 0, badRequest("sessionTime must not be negative")
	}

	n, err := s.store.UpdateSessionTime(ctx, sessionID, *sessionTime, s.opts.clock.Now())
	if err != nil {
		return 0, s.fail("update session time", err)
	}
	s.opts.metrics.SessionTimeBroadcast(n)
	return n, nil
}

func (s *Service) fail(op string, err error) error {
	err = storeErr(op, err)
	if !errIsNotFound(err) {
		s.opts.logger.Error("visitor store failure", zap.String("op", op), zap.Error(err))
	}
	return err
}

func optional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
