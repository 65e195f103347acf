package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TrackRequest opens or merges the visit of one page.
type TrackRequest struct {
	Page           string  `json:"page"`
	PageTitle      string  `json:"pageTitle"`
	SessionID      string  `json:"sessionId"`
	GuestID        *string `json:"guestId"`
	UserID         *string `json:"userId"`
	TimeOnPage     int64   `json:"timeOnPage"`
	SessionTime    int64   `json:"sessionTime"`
	IsBounce       bool    `json:"isBounce"`
	Converted      bool    `json:"converted"`
	ConversionType string  `json:"conversionType"`
}

type TrackResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	VisitorID string `json:"visitorId"`
}

// UpdateRequest overwrites engagement fields of the current visit.
type UpdateRequest struct {
	TimeOnPage     int64  `json:"timeOnPage"`
	SessionTime    int64  `json:"sessionTime"`
	IsBounce       bool   `json:"isBounce"`
	Converted      bool   `json:"converted,omitempty"`
	ConversionType string `json:"conversionType,omitempty"`
}

// Transport delivers tracker events to the ingestion endpoints.
type Transport interface {
	Track(ctx context.Context, req TrackRequest) (*TrackResponse, error)
	Update(ctx context.Context, visitID string, req UpdateRequest) error
	UpdateSession(ctx context.Context, sessionID string, sessionTime int64) error
	// Beacon sends req without waiting for the outcome and never retries.
	Beacon(visitID string, req UpdateRequest)
}

const beaconTimeout = 5 * time.Second

// HTTPTransport talks JSON to a footprint server.
type HTTPTransport struct {
	base   string
	client *http.Client
	log    *zap.Logger
}

// NewHTTPTransport targets baseURL, e.g. "https://stats.example.com". A nil client uses http.DefaultClient.
func NewHTTPTransport(baseURL string, client *http.Client, log *zap.Logger) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPTransport{base: strings.TrimRight(baseURL, "/") + "/api/visitors", client: client, log: log}
}

func (t *HTTPTransport) Track(ctx context.Context, req TrackRequest) (*TrackResponse, error) {
	var out TrackResponse
	if err := t.send(ctx, http.MethodPost, "/track", "application/json", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *HTTPTransport) Update(ctx context.Context, visitID string, req UpdateRequest) error {
	return t.send(ctx, http.MethodPut, "/update/"+url.PathEscape(visitID), "application/json", req, nil)
}

func (t *HTTPTransport) UpdateSession(ctx context.Context, sessionID string, sessionTime int64) error {
	body := struct {
		SessionTime int64 `json:"sessionTime"`
	}{sessionTime}
	return t.send(ctx, http.MethodPut, "/update-session/"+url.PathEscape(sessionID), "application/json", body, nil)
}

// Beacon posts the update as text/plain, the way browsers deliver beacons on unload.
func (t *HTTPTransport) Beacon(visitID string, req UpdateRequest) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
		defer cancel()
		if err := t.send(ctx, http.MethodPost, "/update/"+url.PathEscape(visitID), "text/plain;charset=UTF-8", req, nil); err != nil {
			t.log.Debug("beacon dropped", zap.String("visitId", visitID), zap.Error(err))
		}
	}()
}

func (t *HTTPTransport) send(ctx context.Context, method, path, contentType string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
