// Package upload delivers resolved conversion records to the upstream
// platform, handling endpoint selection, credential caching and the
// single silent refresh allowed on an authorization rejection.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/convrelay/internal/adapters/tokencache"
	"github.com/okian/convrelay/internal/audit"
	"github.com/okian/convrelay/internal/domain/model"
	"github.com/okian/convrelay/pkg/logger"
	"github.com/okian/convrelay/pkg/metrics"
)

const (
	uploadRecordName  = "gAdsOfflineConversion"
	refreshRecordName = "gAdsTokenRefresh"

	outcomeSuccess   = "success"
	outcomeAuth      = "auth"
	outcomeUpstream  = "upstream"
	outcomeTransport = "transport"

	maxResponseBytes = 1 << 20
)

// uploadRequest is the wire envelope for a single conversion upload.
// Partial-failure mode is always requested so one bad record cannot
// reject a batch; validate-only is never set outside tests upstream.
type uploadRequest struct {
	Conversions    []model.ConversionRecord `json:"conversions"`
	PartialFailure bool                     `json:"partialFailure"`
	ValidateOnly   bool                     `json:"validateOnly"`
}

// Uploader posts conversion records upstream. It is safe for concurrent use
// as long as the configured cache is.
type Uploader struct {
	client        *http.Client
	cache         tokencache.Store
	aud           *audit.Emitter
	log           logger.Logger
	tokenEndpoint string
	vendorBase    string
	relayDomain   string
	relayURL      string
}

// New constructs an Uploader with an in-memory credential cache and a
// 30-second HTTP timeout unless options say otherwise.
func New(opts ...Option) *Uploader {
	u := &Uploader{
		client:        &http.Client{Timeout: 30 * time.Second},
		cache:         tokencache.NewMemoryStore(),
		aud:           audit.New(),
		log:           logger.Named("upload"),
		tokenEndpoint: defaultTokenEndpoint,
		vendorBase:    defaultVendorBase,
		relayDomain:   defaultRelayDomain,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Send delivers one conversion record. With owned credentials it reads the
// cached token (refreshing on a miss) and retries exactly once after a 401,
// refreshing in between; a second 401 is terminal. The delegated flow never
// refreshes locally: the relay owns the credential, so a 401 is terminal
// immediately.
func (u *Uploader) Send(ctx context.Context, cfg model.ConfigSet, rec model.ConversionRecord, traceID, eventName string) error {
	endpoint, err := u.endpoint(cfg)
	if err != nil {
		metrics.RecordUpload(outcomeUpstream)
		return err
	}
	if cfg.OwnCredentials {
		if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
			metrics.RecordUpload(outcomeUpstream)
			return fmt.Errorf("%w: owned-credential delivery requires client_id, client_secret and refresh_token", ErrConfiguration)
		}
	}

	body, err := json.Marshal(uploadRequest{
		Conversions:    []model.ConversionRecord{rec},
		PartialFailure: true,
	})
	if err != nil {
		return fmt.Errorf("%w: encode upload body: %v", ErrConfiguration, err)
	}

	var token string
	if cfg.OwnCredentials {
		token, err = u.accessToken(ctx, cfg, traceID, eventName)
		if err != nil {
			metrics.RecordUpload(outcomeAuth)
			return err
		}
	}

	start := time.Now()
	status, err := u.post(ctx, cfg, endpoint, body, token, traceID, eventName)
	metrics.RecordUploadLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordUpload(outcomeTransport)
		return err
	}

	if status == http.StatusUnauthorized && cfg.OwnCredentials {
		metrics.RecordUploadRetry()
		u.log.Warn(ctx, "upload rejected, refreshing credential once",
			logger.String("traceId", traceID),
		)
		token, err = u.refresh(ctx, cfg, traceID, eventName)
		if err != nil {
			metrics.RecordUpload(outcomeAuth)
			return err
		}
		status, err = u.post(ctx, cfg, endpoint, body, token, traceID, eventName)
		if err != nil {
			metrics.RecordUpload(outcomeTransport)
			return err
		}
	}

	switch {
	case status >= http.StatusOK && status < http.StatusBadRequest:
		metrics.RecordUpload(outcomeSuccess)
		return nil
	case status == http.StatusUnauthorized:
		metrics.RecordUpload(outcomeAuth)
		return fmt.Errorf("%w: upstream rejected credentials (status %d)", ErrAuth, status)
	default:
		metrics.RecordUpload(outcomeUpstream)
		return fmt.Errorf("%w: status %d", ErrUpstream, status)
	}
}

// accessToken returns the cached access token, refreshing when the cache
// misses or cannot be read.
func (u *Uploader) accessToken(ctx context.Context, cfg model.ConfigSet, traceID, eventName string) (string, error) {
	cred, err := u.cache.Read(ctx, cfg.CachePath)
	if err == nil && cred.AccessToken != "" {
		metrics.RecordTokenCacheLookup("hit")
		return cred.AccessToken, nil
	}
	metrics.RecordTokenCacheLookup("miss")
	return u.refresh(ctx, cfg, traceID, eventName)
}

// post performs one upload attempt and returns the upstream status code.
// Both halves of the call are audited.
func (u *Uploader) post(ctx context.Context, cfg model.ConfigSet, endpoint string, body []byte, token, traceID, eventName string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: build upload request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.CustomerID != "" {
		req.Header.Set("login-customer-id", cfg.CustomerID)
	}
	if cfg.OwnCredentials {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("developer-token", cfg.DeveloperToken)
	}

	u.aud.Emit(ctx, audit.Record{
		Name:          uploadRecordName,
		Type:          audit.TypeRequest,
		TraceID:       traceID,
		EventName:     eventName,
		RequestMethod: http.MethodPost,
		RequestURL:    endpoint,
		RequestBody:   json.RawMessage(body),
	})

	resp, err := u.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	u.aud.Emit(ctx, audit.Record{
		Name:               uploadRecordName,
		Type:               audit.TypeResponse,
		TraceID:            traceID,
		EventName:          eventName,
		ResponseStatusCode: resp.StatusCode,
		ResponseHeaders:    resp.Header,
		ResponseBody:       string(respBody),
	})
	return resp.StatusCode, nil
}
