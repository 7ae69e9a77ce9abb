package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/convrelay/internal/audit"
	"github.com/okian/convrelay/internal/domain/model"
	"github.com/okian/convrelay/pkg/logger"
	"github.com/okian/convrelay/pkg/metrics"
)

// refresh exchanges the configured refresh token for a fresh access token
// and persists it to the credential cache. The exchange is audited without
// its bodies: both carry secret material.
func (u *Uploader) refresh(ctx context.Context, cfg model.ConfigSet, traceID, eventName string) (string, error) {
	form := url.Values{}
	form.Set("refresh_token", cfg.RefreshToken)
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		metrics.RecordTokenRefresh("failure")
		return "", fmt.Errorf("%w: build token request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	u.aud.Emit(ctx, audit.Record{
		Name:          refreshRecordName,
		Type:          audit.TypeRequest,
		TraceID:       traceID,
		EventName:     eventName,
		RequestMethod: http.MethodPost,
		RequestURL:    u.tokenEndpoint,
	})

	resp, err := u.client.Do(req)
	if err != nil {
		metrics.RecordTokenRefresh("failure")
		return "", fmt.Errorf("%w: token refresh: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	u.aud.Emit(ctx, audit.Record{
		Name:               refreshRecordName,
		Type:               audit.TypeResponse,
		TraceID:            traceID,
		EventName:          eventName,
		ResponseStatusCode: resp.StatusCode,
		ResponseHeaders:    resp.Header,
	})

	if resp.StatusCode != http.StatusOK {
		metrics.RecordTokenRefresh("failure")
		return "", fmt.Errorf("%w: token refresh status %d", ErrAuth, resp.StatusCode)
	}

	var cred model.Credential
	if err := json.Unmarshal(body, &cred); err != nil || cred.AccessToken == "" {
		metrics.RecordTokenRefresh("failure")
		return "", fmt.Errorf("%w: token refresh returned no usable credential", ErrAuth)
	}

	if err := u.cache.Write(ctx, cfg.CachePath, cred); err != nil {
		metrics.RecordTokenRefresh("failure")
		u.log.Warn(ctx, "credential cache write failed",
			logger.String("path", cfg.CachePath),
			logger.Error(err),
		)
		return "", fmt.Errorf("%w: persist refreshed credential: %v", ErrAuth, err)
	}

	metrics.RecordTokenRefresh("success")
	return cred.AccessToken, nil
}
