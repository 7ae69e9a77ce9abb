package upload

import (
	"net/http"

	"github.com/okian/convrelay/internal/adapters/tokencache"
	"github.com/okian/convrelay/internal/audit"
	"github.com/okian/convrelay/pkg/logger"
)

// Option applies a configuration option to the Uploader.
type Option func(*Uploader)

// WithHTTPClient sets the HTTP client used for all network calls.
func WithHTTPClient(client *http.Client) Option {
	return func(u *Uploader) {
		if client != nil {
			u.client = client
		}
	}
}

// WithCache sets the credential cache used by the owned-credential flow.
func WithCache(store tokencache.Store) Option {
	return func(u *Uploader) {
		if store != nil {
			u.cache = store
		}
	}
}

// WithAudit sets the audit emitter observing every network call.
func WithAudit(emitter *audit.Emitter) Option {
	return func(u *Uploader) {
		if emitter != nil {
			u.aud = emitter
		}
	}
}

// WithLogger sets a custom logger for the uploader.
func WithLogger(l logger.Logger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.log = l
		}
	}
}

// WithTokenEndpoint overrides the OAuth token endpoint.
func WithTokenEndpoint(endpoint string) Option {
	return func(u *Uploader) {
		if endpoint != "" {
			u.tokenEndpoint = endpoint
		}
	}
}

// WithVendorBase overrides the vendor API base URL.
func WithVendorBase(base string) Option {
	return func(u *Uploader) {
		if base != "" {
			u.vendorBase = base
		}
	}
}

// WithRelayDomain sets the relay domain used when composing the proxy
// endpoint from a container key.
func WithRelayDomain(domain string) Option {
	return func(u *Uploader) {
		if domain != "" {
			u.relayDomain = domain
		}
	}
}

// WithRelayURL points the delegated-proxy flow at a fixed relay endpoint,
// bypassing container-key composition. Used for self-hosted relays.
func WithRelayURL(relayURL string) Option {
	return func(u *Uploader) {
		u.relayURL = relayURL
	}
}
