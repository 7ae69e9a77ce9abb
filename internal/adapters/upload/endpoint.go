package upload

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/convrelay/internal/domain/model"
)

// Default endpoint locations. The vendor base and relay domain are
// overridable through options for self-hosted relays and tests.
const (
	defaultTokenEndpoint = "https://www.googleapis.com/oauth2/v3/token"
	defaultVendorBase    = "https://googleads.googleapis.com"
	vendorAPIVersion     = "v11"
	defaultRelayDomain   = "stape.io"

	containerKeySegments = 3
)

// endpoint selects the upload target. The owned-credential flow posts
// straight to the vendor; otherwise the relay endpoint is derived from the
// colon-delimited container key "zone:identifier:apikey".
func (u *Uploader) endpoint(cfg model.ConfigSet) (string, error) {
	const op = "upload.endpoint"

	if cfg.OwnCredentials {
		return u.vendorBase + "/" + vendorAPIVersion + "/customers/" +
			url.PathEscape(cfg.CustomerID) + ":uploadClickConversions", nil
	}

	if u.relayURL != "" {
		return u.relayURL, nil
	}

	parts := strings.Split(cfg.ContainerKey, ":")
	if len(parts) != containerKeySegments || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("%s: container key must be zone:identifier:apikey: %w", op, ErrConfiguration)
	}
	zone, identifier, apiKey := parts[0], parts[1], parts[2]

	return "https://" + url.PathEscape(identifier) + "." + url.PathEscape(zone) + "." + u.relayDomain +
		"/stape-api/" + url.PathEscape(apiKey) + "/v1/gads/auth-proxy", nil
}
