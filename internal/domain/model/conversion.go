// Package model contains domain models passed between layers.
package model

import "encoding/json"

// RawEvent is the caller-supplied event payload: attribute name to arbitrary
// value (string, number, nested object, or list). Treated as read-only for
// the duration of one invocation.
type RawEvent map[string]any

// Name returns the event's name attribute, when present.
func (e RawEvent) Name() string {
	for _, key := range []string{"event_name", "name"} {
		if v, ok := e[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Identifier kinds understood by the resolver and the normalizer. These match
// the wire keys of the upstream userIdentifiers objects.
const (
	KindHashedEmail      = "hashedEmail"
	KindHashedPhone      = "hashedPhoneNumber"
	KindMobileID         = "mobileId"
	KindThirdPartyUserID = "thirdPartyUserId"
	KindAddressInfo      = "addressInfo"
)

// IdentifierSpec is an explicitly configured user identifier entry. Name is
// the identifier kind (one of the Kind* constants or a caller-defined custom
// kind); Value may be a scalar, list, or nested object.
type IdentifierSpec struct {
	Name  string `koanf:"name" json:"name"`
	Value any    `koanf:"value" json:"value"`
}

// CustomVariableSpec names a conversion custom variable and its value.
type CustomVariableSpec struct {
	Name  string `koanf:"name" json:"name"`
	Value string `koanf:"value" json:"value"`
}

// ConfigSet carries the explicitly supplied per-invocation overrides and the
// static delivery settings. It is immutable once an invocation starts; string
// fields use "" as absent. It mirrors the tag configuration surface of the
// upstream platform.
type ConfigSet struct {
	// Target action.
	CustomerID       string `koanf:"customer_id"`
	ConversionAction string `koanf:"conversion_action"`
	Environment      string `koanf:"environment"`

	// Attribution identifiers (click-id family).
	GCLID  string `koanf:"gclid"`
	GBRAID string `koanf:"gbraid"`
	WBRAID string `koanf:"wbraid"`

	// Conversion fields.
	ConversionDateTime string `koanf:"conversion_date_time"`
	ConversionValue    string `koanf:"conversion_value"`
	CurrencyCode       string `koanf:"currency_code"`
	OrderID            string `koanf:"order_id"`

	// Cart / merchant metadata.
	Items                []CartItem `koanf:"items"`
	MerchantID           string     `koanf:"merchant_id"`
	FeedCountryCode      string     `koanf:"feed_country_code"`
	FeedLanguageCode     string     `koanf:"feed_language_code"`
	LocalTransactionCost string     `koanf:"local_transaction_cost"`

	// External attribution, both optional; included if either is set.
	ExternalAttributionCredit string `koanf:"external_attribution_credit"`
	ExternalAttributionModel  string `koanf:"external_attribution_model"`

	// Consent signals; both must be set for consent to be forwarded.
	AdUserDataConsent        string `koanf:"ad_user_data_consent"`
	AdPersonalizationConsent string `koanf:"ad_personalization_consent"`

	// Explicit identifiers and custom variables.
	UserIdentifiers  []IdentifierSpec     `koanf:"user_identifiers"`
	IdentifierSource string               `koanf:"identifier_source"`
	CustomVariables  []CustomVariableSpec `koanf:"custom_variables"`

	// HashAllIdentifiers controls whether mobileId/thirdPartyUserId/addressInfo
	// values picked up from event data are hashed like email and phone, or sent
	// as-is. Email and phone are always hashed.
	HashAllIdentifiers bool `koanf:"hash_all_identifiers"`

	// Delivery settings. OwnCredentials selects the owned-credential flow
	// (direct vendor endpoint, developer token, local token cache); otherwise
	// conversions go through the relay endpoint derived from ContainerKey.
	OwnCredentials bool   `koanf:"own_credentials"`
	DeveloperToken string `koanf:"developer_token"`
	ClientID       string `koanf:"client_id"`
	ClientSecret   string `koanf:"client_secret"`
	RefreshToken   string `koanf:"refresh_token"`
	CachePath      string `koanf:"cache_path"`
	ContainerKey   string `koanf:"container_key"`
}

// CartItem describes one purchased item.
type CartItem struct {
	ProductID string   `koanf:"product_id" json:"productId,omitempty"`
	Quantity  int64    `koanf:"quantity" json:"quantity,omitempty"`
	UnitPrice *float64 `koanf:"unit_price" json:"unitPrice,omitempty"`
}

// CartData aggregates items and merchant metadata. It is attached to the
// record only when at least one field resolved.
type CartData struct {
	MerchantID           string     `json:"merchantId,omitempty"`
	FeedCountryCode      string     `json:"feedCountryCode,omitempty"`
	FeedLanguageCode     string     `json:"feedLanguageCode,omitempty"`
	LocalTransactionCost *float64   `json:"localTransactionCost,omitempty"`
	Items                []CartItem `json:"items,omitempty"`
}

// CustomVariable is the wire form of a resolved custom variable.
type CustomVariable struct {
	ConversionCustomVariable string `json:"conversionCustomVariable"`
	Value                    string `json:"value"`
}

// Consent carries the two consent signals; forwarded all-or-nothing.
type Consent struct {
	AdUserData        string `json:"adUserData"`
	AdPersonalization string `json:"adPersonalization"`
}

// ExternalAttributionData reports third-party attribution metadata.
type ExternalAttributionData struct {
	ExternalAttributionCredit *float64 `json:"externalAttributionCredit,omitempty"`
	ExternalAttributionModel  string   `json:"externalAttributionModel,omitempty"`
}

// UserIdentifier is a tagged identifier value with provenance. The wire form
// keys the value by its kind, alongside userIdentifierSource, so it uses a
// custom marshaller.
type UserIdentifier struct {
	Kind   string
	Value  any
	Source string
}

// MarshalJSON emits {"<kind>": <value>, "userIdentifierSource": "<source>"}.
func (u UserIdentifier) MarshalJSON() ([]byte, error) {
	obj := map[string]any{u.Kind: u.Value}
	if u.Source != "" {
		obj["userIdentifierSource"] = u.Source
	}
	return json.Marshal(obj)
}

// ConversionRecord is the fully resolved conversion, the unit submitted
// upstream. Value and currency are always populated; everything else is
// optional.
type ConversionRecord struct {
	ConversionEnvironment   string                   `json:"conversionEnvironment,omitempty"`
	ConversionAction        string                   `json:"conversionAction"`
	GCLID                   string                   `json:"gclid,omitempty"`
	GBRAID                  string                   `json:"gbraid,omitempty"`
	WBRAID                  string                   `json:"wbraid,omitempty"`
	ConversionDateTime      string                   `json:"conversionDateTime"`
	ConversionValue         float64                  `json:"conversionValue"`
	CurrencyCode            string                   `json:"currencyCode"`
	OrderID                 string                   `json:"orderId,omitempty"`
	CartData                *CartData                `json:"cartData,omitempty"`
	CustomVariables         []CustomVariable         `json:"customVariables,omitempty"`
	Consent                 *Consent                 `json:"consent,omitempty"`
	ExternalAttributionData *ExternalAttributionData `json:"externalAttributionData,omitempty"`
	UserIdentifiers         []UserIdentifier         `json:"userIdentifiers,omitempty"`
}

// Credential is a cached access credential. The token is opaque to this
// system; its lifetime is owned by the remote authorization server.
type Credential struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
