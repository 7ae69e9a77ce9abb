// Package resolve assembles a canonical conversion record from the explicit
// configuration and the raw event payload. Per attribute the precedence is
// explicit config first, then event data, then a computed default.
package resolve

import (
	"fmt"
	"time"

	"github.com/okian/convrelay/internal/domain/model"
	"github.com/okian/convrelay/internal/domain/timestamp"
)

// Defaults applied when neither config nor event supply a value.
const (
	defaultConversionValue = 1
	defaultCurrencyCode    = "USD"
)

// sourceUnspecified tags identifiers picked up automatically from event data.
const sourceUnspecified = "UNSPECIFIED"

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithClock sets the time source used when no conversion timestamp resolves.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// Resolver merges config and event data into conversion records.
type Resolver struct {
	now func() time.Time
}

// New constructs a Resolver with default configuration.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces the canonical record for one invocation. The event is
// never mutated. The returned record always carries a conversion action,
// timestamp, value, and currency.
func (r *Resolver) Resolve(cfg model.ConfigSet, event model.RawEvent) (model.ConversionRecord, error) {
	const op = "resolve"

	if cfg.CustomerID == "" || cfg.ConversionAction == "" {
		return model.ConversionRecord{}, fmt.Errorf("%s: customer id and conversion action required: %w", op, ErrInvalidConfig)
	}

	rec := model.ConversionRecord{
		ConversionEnvironment: cfg.Environment,
		ConversionAction:      "customers/" + cfg.CustomerID + "/conversionActions/" + cfg.ConversionAction,
	}

	rec.CustomVariables = resolveCustomVariables(cfg)
	resolveAttribution(cfg, event, &rec)
	r.resolveDateTime(cfg, event, &rec)
	resolveExternalAttribution(cfg, &rec)
	resolveConsent(cfg, &rec)

	cart := resolveCart(cfg, event, &rec)
	resolveOrderID(cfg, event, &rec)
	resolveValueAndCurrency(cfg, event, cart, &rec)

	rec.UserIdentifiers = resolveIdentifiers(cfg, event)

	return rec, nil
}

func resolveCustomVariables(cfg model.ConfigSet) []model.CustomVariable {
	if len(cfg.CustomVariables) == 0 {
		return nil
	}
	vars := make([]model.CustomVariable, 0, len(cfg.CustomVariables))
	for _, cv := range cfg.CustomVariables {
		if cv.Name == "" {
			continue
		}
		vars = append(vars, model.CustomVariable{
			ConversionCustomVariable: "customers/" + cfg.CustomerID + "/conversionCustomVariables/" + cv.Name,
			Value:                    cv.Value,
		})
	}
	if len(vars) == 0 {
		return nil
	}
	return vars
}

// resolveAttribution keeps exactly one attribution identifier, preferring the
// click id over the cross-device app id over the cross-device web id.
func resolveAttribution(cfg model.ConfigSet, event model.RawEvent, rec *model.ConversionRecord) {
	gclid := first(cfg.GCLID, toString(event["gclid"]))
	gbraid := first(cfg.GBRAID, toString(event["gbraid"]))
	wbraid := first(cfg.WBRAID, toString(event["wbraid"]))

	switch {
	case gclid != "":
		rec.GCLID = gclid
	case gbraid != "":
		rec.GBRAID = gbraid
	case wbraid != "":
		rec.WBRAID = wbraid
	}
}

func (r *Resolver) resolveDateTime(cfg model.ConfigSet, event model.RawEvent, rec *model.ConversionRecord) {
	rec.ConversionDateTime = first(
		cfg.ConversionDateTime,
		toString(event["conversionDateTime"]),
		timestamp.FromTime(r.now()),
	)
}

// resolveExternalAttribution includes the sub-record when at least one of
// credit or model is configured.
func resolveExternalAttribution(cfg model.ConfigSet, rec *model.ConversionRecord) {
	if cfg.ExternalAttributionCredit == "" && cfg.ExternalAttributionModel == "" {
		return
	}
	ext := &model.ExternalAttributionData{
		ExternalAttributionModel: cfg.ExternalAttributionModel,
	}
	if credit, ok := toNumber(cfg.ExternalAttributionCredit); ok {
		ext.ExternalAttributionCredit = &credit
	}
	rec.ExternalAttributionData = ext
}

// resolveConsent forwards consent only when both signals are present;
// partial consent data is dropped entirely.
func resolveConsent(cfg model.ConfigSet, rec *model.ConversionRecord) {
	if cfg.AdUserDataConsent == "" || cfg.AdPersonalizationConsent == "" {
		return
	}
	rec.Consent = &model.Consent{
		AdUserData:        cfg.AdUserDataConsent,
		AdPersonalization: cfg.AdPersonalizationConsent,
	}
}

func resolveOrderID(cfg model.ConfigSet, event model.RawEvent, rec *model.ConversionRecord) {
	rec.OrderID = first(
		cfg.OrderID,
		toString(event["orderId"]),
		toString(event["order_id"]),
		toString(event["transaction_id"]),
	)
}

// resolveValueAndCurrency applies the monetary fallback chains. The cart
// contributes a derived running total and a first-item currency as the last
// resort before the literal defaults.
func resolveValueAndCurrency(cfg model.ConfigSet, event model.RawEvent, cart cartDerived, rec *model.ConversionRecord) {
	rec.ConversionValue = resolveValue(cfg, event, cart)
	rec.CurrencyCode = first(
		cfg.CurrencyCode,
		toString(event["currencyCode"]),
		toString(event["currency"]),
		cart.currencyFromItems,
		defaultCurrencyCode,
	)
}

func resolveValue(cfg model.ConfigSet, event model.RawEvent, cart cartDerived) float64 {
	for _, candidate := range []any{
		cfg.ConversionValue,
		event["value"],
		event["conversionValue"],
		event["x-ga-mp1-ev"],
		event["x-ga-mp1-tr"],
	} {
		if isEmptyValue(candidate) {
			continue
		}
		if v, ok := toNumber(candidate); ok {
			return v
		}
	}
	if cart.valueFromItems != 0 {
		return cart.valueFromItems
	}
	return defaultConversionValue
}
