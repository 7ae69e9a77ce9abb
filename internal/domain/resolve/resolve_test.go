package resolve_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/okian/convrelay/internal/domain/model"
	"github.com/okian/convrelay/internal/domain/resolve"
	. "github.com/smartystreets/goconvey/convey"
)

func baseConfig() model.ConfigSet {
	return model.ConfigSet{
		CustomerID:         "1234567890",
		ConversionAction:   "987654",
		HashAllIdentifiers: true,
	}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 5, 20, 10, 30, 0, 0, time.UTC)
	}
}

func sum(s string) string {
	d := sha256.Sum256([]byte(s))
	return hex.EncodeToString(d[:])
}

func TestResolveBasics(t *testing.T) {
	Convey("Given a resolver with a fixed clock", t, func() {
		r := resolve.New(resolve.WithClock(fixedClock()))

		Convey("When customer id or action is missing", func() {
			_, err := r.Resolve(model.ConfigSet{}, model.RawEvent{})

			Convey("Then it fails fast with an invalid config error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "invalid conversion config")
			})
		})

		Convey("When resolving an empty event", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{})
			So(err, ShouldBeNil)

			Convey("Then the action resource name is composed", func() {
				So(rec.ConversionAction, ShouldEqual, "customers/1234567890/conversionActions/987654")
			})

			Convey("And value and currency fall back to defaults", func() {
				So(rec.ConversionValue, ShouldEqual, 1)
				So(rec.CurrencyCode, ShouldEqual, "USD")
			})

			Convey("And the timestamp is computed from the clock", func() {
				So(rec.ConversionDateTime, ShouldEqual, "2024-05-20 10:30:00+00:00")
			})

			Convey("And optional sections are omitted", func() {
				So(rec.CartData, ShouldBeNil)
				So(rec.Consent, ShouldBeNil)
				So(rec.ExternalAttributionData, ShouldBeNil)
				So(rec.UserIdentifiers, ShouldBeEmpty)
			})
		})

		Convey("When config supplies a conversion timestamp", func() {
			cfg := baseConfig()
			cfg.ConversionDateTime = "2024-01-01 00:00:00+00:00"
			rec, err := r.Resolve(cfg, model.RawEvent{"conversionDateTime": "2024-02-02 00:00:00+00:00"})
			So(err, ShouldBeNil)

			Convey("Then config wins over the event value", func() {
				So(rec.ConversionDateTime, ShouldEqual, "2024-01-01 00:00:00+00:00")
			})
		})

		Convey("When only the event supplies a timestamp", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{"conversionDateTime": "2024-02-02 00:00:00+00:00"})
			So(err, ShouldBeNil)
			So(rec.ConversionDateTime, ShouldEqual, "2024-02-02 00:00:00+00:00")
		})
	})
}

func TestResolveAttribution(t *testing.T) {
	Convey("Given a resolver", t, func() {
		r := resolve.New(resolve.WithClock(fixedClock()))

		Convey("When several attribution ids resolve", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{
				"gclid":  "click-1",
				"gbraid": "app-1",
				"wbraid": "web-1",
			})
			So(err, ShouldBeNil)

			Convey("Then only the click id is retained", func() {
				So(rec.GCLID, ShouldEqual, "click-1")
				So(rec.GBRAID, ShouldBeEmpty)
				So(rec.WBRAID, ShouldBeEmpty)
			})
		})

		Convey("When only cross-device ids resolve", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{"gbraid": "app-1", "wbraid": "web-1"})
			So(err, ShouldBeNil)

			Convey("Then the app id beats the web id", func() {
				So(rec.GBRAID, ShouldEqual, "app-1")
				So(rec.WBRAID, ShouldBeEmpty)
			})
		})

		Convey("When config overrides the event click id", func() {
			cfg := baseConfig()
			cfg.GCLID = "from-config"
			rec, err := r.Resolve(cfg, model.RawEvent{"gclid": "from-event"})
			So(err, ShouldBeNil)
			So(rec.GCLID, ShouldEqual, "from-config")
		})
	})
}

func TestResolveValueAndCurrency(t *testing.T) {
	Convey("Given a resolver", t, func() {
		r := resolve.New(resolve.WithClock(fixedClock()))

		Convey("When config and event both carry a value", func() {
			cfg := baseConfig()
			cfg.ConversionValue = "5"
			rec, err := r.Resolve(cfg, model.RawEvent{"value": float64(10)})
			So(err, ShouldBeNil)
			So(rec.ConversionValue, ShouldEqual, 5)
		})

		Convey("When only a legacy analytics field carries a value", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{"x-ga-mp1-tr": float64(7)})
			So(err, ShouldBeNil)
			So(rec.ConversionValue, ShouldEqual, 7)
		})

		Convey("And the ev legacy field beats the tr one", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{
				"x-ga-mp1-ev": float64(3),
				"x-ga-mp1-tr": float64(7),
			})
			So(err, ShouldBeNil)
			So(rec.ConversionValue, ShouldEqual, 3)
		})

		Convey("When only cart items carry monetary data", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{
				"items": []any{
					map[string]any{"id": "sku-1", "quantity": float64(2), "price": float64(3)},
					map[string]any{"id": "sku-2", "quantity": float64(1), "price": float64(4)},
				},
			})
			So(err, ShouldBeNil)

			Convey("Then the value is the accumulated cart total", func() {
				So(rec.ConversionValue, ShouldEqual, 10)
			})
		})

		Convey("When an item has a price but no quantity", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{
				"items": []any{
					map[string]any{"id": "sku-1", "price": float64(4)},
				},
			})
			So(err, ShouldBeNil)
			So(rec.ConversionValue, ShouldEqual, 4)
		})

		Convey("When currency resolves from the first cart item", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{
				"items": []any{
					map[string]any{"id": "sku-1", "price": float64(4), "currency": "GBP"},
				},
			})
			So(err, ShouldBeNil)
			So(rec.CurrencyCode, ShouldEqual, "GBP")
		})

		Convey("When the event currency field is set", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{"currency": "EUR"})
			So(err, ShouldBeNil)
			So(rec.CurrencyCode, ShouldEqual, "EUR")
		})

		Convey("When currencyCode and currency are both set", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{
				"currencyCode": "CHF",
				"currency":     "EUR",
			})
			So(err, ShouldBeNil)
			So(rec.CurrencyCode, ShouldEqual, "CHF")
		})
	})
}

func TestResolveCart(t *testing.T) {
	Convey("Given a resolver", t, func() {
		r := resolve.New(resolve.WithClock(fixedClock()))

		Convey("When config supplies an explicit item list", func() {
			price := 9.5
			cfg := baseConfig()
			cfg.Items = []model.CartItem{{ProductID: "cfg-sku", Quantity: 1, UnitPrice: &price}}
			rec, err := r.Resolve(cfg, model.RawEvent{
				"items": []any{map[string]any{"id": "event-sku", "price": float64(100)}},
			})
			So(err, ShouldBeNil)

			Convey("Then the config list is used verbatim", func() {
				So(rec.CartData, ShouldNotBeNil)
				So(rec.CartData.Items, ShouldHaveLength, 1)
				So(rec.CartData.Items[0].ProductID, ShouldEqual, "cfg-sku")
			})

			Convey("And no cart-derived value fallback applies", func() {
				So(rec.ConversionValue, ShouldEqual, 1)
			})
		})

		Convey("When event items use the item_ prefixed aliases", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{
				"items": []any{
					map[string]any{"item_id": "sku-9", "item_quantity": float64(3), "item_price": float64(2)},
				},
			})
			So(err, ShouldBeNil)

			So(rec.CartData, ShouldNotBeNil)
			So(rec.CartData.Items[0].ProductID, ShouldEqual, "sku-9")
			So(rec.CartData.Items[0].Quantity, ShouldEqual, 3)
			So(*rec.CartData.Items[0].UnitPrice, ShouldEqual, 2)
			So(rec.ConversionValue, ShouldEqual, 6)
		})

		Convey("When only merchant metadata resolves", func() {
			cfg := baseConfig()
			cfg.MerchantID = "m-77"
			rec, err := r.Resolve(cfg, model.RawEvent{"feedCountryCode": "DE"})
			So(err, ShouldBeNil)

			Convey("Then the cart sub-record is included without items", func() {
				So(rec.CartData, ShouldNotBeNil)
				So(rec.CartData.MerchantID, ShouldEqual, "m-77")
				So(rec.CartData.FeedCountryCode, ShouldEqual, "DE")
				So(rec.CartData.Items, ShouldBeEmpty)
			})
		})

		Convey("When the local transaction cost arrives as a string", func() {
			cfg := baseConfig()
			cfg.LocalTransactionCost = "12.5"
			rec, err := r.Resolve(cfg, model.RawEvent{})
			So(err, ShouldBeNil)
			So(rec.CartData, ShouldNotBeNil)
			So(*rec.CartData.LocalTransactionCost, ShouldEqual, 12.5)
		})
	})
}

func TestResolveOrderID(t *testing.T) {
	Convey("Given a resolver", t, func() {
		r := resolve.New(resolve.WithClock(fixedClock()))

		Convey("Then the order id chain prefers config, then aliases in order", func() {
			cfg := baseConfig()
			cfg.OrderID = "cfg-1"
			rec, _ := r.Resolve(cfg, model.RawEvent{"orderId": "ev-1"})
			So(rec.OrderID, ShouldEqual, "cfg-1")

			rec, _ = r.Resolve(baseConfig(), model.RawEvent{"orderId": "ev-1", "order_id": "ev-2"})
			So(rec.OrderID, ShouldEqual, "ev-1")

			rec, _ = r.Resolve(baseConfig(), model.RawEvent{"order_id": "ev-2", "transaction_id": "ev-3"})
			So(rec.OrderID, ShouldEqual, "ev-2")

			rec, _ = r.Resolve(baseConfig(), model.RawEvent{"transaction_id": "ev-3"})
			So(rec.OrderID, ShouldEqual, "ev-3")
		})
	})
}

func TestResolveIdentifiers(t *testing.T) {
	Convey("Given a resolver", t, func() {
		r := resolve.New(resolve.WithClock(fixedClock()))

		Convey("When an explicit config identifier consumes a kind", func() {
			cfg := baseConfig()
			cfg.IdentifierSource = "FIRST_PARTY"
			cfg.UserIdentifiers = []model.IdentifierSpec{
				{Name: model.KindHashedEmail, Value: "configured@example.com"},
			}
			rec, err := r.Resolve(cfg, model.RawEvent{"email": "eventside@example.com"})
			So(err, ShouldBeNil)

			Convey("Then the event email is suppressed", func() {
				So(rec.UserIdentifiers, ShouldHaveLength, 1)
				So(rec.UserIdentifiers[0].Kind, ShouldEqual, model.KindHashedEmail)
				So(rec.UserIdentifiers[0].Value, ShouldEqual, sum("configured@example.com"))
				So(rec.UserIdentifiers[0].Source, ShouldEqual, "FIRST_PARTY")
			})
		})

		Convey("When config entries have empty values", func() {
			cfg := baseConfig()
			cfg.UserIdentifiers = []model.IdentifierSpec{
				{Name: model.KindHashedEmail, Value: ""},
				{Name: model.KindHashedPhone, Value: nil},
			}
			rec, err := r.Resolve(cfg, model.RawEvent{"email": "fallback@example.com"})
			So(err, ShouldBeNil)

			Convey("Then they are skipped and do not consume their kind", func() {
				So(rec.UserIdentifiers, ShouldHaveLength, 1)
				So(rec.UserIdentifiers[0].Value, ShouldEqual, sum("fallback@example.com"))
				So(rec.UserIdentifiers[0].Source, ShouldEqual, "UNSPECIFIED")
			})
		})

		Convey("When identifiers hide under a nested user container", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{
				"user_data": map[string]any{"email_address": "nested@example.com"},
			})
			So(err, ShouldBeNil)
			So(rec.UserIdentifiers, ShouldHaveLength, 1)
			So(rec.UserIdentifiers[0].Value, ShouldEqual, sum("nested@example.com"))
		})

		Convey("When several built-in kinds resolve from the event", func() {
			rec, err := r.Resolve(baseConfig(), model.RawEvent{
				"email":   "a@b.com",
				"phone":   "(555) 123-4567",
				"user_id": "u-1",
			})
			So(err, ShouldBeNil)

			Convey("Then at most one identifier per kind is present", func() {
				So(rec.UserIdentifiers, ShouldHaveLength, 3)
				kinds := map[string]bool{}
				for _, id := range rec.UserIdentifiers {
					So(kinds[id.Kind], ShouldBeFalse)
					kinds[id.Kind] = true
				}
			})
		})

		Convey("When the hash-all policy is disabled", func() {
			cfg := baseConfig()
			cfg.HashAllIdentifiers = false
			rec, err := r.Resolve(cfg, model.RawEvent{
				"email":   "a@b.com",
				"user_id": "raw-user",
			})
			So(err, ShouldBeNil)

			var email, third any
			for _, id := range rec.UserIdentifiers {
				switch id.Kind {
				case model.KindHashedEmail:
					email = id.Value
				case model.KindThirdPartyUserID:
					third = id.Value
				}
			}

			Convey("Then email is still hashed but the third-party id is raw", func() {
				So(email, ShouldEqual, sum("a@b.com"))
				So(third, ShouldEqual, "raw-user")
			})
		})

		Convey("When a pre-hashed email arrives", func() {
			digest := sum("someone@example.com")
			rec, err := r.Resolve(baseConfig(), model.RawEvent{"hashedEmail": digest})
			So(err, ShouldBeNil)

			Convey("Then it is not re-hashed", func() {
				So(rec.UserIdentifiers[0].Value, ShouldEqual, digest)
			})
		})
	})
}

func TestResolveConsentAndExternalAttribution(t *testing.T) {
	Convey("Given a resolver", t, func() {
		r := resolve.New(resolve.WithClock(fixedClock()))

		Convey("When only one consent signal is configured", func() {
			cfg := baseConfig()
			cfg.AdUserDataConsent = "GRANTED"
			rec, err := r.Resolve(cfg, model.RawEvent{})
			So(err, ShouldBeNil)

			Convey("Then consent is omitted entirely", func() {
				So(rec.Consent, ShouldBeNil)
			})
		})

		Convey("When both consent signals are configured", func() {
			cfg := baseConfig()
			cfg.AdUserDataConsent = "GRANTED"
			cfg.AdPersonalizationConsent = "DENIED"
			rec, err := r.Resolve(cfg, model.RawEvent{})
			So(err, ShouldBeNil)

			So(rec.Consent, ShouldNotBeNil)
			So(rec.Consent.AdUserData, ShouldEqual, "GRANTED")
			So(rec.Consent.AdPersonalization, ShouldEqual, "DENIED")
		})

		Convey("When only the external attribution model is configured", func() {
			cfg := baseConfig()
			cfg.ExternalAttributionModel = "last_touch"
			rec, err := r.Resolve(cfg, model.RawEvent{})
			So(err, ShouldBeNil)

			So(rec.ExternalAttributionData, ShouldNotBeNil)
			So(rec.ExternalAttributionData.ExternalAttributionModel, ShouldEqual, "last_touch")
			So(rec.ExternalAttributionData.ExternalAttributionCredit, ShouldBeNil)
		})

		Convey("When the external attribution credit is configured", func() {
			cfg := baseConfig()
			cfg.ExternalAttributionCredit = "0.4"
			rec, err := r.Resolve(cfg, model.RawEvent{})
			So(err, ShouldBeNil)

			So(rec.ExternalAttributionData, ShouldNotBeNil)
			So(*rec.ExternalAttributionData.ExternalAttributionCredit, ShouldEqual, 0.4)
		})
	})
}

func TestResolveCustomVariables(t *testing.T) {
	Convey("Given a resolver with configured custom variables", t, func() {
		r := resolve.New(resolve.WithClock(fixedClock()))
		cfg := baseConfig()
		cfg.CustomVariables = []model.CustomVariableSpec{
			{Name: "var1", Value: "alpha"},
			{Name: "", Value: "dropped"},
		}

		rec, err := r.Resolve(cfg, model.RawEvent{})
		So(err, ShouldBeNil)

		Convey("Then resource names are composed and unnamed entries dropped", func() {
			So(rec.CustomVariables, ShouldHaveLength, 1)
			So(rec.CustomVariables[0].ConversionCustomVariable,
				ShouldEqual, "customers/1234567890/conversionCustomVariables/var1")
			So(rec.CustomVariables[0].Value, ShouldEqual, "alpha")
		})
	})
}
