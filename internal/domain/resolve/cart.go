package resolve

import (
	"github.com/okian/convrelay/internal/domain/model"
)

// cartDerived carries the value and currency fallbacks derived while mapping
// event items; both stay zero when the item list came from config.
type cartDerived struct {
	valueFromItems    float64
	currencyFromItems string
}

// resolveCart attaches cart data when any of its fields resolve. A config
// item list is used verbatim; otherwise items are derived from the event's
// items sequence, accumulating a monetary total for the value fallback.
func resolveCart(cfg model.ConfigSet, event model.RawEvent, rec *model.ConversionRecord) cartDerived {
	var derived cartDerived

	items := cfg.Items
	if len(items) == 0 {
		items, derived = deriveEventItems(event)
	}

	cart := model.CartData{
		MerchantID:       first(cfg.MerchantID, toString(event["merchantId"])),
		FeedCountryCode:  first(cfg.FeedCountryCode, toString(event["feedCountryCode"])),
		FeedLanguageCode: first(cfg.FeedLanguageCode, toString(event["feedLanguageCode"])),
		Items:            items,
	}
	for _, candidate := range []any{cfg.LocalTransactionCost, event["localTransactionCost"]} {
		if isEmptyValue(candidate) {
			continue
		}
		if cost, ok := toNumber(candidate); ok {
			cart.LocalTransactionCost = &cost
			break
		}
	}

	if len(cart.Items) > 0 || cart.MerchantID != "" || cart.FeedCountryCode != "" ||
		cart.FeedLanguageCode != "" || cart.LocalTransactionCost != nil {
		rec.CartData = &cart
	}

	return derived
}

// deriveEventItems maps the event's items sequence into cart items. Each
// item's product id comes from item_id else id, quantity from item_quantity
// else quantity, unit price from item_price else price. The running total is
// quantity times price when quantity is known, else the price alone. The
// first item's currency serves as a currency fallback.
func deriveEventItems(event model.RawEvent) ([]model.CartItem, cartDerived) {
	var derived cartDerived

	raw, ok := event["items"].([]any)
	if !ok || len(raw) == 0 {
		return nil, derived
	}

	if m, ok := raw[0].(map[string]any); ok {
		derived.currencyFromItems = toString(m["currency"])
	}

	items := make([]model.CartItem, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			items = append(items, model.CartItem{})
			continue
		}

		var item model.CartItem
		item.ProductID = first(toString(m["item_id"]), toString(m["id"]))

		if qty, ok := firstInteger(m["item_quantity"], m["quantity"]); ok {
			item.Quantity = qty
		}
		if price, ok := firstNumber(m["item_price"], m["price"]); ok {
			item.UnitPrice = &price
			if item.Quantity > 0 {
				derived.valueFromItems += float64(item.Quantity) * price
			} else {
				derived.valueFromItems += price
			}
		}

		items = append(items, item)
	}

	return items, derived
}

func firstNumber(candidates ...any) (float64, bool) {
	for _, c := range candidates {
		if isEmptyValue(c) {
			continue
		}
		if v, ok := toNumber(c); ok {
			return v, true
		}
	}
	return 0, false
}

func firstInteger(candidates ...any) (int64, bool) {
	for _, c := range candidates {
		if isEmptyValue(c) {
			continue
		}
		if v, ok := toInteger(c); ok {
			return v, true
		}
	}
	return 0, false
}
