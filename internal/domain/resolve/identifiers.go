package resolve

import (
	"github.com/okian/convrelay/internal/domain/model"
	"github.com/okian/convrelay/internal/domain/pii"
)

// Event-level alias chains for the built-in identifier kinds, checked in
// order at the top level and then under the nested user containers.
var identifierAliases = []struct {
	kind         string
	keys         []string
	alwaysHashed bool
}{
	{kind: model.KindHashedEmail, keys: []string{"hashedEmail", "email", "email_address"}, alwaysHashed: true},
	{kind: model.KindHashedPhone, keys: []string{"hashedPhoneNumber", "phone", "phone_number"}, alwaysHashed: true},
	{kind: model.KindMobileID, keys: []string{"mobileId"}},
	{kind: model.KindThirdPartyUserID, keys: []string{"thirdPartyUserId", "user_id"}},
	{kind: model.KindAddressInfo, keys: []string{"addressInfo", "address_info"}},
}

// Nested event sub-objects that may carry identifier fields.
var identifierContainers = []string{"user_data", "user_properties", "user"}

// resolveIdentifiers processes explicit config identifier entries first, each
// consuming its kind, then falls back to event data for the built-in kinds
// that were not consumed. Returns nil when nothing resolved so the list is
// omitted from the output.
func resolveIdentifiers(cfg model.ConfigSet, event model.RawEvent) []model.UserIdentifier {
	var ids []model.UserIdentifier
	consumed := make(map[string]bool)

	for _, spec := range cfg.UserIdentifiers {
		if spec.Name == "" || isEmptyValue(spec.Value) {
			continue
		}
		ids = append(ids, model.UserIdentifier{
			Kind:   spec.Name,
			Value:  pii.NormalizeAndHash(spec.Name, spec.Value),
			Source: cfg.IdentifierSource,
		})
		consumed[spec.Name] = true
	}

	for _, alias := range identifierAliases {
		if consumed[alias.kind] {
			continue
		}
		value := lookupEvent(event, alias.keys)
		if value == nil {
			continue
		}
		if alias.alwaysHashed || cfg.HashAllIdentifiers {
			value = pii.NormalizeAndHash(alias.kind, value)
		}
		ids = append(ids, model.UserIdentifier{
			Kind:   alias.kind,
			Value:  value,
			Source: sourceUnspecified,
		})
	}

	return ids
}

// lookupEvent finds the first non-empty value for any key, top level first,
// then inside the known user sub-objects.
func lookupEvent(event model.RawEvent, keys []string) any {
	for _, k := range keys {
		if v, ok := event[k]; ok && !isEmptyValue(v) {
			return v
		}
	}
	for _, container := range identifierContainers {
		nested, ok := event[container].(map[string]any)
		if !ok {
			continue
		}
		for _, k := range keys {
			if v, ok := nested[k]; ok && !isEmptyValue(v) {
				return v
			}
		}
	}
	return nil
}
