package wishlist

import (
	"bytes"
	"encoding/json"

	"github.com/angelmondragon/storefront/pkg/types"
)

// Normalize turns any of the wishlist body shapes the API has been seen to
// return into a list of product ids:
//
//	[...]
//	{"products": [...]}
//	{"wishlist": [...]}
//
// Elements may be ids (string or number) or product objects carrying id, _id
// or productId. Anything else yields an empty, non-nil list.
func Normalize(raw json.RawMessage) []string {
	ids := []string{}
	items, ok := elements(raw)
	if !ok {
		return ids
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id, ok := elementID(item)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func elements(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false
	}

	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, false
		}
		return items, true
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, false
	}
	for _, key := range []string{"products", "wishlist"} {
		inner, ok := wrapped[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &items); err != nil {
			items = nil
			continue
		}
		return items, true
	}
	return nil, false
}

func elementID(item json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 {
		return "", false
	}
	if trimmed[0] != '{' {
		id, ok := types.ParseIDValue(trimmed)
		return id.String(), ok
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", false
	}
	for _, key := range []string{"id", "_id", "productId"} {
		if value, ok := obj[key]; ok {
			if id, ok := types.ParseIDValue(value); ok {
				return id.String(), true
			}
		}
	}
	// {"product": {...}} entries reference the product one level down
	if nested, ok := obj["product"]; ok {
		return elementID(nested)
	}
	return "", false
}
