// Package validators holds the cross-field rules every writer applies
// before touching the store. Functions are pure and return the first failure.
package validators

import (
	"encoding/json"
	"strings"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/models/entities"
)

// Bag column names
const (
	BagInsurance      = "insurance_requirements"
	BagDataProtection = "data_protection_clauses"
	BagCustomFields   = "custom_fields"
	BagDataInventory  = "data_inventory"
)

// textKeys maps the bags that accept free text to the key the text is wrapped under
var textKeys = map[string]string{
	BagInsurance:      "requirements",
	BagDataProtection: "clauses",
}

// CoerceBag turns a decoded request value into a JSON object.
//
//   - nil and "" become {}
//   - an object is kept as is
//   - a string holding a JSON object is decoded
//   - other text is wrapped as {"requirements"|"clauses": text, "type": "text"}
//     for the text bags and becomes {} for custom_fields and data_inventory
func CoerceBag(field string, v interface{}) (entities.JSONMap, error) {
	switch val := v.(type) {
	case nil:
		return entities.JSONMap{}, nil
	case entities.JSONMap:
		return val, nil
	case map[string]interface{}:
		return entities.JSONMap(val), nil
	case json.RawMessage:
		return CoerceBag(field, decodeRaw(val))
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return entities.JSONMap{}, nil
		}
		var obj map[string]interface{}
		if strings.HasPrefix(s, "{") && json.Unmarshal([]byte(s), &obj) == nil {
			return entities.JSONMap(obj), nil
		}
		if key, ok := textKeys[field]; ok {
			return entities.JSONMap{key: val, "type": "text"}, nil
		}
		return entities.JSONMap{}, nil
	default:
		if _, ok := textKeys[field]; ok {
			return nil, apperrors.Validation(field, "must be an object or text")
		}
		return entities.JSONMap{}, nil
	}
}

func decodeRaw(raw json.RawMessage) interface{} {
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw)
	}
	return out
}

// Bags is the set of opaque JSON columns on a contract write
type Bags struct {
	InsuranceRequirements interface{} `json:"insurance_requirements"`
	DataProtectionClauses interface{} `json:"data_protection_clauses"`
	CustomFields          interface{} `json:"custom_fields"`
	DataInventory         interface{} `json:"data_inventory"`
}

// ApplyBags coerces every bag present in set onto c. Absent keys leave
// the current value alone.
func ApplyBags(c *entities.Contract, b Bags, set map[string]bool) error {
	targets := []struct {
		field string
		value interface{}
		dst   *entities.JSONMap
	}{
		{BagInsurance, b.InsuranceRequirements, &c.InsuranceRequirements},
		{BagDataProtection, b.DataProtectionClauses, &c.DataProtectionClauses},
		{BagCustomFields, b.CustomFields, &c.CustomFields},
		{BagDataInventory, b.DataInventory, &c.DataInventory},
	}
	for _, t := range targets {
		if set != nil && !set[t.field] {
			continue
		}
		m, err := CoerceBag(t.field, t.value)
		if err != nil {
			return err
		}
		*t.dst = m
	}
	return nil
}
