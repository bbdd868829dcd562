package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DefaultField names a column whose value a supplier may default.
type DefaultField string

const (
	DefaultPrice            DefaultField = "price"
	DefaultOnHand           DefaultField = "on_hand"
	DefaultOnDemand         DefaultField = "on_demand"
	DefaultTaxCategory      DefaultField = "tax_category"
	DefaultShippingCategory DefaultField = "shipping_category"
	DefaultDescription      DefaultField = "description"
	DefaultSKU              DefaultField = "sku"
)

// defaultableFields is the allow-list of defaults per import target.
var defaultableFields = map[ImportTarget][]DefaultField{
	TargetCatalog: {
		DefaultPrice, DefaultOnHand, DefaultOnDemand,
		DefaultTaxCategory, DefaultShippingCategory,
		DefaultDescription, DefaultSKU,
	},
	TargetInventory: {DefaultPrice, DefaultOnHand, DefaultOnDemand},
}

// DefaultMode decides when a default replaces the spreadsheet value.
type DefaultMode string

const (
	ModeOverwriteAll   DefaultMode = "overwrite_all"
	ModeOverwriteEmpty DefaultMode = "overwrite_empty"
)

// DefaultRule is one configured default.
type DefaultRule struct {
	Active bool        `json:"active"`
	Mode   DefaultMode `json:"mode"`
	Value  string      `json:"value"`
}

// UnmarshalJSON accepts strings, numbers, booleans or null as the value.
func (r *DefaultRule) UnmarshalJSON(data []byte) error {
	var aux struct {
		Active json.RawMessage `json:"active"`
		Mode   DefaultMode     `json:"mode"`
		Value  json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	active, err := rawScalar(aux.Active)
	if err != nil {
		return fmt.Errorf("active: %w", err)
	}
	value, err := rawScalar(aux.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	r.Mode = aux.Mode
	r.Value = value
	r.Active, _ = ParseBool(active)
	return nil
}

// rawScalar renders a JSON scalar as the text a user would have typed.
func rawScalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	if raw[0] == '{' || raw[0] == '[' {
		return "", fmt.Errorf("expected a scalar, got %s", raw)
	}
	return string(raw), nil
}

// SupplierSettings is the per-supplier import configuration.
type SupplierSettings struct {
	ImportInto     ImportTarget                 `json:"import_into"`
	Defaults       map[DefaultField]DefaultRule `json:"defaults"`
	ResetAllAbsent bool                         `json:"reset_all_absent"`
}

// Target returns the import target, defaulting to the catalog.
func (s SupplierSettings) Target() ImportTarget {
	if s.ImportInto.Valid() {
		return s.ImportInto
	}
	return TargetCatalog
}

// ActiveDefault returns the rule for field when it is active and allowed
// for the supplier's import target.
func (s SupplierSettings) ActiveDefault(field DefaultField) (DefaultRule, bool) {
	rule, ok := s.Defaults[field]
	if !ok || !rule.Active {
		return DefaultRule{}, false
	}
	for _, f := range defaultableFields[s.Target()] {
		if f == field {
			return rule, true
		}
	}
	return DefaultRule{}, false
}

// Settings is the caller-supplied configuration for one run.
type Settings struct {
	Suppliers map[int64]SupplierSettings `json:"settings"`
	Start     int                        `json:"start,omitempty"`
	End       int                        `json:"end,omitempty"`
}

// ReadSettings decodes settings JSON.
func ReadSettings(r io.Reader) (*Settings, error) {
	var s Settings
	dec := json.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("decode import settings: %w", err)
	}
	for id, ss := range s.Suppliers {
		if ss.ImportInto != "" && !ss.ImportInto.Valid() {
			return nil, fmt.Errorf("supplier %d: unknown import_into %q", id, ss.ImportInto)
		}
		for field, rule := range ss.Defaults {
			if rule.Mode != "" && rule.Mode != ModeOverwriteAll && rule.Mode != ModeOverwriteEmpty {
				return nil, fmt.Errorf("supplier %d: default %s: unknown mode %q", id, field, rule.Mode)
			}
		}
	}
	return &s, nil
}

// ParseSettings decodes settings from a string; blank input means none.
func ParseSettings(s string) (*Settings, error) {
	if strings.TrimSpace(s) == "" {
		return &Settings{}, nil
	}
	return ReadSettings(strings.NewReader(s))
}

// Empty reports whether no supplier is configured.
func (s *Settings) Empty() bool {
	return s == nil || len(s.Suppliers) == 0
}

// For returns the settings of one supplier; unknown suppliers get zero settings.
func (s *Settings) For(supplierID int64) SupplierSettings {
	if s == nil {
		return SupplierSettings{}
	}
	return s.Suppliers[supplierID]
}
