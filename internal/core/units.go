package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Variant unit categories.
const (
	UnitWeight = "weight"
	UnitVolume = "volume"
	UnitItems  = "items"
)

type unitScale struct {
	scale    decimal.Decimal
	category string
}

// unitScales maps a unit abbreviation to its scale relative to the base unit
// of its category (grams for weight, litres for volume).
var unitScales = map[string]unitScale{
	"mg":  {decimal.RequireFromString("0.001"), UnitWeight},
	"g":   {decimal.NewFromInt(1), UnitWeight},
	"kg":  {decimal.NewFromInt(1000), UnitWeight},
	"oz":  {decimal.RequireFromString("28.35"), UnitWeight},
	"lb":  {decimal.RequireFromString("453.6"), UnitWeight},
	"t":   {decimal.NewFromInt(1000000), UnitWeight},
	"ml":  {decimal.RequireFromString("0.001"), UnitVolume},
	"cl":  {decimal.RequireFromString("0.01"), UnitVolume},
	"dl":  {decimal.RequireFromString("0.1"), UnitVolume},
	"l":   {decimal.NewFromInt(1), UnitVolume},
	"kl":  {decimal.NewFromInt(1000), UnitVolume},
	"gal": {decimal.RequireFromString("4.54609"), UnitVolume},
}

// UnitFields is the normalised unit information derived from a row.
type UnitFields struct {
	Assigned    bool
	Value       decimal.Decimal     // unit_value, in base units
	VariantUnit string              // weight, volume or items
	Scale       decimal.NullDecimal // variant_unit_scale; null for items
}

// KnownUnitType reports whether unitType is one of the recognised abbreviations.
func KnownUnitType(unitType string) bool {
	_, ok := unitScales[normalizeUnitType(unitType)]
	return ok
}

// ConvertUnits derives unit_value, variant_unit and variant_unit_scale from
// the units, unit_type and variant_unit_name cells.
//
// A recognised unit_type wins over variant_unit_name. An unrecognised
// unit_type assigns nothing; the validator reports it.
func ConvertUnits(units, unitType, variantUnitName string) UnitFields {
	if isBlank(units) {
		return UnitFields{}
	}

	if !isBlank(unitType) {
		us, ok := unitScales[normalizeUnitType(unitType)]
		if !ok {
			return UnitFields{}
		}
		n, ok := ParseDecimal(units)
		if !ok {
			return UnitFields{}
		}
		return UnitFields{
			Assigned:    true,
			Value:       n.Mul(us.scale),
			VariantUnit: us.category,
			Scale:       decimal.NullDecimal{Decimal: us.scale, Valid: true},
		}
	}

	if !isBlank(variantUnitName) {
		n, ok := ParseDecimal(units)
		if !ok {
			n = decimal.NewFromInt(1)
		}
		return UnitFields{
			Assigned:    true,
			Value:       n,
			VariantUnit: UnitItems,
		}
	}

	return UnitFields{}
}

func normalizeUnitType(unitType string) string {
	return strings.ToLower(strings.TrimSpace(unitType))
}
