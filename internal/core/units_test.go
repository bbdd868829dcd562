package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvertUnits(t *testing.T) {
	tests := []struct {
		name            string
		units           string
		unitType        string
		variantUnitName string

		wantAssigned bool
		wantValue    string
		wantUnit     string
		wantScale    string // "" means null
	}{
		{
			name: "millilitres", units: "250", unitType: "ml",
			wantAssigned: true, wantValue: "0.25", wantUnit: UnitVolume, wantScale: "0.001",
		},
		{
			name: "grams", units: "50", unitType: "g",
			wantAssigned: true, wantValue: "50", wantUnit: UnitWeight, wantScale: "1",
		},
		{
			name: "kilograms", units: "2", unitType: "kg",
			wantAssigned: true, wantValue: "2000", wantUnit: UnitWeight, wantScale: "1000",
		},
		{
			name: "pounds", units: "1", unitType: "lb",
			wantAssigned: true, wantValue: "453.6", wantUnit: UnitWeight, wantScale: "453.6",
		},
		{
			name: "gallons", units: "2", unitType: "gal",
			wantAssigned: true, wantValue: "9.09218", wantUnit: UnitVolume, wantScale: "4.54609",
		},
		{
			name: "unit type is case insensitive", units: "1", unitType: " KG ",
			wantAssigned: true, wantValue: "1000", wantUnit: UnitWeight, wantScale: "1000",
		},
		{
			name: "items", units: "1", variantUnitName: "bunches",
			wantAssigned: true, wantValue: "1", wantUnit: UnitItems,
		},
		{
			name: "items with count", units: "6", variantUnitName: "eggs",
			wantAssigned: true, wantValue: "6", wantUnit: UnitItems,
		},
		{
			name: "items default to one when units not numeric", units: "a dozen", variantUnitName: "eggs",
			wantAssigned: true, wantValue: "1", wantUnit: UnitItems,
		},
		{
			name: "unit type wins over variant unit name", units: "500", unitType: "g", variantUnitName: "bags",
			wantAssigned: true, wantValue: "500", wantUnit: UnitWeight, wantScale: "1",
		},
		{
			name: "unknown unit type assigns nothing", units: "3", unitType: "bushel",
		},
		{
			name: "unknown unit type does not fall back to items", units: "3", unitType: "bushel", variantUnitName: "bags",
		},
		{
			name: "blank units assigns nothing", unitType: "kg",
		},
		{
			name: "no unit type or name assigns nothing", units: "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertUnits(tt.units, tt.unitType, tt.variantUnitName)

			if got.Assigned != tt.wantAssigned {
				t.Fatalf("Assigned = %v, want %v", got.Assigned, tt.wantAssigned)
			}
			if !tt.wantAssigned {
				return
			}
			if want := decimal.RequireFromString(tt.wantValue); !got.Value.Equal(want) {
				t.Errorf("Value = %s, want %s", got.Value, want)
			}
			if got.VariantUnit != tt.wantUnit {
				t.Errorf("VariantUnit = %q, want %q", got.VariantUnit, tt.wantUnit)
			}
			if tt.wantScale == "" {
				if got.Scale.Valid {
					t.Errorf("Scale = %s, want null", got.Scale.Decimal)
				}
				return
			}
			if !got.Scale.Valid || !got.Scale.Decimal.Equal(decimal.RequireFromString(tt.wantScale)) {
				t.Errorf("Scale = %v, want %s", got.Scale, tt.wantScale)
			}
		})
	}
}

func TestKnownUnitType(t *testing.T) {
	for _, u := range []string{"mg", "g", "kg", "oz", "lb", "t", "ml", "cl", "dl", "l", "kl", "gal", "KG"} {
		if !KnownUnitType(u) {
			t.Errorf("KnownUnitType(%q) = false, want true", u)
		}
	}
	for _, u := range []string{"", "bunch", "litre", "pt"} {
		if KnownUnitType(u) {
			t.Errorf("KnownUnitType(%q) = true, want false", u)
		}
	}
}
