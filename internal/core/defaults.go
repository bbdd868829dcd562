package core

// applyDefaults applies the supplier's active default rules to e.
//
// overwrite_all always replaces the spreadsheet value; any other mode only
// fills a blank cell. A blank on_hand cell counts as blank even though
// validation already coerced it to zero.
func applyDefaults(e *Entry, ss SupplierSettings) error {
	for _, field := range defaultableFields[ss.Target()] {
		rule, ok := ss.ActiveDefault(field)
		if !ok {
			continue
		}
		if rule.Mode != ModeOverwriteAll && !e.fieldBlank(field) {
			continue
		}
		if err := e.setDefault(field, rule.Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *Entry) fieldBlank(field DefaultField) bool {
	a := e.Attrs
	switch field {
	case DefaultPrice:
		return isBlank(a.Price)
	case DefaultOnHand:
		return e.OnHandNil || isBlank(a.OnHand)
	case DefaultOnDemand:
		return isBlank(a.OnDemand)
	case DefaultTaxCategory:
		return isBlank(a.TaxCategory)
	case DefaultShippingCategory:
		return isBlank(a.ShippingCategory)
	case DefaultDescription:
		return isBlank(a.Description)
	case DefaultSKU:
		return isBlank(a.SKU)
	}
	return false
}

func (e *Entry) setDefault(field DefaultField, value string) error {
	bad := ValidationError{Field: string(field), Value: value, Code: CodeInvalid, Message: msgBadDefault}

	switch field {
	case DefaultPrice:
		d, ok := ParseDecimal(value)
		if !ok || d.IsNegative() {
			return bad
		}
		e.Price.Decimal, e.Price.Valid = d, true
		e.Attrs.Price = value
	case DefaultOnHand:
		n, ok := ParseInt(value)
		if !ok {
			return bad
		}
		e.OnHand, e.OnHandNil = n, false
		e.Attrs.OnHand = value
	case DefaultOnDemand:
		b, ok := ParseBool(value)
		if !ok {
			return bad
		}
		e.OnDemand = b
		e.Attrs.OnDemand = value
	case DefaultTaxCategory:
		id, ok := ParseID(value)
		if !ok {
			return bad
		}
		e.TaxCategoryID = id
	case DefaultShippingCategory:
		id, ok := ParseID(value)
		if !ok {
			return bad
		}
		e.ShippingCategoryID = id
	case DefaultDescription:
		e.Attrs.Description = value
	case DefaultSKU:
		e.Attrs.SKU = value
	}
	return nil
}
