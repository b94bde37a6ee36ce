package billing

import "github.com/shopspring/decimal"

// ComputeBill applies the modifiers to the order in a fixed order:
//
//  1. net subtotal, with complimentary units clamped to each line's quantity
//  2. loyalty discount off the net subtotal
//  3. manual discount off the net subtotal (percent or flat amount)
//  4. combined discount, capped at the net subtotal
//  5. taxable base = subtotal - combined discount
//  6-8. tax, service charge and every custom tax, each off the same taxable base
//  9. grand total
//
// Inputs are not validated here; callers that accept modifiers from users run
// Validate first.
func ComputeBill(order Order, mods Modifiers) Bill {
	bill := Bill{
		OrderID:     order.ID,
		Lines:       make([]BillLine, 0, len(order.Lines)),
		FreeLines:   make([]FreeLine, 0, len(mods.ExtraFree)),
		CustomTaxes: make([]TaxLine, 0, len(mods.CustomTaxes)),
	}

	subtotal := decimal.Zero
	for _, line := range order.Lines {
		comp := clampInt(mods.Complimentary[line.ItemID], 0, line.Quantity)
		charged := line.Quantity - comp
		amount := line.UnitPrice.Mul(decimal.NewFromInt(int64(charged)))
		subtotal = subtotal.Add(amount)
		bill.Lines = append(bill.Lines, BillLine{
			ItemID:             line.ItemID,
			Name:               line.Name,
			Quantity:           line.Quantity,
			ComplimentaryQty:   comp,
			ChargedQty:         charged,
			UnitPrice:          line.UnitPrice,
			Amount:             amount,
			DiscountAllocation: decimal.Zero,
		})
	}

	freeValue := decimal.Zero
	for _, free := range mods.ExtraFree {
		value := free.CatalogPrice.Mul(decimal.NewFromInt(int64(free.Quantity)))
		freeValue = freeValue.Add(value)
		bill.FreeLines = append(bill.FreeLines, FreeLine{
			Name:          free.Name,
			Quantity:      free.Quantity,
			CatalogPrice:  free.CatalogPrice,
			ReportedValue: value,
			DishID:        free.DishID,
			ComboID:       free.ComboID,
		})
	}

	loyalty := percentOf(subtotal, mods.LoyaltyPercent)

	var manual decimal.Decimal
	if mods.ManualDiscount.Type == DiscountPercent {
		manual = percentOf(subtotal, mods.ManualDiscount.Value)
	} else {
		manual = mods.ManualDiscount.Value
	}

	combined := decimal.Max(decimal.Zero, decimal.Min(loyalty.Add(manual), subtotal))
	base := subtotal.Sub(combined)

	tax := decimal.Zero
	if mods.ApplyTax {
		tax = percentOf(base, TaxRate)
	}
	service := decimal.Zero
	if mods.ApplyServiceCharge {
		service = percentOf(base, ServiceChargeRate)
	}

	customTotal := decimal.Zero
	for _, ct := range mods.CustomTaxes {
		amount := percentOf(base, ct.Percentage)
		customTotal = customTotal.Add(amount)
		bill.CustomTaxes = append(bill.CustomTaxes, TaxLine{
			Name:       ct.Name,
			Percentage: ct.Percentage,
			Amount:     amount,
		})
	}

	allocateDiscount(bill.Lines, subtotal, combined)

	bill.FreeItemsValue = freeValue
	bill.Subtotal = subtotal
	bill.LoyaltyPercent = mods.LoyaltyPercent
	bill.LoyaltyDiscount = loyalty
	bill.ManualDiscount = manual
	bill.CombinedDiscount = combined
	bill.TaxableBase = base
	bill.Tax = tax
	bill.ServiceCharge = service
	bill.CustomTaxTotal = customTotal
	bill.GrandTotal = base.Add(tax).Add(service).Add(customTotal)
	return bill
}

// allocateDiscount spreads the combined discount over the charged lines in
// proportion to their amounts. Shares are rounded to 2 places and the last charged
// line takes whatever is left, so the allocations always add up to combined.
func allocateDiscount(lines []BillLine, subtotal, combined decimal.Decimal) {
	if combined.IsZero() || !subtotal.IsPositive() {
		return
	}
	last := -1
	for i := range lines {
		if lines[i].Amount.IsPositive() {
			last = i
		}
	}
	remaining := combined
	for i := range lines {
		if !lines[i].Amount.IsPositive() {
			continue
		}
		if i == last {
			lines[i].DiscountAllocation = remaining
			return
		}
		share := combined.Mul(lines[i].Amount).DivRound(subtotal, 2)
		lines[i].DiscountAllocation = share
		remaining = remaining.Sub(share)
	}
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
