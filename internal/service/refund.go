package service

import "time"

type RefundSlab struct {
	HoursBefore   float64 `json:"hours_before"`
	ChargePercent float64 `json:"charge_percent"`
	Description   string  `json:"description"`
}

// RefundPolicy is ordered from the most lenient slab to the strictest.
var RefundPolicy = []RefundSlab{
	{HoursBefore: 48, ChargePercent: 10, Description: "More than 48 hours before departure - 10% cancellation charge"},
	{HoursBefore: 24, ChargePercent: 25, Description: "24-48 hours before departure - 25% cancellation charge"},
	{HoursBefore: 12, ChargePercent: 50, Description: "12-24 hours before departure - 50% cancellation charge"},
	{HoursBefore: 6, ChargePercent: 75, Description: "6-12 hours before departure - 75% cancellation charge"},
	{HoursBefore: 0, ChargePercent: 100, Description: "Less than 6 hours before departure - No refund"},
}

const noRefundPolicy = "No refund available - too close to departure time"

type RefundQuote struct {
	TotalFare            float64 `json:"total_fare"`
	HoursBeforeDeparture float64 `json:"hours_before_departure"`
	ChargePercent        float64 `json:"charge_percent"`
	Charge               float64 `json:"cancellation_charge"`
	RefundAmount         float64 `json:"refund_amount"`
	Policy               string  `json:"policy"`
}

// CalculateRefund picks the first slab whose lower bound is strictly exceeded
// by the hours left before departure. Nothing is refunded once departed.
func CalculateRefund(totalFare float64, departure, now time.Time) RefundQuote {
	hours := departure.Sub(now).Hours()
	quote := RefundQuote{
		TotalFare:            totalFare,
		HoursBeforeDeparture: roundMoney(hours),
		ChargePercent:        100,
		Charge:               roundMoney(totalFare),
		Policy:               noRefundPolicy,
	}
	if hours <= 0 {
		return quote
	}

	for _, slab := range RefundPolicy {
		if hours > slab.HoursBefore {
			charge := roundMoney(totalFare * slab.ChargePercent / 100)
			quote.ChargePercent = slab.ChargePercent
			quote.Charge = charge
			quote.RefundAmount = roundMoney(totalFare - charge)
			quote.Policy = slab.Description
			return quote
		}
	}
	return quote
}
