package service

import (
	"math"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
)

const (
	TaxRate       = 0.05
	ServiceCharge = 25.0
)

type FareBreakdown struct {
	BaseFare            float64 `json:"base_fare"`
	Tax                 float64 `json:"tax"`
	ServiceCharge       float64 `json:"service_charge"`
	TotalBeforeDiscount float64 `json:"total_before_discount"`
	Discount            float64 `json:"discount"`
	FinalAmount         float64 `json:"final_amount"`
}

func ComputeBaseFare(schedule *models.Schedule, seatCount int) float64 {
	return roundMoney(schedule.BaseFare * float64(seatCount))
}

func ComputeTax(baseFare float64) float64 {
	return roundMoney(baseFare * TaxRate)
}

// QuoteFare prices seatCount seats on a schedule with no discount applied.
func QuoteFare(schedule *models.Schedule, seatCount int) FareBreakdown {
	base := ComputeBaseFare(schedule, seatCount)
	tax := ComputeTax(base)
	total := roundMoney(base + tax + ServiceCharge)
	return FareBreakdown{
		BaseFare:            base,
		Tax:                 tax,
		ServiceCharge:       ServiceCharge,
		TotalBeforeDiscount: total,
		FinalAmount:         total,
	}
}

// WithDiscount applies a discount clamped to [0, TotalBeforeDiscount].
func (f FareBreakdown) WithDiscount(discount float64) FareBreakdown {
	discount = math.Min(math.Max(discount, 0), f.TotalBeforeDiscount)
	f.Discount = roundMoney(discount)
	f.FinalAmount = roundMoney(f.TotalBeforeDiscount - f.Discount)
	return f
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
