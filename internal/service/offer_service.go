package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/repository"
	"gorm.io/gorm"
)

type OfferValidation struct {
	Valid       bool    `json:"valid"`
	Code        string  `json:"code"`
	Amount      float64 `json:"amount"`
	Discount    float64 `json:"discount"`
	FinalAmount float64 `json:"final_amount"`
	Reason      string  `json:"reason"`
}

type ApplicableOffer struct {
	Offer    models.Offer `json:"offer"`
	Discount float64      `json:"discount"`
}

// OfferValidator never consumes usage; redemption happens when a booking commits.
type OfferValidator interface {
	Validate(ctx context.Context, code string, amount float64) (*OfferValidation, error)
	ListActive(ctx context.Context) ([]models.Offer, error)
	ListApplicable(ctx context.Context, amount float64) ([]ApplicableOffer, error)
}

type offerValidator struct {
	offers repository.OfferRepository
	now    func() time.Time
}

func NewOfferValidator(offers repository.OfferRepository, opts ...Option) OfferValidator {
	o := buildOptions(opts)
	return &offerValidator{offers: offers, now: o.now}
}

func (v *offerValidator) Validate(ctx context.Context, code string, amount float64) (*OfferValidation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		res := invalidOffer(code, amount, "invalid offer code")
		return &res, nil
	}

	offer, err := v.offers.FindByCode(ctx, nil, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		res := invalidOffer(code, amount, "invalid offer code")
		return &res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load offer: %w", err)
	}

	res := EvaluateOffer(offer, amount, v.now())
	return &res, nil
}

func (v *offerValidator) ListActive(ctx context.Context) ([]models.Offer, error) {
	return v.offers.ListActive(ctx, v.now())
}

func (v *offerValidator) ListApplicable(ctx context.Context, amount float64) ([]ApplicableOffer, error) {
	if amount <= 0 {
		return nil, validation("amount must be greater than zero")
	}
	offers, err := v.offers.ListActive(ctx, v.now())
	if err != nil {
		return nil, err
	}

	out := make([]ApplicableOffer, 0, len(offers))
	for _, o := range offers {
		if amount < o.MinBookingAmount {
			continue
		}
		out = append(out, ApplicableOffer{Offer: o, Discount: ComputeDiscount(&o, amount)})
	}
	return out, nil
}

// EvaluateOffer runs the eligibility checks in order; the first failure wins.
func EvaluateOffer(offer *models.Offer, amount float64, now time.Time) OfferValidation {
	switch {
	case !offer.IsActive:
		return invalidOffer(offer.Code, amount, "offer is not active")
	case now.Before(offer.ValidFrom) || now.After(offer.ValidTo):
		return invalidOffer(offer.Code, amount, "offer has expired or is not yet valid")
	case offer.TimesUsed >= offer.UsageLimit:
		return invalidOffer(offer.Code, amount, "offer usage limit reached")
	case amount < offer.MinBookingAmount:
		return invalidOffer(offer.Code, amount, fmt.Sprintf("minimum booking amount of %.2f required", offer.MinBookingAmount))
	}

	discount := ComputeDiscount(offer, amount)
	return OfferValidation{
		Valid:       true,
		Code:        offer.Code,
		Amount:      amount,
		Discount:    discount,
		FinalAmount: roundMoney(amount - discount),
		Reason:      fmt.Sprintf("offer applied, you save %.2f", discount),
	}
}

// ComputeDiscount caps both percentage and flat discounts at MaxDiscount and
// never returns more than the amount itself.
func ComputeDiscount(offer *models.Offer, amount float64) float64 {
	var d float64
	switch offer.DiscountType {
	case models.DiscountPercentage:
		d = amount * offer.DiscountValue / 100
	case models.DiscountFlat:
		d = offer.DiscountValue
	}
	d = math.Min(d, offer.MaxDiscount)
	d = math.Min(d, amount)
	return roundMoney(math.Max(d, 0))
}

func invalidOffer(code string, amount float64, reason string) OfferValidation {
	return OfferValidation{Code: code, Amount: amount, FinalAmount: amount, Reason: reason}
}
