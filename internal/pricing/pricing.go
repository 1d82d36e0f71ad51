// Package pricing computes the price snapshot stored on a booking.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ServiceFeeRate = decimal.RequireFromString("0.15")
	TaxRate        = decimal.RequireFromString("0.08")
)

// Currency minor unit: cents.
const minorUnitPlaces = 2

var (
	ErrNegativeRate    = errors.New("hourly rate must not be negative")
	ErrInvalidDuration = errors.New("duration must be at least one hour")
)

// Quote is the price breakdown for one booking.
// Total always equals Subtotal + ServiceFee + Tax.
type Quote struct {
	HourlyRate decimal.Decimal
	Subtotal   decimal.Decimal
	ServiceFee decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
}

// Calculate prices durationHours of work at hourlyRate.
// Fee and tax are rounded to cents individually so the sum is exact.
func Calculate(hourlyRate decimal.Decimal, durationHours int) (Quote, error) {
	if hourlyRate.IsNegative() {
		return Quote{}, ErrNegativeRate
	}
	if durationHours < 1 {
		return Quote{}, ErrInvalidDuration
	}

	rate := hourlyRate.Round(minorUnitPlaces)
	subtotal := rate.Mul(decimal.NewFromInt(int64(durationHours))).Round(minorUnitPlaces)
	fee := subtotal.Mul(ServiceFeeRate).Round(minorUnitPlaces)
	tax := subtotal.Mul(TaxRate).Round(minorUnitPlaces)

	return Quote{
		HourlyRate: rate,
		Subtotal:   subtotal,
		ServiceFee: fee,
		Tax:        tax,
		Total:      subtotal.Add(fee).Add(tax),
	}, nil
}
