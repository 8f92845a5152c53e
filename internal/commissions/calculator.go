// Package commissions holds the pure money arithmetic for referrals. All
// amounts are integer cents and percentage application truncates toward zero
// so the marketplace never overstates what a partner owes.
package commissions

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// Commission returns floor(valueCents × feePercent / 100) for non-negative
// inputs. Negative products truncate toward zero.
func Commission(valueCents int64, feePercent decimal.Decimal) int64 {
	return decimal.NewFromInt(valueCents).Mul(feePercent).Shift(-2).Truncate(0).IntPart()
}

// ValidateFeePercent rejects fees outside [0, 100].
func ValidateFeePercent(feePercent decimal.Decimal) error {
	if feePercent.IsNegative() || feePercent.GreaterThan(hundred) {
		return fmt.Errorf("fee percent %s outside [0, 100]", feePercent.String())
	}
	return nil
}

// Discount describes how a coupon reduced a total.
type Discount struct {
	GrossCents    int64
	DiscountCents int64
	NetCents      int64
}

// ApplyCoupon computes the coupon-adjusted total. Percentage coupons truncate
// the discount; fixed coupons are capped so the net never drops below zero.
// A nil coupon leaves the total unchanged.
func ApplyCoupon(totalCents int64, coupon *models.Coupon) Discount {
	result := Discount{GrossCents: totalCents, NetCents: totalCents}
	if coupon == nil || totalCents <= 0 {
		return result
	}

	var off int64
	switch {
	case coupon.PercentOff != nil:
		off = Commission(totalCents, *coupon.PercentOff)
	case coupon.AmountOffCents != nil:
		off = *coupon.AmountOffCents
	}
	if off < 0 {
		off = 0
	}
	if off > totalCents {
		off = totalCents
	}

	result.DiscountCents = off
	result.NetCents = totalCents - off
	return result
}

// Realized returns the commission on a won deal after any coupon discount.
func Realized(wonValueCents int64, feePercent decimal.Decimal, coupon *models.Coupon) (int64, Discount) {
	d := ApplyCoupon(wonValueCents, coupon)
	return Commission(d.NetCents, feePercent), d
}

// ValidateCoupon checks that a coupon can be redeemed at now.
func ValidateCoupon(coupon models.Coupon, now time.Time) error {
	if !coupon.Usable(now) {
		return fmt.Errorf("coupon %s is inactive or expired", coupon.Code)
	}
	if coupon.PercentOff == nil && coupon.AmountOffCents == nil {
		return fmt.Errorf("coupon %s has no discount", coupon.Code)
	}
	if coupon.PercentOff != nil {
		if err := ValidateFeePercent(*coupon.PercentOff); err != nil {
			return fmt.Errorf("coupon %s: %w", coupon.Code, err)
		}
	}
	return nil
}
