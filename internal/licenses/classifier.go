package licenses

import (
	"time"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

const (
	expiringWindowDays = 90
	day                = 24 * time.Hour
)

// DaysUntil returns the whole UTC calendar days from now to expiry. Time of
// day is ignored so a license expiring later today is 0 days away.
func DaysUntil(expiry, now time.Time) int {
	return int(dayStart(expiry).Sub(dayStart(now)) / day)
}

// Classify maps an optional expiry date to its license category.
func Classify(expiry *time.Time, now time.Time) enums.LicenseCategory {
	if expiry == nil {
		return enums.LicenseCategoryUnknown
	}
	days := DaysUntil(*expiry, now)
	switch {
	case days < 0:
		return enums.LicenseCategoryExpired
	case days <= expiringWindowDays:
		return enums.LicenseCategoryExpiring
	default:
		return enums.LicenseCategoryActive
	}
}

// NotificationThreshold returns the tightest threshold the expiry date has
// crossed. ok is false above 90 days or when no date is set.
func NotificationThreshold(expiry *time.Time, now time.Time) (enums.LicenseThreshold, bool) {
	if expiry == nil {
		return "", false
	}
	days := DaysUntil(*expiry, now)
	switch {
	case days <= 0:
		return enums.LicenseThresholdExpired, true
	case days <= 30:
		return enums.LicenseThreshold30Days, true
	case days <= 60:
		return enums.LicenseThreshold60Days, true
	case days <= 90:
		return enums.LicenseThreshold90Days, true
	default:
		return "", false
	}
}

func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
