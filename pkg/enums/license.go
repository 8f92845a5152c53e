package enums

import "fmt"

// LicenseCategory is the derived health of a license expiry date. It is never
// persisted.
type LicenseCategory string

const (
	LicenseCategoryActive   LicenseCategory = "ACTIVE"
	LicenseCategoryExpiring LicenseCategory = "EXPIRING"
	LicenseCategoryExpired  LicenseCategory = "EXPIRED"
	LicenseCategoryUnknown  LicenseCategory = "UNKNOWN"
)

// String implements fmt.Stringer.
func (l LicenseCategory) String() string {
	return string(l)
}

// LicenseThreshold maps to the license_threshold enum in Postgres.
type LicenseThreshold string

const (
	LicenseThreshold90Days  LicenseThreshold = "90_DAYS"
	LicenseThreshold60Days  LicenseThreshold = "60_DAYS"
	LicenseThreshold30Days  LicenseThreshold = "30_DAYS"
	LicenseThresholdExpired LicenseThreshold = "EXPIRED"
)

var validLicenseThresholds = []LicenseThreshold{
	LicenseThreshold90Days,
	LicenseThreshold60Days,
	LicenseThreshold30Days,
	LicenseThresholdExpired,
}

// String implements fmt.Stringer.
func (l LicenseThreshold) String() string {
	return string(l)
}

// Days returns the day boundary the threshold represents. EXPIRED is 0.
func (l LicenseThreshold) Days() int {
	switch l {
	case LicenseThreshold90Days:
		return 90
	case LicenseThreshold60Days:
		return 60
	case LicenseThreshold30Days:
		return 30
	default:
		return 0
	}
}

// IsValid reports whether the value matches the canonical license_threshold enum.
func (l LicenseThreshold) IsValid() bool {
	for _, candidate := range validLicenseThresholds {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLicenseThreshold converts raw input into LicenseThreshold.
func ParseLicenseThreshold(value string) (LicenseThreshold, error) {
	for _, candidate := range validLicenseThresholds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid license threshold %q", value)
}

// LicenseHolder identifies which table a license record belongs to.
type LicenseHolder string

const (
	LicenseHolderBuyer   LicenseHolder = "buyer"
	LicenseHolderPartner LicenseHolder = "partner"
)

func (l LicenseHolder) String() string {
	return string(l)
}
