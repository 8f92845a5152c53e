package enums

import "fmt"

// ReferralStatus maps to the referral_status enum in Postgres.
type ReferralStatus string

const (
	ReferralStatusSent          ReferralStatus = "SENT"
	ReferralStatusAcked         ReferralStatus = "ACKED"
	ReferralStatusInNegotiation ReferralStatus = "IN_NEGOTIATION"
	ReferralStatusWon           ReferralStatus = "WON"
	ReferralStatusLost          ReferralStatus = "LOST"
)

var validReferralStatuses = []ReferralStatus{
	ReferralStatusSent,
	ReferralStatusAcked,
	ReferralStatusInNegotiation,
	ReferralStatusWon,
	ReferralStatusLost,
}

// OpenReferralStatuses lists the statuses that still await a decision.
var OpenReferralStatuses = []ReferralStatus{
	ReferralStatusSent,
	ReferralStatusAcked,
	ReferralStatusInNegotiation,
}

// String implements fmt.Stringer.
func (s ReferralStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical referral_status enum.
func (s ReferralStatus) IsValid() bool {
	for _, candidate := range validReferralStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave this status.
func (s ReferralStatus) IsTerminal() bool {
	return s == ReferralStatusWon || s == ReferralStatusLost
}

// ParseReferralStatus converts raw input into ReferralStatus.
func ParseReferralStatus(value string) (ReferralStatus, error) {
	for _, candidate := range validReferralStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid referral status %q", value)
}

// ReferralOrigin records how a referral entered the funnel.
type ReferralOrigin string

const (
	ReferralOriginMarketplace ReferralOrigin = "marketplace"
	ReferralOriginAssisted    ReferralOrigin = "assisted"
	ReferralOriginCampaign    ReferralOrigin = "campaign"
)

var validReferralOrigins = []ReferralOrigin{
	ReferralOriginMarketplace,
	ReferralOriginAssisted,
	ReferralOriginCampaign,
}

func (o ReferralOrigin) String() string {
	return string(o)
}

func (o ReferralOrigin) IsValid() bool {
	for _, candidate := range validReferralOrigins {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseReferralOrigin converts raw input into ReferralOrigin.
func ParseReferralOrigin(value string) (ReferralOrigin, error) {
	for _, candidate := range validReferralOrigins {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid referral origin %q", value)
}
