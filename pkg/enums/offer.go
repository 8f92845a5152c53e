package enums

import "fmt"

// OfferStatus maps to the offer_status enum in Postgres.
type OfferStatus string

const (
	OfferStatusDraft     OfferStatus = "draft"
	OfferStatusPublished OfferStatus = "published"
	OfferStatusArchived  OfferStatus = "archived"
)

var validOfferStatuses = []OfferStatus{
	OfferStatusDraft,
	OfferStatusPublished,
	OfferStatusArchived,
}

func (s OfferStatus) String() string {
	return string(s)
}

func (s OfferStatus) IsValid() bool {
	for _, candidate := range validOfferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOfferStatus converts raw input into OfferStatus.
func ParseOfferStatus(value string) (OfferStatus, error) {
	for _, candidate := range validOfferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer status %q", value)
}

// PartnerStatus tracks partner onboarding approval.
type PartnerStatus string

const (
	PartnerStatusPending  PartnerStatus = "pending"
	PartnerStatusApproved PartnerStatus = "approved"
	PartnerStatusRejected PartnerStatus = "rejected"
)

func (s PartnerStatus) String() string {
	return string(s)
}
