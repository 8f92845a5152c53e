package referrals

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// FollowUpFor returns the follow-up reason for one referral, or "" when none
// applies. A SENT referral past its ack deadline wins over staleness.
func FollowUpFor(ref models.Referral, statusUpdateDays int, now time.Time) FollowUpReason {
	if !ref.IsOpen() {
		return ""
	}
	if ref.Status == enums.ReferralStatusSent && ref.AckDeadline != nil && now.After(*ref.AckDeadline) {
		return FollowUpAckOverdue
	}
	if statusUpdateDays > 0 && now.Sub(ref.LastStatusUpdate) > time.Duration(statusUpdateDays)*24*time.Hour {
		return FollowUpStatusStale
	}
	return ""
}

// DetectOverdue derives follow-up alerts for open referrals. updateDays maps
// offer id to the offer's status update cadence.
func DetectOverdue(now time.Time, refs []models.Referral, updateDays map[uuid.UUID]int) []FollowUpAlert {
	alerts := make([]FollowUpAlert, 0)
	for _, ref := range refs {
		reason := FollowUpFor(ref, updateDays[ref.OfferID], now)
		if reason == "" {
			continue
		}
		alerts = append(alerts, FollowUpAlert{
			ReferralID:       ref.ID,
			OfferID:          ref.OfferID,
			PartnerID:        ref.PartnerID,
			ManagerID:        ref.ManagerID,
			BuyerCompany:     ref.BuyerCompany,
			Status:           ref.Status,
			Reason:           reason,
			AckDeadline:      ref.AckDeadline,
			LastStatusUpdate: ref.LastStatusUpdate,
			DaysSinceUpdate:  int(now.Sub(ref.LastStatusUpdate) / (24 * time.Hour)),
		})
	}
	return alerts
}
