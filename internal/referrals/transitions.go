package referrals

import (
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
)

var allowedTransitions = map[enums.ReferralStatus][]enums.ReferralStatus{
	enums.ReferralStatusSent:          {enums.ReferralStatusAcked},
	enums.ReferralStatusAcked:         {enums.ReferralStatusInNegotiation, enums.ReferralStatusWon, enums.ReferralStatusLost},
	enums.ReferralStatusInNegotiation: {enums.ReferralStatusInNegotiation, enums.ReferralStatusWon, enums.ReferralStatusLost},
}

// CanTransition reports whether from → to is a legal move. Terminal states
// have no outgoing edges.
func CanTransition(from, to enums.ReferralStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func invalidTransition(from, to enums.ReferralStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "referral status transition not allowed").
		WithDetails(map[string]any{"from": from.String(), "to": to.String()})
}
