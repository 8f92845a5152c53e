package referrals

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// BuyerInfo is the structured buyer sub-document of a referral request.
type BuyerInfo struct {
	Company      string `json:"company" validate:"required,max=200"`
	ContactName  string `json:"contactName" validate:"required,max=200"`
	ContactEmail string `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContactPhone string `json:"contactPhone,omitempty" validate:"omitempty,max=40"`
}

// CreateInput describes a new referral.
type CreateInput struct {
	OfferID            uuid.UUID  `json:"offerId" validate:"required"`
	Buyer              BuyerInfo  `json:"buyer"`
	Origin             string     `json:"origin" validate:"required,oneof=marketplace assisted campaign"`
	ManagerID          *uuid.UUID `json:"managerId,omitempty"`
	LeadRequestID      *uuid.UUID `json:"leadRequestId,omitempty"`
	ExpectedValueCents int64      `json:"expectedValueCents" validate:"gt=0"`
	Notes              string     `json:"notes,omitempty" validate:"max=4000"`
}

// AdvanceInput moves a referral forward. WonValueCents is required for WON.
type AdvanceInput struct {
	Status        string  `json:"status" validate:"required,oneof=IN_NEGOTIATION WON LOST"`
	WonValueCents *int64  `json:"wonValueCents,omitempty" validate:"omitempty,gt=0"`
	CouponCode    *string `json:"couponCode,omitempty" validate:"omitempty,max=64"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=4000"`
}

// NotesInput replaces a referral's internal notes.
type NotesInput struct {
	Notes string `json:"notes" validate:"max=4000"`
}

// ListParams configures the manager listing.
type ListParams struct {
	ManagerID *uuid.UUID
	Limit     int
	Cursor    string
}

// ListItem is a referral with its derived follow-up flag.
type ListItem struct {
	models.Referral
	FollowUpRequired bool           `json:"followUpRequired"`
	FollowUpReason   FollowUpReason `json:"followUpReason,omitempty"`
}

// ListResult is one page of referrals.
type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

// FollowUpReason explains why an open referral needs attention.
type FollowUpReason string

const (
	FollowUpAckOverdue  FollowUpReason = "ack_overdue"
	FollowUpStatusStale FollowUpReason = "status_stale"
)

// FollowUpAlert is a derived, never persisted, overdue signal.
type FollowUpAlert struct {
	ReferralID       uuid.UUID            `json:"referralId"`
	OfferID          uuid.UUID            `json:"offerId"`
	PartnerID        uuid.UUID            `json:"partnerId"`
	ManagerID        *uuid.UUID           `json:"managerId,omitempty"`
	BuyerCompany     string               `json:"buyerCompany"`
	Status           enums.ReferralStatus `json:"status"`
	Reason           FollowUpReason       `json:"reason"`
	AckDeadline      *time.Time           `json:"ackDeadline,omitempty"`
	LastStatusUpdate time.Time            `json:"lastStatusUpdate"`
	DaysSinceUpdate  int                  `json:"daysSinceUpdate"`
}

func validateStruct(input any) error {
	if err := validate.Struct(input); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			details := map[string]string{}
			for _, fieldErr := range errs {
				details[fieldErr.Namespace()] = fmt.Sprintf("failed %s", fieldErr.Tag())
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid referral input").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid referral input")
	}
	return nil
}

func (in *CreateInput) normalize() {
	in.Buyer.Company = strings.TrimSpace(in.Buyer.Company)
	in.Buyer.ContactName = strings.TrimSpace(in.Buyer.ContactName)
	in.Buyer.ContactEmail = strings.TrimSpace(in.Buyer.ContactEmail)
	in.Buyer.ContactPhone = strings.TrimSpace(in.Buyer.ContactPhone)
	in.Origin = strings.ToLower(strings.TrimSpace(in.Origin))
	in.Notes = strings.TrimSpace(in.Notes)
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
