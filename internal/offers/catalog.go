// Package offers is the read-only offer lookup the referral state machine
// consumes. Offers are owned by the catalog; referrals copy their terms.
package offers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
)

// Terms are the offer fields a referral needs at creation time.
type Terms struct {
	OfferID           uuid.UUID
	PartnerID         uuid.UUID
	Name              string
	Status            enums.OfferStatus
	SuccessFeePercent decimal.Decimal
	PartnerAckHours   int
	StatusUpdateDays  int
}

// Published reports whether referrals may target the offer.
func (t Terms) Published() bool {
	return t.Status == enums.OfferStatusPublished
}

// Catalog looks offers up by id.
type Catalog interface {
	Lookup(ctx context.Context, offerID uuid.UUID) (*Terms, error)
}

type catalog struct {
	db *gorm.DB
}

// NewCatalog returns a GORM-backed catalog.
func NewCatalog(db *gorm.DB) Catalog {
	return &catalog{db: db}
}

// Lookup returns NotFound when the offer does not exist.
func (c *catalog) Lookup(ctx context.Context, offerID uuid.UUID) (*Terms, error) {
	var offer models.Offer
	err := c.db.WithContext(ctx).Where("id = ?", offerID).First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	return &Terms{
		OfferID:           offer.ID,
		PartnerID:         offer.PartnerID,
		Name:              offer.Name,
		Status:            offer.Status,
		SuccessFeePercent: offer.SuccessFeePercent,
		PartnerAckHours:   offer.PartnerAckHours,
		StatusUpdateDays:  offer.StatusUpdateDays,
	}, nil
}
