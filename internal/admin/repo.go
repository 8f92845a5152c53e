package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

var errNotFound = errors.New("record not found")

// catalogRepo mutates offers and partners for admin operations.
type catalogRepo struct {
	db *gorm.DB
}

func newCatalogRepo(db *gorm.DB) *catalogRepo {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) withTx(tx *gorm.DB) *catalogRepo {
	return &catalogRepo{db: tx}
}

func (r *catalogRepo) findOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound
	}
	return &offer, err
}

func (r *catalogRepo) setOfferStatus(ctx context.Context, id uuid.UUID, status enums.OfferStatus, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": at}).Error
}

func (r *catalogRepo) findPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).First(&partner, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound
	}
	return &partner, err
}

// softDeletePartner stamps deleted_at; referral history keeps the row.
func (r *catalogRepo) softDeletePartner(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Partner{}, "id = ?", id).Error
}
