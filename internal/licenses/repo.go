package licenses

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// Holder is a buyer or partner row carrying a license expiry date.
type Holder struct {
	EntityType  enums.LicenseHolder `json:"entityType"`
	EntityID    uuid.UUID           `json:"entityId"`
	Name        string              `json:"name"`
	LicenseType *string             `json:"licenseType,omitempty"`
	ExpiryDate  time.Time           `json:"expiryDate"`
}

// Repository reads license holders and owns the license_notifications table.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListHolders returns active buyers and approved partners with an expiry date,
// ordered by expiry ascending. A non-nil before keeps only dates strictly
// earlier than it.
func (r *Repository) ListHolders(ctx context.Context, before *time.Time) ([]Holder, error) {
	var buyers []models.Buyer
	buyerQuery := r.db.WithContext(ctx).
		Where("active = ? AND license_expiry_date IS NOT NULL", true)
	if before != nil {
		buyerQuery = buyerQuery.Where("license_expiry_date < ?", before.UTC())
	}
	if err := buyerQuery.Find(&buyers).Error; err != nil {
		return nil, err
	}

	var partners []models.Partner
	partnerQuery := r.db.WithContext(ctx).
		Where("status = ? AND license_expiry_date IS NOT NULL", enums.PartnerStatusApproved)
	if before != nil {
		partnerQuery = partnerQuery.Where("license_expiry_date < ?", before.UTC())
	}
	if err := partnerQuery.Find(&partners).Error; err != nil {
		return nil, err
	}

	holders := make([]Holder, 0, len(buyers)+len(partners))
	for _, b := range buyers {
		holders = append(holders, Holder{
			EntityType:  enums.LicenseHolderBuyer,
			EntityID:    b.ID,
			Name:        b.CompanyName,
			LicenseType: b.LicenseType,
			ExpiryDate:  b.LicenseExpiryDate.UTC(),
		})
	}
	for _, p := range partners {
		holders = append(holders, Holder{
			EntityType:  enums.LicenseHolderPartner,
			EntityID:    p.ID,
			Name:        p.CompanyName,
			LicenseType: p.LicenseType,
			ExpiryDate:  p.LicenseExpiryDate.UTC(),
		})
	}
	sort.SliceStable(holders, func(i, j int) bool {
		if holders[i].ExpiryDate.Equal(holders[j].ExpiryDate) {
			return holders[i].Name < holders[j].Name
		}
		return holders[i].ExpiryDate.Before(holders[j].ExpiryDate)
	})
	return holders, nil
}

// NotificationExists reports whether the (entity, threshold, expiry) triple
// was already delivered.
func (r *Repository) NotificationExists(ctx context.Context, entityID uuid.UUID, threshold enums.LicenseThreshold, expiry time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LicenseNotification{}).
		Where("entity_id = ? AND threshold = ? AND license_expiry_date = ?", entityID, threshold, expiry.UTC()).
		Count(&count).Error
	return count > 0, err
}

// InsertNotification records a delivered notice. The unique triple surfaces
// concurrent duplicates as a constraint error.
func (r *Repository) InsertNotification(ctx context.Context, row *models.LicenseNotification) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.LicenseExpiryDate = row.LicenseExpiryDate.UTC()
	row.SentAt = row.SentAt.UTC()
	return r.db.WithContext(ctx).Create(row).Error
}
