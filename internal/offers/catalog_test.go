package offers

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/migrate"
)

func TestLookup(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.AutoMigrateModels(conn))

	offer := models.Offer{
		ID:                uuid.New(),
		PartnerID:         uuid.New(),
		Name:              "ERP Cloud",
		Status:            enums.OfferStatusPublished,
		SuccessFeePercent: decimal.RequireFromString("12.5"),
		PartnerAckHours:   48,
		StatusUpdateDays:  7,
	}
	require.NoError(t, conn.Create(&offer).Error)

	cat := NewCatalog(conn)
	terms, err := cat.Lookup(context.Background(), offer.ID)
	require.NoError(t, err)
	require.True(t, terms.Published())
	require.True(t, terms.SuccessFeePercent.Equal(decimal.RequireFromString("12.5")))
	require.Equal(t, 48, terms.PartnerAckHours)

	_, err = cat.Lookup(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
