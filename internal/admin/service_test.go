package admin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/internal/audit"
	"github.com/angelmondragon/partnerhub-backend/pkg/db"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/migrate"
)

var adminNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*service, *gorm.DB, access.Actor) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migrate.AutoMigrateModels(conn))

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(db.FromGorm(conn), conn, auditSvc)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return adminNow }
	return impl, conn, access.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func auditRows(t *testing.T, conn *gorm.DB, entityID uuid.UUID) []models.AuditLog {
	t.Helper()
	var rows []models.AuditLog
	require.NoError(t, conn.Where("entity_id = ?", entityID).Find(&rows).Error)
	return rows
}

func TestArchiveOffer(t *testing.T) {
	svc, conn, admin := newTestService(t)
	ctx := context.Background()
	offer := models.Offer{ID: uuid.New(), PartnerID: uuid.New(), Name: "CRM", Status: enums.OfferStatusPublished, SuccessFeePercent: decimal.NewFromInt(10)}
	require.NoError(t, conn.Create(&offer).Error)

	archived, err := svc.ArchiveOffer(ctx, admin, offer.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OfferStatusArchived, archived.Status)

	var stored models.Offer
	require.NoError(t, conn.First(&stored, "id = ?", offer.ID).Error)
	require.Equal(t, enums.OfferStatusArchived, stored.Status)

	rows := auditRows(t, conn, offer.ID)
	require.Len(t, rows, 1)
	require.Equal(t, enums.AuditActionOfferArchive, rows[0].Action)
	require.JSONEq(t, `{"status":"published"}`, string(rows[0].OldValue))
	require.JSONEq(t, `{"status":"archived"}`, string(rows[0].NewValue))

	_, err = svc.ArchiveOffer(ctx, admin, offer.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	_, err = svc.ArchiveOffer(ctx, admin, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	manager := access.Actor{UserID: uuid.New(), Role: enums.UserRoleManager}
	_, err = svc.ArchiveOffer(ctx, manager, offer.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
}

func TestDeletePartnerIsSoft(t *testing.T) {
	svc, conn, admin := newTestService(t)
	ctx := context.Background()
	partner := models.Partner{ID: uuid.New(), CompanyName: "Revenda", Status: enums.PartnerStatusApproved}
	require.NoError(t, conn.Create(&partner).Error)

	require.NoError(t, svc.DeletePartner(ctx, admin, partner.ID))

	var count int64
	require.NoError(t, conn.Model(&models.Partner{}).Where("id = ?", partner.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)
	var kept models.Partner
	require.NoError(t, conn.Unscoped().First(&kept, "id = ?", partner.ID).Error)
	require.True(t, kept.DeletedAt.Valid)

	rows := auditRows(t, conn, partner.ID)
	require.Len(t, rows, 1)
	require.Equal(t, enums.AuditActionPartnerDelete, rows[0].Action)
	require.Contains(t, string(rows[0].OldValue), "Revenda")
	require.Nil(t, rows[0].NewValue)

	err := svc.DeletePartner(ctx, admin, partner.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestChangeUserRole(t *testing.T) {
	svc, conn, admin := newTestService(t)
	ctx := context.Background()
	partner := models.Partner{ID: uuid.New(), CompanyName: "Revenda", Status: enums.PartnerStatusApproved}
	require.NoError(t, conn.Create(&partner).Error)
	user := models.User{ID: uuid.New(), Email: "joao@example.com", Name: "Joao", Role: enums.UserRoleBuyer}
	require.NoError(t, conn.Create(&user).Error)

	_, err := svc.ChangeUserRole(ctx, admin, user.ID, RoleInput{Role: "parceiro"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	missing := uuid.New()
	_, err = svc.ChangeUserRole(ctx, admin, user.ID, RoleInput{Role: "parceiro", PartnerID: &missing})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.ChangeUserRole(ctx, admin, user.ID, RoleInput{Role: "superuser"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.ChangeUserRole(ctx, admin, admin.UserID, RoleInput{Role: "comprador"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.ChangeUserRole(ctx, admin, uuid.New(), RoleInput{Role: "comprador"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	partnerID := partner.ID
	dto, err := svc.ChangeUserRole(ctx, admin, user.ID, RoleInput{Role: "parceiro", PartnerID: &partnerID})
	require.NoError(t, err)
	require.Equal(t, enums.UserRolePartner, dto.Role)
	require.Equal(t, partner.ID, *dto.PartnerID)

	dto, err = svc.ChangeUserRole(ctx, admin, user.ID, RoleInput{Role: "gerente_contas", PartnerID: &partnerID})
	require.NoError(t, err)
	require.Nil(t, dto.PartnerID)

	var stored models.User
	require.NoError(t, conn.First(&stored, "id = ?", user.ID).Error)
	require.Equal(t, enums.UserRoleManager, stored.Role)
	require.Nil(t, stored.PartnerID)

	rows := auditRows(t, conn, user.ID)
	require.Len(t, rows, 2)
}

type failingAudit struct{}

func (failingAudit) WithTx(*gorm.DB) audit.Recorder { return failingAudit{} }

func (failingAudit) Record(context.Context, audit.Entry) error {
	return errors.New("audit insert failed")
}

func TestAuditFailureRollsBackAdminMutation(t *testing.T) {
	svc, conn, admin := newTestService(t)
	svc.audit = failingAudit{}
	offer := models.Offer{ID: uuid.New(), PartnerID: uuid.New(), Name: "CRM", Status: enums.OfferStatusPublished, SuccessFeePercent: decimal.NewFromInt(10)}
	require.NoError(t, conn.Create(&offer).Error)

	_, err := svc.ArchiveOffer(context.Background(), admin, offer.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

	var stored models.Offer
	require.NoError(t, conn.First(&stored, "id = ?", offer.ID).Error)
	require.Equal(t, enums.OfferStatusPublished, stored.Status)
}
