package models

// All lists every persisted model, in dependency order. Used by the SQLite
// auto-migration path; Postgres schemas come from goose migrations.
func All() []any {
	return []any{
		&Partner{},
		&Buyer{},
		&User{},
		&Offer{},
		&Coupon{},
		&Referral{},
		&LicenseNotification{},
		&AuditLog{},
		&Notification{},
	}
}
