package enums

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeLicenseExpiry NotificationType = "license_expiry"
	NotificationTypeFollowUp      NotificationType = "referral_follow_up"
	NotificationTypeSystem        NotificationType = "system_announcement"
)

func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypeLicenseExpiry, NotificationTypeFollowUp, NotificationTypeSystem:
		return true
	}
	return false
}
