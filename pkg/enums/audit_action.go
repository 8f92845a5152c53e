package enums

// AuditAction labels privileged mutations in the audit trail.
type AuditAction string

const (
	AuditActionReferralCreate      AuditAction = "referral.create"
	AuditActionReferralAcknowledge AuditAction = "referral.acknowledge"
	AuditActionReferralAdvance     AuditAction = "referral.advance"
	AuditActionReferralNotes       AuditAction = "referral.notes"
	AuditActionOfferArchive        AuditAction = "offer.archive"
	AuditActionPartnerDelete       AuditAction = "partner.delete"
	AuditActionUserRoleChange      AuditAction = "user.role_change"
)

func (a AuditAction) String() string {
	return string(a)
}

// AuditEntity names the entity type column of audit rows.
type AuditEntity string

const (
	AuditEntityReferral AuditEntity = "referral"
	AuditEntityOffer    AuditEntity = "offer"
	AuditEntityPartner  AuditEntity = "partner"
	AuditEntityUser     AuditEntity = "user"
)
