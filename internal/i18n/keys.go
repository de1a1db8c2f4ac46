// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Users
	KeyUserNotFound  = "user.not_found"
	KeyUserSuspended = "user.suspended"
	KeyUserUpdated   = "user.updated"

	// Templates and term sheets
	KeyTemplateNotFound  = "template.not_found"
	KeyTermSheetCreated  = "term_sheet.created"
	KeyTermSheetUpdated  = "term_sheet.updated"
	KeyTermSheetDeleted  = "term_sheet.deleted"
	KeyTermSheetNotFound = "term_sheet.not_found"

	// Contracts and signing
	KeyContractCreated       = "contract.created"
	KeyContractNotFound      = "contract.not_found"
	KeySectionSigned         = "contract.section_signed"
	KeySectionAlreadySigned  = "contract.already_signed"
	KeyRoleMismatch          = "contract.role_mismatch"
	KeyContractNotOwner      = "contract.not_owner"
	KeyInvalidSignature      = "contract.invalid_signature"
	KeySigningLinkIssued     = "signing.link_issued"
	KeySigningLinkRevoked    = "signing.link_revoked"
	KeySigningTokenInvalid   = "signing.token_invalid"
	KeySigningTokenExpired   = "signing.token_expired"
	KeySigningTokenWrongRole = "signing.token_role_mismatch"
	KeySigningLinkNotFound   = "signing.link_not_found"

	// Early access
	KeyEarlyAccessApplied      = "early_access.applied"
	KeyEarlyAccessApproved     = "early_access.approved"
	KeyEarlyAccessRejected     = "early_access.rejected"
	KeyEarlyAccessNotFound     = "early_access.not_found"
	KeyEarlyAccessNotEligible  = "early_access.not_early_access"
	KeyEarlyAccessProcessed    = "early_access.already_processed"
	KeyEarlyAccessQuotaFull    = "early_access.quota_exceeded"
	KeyEarlyAccessNoQuota      = "early_access.quota_not_configured"
	KeyEarlyAccessQuotaUpdated = "early_access.quota_updated"
	KeyEarlyAccessCancelFailed = "early_access.cancel_failed"
	KeyEarlyAccessApplyTwice   = "early_access.already_applied"

	// Admin
	KeyAdminAccessDenied         = "admin.access_denied"
	KeyAdminNotificationNotFound = "admin.notification_not_found"
	KeyAdminUserStatusUpdated    = "admin.user_status_updated"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// File Upload
	KeyFileUploadSuccess  = "file.upload_success"
	KeyFileUploadFailed   = "file.upload_failed"
	KeyFileRequired       = "file.required"
	KeyStorageUnavailable = "file.storage_unavailable"

	// Rate limiting
	KeyRateLimited = "rate.limited"
)
