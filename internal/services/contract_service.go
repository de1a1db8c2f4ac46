// internal/services/contract_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/estate-backend/internal/config"
	"github.com/javajoker/estate-backend/internal/database"
	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/utils"
)

type ContractService struct {
	db                  *gorm.DB
	config              *config.Config
	storageService      *StorageService
	notificationService *NotificationService
	now                 func() time.Time
}

type SectionInput struct {
	Title       string              `json:"title" validate:"required,max=255"`
	Description string              `json:"description"`
	PageNumber  int                 `json:"page_number" validate:"omitempty,min=1"`
	Role        models.ContractRole `json:"role" validate:"required,contract_role"`
	Required    *bool               `json:"required,omitempty"` // defaults to true
}

type CreateContractRequest struct {
	Title       string         `json:"title" validate:"required,max=255"`
	Description string         `json:"description"`
	DocumentURL string         `json:"document_url" validate:"omitempty,url"`
	CCEmails    []string       `json:"cc_emails" validate:"omitempty,dive,email"`
	Sections    []SectionInput `json:"sections" validate:"required,min=1,dive"`
}

type SignSectionRequest struct {
	SignerName     string              `json:"signer_name" validate:"required,max=255"`
	SignerEmail    string              `json:"signer_email" validate:"required,email"`
	SignatureImage string              `json:"signature_image" validate:"required"`
	Role           models.ContractRole `json:"role" validate:"required,contract_role"`
}

// SignResult carries the signed section and the contract status after the
// signature was applied.
type SignResult struct {
	Section        models.ContractSection `json:"section"`
	ContractStatus models.ContractStatus  `json:"contract_status"`
}

// Actor is the authenticated account behind a contract operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func (a *Actor) owns(contract *models.Contract) bool {
	return a.Role == models.UserRoleAdmin || contract.CreatedBy == a.UserID
}

type ContractFilter struct {
	utils.PaginationParams
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
}

func NewContractService(db *gorm.DB, cfg *config.Config, storageService *StorageService, notificationService *NotificationService) *ContractService {
	return &ContractService{
		db:                  db,
		config:              cfg,
		storageService:      storageService,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

func (s *ContractService) CreateContract(ctx context.Context, creatorID uuid.UUID, req *CreateContractRequest) (*models.Contract, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	contract := &models.Contract{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DocumentURL: req.DocumentURL,
		CreatedBy:   creatorID,
		CCEmails:    req.CCEmails,
	}

	for _, in := range req.Sections {
		page := in.PageNumber
		if page == 0 {
			page = 1
		}
		required := in.Required == nil || *in.Required
		contract.Sections = append(contract.Sections, models.ContractSection{
			Title:       in.Title,
			Description: in.Description,
			PageNumber:  page,
			Role:        in.Role,
			Required:    required,
			Status:      models.SectionStatusPending,
		})
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(contract).Error; err != nil {
			return fmt.Errorf("failed to create contract: %w", err)
		}
		return writeAuditLog(tx, &creatorID, "CREATE_CONTRACT", "contract", &contract.ID, nil,
			map[string]interface{}{"title": contract.Title, "sections": len(contract.Sections)})
	})
	if err != nil {
		return nil, err
	}

	contract.RefreshStatus()
	return contract, nil
}

func (s *ContractService) GetContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	return s.loadContract(s.db.WithContext(ctx), contractID)
}

// GetContractFor returns the contract if the actor authored it, is an admin,
// or takes part in it. Anyone else gets a not-found error.
func (s *ContractService) GetContractFor(ctx context.Context, contractID uuid.UUID, actor Actor) (*models.Contract, error) {
	db := s.db.WithContext(ctx)
	contract, err := s.loadContract(db, contractID)
	if err != nil {
		return nil, err
	}
	if actor.owns(contract) {
		return contract, nil
	}

	p, err := s.participationOf(db, contract, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !p.any() {
		return nil, notFound("contract")
	}
	return contract, nil
}

// authorizeManage admits the author and admins. Participants learn the
// contract exists but may not manage it.
func (s *ContractService) authorizeManage(db *gorm.DB, contract *models.Contract, actor *Actor) error {
	if actor.owns(contract) {
		return nil
	}

	p, err := s.participationOf(db, contract, actor.UserID)
	if err != nil {
		return err
	}
	if p.any() {
		return ErrNotContractOwner
	}
	return notFound("contract")
}

// authorizeSigner lets the author and admins sign and limits invited
// accounts to the roles their links were issued for.
func (s *ContractService) authorizeSigner(db *gorm.DB, contractID uuid.UUID, actor *Actor, role models.ContractRole) error {
	contract, err := s.loadContract(db, contractID)
	if err != nil {
		return err
	}
	if actor.owns(contract) {
		return nil
	}

	p, err := s.participationOf(db, contract, actor.UserID)
	if err != nil {
		return err
	}
	if !p.any() {
		return notFound("contract")
	}
	if !p.roles[role] {
		return ErrRoleMismatch
	}
	return nil
}

// participation is how an account that did not author a contract relates to it.
type participation struct {
	roles  map[models.ContractRole]bool // roles of unrevoked links sent to the account's email
	signed bool
}

func (p *participation) any() bool {
	return p.signed || len(p.roles) > 0
}

func (s *ContractService) participationOf(db *gorm.DB, contract *models.Contract, userID uuid.UUID) (*participation, error) {
	p := &participation{roles: map[models.ContractRole]bool{}}

	var user models.User
	if err := db.Select("id", "email").Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	for _, section := range contract.Sections {
		if section.Signature != nil && strings.EqualFold(section.Signature.SignerEmail, user.Email) {
			p.signed = true
		}
	}

	var roles []string
	if err := db.Model(&models.SigningToken{}).
		Where("contract_id = ? AND LOWER(signer_email) = ? AND revoked_at IS NULL", contract.ID, strings.ToLower(user.Email)).
		Pluck("role", &roles).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch signing links: %w", err)
	}
	for _, role := range roles {
		p.roles[models.ContractRole(role)] = true
	}
	return p, nil
}

func (s *ContractService) loadContract(db *gorm.DB, contractID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := db.Preload("Sections", func(db *gorm.DB) *gorm.DB {
		return db.Order("page_number ASC, created_at ASC")
	}).Where("id = ?", contractID).First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("contract")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	contract.RefreshStatus()
	return &contract, nil
}

// ListContracts pages through contracts. The status filter is expressed over
// sections since contract status is never stored.
func (s *ContractService) ListContracts(ctx context.Context, filter ContractFilter) ([]models.Contract, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Contract{})

	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Status != "" {
		query = whereContractStatus(query, models.ContractStatus(strings.ToUpper(filter.Status)))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count contracts: %w", err)
	}

	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "updated_at", "title"})
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var contracts []models.Contract
	if err := query.Preload("Sections").Find(&contracts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch contracts: %w", err)
	}

	for i := range contracts {
		contracts[i].RefreshStatus()
	}

	return contracts, total, nil
}

const (
	requiredSignedSQL  = "EXISTS (SELECT 1 FROM contract_sections cs WHERE cs.contract_id = contracts.id AND cs.deleted_at IS NULL AND cs.required = ? AND cs.status = ?)"
	requiredPendingSQL = "EXISTS (SELECT 1 FROM contract_sections cs WHERE cs.contract_id = contracts.id AND cs.deleted_at IS NULL AND cs.required = ? AND cs.status <> ?)"
)

// whereContractStatus mirrors models.AggregateStatus in SQL.
func whereContractStatus(query *gorm.DB, status models.ContractStatus) *gorm.DB {
	signed := models.SectionStatusSigned
	switch status {
	case models.ContractStatusFullyExecuted:
		return query.Where(requiredSignedSQL, true, signed).Where("NOT "+requiredPendingSQL, true, signed)
	case models.ContractStatusInProgress:
		return query.Where(requiredSignedSQL, true, signed).Where(requiredPendingSQL, true, signed)
	case models.ContractStatusPending:
		return query.Where("NOT "+requiredSignedSQL, true, signed)
	default:
		return query.Where("1 = 0")
	}
}

// AttachDocument uploads the contract document to object storage.
func (s *ContractService) AttachDocument(ctx context.Context, contractID uuid.UUID, actor Actor, file multipart.File, header *multipart.FileHeader) (*models.Contract, error) {
	if s.storageService == nil {
		return nil, ErrStorageUnavailable
	}

	contract, err := s.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeManage(s.db.WithContext(ctx), contract, &actor); err != nil {
		return nil, err
	}

	result, err := s.storageService.UploadFile(ctx, file, header, s.storageService.GetDefaultUploadOptions("contracts"))
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	previousKey := contract.DocumentKey
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Model(&models.Contract{}).Where("id = ?", contractID).Updates(map[string]interface{}{
			"document_url": result.URL,
			"document_key": result.Key,
		}).Error; err != nil {
			return fmt.Errorf("failed to update contract document: %w", err)
		}
		return writeAuditLog(tx, &actor.UserID, "ATTACH_DOCUMENT", "contract", &contractID, nil,
			map[string]interface{}{"key": result.Key, "size": result.Size})
	})
	if err != nil {
		return nil, err
	}

	if previousKey != "" && previousKey != result.Key {
		go func() {
			if err := s.storageService.DeleteFile(context.Background(), previousKey); err != nil {
				logrus.WithError(err).WithField("key", previousKey).Warn("Failed to delete replaced document")
			}
		}()
	}

	contract.DocumentURL = result.URL
	contract.DocumentKey = result.Key
	return contract, nil
}

// DocumentURL returns a time-limited link when the document lives in object
// storage, else the stored URL.
func (s *ContractService) DocumentURL(ctx context.Context, contract *models.Contract) string {
	if contract.DocumentKey == "" || s.storageService == nil || !s.storageService.Configured() {
		return contract.DocumentURL
	}

	url, err := s.storageService.GeneratePresignedURL(ctx, contract.DocumentKey, s.config.Signing.DocumentTTL)
	if err != nil {
		logrus.WithError(err).WithField("contract_id", contract.ID).Warn("Failed to presign document URL")
		return contract.DocumentURL
	}
	return url
}

// SignSection applies a signature for an authenticated signer acting in
// req.Role. A nil actor skips the access check and is recorded as the system.
func (s *ContractService) SignSection(ctx context.Context, contractID, sectionID uuid.UUID, req *SignSectionRequest, actor *Actor) (*SignResult, error) {
	signer := signerIdentity{
		Name:  strings.TrimSpace(req.SignerName),
		Email: strings.TrimSpace(req.SignerEmail),
		Role:  req.Role,
	}

	var result *SignResult
	var contract *models.Contract
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var actorID *uuid.UUID
		if actor != nil {
			if err := s.authorizeSigner(tx, contractID, actor, req.Role); err != nil {
				return err
			}
			actorID = &actor.UserID
		}

		var err error
		result, contract, err = s.applySignature(tx, contractID, sectionID, signer, req.SignatureImage, actorID, ErrRoleMismatch)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterSign(contract, result)
	return result, nil
}

type signerIdentity struct {
	Name  string
	Email string
	Role  models.ContractRole
}

// applySignature runs the guard-then-write on tx. roleErr is returned when
// the section belongs to a different role than the signer.
func (s *ContractService) applySignature(tx *gorm.DB, contractID, sectionID uuid.UUID, signer signerIdentity, signatureImage string, actorID *uuid.UUID, roleErr error) (*SignResult, *models.Contract, error) {
	var section models.ContractSection
	if err := tx.Where("id = ? AND contract_id = ?", sectionID, contractID).First(&section).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("section")
		}
		return nil, nil, fmt.Errorf("database error: %w", err)
	}

	if _, err := utils.DecodeSignatureImage(signatureImage); err != nil {
		return nil, nil, ErrInvalidSignature
	}

	if section.Role != signer.Role {
		return nil, nil, roleErr
	}

	if section.Status == models.SectionStatusSigned {
		return nil, nil, ErrAlreadySigned
	}

	record := &models.SignatureRecord{
		SignerName:    signer.Name,
		SignerEmail:   signer.Email,
		SignerRole:    signer.Role,
		SignatureData: signatureImage,
		SignedAt:      s.now().UTC(),
	}

	// Only one of two concurrent signers can move the row out of PENDING.
	res := tx.Model(&models.ContractSection{}).
		Where("id = ? AND status = ?", sectionID, models.SectionStatusPending).
		Updates(map[string]interface{}{
			"status":     models.SectionStatusSigned,
			"signature":  record,
			"updated_at": record.SignedAt,
		})
	if res.Error != nil {
		return nil, nil, fmt.Errorf("failed to sign section: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil, ErrAlreadySigned
	}

	section.Status = models.SectionStatusSigned
	section.Signature = record

	if err := writeAuditLog(tx, actorID, "SIGN_SECTION", "contract_section", &section.ID,
		map[string]interface{}{"status": models.SectionStatusPending},
		map[string]interface{}{
			"status":       models.SectionStatusSigned,
			"contract_id":  contractID,
			"signer_email": signer.Email,
			"role":         signer.Role,
		}); err != nil {
		return nil, nil, err
	}

	contract, err := s.loadContract(tx, contractID)
	if err != nil {
		return nil, nil, err
	}

	return &SignResult{Section: section, ContractStatus: contract.Status}, contract, nil
}

func (s *ContractService) afterSign(contract *models.Contract, result *SignResult) {
	logrus.WithFields(logrus.Fields{
		"contract_id":     contract.ID,
		"section_id":      result.Section.ID,
		"role":            result.Section.Role,
		"contract_status": result.ContractStatus,
	}).Info("Contract section signed")

	if result.ContractStatus != models.ContractStatusFullyExecuted || s.notificationService == nil {
		return
	}

	// Optional sections never change the aggregate, so only the signature
	// that completed the contract sends the notice.
	if !result.Section.Required {
		return
	}

	recipients := executedRecipients(contract)
	go func() {
		if err := s.notificationService.SendContractExecuted(contract, recipients); err != nil {
			logrus.WithError(err).WithField("contract_id", contract.ID).Warn("Failed to send execution notice")
		}
	}()
}

// executedRecipients is the CC list plus every signer, deduplicated.
func executedRecipients(contract *models.Contract) []string {
	seen := map[string]bool{}
	var out []string
	add := func(email string) {
		key := strings.ToLower(strings.TrimSpace(email))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(email))
	}

	for _, e := range contract.CCEmails {
		add(e)
	}
	for _, section := range contract.Sections {
		if section.Signature != nil {
			add(section.Signature.SignerEmail)
		}
	}
	return out
}
