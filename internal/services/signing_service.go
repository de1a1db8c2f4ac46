// internal/services/signing_service.go
package services

import (
	"context"
	"errors"
	"fmt"
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

// SigningService issues role-scoped signing links for signers without an
// account and applies signatures made through them.
type SigningService struct {
	db                  *gorm.DB
	config              *config.Config
	contractService     *ContractService
	notificationService *NotificationService
	now                 func() time.Time
}

type IssueSigningLinkRequest struct {
	Role        models.ContractRole `json:"role" validate:"required,contract_role"`
	SignerEmail string              `json:"signer_email" validate:"required,email"`
	SignerName  string              `json:"signer_name" validate:"required,max=255"`
}

// SigningLink is returned once at issuance; the raw token is not stored.
type SigningLink struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SigningView is what a token holder sees: the contract and only the
// sections their role may sign.
type SigningView struct {
	ContractID     uuid.UUID                `json:"contract_id"`
	Title          string                   `json:"title"`
	Description    string                   `json:"description"`
	DocumentURL    string                   `json:"document_url"`
	ContractStatus models.ContractStatus    `json:"contract_status"`
	Role           models.ContractRole      `json:"role"`
	SignerName     string                   `json:"signer_name"`
	SignerEmail    string                   `json:"signer_email"`
	ExpiresAt      time.Time                `json:"expires_at"`
	Consumed       bool                     `json:"consumed"`
	Sections       []models.ContractSection `json:"sections"`
}

func NewSigningService(db *gorm.DB, cfg *config.Config, contractService *ContractService, notificationService *NotificationService) *SigningService {
	return &SigningService{
		db:                  db,
		config:              cfg,
		contractService:     contractService,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// IssueSigningLink mints a link for one role of a contract the actor manages
// and emails it to the signer.
func (s *SigningService) IssueSigningLink(ctx context.Context, contractID uuid.UUID, req *IssueSigningLinkRequest, actor Actor) (*SigningLink, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	contract, err := s.contractService.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.contractService.authorizeManage(s.db.WithContext(ctx), contract, &actor); err != nil {
		return nil, err
	}
	if len(contract.SectionsForRole(req.Role)) == 0 {
		return nil, fmt.Errorf("%w: contract has no %s sections", ErrRoleMismatch, req.Role)
	}

	token, err := utils.GenerateSigningToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing token: %w", err)
	}

	record := &models.SigningToken{
		ContractID:  contractID,
		Role:        req.Role,
		SignerName:  strings.TrimSpace(req.SignerName),
		SignerEmail: strings.TrimSpace(req.SignerEmail),
		TokenHash:   utils.HashString(token),
		ExpiresAt:   s.now().UTC().Add(s.config.Signing.TokenTTL),
		IssuedBy:    &actor.UserID,
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to store signing token: %w", err)
		}
		return writeAuditLog(tx, &actor.UserID, "ISSUE_SIGNING_LINK", "signing_token", &record.ID, nil,
			map[string]interface{}{
				"contract_id":  contractID,
				"role":         record.Role,
				"signer_email": record.SignerEmail,
				"expires_at":   record.ExpiresAt,
			})
	})
	if err != nil {
		return nil, err
	}

	link := &SigningLink{
		ID:        record.ID,
		Token:     token,
		URL:       s.config.SigningLinkURL(token),
		ExpiresAt: record.ExpiresAt,
	}

	if s.notificationService != nil {
		go func() {
			if err := s.notificationService.SendSigningLink(contract, record, link.URL); err != nil {
				logrus.WithError(err).WithField("signing_token_id", record.ID).Warn("Failed to email signing link")
			}
		}()
	}

	return link, nil
}

// resolveToken loads an unrevoked, unexpired token by its hash. Consumed
// tokens resolve so that repeat attempts get the section's own answer.
func (s *SigningService) resolveToken(db *gorm.DB, token string) (*models.SigningToken, error) {
	if !utils.WellFormedSigningToken(token) {
		return nil, ErrTokenInvalid
	}

	var record models.SigningToken
	if err := db.Where("token_hash = ?", utils.HashString(token)).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if record.Revoked() {
		return nil, ErrTokenInvalid
	}
	if record.Expired(s.now()) {
		return nil, ErrTokenExpired
	}

	return &record, nil
}

func (s *SigningService) ResolveSigningLink(ctx context.Context, token string) (*SigningView, error) {
	record, err := s.resolveToken(s.db.WithContext(ctx), token)
	if err != nil {
		return nil, err
	}

	contract, err := s.contractService.GetContract(ctx, record.ContractID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	sections := contract.SectionsForRole(record.Role)
	if sections == nil {
		sections = []models.ContractSection{}
	}

	return &SigningView{
		ContractID:     contract.ID,
		Title:          contract.Title,
		Description:    contract.Description,
		DocumentURL:    s.contractService.DocumentURL(ctx, contract),
		ContractStatus: contract.Status,
		Role:           record.Role,
		SignerName:     record.SignerName,
		SignerEmail:    record.SignerEmail,
		ExpiresAt:      record.ExpiresAt,
		Consumed:       record.Consumed(),
		Sections:       sections,
	}, nil
}

// SignViaToken signs a section as the token's signer. With single-use links
// the token is consumed once every required section for its role is signed,
// after which it signs nothing new.
func (s *SigningService) SignViaToken(ctx context.Context, token string, sectionID uuid.UUID, signatureImage string) (*SignResult, error) {
	var result *SignResult
	var contract *models.Contract

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		record, err := s.resolveToken(tx, token)
		if err != nil {
			return err
		}
		if record.Consumed() {
			return spentTokenError(tx, record, sectionID)
		}

		signer := signerIdentity{Name: record.SignerName, Email: record.SignerEmail, Role: record.Role}
		result, contract, err = s.contractService.applySignature(tx, record.ContractID, sectionID, signer, signatureImage, nil, ErrTokenRoleMismatch)
		if err != nil {
			return err
		}

		if !s.config.Signing.SingleUse || hasPendingRequired(contract, record.Role) {
			return nil
		}

		now := s.now().UTC()
		if err := tx.Model(&models.SigningToken{}).
			Where("id = ? AND consumed_at IS NULL", record.ID).
			Update("consumed_at", now).Error; err != nil {
			return fmt.Errorf("failed to consume signing token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.contractService.afterSign(contract, result)
	return result, nil
}

// spentTokenError answers a signature attempt made with a consumed token. The
// section's own state wins so a repeated signature reads as already signed.
func spentTokenError(db *gorm.DB, record *models.SigningToken, sectionID uuid.UUID) error {
	var section models.ContractSection
	if err := db.Where("id = ? AND contract_id = ?", sectionID, record.ContractID).First(&section).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("section")
		}
		return fmt.Errorf("database error: %w", err)
	}

	switch {
	case section.Role != record.Role:
		return ErrTokenRoleMismatch
	case section.Status == models.SectionStatusSigned:
		return ErrAlreadySigned
	default:
		return ErrTokenInvalid
	}
}

func hasPendingRequired(contract *models.Contract, role models.ContractRole) bool {
	for _, section := range contract.SectionsForRole(role) {
		if section.Required && section.Status != models.SectionStatusSigned {
			return true
		}
	}
	return false
}

// RevokeSigningLink disables a link. Revoking twice is not an error.
func (s *SigningService) RevokeSigningLink(ctx context.Context, tokenID uuid.UUID, actor Actor) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var record models.SigningToken
		if err := tx.Where("id = ?", tokenID).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("signing link")
			}
			return fmt.Errorf("database error: %w", err)
		}

		contract, err := s.contractService.loadContract(tx, record.ContractID)
		if err != nil {
			return err
		}
		if err := s.contractService.authorizeManage(tx, contract, &actor); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return notFound("signing link")
			}
			return err
		}

		if record.Revoked() {
			return nil
		}

		now := s.now().UTC()
		if err := tx.Model(&models.SigningToken{}).
			Where("id = ? AND revoked_at IS NULL", tokenID).
			Update("revoked_at", now).Error; err != nil {
			return fmt.Errorf("failed to revoke signing link: %w", err)
		}

		return writeAuditLog(tx, &actor.UserID, "REVOKE_SIGNING_LINK", "signing_token", &tokenID, nil,
			map[string]interface{}{"contract_id": record.ContractID, "role": record.Role})
	})
}

// ListSigningLinks returns the links issued for a contract, newest first.
func (s *SigningService) ListSigningLinks(ctx context.Context, contractID uuid.UUID, actor Actor) ([]models.SigningToken, error) {
	contract, err := s.contractService.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.contractService.authorizeManage(s.db.WithContext(ctx), contract, &actor); err != nil {
		return nil, err
	}

	var links []models.SigningToken
	if err := s.db.WithContext(ctx).Where("contract_id = ?", contractID).
		Order("created_at DESC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch signing links: %w", err)
	}
	return links, nil
}
