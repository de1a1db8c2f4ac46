// internal/termsheet/store.go
package termsheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/estate-backend/internal/templates"
)

var ErrNotFound = errors.New("term sheet not found")

// TermSheet is a draft agreement: a template choice, its filled fields and
// up to two signature images.
type TermSheet struct {
	ID              string            `json:"id"`
	TemplateID      string            `json:"templateId"`
	Name            string            `json:"name"`
	PropertyAddress string            `json:"propertyAddress"`
	PartyOne        string            `json:"partyOne"`
	PartyTwo        string            `json:"partyTwo"`
	Date            string            `json:"date"`
	Terms           string            `json:"terms"`
	Data            map[string]string `json:"data,omitempty"`
	SignatureOne    string            `json:"signatureOne,omitempty"`
	SignatureTwo    string            `json:"signatureTwo,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

type Draft struct {
	TemplateID      string            `json:"templateId" validate:"required,template_id"`
	Name            string            `json:"name" validate:"required"`
	PropertyAddress string            `json:"propertyAddress" validate:"required"`
	PartyOne        string            `json:"partyOne" validate:"required"`
	PartyTwo        string            `json:"partyTwo" validate:"required"`
	Date            string            `json:"date"`
	Terms           string            `json:"terms"`
	Data            map[string]string `json:"data"`
	SignatureOne    string            `json:"signatureOne" validate:"omitempty,signature_image"`
	SignatureTwo    string            `json:"signatureTwo" validate:"omitempty,signature_image"`
}

// Patch lists the top-level fields to replace. Nil fields are left as is;
// Data replaces the whole mapping.
type Patch struct {
	TemplateID      *string           `json:"templateId" validate:"omitempty,template_id"`
	Name            *string           `json:"name"`
	PropertyAddress *string           `json:"propertyAddress"`
	PartyOne        *string           `json:"partyOne"`
	PartyTwo        *string           `json:"partyTwo"`
	Date            *string           `json:"date"`
	Terms           *string           `json:"terms"`
	Data            map[string]string `json:"data"`
	SignatureOne    *string           `json:"signatureOne" validate:"omitempty,signature_image"`
	SignatureTwo    *string           `json:"signatureTwo" validate:"omitempty,signature_image"`
}

type Repository interface {
	Create(ctx context.Context, draft Draft) (*TermSheet, error)
	Get(ctx context.Context, id string) (*TermSheet, error)
	Update(ctx context.Context, id string, patch Patch) (*TermSheet, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]TermSheet, error)
}

// Store keeps one owner's term sheets as a JSON array under a single key.
// Every call loads the whole collection and every write saves it back, so
// concurrent writers to the same key are last-write-wins.
type Store struct {
	kv  KV
	key string
	now func() time.Time
}

var _ Repository = (*Store)(nil)

func NewStore(kv KV, key string) *Store {
	return &Store{kv: kv, key: key, now: time.Now}
}

func (s *Store) Key() string { return s.key }

func (s *Store) load(ctx context.Context) ([]TermSheet, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load term sheets: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []TermSheet{}, nil
	}

	var sheets []TermSheet
	if err := json.Unmarshal(raw, &sheets); err != nil {
		logrus.WithFields(logrus.Fields{"key": s.key, "error": err}).Error("Corrupt term sheet collection")
		return nil, fmt.Errorf("failed to decode term sheets: %w", err)
	}
	return sheets, nil
}

func (s *Store) save(ctx context.Context, sheets []TermSheet) error {
	raw, err := json.Marshal(sheets)
	if err != nil {
		return fmt.Errorf("failed to encode term sheets: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("failed to save term sheets: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, draft Draft) (*TermSheet, error) {
	sheets, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	ts := TermSheet{
		ID:              uuid.NewString(),
		TemplateID:      draft.TemplateID,
		Name:            draft.Name,
		PropertyAddress: draft.PropertyAddress,
		PartyOne:        draft.PartyOne,
		PartyTwo:        draft.PartyTwo,
		Date:            draft.Date,
		Terms:           draft.Terms,
		Data:            copyData(draft.Data),
		SignatureOne:    draft.SignatureOne,
		SignatureTwo:    draft.SignatureTwo,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.save(ctx, append(sheets, ts)); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (s *Store) Get(ctx context.Context, id string) (*TermSheet, error) {
	sheets, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sheets {
		if sheets[i].ID == id {
			return &sheets[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) Update(ctx context.Context, id string, patch Patch) (*TermSheet, error) {
	sheets, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range sheets {
		if sheets[i].ID != id {
			continue
		}
		patch.apply(&sheets[i])
		if err := s.save(ctx, sheets); err != nil {
			return nil, err
		}
		updated := sheets[i]
		return &updated, nil
	}
	return nil, ErrNotFound
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	sheets, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	for i := range sheets {
		if sheets[i].ID == id {
			sheets = append(sheets[:i], sheets[i+1:]...)
			return true, s.save(ctx, sheets)
		}
	}
	return false, nil
}

// List returns all records in creation order.
func (s *Store) List(ctx context.Context) ([]TermSheet, error) {
	return s.load(ctx)
}

func (p Patch) apply(ts *TermSheet) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&ts.TemplateID, p.TemplateID)
	set(&ts.Name, p.Name)
	set(&ts.PropertyAddress, p.PropertyAddress)
	set(&ts.PartyOne, p.PartyOne)
	set(&ts.PartyTwo, p.PartyTwo)
	set(&ts.Date, p.Date)
	set(&ts.Terms, p.Terms)
	set(&ts.SignatureOne, p.SignatureOne)
	set(&ts.SignatureTwo, p.SignatureTwo)
	if p.Data != nil {
		ts.Data = copyData(p.Data)
	}
}

// Fields merges Data with the top-level fields. Non-blank top-level values
// take precedence.
func (ts *TermSheet) Fields() map[string]string {
	fields := copyData(ts.Data)
	if fields == nil {
		fields = make(map[string]string, 5)
	}
	top := map[string]string{
		"partyOne":        ts.PartyOne,
		"partyTwo":        ts.PartyTwo,
		"propertyAddress": ts.PropertyAddress,
		"date":            ts.Date,
		"terms":           ts.Terms,
	}
	for k, v := range top {
		if strings.TrimSpace(v) != "" {
			fields[k] = v
		}
	}
	return fields
}

// RenderDocument renders the sheet's template with its merged fields.
func RenderDocument(ts *TermSheet) (string, error) {
	return templates.Render(templates.TemplateID(ts.TemplateID), ts.Fields())
}

func copyData(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
