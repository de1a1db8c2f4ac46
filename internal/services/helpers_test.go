package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/estate-backend/internal/config"
	"github.com/javajoker/estate-backend/internal/database"
	"github.com/javajoker/estate-backend/internal/models"
)

const testSignature = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "localhost", Port: "8080"},
		Frontend: config.FrontendConfig{BaseURL: "https://app.example.test"},
		Signing: config.SigningConfig{
			TokenTTL:    7 * 24 * time.Hour,
			SingleUse:   true,
			LinkPath:    "/sign",
			DocumentTTL: 15 * time.Minute,
		},
		EarlyAccess: config.EarlyAccessConfig{EnforceQuotaCap: true},
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

func createUser(t *testing.T, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()
	name := "user_" + uuid.NewString()[:8]
	user := &models.User{
		Username:     name,
		Email:        name + "@example.test",
		PasswordHash: "x",
		Role:         role,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// recordingMailer captures sent mail for assertions on async notifications.
type recordingMailer struct {
	mu   sync.Mutex
	sent chan sentMail
	fail error
}

type sentMail struct {
	To      []string
	Subject string
	Body    string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan sentMail, 16)}
}

func (m *recordingMailer) Send(to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent <- sentMail{To: to, Subject: subject, Body: body}
	return nil
}

func (m *recordingMailer) wait(t *testing.T) sentMail {
	t.Helper()
	select {
	case mail := <-m.sent:
		return mail
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail")
		return sentMail{}
	}
}

type fakeCanceler struct {
	mu        sync.Mutex
	cancelled []string
	err       error
}

func (f *fakeCanceler) CancelSubscription(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

var errStripeDown = errors.New("stripe unavailable")

func seedQuota(t *testing.T, db *gorm.DB, role models.UserRole, current, max int) {
	t.Helper()
	require.NoError(t, db.Create(&models.EarlyAccessQuota{
		Role:         role,
		CurrentCount: current,
		MaxCount:     max,
		IsActive:     true,
	}).Error)
}

func quotaCount(t *testing.T, db *gorm.DB, role models.UserRole) int {
	t.Helper()
	var quota models.EarlyAccessQuota
	require.NoError(t, db.Where("role = ?", role).First(&quota).Error)
	return quota.CurrentCount
}
