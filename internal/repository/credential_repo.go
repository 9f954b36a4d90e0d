package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepository stores one credential row per session key. It satisfies
// session.Store.
type CredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Save upserts the credential for key.
func (r *CredentialRepository) Save(ctx context.Context, key string, cred domain.Credential) error {
	row := domain.StoredCredential{
		SessionKey: key,
		Token:      cred.Token,
		Username:   cred.Username,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"token": cred.Token, "username": cred.Username, "updated_at": time.Now()}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Read returns the credential for key. Database errors are logged and reported
// as absent.
func (r *CredentialRepository) Read(ctx context.Context, key string) (domain.Credential, bool) {
	var row domain.StoredCredential
	err := r.db.WithContext(ctx).Where("session_key = ?", key).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).WithError(err).Warn("Failed to read stored credential")
		}
		return domain.Credential{}, false
	}
	return row.Credential(), true
}

// Clear deletes the credential for key. Clearing an absent key is not an error.
func (r *CredentialRepository) Clear(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("session_key = ?", key).Delete(&domain.StoredCredential{}).Error; err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// Count returns the number of stored sessions.
func (r *CredentialRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.StoredCredential{}).Count(&n).Error
	return n, err
}
