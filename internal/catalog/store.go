// Package catalog manages the assistant catalog: local store access, the
// local/remote reconciler, lifecycle operations, and the periodic sync loop.
package catalog

import (
	"errors"
	"fmt"

	"github.com/mkowalczyk/switchboard/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a local assistant does not exist.
var ErrNotFound = errors.New("catalog: assistant not found")

// List returns all local assistants for an owner, oldest first.
func List(db *gorm.DB, ownerID string) ([]models.Assistant, error) {
	var out []models.Assistant
	q := db.Order("id ASC")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return out, nil
}

// Get returns a local assistant by id.
func Get(db *gorm.DB, id uint) (*models.Assistant, error) {
	var a models.Assistant
	if err := db.First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: get %d: %w", id, err)
	}
	return &a, nil
}

// GetByRemoteID returns the local assistant carrying the given remote id.
func GetByRemoteID(db *gorm.DB, remoteID string) (*models.Assistant, error) {
	if remoteID == "" {
		return nil, ErrNotFound
	}
	var a models.Assistant
	if err := db.Where("remote_id = ?", remoteID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: get by remote id %s: %w", remoteID, err)
	}
	return &a, nil
}

// Save creates or updates a local assistant.
func Save(db *gorm.DB, a *models.Assistant) error {
	if err := db.Save(a).Error; err != nil {
		return fmt.Errorf("catalog: save %q: %w", a.Name, err)
	}
	return nil
}

// DeleteLocal removes a local assistant row.
func DeleteLocal(db *gorm.DB, id uint) error {
	result := db.Delete(&models.Assistant{}, id)
	if result.Error != nil {
		return fmt.Errorf("catalog: delete %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
