package repository

import (
	"context"
	"fmt"

	"cardvault/models"
	"cardvault/service"
)

// gamenightRepository implements the GamenightRepository interface over the store
type gamenightRepository struct {
	tx *tx
}

// Add appends a link
func (r *gamenightRepository) Add(ctx context.Context, link models.GamenightLink) error {
	if err := r.tx.check(); err != nil {
		return err
	}
	previous := r.tx.store.gamenights
	links := make([]models.GamenightLink, 0, len(previous)+1)
	links = append(links, previous...)
	r.tx.store.gamenights = append(links, link)
	r.tx.onUndo(func() { r.tx.store.gamenights = previous })
	return nil
}

// List returns links in insertion order
func (r *gamenightRepository) List(ctx context.Context) ([]models.GamenightLink, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	return append([]models.GamenightLink{}, r.tx.store.gamenights...), nil
}

// RemoveAt removes the link at index
func (r *gamenightRepository) RemoveAt(ctx context.Context, index int) (models.GamenightLink, error) {
	if err := r.tx.check(); err != nil {
		return models.GamenightLink{}, err
	}
	previous := r.tx.store.gamenights
	if index < 0 || index >= len(previous) {
		return models.GamenightLink{}, fmt.Errorf("%w: %d", service.ErrInvalidIndex, index)
	}
	removed := previous[index]
	links := make([]models.GamenightLink, 0, len(previous)-1)
	links = append(links, previous[:index]...)
	r.tx.store.gamenights = append(links, previous[index+1:]...)
	r.tx.onUndo(func() { r.tx.store.gamenights = previous })
	return removed, nil
}

// settingsRepository implements the SettingsRepository interface over the store
type settingsRepository struct {
	tx *tx
}

// Get returns the current settings
func (r *settingsRepository) Get(ctx context.Context) (models.Settings, error) {
	if err := r.tx.check(); err != nil {
		return models.Settings{}, err
	}
	return r.tx.store.settings, nil
}

// Update replaces the settings
func (r *settingsRepository) Update(ctx context.Context, settings models.Settings) error {
	if err := r.tx.check(); err != nil {
		return err
	}
	if settings.StartingBalance < 0 {
		return fmt.Errorf("%w: starting balance cannot be negative", service.ErrInvalidAmount)
	}
	previous := r.tx.store.settings
	r.tx.store.settings = settings
	r.tx.onUndo(func() { r.tx.store.settings = previous })
	return nil
}
