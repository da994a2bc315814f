package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"cardvault/clock"
	"cardvault/models"
)

type communityService struct {
	uowFactory UnitOfWorkFactory
	clock      clock.Clock
}

// NewCommunityService creates a new community service
func NewCommunityService(uowFactory UnitOfWorkFactory, clk clock.Clock) CommunityService {
	return &communityService{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

func (s *communityService) AddGamenightLink(ctx context.Context, rawURL, title string, addedBy models.AccountID) (*models.GamenightLink, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLink, rawURL)
	}

	link := models.GamenightLink{
		URL:     rawURL,
		Title:   strings.TrimSpace(title),
		AddedBy: addedBy,
		AddedAt: s.clock.Now(),
	}
	err = withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		return uow.GamenightRepository().Add(ctx, link)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add gamenight link: %w", err)
	}
	return &link, nil
}

func (s *communityService) ListGamenightLinks(ctx context.Context) ([]models.GamenightLink, error) {
	var links []models.GamenightLink
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		links, err = uow.GamenightRepository().List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list gamenight links: %w", err)
	}
	return links, nil
}

func (s *communityService) RemoveGamenightLink(ctx context.Context, index int) (*models.GamenightLink, error) {
	var removed models.GamenightLink
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		removed, err = uow.GamenightRepository().RemoveAt(ctx, index)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (s *communityService) GetSettings(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		settings, err = uow.SettingsRepository().Get(ctx)
		return err
	})
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// SetStartingBalance changes the balance given to accounts created from now on
func (s *communityService) SetStartingBalance(ctx context.Context, amount int64) (models.Settings, error) {
	if amount < 0 {
		return models.Settings{}, fmt.Errorf("%w: starting balance cannot be negative", ErrInvalidAmount)
	}

	var settings models.Settings
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		settings, err = uow.SettingsRepository().Get(ctx)
		if err != nil {
			return err
		}
		settings.StartingBalance = amount
		return uow.SettingsRepository().Update(ctx, settings)
	})
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}
