package persistence

import (
	"context"
	"errors"
	"sync"

	"cardvault/clock"
	"cardvault/events"
	"cardvault/models"
	"cardvault/repository"

	log "github.com/sirupsen/logrus"
)

const (
	KindSave   = "save"
	KindBackup = "backup"
)

// SnapshotJournal records written snapshot files
type SnapshotJournal interface {
	RecordSnapshot(ctx context.Context, record *models.SnapshotRecord) error
}

// EventPublisher receives snapshot notifications
type EventPublisher interface {
	Publish(event events.Event)
}

// Manager moves economy state between the in-memory store and the file store
type Manager struct {
	store     *repository.Store
	files     *FileStore
	clock     clock.Clock
	publisher EventPublisher
	journal   SnapshotJournal

	// Serialises file writes between autosave, backup and the final save
	mu sync.Mutex
}

// NewManager creates a persistence manager. publisher and journal may be nil.
func NewManager(store *repository.Store, files *FileStore, clk clock.Clock, publisher EventPublisher, journal SnapshotJournal) *Manager {
	return &Manager{
		store:     store,
		files:     files,
		clock:     clk,
		publisher: publisher,
		journal:   journal,
	}
}

// Files returns the underlying file store
func (m *Manager) Files() *FileStore {
	return m.files
}

// Snapshot encodes a consistent copy of the store
func (m *Manager) Snapshot(ctx context.Context) ([]byte, error) {
	data, _, err := m.snapshot(ctx)
	return data, err
}

func (m *Manager) snapshot(ctx context.Context) ([]byte, *Document, error) {
	state, err := m.store.Export(ctx)
	if err != nil {
		return nil, nil, err
	}

	doc := &Document{
		Version:        FormatVersion,
		SavedAt:        m.clock.Now(),
		Settings:       state.Settings,
		Accounts:       state.Accounts,
		Auctions:       make(map[string]*models.Auction, len(state.Auctions)),
		GamenightLinks: state.GamenightLinks,
	}
	for _, auction := range state.Auctions {
		doc.Auctions[auction.CardName] = auction
	}

	data, err := Encode(doc)
	if err != nil {
		return nil, nil, failure("encode snapshot", err)
	}
	return data, doc, nil
}

// Restore decodes a snapshot and replaces the store's persisted state
func (m *Manager) Restore(ctx context.Context, data []byte) error {
	doc, err := Decode(data)
	if err != nil {
		return failure("decode snapshot", err)
	}

	state := &repository.State{
		Settings:       doc.Settings,
		Accounts:       doc.Accounts,
		Auctions:       make([]*models.Auction, 0, len(doc.Auctions)),
		GamenightLinks: doc.GamenightLinks,
	}
	for name, auction := range doc.Auctions {
		if auction == nil {
			continue
		}
		if auction.CardName == "" {
			auction.CardName = name
		}
		state.Auctions = append(state.Auctions, auction)
	}
	for _, account := range state.Accounts {
		if account != nil && account.Inventory == nil {
			account.Inventory = []models.CardInstance{}
		}
	}

	if err := m.store.Import(ctx, state); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return failure("restore snapshot", err)
	}

	log.WithFields(log.Fields{
		"savedAt":  doc.SavedAt,
		"accounts": len(doc.Accounts),
		"auctions": len(doc.Auctions),
		"links":    len(doc.GamenightLinks),
	}).Info("Restored economy snapshot")
	return nil
}

// Save writes the current state to the canonical snapshot file. Export and write share
// one lock so an older snapshot never replaces a newer one.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, doc, err := m.snapshot(ctx)
	if err != nil {
		return err
	}

	if err := m.files.WriteAtomic(data); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"path":     m.files.Path(),
		"bytes":    len(data),
		"accounts": len(doc.Accounts),
		"auctions": len(doc.Auctions),
	}).Debug("Saved economy snapshot")

	m.notify(ctx, &models.SnapshotRecord{
		Kind:       KindSave,
		Path:       m.files.Path(),
		SizeBytes:  int64(len(data)),
		Accounts:   len(doc.Accounts),
		Auctions:   len(doc.Auctions),
		RecordedAt: doc.SavedAt,
	})
	return nil
}

// Load restores the canonical snapshot. It returns false without error when no snapshot
// exists yet, leaving the store empty.
func (m *Manager) Load(ctx context.Context) (bool, error) {
	data, err := m.files.Read()
	if errors.Is(err, ErrNoSnapshot) {
		log.WithField("path", m.files.Path()).Info("No economy snapshot found, starting empty")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := m.Restore(ctx, data); err != nil {
		return false, err
	}
	return true, nil
}

// Backup copies the canonical snapshot into the backup directory
func (m *Manager) Backup(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	path, size, err := m.files.Backup(now)
	if err != nil && path == "" {
		return "", err
	}

	record := &models.SnapshotRecord{
		Kind:       KindBackup,
		Path:       path,
		SizeBytes:  size,
		RecordedAt: now,
	}
	if header, herr := m.readHeader(); herr == nil {
		record.Accounts = header.Accounts
		record.Auctions = header.Auctions
	}

	log.WithFields(log.Fields{
		"path":  path,
		"bytes": size,
	}).Info("Wrote economy backup")
	m.notify(ctx, record)

	// A written backup with a failed prune is still reported
	return path, err
}

func (m *Manager) readHeader() (*Header, error) {
	data, err := m.files.Read()
	if err != nil {
		return nil, err
	}
	return DecodeHeader(data)
}

func (m *Manager) notify(ctx context.Context, record *models.SnapshotRecord) {
	if m.publisher != nil {
		m.publisher.Publish(events.SnapshotWrittenEvent{
			Kind:      record.Kind,
			Path:      record.Path,
			SizeBytes: record.SizeBytes,
			Accounts:  record.Accounts,
			Auctions:  record.Auctions,
		})
	}
	if m.journal != nil {
		if err := m.journal.RecordSnapshot(ctx, record); err != nil {
			log.WithFields(log.Fields{
				"kind":  record.Kind,
				"path":  record.Path,
				"error": err,
			}).Warn("Failed to record snapshot in journal")
		}
	}
}

// Inspect decodes a snapshot without touching any store
func Inspect(data []byte) (*Document, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, failure("decode snapshot", err)
	}
	return doc, nil
}
