package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// AutosaveWorker writes the snapshot on a fixed interval whether or not anything changed
type AutosaveWorker struct {
	saver    SnapshotSaver
	interval time.Duration
}

// NewAutosaveWorker creates a new autosave worker
func NewAutosaveWorker(saver SnapshotSaver, interval time.Duration) *AutosaveWorker {
	return &AutosaveWorker{saver: saver, interval: interval}
}

// Start begins the autosave loop
func (w *AutosaveWorker) Start(ctx context.Context) func() {
	return startTicker(ctx, "autosave", w.interval, w.Tick)
}

// Tick runs one save. Failures are logged and retried on the next tick.
func (w *AutosaveWorker) Tick(ctx context.Context) {
	if err := w.saver.Save(ctx); err != nil {
		log.WithError(err).Error("Autosave failed, retrying next cycle")
	}
}

// BackupWorker copies the canonical snapshot into the backup directory on a fixed interval
type BackupWorker struct {
	backuper SnapshotBackuper
	interval time.Duration
}

// NewBackupWorker creates a new backup worker
func NewBackupWorker(backuper SnapshotBackuper, interval time.Duration) *BackupWorker {
	return &BackupWorker{backuper: backuper, interval: interval}
}

// Start begins the backup loop
func (w *BackupWorker) Start(ctx context.Context) func() {
	return startTicker(ctx, "backup", w.interval, w.Tick)
}

// Tick runs one backup
func (w *BackupWorker) Tick(ctx context.Context) {
	path, err := w.backuper.Backup(ctx)
	if err != nil {
		log.WithFields(log.Fields{
			"path":  path,
			"error": err,
		}).Warn("Snapshot backup failed")
	}
}
