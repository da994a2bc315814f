package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"cardvault/models"
	"cardvault/service"

	log "github.com/sirupsen/logrus"
)

const journalWriteTimeout = 10 * time.Second

// JournalWriter moves committed history to a HistoryJournal off the engine lock.
// Batches are dropped, not blocked on, when the journal falls behind.
type JournalWriter struct {
	journal service.HistoryJournal

	mu      sync.RWMutex
	ch      chan []*models.BalanceHistory
	wg      sync.WaitGroup
	once    sync.Once
	closed  bool
	dropped atomic.Int64
	written atomic.Int64
}

// NewJournalWriter starts the writer goroutine
func NewJournalWriter(journal service.HistoryJournal, buffer int) *JournalWriter {
	if buffer <= 0 {
		buffer = 1024
	}
	w := &JournalWriter{
		journal: journal,
		ch:      make(chan []*models.BalanceHistory, buffer),
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	return w
}

// Enqueue hands a committed batch to the writer without blocking
func (w *JournalWriter) Enqueue(entries []*models.BalanceHistory) {
	if w == nil || len(entries) == 0 {
		return
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- entries:
	default:
		n := w.dropped.Add(int64(len(entries)))
		log.WithFields(log.Fields{
			"batch_size":    len(entries),
			"total_dropped": n,
		}).Warn("History journal queue full, dropping batch")
	}
}

// Dropped returns the number of entries discarded because the queue was full
func (w *JournalWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Written returns the number of entries the journal accepted
func (w *JournalWriter) Written() int64 {
	return w.written.Load()
}

// Close drains the queue and closes the journal
func (w *JournalWriter) Close() error {
	var err error
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.ch)
		w.mu.Unlock()

		w.wg.Wait()
		err = w.journal.Close()
	})
	return err
}

func (w *JournalWriter) loop() {
	for batch := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		err := w.journal.Append(ctx, batch)
		cancel()
		if err != nil {
			log.WithFields(log.Fields{
				"batch_size": len(batch),
				"error":      err,
			}).Error("Failed to write balance history")
			continue
		}
		w.written.Add(int64(len(batch)))
	}
}
