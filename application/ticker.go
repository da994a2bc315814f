package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// startTicker runs tick every interval until ctx ends or the returned stop func is called.
// stop waits for a running tick to finish.
func startTicker(ctx context.Context, name string, interval time.Duration, tick func(context.Context)) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.WithFields(log.Fields{
			"worker":   name,
			"interval": interval,
		}).Info("Worker started")

		for {
			select {
			case <-ctx.Done():
				log.WithField("worker", name).Info("Worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.WithField("worker", name).Info("Worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				tick(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopChan) })
		<-done
	}
}
