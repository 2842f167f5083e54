// Package watcher supplements execute with a --watch mode: poll a test
// definitions file for changes and re-run the suite whenever its
// modification time moves.
package watcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/devrickard/testcascade/internal/domain/models"
	"github.com/devrickard/testcascade/internal/infrastructure/logging"
)

// RunFunc loads tests from path and executes them, returning the result
// the caller should report.
type RunFunc func(ctx context.Context, path string) (*models.TestRunResult, error)

// OnRun is invoked with each run's result, including the initial run.
type OnRun func(*models.TestRunResult)

// Service polls a test definitions file and re-triggers execution on
// change.
type Service struct {
	logger   logging.Logger
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithInterval sets the poll interval (default 1s).
func WithInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

// NewService creates a watch-mode Service.
func NewService(options ...Option) *Service {
	s := &Service{
		logger:   logging.NewNullLogger(),
		interval: time.Second,
		stopChan: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Watch runs once immediately, then polls path's modification time and
// re-runs whenever it changes, until ctx is cancelled or Stop is called.
func (s *Service) Watch(ctx context.Context, path string, run RunFunc, onRun OnRun) error {
	s.stopChan = make(chan struct{})

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat test definitions file %s: %w", path, err)
	}
	lastModified := info.ModTime()

	result, err := run(ctx, path)
	if err != nil {
		return fmt.Errorf("initial run failed: %w", err)
	}
	onRun(result)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					s.logger.Warnf("watcher: failed to stat %s: %v", path, err)
					continue
				}
				if !info.ModTime().After(lastModified) {
					continue
				}
				lastModified = info.ModTime()

				s.logger.Infof("watcher: change detected in %s, re-running", path)
				result, err := run(ctx, path)
				if err != nil {
					s.logger.Errorf("watcher: run failed: %v", err)
					continue
				}
				onRun(result)

			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop ends a running Watch and waits for its goroutine to exit.
func (s *Service) Stop() {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
}
