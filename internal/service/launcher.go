package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type runningService struct {
	svc      Service
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// finalize cancels the service's context and calls Stop exactly once per
// launch, no matter how many callers race to shut the service down.
func (r *runningService) finalize(ctx context.Context, logger zerolog.Logger) {
	r.stopOnce.Do(func() {
		r.cancel()
		if err := r.svc.Stop(ctx); err != nil {
			logger.Warn().Err(err).Str("service", r.svc.Name()).Msg("service stop failed")
		}
	})
}

// stop finalizes the service and waits for its supervisor to finish.
func (r *runningService) stop(ctx context.Context, logger zerolog.Logger) {
	r.finalize(ctx, logger)
	select {
	case <-r.done:
	case <-ctx.Done():
	}
}

// Launcher runs services in their own goroutines, relaunching them after
// recoverable failures. Service names are unique: launching a name that is
// already running replaces the old instance.
type Launcher struct {
	logger zerolog.Logger

	mu      sync.Mutex
	running map[string]*runningService
}

func NewLauncher(logger zerolog.Logger) *Launcher {
	return &Launcher{
		logger:  logger,
		running: make(map[string]*runningService),
	}
}

// Launch starts svc under the given parent context. An already-running
// service with the same name is stopped first.
func (l *Launcher) Launch(ctx context.Context, svc Service) {
	l.mu.Lock()
	existing := l.running[svc.Name()]
	l.mu.Unlock()
	if existing != nil {
		existing.stop(ctx, l.logger)
	}

	runCtx, cancel := context.WithCancel(ctx)
	entry := &runningService{
		svc:    svc,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	l.mu.Lock()
	l.running[svc.Name()] = entry
	l.mu.Unlock()

	l.logger.Info().Str("service", svc.Name()).Msg("launching service")
	go l.supervise(runCtx, entry)
}

func (l *Launcher) supervise(ctx context.Context, entry *runningService) {
	defer close(entry.done)
	defer func() {
		// A service that exits on its own still gets its Stop hook, before
		// the entry disappears from the index.
		entry.finalize(context.Background(), l.logger)
		l.mu.Lock()
		if l.running[entry.svc.Name()] == entry {
			delete(l.running, entry.svc.Name())
		}
		l.mu.Unlock()
	}()

	name := entry.svc.Name()
	for {
		err := entry.svc.Launch(ctx)
		if err == nil || ctx.Err() != nil {
			l.logger.Info().Str("service", name).Msg("service finished")
			return
		}

		delay, recoverable := recoveryDelay(err)
		if !recoverable {
			l.logger.Error().Err(err).Str("service", name).Msg("service failed")
			return
		}

		l.logger.Warn().
			Err(err).
			Str("service", name).
			Dur("delay", delay).
			Msg("service failed, relaunching")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// StopService stops the named service and waits for it to finish. Unknown
// names are a no-op.
func (l *Launcher) StopService(ctx context.Context, name string) {
	l.mu.Lock()
	entry := l.running[name]
	l.mu.Unlock()
	if entry == nil {
		return
	}
	entry.stop(ctx, l.logger)
}

// IsRunning reports whether a service with the given name is active.
func (l *Launcher) IsRunning(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.running[name]
	return ok
}

// StopAll stops every running service, waiting for each to finish.
func (l *Launcher) StopAll(ctx context.Context) {
	l.mu.Lock()
	entries := make([]*runningService, 0, len(l.running))
	for _, entry := range l.running {
		entries = append(entries, entry)
	}
	l.mu.Unlock()

	var wg sync.WaitGroup
	for _, entry := range entries {
		wg.Add(1)
		go func(e *runningService) {
			defer wg.Done()
			e.stop(ctx, l.logger)
		}(entry)
	}
	wg.Wait()
}
