package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"retaildw/internal/domain/loader"
	"retaildw/pkg/logger"
)

// LoadListener invalidates cached results when a load committed by any
// process is announced via PostgreSQL LISTEN/NOTIFY.
//
// The loader already invalidates its own cache. The listener covers loads
// run elsewhere, such as the seed command, against a shared database.
type LoadListener struct {
	pool    *pgxpool.Pool
	channel string

	invalidators   []loader.Invalidator
	invalidatorsMu sync.RWMutex

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewLoadListener creates a listener on channel.
func NewLoadListener(pool *pgxpool.Pool, channel string) *LoadListener {
	return &LoadListener{pool: pool, channel: channel}
}

// OnLoad registers an invalidator run for every announced load.
func (l *LoadListener) OnLoad(inv loader.Invalidator) {
	l.invalidatorsMu.Lock()
	l.invalidators = append(l.invalidators, inv)
	l.invalidatorsMu.Unlock()
}

// Start begins listening in the background.
func (l *LoadListener) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return nil
	}
	if l.pool == nil {
		return fmt.Errorf("load listener: nil pool")
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "load listener started", "channel", l.channel)
	return nil
}

// Stop stops the listener and waits for it to exit.
func (l *LoadListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
	logger.Info(context.Background(), "load listener stopped")
}

func (l *LoadListener) listenLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.backoff()
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+l.channel); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "channel", l.channel, "error", err)
			conn.Release()
			l.backoff()
			continue
		}

		l.waitForNotifications(conn)

		// Session state must not leak back into the pool.
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}
}

func (l *LoadListener) backoff() {
	select {
	case <-l.ctx.Done():
	case <-time.After(time.Second):
	}
}

func (l *LoadListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		// Bounded wait so a dead connection is noticed.
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if timedOut {
				continue
			}
			logger.Warn(l.ctx, "LISTEN connection lost", "error", err)
			return
		}

		logger.Debug(l.ctx, "load announced", "channel", notification.Channel, "run_id", notification.Payload)
		l.handleNotification(l.ctx, notification.Payload)
	}
}

// handleNotification runs every invalidator. A failing or panicking
// invalidator does not stop the others.
func (l *LoadListener) handleNotification(ctx context.Context, runID string) {
	l.invalidatorsMu.RLock()
	defer l.invalidatorsMu.RUnlock()

	for _, inv := range l.invalidators {
		func(inv loader.Invalidator) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(ctx, "invalidator panic recovered", "run_id", runID, "panic", r)
				}
			}()
			if err := inv.Invalidate(ctx); err != nil {
				logger.Warn(ctx, "cache invalidation failed", "run_id", runID, "error", err)
			}
		}(inv)
	}
}
