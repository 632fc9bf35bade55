
// Package scheduler drives the sync engine on a fixed timer, independent
// of any consumer of the engine's snapshots.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/Armin-kho/market-price-watch/internal/cache"
	"github.com/Armin-kho/market-price-watch/internal/engine"
	"github.com/Armin-kho/market-price-watch/internal/utils"
)

type Notifier interface {
	Notify(ctx context.Context, text string)
}

type Scheduler struct {
	eng      *engine.Engine
	interval time.Duration
	locale   string
	notify   Notifier

	// daily snapshot of the sqlite cache; nil when the cache is remote
	backup    *cache.SQLite
	backupDir string

	stopCh chan struct{}
	wg     sync.WaitGroup

	// throttling failure notifications
	mu             sync.Mutex
	lastFailNotify time.Time
	lastBackup     time.Time
}

// failNotifyThrottle caps failure notices to one per window. Failure
// reasons embed the run id and so differ between runs; the throttle is
// purely time based.
const failNotifyThrottle = 30 * time.Minute

func New(eng *engine.Engine, interval time.Duration, locale string, notifier Notifier) *Scheduler {
	return &Scheduler{
		eng:      eng,
		interval: interval,
		locale:   locale,
		notify:   notifier,
		stopCh:   make(chan struct{}),
	}
}

// EnableBackup turns on daily cache snapshots into dir.
func (s *Scheduler) EnableBackup(store *cache.SQLite, dir string) {
	s.backup = store
	s.backupDir = dir
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First run right away rather than waiting a full interval.
	s.runTick()
	for {
		select {
		case <-ticker.C:
			s.runTick()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) runTick() {
	s.reportPrevious()
	s.maybeBackup()

	batch := s.eng.AdvanceWindow()
	if len(batch) == 0 {
		log.Printf("[scheduler] empty window, nothing to sync")
		return
	}
	if err := s.eng.StartRun(batch); err != nil {
		if errors.Is(err, engine.ErrBusy) {
			log.Printf("[scheduler] previous run still active, skipping tick")
			return
		}
		log.Printf("[scheduler] start run: %v", err)
	}
}

// reportPrevious looks at how the previous run ended: logs a summary on
// completion, notifies (throttled) on failure.
func (s *Scheduler) reportPrevious() {
	st := s.eng.Status()
	switch st.State {
	case engine.StateCompleted:
		if snap, ok := s.eng.Snapshot(); ok && len(snap.Prices) > 0 {
			top := snap.Prices[0]
			log.Printf("[scheduler] last run: %d prices, top %s at %s",
				len(snap.Prices), top.Name, utils.FormatPrice(top.Price, s.locale))
		}
	case engine.StateFailed:
		s.notifyFailure(st.Err)
	}
}

func (s *Scheduler) notifyFailure(reason string) {
	if s.notify == nil {
		return
	}
	s.mu.Lock()
	if time.Since(s.lastFailNotify) < failNotifyThrottle {
		s.mu.Unlock()
		return
	}
	s.lastFailNotify = time.Now()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	s.notify.Notify(ctx, fmt.Sprintf("⚠️ price sync failed\n%s", reason))
}

func (s *Scheduler) maybeBackup() {
	if s.backup == nil {
		return
	}
	s.mu.Lock()
	due := time.Since(s.lastBackup) >= 24*time.Hour
	if due {
		s.lastBackup = time.Now()
	}
	s.mu.Unlock()
	if !due {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	dst := filepath.Join(s.backupDir, "price-cache-"+time.Now().Format("20060102")+".db")
	if err := s.backup.BackupTo(ctx, dst); err != nil {
		log.Printf("[scheduler] cache backup: %v", err)
		return
	}
	log.Printf("[scheduler] cache backed up to %s", dst)
}
