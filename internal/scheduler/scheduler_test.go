
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Armin-kho/market-price-watch/internal/cache"
	"github.com/Armin-kho/market-price-watch/internal/catalog"
	"github.com/Armin-kho/market-price-watch/internal/engine"
	"github.com/Armin-kho/market-price-watch/internal/market"
)

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) {
	f.mu.Lock()
	f.msgs = append(f.msgs, text)
	f.mu.Unlock()
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func testCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	m := map[string]string{}
	for i := 1; i <= n; i++ {
		m[fmt.Sprintf("%d", i)] = fmt.Sprintf("item %d", i)
	}
	b, _ := json.Marshal(m)
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

func newSyncEngine(t *testing.T, handler http.Handler, n int) *engine.Engine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store, err := cache.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	client := market.NewClient(srv.URL, "testmarket")
	resolver := engine.NewResolver(client, store, "testmarket", "en", engine.StrategySingle, false)
	eng := engine.New(testCatalog(t, n), resolver, engine.Options{WindowSize: 1, GroupSize: 1, Concurrency: 1})
	t.Cleanup(eng.Close)
	return eng
}

func waitTerminal(t *testing.T, eng *engine.Engine) engine.Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := eng.Status()
		if st.State == engine.StateCompleted || st.State == engine.StateFailed {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run did not finish, state %v", eng.Status().State)
	return engine.Status{}
}

func TestTickSkipsBusyEngine(t *testing.T) {
	release := make(chan struct{})
	var secondItemHits atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/2") {
			secondItemHits.Add(1)
		} else {
			<-release
		}
		json.NewEncoder(w).Encode(market.ItemData{Listings: []market.Listing{{PricePerUnit: 5}}})
	})
	eng := newSyncEngine(t, handler, 2)
	s := New(eng, time.Hour, "en", nil)

	if err := eng.StartRun(eng.AdvanceWindow()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	// The run is parked inside the price service; this tick must skip,
	// not queue a run for the next window.
	s.runTick()
	close(release)
	if st := waitTerminal(t, eng); st.State != engine.StateCompleted {
		t.Fatalf("run ended %v (%s)", st.State, st.Err)
	}
	if got := secondItemHits.Load(); got != 0 {
		t.Fatalf("tick against a busy engine fetched the next window (%d hits)", got)
	}
}

func TestFailureNoticesThrottled(t *testing.T) {
	n := &fakeNotifier{}
	s := New(nil, time.Hour, "en", n)

	// Reasons differ (each run embeds its own id); the throttle must
	// hold regardless.
	s.notifyFailure("run a1b2c3d4 interrupted: context canceled")
	s.notifyFailure("run e5f6a7b8 interrupted: context canceled")
	if got := n.count(); got != 1 {
		t.Fatalf("%d notices inside the throttle window, want 1", got)
	}

	s.mu.Lock()
	s.lastFailNotify = time.Now().Add(-failNotifyThrottle - time.Minute)
	s.mu.Unlock()
	s.notifyFailure("still failing")
	if got := n.count(); got != 2 {
		t.Fatalf("%d notices after the window passed, want 2", got)
	}
}

func TestReportPreviousNotifiesFailureOnce(t *testing.T) {
	eng := newSyncEngine(t, http.NotFoundHandler(), 1)
	n := &fakeNotifier{}
	s := New(eng, time.Hour, "en", n)

	if err := eng.StartRun([]catalog.Entry{}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if st := waitTerminal(t, eng); st.State != engine.StateFailed {
		t.Fatalf("empty target run ended %v, want failed", st.State)
	}

	s.reportPrevious()
	s.reportPrevious()
	if got := n.count(); got != 1 {
		t.Fatalf("%d notices for one failure across two ticks, want 1", got)
	}
	if !strings.Contains(n.msgs[0], "price sync failed") {
		t.Fatalf("notice text = %q", n.msgs[0])
	}
}

func TestBackupOncePerDay(t *testing.T) {
	store, err := cache.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dir := t.TempDir()
	s := New(nil, time.Hour, "en", nil)
	s.EnableBackup(store, dir)

	s.maybeBackup()
	s.maybeBackup()
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("%d backups inside one day, want 1", len(files))
	}
	name := files[0].Name()
	if err := os.Remove(filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	s.lastBackup = time.Now().Add(-25 * time.Hour)
	s.mu.Unlock()
	s.maybeBackup()
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Fatalf("no backup after the day rolled over: %v", err)
	}
}
