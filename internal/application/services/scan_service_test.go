package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/session"
	"github.com/sugarswap/sugarswap-go/internal/domain/feedback"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/lookup"
)

// stubBroadcaster records pushed events
type stubBroadcaster struct {
	mu       sync.Mutex
	feedback []feedback.Event
	progress []any
}

func (b *stubBroadcaster) AddClient(username, sessionID string) chan string { return nil }
func (b *stubBroadcaster) RemoveClient(ch chan string, username, sessionID string) {
}
func (b *stubBroadcaster) GetConnectionCount(username string) int { return 0 }
func (b *stubBroadcaster) BroadcastFeedback(username string, event feedback.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.feedback = append(b.feedback, event)
}
func (b *stubBroadcaster) BroadcastProgress(username string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress = append(b.progress, payload)
}

func (b *stubBroadcaster) progressCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.progress)
}

func newScanFixture(t *testing.T, fetcher ProductFetcher) (*ScanService, *session.Context, *SaveScheduler, *countingSaver, *stubBroadcaster) {
	t.Helper()
	logger := testLogger(t)
	broadcaster := &stubBroadcaster{}

	queue := feedback.NewQueue(10*time.Millisecond, func(event feedback.Event) {
		broadcaster.BroadcastFeedback("tester", event)
	})
	sc := session.NewContext("tester", progress.NewGamificationState(), catalog.NewCache(), queue)

	saverBackend := &countingSaver{}
	saver := NewSaveScheduler(sc, saverBackend, 10*time.Millisecond, logger)

	progression := NewProgressionServiceWithPolicies(testNutritionModel(), "quadratic", 3000, "decay", 0.8, logger)
	svc := NewScanService(NewCatalogService(fetcher, logger), progression, broadcaster, logger)
	return svc, sc, saver, saverBackend, broadcaster
}

func TestSubmitScanEnqueuesConfirmPrompt(t *testing.T) {
	fetcher := &countingFetcher{product: &catalog.Product{
		Barcode:         "5449000000996",
		ProductName:     "Zero Cola",
		ProductQuantity: 330,
	}}
	svc, sc, saver, _, _ := newScanFixture(t, fetcher)

	_, id, err := svc.SubmitScan(context.Background(), sc, saver, "5449000000996")
	if err != nil {
		t.Fatalf("SubmitScan() error = %v", err)
	}

	current, state := sc.Queue.Current()
	if state != feedback.StateShowing || current.ID != id {
		t.Fatal("confirm prompt should be displayed")
	}
	if current.Kind != feedback.KindConfirm {
		t.Fatalf("prompt kind = %s, want confirm", current.Kind)
	}
}

func TestConfirmedScanSettlesStateAndSchedulesSave(t *testing.T) {
	fetcher := &countingFetcher{product: &catalog.Product{
		Barcode:         "5449000000996",
		ProductName:     "Zero Cola",
		ProductQuantity: 330,
		Nutriments:      catalog.Nutriments{Sugars100g: 0},
	}}
	svc, sc, saver, saverBackend, broadcaster := newScanFixture(t, fetcher)

	_, id, err := svc.SubmitScan(context.Background(), sc, saver, "5449000000996")
	if err != nil {
		t.Fatalf("SubmitScan() error = %v", err)
	}

	if err := sc.Queue.Acknowledge(id, true); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	var saved float64
	sc.ReadState(func(state *progress.GamificationState, _ *catalog.Cache) {
		saved = state.LifetimeStats.TotalSugarSaved
	})
	want := 330.0 / 100.0 * 10.6
	if saved < want-0.001 || saved > want+0.001 {
		t.Errorf("TotalSugarSaved = %v, want %v", saved, want)
	}

	if broadcaster.progressCount() != 1 {
		t.Errorf("progress broadcasts = %d, want 1", broadcaster.progressCount())
	}

	// Debounced save fires after the quiet window
	time.Sleep(100 * time.Millisecond)
	if n := saverBackend.saves.Load(); n != 1 {
		t.Errorf("saves = %d, want 1", n)
	}
}

func TestDeclinedScanLeavesStateUntouched(t *testing.T) {
	fetcher := &countingFetcher{product: &catalog.Product{
		Barcode:         "5449000000996",
		ProductQuantity: 330,
	}}
	svc, sc, saver, saverBackend, _ := newScanFixture(t, fetcher)

	_, id, _ := svc.SubmitScan(context.Background(), sc, saver, "5449000000996")
	if err := sc.Queue.Acknowledge(id, false); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	sc.ReadState(func(state *progress.GamificationState, _ *catalog.Cache) {
		if state.LifetimeStats.TotalSugarSaved != 0 || state.LifetimeStats.TotalSugarConsumed != 0 {
			t.Error("declined scan must not mutate state")
		}
	})

	time.Sleep(50 * time.Millisecond)
	if n := saverBackend.saves.Load(); n != 0 {
		t.Errorf("saves = %d, want 0", n)
	}
}

func TestSubmitScanMapsErrorsToFeedback(t *testing.T) {
	tests := []struct {
		name      string
		barcode   string
		fetchErr  error
		wantTitle string
	}{
		{"invalid barcode", "abc", nil, "Invalid Barcode"},
		{"not found", "12345678", lookup.ErrProductNotFound, "Product Not Found"},
		{"lookup failure", "12345678", lookup.ErrLookupFailed, "Lookup Failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &countingFetcher{err: tt.fetchErr}
			svc, sc, saver, _, _ := newScanFixture(t, fetcher)

			_, _, err := svc.SubmitScan(context.Background(), sc, saver, tt.barcode)
			if err == nil {
				t.Fatal("SubmitScan() should return the resolution error")
			}

			current, state := sc.Queue.Current()
			if state != feedback.StateShowing || current == nil {
				t.Fatal("error feedback should be displayed")
			}
			if current.Title != tt.wantTitle {
				t.Errorf("feedback title = %q, want %q", current.Title, tt.wantTitle)
			}
			if current.Kind != feedback.KindOK {
				t.Error("error feedback must be a plain ok item")
			}
		})
	}
}

func TestLogWaterAppliesImmediately(t *testing.T) {
	svc, sc, saver, saverBackend, broadcaster := newScanFixture(t, &countingFetcher{})

	outcome := svc.LogWater(sc, saver)

	want := 330.0 / 100.0 * 10.6
	if outcome.SugarSaved < want-0.001 || outcome.SugarSaved > want+0.001 {
		t.Errorf("SugarSaved = %v, want %v", outcome.SugarSaved, want)
	}
	if broadcaster.progressCount() != 1 {
		t.Errorf("progress broadcasts = %d, want 1", broadcaster.progressCount())
	}

	time.Sleep(100 * time.Millisecond)
	if n := saverBackend.saves.Load(); n != 1 {
		t.Errorf("saves = %d, want 1", n)
	}
}
