package services

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
)

const testSaveWindow = 20 * time.Millisecond

type countingSaver struct {
	saves atomic.Int64
	err   error
}

func (s *countingSaver) SaveState(username string, state *progress.GamificationState, products *catalog.Cache) error {
	s.saves.Add(1)
	return s.err
}

func TestScheduleCoalescesBurstIntoOneSave(t *testing.T) {
	saver := &countingSaver{}
	sched := NewSaveScheduler(newTestSession(), saver, testSaveWindow, testLogger(t))

	for i := 0; i < 5; i++ {
		sched.Schedule()
		time.Sleep(testSaveWindow / 4)
	}

	time.Sleep(5 * testSaveWindow)
	if n := saver.saves.Load(); n != 1 {
		t.Fatalf("saves = %d, want 1 (burst must coalesce)", n)
	}
}

func TestScheduleSavesAgainAfterQuietWindow(t *testing.T) {
	saver := &countingSaver{}
	sched := NewSaveScheduler(newTestSession(), saver, testSaveWindow, testLogger(t))

	sched.Schedule()
	time.Sleep(5 * testSaveWindow)
	sched.Schedule()
	time.Sleep(5 * testSaveWindow)

	if n := saver.saves.Load(); n != 2 {
		t.Fatalf("saves = %d, want 2", n)
	}
}

func TestFlushSavesImmediatelyAndCancelsTimer(t *testing.T) {
	saver := &countingSaver{}
	sched := NewSaveScheduler(newTestSession(), saver, testSaveWindow, testLogger(t))

	sched.Schedule()
	if err := sched.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n := saver.saves.Load(); n != 1 {
		t.Fatalf("saves after flush = %d, want 1", n)
	}

	// The armed timer must not fire a second save
	time.Sleep(5 * testSaveWindow)
	if n := saver.saves.Load(); n != 1 {
		t.Fatalf("saves = %d, want 1 (flush must cancel the pending timer)", n)
	}
}

func TestFlushSurfacesError(t *testing.T) {
	saver := &countingSaver{err: errors.New("disk full")}
	sched := NewSaveScheduler(newTestSession(), saver, testSaveWindow, testLogger(t))

	if err := sched.Flush(); err == nil {
		t.Fatal("Flush() should surface the save error")
	}
}

func TestStopCancelsWithoutSaving(t *testing.T) {
	saver := &countingSaver{}
	sched := NewSaveScheduler(newTestSession(), saver, testSaveWindow, testLogger(t))

	sched.Schedule()
	sched.Stop()

	time.Sleep(5 * testSaveWindow)
	if n := saver.saves.Load(); n != 0 {
		t.Fatalf("saves = %d, want 0 after Stop", n)
	}

	// Scheduling after Stop is ignored
	sched.Schedule()
	time.Sleep(5 * testSaveWindow)
	if n := saver.saves.Load(); n != 0 {
		t.Fatalf("saves = %d, want 0 (stopped scheduler must not arm)", n)
	}
}
