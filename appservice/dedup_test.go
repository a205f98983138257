// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package appservice

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mibmo/matrix-free-stuff/lib/clock"
)

// recordingLogHandler captures log records for assertions. Safe for
// concurrent use.
type recordingLogHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingLogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingLogHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
	return nil
}

func (h *recordingLogHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingLogHandler) WithGroup(string) slog.Handler      { return h }

// warningsContaining counts warning-level records whose message
// contains substring.
func (h *recordingLogHandler) warningsContaining(substring string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, record := range h.records {
		if record.Level == slog.LevelWarn && strings.Contains(record.Message, substring) {
			count++
		}
	}
	return count
}

func newTestLog(t *testing.T) (*TransactionLog, *clock.FakeClock, *recordingLogHandler) {
	t.Helper()
	fakeClock := clock.Fake(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	logHandler := &recordingLogHandler{}
	log := NewTransactionLog(fakeClock, slog.New(logHandler))
	return log, fakeClock, logHandler
}

func TestObserveLivenessProbe(t *testing.T) {
	log, _, logHandler := newTestLog(t)

	if got := log.Observe(""); got != ObservationNone {
		t.Errorf("Observe(\"\") = %v, want none", got)
	}
	if logHandler.warningsContaining("invalid transaction id") != 0 {
		t.Error("liveness probe must not warn")
	}
}

func TestObserveRetransmitWithinWindow(t *testing.T) {
	log, fakeClock, logHandler := newTestLog(t)

	if got := log.Observe("txn1"); got != ObservationUnknown {
		t.Errorf("first observation = %v, want unknown", got)
	}

	fakeClock.Advance(5 * time.Second)

	if got := log.Observe("txn1"); got != ObservationRetransmit {
		t.Errorf("second observation = %v, want retransmit", got)
	}
	if count := logHandler.warningsContaining("invalid transaction id"); count != 1 {
		t.Errorf("expected exactly one warning (the first observation), got %d", count)
	}
}

func TestObserveStaleAfterWindow(t *testing.T) {
	log, fakeClock, logHandler := newTestLog(t)

	log.Observe("txn1")
	fakeClock.Advance(TransactionWindow + time.Second)

	if got := log.Observe("txn1"); got != ObservationStale {
		t.Errorf("delayed observation = %v, want stale", got)
	}
	if count := logHandler.warningsContaining("invalid transaction id"); count != 2 {
		t.Errorf("expected warnings on both observations, got %d", count)
	}
}

func TestObserveExactlyAtWindowBoundary(t *testing.T) {
	log, fakeClock, _ := newTestLog(t)

	log.Observe("txn1")
	fakeClock.Advance(TransactionWindow)

	// Elapsed time equal to the window still counts as within it.
	if got := log.Observe("txn1"); got != ObservationRetransmit {
		t.Errorf("boundary observation = %v, want retransmit", got)
	}
}

func TestRecordDeliveryDetectsRetry(t *testing.T) {
	log, fakeClock, _ := newTestLog(t)

	if log.RecordDelivery("txn1") {
		t.Error("first delivery reported as duplicate")
	}
	if !log.RecordDelivery("txn1") {
		t.Error("immediate redelivery not reported as duplicate")
	}

	fakeClock.Advance(TransactionWindow + time.Second)
	if log.RecordDelivery("txn1") {
		t.Error("redelivery after the window must count as fresh")
	}
}

func TestDeliveryThenPingConfirmation(t *testing.T) {
	log, fakeClock, logHandler := newTestLog(t)

	log.RecordDelivery("txn1")
	fakeClock.Advance(2 * time.Second)

	// A ping confirming a genuinely delivered transaction is a clean
	// retransmission — no warning.
	if got := log.Observe("txn1"); got != ObservationRetransmit {
		t.Errorf("confirmation = %v, want retransmit", got)
	}
	if logHandler.warningsContaining("invalid transaction id") != 0 {
		t.Error("confirmation of a delivered transaction must not warn")
	}

	// The matched entry is removed: a later ping for the same id is
	// unknown again.
	if got := log.Observe("txn1"); got != ObservationUnknown {
		t.Errorf("post-confirmation observation = %v, want unknown", got)
	}
}

func TestPingDoesNotSuppressLaterDelivery(t *testing.T) {
	log, fakeClock, _ := newTestLog(t)

	// A ping names a transaction the homeserver has not delivered
	// yet. The ping is warned about, but the id must not enter the
	// delivery record: when the genuine first delivery arrives, its
	// batch has to be processed, not replayed as a retry.
	if got := log.Observe("txn42"); got != ObservationUnknown {
		t.Fatalf("out-of-order ping = %v, want unknown", got)
	}

	fakeClock.Advance(2 * time.Second)

	if log.RecordDelivery("txn42") {
		t.Error("first delivery after an out-of-order ping reported as duplicate")
	}
	if !log.RecordDelivery("txn42") {
		t.Error("redelivery after the real first delivery not reported as duplicate")
	}
}

func TestDeliverySupersedesPingRecord(t *testing.T) {
	log, fakeClock, logHandler := newTestLog(t)

	log.Observe("txn1")
	fakeClock.Advance(2 * time.Second)
	log.RecordDelivery("txn1")
	logHandler.mu.Lock()
	logHandler.records = nil
	logHandler.mu.Unlock()

	// After the delivery, a confirming ping matches the delivery
	// record cleanly.
	if got := log.Observe("txn1"); got != ObservationRetransmit {
		t.Errorf("post-delivery confirmation = %v, want retransmit", got)
	}
	if logHandler.warningsContaining("invalid transaction id") != 0 {
		t.Error("confirmation of a delivered transaction must not warn")
	}
}

func TestObservePrunesExpiredEntries(t *testing.T) {
	log, fakeClock, _ := newTestLog(t)

	log.Observe("txnA")
	fakeClock.Advance(TransactionWindow + time.Second)

	// Observing an unrelated id prunes the expired record, so the
	// original id reads as unknown rather than stale.
	log.Observe("txnB")
	if got := log.Observe("txnA"); got != ObservationUnknown {
		t.Errorf("observation after prune = %v, want unknown", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	log, _, _ := newTestLog(t)

	var waitGroup sync.WaitGroup
	for i := 0; i < 8; i++ {
		waitGroup.Add(1)
		go func(n int) {
			defer waitGroup.Done()
			for j := 0; j < 100; j++ {
				log.RecordDelivery("shared")
				log.Observe("shared")
			}
		}(i)
	}
	waitGroup.Wait()
}
