// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package appservice

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mibmo/matrix-free-stuff/lib/clock"
)

// TransactionWindow is how long a transaction id stays on record.
// The homeserver retries undelivered transactions within seconds;
// an id older than this is stale and treated as not found.
const TransactionWindow = 15 * time.Second

// Observation classifies the dedup store's view of a ping
// transaction id. The classification is advisory — the caller
// acknowledges the ping regardless.
type Observation string

const (
	// ObservationNone means the ping carried no transaction id
	// (liveness-only probe).
	ObservationNone Observation = "none"

	// ObservationRetransmit means the id was on record within the
	// window: a legitimate retransmission or delivery confirmation.
	ObservationRetransmit Observation = "retransmit"

	// ObservationStale means the id was on record but older than
	// the window.
	ObservationStale Observation = "stale"

	// ObservationUnknown means the id was not on record.
	ObservationUnknown Observation = "unknown"
)

// TransactionLog is a time-windowed record of recently seen
// transaction ids, shared across concurrent requests. All access
// runs under a single mutex; the critical sections do no I/O.
// Expired entries are pruned lazily on access — at this scale no
// background sweeper is needed.
//
// Delivered transactions and ping observations are tracked
// separately. Only the delivery record feeds replay suppression: a
// ping naming an id the bridge has never processed must not make a
// later genuine delivery of that transaction look like a retry, or
// its events would be acknowledged and dropped.
//
// The log never causes a request to fail: duplicate and stale ids
// are logged and acknowledged, because a non-2xx answer would make
// the homeserver retry the transaction indefinitely.
type TransactionLog struct {
	clock  clock.Clock
	logger *slog.Logger

	mu sync.Mutex

	// delivered holds ids of transaction batches already processed.
	delivered map[string]time.Time

	// observed holds ids seen only in pings, so a retransmitted ping
	// inside the window is recognized instead of warned about twice.
	observed map[string]time.Time
}

// NewTransactionLog creates an empty log. Panics if clk or logger is
// nil — the log is always constructed at startup with both.
func NewTransactionLog(clk clock.Clock, logger *slog.Logger) *TransactionLog {
	if clk == nil {
		panic("TransactionLog: clock is required")
	}
	if logger == nil {
		panic("TransactionLog: logger is required")
	}
	return &TransactionLog{
		clock:     clk,
		logger:    logger,
		delivered: make(map[string]time.Time),
		observed:  make(map[string]time.Time),
	}
}

// RecordDelivery notes that a transaction with the given id has been
// delivered. Returns true when the id's batch was already processed
// within the window — a homeserver retry, for which the caller should
// replay the acknowledgement without reprocessing the batch. Ping
// observations never count: only a prior delivery suppresses a batch.
func (l *TransactionLog) RecordDelivery(transactionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.prune(now)

	if _, exists := l.delivered[transactionID]; exists {
		return true
	}
	l.delivered[transactionID] = now

	// The delivery supersedes any ping-only record of the same id.
	delete(l.observed, transactionID)
	return false
}

// Observe checks a ping's optional transaction id against the record.
// An empty id is a liveness-only probe and does no dedup work. A
// matched id within the window is removed (the delivery round-trip is
// complete); a stale or unknown id is logged as a warning. The
// returned classification feeds metrics; it never fails the request.
func (l *TransactionLog) Observe(transactionID string) Observation {
	if transactionID == "" {
		return ObservationNone
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	defer l.prune(now)

	if firstSeen, exists := l.delivered[transactionID]; exists {
		delete(l.delivered, transactionID)
		return l.classify(transactionID, firstSeen, now)
	}
	if firstSeen, exists := l.observed[transactionID]; exists {
		delete(l.observed, transactionID)
		return l.classify(transactionID, firstSeen, now)
	}

	// Not on record. Remember it so a retransmission inside the
	// window is recognized instead of warned about again.
	l.observed[transactionID] = now
	l.logger.Warn("invalid transaction id",
		"transaction_id", transactionID,
	)
	return ObservationUnknown
}

// classify maps a matched entry's age to its observation. Caller
// holds the lock and has already removed the entry.
func (l *TransactionLog) classify(transactionID string, firstSeen, now time.Time) Observation {
	if now.Sub(firstSeen) <= TransactionWindow {
		return ObservationRetransmit
	}
	l.logger.Warn("invalid transaction id: expired",
		"transaction_id", transactionID,
		"age", now.Sub(firstSeen),
	)
	return ObservationStale
}

// prune drops expired entries from both records. Caller holds the
// lock. The maps stay small (one entry per transaction over the
// window) so a full scan per access is cheap.
func (l *TransactionLog) prune(now time.Time) {
	for id, firstSeen := range l.delivered {
		if now.Sub(firstSeen) > TransactionWindow {
			delete(l.delivered, id)
		}
	}
	for id, firstSeen := range l.observed {
		if now.Sub(firstSeen) > TransactionWindow {
			delete(l.observed, id)
		}
	}
}
