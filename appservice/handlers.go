// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package appservice

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mibmo/matrix-free-stuff/lib/clock"
	"github.com/mibmo/matrix-free-stuff/lib/metrics"
	"github.com/mibmo/matrix-free-stuff/lib/ref"
	"github.com/mibmo/matrix-free-stuff/registration"
)

// Joiner performs the outbound room join triggered by an invite
// addressed to the bridge. *messaging.Session implements it. A join
// failure is logged by the handler and never aborts transaction
// processing or the HTTP acknowledgement.
type Joiner interface {
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Registration supplies the hs_token inbound calls authenticate
	// with. Required; consumed read-only.
	Registration *registration.Registration

	// UserID is the bridge's own fully-qualified Matrix user ID,
	// matched against invite state keys. Required.
	UserID ref.UserID

	// Joiner performs outbound joins. Required.
	Joiner Joiner

	// Clock drives the transaction dedup window. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Metrics records request outcomes. Required.
	Metrics *metrics.Metrics

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Handler serves the appservice HTTP surface. It is an http.Handler
// suitable for mounting on any server.
type Handler struct {
	registration *registration.Registration
	userID       ref.UserID
	joiner       Joiner
	transactions *TransactionLog
	metrics      *metrics.Metrics
	logger       *slog.Logger
	router       chi.Router
}

// NewHandler creates the appservice handler. Panics on missing
// required configuration — the handler is constructed once at
// startup and a nil collaborator would only surface mid-request.
func NewHandler(config HandlerConfig) *Handler {
	if config.Registration == nil {
		panic("appservice.Handler: Registration is required")
	}
	if config.UserID.IsZero() {
		panic("appservice.Handler: UserID is required")
	}
	if config.Joiner == nil {
		panic("appservice.Handler: Joiner is required")
	}
	if config.Metrics == nil {
		panic("appservice.Handler: Metrics is required")
	}
	if config.Logger == nil {
		panic("appservice.Handler: Logger is required")
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	handler := &Handler{
		registration: config.Registration,
		userID:       config.UserID,
		joiner:       config.Joiner,
		transactions: NewTransactionLog(clk, config.Logger),
		metrics:      config.Metrics,
		logger:       config.Logger,
	}

	router := chi.NewRouter()
	router.Post("/_matrix/app/v1/ping", handler.handlePing)
	router.Put("/_matrix/app/v1/transactions/{txnId}", handler.handleTransactions)
	handler.router = router
	return handler
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	h.router.ServeHTTP(writer, request)
}

// handlePing answers POST /_matrix/app/v1/ping: authenticate, check
// the optional transaction id against the dedup record, acknowledge.
func (h *Handler) handlePing(writer http.ResponseWriter, request *http.Request) {
	if err := h.authorize(request); err != nil {
		h.metrics.PingsTotal.WithLabelValues("unauthorized").Inc()
		WriteResponse(writer, h.logger, err)
		return
	}

	var ping PingRequest
	if err := Bind(request, &ping); err != nil {
		h.metrics.PingsTotal.WithLabelValues("bad_request").Inc()
		WriteResponse(writer, h.logger, asProtocolError(err))
		return
	}

	observation := h.transactions.Observe(ping.TransactionID)
	h.metrics.DedupObservations.WithLabelValues(string(observation)).Inc()
	h.metrics.PingsTotal.WithLabelValues("ok").Inc()

	WriteResponse(writer, h.logger, EmptyResponse{})
}

// handleTransactions answers PUT /_matrix/app/v1/transactions/{txnId}.
// The batch is walked strictly in delivery order; per-event failures
// are recovered locally, and the acknowledgement is unconditional once
// the walk finishes — the homeserver retries the whole transaction on
// any non-2xx answer.
func (h *Handler) handleTransactions(writer http.ResponseWriter, request *http.Request) {
	var transaction TransactionRequest
	if err := Bind(request, &transaction); err != nil {
		h.metrics.TransactionsTotal.WithLabelValues("bad_request").Inc()
		WriteResponse(writer, h.logger, asProtocolError(err))
		return
	}

	logger := h.logger.With("transaction_id", transaction.TransactionID)

	if h.transactions.RecordDelivery(transaction.TransactionID) {
		logger.Debug("duplicate transaction delivery, replaying acknowledgement")
		h.metrics.TransactionsTotal.WithLabelValues("duplicate").Inc()
		WriteResponse(writer, h.logger, EmptyResponse{})
		return
	}

	logger.Debug("processing transaction", "events", len(transaction.Events))

	for _, rawEvent := range transaction.Events {
		h.handleEvent(request.Context(), logger, rawEvent)
	}

	h.metrics.TransactionsTotal.WithLabelValues("ok").Inc()
	WriteResponse(writer, h.logger, EmptyResponse{})
}

// handleEvent processes a single event from a transaction batch. The
// only shape acted on is a membership invite addressed to the bridge
// itself, which triggers one outbound join attempt.
func (h *Handler) handleEvent(ctx context.Context, logger *slog.Logger, rawEvent json.RawMessage) {
	var event Event
	if err := json.Unmarshal(rawEvent, &event); err != nil {
		logger.Debug("skipping malformed event", "error", err)
		h.metrics.EventsTotal.WithLabelValues("malformed").Inc()
		return
	}

	if event.Type == ref.EventTypeRoomMember &&
		event.StateKey != nil && *event.StateKey == h.userID.String() &&
		event.Content.Membership == MembershipInvite &&
		!event.RoomID.IsZero() {

		h.metrics.EventsTotal.WithLabelValues("invite_join").Inc()
		logger.Info("invited to room, joining",
			"room_id", event.RoomID,
			"sender", event.Sender,
		)

		if _, err := h.joiner.JoinRoom(ctx, event.RoomID); err != nil {
			logger.Error("failed to join room on invite",
				"room_id", event.RoomID,
				"error", err,
			)
			h.metrics.JoinsTotal.WithLabelValues("error").Inc()
			return
		}
		h.metrics.JoinsTotal.WithLabelValues("ok").Inc()
		return
	}

	logger.Debug("unhandled event",
		"type", event.Type,
		"sender", event.Sender,
	)
	h.metrics.EventsTotal.WithLabelValues("unhandled").Inc()
}

// authorize compares the request's bearer credential against the
// registration's homeserver-issued secret.
func (h *Handler) authorize(request *http.Request) *Error {
	credential, found := strings.CutPrefix(request.Header.Get("Authorization"), "Bearer ")
	if !found || credential == "" {
		return Unauthorized("missing bearer token")
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(h.registration.HSToken)) != 1 {
		return Unauthorized("bad bearer token")
	}
	return nil
}

// asProtocolError converts a binder error into a *Error for the
// response path. Bind always returns *Error; the fallback guards
// against a future refactor breaking that invariant silently.
func asProtocolError(err error) *Error {
	var protocolError *Error
	if errors.As(err, &protocolError) {
		return protocolError
	}
	return BadJSON(err.Error())
}
