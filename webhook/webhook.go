// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mibmo/matrix-free-stuff/lib/metrics"
	"github.com/mibmo/matrix-free-stuff/lib/netutil"
)

// GameID identifies a game in the FreeStuff catalog.
type GameID int64

// Event is the envelope the FreeStuff API posts to webhook endpoints.
// Data is left raw until the event name selects a payload shape.
type Event struct {
	Name   string          `json:"event"`
	Secret string          `json:"secret,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// Handler processes incoming FreeStuff webhooks. It validates the
// shared secret carried in the event body, decodes the payload for
// recognized event names, and invokes the matching callback.
//
// The handler is an http.Handler suitable for use with HTTPServer or
// any standard Go HTTP server/mux.
type Handler struct {
	secret  string
	logger  *slog.Logger
	metrics *metrics.Metrics

	// onFreeGames is called with the decoded game list for each
	// valid "free_games" event. The caller wires this to the room
	// announcer. Callback errors are logged, never surfaced to the
	// sender: the event was valid and retrying would not help.
	onFreeGames func(games []GameID) error
}

// Config carries the dependencies for NewHandler. Secret is optional:
// when empty, events are accepted without secret validation (a secret
// in the event body is logged and ignored).
type Config struct {
	Secret      string
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	OnFreeGames func(games []GameID) error
}

// NewHandler creates a webhook handler. Panics if the logger or the
// free-games callback is missing — a nil callback would silently
// discard events.
func NewHandler(config Config) *Handler {
	if config.Logger == nil {
		panic("webhook.NewHandler: Logger is required")
	}
	if config.OnFreeGames == nil {
		panic("webhook.NewHandler: OnFreeGames callback is required")
	}
	return &Handler{
		secret:      config.Secret,
		logger:      config.Logger,
		metrics:     config.Metrics,
		onFreeGames: config.OnFreeGames,
	}
}

// ServeHTTP handles a single webhook delivery.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	// The FreeStuff dispatcher has historically used both GET and
	// POST for deliveries; accept either.
	if request.Method != http.MethodGet && request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	var event Event
	if err := netutil.DecodeBody(request.Body, &event); err != nil {
		h.logger.Warn("webhook: malformed body", "error", err)
		h.countEvent("malformed")
		http.Error(writer, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.checkSecret(event.Secret); err != nil {
		h.countEvent("unauthorized")
		// 401 with no information disclosure.
		http.Error(writer, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch event.Name {
	case "free_games":
		h.handleFreeGames(writer, event.Data)
	default:
		h.logger.Error("webhook: invalid event", "event", event.Name)
		h.countEvent("invalid_event")
		http.Error(writer, fmt.Sprintf("invalid event: %s", event.Name), http.StatusBadRequest)
	}
}

// checkSecret validates the event's secret against the configured
// one. A configured secret is mandatory for every event; an event
// secret without a configured one is tolerated with a warning so a
// sender can roll out secrets ahead of the receiver.
func (h *Handler) checkSecret(eventSecret string) error {
	switch {
	case h.secret != "" && eventSecret == "":
		h.logger.Warn("webhook: no secret set for event")
		return fmt.Errorf("missing secret")
	case h.secret != "" && eventSecret != h.secret:
		h.logger.Warn("webhook: incorrect secret")
		return fmt.Errorf("incorrect secret")
	case h.secret == "" && eventSecret != "":
		h.logger.Warn("webhook: event had secret, but none is configured")
		return nil
	default:
		return nil
	}
}

func (h *Handler) handleFreeGames(writer http.ResponseWriter, data json.RawMessage) {
	var games []GameID
	if err := json.Unmarshal(data, &games); err != nil {
		h.logger.Error("webhook: failed to deserialize handler data", "error", err)
		h.countEvent("bad_data")
		http.Error(writer, "event serialization failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("webhook: free games event", "count", len(games))

	if err := h.onFreeGames(games); err != nil {
		// The event itself was valid; a redelivery would hit the
		// same failure. Log and acknowledge.
		h.logger.Error("webhook: free games handler failed", "error", err)
	}

	h.countEvent("ok")
	writer.WriteHeader(http.StatusOK)
}

func (h *Handler) countEvent(outcome string) {
	if h.metrics != nil {
		h.metrics.WebhookEventsTotal.WithLabelValues(outcome).Inc()
	}
}
