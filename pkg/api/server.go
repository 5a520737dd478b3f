package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weftworks/weft/pkg/codehash"
	"github.com/weftworks/weft/pkg/contentstore"
	"github.com/weftworks/weft/pkg/funds"
	"github.com/weftworks/weft/pkg/ledger"
	"github.com/weftworks/weft/pkg/market"
	"github.com/weftworks/weft/pkg/mint"
	"github.com/weftworks/weft/pkg/registry"
	"github.com/weftworks/weft/pkg/telemetry"
	"github.com/weftworks/weft/pkg/vault"
)

// Server exposes the ledger over JSON/HTTP. The signer context normally
// supplied by the wallet collaborator is stood in for by the
// X-Weft-Account header.
type Server struct {
	Ledger      *ledger.Ledger
	Deployments *contentstore.Deployments
	Events      *telemetry.MemoryPublisher
	Logger      *slog.Logger
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/events", s.handleEvents)

	mux.HandleFunc("POST /v1/code", s.handleDeployCode)

	mux.HandleFunc("POST /v1/templates", s.handleRegisterTemplate)
	mux.HandleFunc("GET /v1/templates", s.handleListTemplates)
	mux.HandleFunc("GET /v1/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("POST /v1/templates/{id}/price", s.handleSetTemplatePrice)
	mux.HandleFunc("POST /v1/templates/{id}/listed", s.handleSetTemplateListed)
	mux.HandleFunc("POST /v1/templates/{id}/defaults", s.handleUpdateDefaults)

	mux.HandleFunc("POST /v1/tickets", s.handlePurchaseTicket)
	mux.HandleFunc("POST /v1/clones", s.handleClone)

	mux.HandleFunc("GET /v1/vault", s.handleVault)
	mux.HandleFunc("POST /v1/vault/{template}/run", s.handleRun)
	mux.HandleFunc("DELETE /v1/vault/{template}", s.handleBurn)
	mux.HandleFunc("POST /v1/vault/{template}/schedule", s.handleSchedule)
	mux.HandleFunc("DELETE /v1/vault/{template}/schedule", s.handleUnschedule)

	mux.HandleFunc("GET /v1/listings", s.handleListings)
	mux.HandleFunc("POST /v1/listings", s.handleCreateListing)
	mux.HandleFunc("DELETE /v1/listings/{id}", s.handleCancelListing)
	mux.HandleFunc("POST /v1/listings/{id}/price", s.handleUpdateListingPrice)
	mux.HandleFunc("POST /v1/listings/{id}/purchase", s.handlePurchaseListing)

	mux.HandleFunc("GET /v1/balance", s.handleBalance)
	mux.HandleFunc("POST /v1/faucet", s.handleFaucet)

	mux.HandleFunc("POST /v1/platform/fee", s.handleSetFee)
	mux.HandleFunc("POST /v1/platform/collector", s.handleSetCollector)

	return AuthMiddleware(s.Logger, RateLimitMiddleware(newAccountLimiter(), mux))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeErr maps the ledger's error taxonomy onto HTTP statuses:
// validation 400, conflict 409, missing 404, funds 402.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrTemplateNotFound),
		errors.Is(err, registry.ErrParentNotFound),
		errors.Is(err, market.ErrListingNotFound),
		errors.Is(err, vault.ErrInstanceNotFound),
		errors.Is(err, mint.ErrTicketNotFound),
		errors.Is(err, contentstore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrNotCreator),
		errors.Is(err, market.ErrNotSeller),
		errors.Is(err, market.ErrNotPlatformOwner):
		status = http.StatusForbidden
	case errors.Is(err, vault.ErrAlreadyOwned),
		errors.Is(err, mint.ErrTicketConsumed),
		errors.Is(err, mint.ErrTicketMismatch),
		errors.Is(err, codehash.ErrCodeMismatch):
		status = http.StatusConflict
	case errors.Is(err, funds.ErrInsufficientFunds),
		errors.Is(err, vault.ErrSchedulingFeeFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, registry.ErrPriceOutOfBounds),
		errors.Is(err, market.ErrPriceOutOfBounds),
		errors.Is(err, market.ErrFeeOutOfBounds),
		errors.Is(err, market.ErrExactPayment),
		errors.Is(err, mint.ErrExactPayment),
		errors.Is(err, mint.ErrTicketRequired),
		errors.Is(err, registry.ErrHasClones),
		errors.Is(err, codehash.ErrCodeUnavailable),
		errors.Is(err, funds.ErrNegativeAmount):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
