package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/codehash"
	"github.com/weftworks/weft/pkg/contentstore"
	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/funds"
	"github.com/weftworks/weft/pkg/ledger"
	"github.com/weftworks/weft/pkg/market"
	"github.com/weftworks/weft/pkg/registry"
	"github.com/weftworks/weft/pkg/sched"
	"github.com/weftworks/weft/pkg/telemetry"
	"github.com/weftworks/weft/pkg/vault"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	reg := registry.NewMemoryRegistry()
	bank := funds.NewMemoryBank()
	deployments := contentstore.NewDeployments(contentstore.NewMemoryStore())
	verifier := codehash.NewVerifier(deployments)
	events := telemetry.NewMemoryPublisher()

	mkt, err := market.New("platform", "platform-fees", 200, bank)
	require.NoError(t, err)

	bridge := &vault.Bridge{
		Scheduler: sched.NewMemoryScheduler(),
		Bank:      bank,
		Fee:       domain.Micro / 100,
		Events:    events,
	}

	l := ledger.New(reg, verifier, bank, mkt, bridge, ledger.WithEvents(events))
	s := &Server{
		Ledger:      l,
		Deployments: deployments,
		Events:      events,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return s.Routes()
}

func do(t *testing.T, h http.Handler, method, path, account string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if account != "" {
		req.Header.Set("X-Weft-Account", account)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFullFlowOverHTTP(t *testing.T) {
	h := newTestHandler(t)

	// Creator deploys code, then registers the template at 1.0
	rec := do(t, h, http.MethodPost, "/v1/code", "alice", map[string]string{
		"name": "momentum",
		"code": "def run(): pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/templates", "alice", map[string]any{
		"name":            "momentum",
		"price_micro":     1_000_000,
		"config_defaults": map[string]any{"interval": "1h"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tpl := decodeBody[domain.Template](t, rec)
	require.NotZero(t, tpl.ID)

	// Buyer funds up and purchases a clone ticket with exact payment
	rec = do(t, h, http.MethodPost, "/v1/faucet", "bob", map[string]int64{"amount_micro": 10_000_000})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/tickets", "bob", map[string]any{
		"template_id":   tpl.ID,
		"payment_micro": 1_000_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ticket := decodeBody[map[string]string](t, rec)["ticket_id"]
	require.NotEmpty(t, ticket)

	rec = do(t, h, http.MethodPost, "/v1/clones", "bob", map[string]any{
		"template_id": tpl.ID,
		"ticket_id":   ticket,
		"overrides":   map[string]any{"interval": "4h"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/vault", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	held := decodeBody[[]domain.Instance](t, rec)
	require.Len(t, held, 1)
	assert.Equal(t, "4h", held[0].Config["interval"])

	// Resale: bob lists at 2.0, carol buys
	rec = do(t, h, http.MethodPost, "/v1/listings", "bob", map[string]any{
		"template_id": tpl.ID,
		"price_micro": 2_000_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	listingID := decodeBody[map[string]uint64](t, rec)["listing_id"]

	rec = do(t, h, http.MethodPost, "/v1/faucet", "carol", map[string]int64{"amount_micro": 5_000_000})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/listings/"+itoa(listingID)+"/purchase", "carol", map[string]int64{
		"payment_micro": 2_000_000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Seller nets 1.96 on top of the 9.0 left after the ticket
	rec = do(t, h, http.MethodGet, "/v1/balance", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 10_960_000, bal["balance_micro"])

	// Listing is gone for everyone
	rec = do(t, h, http.MethodPost, "/v1/listings/"+itoa(listingID)+"/purchase", "dave", map[string]int64{
		"payment_micro": 2_000_000,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func TestErrorMapping(t *testing.T) {
	h := newTestHandler(t)

	// Unknown template: 404
	rec := do(t, h, http.MethodGet, "/v1/templates/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Missing account header on a mutating route: 400
	rec = do(t, h, http.MethodPost, "/v1/templates", "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Register without deployed code: 400 (code unavailable)
	rec = do(t, h, http.MethodPost, "/v1/templates", "alice", map[string]any{"name": "ghost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Inexact ticket payment: 400
	rec = do(t, h, http.MethodPost, "/v1/code", "alice", map[string]string{"name": "m", "code": "c"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/v1/templates", "alice", map[string]any{
		"name":        "m",
		"price_micro": 1_000_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tpl := decodeBody[domain.Template](t, rec)

	rec = do(t, h, http.MethodPost, "/v1/faucet", "bob", map[string]int64{"amount_micro": 5_000_000})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/v1/tickets", "bob", map[string]any{
		"template_id":   tpl.ID,
		"payment_micro": 999_999,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Consumed ticket replay: 409
	rec = do(t, h, http.MethodPost, "/v1/tickets", "bob", map[string]any{
		"template_id":   tpl.ID,
		"payment_micro": 1_000_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ticket := decodeBody[map[string]string](t, rec)["ticket_id"]
	rec = do(t, h, http.MethodPost, "/v1/clones", "bob", map[string]any{
		"template_id": tpl.ID,
		"ticket_id":   ticket,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPost, "/v1/clones", "carol", map[string]any{
		"template_id": tpl.ID,
		"ticket_id":   ticket,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Non-creator price change: 403
	rec = do(t, h, http.MethodPost, "/v1/templates/"+itoa(uint64(tpl.ID))+"/price", "mallory", map[string]int64{
		"price_micro": 5,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Platform fee from a non-owner: 403
	rec = do(t, h, http.MethodPost, "/v1/platform/fee", "mallory", map[string]int64{"fee_bps": 500})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("WEFT_API_KEY", "sekrit")
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
