package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/ledger"
)

func caller(r *http.Request) domain.AccountID {
	return domain.AccountID(r.Header.Get("X-Weft-Account"))
}

func requireCaller(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	acct := caller(r)
	if acct == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-Weft-Account header required"})
		return "", false
	}
	return acct, true
}

func decode[T any](w http.ResponseWriter, r *http.Request, dst *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func (s *Server) handleDeployCode(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and code required"})
		return
	}
	hash, err := s.Deployments.Deploy(r.Context(), acct, req.Name, []byte(req.Code))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"hash": hash})
}

func (s *Server) handleRegisterTemplate(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Name           string             `json:"name"`
		PriceMicro     int64              `json:"price_micro"`
		ConfigDefaults map[string]any     `json:"config_defaults"`
		ParentID       *domain.TemplateID `json:"parent_id,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	tpl, err := s.Ledger.RegisterTemplate(r.Context(), ledger.RegisterTemplateRequest{
		Creator:        acct,
		Name:           req.Name,
		Price:          domain.Amount(req.PriceMicro),
		ConfigDefaults: req.ConfigDefaults,
		ParentID:       req.ParentID,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.Ledger.ListTemplates(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tpl, err := s.Ledger.GetTemplate(r.Context(), domain.TemplateID(id))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleSetTemplatePrice(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PriceMicro int64 `json:"price_micro"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Ledger.SetTemplatePrice(r.Context(), domain.TemplateID(id), acct, domain.Amount(req.PriceMicro)); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetTemplateListed(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Listed bool `json:"listed"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Ledger.SetTemplateListed(r.Context(), domain.TemplateID(id), acct, req.Listed); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpdateDefaults(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		ConfigDefaults map[string]any `json:"config_defaults"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Ledger.UpdateTemplateDefaults(r.Context(), domain.TemplateID(id), acct, req.ConfigDefaults); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePurchaseTicket(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		TemplateID   domain.TemplateID `json:"template_id"`
		PaymentMicro int64             `json:"payment_micro"`
	}
	if !decode(w, r, &req) {
		return
	}
	ticketID, err := s.Ledger.PurchaseCloneTicket(r.Context(), req.TemplateID, acct, domain.Amount(req.PaymentMicro))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ticket_id": ticketID})
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		TemplateID domain.TemplateID `json:"template_id"`
		TicketID   domain.TicketID   `json:"ticket_id,omitempty"`
		Overrides  map[string]any    `json:"overrides,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Ledger.Clone(r.Context(), req.TemplateID, acct, req.Overrides, req.TicketID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "cloned"})
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Ledger.Instances(acct))
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "template")
	if !ok {
		return
	}
	ran, err := s.Ledger.RunInstance(r.Context(), acct, domain.TemplateID(id))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ran": ran})
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "template")
	if !ok {
		return
	}
	if err := s.Ledger.BurnInstance(r.Context(), acct, domain.TemplateID(id)); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "burned"})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "template")
	if !ok {
		return
	}
	var req struct {
		Frequency string `json:"frequency"`
	}
	if !decode(w, r, &req) {
		return
	}
	freq, err := time.ParseDuration(req.Frequency)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid frequency"})
		return
	}
	if err := s.Ledger.EnableScheduling(r.Context(), acct, domain.TemplateID(id), freq); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "scheduled"})
}

func (s *Server) handleUnschedule(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "template")
	if !ok {
		return
	}
	if err := s.Ledger.DisableScheduling(r.Context(), acct, domain.TemplateID(id)); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unscheduled"})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	if seller := r.URL.Query().Get("seller"); seller != "" {
		writeJSON(w, http.StatusOK, s.Ledger.ListingsBySeller(domain.AccountID(seller)))
		return
	}
	writeJSON(w, http.StatusOK, s.Ledger.Listings())
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		TemplateID domain.TemplateID `json:"template_id"`
		PriceMicro int64             `json:"price_micro"`
	}
	if !decode(w, r, &req) {
		return
	}
	id, err := s.Ledger.CreateListing(r.Context(), acct, req.TemplateID, domain.Amount(req.PriceMicro))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"listing_id": id})
}

func (s *Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.Ledger.CancelListing(r.Context(), domain.ListingID(id), acct); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleUpdateListingPrice(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PriceMicro int64 `json:"price_micro"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Ledger.UpdateListingPrice(r.Context(), domain.ListingID(id), acct, domain.Amount(req.PriceMicro)); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePurchaseListing(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PaymentMicro int64 `json:"payment_micro"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Ledger.PurchaseListing(r.Context(), domain.ListingID(id), acct, domain.Amount(req.PaymentMicro)); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "purchased"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	bal, err := s.Ledger.Balance(r.Context(), acct)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance_micro": int64(bal), "balance": bal.String()})
}

// handleFaucet credits the caller's account. Development convenience; a
// deployment with a real wallet collaborator disables this route.
func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		AmountMicro int64 `json:"amount_micro"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Ledger.Bank.Deposit(r.Context(), acct, domain.Amount(req.AmountMicro)); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetFee(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		FeeBps int64 `json:"fee_bps"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Ledger.SetPlatformFee(acct, req.FeeBps); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetCollector(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Collector domain.AccountID `json:"collector"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Ledger.SetFeeCollector(acct, req.Collector); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
