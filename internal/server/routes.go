package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sewing848/decayd/internal/amount"
	"github.com/sewing848/decayd/internal/engine"
	"github.com/sewing848/decayd/internal/ledger"
)

// writeDomainError maps the ledger error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrLedgerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidRecipient):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientBalance), errors.Is(err, ledger.ErrOverflow):
		status = http.StatusConflict
	}
	http.Error(w, `{"error":"`+err.Error()+`"}`, status)
}

func infoJSON(info *engine.LedgerInfo) map[string]any {
	return map[string]any{
		"id":           info.ID,
		"name":         info.Name,
		"symbol":       info.Symbol,
		"decimals":     info.Decimals,
		"decay_rate":   amount.Format(info.DecayRate),
		"self_address": info.SelfAddr,
		"total_raw":    amount.Format(info.TotalRaw),
		"created_at":   info.CreatedAt,
	}
}

func (s *Server) handleCreateLedger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Symbol    string `json:"symbol"`
		DecayRate string `json:"decay_rate"` // tokens per second, decimal string
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Symbol == "" {
		http.Error(w, `{"error":"name and symbol required"}`, http.StatusBadRequest)
		return
	}
	rate, err := amount.Parse(req.DecayRate)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	info, err := s.eng.CreateLedger(req.Name, req.Symbol, rate)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(infoJSON(info))
}

func (s *Server) handleListLedgers(w http.ResponseWriter, r *http.Request) {
	infos, err := s.eng.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(infos))
	for i := range infos {
		out = append(out, infoJSON(&infos[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	info, err := s.eng.Info(chi.URLParam(r, "ledgerID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(infoJSON(info))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	holderParam := r.URL.Query().Get("holder")
	if holderParam == "" {
		http.Error(w, `{"error":"holder required"}`, http.StatusBadRequest)
		return
	}
	holder, err := ledger.ParseAddress(holderParam)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	units, err := s.eng.Balance(chi.URLParam(r, "ledgerID"), holder)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"holder":        holder.String(),
		"balance":       amount.Format(units),
		"balance_units": strconv.FormatUint(units, 10),
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	from, err := ledger.ParseAddress(req.From)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	to, err := ledger.ParseAddress(req.To)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	units, err := amount.Parse(req.Amount)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	mv, err := s.eng.Transfer(chi.URLParam(r, "ledgerID"), from, to, units)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(movementJSON(mv.From, mv.To, mv.Amount, mv.OccurredAt))
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	to, err := ledger.ParseAddress(req.To)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	units, err := amount.Parse(req.Amount)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	mv, err := s.eng.Mint(chi.URLParam(r, "ledgerID"), to, units)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(movementJSON(mv.From, mv.To, mv.Amount, mv.OccurredAt))
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	ledgerID := chi.URLParam(r, "ledgerID")

	// The movement log is served straight from the store; verify the
	// ledger exists so unknown ids are a 404, not an empty list.
	if _, err := s.eng.Info(ledgerID); err != nil {
		writeDomainError(w, err)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	rows, err := s.db.ListTransfers(ledgerID, limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(rows))
	for _, tr := range rows {
		out = append(out, map[string]any{
			"from":         tr.FromAddr,
			"to":           tr.ToAddr,
			"amount":       amount.Format(tr.Amount),
			"amount_units": strconv.FormatUint(tr.Amount, 10),
			"occurred_at":  tr.OccurredAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func movementJSON(from, to ledger.Address, units uint64, occurredAt int64) map[string]any {
	return map[string]any{
		"from":         from.String(),
		"to":           to.String(),
		"amount":       amount.Format(units),
		"amount_units": strconv.FormatUint(units, 10),
		"occurred_at":  occurredAt,
	}
}
