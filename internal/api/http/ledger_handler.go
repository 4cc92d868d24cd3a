package http

import (
	"net/http"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/service"
)

type chartOfAccountRequest struct {
	Name  string         `json:"name"`
	Names []domain.Named `json:"names,omitempty"`
}

type ledgerRequest struct {
	Name             string         `json:"name"`
	ChartOfAccountID uuid.UUID      `json:"chart_of_account_id"`
	Names            []domain.Named `json:"names,omitempty"`
}

// LedgerHandler serves charts of accounts, ledgers and ledger accounts.
type LedgerHandler struct {
	coaSvc    service.ChartOfAccountService
	ledgerSvc service.LedgerService
}

func NewLedgerHandler(coaSvc service.ChartOfAccountService, ledgerSvc service.LedgerService) *LedgerHandler {
	return &LedgerHandler{coaSvc: coaSvc, ledgerSvc: ledgerSvc}
}

func (h *LedgerHandler) CreateChartOfAccount(w http.ResponseWriter, r *http.Request) {
	user, err := GetUserFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req chartOfAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	coa, err := h.coaSvc.NewChartOfAccount(r.Context(), user, &domain.ChartOfAccount{Name: req.Name}, req.Names)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, coa)
}

func (h *LedgerHandler) GetChartOfAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid chart of account id")
		return
	}
	coa, err := h.coaSvc.FindChartOfAccountByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coa)
}

func (h *LedgerHandler) CreateLedger(w http.ResponseWriter, r *http.Request) {
	user, err := GetUserFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ledgerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	ledger, err := h.ledgerSvc.NewLedger(r.Context(), user,
		&domain.Ledger{Name: req.Name, ChartOfAccountID: req.ChartOfAccountID}, req.Names)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ledger)
}

func (h *LedgerHandler) ListLedgers(w http.ResponseWriter, r *http.Request) {
	ledgers, err := h.ledgerSvc.ListLedgers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgers)
}

func (h *LedgerHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid ledger id")
		return
	}
	ledger, err := h.ledgerSvc.FindLedgerByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

func (h *LedgerHandler) CreateLedgerAccount(w http.ResponseWriter, r *http.Request) {
	user, err := GetUserFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ledgerID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid ledger id")
		return
	}
	var req domain.NewLedgerAccount
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	req.LedgerID = ledgerID
	account, err := h.ledgerSvc.NewLedgerAccount(r.Context(), user, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *LedgerHandler) ListLedgerAccounts(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid ledger id")
		return
	}
	if name := r.URL.Query().Get("name"); name != "" {
		account, err := h.ledgerSvc.FindLedgerAccount(r.Context(), ledgerID, name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, []domain.LedgerAccount{*account})
		return
	}
	accounts, err := h.ledgerSvc.ListLedgerAccounts(r.Context(), ledgerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *LedgerHandler) GetLedgerAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid account id")
		return
	}
	account, err := h.ledgerSvc.FindLedgerAccountByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}
