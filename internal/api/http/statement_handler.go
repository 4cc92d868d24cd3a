package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/service"
)

// statementResponse adds both balances to the stored statement.
type statementResponse struct {
	*domain.AccountStmt
	DebitBalance  decimal.Decimal `json:"debit_balance"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
}

func newStatementResponse(stmt *domain.AccountStmt) statementResponse {
	return statementResponse{
		AccountStmt:   stmt,
		DebitBalance:  stmt.DebitBalance(),
		CreditBalance: stmt.CreditBalance(),
	}
}

// StatementHandler serves account statements.
type StatementHandler struct {
	stmtSvc service.AccountStmtService
}

func NewStatementHandler(stmtSvc service.AccountStmtService) *StatementHandler {
	return &StatementHandler{stmtSvc: stmtSvc}
}

// ReadStatement computes the statement at ?at= without storing it.
func (h *StatementHandler) ReadStatement(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid account id")
		return
	}
	at, err := queryTime(r, "at")
	if err != nil {
		badRequest(w, "invalid at: "+err.Error())
		return
	}
	stmt, err := h.stmtSvc.ReadStmt(r.Context(), accountID, at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatementResponse(stmt))
}

func (h *StatementHandler) CreateStatement(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid account id")
		return
	}
	at, err := queryTime(r, "at")
	if err != nil {
		badRequest(w, "invalid at: "+err.Error())
		return
	}
	stmt, err := h.stmtSvc.CreateStmt(r.Context(), accountID, at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if stmt.Closed() {
		status = http.StatusOK
	}
	writeJSON(w, status, newStatementResponse(stmt))
}

func (h *StatementHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid statement id")
		return
	}
	stmt, err := h.stmtSvc.FindStmtByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatementResponse(stmt))
}

func (h *StatementHandler) CloseStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid statement id")
		return
	}
	stmt, err := h.stmtSvc.CloseStmt(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatementResponse(stmt))
}
