package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"postings-ledger/internal/security"
	"postings-ledger/internal/service"
)

// Services holds the service dependencies of the HTTP API
type Services struct {
	ChartOfAccount service.ChartOfAccountService
	Ledger         service.LedgerService
	Named          service.NamedService
	Posting        service.PostingService
	Statement      service.AccountStmtService
}

// NewRouter builds the /api/v1 routes. Every route requires a bearer token.
func NewRouter(svc *Services, tm security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(tm))
	RegisterRoutes(api, svc)
	return router
}

// RegisterRoutes registers the ledger endpoints on router
func RegisterRoutes(router *mux.Router, svc *Services) {
	read := func(h http.HandlerFunc) http.HandlerFunc { return RequireScope(security.ScopeRead, h) }
	write := func(h http.HandlerFunc) http.HandlerFunc { return RequireScope(security.ScopeWrite, h) }
	closing := func(h http.HandlerFunc) http.HandlerFunc { return RequireScope(security.ScopeClose, h) }

	ledgers := NewLedgerHandler(svc.ChartOfAccount, svc.Ledger)
	router.HandleFunc("/charts", write(ledgers.CreateChartOfAccount)).Methods(http.MethodPost)
	router.HandleFunc("/charts/{id}", read(ledgers.GetChartOfAccount)).Methods(http.MethodGet)
	router.HandleFunc("/ledgers", write(ledgers.CreateLedger)).Methods(http.MethodPost)
	router.HandleFunc("/ledgers", read(ledgers.ListLedgers)).Methods(http.MethodGet)
	router.HandleFunc("/ledgers/{id}", read(ledgers.GetLedger)).Methods(http.MethodGet)
	router.HandleFunc("/ledgers/{id}/accounts", write(ledgers.CreateLedgerAccount)).Methods(http.MethodPost)
	router.HandleFunc("/ledgers/{id}/accounts", read(ledgers.ListLedgerAccounts)).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}", read(ledgers.GetLedgerAccount)).Methods(http.MethodGet)

	postings := NewPostingHandler(svc.Posting)
	router.HandleFunc("/postings", write(postings.CreatePosting)).Methods(http.MethodPost)
	router.HandleFunc("/postings", read(postings.ListPostings)).Methods(http.MethodGet)
	router.HandleFunc("/postings/{id}", read(postings.GetPosting)).Methods(http.MethodGet)
	router.HandleFunc("/ledgers/{id}/chain", read(postings.VerifyChain)).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/lines", read(postings.ListPostingLines)).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/lines/{lineID}", read(postings.GetPostingLine)).Methods(http.MethodGet)

	stmts := NewStatementHandler(svc.Statement)
	router.HandleFunc("/accounts/{id}/statement", read(stmts.ReadStatement)).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/statements", write(stmts.CreateStatement)).Methods(http.MethodPost)
	router.HandleFunc("/statements/{id}", read(stmts.GetStatement)).Methods(http.MethodGet)
	router.HandleFunc("/statements/{id}/close", closing(stmts.CloseStatement)).Methods(http.MethodPost)

	named := NewNamedHandler(svc.Named)
	router.HandleFunc("/named", read(named.FindNamed)).Methods(http.MethodGet)
	router.HandleFunc("/named", write(named.UpsertNamed)).Methods(http.MethodPost)
	router.HandleFunc("/named/{id}", write(named.UpsertNamed)).Methods(http.MethodPut)
}
