package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/hashing"
	"postings-ledger/internal/security"
)

type MockPostingService struct{ mock.Mock }

func (m *MockPostingService) NewPosting(ctx context.Context, posting *domain.Posting) (*domain.Posting, error) {
	args := m.Called(ctx, posting)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Posting), args.Error(1)
}

func (m *MockPostingService) FindPostingByID(ctx context.Context, id uuid.UUID) (*domain.Posting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Posting), args.Error(1)
}

func (m *MockPostingService) FindPostingsByOperationID(ctx context.Context, oprID domain.Digest) ([]domain.Posting, error) {
	args := m.Called(ctx, oprID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Posting), args.Error(1)
}

func (m *MockPostingService) FindPostingLines(ctx context.Context, accountID uuid.UUID, from, to time.Time, page domain.PageRequest) (*domain.PostingLinePage, error) {
	args := m.Called(ctx, accountID, from, to, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingLinePage), args.Error(1)
}

func (m *MockPostingService) FindPostingLineByID(ctx context.Context, accountID, lineID uuid.UUID) (*domain.PostingLine, error) {
	args := m.Called(ctx, accountID, lineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingLine), args.Error(1)
}

func (m *MockPostingService) VerifyChain(ctx context.Context, ledgerID uuid.UUID) (*domain.ChainReport, error) {
	args := m.Called(ctx, ledgerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChainReport), args.Error(1)
}

type MockAccountStmtService struct{ mock.Mock }

func (m *MockAccountStmtService) stmt(args mock.Arguments) (*domain.AccountStmt, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountStmt), args.Error(1)
}

func (m *MockAccountStmtService) ReadStmt(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error) {
	return m.stmt(m.Called(ctx, accountID, refTime))
}

func (m *MockAccountStmtService) CreateStmt(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error) {
	return m.stmt(m.Called(ctx, accountID, refTime))
}

func (m *MockAccountStmtService) CloseStmt(ctx context.Context, stmtID uuid.UUID) (*domain.AccountStmt, error) {
	return m.stmt(m.Called(ctx, stmtID))
}

func (m *MockAccountStmtService) FindStmtByID(ctx context.Context, id uuid.UUID) (*domain.AccountStmt, error) {
	return m.stmt(m.Called(ctx, id))
}

const testSecret = "0123456789abcdef0123456789abcdef"

type testAPI struct {
	router   http.Handler
	tokens   security.TokenManager
	postings *MockPostingService
	stmts    *MockAccountStmtService
}

func newTestAPI() *testAPI {
	api := &testAPI{
		tokens:   security.NewTokenManager(testSecret, time.Hour),
		postings: &MockPostingService{},
		stmts:    &MockAccountStmtService{},
	}
	api.router = NewRouter(&Services{Posting: api.postings, Statement: api.stmts}, api.tokens)
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any, scope ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if scope != nil {
		token, err := a.tokens.GenerateAccessToken("Alice", scope)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAuth(t *testing.T) {
	api := newTestAPI()

	t.Run("Health needs no token", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Missing token", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/v1/postings/"+domain.NewID().String(), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rec).Error)
	})

	t.Run("Malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ledgers", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Missing scope", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/v1/statements/"+domain.NewID().String()+"/close", nil, security.ScopeRead)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		api.stmts.AssertNotCalled(t, "CloseStmt", mock.Anything, mock.Anything)
	})
}

func TestPostingHandler(t *testing.T) {
	ledgerID, cash, loans := domain.NewID(), domain.NewID(), domain.NewID()
	body := map[string]any{
		"operation_id":   "invoice-42",
		"operation_type": "invoice",
		"posting_time":   "2025-01-10T00:00:00Z",
		"ledger_id":      ledgerID,
		"lines": []map[string]any{
			{"account_id": cash, "debit_amount": "100.00"},
			{"account_id": loans, "credit_amount": 100},
		},
	}

	t.Run("Create digests raw references", func(t *testing.T) {
		api := newTestAPI()
		api.postings.On("NewPosting", mock.Anything, mock.AnythingOfType("*domain.Posting")).
			Return(&domain.Posting{ID: domain.NewID(), LedgerID: ledgerID}, nil)

		rec := api.do(t, http.MethodPost, "/api/v1/postings", body, security.ScopeWrite)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		p := api.postings.Calls[0].Arguments.Get(1).(*domain.Posting)
		assert.True(t, p.RecordUser.Equal(hashing.UserDetails("alice")))
		assert.True(t, p.OperationID.Equal(hashing.Text("invoice-42")))
		assert.True(t, p.OperationType.Equal(hashing.Text("invoice")))
		assert.Nil(t, p.OperationDetails)
		assert.Equal(t, ledgerID, p.LedgerID)
		require.Len(t, p.Lines, 2)
		assert.True(t, p.Lines[0].DebitAmount.Equal(decimal.NewFromInt(100)))
		assert.True(t, p.Lines[1].CreditAmount.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), p.PostingTime.UTC())
	})

	t.Run("Unbalanced maps to bad request", func(t *testing.T) {
		api := newTestAPI()
		api.postings.On("NewPosting", mock.Anything, mock.Anything).
			Return(nil, domain.ValidationError{Err: domain.ErrDoubleEntry, Field: "lines", Message: "debit 100 credit 90"})

		rec := api.do(t, http.MethodPost, "/api/v1/postings", body, security.ScopeWrite)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).ErrorDescription, "debits do not equal credits")
	})

	t.Run("Unknown fields rejected", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodPost, "/api/v1/postings", map[string]any{"hash": "00"}, security.ScopeWrite)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		api.postings.AssertNotCalled(t, "NewPosting", mock.Anything, mock.Anything)
	})

	t.Run("Not found", func(t *testing.T) {
		api := newTestAPI()
		id := domain.NewID()
		api.postings.On("FindPostingByID", mock.Anything, id).Return(nil, domain.ErrPostingNotFound)

		rec := api.do(t, http.MethodGet, "/api/v1/postings/"+id.String(), nil, security.ScopeRead)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Invalid id", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodGet, "/api/v1/postings/not-a-uuid", nil, security.ScopeRead)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Lookup by operation", func(t *testing.T) {
		api := newTestAPI()
		api.postings.On("FindPostingsByOperationID", mock.Anything, hashing.Text("invoice-42")).
			Return([]domain.Posting{{ID: domain.NewID()}, {ID: domain.NewID()}}, nil)

		rec := api.do(t, http.MethodGet, "/api/v1/postings?operation_id=invoice-42", nil, security.ScopeRead)
		require.Equal(t, http.StatusOK, rec.Code)
		var postings []domain.Posting
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&postings))
		assert.Len(t, postings, 2)
	})

	t.Run("Lines are paged", func(t *testing.T) {
		api := newTestAPI()
		from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		line := domain.PostingLine{ID: domain.NewID(), AccountID: cash, DebitAmount: decimal.NewFromInt(100)}
		api.postings.On("FindPostingLines", mock.Anything, cash, from, to, domain.PageRequest{Limit: 1, Offset: 2}).
			Return(&domain.PostingLinePage{Lines: []domain.PostingLine{line}, Total: 3, Limit: 1, Offset: 2}, nil)

		path := "/api/v1/accounts/" + cash.String() + "/lines?from=2025-01-01T00:00:00Z&to=2025-02-01T00:00:00Z&limit=1&offset=2"
		rec := api.do(t, http.MethodGet, path, nil, security.ScopeRead)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var page domain.PostingLinePage
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
		assert.Equal(t, int64(3), page.Total)
		require.Len(t, page.Lines, 1)
		assert.Equal(t, line.ID, page.Lines[0].ID)
	})

	t.Run("Malformed limit", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodGet, "/api/v1/accounts/"+cash.String()+"/lines?limit=ten", nil, security.ScopeRead)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		api.postings.AssertNotCalled(t, "FindPostingLines", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Storage failure hides details", func(t *testing.T) {
		api := newTestAPI()
		api.postings.On("VerifyChain", mock.Anything, ledgerID).Return(nil, domain.DbError("list postings", assert.AnError))

		rec := api.do(t, http.MethodGet, "/api/v1/ledgers/"+ledgerID.String()+"/chain", nil, security.ScopeRead)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal error", decodeError(t, rec).ErrorDescription)
	})

	t.Run("Chain report", func(t *testing.T) {
		api := newTestAPI()
		broken := domain.NewID()
		api.postings.On("VerifyChain", mock.Anything, ledgerID).Return(&domain.ChainReport{
			LedgerID: ledgerID, Checked: 3, Broken: []domain.ChainBreak{{PostingID: broken, Reason: "hash mismatch"}},
		}, nil)

		rec := api.do(t, http.MethodGet, "/api/v1/ledgers/"+ledgerID.String()+"/chain", nil, security.ScopeRead)
		require.Equal(t, http.StatusOK, rec.Code)
		var report domain.ChainReport
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
		assert.Equal(t, 3, report.Checked)
		assert.Equal(t, broken, report.Broken[0].PostingID)
	})
}

func TestStatementHandler(t *testing.T) {
	accountID := domain.NewID()

	t.Run("Read at time includes balances", func(t *testing.T) {
		api := newTestAPI()
		at := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
		api.stmts.On("ReadStmt", mock.Anything, accountID, mock.MatchedBy(func(t time.Time) bool { return t.Equal(at) })).
			Return(&domain.AccountStmt{AccountID: accountID, TotalDebit: decimal.NewFromInt(150), TotalCredit: decimal.NewFromInt(20),
				Status: domain.StmtStatusSimulated}, nil)

		rec := api.do(t, http.MethodGet, "/api/v1/accounts/"+accountID.String()+"/statement?at=2025-03-31T00:00:00Z", nil, security.ScopeRead)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "130", resp["debit_balance"])
		assert.Equal(t, "-130", resp["credit_balance"])
		assert.Equal(t, string(domain.StmtStatusSimulated), resp["stmt_status"])
	})

	t.Run("Invalid time", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodGet, "/api/v1/accounts/"+accountID.String()+"/statement?at=yesterday", nil, security.ScopeRead)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Close twice conflicts", func(t *testing.T) {
		api := newTestAPI()
		id := domain.NewID()
		api.stmts.On("CloseStmt", mock.Anything, id).Return(nil, domain.ErrStatementAlreadyClosed)

		rec := api.do(t, http.MethodPost, "/api/v1/statements/"+id.String()+"/close", nil, security.ScopeClose)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Create returns created", func(t *testing.T) {
		api := newTestAPI()
		api.stmts.On("CreateStmt", mock.Anything, accountID, mock.Anything).
			Return(&domain.AccountStmt{ID: domain.NewID(), AccountID: accountID, Status: domain.StmtStatusSimulated}, nil)

		rec := api.do(t, http.MethodPost, "/api/v1/accounts/"+accountID.String()+"/statements", nil, security.ScopeWrite)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}
