package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/hashing"
	"postings-ledger/internal/repository"
)

type ledgerFixture struct {
	ledger *domain.Ledger
	cash   *domain.LedgerAccount
	loans  *domain.LedgerAccount
}

func newLedgerFixture() ledgerFixture {
	coaID := domain.NewID()
	ledger := &domain.Ledger{ID: domain.NewID(), Name: "main", ChartOfAccountID: coaID}
	return ledgerFixture{
		ledger: ledger,
		cash: &domain.LedgerAccount{ID: domain.NewID(), Name: "cash", LedgerID: ledger.ID, ChartOfAccountID: coaID,
			Category: domain.AccountCategoryAsset, BalanceSide: domain.BalanceSideDebit},
		loans: &domain.LedgerAccount{ID: domain.NewID(), Name: "loans", LedgerID: ledger.ID, ChartOfAccountID: coaID,
			Category: domain.AccountCategoryLiability, BalanceSide: domain.BalanceSideCredit},
	}
}

func (f ledgerFixture) posting(opr string, debit, credit string) *domain.Posting {
	return &domain.Posting{
		RecordUser:    hashing.UserDetails("alice"),
		OperationID:   hashing.Text(opr),
		OperationType: hashing.Text("loan"),
		PostingTime:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		LedgerID:      f.ledger.ID,
		Lines: []domain.PostingLine{
			{AccountID: f.cash.ID, DebitAmount: decimal.RequireFromString(debit)},
			{AccountID: f.loans.ID, CreditAmount: decimal.RequireFromString(credit)},
		},
	}
}

// expectValidPosting registers the lookups a valid posting on the fixture
// ledger performs before writing.
func (f ledgerFixture) expectValidPosting(m *mockRepos) {
	m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(f.ledger, nil)
	m.accounts.On("GetByID", mock.Anything, f.cash.ID).Return(f.cash, nil)
	m.accounts.On("GetByID", mock.Anything, f.loans.ID).Return(f.loans, nil)
	m.statements.On("GetFirstClosedAtOrAfter", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
}

func TestPostingService_NewPosting(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	t.Run("First posting has a hash and no antecedent", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		f.expectValidPosting(m)
		m.ledgers.On("Lock", mock.Anything, f.ledger.ID).Return(nil)
		m.postings.On("GetLiveByOperationID", mock.Anything, hashing.Text("op-1")).Return(nil, nil)
		m.postings.On("GetLatestByLedger", mock.Anything, f.ledger.ID).Return(nil, nil)
		m.postings.On("Create", mock.Anything, mock.AnythingOfType("*domain.Posting")).Return(nil)

		in := f.posting("op-1", "100", "100")
		in.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
		p, err := svc.NewPosting(ctx, in)
		require.NoError(t, err)

		assert.NotEqual(t, in.ID, p.ID)
		assert.False(t, p.RecordTime.IsZero())
		assert.Nil(t, p.AntecedentID)
		assert.True(t, p.AntecedentHash.IsZero())
		assert.Len(t, p.Hash, hashing.Size)
		assert.Equal(t, domain.PostingTypeBusinessTx, p.Type)
		assert.Equal(t, domain.PostingStatusPosted, p.Status)
		assert.Equal(t, p.PostingTime, p.OperationTime)
		for _, l := range p.Lines {
			assert.Equal(t, p.ID, l.PostingID)
			assert.Equal(t, p.RecordTime, l.RecordTime)
			assert.True(t, l.OperationID.Equal(p.OperationID))
			assert.NotEmpty(t, l.Hash)
		}
		assert.NoError(t, hashing.Verify(p))
		// the caller's value is left alone
		assert.Equal(t, uuid.MustParse("00000000-0000-0000-0000-000000000001"), in.ID)
		assert.Nil(t, in.Lines[0].Hash)
		m.assertExpectations(t)
	})

	t.Run("Links the latest posting of the ledger", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		f.expectValidPosting(m)

		latest := f.posting("op-0", "5", "5")
		latest.ID = domain.NewID()
		latest.RecordTime = domain.Now().Add(time.Hour)
		latest.Hash = hashing.Text("previous")

		m.ledgers.On("Lock", mock.Anything, f.ledger.ID).Return(nil)
		m.postings.On("GetLiveByOperationID", mock.Anything, mock.Anything).Return(nil, nil)
		m.postings.On("GetLatestByLedger", mock.Anything, f.ledger.ID).Return(latest, nil)
		m.postings.On("Create", mock.Anything, mock.AnythingOfType("*domain.Posting")).Return(nil)

		p, err := svc.NewPosting(ctx, f.posting("op-1", "100", "100"))
		require.NoError(t, err)

		require.NotNil(t, p.AntecedentID)
		assert.Equal(t, latest.ID, *p.AntecedentID)
		assert.True(t, p.AntecedentHash.Equal(latest.Hash))
		assert.True(t, p.RecordTime.After(latest.RecordTime))
		assert.NoError(t, hashing.Verify(p))
	})

	t.Run("Supersedes the live posting of the same operation", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		f.expectValidPosting(m)

		live := f.posting("op-1", "90", "90")
		live.ID = domain.NewID()

		m.ledgers.On("Lock", mock.Anything, f.ledger.ID).Return(nil)
		m.postings.On("GetLiveByOperationID", mock.Anything, hashing.Text("op-1")).Return(live, nil)
		m.postings.On("GetLatestByLedger", mock.Anything, f.ledger.ID).Return(nil, nil)
		m.postings.On("Create", mock.Anything, mock.AnythingOfType("*domain.Posting")).Return(nil)
		m.postings.On("MarkDiscarded", mock.Anything, live.ID, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("time.Time")).Return(nil)

		p, err := svc.NewPosting(ctx, f.posting("op-1", "100", "100"))
		require.NoError(t, err)

		require.NotNil(t, p.DiscardedID)
		assert.Equal(t, live.ID, *p.DiscardedID)
		m.postings.AssertCalled(t, "MarkDiscarded", mock.Anything, live.ID, p.ID, p.RecordTime)
	})

	t.Run("Unbalanced posting is rejected before any lookup", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)

		_, err := svc.NewPosting(ctx, f.posting("op-1", "100.00", "99.99"))
		assert.ErrorIs(t, err, domain.ErrDoubleEntry)
		m.assertExpectations(t)
		m.postings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Equal amounts in different scale balance", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		f.expectValidPosting(m)
		m.ledgers.On("Lock", mock.Anything, f.ledger.ID).Return(nil)
		m.postings.On("GetLiveByOperationID", mock.Anything, mock.Anything).Return(nil, nil)
		m.postings.On("GetLatestByLedger", mock.Anything, f.ledger.ID).Return(nil, nil)
		m.postings.On("Create", mock.Anything, mock.AnythingOfType("*domain.Posting")).Return(nil)

		_, err := svc.NewPosting(ctx, f.posting("op-1", "100.00", "100"))
		assert.NoError(t, err)
	})

	t.Run("Missing posting time", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		in := f.posting("op-1", "1", "1")
		in.PostingTime = time.Time{}

		_, err := svc.NewPosting(ctx, in)
		assert.ErrorIs(t, err, domain.ErrPostingTimeMissing)
	})

	t.Run("Line with both amounts", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		in := f.posting("op-1", "1", "1")
		in.Lines[0].CreditAmount = decimal.NewFromInt(1)
		in.Lines[1].DebitAmount = decimal.NewFromInt(1)

		_, err := svc.NewPosting(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidPostingLine)
	})

	t.Run("Posting before the last closing", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(f.ledger, nil)
		m.accounts.On("GetByID", mock.Anything, f.cash.ID).Return(f.cash, nil)
		m.accounts.On("GetByID", mock.Anything, f.loans.ID).Return(f.loans, nil)
		m.ledgers.On("Lock", mock.Anything, f.ledger.ID).Return(nil)
		closed := &domain.AccountStmt{ID: domain.NewID(), Status: domain.StmtStatusClosed,
			PostingTime: time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)}
		m.statements.On("GetFirstClosedAtOrAfter", mock.Anything, f.cash.ID, mock.Anything).Return(closed, nil)

		_, err := svc.NewPosting(ctx, f.posting("op-1", "1", "1"))
		assert.ErrorIs(t, err, domain.ErrBaselineTime)
		m.postings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Closed periods are checked while holding the ledger lock", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(f.ledger, nil)
		m.accounts.On("GetByID", mock.Anything, f.cash.ID).Return(f.cash, nil)
		m.accounts.On("GetByID", mock.Anything, f.loans.ID).Return(f.loans, nil)

		locked := false
		m.ledgers.On("Lock", mock.Anything, f.ledger.ID).Return(nil).Run(func(mock.Arguments) { locked = true })
		m.statements.On("GetFirstClosedAtOrAfter", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).
			Run(func(mock.Arguments) { assert.True(t, locked, "closed period looked up before the ledger lock") })
		m.postings.On("GetLiveByOperationID", mock.Anything, mock.Anything).Return(nil, nil)
		m.postings.On("GetLatestByLedger", mock.Anything, f.ledger.ID).Return(nil, nil)
		m.postings.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.NewPosting(ctx, f.posting("op-1", "1", "1"))
		require.NoError(t, err)
		m.statements.AssertNumberOfCalls(t, "GetFirstClosedAtOrAfter", 2)
	})

	t.Run("Account of another ledger", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		stranger := *f.cash
		stranger.LedgerID = domain.NewID()
		m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(f.ledger, nil)
		m.accounts.On("GetByID", mock.Anything, f.cash.ID).Return(&stranger, nil)

		_, err := svc.NewPosting(ctx, f.posting("op-1", "1", "1"))
		assert.ErrorIs(t, err, domain.ErrLedgerMismatch)
	})

	t.Run("Unknown ledger", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(nil, repository.ErrNotFound)

		_, err := svc.NewPosting(ctx, f.posting("op-1", "1", "1"))
		assert.ErrorIs(t, err, domain.ErrLedgerNotFound)
	})

	t.Run("Storage failure surfaces as database error", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		f.expectValidPosting(m)
		m.ledgers.On("Lock", mock.Anything, f.ledger.ID).Return(nil)
		m.postings.On("GetLiveByOperationID", mock.Anything, mock.Anything).Return(nil, nil)
		m.postings.On("GetLatestByLedger", mock.Anything, f.ledger.ID).Return(nil, nil)
		m.postings.On("Create", mock.Anything, mock.Anything).Return(domain.DbError("create posting", errors.New("connection reset")))

		_, err := svc.NewPosting(ctx, f.posting("op-1", "1", "1"))
		assert.ErrorIs(t, err, domain.ErrDb)
	})
}

// sealedChain builds n postings linked the way appendPosting links them.
func sealedChain(t *testing.T, f ledgerFixture, n int) []domain.Posting {
	t.Helper()
	var chain []domain.Posting
	for i := 0; i < n; i++ {
		m := newMockRepos()
		m.ledgers.On("Lock", mock.Anything, f.ledger.ID).Return(nil)
		m.postings.On("GetLiveByOperationID", mock.Anything, mock.Anything).Return(nil, nil)
		if len(chain) == 0 {
			m.postings.On("GetLatestByLedger", mock.Anything, f.ledger.ID).Return(nil, nil)
		} else {
			m.postings.On("GetLatestByLedger", mock.Anything, f.ledger.ID).Return(&chain[len(chain)-1], nil)
		}
		m.postings.On("Create", mock.Anything, mock.Anything).Return(nil)
		m.statements.On("GetFirstClosedAtOrAfter", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		p := clonePosting(f.posting("op-"+uuid.NewString(), "10", "10"))
		require.NoError(t, appendPosting(context.Background(), m.repositories(), p))
		chain = append(chain, *p)
	}
	return chain
}

func TestPostingService_VerifyChain(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	t.Run("Intact chain", func(t *testing.T) {
		chain := sealedChain(t, f, 3)
		for k := 1; k < len(chain); k++ {
			assert.True(t, chain[k].AntecedentHash.Equal(chain[k-1].Hash))
		}

		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(f.ledger, nil)
		m.postings.On("ListByLedger", mock.Anything, f.ledger.ID).Return(chain, nil)

		report, err := svc.VerifyChain(ctx, f.ledger.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Checked)
		assert.True(t, report.Intact())
	})

	t.Run("Altered amount is detected", func(t *testing.T) {
		chain := sealedChain(t, f, 3)
		chain[1].Lines[0].DebitAmount = decimal.NewFromInt(11)

		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(f.ledger, nil)
		m.postings.On("ListByLedger", mock.Anything, f.ledger.ID).Return(chain, nil)

		report, err := svc.VerifyChain(ctx, f.ledger.ID)
		require.NoError(t, err)
		require.False(t, report.Intact())
		assert.Equal(t, chain[1].ID, report.Broken[0].PostingID)
	})

	t.Run("Rehashed posting breaks the next link", func(t *testing.T) {
		chain := sealedChain(t, f, 3)
		chain[1].OperationType = hashing.Text("forged")
		require.NoError(t, hashing.Seal(&chain[1]))

		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(f.ledger, nil)
		m.postings.On("ListByLedger", mock.Anything, f.ledger.ID).Return(chain, nil)

		report, err := svc.VerifyChain(ctx, f.ledger.ID)
		require.NoError(t, err)
		require.Len(t, report.Broken, 1)
		assert.Equal(t, chain[2].ID, report.Broken[0].PostingID)
	})

	t.Run("Unknown ledger", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(nil, repository.ErrNotFound)

		_, err := svc.VerifyChain(ctx, f.ledger.ID)
		assert.ErrorIs(t, err, domain.ErrLedgerNotFound)
	})
}

func TestPostingService_FindPostingLines(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	t.Run("Live lines in range", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		lines := []domain.PostingLine{{ID: domain.NewID(), AccountID: f.cash.ID}}
		m.accounts.On("GetByID", mock.Anything, f.cash.ID).Return(f.cash, nil)
		m.lines.On("ListLiveByAccountPage", mock.Anything, f.cash.ID, from, to, domain.PageRequest{Limit: 10, Offset: 20}).
			Return(lines, int64(21), nil)

		res, err := svc.FindPostingLines(ctx, f.cash.ID, from, to, domain.PageRequest{Limit: 10, Offset: 20})
		require.NoError(t, err)
		assert.Equal(t, lines, res.Lines)
		assert.Equal(t, int64(21), res.Total)
		assert.Equal(t, 10, res.Limit)
		assert.Equal(t, 20, res.Offset)
	})

	t.Run("Default page size", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		m.accounts.On("GetByID", mock.Anything, f.cash.ID).Return(f.cash, nil)
		m.lines.On("ListLiveByAccountPage", mock.Anything, f.cash.ID, from, to, domain.PageRequest{Limit: domain.DefaultPageSize}).
			Return([]domain.PostingLine{}, int64(0), nil)

		res, err := svc.FindPostingLines(ctx, f.cash.ID, from, to, domain.PageRequest{})
		require.NoError(t, err)
		assert.Empty(t, res.Lines)
		assert.Equal(t, domain.DefaultPageSize, res.Limit)
	})

	t.Run("Negative offset", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)

		_, err := svc.FindPostingLines(ctx, f.cash.ID, from, to, domain.PageRequest{Offset: -1})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		m.accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Line of another account", func(t *testing.T) {
		m := newMockRepos()
		svc := NewPostingService(m.repositories(), m)
		lineID := domain.NewID()
		m.lines.On("GetByIDAndAccount", mock.Anything, lineID, f.cash.ID).Return(nil, repository.ErrNotFound)

		_, err := svc.FindPostingLineByID(ctx, f.cash.ID, lineID)
		assert.ErrorIs(t, err, domain.ErrPostingNotFound)
	})
}
