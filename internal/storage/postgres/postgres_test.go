// internal/storage/postgres/postgres_test.go
package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/isuramakingshifts/Wallets-Manager/internal/blockchain"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStorage(t *testing.T) *postgresStorage {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "wallets.db") + "?_foreign_keys=1"
	s, err := open(sqlite.Open(dsn), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.RunMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func countRows(t *testing.T, s *postgresStorage, model interface{}, wallet string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Where("wallet_address = ?", wallet).Count(&n).Error)
	return n
}

func TestCommitRegistration_EmptySummary(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CommitRegistration(ctx, "W1", "Whale", "whales", blockchain.ActivitySummary{}))

	assert.Equal(t, int64(1), countRows(t, s, &models.Wallet{}, "W1"))
	assert.Equal(t, int64(0), countRows(t, s, &models.WalletToken{}, "W1"))
}

func TestCommitRegistration_WritesTokenRows(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	summary := blockchain.ActivitySummary{
		{TokenAccount: "acc1", Mint: "mintA", TxCount: 12},
		{TokenAccount: "acc2", Mint: "mintB", TxCount: 0},
		{TokenAccount: "acc3", Mint: "mintC", TxCount: 75},
	}
	require.NoError(t, s.CommitRegistration(ctx, "W1", "Whale", "whales", summary))

	wallet, err := s.GetWallet(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, "Whale", wallet.Name)
	assert.Equal(t, "whales", wallet.Category)
	require.Len(t, wallet.Tokens, 3)
	for i, tok := range wallet.Tokens {
		assert.Equal(t, summary[i].Mint, tok.MintAddress)
		assert.Equal(t, summary[i].TxCount, tok.TxCount)
		assert.Equal(t, "W1", tok.WalletAddress)
	}
	assert.Equal(t, 87, wallet.TotalTransactions())
}

func TestCommitRegistration_DuplicateWalletRollsBack(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first := blockchain.ActivitySummary{{TokenAccount: "acc1", Mint: "mintA", TxCount: 1}}
	require.NoError(t, s.CommitRegistration(ctx, "W1", "Whale", "whales", first))

	second := blockchain.ActivitySummary{
		{TokenAccount: "acc1", Mint: "mintA", TxCount: 2},
		{TokenAccount: "acc2", Mint: "mintB", TxCount: 3},
	}
	err := s.CommitRegistration(ctx, "W1", "Other", "misc", second)

	var persistErr *storage.PersistenceError
	require.True(t, errors.As(err, &persistErr), "got %v", err)
	assert.Equal(t, "insert wallet", persistErr.Op)
	assert.Equal(t, "W1", persistErr.Wallet)
	assert.True(t, persistErr.Duplicate())

	assert.Equal(t, int64(1), countRows(t, s, &models.Wallet{}, "W1"))
	assert.Equal(t, int64(1), countRows(t, s, &models.WalletToken{}, "W1"))
}

func TestCommitRegistration_TokenFailureRollsBackWallet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	injected := errors.New("disk full")
	err := s.db.Callback().Create().Before("gorm:create").Register("test:fail_wallet_tokens", func(tx *gorm.DB) {
		if tx.Statement.Table == "wallet_tokens" {
			_ = tx.AddError(injected)
		}
	})
	require.NoError(t, err)

	summary := blockchain.ActivitySummary{{TokenAccount: "acc1", Mint: "mintA", TxCount: 4}}
	err = s.CommitRegistration(ctx, "W2", "Fund", "funds", summary)

	var persistErr *storage.PersistenceError
	require.True(t, errors.As(err, &persistErr), "got %v", err)
	assert.Equal(t, "insert tokens", persistErr.Op)
	assert.ErrorIs(t, err, injected)
	assert.False(t, persistErr.Duplicate())

	assert.Equal(t, int64(0), countRows(t, s, &models.Wallet{}, "W2"))
	assert.Equal(t, int64(0), countRows(t, s, &models.WalletToken{}, "W2"))
}

func TestCommitRegistration_CancelledContext(t *testing.T) {
	s := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.CommitRegistration(ctx, "W3", "Late", "misc", blockchain.ActivitySummary{})

	var persistErr *storage.PersistenceError
	require.True(t, errors.As(err, &persistErr), "got %v", err)
	assert.Equal(t, int64(0), countRows(t, s, &models.Wallet{}, "W3"))
}

func TestListWallets(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CommitRegistration(ctx, "W1", "One", "whales",
		blockchain.ActivitySummary{{Mint: "mintA", TxCount: 1}}))
	require.NoError(t, s.CommitRegistration(ctx, "W2", "Two", "funds", nil))
	require.NoError(t, s.CommitRegistration(ctx, "W3", "Three", "whales",
		blockchain.ActivitySummary{{Mint: "mintB", TxCount: 2}, {Mint: "mintC", TxCount: 3}}))

	all, err := s.ListWallets(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "W1", all[0].WalletAddress)
	assert.Equal(t, "W3", all[2].WalletAddress)
	assert.Len(t, all[2].Tokens, 2)

	whales, err := s.ListWallets(ctx, "whales")
	require.NoError(t, err)
	require.Len(t, whales, 2)
	for _, w := range whales {
		assert.Equal(t, "whales", w.Category)
	}

	none, err := s.ListWallets(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetWallet_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetWallet(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrWalletNotFound)
}
