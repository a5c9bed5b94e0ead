// internal/registration/pipeline_test.go
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/isuramakingshifts/Wallets-Manager/internal/analyzer"
	"github.com/isuramakingshifts/Wallets-Manager/internal/blockchain"
	"github.com/isuramakingshifts/Wallets-Manager/internal/events"
	"github.com/isuramakingshifts/Wallets-Manager/internal/metrics"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage/postgres"
	"github.com/isuramakingshifts/Wallets-Manager/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
)

// stubChain serves fixed accounts; accounts listed in failing return an error.
type stubChain struct {
	mu       sync.Mutex
	accounts []blockchain.TokenAccount
	counts   map[string]int
	failing  map[string]bool
	calls    int
}

func (s *stubChain) ListTokenAccounts(context.Context, string) ([]blockchain.TokenAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.accounts, nil
}

func (s *stubChain) CountRecentTransactions(_ context.Context, account string, _ int) (blockchain.TxInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failing[account] {
		return blockchain.TxInfo{}, errors.New("cannot decode account")
	}
	return blockchain.TxInfo{Count: s.counts[account], Signatures: make([]string, s.counts[account])}, nil
}

// heliusStub is an in-memory webhook endpoint.
type heliusStub struct {
	mu        sync.Mutex
	addresses []string
	requests  int
}

func (h *heliusStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests++
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(webhook.Webhook{WebhookID: "hook", AccountAddresses: h.addresses})
	case http.MethodPut:
		var body webhook.Webhook
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.addresses = body.AccountAddresses
		_ = json.NewEncoder(w).Encode(body)
	}
}

type pipeline struct {
	chain  *stubChain
	helius *heliusStub
	store  storage.Storage
	bus    *events.Bus
	orch   *Orchestrator
}

func newPipeline(t *testing.T, chain *stubChain) *pipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)

	helius := &heliusStub{addresses: []string{"EXISTING"}}
	srv := httptest.NewServer(helius)
	t.Cleanup(srv.Close)

	registrar, err := webhook.NewRegistrar(webhook.Config{
		BaseURL:     srv.URL,
		APIKey:      "key",
		WebhookID:   "hook",
		CallbackURL: "https://example.com/cb",
	}, srv.Client(), nil, logger)
	require.NoError(t, err)

	store, err := postgres.Open(sqlite.Open(filepath.Join(t.TempDir(), "pipeline.db")+"?_foreign_keys=1"), logger)
	require.NoError(t, err)
	require.NoError(t, store.RunMigrations())
	t.Cleanup(func() { _ = store.Close() })

	bus := events.NewBus(logger, 8)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })

	m := metrics.NewMetrics(prometheus.NewRegistry())
	orch := New(Deps{
		Analyzer:  analyzer.New(chain, analyzer.Options{Metrics: m}, logger),
		Registrar: registrar,
		Gateway:   store,
		Events:    bus,
		Metrics:   m,
		WebhookID: registrar.WebhookID(),
	}, logger)

	return &pipeline{chain: chain, helius: helius, store: store, bus: bus, orch: orch}
}

func TestPipeline_RegistersWalletSkippingBrokenAccount(t *testing.T) {
	wallet := solana.NewWallet().PublicKey().String()
	chain := &stubChain{
		accounts: []blockchain.TokenAccount{
			{Address: "A1", Mint: "M1"},
			{Address: "A2", Mint: "M2"},
		},
		counts:  map[string]int{"A1": 7},
		failing: map[string]bool{"A2": true},
	}
	p := newPipeline(t, chain)

	var completed []events.RegistrationCompletedEvent
	p.bus.SubscribeFunc(events.RegistrationCompleted, func(_ context.Context, e events.Event) error {
		completed = append(completed, e.(events.RegistrationCompletedEvent))
		return nil
	})

	result, err := p.orch.Register(context.Background(), wallet, "Whale", "whales")
	require.NoError(t, err)
	require.Len(t, result.Summary, 1)
	assert.Equal(t, "M1", result.Summary[0].Mint)
	assert.Equal(t, 7, result.Summary[0].TxCount)
	assert.Equal(t, 2, result.MonitoredCount)

	assert.Equal(t, []string{"EXISTING", wallet}, p.helius.addresses)

	stored, err := p.store.GetWallet(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, stored.Tokens, 1)
	assert.Equal(t, "M1", stored.Tokens[0].MintAddress)
	assert.Equal(t, 7, stored.Tokens[0].TxCount)

	require.Len(t, completed, 1)
	assert.Equal(t, result.ID, completed[0].RegistrationID)
}

func TestPipeline_MalformedAddressTouchesNothing(t *testing.T) {
	chain := &stubChain{}
	p := newPipeline(t, chain)

	_, err := p.orch.Register(context.Background(), "definitely-not-a-wallet", "x", "y")

	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageAnalyze, stage)
	assert.True(t, IsInvalidAddress(err))

	assert.Zero(t, chain.calls)
	assert.Zero(t, p.helius.requests)
	wallets, err := p.store.ListWallets(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestPipeline_DuplicateWalletLeavesWebhookUpdated(t *testing.T) {
	wallet := solana.NewWallet().PublicKey().String()
	p := newPipeline(t, &stubChain{})

	var reconcile []events.ReconciliationNeededEvent
	p.bus.SubscribeFunc(events.ReconciliationNeeded, func(_ context.Context, e events.Event) error {
		reconcile = append(reconcile, e.(events.ReconciliationNeededEvent))
		return nil
	})

	_, err := p.orch.Register(context.Background(), wallet, "First", "c")
	require.NoError(t, err)

	_, err = p.orch.Register(context.Background(), wallet, "Second", "c")
	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StagePersist, stage)
	assert.True(t, IsPersistence(err))
	assert.True(t, IsDuplicateWallet(err))

	// the webhook set already held the wallet and stays deduplicated
	assert.Equal(t, []string{"EXISTING", wallet}, p.helius.addresses)
	// the stored row matches the webhook, so nothing needs reconciling
	assert.Empty(t, reconcile)

	stored, err := p.store.GetWallet(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, "First", stored.Name)
}
