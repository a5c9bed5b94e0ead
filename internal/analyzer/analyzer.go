// internal/analyzer/analyzer.go
package analyzer

import (
	"context"

	"github.com/isuramakingshifts/Wallets-Manager/internal/blockchain"
	"github.com/isuramakingshifts/Wallets-Manager/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options tunes the analyzer.
type Options struct {
	// TxLimit caps the signatures fetched per token account.
	TxLimit int
	// Concurrency > 1 counts accounts in parallel. 1 keeps it sequential.
	Concurrency int
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Analyzer builds an activity summary for a wallet.
type Analyzer struct {
	reader blockchain.ChainReader
	opts   Options
	logger *zap.Logger
}

// New creates an analyzer over the given chain reader.
func New(reader blockchain.ChainReader, opts Options, logger *zap.Logger) *Analyzer {
	if opts.TxLimit <= 0 {
		opts.TxLimit = blockchain.DefaultTxLimit
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Analyzer{
		reader: reader,
		opts:   opts,
		logger: logger.Named("analyzer"),
	}
}

// Analyze validates the wallet, lists its token accounts and counts recent
// transactions per account. A failing account is left out of the summary;
// a failing listing aborts the analysis.
func (a *Analyzer) Analyze(ctx context.Context, wallet string) (blockchain.ActivitySummary, error) {
	if _, err := blockchain.ValidateWalletAddress(wallet); err != nil {
		return nil, err
	}

	accounts, err := a.reader.ListTokenAccounts(ctx, wallet)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Analyzing token accounts",
		zap.String("wallet", wallet),
		zap.Int("accounts", len(accounts)),
		zap.Int("concurrency", a.opts.Concurrency))

	slots := make([]*blockchain.TokenActivity, len(accounts))
	if a.opts.Concurrency == 1 || len(accounts) < 2 {
		for i, acc := range accounts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slots[i] = a.countAccount(ctx, acc)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(a.opts.Concurrency)
		for i, acc := range accounts {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				slots[i] = a.countAccount(ctx, acc)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	summary := make(blockchain.ActivitySummary, 0, len(accounts))
	for _, s := range slots {
		if s != nil {
			summary = append(summary, *s)
		}
	}

	a.logger.Info("Wallet analyzed",
		zap.String("wallet", wallet),
		zap.Int("tokens", len(summary)),
		zap.Int("skipped", len(accounts)-len(summary)))
	return summary, nil
}

// countAccount returns nil when the account has to be skipped.
func (a *Analyzer) countAccount(ctx context.Context, acc blockchain.TokenAccount) *blockchain.TokenActivity {
	info, err := a.reader.CountRecentTransactions(ctx, acc.Address, a.opts.TxLimit)
	if err != nil {
		a.logger.Warn("Skipping token account",
			zap.String("account", acc.Address),
			zap.String("mint", acc.Mint),
			zap.Error(err))
		if a.opts.Metrics != nil {
			a.opts.Metrics.AccountSkipped()
		}
		return nil
	}
	return &blockchain.TokenActivity{
		TokenAccount: acc.Address,
		Mint:         acc.Mint,
		TxCount:      info.Count,
	}
}
