// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/isuramakingshifts/Wallets-Manager/internal/blockchain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	methodGetTokenAccountsByOwner = "getTokenAccountsByOwner"
	methodGetSignaturesForAddress = "getSignaturesForAddress"
)

// Client – тонкий адаптер над solana-go, реализующий blockchain.ChainReader.
type Client struct {
	rpc      *rpc.Client
	endpoint string
	logger   *zap.Logger
}

var _ blockchain.ChainReader = (*Client)(nil)

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:      rpc.New(rpcURL),
		endpoint: rpcURL,
		logger:   logger.Named("solbc-client"),
	}
}

// parsedTokenAccount - структура jsonParsed ответа для аккаунта SPL Token
type parsedTokenAccount struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string `json:"type"`
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			TokenAmount struct {
				Amount   string `json:"amount"`
				Decimals uint8  `json:"decimals"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// ListTokenAccounts получает токен-аккаунты кошелька с фильтром по SPL Token программе.
func (c *Client) ListTokenAccounts(ctx context.Context, wallet string) ([]blockchain.TokenAccount, error) {
	owner, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, &blockchain.InvalidAddressError{Address: wallet, Err: blockchain.ErrNotBase58}
	}

	programID := solana.TokenProgramID
	result, err := c.rpc.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingJSONParsed,
		},
	)
	if err != nil {
		c.logger.Error("GetTokenAccountsByOwner error",
			zap.String("wallet", wallet),
			zap.Error(err))
		return nil, blockchain.NewLedgerQueryError(err, c.endpoint, methodGetTokenAccountsByOwner)
	}
	if result == nil {
		return []blockchain.TokenAccount{}, nil
	}

	accounts := make([]blockchain.TokenAccount, 0, len(result.Value))
	for _, keyed := range result.Value {
		if keyed == nil || keyed.Account.Data == nil {
			continue
		}

		account, err := decodeTokenAccount(keyed.Pubkey, keyed.Account.Data.GetRawJSON())
		if err != nil {
			// Аккаунт без разобранных данных пропускается, остальные обрабатываются
			c.logger.Warn("Skipping undecodable token account",
				zap.String("account", keyed.Pubkey.String()),
				zap.Error(err))
			continue
		}
		accounts = append(accounts, account)
	}

	c.logger.Debug("Token accounts listed",
		zap.String("wallet", wallet),
		zap.Int("count", len(accounts)))
	return accounts, nil
}

// CountRecentTransactions возвращает до limit последних подписей аккаунта.
// Любая ошибка RPC даёт пустой результат без ошибки; ошибка возвращается только
// для адреса, который не удаётся декодировать.
func (c *Client) CountRecentTransactions(ctx context.Context, account string, limit int) (blockchain.TxInfo, error) {
	pubkey, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return blockchain.TxInfo{}, &blockchain.InvalidAddressError{Address: account, Err: blockchain.ErrNotBase58}
	}
	if limit <= 0 {
		limit = blockchain.DefaultTxLimit
	}

	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, pubkey, &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	})
	if err != nil {
		c.logger.Warn("GetSignaturesForAddress failed, counting as zero",
			zap.String("account", account),
			zap.Error(blockchain.NewLedgerQueryError(err, c.endpoint, methodGetSignaturesForAddress)))
		return blockchain.TxInfo{Count: 0, Signatures: []string{}}, nil
	}

	signatures := make([]string, 0, len(sigs))
	for _, s := range sigs {
		if s == nil {
			continue
		}
		signatures = append(signatures, s.Signature.String())
	}

	return blockchain.TxInfo{
		Count:      len(signatures),
		Signatures: signatures,
	}, nil
}

// decodeTokenAccount разбирает jsonParsed данные аккаунта
func decodeTokenAccount(address solana.PublicKey, raw json.RawMessage) (blockchain.TokenAccount, error) {
	if len(raw) == 0 {
		return blockchain.TokenAccount{}, fmt.Errorf("account data is not jsonParsed")
	}

	var parsed parsedTokenAccount
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return blockchain.TokenAccount{}, fmt.Errorf("failed to decode token account data: %w", err)
	}
	if parsed.Parsed.Info.Mint == "" {
		return blockchain.TokenAccount{}, fmt.Errorf("token account data has no mint")
	}

	amount := parsed.Parsed.Info.TokenAmount
	uiAmount := decimal.Zero
	if amount.Amount != "" {
		raw, err := decimal.NewFromString(amount.Amount)
		if err != nil {
			return blockchain.TokenAccount{}, fmt.Errorf("invalid token amount %q: %w", amount.Amount, err)
		}
		uiAmount = raw.Shift(-int32(amount.Decimals))
	}

	return blockchain.TokenAccount{
		Address:   address.String(),
		Mint:      parsed.Parsed.Info.Mint,
		RawAmount: amount.Amount,
		Decimals:  amount.Decimals,
		UIAmount:  uiAmount,
	}, nil
}
