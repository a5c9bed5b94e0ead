// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/shopspring/decimal"
)

// DefaultTxLimit - сколько последних подписей запрашивается на один токен-аккаунт.
const DefaultTxLimit = 75

// TokenAccount описывает токен-аккаунт кошелька, найденный через RPC.
type TokenAccount struct {
	Address   string
	Mint      string
	RawAmount string
	Decimals  uint8
	UIAmount  decimal.Decimal
}

// TxInfo содержит подписи последних транзакций аккаунта (новые первыми).
type TxInfo struct {
	Count      int
	Signatures []string
}

// TokenActivity - одна строка сводки активности кошелька.
type TokenActivity struct {
	TokenAccount string
	Mint         string
	TxCount      int
}

// ActivitySummary сохраняет порядок, в котором RPC вернул аккаунты.
type ActivitySummary []TokenActivity

// Mints возвращает mint-адреса сводки в исходном порядке.
func (s ActivitySummary) Mints() []string {
	mints := make([]string, 0, len(s))
	for _, a := range s {
		mints = append(mints, a.Mint)
	}
	return mints
}

// TotalTransactions суммирует счётчики транзакций по всем токенам.
func (s ActivitySummary) TotalTransactions() int {
	total := 0
	for _, a := range s {
		total += a.TxCount
	}
	return total
}

// ChainReader определяет операции чтения из блокчейна, нужные для анализа кошелька.
type ChainReader interface {
	// Получить все токен-аккаунты SPL Token программы, принадлежащие кошельку.
	ListTokenAccounts(ctx context.Context, wallet string) ([]TokenAccount, error)
	// Получить последние подписи аккаунта. Ошибки RPC сворачиваются в пустой TxInfo.
	CountRecentTransactions(ctx context.Context, account string, limit int) (TxInfo, error)
}
