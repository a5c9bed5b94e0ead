// internal/blockchain/errors.go
package blockchain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBase58 возникает, когда строка не декодируется как публичный ключ
	ErrNotBase58 = errors.New("not a valid base58 public key")

	// ErrOffCurve возникает, когда ключ не лежит на кривой ed25519
	ErrOffCurve = errors.New("public key is not on the ed25519 curve")
)

// InvalidAddressError описывает адрес кошелька, отклонённый до любых сетевых вызовов.
type InvalidAddressError struct {
	Address string
	Err     error
}

// Error реализует интерфейс error
func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid wallet address %q: %v", e.Address, e.Err)
}

// Unwrap возвращает причину
func (e *InvalidAddressError) Unwrap() error {
	return e.Err
}

// LedgerQueryError - ошибка RPC запроса с дополнительным контекстом
type LedgerQueryError struct {
	Err      error
	Endpoint string
	Method   string
}

// Error реализует интерфейс error
func (e *LedgerQueryError) Error() string {
	return fmt.Sprintf("ledger query [%s] at %s: %v", e.Method, e.Endpoint, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *LedgerQueryError) Unwrap() error {
	return e.Err
}

// NewLedgerQueryError создает новую ошибку запроса к блокчейну
func NewLedgerQueryError(err error, endpoint, method string) error {
	return &LedgerQueryError{
		Err:      err,
		Endpoint: endpoint,
		Method:   method,
	}
}
