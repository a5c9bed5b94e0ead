// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/isuramakingshifts/Wallets-Manager/internal/blockchain"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage/models"
	"gorm.io/gorm"
)

// ErrWalletNotFound возвращается, когда кошелёк не зарегистрирован
var ErrWalletNotFound = errors.New("wallet not found")

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	// Регистрация: кошелёк и строки токенов в одной транзакции
	CommitRegistration(ctx context.Context, wallet, name, category string, summary blockchain.ActivitySummary) error

	// Чтение
	GetWallet(ctx context.Context, address string) (*models.Wallet, error)
	ListWallets(ctx context.Context, category string) ([]*models.Wallet, error)

	// Миграции
	RunMigrations() error
	Close() error
}

// PersistenceError - ошибка записи регистрации; транзакция уже откачена
type PersistenceError struct {
	Wallet string
	Op     string
	Err    error
}

// Error реализует интерфейс error
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist wallet %s: %s: %v", e.Wallet, e.Op, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Duplicate сообщает, что кошелёк уже зарегистрирован
func (e *PersistenceError) Duplicate() bool {
	return errors.Is(e.Err, gorm.ErrDuplicatedKey)
}
