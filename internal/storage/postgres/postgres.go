// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isuramakingshifts/Wallets-Manager/internal/blockchain"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// migrationLockID - ключ advisory lock для миграций
const migrationLockID = 101

// postgresStorage реализует интерфейс Storage
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStorage подключается к PostgreSQL по DSN.
func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	return Open(postgres.Open(dsn), zapLogger)
}

// Open создаёт хранилище поверх произвольного диалекта GORM.
func Open(dialector gorm.Dialector, zapLogger *zap.Logger) (storage.Storage, error) {
	return open(dialector, zapLogger)
}

func open(dialector gorm.Dialector, zapLogger *zap.Logger) (*postgresStorage, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Настройка пула соединений
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{
		db:     db,
		logger: zapLogger.Named("storage"),
	}, nil
}

// RunMigrations создаёт таблицы wallets и wallet_tokens.
// На PostgreSQL миграции сериализуются через advisory lock.
func (p *postgresStorage) RunMigrations() error {
	if p.db.Dialector.Name() == "postgres" {
		var lockObtained bool
		err := p.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error
		if err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		if !lockObtained {
			return fmt.Errorf("another migration is in progress")
		}
		defer p.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)
	}

	if err := p.db.AutoMigrate(&models.Wallet{}, &models.WalletToken{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	p.logger.Info("Migrations applied")
	return nil
}

// CommitRegistration записывает кошелёк и все строки токенов одной транзакцией.
// Любая ошибка откатывает всю запись.
func (p *postgresStorage) CommitRegistration(
	ctx context.Context,
	wallet, name, category string,
	summary blockchain.ActivitySummary,
) error {
	op := "begin"
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		op = "insert wallet"
		record := &models.Wallet{
			WalletAddress: wallet,
			Name:          name,
			Category:      category,
		}
		if err := tx.Omit(clause.Associations).Create(record).Error; err != nil {
			return err
		}

		if len(summary) == 0 {
			return nil
		}

		op = "insert tokens"
		rows := make([]models.WalletToken, 0, len(summary))
		for _, activity := range summary {
			rows = append(rows, models.WalletToken{
				WalletAddress: wallet,
				MintAddress:   activity.Mint,
				TxCount:       activity.TxCount,
			})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		p.logger.Error("Registration rolled back",
			zap.String("wallet", wallet),
			zap.String("op", op),
			zap.Error(err))
		return &storage.PersistenceError{Wallet: wallet, Op: op, Err: err}
	}

	p.logger.Info("Wallet stored",
		zap.String("wallet", wallet),
		zap.String("category", category),
		zap.Int("tokens", len(summary)))
	return nil
}

func (p *postgresStorage) GetWallet(ctx context.Context, address string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := p.db.WithContext(ctx).
		Preload("Tokens", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("wallet_address = ?", address).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (p *postgresStorage) ListWallets(ctx context.Context, category string) ([]*models.Wallet, error) {
	var wallets []*models.Wallet
	q := p.db.WithContext(ctx).
		Preload("Tokens", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("created_at, id")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
