// internal/storage/models/wallet.go
package models

// Wallet - зарегистрированный кошелёк
type Wallet struct {
	BaseModel
	WalletAddress string        `gorm:"uniqueIndex;not null;type:varchar(44)"`
	Name          string        `gorm:"not null;type:varchar(100)"`
	Category      string        `gorm:"index;not null;type:varchar(50)"`
	Tokens        []WalletToken `gorm:"foreignKey:WalletAddress;references:WalletAddress;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// WalletToken - активность кошелька по одному токен-аккаунту на момент регистрации
type WalletToken struct {
	BaseModel
	WalletAddress string `gorm:"index;not null;type:varchar(44)"`
	MintAddress   string `gorm:"not null;type:varchar(44)"`
	TxCount       int    `gorm:"not null;default:0"`
}

func (WalletToken) TableName() string {
	return "wallet_tokens"
}

// TotalTransactions суммирует счётчики по всем токенам кошелька
func (w *Wallet) TotalTransactions() int {
	total := 0
	for _, t := range w.Tokens {
		total += t.TxCount
	}
	return total
}
