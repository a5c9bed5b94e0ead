// internal/blockchain/address.go
package blockchain

import (
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ValidateWalletAddress проверяет, что строка - base58 ключ на кривой ed25519.
// PDA и прочие off-curve адреса кошельком быть не могут.
func ValidateWalletAddress(address string) (solana.PublicKey, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" || trimmed != address {
		return solana.PublicKey{}, &InvalidAddressError{Address: address, Err: ErrNotBase58}
	}

	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, &InvalidAddressError{Address: address, Err: ErrNotBase58}
	}
	if !pk.IsOnCurve() {
		return solana.PublicKey{}, &InvalidAddressError{Address: address, Err: ErrOffCurve}
	}
	return pk, nil
}
