// ====================================
// File: cmd/walletbot/main.go
// ====================================
package main

import "github.com/isuramakingshifts/Wallets-Manager/internal/cli"

func main() {
	cli.Execute()
}
