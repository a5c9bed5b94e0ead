// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/isuramakingshifts/Wallets-Manager/internal/storage/models"
)

// Format is the output format of a wallet export.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ExportOptions configures a file export.
type ExportOptions struct {
	Format    Format
	Category  string // only used in the file name; filtering happens in storage
	OutputDir string
}

var csvHeaders = []string{"wallet_address", "name", "category", "mint_address", "tx_count", "registered_at"}

// WalletView is the JSON shape of one registered wallet.
type WalletView struct {
	Address      string      `json:"address"`
	Name         string      `json:"name"`
	Category     string      `json:"category"`
	RegisteredAt time.Time   `json:"registered_at"`
	Transactions int         `json:"transactions"`
	Tokens       []TokenView `json:"tokens"`
}

// TokenView is the JSON shape of one tracked token.
type TokenView struct {
	Mint    string `json:"mint"`
	TxCount int    `json:"tx_count"`
}

// Summary aggregates an export.
type Summary struct {
	TotalWallets      int            `json:"total_wallets"`
	TotalTokens       int            `json:"total_tokens"`
	TotalTransactions int            `json:"total_transactions"`
	UniqueMints       int            `json:"unique_mints"`
	Categories        map[string]int `json:"categories"`
}

// WalletExporter renders registered wallets.
type WalletExporter struct {
	logger *zap.Logger
}

// NewWalletExporter creates a new wallet exporter
func NewWalletExporter(logger *zap.Logger) *WalletExporter {
	return &WalletExporter{logger: logger}
}

// Write renders wallets to w in the given format.
func (we *WalletExporter) Write(w io.Writer, wallets []*models.Wallet, format Format) error {
	switch format {
	case FormatTable:
		return writeTable(w, wallets)
	case FormatCSV:
		return writeCSV(w, wallets)
	case FormatJSON:
		return writeJSON(w, wallets)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// ExportToFile writes wallets into a new timestamped file under
// options.OutputDir and returns its path.
func (we *WalletExporter) ExportToFile(wallets []*models.Wallet, options ExportOptions) (string, error) {
	if len(wallets) == 0 {
		return "", fmt.Errorf("no wallets match the export criteria")
	}
	if options.Format == FormatTable {
		return "", fmt.Errorf("table format cannot be exported to a file")
	}

	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, generateFilename(options))

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := we.Write(file, wallets, options.Format); err != nil {
		return "", err
	}

	we.logger.Info("Wallets exported",
		zap.String("file", outputPath),
		zap.Int("count", len(wallets)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")
	prefix := "wallets_all"
	if options.Category != "" {
		prefix = "wallets_" + options.Category
	}
	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func writeTable(w io.Writer, wallets []*models.Wallet) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNAME\tCATEGORY\tTOKENS\tTXS\tREGISTERED")
	for _, wl := range wallets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			wl.WalletAddress, wl.Name, wl.Category, len(wl.Tokens), wl.TotalTransactions(),
			wl.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

// writeCSV emits one row per token; wallets without tokens get one row with
// empty token columns.
func writeCSV(w io.Writer, wallets []*models.Wallet) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, wl := range wallets {
		registered := wl.CreatedAt.UTC().Format(time.RFC3339)
		if len(wl.Tokens) == 0 {
			if err := writer.Write([]string{wl.WalletAddress, wl.Name, wl.Category, "", "", registered}); err != nil {
				return fmt.Errorf("failed to write wallet: %w", err)
			}
			continue
		}
		for _, tok := range wl.Tokens {
			row := []string{wl.WalletAddress, wl.Name, wl.Category, tok.MintAddress, strconv.Itoa(tok.TxCount), registered}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write wallet: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeJSON(w io.Writer, wallets []*models.Wallet) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	views := make([]WalletView, 0, len(wallets))
	for _, wl := range wallets {
		view := WalletView{
			Address:      wl.WalletAddress,
			Name:         wl.Name,
			Category:     wl.Category,
			RegisteredAt: wl.CreatedAt.UTC(),
			Transactions: wl.TotalTransactions(),
			Tokens:       make([]TokenView, 0, len(wl.Tokens)),
		}
		for _, tok := range wl.Tokens {
			view.Tokens = append(view.Tokens, TokenView{Mint: tok.MintAddress, TxCount: tok.TxCount})
		}
		views = append(views, view)
	}

	exportData := struct {
		ExportTime  time.Time    `json:"export_time"`
		WalletCount int          `json:"wallet_count"`
		Wallets     []WalletView `json:"wallets"`
		Summary     Summary      `json:"summary"`
	}{
		ExportTime:  time.Now().UTC(),
		WalletCount: len(wallets),
		Wallets:     views,
		Summary:     CalculateSummary(wallets),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// CalculateSummary aggregates counts across wallets.
func CalculateSummary(wallets []*models.Wallet) Summary {
	summary := Summary{
		TotalWallets: len(wallets),
		Categories:   make(map[string]int),
	}

	mints := make(map[string]struct{})
	for _, wl := range wallets {
		summary.Categories[wl.Category]++
		summary.TotalTokens += len(wl.Tokens)
		summary.TotalTransactions += wl.TotalTransactions()
		for _, tok := range wl.Tokens {
			mints[tok.MintAddress] = struct{}{}
		}
	}
	summary.UniqueMints = len(mints)
	return summary
}

// SortedCategories returns the category names in sorted order.
func (s Summary) SortedCategories() []string {
	names := make([]string, 0, len(s.Categories))
	for name := range s.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
