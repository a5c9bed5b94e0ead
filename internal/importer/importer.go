// ==================================
// File: internal/importer/importer.go
// ==================================
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/isuramakingshifts/Wallets-Manager/internal/registration"
)

// Entry описывает один кошелёк в файле импорта.
type Entry struct {
	Address  string `yaml:"address"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// File представляет структуру YAML-файла импорта.
type File struct {
	Wallets []Entry `yaml:"wallets"`
}

// LoadFile загружает список кошельков из YAML-файла.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Wallets) == 0 {
		return nil, errors.New("no wallets found in file")
	}

	entries := make([]Entry, 0, len(file.Wallets))
	for i, e := range file.Wallets {
		e.Address = strings.TrimSpace(e.Address)
		e.Name = strings.TrimSpace(e.Name)
		e.Category = strings.TrimSpace(e.Category)
		if e.Address == "" || e.Name == "" || e.Category == "" {
			return nil, fmt.Errorf("wallet #%d: address, name and category are required", i+1)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Registrar запускает конвейер регистрации.
type Registrar interface {
	Register(ctx context.Context, wallet, name, category string, opts ...registration.Option) (*registration.Result, error)
}

// Outcome результат регистрации одного кошелька.
type Outcome struct {
	Entry  Entry
	Result *registration.Result
	Err    error
}

// Report собирает результаты импорта в порядке файла.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Importer регистрирует кошельки по одному.
type Importer struct {
	registrar Registrar
	logger    *zap.Logger
}

func New(registrar Registrar, logger *zap.Logger) *Importer {
	return &Importer{registrar: registrar, logger: logger.Named("importer")}
}

// Run регистрирует entries последовательно. Ошибка одного кошелька не
// останавливает импорт; отмена ctx останавливает его с частичным отчётом.
func (im *Importer) Run(ctx context.Context, entries []Entry) (*Report, error) {
	report := &Report{Outcomes: make([]Outcome, 0, len(entries))}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := im.registrar.Register(ctx, e.Address, e.Name, e.Category)
		report.Outcomes = append(report.Outcomes, Outcome{Entry: e, Result: result, Err: err})
		if err != nil {
			im.logger.Warn("Wallet import failed",
				zap.String("wallet", e.Address),
				zap.Error(err))
		}
	}

	im.logger.Info("Import finished",
		zap.Int("total", len(entries)),
		zap.Int("registered", report.Succeeded()))
	return report, nil
}
