// internal/registration/errors.go
package registration

import (
	"errors"
	"fmt"

	"github.com/isuramakingshifts/Wallets-Manager/internal/blockchain"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage"
	"github.com/isuramakingshifts/Wallets-Manager/internal/webhook"
)

// Stage names one step of the registration pipeline.
type Stage string

const (
	StageAnalyze Stage = "analyze"
	StageWebhook Stage = "webhook"
	StagePersist Stage = "persist"
)

// Stages lists the pipeline in execution order.
var Stages = []Stage{StageAnalyze, StageWebhook, StagePersist}

// StageError wraps the failure of one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage that produced err, if any.
func FailedStage(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}

// IsInvalidAddress reports whether err rejects the wallet address itself.
func IsInvalidAddress(err error) bool {
	var target *blockchain.InvalidAddressError
	return errors.As(err, &target)
}

// IsLedgerQuery reports whether err comes from a failed ledger query.
func IsLedgerQuery(err error) bool {
	var target *blockchain.LedgerQueryError
	return errors.As(err, &target)
}

// IsWebhookService reports whether err comes from the webhook service.
func IsWebhookService(err error) bool {
	var target *webhook.WebhookServiceError
	return errors.As(err, &target)
}

// IsPersistence reports whether err comes from the database write.
func IsPersistence(err error) bool {
	var target *storage.PersistenceError
	return errors.As(err, &target)
}

// IsDuplicateWallet reports whether the wallet was already registered.
func IsDuplicateWallet(err error) bool {
	var target *storage.PersistenceError
	return errors.As(err, &target) && target.Duplicate()
}
