// internal/bot/commands_test.go
package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockCommandHandler для тестирования
type MockCommandHandler struct {
	handled []Command
	errors  map[string]error
}

func NewMockCommandHandler() *MockCommandHandler {
	return &MockCommandHandler{
		handled: make([]Command, 0),
		errors:  make(map[string]error),
	}
}

func (h *MockCommandHandler) Handle(ctx context.Context, cmd Command) error {
	h.handled = append(h.handled, cmd)
	if err, exists := h.errors[cmd.GetType()]; exists {
		return err
	}
	return nil
}

func (h *MockCommandHandler) CanHandle(cmd Command) bool {
	return true
}

func (h *MockCommandHandler) SetError(cmdType string, err error) {
	h.errors[cmdType] = err
}

func TestParseAddWallet(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    AddWalletCommand
		wantErr bool
	}{
		{
			name: "three arguments",
			text: "/addwallet 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin Whale funds",
			want: AddWalletCommand{Address: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", Name: "Whale", Category: "funds"},
		},
		{
			name: "bot suffix and extra spaces",
			text: "/addwallet@wallets_bot   W1  Alpha   team ",
			want: AddWalletCommand{Address: "W1", Name: "Alpha", Category: "team"},
		},
		{name: "missing category", text: "/addwallet W1 Alpha", wantErr: true},
		{name: "too many arguments", text: "/addwallet W1 Alpha team extra", wantErr: true},
		{name: "no arguments", text: "/addwallet", wantErr: true},
		{name: "other command", text: "/addwallets W1 Alpha team", wantErr: true},
		{name: "empty", text: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddWallet(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUsage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Address, got.Address)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Category, got.Category)
			assert.False(t, got.Timestamp.IsZero())
		})
	}
}

func TestParseListWallets(t *testing.T) {
	cmd, err := ParseListWallets("/wallets")
	require.NoError(t, err)
	assert.Empty(t, cmd.Category)

	cmd, err = ParseListWallets("/wallets funds")
	require.NoError(t, err)
	assert.Equal(t, "funds", cmd.Category)

	_, err = ParseListWallets("/wallets funds team")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestAddWalletCommand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cmd     AddWalletCommand
		wantErr bool
	}{
		{
			name: "valid command",
			cmd:  AddWalletCommand{Address: "W1", Name: "n", Category: "c", ChatID: 42, Timestamp: time.Now()},
		},
		{
			name:    "missing chat",
			cmd:     AddWalletCommand{Address: "W1", Name: "n", Category: "c"},
			wantErr: true,
		},
		{
			name:    "empty name",
			cmd:     AddWalletCommand{Address: "W1", Category: "c", ChatID: 42},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("AddWalletCommand.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommandBus_RegisterHandler(t *testing.T) {
	bus := NewCommandBus(zaptest.NewLogger(t))

	bus.RegisterHandler(ListWalletsCommand{}, NewMockCommandHandler())
	bus.RegisterHandler(AddWalletCommand{}, NewMockCommandHandler())

	assert.Equal(t, []string{"add_wallet", "list_wallets"}, bus.GetRegisteredHandlers())
}

func TestCommandBus_Send(t *testing.T) {
	bus := NewCommandBus(zaptest.NewLogger(t))
	handler := NewMockCommandHandler()
	bus.RegisterHandler(AddWalletCommand{}, handler)

	cmd := AddWalletCommand{Address: "W1", Name: "n", Category: "c", ChatID: 1}
	require.NoError(t, bus.Send(context.Background(), cmd))
	require.Len(t, handler.handled, 1)
	assert.Equal(t, "add_wallet", handler.handled[0].GetType())
}

func TestCommandBus_Send_Errors(t *testing.T) {
	ctx := context.Background()
	bus := NewCommandBus(zaptest.NewLogger(t))
	handler := NewMockCommandHandler()
	bus.RegisterHandler(AddWalletCommand{}, handler)

	// невалидная команда не доходит до обработчика
	err := bus.Send(ctx, AddWalletCommand{Address: "W1"})
	assert.ErrorIs(t, err, ErrUsage)
	assert.Empty(t, handler.handled)

	// нет обработчика
	err = bus.Send(ctx, ListWalletsCommand{ChatID: 1})
	assert.ErrorContains(t, err, "no handler registered")

	// ошибка обработчика пробрасывается
	boom := errors.New("boom")
	handler.SetError("add_wallet", boom)
	err = bus.Send(ctx, AddWalletCommand{Address: "W1", Name: "n", Category: "c", ChatID: 1})
	assert.ErrorIs(t, err, boom)
}
