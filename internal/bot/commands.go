// internal/bot/commands.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	addWalletCommand   = "/addwallet"
	listWalletsCommand = "/wallets"

	// AddWalletUsage отправляется в ответ на неверно оформленную команду
	AddWalletUsage = "Usage: /addwallet <address> <name> <category>"
)

// ErrUsage возвращается, если команда не соответствует формату
var ErrUsage = errors.New("invalid command format")

// Command представляет команду, пришедшую из чата
type Command interface {
	GetType() string
	GetUserID() string
	Validate() error
}

// AddWalletCommand команда регистрации кошелька
type AddWalletCommand struct {
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	ChatID    int64     `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (c AddWalletCommand) GetType() string {
	return "add_wallet"
}

func (c AddWalletCommand) GetUserID() string {
	return c.UserID
}

func (c AddWalletCommand) Validate() error {
	if c.Address == "" || c.Name == "" || c.Category == "" {
		return ErrUsage
	}
	if c.ChatID == 0 {
		return fmt.Errorf("chat_id cannot be empty")
	}
	return nil
}

// ListWalletsCommand команда вывода зарегистрированных кошельков
type ListWalletsCommand struct {
	Category  string    `json:"category"`
	ChatID    int64     `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (c ListWalletsCommand) GetType() string {
	return "list_wallets"
}

func (c ListWalletsCommand) GetUserID() string {
	return c.UserID
}

func (c ListWalletsCommand) Validate() error {
	if c.ChatID == 0 {
		return fmt.Errorf("chat_id cannot be empty")
	}
	return nil
}

// ParseAddWallet разбирает "/addwallet <address> <name> <category>".
// Допускается суффикс с именем бота ("/addwallet@name").
func ParseAddWallet(text string) (AddWalletCommand, error) {
	args, ok := commandArgs(text, addWalletCommand)
	if !ok || len(args) != 3 {
		return AddWalletCommand{}, ErrUsage
	}
	return AddWalletCommand{
		Address:   args[0],
		Name:      args[1],
		Category:  args[2],
		Timestamp: time.Now(),
	}, nil
}

// ParseListWallets разбирает "/wallets [category]".
func ParseListWallets(text string) (ListWalletsCommand, error) {
	args, ok := commandArgs(text, listWalletsCommand)
	if !ok || len(args) > 1 {
		return ListWalletsCommand{}, ErrUsage
	}
	cmd := ListWalletsCommand{Timestamp: time.Now()}
	if len(args) == 1 {
		cmd.Category = args[0]
	}
	return cmd, nil
}

func commandArgs(text, command string) ([]string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	if name != command {
		return nil, false
	}
	return fields[1:], true
}

// CommandHandler интерфейс для обработчиков команд
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
	CanHandle(cmd Command) bool
}

// CommandBus шина для обработки команд
type CommandBus struct {
	handlers map[reflect.Type]registeredHandler
	logger   *zap.Logger
	mu       sync.RWMutex
}

type registeredHandler struct {
	commandType string
	handler     CommandHandler
}

// NewCommandBus создает новую шину команд
func NewCommandBus(logger *zap.Logger) *CommandBus {
	return &CommandBus{
		handlers: make(map[reflect.Type]registeredHandler),
		logger:   logger.Named("command_bus"),
	}
}

// RegisterHandler регистрирует обработчик для типа команды
func (bus *CommandBus) RegisterHandler(cmdType Command, handler CommandHandler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers[reflect.TypeOf(cmdType)] = registeredHandler{
		commandType: cmdType.GetType(),
		handler:     handler,
	}
	bus.logger.Debug("Command handler registered",
		zap.String("command_type", cmdType.GetType()),
		zap.String("handler", reflect.TypeOf(handler).String()))
}

// Send валидирует команду и передает ее обработчику
func (bus *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		bus.logger.Warn("Command validation failed",
			zap.String("command_type", cmd.GetType()),
			zap.String("user_id", cmd.GetUserID()),
			zap.Error(err))
		return fmt.Errorf("command validation failed: %w", err)
	}

	bus.mu.RLock()
	registered, exists := bus.handlers[reflect.TypeOf(cmd)]
	bus.mu.RUnlock()

	if !exists || !registered.handler.CanHandle(cmd) {
		bus.logger.Error("No handler for command",
			zap.String("command_type", cmd.GetType()),
			zap.String("user_id", cmd.GetUserID()))
		return fmt.Errorf("no handler registered for command type: %s", cmd.GetType())
	}

	bus.logger.Debug("Executing command",
		zap.String("command_type", cmd.GetType()),
		zap.String("user_id", cmd.GetUserID()))

	if err := registered.handler.Handle(ctx, cmd); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}

// GetRegisteredHandlers возвращает отсортированный список типов команд
func (bus *CommandBus) GetRegisteredHandlers() []string {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	handlers := make([]string, 0, len(bus.handlers))
	for _, registered := range bus.handlers {
		handlers = append(handlers, registered.commandType)
	}
	sort.Strings(handlers)
	return handlers
}
