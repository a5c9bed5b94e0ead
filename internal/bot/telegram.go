// internal/bot/telegram.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/isuramakingshifts/Wallets-Manager/internal/logger"
	"github.com/isuramakingshifts/Wallets-Manager/internal/registration"
	"github.com/isuramakingshifts/Wallets-Manager/internal/storage/models"
)

const (
	msgSuccess      = "Wallet successfully added and analyzed!"
	msgUnauthorized = "You are not allowed to use this bot."
	msgNoWallets    = "No wallets registered yet."
	msgHelp         = "Commands:\n" + AddWalletUsage + "\n/wallets [category]"
)

// stageMessages отправляются пользователю при старте каждой стадии
var stageMessages = map[registration.Stage]string{
	registration.StageAnalyze: "Analyzing wallet...",
	registration.StageWebhook: "Updating webhook...",
	registration.StagePersist: "Adding to database...",
}

// Messenger отправляет сообщения в чат. Реализуется *tgbot.Bot.
type Messenger interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*tgmodels.Message, error)
}

// Registrar запускает конвейер регистрации кошелька
type Registrar interface {
	Register(ctx context.Context, wallet, name, category string, opts ...registration.Option) (*registration.Result, error)
}

// WalletLister читает зарегистрированные кошельки
type WalletLister interface {
	ListWallets(ctx context.Context, category string) ([]*models.Wallet, error)
}

func send(ctx context.Context, m Messenger, log *zap.Logger, chatID int64, text string) {
	if _, err := m.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// AddWalletHandler выполняет AddWalletCommand и сообщает о прогрессе в чат
type AddWalletHandler struct {
	registrar Registrar
	messenger Messenger
	logger    *zap.Logger
}

func NewAddWalletHandler(registrar Registrar, messenger Messenger, logger *zap.Logger) *AddWalletHandler {
	return &AddWalletHandler{registrar: registrar, messenger: messenger, logger: logger}
}

func (h *AddWalletHandler) CanHandle(cmd Command) bool {
	_, ok := cmd.(AddWalletCommand)
	return ok
}

func (h *AddWalletHandler) Handle(ctx context.Context, cmd Command) error {
	c, ok := cmd.(AddWalletCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	progress := registration.WithProgress(func(p registration.Progress) {
		if p.Status != registration.ProgressStarted {
			return
		}
		if text, ok := stageMessages[p.Stage]; ok {
			send(ctx, h.messenger, h.logger, c.ChatID, text)
		}
	})

	result, err := h.registrar.Register(ctx, c.Address, c.Name, c.Category, progress)
	if err != nil {
		send(ctx, h.messenger, h.logger, c.ChatID, "Error: "+ErrorText(err))
		return err
	}

	send(ctx, h.messenger, h.logger, c.ChatID, fmt.Sprintf("%s\nToken accounts: %d, recent transactions: %d",
		msgSuccess, len(result.Summary), result.Summary.TotalTransactions()))
	return nil
}

// ErrorText переводит ошибку конвейера в сообщение для пользователя
func ErrorText(err error) string {
	switch {
	case registration.IsInvalidAddress(err):
		return "invalid wallet address"
	case registration.IsDuplicateWallet(err):
		return "wallet is already registered (the webhook still monitors it)"
	}
	var stageErr *registration.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Error()
	}
	return err.Error()
}

// ListWalletsHandler отвечает списком зарегистрированных кошельков
type ListWalletsHandler struct {
	lister    WalletLister
	messenger Messenger
	logger    *zap.Logger
}

func NewListWalletsHandler(lister WalletLister, messenger Messenger, logger *zap.Logger) *ListWalletsHandler {
	return &ListWalletsHandler{lister: lister, messenger: messenger, logger: logger}
}

func (h *ListWalletsHandler) CanHandle(cmd Command) bool {
	_, ok := cmd.(ListWalletsCommand)
	return ok
}

func (h *ListWalletsHandler) Handle(ctx context.Context, cmd Command) error {
	c, ok := cmd.(ListWalletsCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	wallets, err := h.lister.ListWallets(ctx, c.Category)
	if err != nil {
		send(ctx, h.messenger, h.logger, c.ChatID, "Error: "+err.Error())
		return err
	}
	send(ctx, h.messenger, h.logger, c.ChatID, FormatWalletList(wallets))
	return nil
}

// FormatWalletList форматирует кошельки по одному на строку
func FormatWalletList(wallets []*models.Wallet) string {
	if len(wallets) == 0 {
		return msgNoWallets
	}
	var sb strings.Builder
	for i, w := range wallets {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s [%s] %s: %d tokens, %d txs",
			w.Name, w.Category, logger.ShortenAddress(w.WalletAddress), len(w.Tokens), w.TotalTransactions())
	}
	return sb.String()
}

// TelegramBot принимает команды из Telegram и передает их в CommandBus
type TelegramBot struct {
	api         *tgbot.Bot
	commands    *CommandBus
	adminChatID int64
	logger      *zap.Logger
}

// NewTelegramBot создает бота. adminChatID == 0 снимает ограничение по чату.
func NewTelegramBot(token string, adminChatID int64, registrar Registrar, lister WalletLister, logger *zap.Logger) (*TelegramBot, error) {
	tb := &TelegramBot{
		commands:    NewCommandBus(logger),
		adminChatID: adminChatID,
		logger:      logger.Named("telegram"),
	}

	api, err := tgbot.New(token, tgbot.WithDefaultHandler(tb.handleDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	tb.api = api
	tb.registerCommands(api, registrar, lister)

	api.RegisterHandler(tgbot.HandlerTypeMessageText, addWalletCommand, tgbot.MatchTypePrefix, tb.handleAddWallet)
	api.RegisterHandler(tgbot.HandlerTypeMessageText, listWalletsCommand, tgbot.MatchTypePrefix, tb.handleListWallets)
	return tb, nil
}

func (tb *TelegramBot) registerCommands(m Messenger, registrar Registrar, lister WalletLister) {
	tb.commands.RegisterHandler(AddWalletCommand{}, NewAddWalletHandler(registrar, m, tb.logger))
	tb.commands.RegisterHandler(ListWalletsCommand{}, NewListWalletsHandler(lister, m, tb.logger))
}

// Start блокируется до отмены ctx
func (tb *TelegramBot) Start(ctx context.Context) {
	tb.logger.Info("Telegram bot started",
		zap.Int64("admin_chat_id", tb.adminChatID),
		zap.Strings("commands", tb.commands.GetRegisteredHandlers()))
	tb.api.Start(ctx)
}

// Notify отправляет сообщение в административный чат, если он задан
func (tb *TelegramBot) Notify(ctx context.Context, text string) {
	if tb.adminChatID == 0 {
		return
	}
	send(ctx, tb.api, tb.logger, tb.adminChatID, text)
}

func (tb *TelegramBot) handleAddWallet(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	tb.dispatchAddWallet(ctx, tb.api, update)
}

func (tb *TelegramBot) handleListWallets(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	tb.dispatchListWallets(ctx, tb.api, update)
}

func (tb *TelegramBot) handleDefault(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	if update.Message == nil || !strings.HasPrefix(update.Message.Text, "/") {
		return
	}
	send(ctx, tb.api, tb.logger, update.Message.Chat.ID, msgHelp)
}

func (tb *TelegramBot) dispatchAddWallet(ctx context.Context, m Messenger, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || !tb.authorized(ctx, m, msg) {
		return
	}

	cmd, err := ParseAddWallet(msg.Text)
	if err != nil {
		send(ctx, m, tb.logger, msg.Chat.ID, AddWalletUsage)
		return
	}
	cmd.ChatID = msg.Chat.ID
	cmd.UserID = senderID(msg)

	// обработчик уже сообщил об ошибке в чат
	if err := tb.commands.Send(ctx, cmd); err != nil {
		tb.logger.Debug("Add wallet command failed", zap.Error(err))
	}
}

func (tb *TelegramBot) dispatchListWallets(ctx context.Context, m Messenger, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || !tb.authorized(ctx, m, msg) {
		return
	}

	cmd, err := ParseListWallets(msg.Text)
	if err != nil {
		send(ctx, m, tb.logger, msg.Chat.ID, "Usage: /wallets [category]")
		return
	}
	cmd.ChatID = msg.Chat.ID
	cmd.UserID = senderID(msg)

	if err := tb.commands.Send(ctx, cmd); err != nil {
		tb.logger.Debug("List wallets command failed", zap.Error(err))
	}
}

func (tb *TelegramBot) authorized(ctx context.Context, m Messenger, msg *tgmodels.Message) bool {
	if tb.adminChatID == 0 || msg.Chat.ID == tb.adminChatID {
		return true
	}
	tb.logger.Warn("Rejected command from foreign chat", zap.Int64("chat_id", msg.Chat.ID))
	send(ctx, m, tb.logger, msg.Chat.ID, msgUnauthorized)
	return false
}

func senderID(msg *tgmodels.Message) string {
	if msg.From == nil {
		return strconv.FormatInt(msg.Chat.ID, 10)
	}
	return strconv.FormatInt(msg.From.ID, 10)
}
