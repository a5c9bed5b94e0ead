// internal/logger/pretty.go
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

func prettyEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(ColorCyan + "[DEBUG]" + ColorReset)
	case zapcore.InfoLevel:
		enc.AppendString(ColorGreen + "[INFO]" + ColorReset)
	case zapcore.WarnLevel:
		enc.AppendString(ColorYellow + "[WARN]" + ColorReset)
	case zapcore.ErrorLevel:
		enc.AppendString(ColorRed + "[ERROR]" + ColorReset)
	case zapcore.FatalLevel:
		enc.AppendString(ColorRed + ColorBold + "[FATAL]" + ColorReset)
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

// customTimeEncoder formats time in a readable way
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// CreatePrettyLogger creates a console logger. In debug mode every structured
// field is printed; otherwise known pipeline messages are rewritten into short
// human lines and fields are dropped.
func CreatePrettyLogger(debug bool) (*zap.Logger, error) {
	return newPrettyLogger(debug, zapcore.Lock(os.Stdout)), nil
}

func newPrettyLogger(debug bool, out zapcore.WriteSyncer) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(prettyEncoderConfig())
	if debug {
		return zap.New(zapcore.NewCore(encoder, out, zap.DebugLevel))
	}
	core := zapcore.NewCore(encoder, out, zap.InfoLevel)
	return zap.New(&FieldFilterCore{core: core})
}

// FormatMessage creates user-friendly log messages
func FormatMessage(msg string, fields ...zap.Field) string {
	values := fieldValues(fields)

	switch msg {
	case "Registration started":
		return fmt.Sprintf("%s🔎 Registering %s (%s / %s)%s",
			ColorCyan, ShortenAddress(values["wallet"]), values["name"], values["category"], ColorReset)

	case "Wallet analyzed":
		return fmt.Sprintf("%s📊 Found %s token accounts (%s skipped)%s",
			ColorBlue, values["tokens"], orZero(values["skipped"]), ColorReset)

	case "Webhook address set updated":
		return fmt.Sprintf("%s🔗 Webhook now monitors %s addresses%s", ColorBlue, values["after"], ColorReset)

	case "Wallet stored":
		return fmt.Sprintf("%s💾 Stored %s with %s tokens%s",
			ColorBlue, ShortenAddress(values["wallet"]), values["tokens"], ColorReset)

	case "Registration completed":
		return fmt.Sprintf("%s✅ Wallet %s registered%s", ColorGreen+ColorBold, ShortenAddress(values["wallet"]), ColorReset)

	case "Registration failed":
		return fmt.Sprintf("%s❌ Wallet %s not registered: %s%s",
			ColorRed, ShortenAddress(values["wallet"]), values["error"], ColorReset)

	case "Wallet monitored by webhook but not stored":
		return fmt.Sprintf("%s⚠ Reconcile %s: webhook %s monitors it but the database has no record%s",
			ColorYellow+ColorBold, values["wallet"], values["webhook_id"], ColorReset)

	default:
		return msg
	}
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// fieldValues renders fields as strings keyed by field name.
func fieldValues(fields []zap.Field) map[string]string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	values := make(map[string]string, len(enc.Fields))
	for k, v := range enc.Fields {
		values[k] = fmt.Sprint(v)
	}
	return values
}

// ShortenAddress keeps the first and last four characters of a long address.
func ShortenAddress(addr string) string {
	if len(addr) > 12 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

// FieldFilterCore wraps a zapcore.Core, rewrites messages with FormatMessage
// and drops structured fields from the output.
type FieldFilterCore struct {
	core   zapcore.Core
	fields []zapcore.Field
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &FieldFilterCore{core: c.core, fields: merged}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := append(c.fields[:len(c.fields):len(c.fields)], fields...)
	entry.Message = FormatMessage(entry.Message, all...)
	if entry.LoggerName != "" && !strings.Contains(entry.Message, "\033") {
		entry.Message = entry.LoggerName + ": " + entry.Message
	}
	entry.LoggerName = ""
	return c.core.Write(entry, nil)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}
