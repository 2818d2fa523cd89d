package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"supportdesk/pkg/llm"
)

const logTimeLayout = "2006-01-02 15:04:05"

// CustomHandler is a slog.Handler writing one line per record:
//
//	[2006-01-02 15:04:05] [INFO] [turn-id] message key=value ...
//
// The turn id comes from llm.DebugDirFrom and is omitted when absent.
// Groups become dotted key prefixes.
type CustomHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	prefix string
	preset string // attrs bound through WithAttrs, already rendered
}

func NewCustomHandler(w io.Writer, opts slog.HandlerOptions) *CustomHandler {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	return &CustomHandler{out: w, mu: &sync.Mutex{}, level: level}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CustomHandler) Handle(ctx context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(r.Time.Format(logTimeLayout))
	sb.WriteString("] [")
	sb.WriteString(r.Level.String())
	sb.WriteByte(']')
	if id := llm.DebugDirFrom(ctx); id != "" {
		sb.WriteString(" [")
		sb.WriteString(id)
		sb.WriteByte(']')
	}
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	sb.WriteString(h.preset)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.prefix, a)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, sb.String())
	return err
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	sb.WriteString(h.preset)
	for _, a := range attrs {
		writeAttr(&sb, h.prefix, a)
	}
	clone := *h
	clone.preset = sb.String()
	return &clone
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range v.Group() {
			writeAttr(sb, prefix, ga)
		}
		return
	}
	if a.Equal(slog.Attr{}) {
		return
	}

	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	switch v.Kind() {
	case slog.KindString:
		sb.WriteString(strconv.Quote(v.String()))
	case slog.KindTime:
		sb.WriteString(v.Time().Format(time.RFC3339))
	case slog.KindDuration:
		sb.WriteString(v.Duration().String())
	default:
		fmt.Fprint(sb, v.Any())
	}
}

// logLevel backs the default logger so SetLevel can change it on reload.
var logLevel = new(slog.LevelVar)

// ParseLevel maps a log_level setting onto a slog level. Unknown values
// mean info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetupSlog installs a CustomHandler on stderr as the default logger.
func SetupSlog(levelStr string) {
	logLevel.Set(ParseLevel(levelStr))
	slog.SetDefault(slog.New(NewCustomHandler(os.Stderr, slog.HandlerOptions{Level: logLevel})))
}

// SetLevel adjusts the logger installed by SetupSlog.
func SetLevel(levelStr string) {
	next := ParseLevel(levelStr)
	if logLevel.Level() == next {
		return
	}
	logLevel.Set(next)
	slog.Info("Log level changed", "level", next)
}

const banner = `
 ___ _   _ _ __  _ __   ___  _ __| |_ __| | ___  ___| | __
/ __| | | | '_ \| '_ \ / _ \| '__| __/ _' |/ _ \/ __| |/ /
\__ \ |_| | |_) | |_) | (_) | |  | || (_| |  __/\__ \   <
|___/\__,_| .__/| .__/ \___/|_|   \__\__,_|\___||___/_|\_\
          |_|   |_|
`

// PrintBanner writes the startup banner to stdout.
func PrintBanner() {
	fmt.Println(banner)
}
