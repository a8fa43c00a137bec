// ABOUTME: Developer CLI that replays a JSONL event trace through the session core
// ABOUTME: Useful for reproducing streaming bugs from captured backend traces

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/emberchat/ember/internal/config"
	"github.com/emberchat/ember/internal/dispatch"
	"github.com/emberchat/ember/internal/events"
	"github.com/emberchat/ember/internal/history"
	"github.com/emberchat/ember/internal/session"
)

func main() {
	configPath := flag.String("config", "", "config file path (optional)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: ember-replay [-config file] <trace.jsonl>")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, flag.Arg(0)); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, tracePath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	logger := setupLogger(cfg.Logging)

	var hist session.History
	if cfg.History.Path != "" {
		sqlHist, err := history.NewSQLiteHistory(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer sqlHist.Close()
		hist = sqlHist
	}

	store := session.NewStore(session.Options{
		ThrottleWindow: cfg.Session.ThrottleWindow,
		HistoryLimit:   cfg.Session.HistoryLimit,
		QueueCapacity:  cfg.Session.QueueCapacity,
		History:        hist,
		Logger:         logger,
	})
	defer store.Close()

	broker := events.NewBroker(logger)
	defer broker.Close()

	dispatcher := dispatch.New(broker, store, logger)
	dispose := dispatcher.Subscribe(ctx)
	defer dispose()

	published, malformed, err := replayTrace(tracePath, broker, logger)
	if err != nil {
		return err
	}

	// Let the queues drain and the last throttle window flush.
	time.Sleep(4*cfg.Session.ThrottleWindow + 100*time.Millisecond)

	logger.Info("replay finished", "published", published, "malformed", malformed)
	printSessions(store)
	return nil
}

// replayTrace publishes each JSONL line as a typed event. Malformed lines
// are counted and skipped, matching the dispatcher's failure policy.
func replayTrace(path string, broker *events.Broker, logger *slog.Logger) (published, malformed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, err := events.Parse([]byte(line))
		if err != nil {
			logger.Warn("skipping malformed trace line", "line", lineNo, "error", err)
			malformed++
			continue
		}
		broker.Publish(ev)
		published++
	}
	if err := scanner.Err(); err != nil {
		return published, malformed, fmt.Errorf("reading trace: %w", err)
	}
	return published, malformed, nil
}

func printSessions(store *session.Store) {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	for _, id := range store.List() {
		snap := store.Get(id)

		fmt.Println()
		cyan.Printf("conversation %s", snap.ConversationID)
		if snap.Title != "" {
			gray.Printf("  (%s)", snap.Title)
		}
		fmt.Println()
		fmt.Printf("  status: %s", snap.Status)
		if snap.LastError != "" {
			color.Red("  last_error: %s", snap.LastError)
		}
		fmt.Println()

		for _, msg := range snap.Messages {
			green.Printf("  [%s] ", msg.SenderType)
			fmt.Println(msg.Content)
		}
		if snap.StreamingText != "" {
			gray.Printf("  streaming: %s\n", snap.StreamingText)
		}
		for _, rec := range snap.ActiveToolCalls {
			gray.Printf("  tool %s (%s): %s\n", rec.ToolName, rec.Status, rec.Output)
		}
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = &colorHandler{level: level}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{level: h.level, attrs: newAttrs}
}

func (h *colorHandler) WithGroup(_ string) slog.Handler {
	return h
}
