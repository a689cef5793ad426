package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuanying/comicepub/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comicepub",
		Short: "Package comic page images as fixed-layout EPUB 3 books",
		Long: `comicepub turns a directory of page images into a fixed-layout EPUB 3
book with one image per page, suitable for e-readers.

It can also split landscape spreads into single pages and scrape a range
of web comic chapters, producing one book per chapter.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", cfg.LogFormat, "Log format (text, json)")
	flags.BoolP("verbose", "v", false, "Enable debug logging (same as --log-level debug)")

	cmd.AddCommand(newPackCmd(cfg), newSplitCmd(cfg), newScrapeCmd(cfg), newVerifyCmd())
	return cmd
}

// readLogger builds the logger selected by the global logging flags.
func readLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if _, err := parseLogLevel(level); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	switch strings.ToLower(format) {
	case "text", "json":
	default:
		return nil, fmt.Errorf("--log-format must be text or json, got %q", format)
	}
	if verbose {
		level = "debug"
	}
	return buildLogger(cmd.OutOrStdout(), level, format), nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown level %q (want debug, info, warn or error)", s)
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, _ := parseLogLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
