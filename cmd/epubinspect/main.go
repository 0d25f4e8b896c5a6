package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yuanying/epubinspect/internal/epub"
	"github.com/yuanying/epubinspect/internal/inspector"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

var errNoCover = errors.New("book has no cover image")

// cliOptions is the validated form of the command line.
type cliOptions struct {
	ArchivePath  string
	Logger       *zap.Logger
	Workers      int
	MaxEntrySize int64
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "epubinspect",
		Short: "Inspect the structure of EPUB files",
		Long: `epubinspect reads an EPUB container and reports what a reading
application needs: reading order, navigation, virtual positions and the cover.

It never renders content.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("log-level", defaultLogLevel, "Log level: debug, info, warn, error")
	pf.String("log-format", defaultLogFormat, "Log format: text, json")
	pf.BoolP("verbose", "v", false, "Enable debug logging (overrides --log-level)")
	pf.Int("workers", 0, "Concurrent extraction steps per book (default 4)")
	pf.Int64("max-entry-size", 0, "Largest archive entry to read, in KiB (default 262144)")

	root.AddCommand(newManifestCmd(), newCoverCmd(), newEntryCmd())
	return root
}

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest BOOK.epub",
		Short: "Print resources, navigation and locators as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			defer opts.Logger.Sync() //nolint:errcheck

			m, err := newInspector(opts).Manifest(opts.ArchivePath)
			if err != nil {
				return fmt.Errorf("inspection failed: %w", err)
			}

			indent, _ := cmd.Flags().GetBool("indent")
			return writeJSON(cmd.OutOrStdout(), m, indent)
		},
	}
	cmd.Flags().Bool("indent", false, "Indent JSON output")
	return cmd
}

func newCoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cover BOOK.epub",
		Short: "Extract the cover image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			defer opts.Logger.Sync() //nolint:errcheck

			cover, err := newInspector(opts).Cover(opts.ArchivePath)
			if err != nil {
				return fmt.Errorf("cover extraction failed: %w", err)
			}
			if cover == nil {
				return errNoCover
			}

			data := cover.Data
			mediaType := cover.MediaType
			if maxWidth, _ := cmd.Flags().GetInt("max-width"); maxWidth > 0 {
				thumb, err := inspector.CoverThumbnail(cover, maxWidth)
				if err != nil {
					return err
				}
				data, mediaType = thumb.Data, thumb.MediaType
			}

			output, _ := cmd.Flags().GetString("output")
			opts.Logger.Info("cover found",
				zap.String("href", cover.Href),
				zap.String("mediaType", mediaType),
				zap.String("method", cover.DetectionMethod))
			return writeOutput(cmd.OutOrStdout(), output, data)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().Int("max-width", 0, "Scale the cover down to this width in pixels")
	return cmd
}

func newEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry BOOK.epub ENTRY",
		Short: "Extract one archive entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args[:1])
			if err != nil {
				return err
			}
			defer opts.Logger.Sync() //nolint:errcheck

			data, err := newInspector(opts).EntryStream(opts.ArchivePath, args[1])
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			return writeOutput(cmd.OutOrStdout(), output, data)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	return cmd
}

// readCLIOptions validates flags shared by every subcommand.
func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	flags := cmd.Flags()
	logLevel, _ := flags.GetString("log-level")
	logFormat, _ := flags.GetString("log-format")
	verbose, _ := flags.GetBool("verbose")
	workers, _ := flags.GetInt("workers")
	maxEntryKiB, _ := flags.GetInt64("max-entry-size")

	if verbose {
		logLevel = "debug"
	}
	logLevel = strings.ToLower(logLevel)
	if _, err := zapcore.ParseLevel(logLevel); err != nil || logLevel == "dpanic" || logLevel == "panic" || logLevel == "fatal" {
		return cliOptions{}, fmt.Errorf("--log-level must be one of debug, info, warn, error: %q", logLevel)
	}
	logFormat = strings.ToLower(logFormat)
	if logFormat != "text" && logFormat != "json" {
		return cliOptions{}, fmt.Errorf("--log-format must be text or json: %q", logFormat)
	}
	if workers < 0 {
		return cliOptions{}, fmt.Errorf("--workers must not be negative: %d", workers)
	}
	if maxEntryKiB < 0 {
		return cliOptions{}, fmt.Errorf("--max-entry-size must not be negative: %d", maxEntryKiB)
	}

	opts := cliOptions{
		Logger:       buildLogger(cmd.ErrOrStderr(), logLevel, logFormat),
		Workers:      workers,
		MaxEntrySize: maxEntryKiB * 1024,
	}
	if len(args) > 0 {
		opts.ArchivePath = args[0]
	}
	return opts, nil
}

// buildLogger creates a zap logger writing to w. Unknown levels fall back to info.
func buildLogger(w io.Writer, level, format string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var enc zapcore.Encoder
	if strings.EqualFold(format, "json") {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
}

func newInspector(opts cliOptions) *inspector.Inspector {
	return inspector.New(inspector.Options{
		Logger:       opts.Logger,
		Workers:      opts.Workers,
		MaxEntrySize: opts.MaxEntrySize,
	})
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, epub.ErrEntryNotFound) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
