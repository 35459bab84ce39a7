// Package cli implements the notemark command line.
package cli

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/notemark/internal/config"
	"github.com/dgallion1/notemark/internal/pipeline"
)

var version = "dev"

var (
	configPath  string
	verbose     bool
	pdfFallback bool
)

var rootCmd = &cobra.Command{
	Use:   "notemark",
	Short: "Convert block markup notes to HTML",
	Long: `notemark turns plain-text notes written in block markup (headers,
numbered statements such as LEMMA or THEOREM, and <@id> cross-references)
into standalone HTML pages with MathJax-ready math.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("NOTEMARK_CONFIG"), "Markup configuration file (.json or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")
	rootCmd.PersistentFlags().BoolVar(&pdfFallback, "pdftotext", false, "Fall back to pdftotext when the built-in PDF reader fails")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

func logger(cmd *cobra.Command) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadMarkup() (config.Markup, error) {
	if configPath == "" {
		return config.DefaultMarkup(), nil
	}
	return config.LoadMarkup(configPath)
}

func newConverter(stats *pipeline.RenderStats) (*pipeline.Converter, error) {
	m, err := loadMarkup()
	if err != nil {
		return nil, err
	}
	return pipeline.NewConverter(m, stats)
}

// readFile returns the markup text of path.
func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return pipeline.ReadSource(path, data, pdfFallback)
}

// convertFile reads and converts a single file in the foreground.
func convertFile(cmd *cobra.Command, path string) (*pipeline.Result, error) {
	conv, err := newConverter(pipeline.NewRenderStats(time.Minute))
	if err != nil {
		return nil, err
	}
	text, err := readFile(path)
	if err != nil {
		return nil, err
	}
	res, err := conv.Convert(cmd.Context(), path, text)
	if err != nil {
		return nil, err
	}
	logger(cmd).Debug("converted", "file", path, "blocks", len(res.Blocks), "duration", res.Duration)
	return res, nil
}
