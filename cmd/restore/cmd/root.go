package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-image-restorer/internal/config"
	"go-image-restorer/internal/container"
	"go-image-restorer/internal/factory"
	"go-image-restorer/internal/logger"
	"go-image-restorer/pkg/models"
	"go-image-restorer/pkg/validation"
)

var (
	outputFormat string
	outputDir    string
	backend      string
	jobID        string
	scale        int
	noOCR        bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore blurred frames and videos locally",
	Long: `restore runs the blur classification and restoration pipeline on a local
file without the HTTP API. Artifacts are written below --out-dir/<job-id>.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&outputDir, "out-dir", "", "artifact directory (default OUTPUT_DIR)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "model backend: classical or remote (default MODEL_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&jobID, "job-id", "", "artifact folder name (default random UUID)")
	rootCmd.PersistentFlags().IntVar(&scale, "scale", 2, "enhancement factor (1-4)")
	rootCmd.PersistentFlags().BoolVar(&noOCR, "no-ocr", false, "skip OCR legibility reports")
}

// loadConfig layers the command line flags over the environment configuration
func loadConfig() (*config.Config, error) {
	logger.Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if backend != "" {
		cfg.ModelBackend = backend
	}
	if noOCR {
		cfg.OCREnabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scale < 1 || scale > 4 {
		return nil, fmt.Errorf("--scale must be between 1 and 4 (got %d)", scale)
	}
	return cfg, nil
}

// validateInput applies the upload extension rules to a local input file
func validateInput(kind models.JobKind, path string) error {
	if err := validation.NewUploadValidator().ValidateFilename(kind, path); err != nil {
		return fmt.Errorf("cannot restore %s: %w", path, err)
	}
	return nil
}

func newProcessors(cfg *config.Config) (*container.Processors, error) {
	return container.NewProcessors(cfg, factory.NewComponentFactory(cfg))
}

func resolveJobID() string {
	if jobID != "" {
		return jobID
	}
	return uuid.NewString()
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
