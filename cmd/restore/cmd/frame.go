package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-image-restorer/internal/pipeline"
	"go-image-restorer/pkg/models"
)

var encodings bool

// frameCmd represents the frame command
var frameCmd = &cobra.Command{
	Use:   "frame <input>",
	Short: "Restore a single image",
	Long:  `Classify the blur of one image, restore it and write the original, deblurred, enhanced and comparison PNGs.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runFrame,
}

func init() {
	rootCmd.AddCommand(frameCmd)
	frameCmd.Flags().BoolVar(&encodings, "encodings", false, "include base64 PNG encodings in JSON output")
}

func runFrame(cmd *cobra.Command, args []string) error {
	if err := validateInput(models.JobKindImage, args[0]); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	procs, err := newProcessors(cfg)
	if err != nil {
		return err
	}
	defer procs.Close()

	report, err := procs.Images.Process(context.Background(), pipeline.ImageRequest{
		JobID:      resolveJobID(),
		InputPath:  args[0],
		Scale:      scale,
		Legibility: procs.OCR != nil,
		Encodings:  encodings && IsJSONOutput(),
	})
	if err != nil {
		return fmt.Errorf("failed to restore %s: %w", args[0], err)
	}

	if IsJSONOutput() {
		return printJSON(os.Stdout, report)
	}
	return printImageReport(os.Stdout, report)
}
