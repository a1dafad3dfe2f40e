package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-image-restorer/internal/pipeline"
	"go-image-restorer/pkg/models"
	"go-image-restorer/pkg/validation"
)

var stride int

// videoCmd represents the video command
var videoCmd = &cobra.Command{
	Use:   "video <input>",
	Short: "Restore every selected frame of a video",
	Long: `Decode a video with ffmpeg, restore every --stride-th frame, re-encode the
enhanced frames and report on an evenly spaced sample of them.`,
	Args: cobra.ExactArgs(1),
	RunE: runVideo,
}

func init() {
	rootCmd.AddCommand(videoCmd)
	videoCmd.Flags().IntVar(&stride, "stride", validation.DefaultFrameStride, "process every n-th frame")
}

func runVideo(cmd *cobra.Command, args []string) error {
	if stride < 1 {
		return fmt.Errorf("--stride must be >= 1 (got %d)", stride)
	}
	if err := validateInput(models.JobKindVideo, args[0]); err != nil {
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

	report, err := procs.Videos.Process(context.Background(), pipeline.VideoRequest{
		JobID:       resolveJobID(),
		InputPath:   args[0],
		Scale:       scale,
		FrameStride: stride,
		Legibility:  procs.OCR != nil,
	})
	if err != nil {
		return fmt.Errorf("failed to restore %s: %w", args[0], err)
	}

	if IsJSONOutput() {
		return printJSON(os.Stdout, report)
	}
	return printVideoReport(os.Stdout, report)
}
