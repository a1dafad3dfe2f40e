package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"go-image-restorer/pkg/models"
)

func printJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func printImageReport(w io.Writer, r *models.ImageReport) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")

	table.Append("Tier", r.Tier.String())
	table.Append("Laplacian variance", fmt.Sprintf("%.2f", r.Blur.Variance))
	table.Append("Edge density", fmt.Sprintf("%.4f", r.Blur.EdgeDensity))
	table.Append("Deblur passes", fmt.Sprintf("%d", r.DeblurPasses))
	table.Append("Scale", fmt.Sprintf("%dx", r.Scale))
	table.Append("Size", fmt.Sprintf("%s -> %s", formatSize(r.OriginalSize), formatSize(r.EnhancedSize)))
	appendLegibility(table, r.Legibility)
	table.Append("Comparison", r.Artifacts.Comparison)
	table.Append("Time", fmt.Sprintf("%.2fs", r.ProcessingTimeSec))

	return table.Render()
}

func printVideoReport(w io.Writer, r *models.VideoReport) error {
	summary := tablewriter.NewWriter(w)
	summary.Header("Field", "Value")
	summary.Append("Frames", fmt.Sprintf("%d processed of %d (stride %d)", r.ProcessedFrameCount, r.TotalFrameCount, r.FrameStride))
	summary.Append("Deblurred", fmt.Sprintf("%d", r.DeblurredFrameCount))
	summary.Append("FPS", fmt.Sprintf("%.2f", r.FPS))
	summary.Append("Scale", fmt.Sprintf("%dx", r.Scale))
	summary.Append("Output", r.OutputVideo)
	summary.Append("Time", fmt.Sprintf("%.2fs", r.ProcessingTimeSec))
	if err := summary.Render(); err != nil {
		return err
	}

	if len(r.SampledFrames) == 0 {
		return nil
	}
	fmt.Fprintln(w)

	samples := tablewriter.NewWriter(w)
	samples.Header("Frame", "Tier", "Variance", "Confidence", "Comparison")
	for _, s := range r.SampledFrames {
		confidence := "-"
		if s.Legibility != nil {
			confidence = fmt.Sprintf("%.3f -> %.3f", s.Legibility.BeforeConfidence, s.Legibility.AfterConfidence)
		}
		samples.Append(
			fmt.Sprintf("%d", s.FrameID),
			s.Tier.String(),
			fmt.Sprintf("%.2f", s.Blur.Variance),
			confidence,
			s.Artifacts.Comparison,
		)
	}
	return samples.Render()
}

func appendLegibility(table *tablewriter.Table, l *models.LegibilityReport) {
	if l == nil {
		return
	}
	table.Append("OCR confidence", fmt.Sprintf("%.3f -> %.3f (%+.3f)", l.BeforeConfidence, l.AfterConfidence, l.Delta))
	table.Append("Main text regions", fmt.Sprintf("%d -> %d", l.BeforeFilteredCount, l.AfterFilteredCount))
	if l.Similarity != nil {
		table.Append("Text CER / WER", fmt.Sprintf("%.3f / %.3f", l.Similarity.CharErrorRate, l.Similarity.WordErrorRate))
	}
}

func formatSize(s models.Size) string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}
