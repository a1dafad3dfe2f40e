package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoVideoStream is returned when the container has no decodable video stream
var ErrNoVideoStream = errors.New("no video stream found")

// DefaultFPS is used when the container does not report a usable frame rate
const DefaultFPS = 30.0

// Info describes the first video stream of a file
type Info struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

type probeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		RFrameRate    string `json:"r_frame_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
}

// Probe reads stream geometry, frame rate and frame count with ffprobe
func Probe(ctx context.Context, runner Runner, ffprobePath, path string) (Info, error) {
	out, err := runner.Output(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=width,height,avg_frame_rate,r_frame_rate,nb_frames,nb_read_packets",
		"-of", "json",
		path,
	)
	if err != nil {
		return Info{}, fmt.Errorf("cannot open video %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(data []byte) (Info, error) {
	var parsed probeOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Info{}, fmt.Errorf("invalid ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return Info{}, ErrNoVideoStream
	}
	s := parsed.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return Info{}, fmt.Errorf("%w: invalid dimensions %dx%d", ErrNoVideoStream, s.Width, s.Height)
	}

	fps := parseRate(s.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(s.RFrameRate)
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	count, _ := strconv.Atoi(s.NbFrames)
	if count <= 0 {
		count, _ = strconv.Atoi(s.NbReadPackets)
	}

	return Info{Width: s.Width, Height: s.Height, FPS: fps, FrameCount: count}, nil
}

// parseRate parses "num/den" or a plain number; 0 when unknown
func parseRate(rate string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(rate), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
