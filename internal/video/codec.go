package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"

	"go-image-restorer/internal/imaging"
)

// Decoder streams rgb24 frames out of an ffmpeg process in presentation order
type Decoder struct {
	proc   *Process
	cancel context.CancelFunc
	width  int
	height int
	buf    []byte
	next   int
	done   bool
}

// OpenDecoder starts ffmpeg decoding path to raw rgb24 at the probed size.
// Display-matrix rotation is ignored so frames keep the coded width and
// height that Probe reports.
func OpenDecoder(ctx context.Context, runner Runner, ffmpegPath, path string, info Info) (*Decoder, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", info.Width, info.Height)
	}
	ctx, cancel := context.WithCancel(ctx)
	proc, err := runner.Start(ctx, ffmpegPath,
		"-v", "error",
		"-noautorotate",
		"-i", path,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("cannot open video %s: %w", path, err)
	}
	if proc.Stdin != nil {
		proc.Stdin.Close()
	}
	return &Decoder{
		proc:   proc,
		cancel: cancel,
		width:  info.Width,
		height: info.Height,
		buf:    make([]byte, info.Width*info.Height*3),
	}, nil
}

// Next returns the next frame and its zero-based index, or io.EOF after the last frame
func (d *Decoder) Next() (*image.RGBA, int, error) {
	if d.done {
		return nil, 0, io.EOF
	}
	_, err := io.ReadFull(d.proc.Stdout, d.buf)
	if errors.Is(err, io.EOF) {
		d.done = true
		if werr := d.proc.Wait(); werr != nil {
			return nil, 0, fmt.Errorf("decoder exited with error: %w", werr)
		}
		return nil, 0, io.EOF
	}
	if err != nil {
		d.done = true
		d.proc.Wait()
		return nil, 0, fmt.Errorf("truncated frame %d: %w", d.next, err)
	}

	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	for src, dst := 0, 0; src < len(d.buf); src, dst = src+3, dst+4 {
		img.Pix[dst] = d.buf[src]
		img.Pix[dst+1] = d.buf[src+1]
		img.Pix[dst+2] = d.buf[src+2]
		img.Pix[dst+3] = 0xff
	}
	index := d.next
	d.next++
	return img, index, nil
}

// Close stops ffmpeg if it is still running
func (d *Decoder) Close() error {
	d.cancel()
	if !d.done {
		d.done = true
		d.proc.Stdout.Close()
		d.proc.Wait()
	}
	return nil
}

// Encoder streams rgb24 frames into an ffmpeg mpeg4 encoder
type Encoder struct {
	proc   *Process
	width  int
	height int
	buf    []byte
	frames int
	closed bool
}

// OpenEncoder starts ffmpeg writing an mpeg4 file of the given size and rate
func OpenEncoder(ctx context.Context, runner Runner, ffmpegPath, outPath string, width, height int, fps float64) (*Encoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", width, height)
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	proc, err := runner.Start(ctx, ffmpegPath,
		"-v", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "mpeg4",
		"-q:v", "3",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create video writer %s: %w", outPath, err)
	}
	return &Encoder{
		proc:   proc,
		width:  width,
		height: height,
		buf:    make([]byte, width*height*3),
	}, nil
}

// Write appends one frame; it must match the encoder size
func (e *Encoder) Write(img image.Image) error {
	if e.closed {
		return errors.New("encoder closed")
	}
	b := img.Bounds()
	if b.Dx() != e.width || b.Dy() != e.height {
		return fmt.Errorf("frame size %dx%d does not match encoder %dx%d", b.Dx(), b.Dy(), e.width, e.height)
	}
	rgba := imaging.ToRGBA(img)
	for y := 0; y < e.height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+e.width*4]
		out := e.buf[y*e.width*3:]
		for x := 0; x < e.width; x++ {
			out[x*3] = row[x*4]
			out[x*3+1] = row[x*4+1]
			out[x*3+2] = row[x*4+2]
		}
	}
	if _, err := e.proc.Stdin.Write(e.buf); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", e.frames, err)
	}
	e.frames++
	return nil
}

// Frames returns the number of frames written
func (e *Encoder) Frames() int {
	return e.frames
}

// Close flushes the stream and waits for ffmpeg to finalize the file
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.proc.Stdin.Close(); err != nil {
		e.proc.Wait()
		return err
	}
	if e.proc.Stdout != nil {
		io.Copy(io.Discard, e.proc.Stdout)
	}
	return e.proc.Wait()
}
