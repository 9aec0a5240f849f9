package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// DefaultFFmpeg is the encoder binary looked up on PATH.
const DefaultFFmpeg = "ffmpeg"

// FFmpegSink pipes raw RGBA frames into an ffmpeg process that encodes MP4
// (H.264) or WebM (VP9) at the quality tier's bitrate.
type FFmpegSink struct {
	// Bin is the ffmpeg executable. Empty means DefaultFFmpeg.
	Bin string

	out    output
	format Format
	opts   Options
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	frame  *image.RGBA
}

// NewFFmpegSink encodes format (mp4 or webm) to path.
func NewFFmpegSink(path string, format Format) *FFmpegSink {
	return &FFmpegSink{out: output{path: path}, format: format}
}

func (s *FFmpegSink) codec() (string, error) {
	switch s.format {
	case FormatMP4:
		return "libx264", nil
	case FormatWebM:
		return "libvpx-vp9", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s.format)
}

func (s *FFmpegSink) args(codec, dst string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", s.opts.Width, s.opts.Height),
		"-r", strconv.Itoa(s.opts.FPS),
		"-i", "-",
		"-an",
		"-c:v", codec,
		"-b:v", strconv.Itoa(s.opts.Quality.Bitrate()),
		"-pix_fmt", "yuv420p",
		// yuv420p needs even dimensions.
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-f", string(s.format),
		dst,
	}
}

func (s *FFmpegSink) Begin(opts Options) error {
	s.opts = opts
	codec, err := s.codec()
	if err != nil {
		return err
	}
	bin := s.Bin
	if bin == "" {
		bin = DefaultFFmpeg
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrEncoderUnavailable, s.format, err)
	}

	if err := s.out.create(); err != nil {
		return err
	}
	// ffmpeg opens the destination itself.
	dst := s.out.tmp.Name()

	s.stderr = &tailBuffer{limit: 4096}
	s.cmd = exec.Command(path, s.args(codec, dst)...)
	s.cmd.Stderr = s.stderr
	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		s.out.discard()
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	s.stdin = stdin
	if err := s.cmd.Start(); err != nil {
		s.out.discard()
		return fmt.Errorf("%w %s: %w", ErrEncoderUnavailable, s.format, err)
	}
	s.frame = image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	logger().Debug("ffmpeg started", "bin", path, "codec", codec, "bitrate", opts.Quality.Bitrate())
	return nil
}

func (s *FFmpegSink) WriteFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != s.opts.Width || b.Dy() != s.opts.Height {
		return fmt.Errorf("ffmpeg: frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), s.opts.Width, s.opts.Height)
	}
	// Non-premultiplied RGBA is what rawvideo rgba expects; frames are
	// opaque so the premultiplied pixels are identical.
	xdraw.Draw(s.frame, s.frame.Rect, img, b.Min, xdraw.Src)
	if _, err := s.stdin.Write(s.frame.Pix); err != nil {
		return fmt.Errorf("ffmpeg: write frame: %w%s", err, s.stderr.suffix())
	}
	return nil
}

func (s *FFmpegSink) Finish() error {
	if err := s.stdin.Close(); err != nil {
		return fmt.Errorf("ffmpeg: close input: %w", err)
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w%s", err, s.stderr.suffix())
	}
	s.cmd = nil
	return s.out.commit()
}

func (s *FFmpegSink) Abort() error {
	if s.cmd != nil && s.cmd.Process != nil {
		if s.stdin != nil {
			s.stdin.Close()
		}
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger().Warn("ffmpeg kill failed", "err", err)
		}
		s.cmd.Wait()
		s.cmd = nil
	}
	return s.out.discard()
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) suffix() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	msg := strings.TrimSpace(t.buf.String())
	if msg == "" {
		return ""
	}
	return ": " + msg
}
