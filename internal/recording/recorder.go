// Package recording writes tracked frames to disk as a training dataset.
//
// Layout of a recording directory:
//
//	camera.yml    camera intrinsics K (3x3)
//	diameter.yml  object diameter in metres
//	rgb/<n>.jpg   captured frame
//	mask/<n>.png  object mask, 255 where the rendered depth is positive
//	pose/<n>.yml  object-to-camera transform (4x4)
package recording

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/smazurov/framebridge/internal/metrics"
	"github.com/smazurov/framebridge/internal/tracking"
	"github.com/smazurov/framebridge/internal/video"
)

// DefaultIntrinsics is the calibrated K of the C920 at 640x480.
var DefaultIntrinsics = [9]float64{
	627.746, 0, 327.113,
	0, 627.746, 242.4199,
	0, 0, 1,
}

const jpegQuality = 95

// Options configures a Recorder.
type Options struct {
	// Intrinsics defaults to DefaultIntrinsics.
	Intrinsics *[9]float64
	// DiameterMM is the object diameter in millimetres.
	DiameterMM float64
	// ModelPath, when set, is copied into the recording directory.
	ModelPath string
	Logger    *slog.Logger
}

// Recorder writes numbered frame, mask and pose files. Recording starts off.
type Recorder struct {
	dir     string
	rgbDir  string
	maskDir string
	poseDir string
	logger  *slog.Logger

	recording atomic.Bool
	frames    atomic.Int64

	// mu serializes Update; toggles are lock-free.
	mu   sync.Mutex
	mask *image.Gray
}

// fileStorageHeader opens every file so cv::FileStorage can read it.
// The colon form is what OpenCV expects; it is not a standard YAML directive.
const fileStorageHeader = "%YAML:1.0\n---\n"

// matrixTag marks a mapping as a cv::Mat for OpenCV.
const matrixTag = "!!opencv-matrix"

// matrix is the on-disk form of a dense matrix of doubles.
type matrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Dt   string    `yaml:"dt"`
	Data []float64 `yaml:"data,flow"`
}

func newMatrix(rows, cols int, data []float64) matrix {
	return matrix{Rows: rows, Cols: cols, Dt: "d", Data: data}
}

// MarshalYAML tags the mapping as an OpenCV matrix.
func (m matrix) MarshalYAML() (any, error) {
	type plain matrix
	var n yaml.Node
	if err := n.Encode(plain(m)); err != nil {
		return nil, err
	}
	n.Tag = matrixTag
	return &n, nil
}

// New creates dir and its rgb, mask and pose subdirectories, then writes the
// camera and diameter files.
func New(dir string, opts Options) (*Recorder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		dir:     dir,
		rgbDir:  filepath.Join(dir, "rgb"),
		maskDir: filepath.Join(dir, "mask"),
		poseDir: filepath.Join(dir, "pose"),
		logger:  logger,
	}
	for _, d := range []string{r.rgbDir, r.maskDir, r.poseDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create recording directory: %w", err)
		}
	}

	k := DefaultIntrinsics
	if opts.Intrinsics != nil {
		k = *opts.Intrinsics
	}
	if err := writeYAML(filepath.Join(dir, "camera.yml"), map[string]matrix{
		"camera": newMatrix(3, 3, k[:]),
	}); err != nil {
		return nil, err
	}
	if err := writeYAML(filepath.Join(dir, "diameter.yml"), map[string]float64{
		"diameter": opts.DiameterMM * 0.001,
	}); err != nil {
		return nil, err
	}

	if opts.ModelPath != "" {
		if err := copyFile(opts.ModelPath, filepath.Join(dir, filepath.Base(opts.ModelPath))); err != nil {
			return nil, fmt.Errorf("copy object model: %w", err)
		}
	}
	return r, nil
}

// Dir returns the recording directory.
func (r *Recorder) Dir() string { return r.dir }

// Toggle flips recording on or off and returns the new state.
func (r *Recorder) Toggle() bool {
	for {
		old := r.recording.Load()
		if r.recording.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Recording reports whether Update writes files.
func (r *Recorder) Recording() bool { return r.recording.Load() }

// Frames returns how many frames were written.
func (r *Recorder) Frames() int { return int(r.frames.Load()) }

// Update writes frame n: the image, its mask derived from depth, and pose.
// It does nothing while recording is off. depth may be nil, giving an empty mask.
func (r *Recorder) Update(frame *video.Frame, depth []float32, pose tracking.Matrix4) error {
	if !r.recording.Load() {
		return nil
	}
	if frame.Empty() {
		return fmt.Errorf("record frame: %w", video.ErrEmptyFrame)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := strconv.FormatInt(r.frames.Load(), 10)

	if err := writeImage(filepath.Join(r.rgbDir, n+".jpg"), func(w io.Writer) error {
		return jpeg.Encode(w, frame, &jpeg.Options{Quality: jpegQuality})
	}); err != nil {
		return err
	}

	mask := r.maskFor(frame.Width, frame.Height, depth)
	if err := writeImage(filepath.Join(r.maskDir, n+".png"), func(w io.Writer) error {
		return png.Encode(w, mask)
	}); err != nil {
		return err
	}

	data := make([]float64, 0, 16)
	for _, row := range pose {
		data = append(data, row[:]...)
	}
	if err := writeYAML(filepath.Join(r.poseDir, n+".yml"), map[string]matrix{
		"pose": newMatrix(4, 4, data),
	}); err != nil {
		return err
	}

	r.frames.Add(1)
	metrics.IncRecordingFrames()
	r.logger.Debug("Recorded frame", "index", n)
	return nil
}

// maskFor thresholds depth into a binary mask. A depth slice of the wrong
// length yields an empty mask.
func (r *Recorder) maskFor(width, height int, depth []float32) *image.Gray {
	if r.mask == nil || r.mask.Rect.Dx() != width || r.mask.Rect.Dy() != height {
		r.mask = image.NewGray(image.Rect(0, 0, width, height))
	}
	pix := r.mask.Pix
	if len(depth) != width*height {
		clear(pix)
		return r.mask
	}
	for i, d := range depth {
		if d > 0 {
			pix[i] = 255
		} else {
			pix[i] = 0
		}
	}
	return r.mask
}

func writeImage(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := encode(w); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeYAML writes v as a cv::FileStorage YAML document.
func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, append([]byte(fileStorageHeader), data...), 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
