package recording

import (
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/smazurov/framebridge/internal/tracking"
	"github.com/smazurov/framebridge/internal/video"
)

// readYAML checks the FileStorage header and decodes the document after it.
func readYAML(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	body, ok := strings.CutPrefix(string(data), fileStorageHeader)
	if !ok {
		t.Fatalf("%s: missing %q header in %q", path, fileStorageHeader, data)
	}
	if err := yaml.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("%s: %v", path, err)
	}
}

// readMatrix decodes the matrix stored under key and checks its OpenCV tag.
func readMatrix(t *testing.T, path, key string) matrix {
	t.Helper()
	var doc map[string]yaml.Node
	readYAML(t, path, &doc)
	n, ok := doc[key]
	if !ok {
		t.Fatalf("%s: no %q key", path, key)
	}
	if n.ShortTag() != matrixTag {
		t.Errorf("%s: %s tag = %q, want %q", path, key, n.ShortTag(), matrixTag)
	}
	var m matrix
	if err := n.Decode(&m); err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	if m.Dt != "d" {
		t.Errorf("%s: dt = %q, want d", path, m.Dt)
	}
	return m
}

func TestNewWritesCalibration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cat")
	model := filepath.Join(t.TempDir(), "cat.obj")
	os.WriteFile(model, []byte("v 0 0 0\n"), 0o644)

	if _, err := New(dir, Options{DiameterMM: 120, ModelPath: model}); err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, sub := range []string{"rgb", "mask", "pose", "cat.obj"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("%s missing: %v", sub, err)
		}
	}

	if k := readMatrix(t, filepath.Join(dir, "camera.yml"), "camera"); k.Rows != 3 || k.Cols != 3 || len(k.Data) != 9 || k.Data[0] != 627.746 || k.Data[5] != 242.4199 {
		t.Errorf("camera = %+v", k)
	}

	var diameter map[string]float64
	readYAML(t, filepath.Join(dir, "diameter.yml"), &diameter)
	if d := diameter["diameter"]; d < 0.11999 || d > 0.12001 {
		t.Errorf("diameter = %v, want 0.12", d)
	}
}

func TestUpdateWhileOffDoesNothing(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Update(video.NewFrame(4, 4), nil, tracking.Identity()); err != nil {
		t.Fatal(err)
	}
	if r.Frames() != 0 {
		t.Errorf("Frames = %d, want 0", r.Frames())
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "rgb"))
	if len(entries) != 0 {
		t.Errorf("rgb holds %d files", len(entries))
	}
}

func TestUpdateWritesNumberedFiles(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Toggle() {
		t.Fatal("Toggle did not enable recording")
	}

	frame := video.NewFrame(4, 2)
	frame.Fill(10, 20, 30)
	depth := []float32{0, 1.5, 0, 0, 0, 0, 2, 0}
	pose := tracking.Pose{Tx: 1, Ty: 2, Tz: 3}.Matrix()

	for range 2 {
		if err := r.Update(frame, depth, pose); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if r.Frames() != 2 {
		t.Fatalf("Frames = %d, want 2", r.Frames())
	}

	for _, n := range []string{"0", "1"} {
		f, err := os.Open(filepath.Join(dir, "rgb", n+".jpg"))
		if err != nil {
			t.Fatal(err)
		}
		img, err := jpeg.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("rgb/%s.jpg: %v", n, err)
		}
		if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
			t.Errorf("rgb/%s.jpg is %v", n, b)
		}
	}

	f, err := os.Open(filepath.Join(dir, "mask", "1.png"))
	if err != nil {
		t.Fatal(err)
	}
	mask, err := png.Decode(f)
	f.Close()
	if err != nil {
		t.Fatal(err)
	}
	for i, d := range depth {
		x, y := i%4, i/4
		v, _, _, _ := mask.At(x, y).RGBA()
		want := uint32(0)
		if d > 0 {
			want = 0xffff
		}
		if v != want {
			t.Errorf("mask(%d,%d) = %#x, want %#x", x, y, v, want)
		}
	}

	p := readMatrix(t, filepath.Join(dir, "pose", "1.yml"), "pose")
	if p.Rows != 4 || p.Cols != 4 || len(p.Data) != 16 {
		t.Fatalf("pose = %+v", p)
	}
	if p.Data[3] != 1 || p.Data[7] != 2 || p.Data[11] != 3 || p.Data[15] != 1 {
		t.Errorf("pose translation column = %v", p.Data)
	}
}

func TestUpdateMismatchedDepthGivesEmptyMask(t *testing.T) {
	dir := t.TempDir()
	r, _ := New(dir, Options{})
	r.Toggle()

	if err := r.Update(video.NewFrame(3, 3), []float32{1, 1}, tracking.Identity()); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filepath.Join(dir, "mask", "0.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	mask, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if v, _, _, _ := mask.At(0, 0).RGBA(); v != 0 {
		t.Error("mask not empty")
	}
}

func TestToggleStopsRecording(t *testing.T) {
	r, _ := New(t.TempDir(), Options{})
	r.Toggle()
	r.Update(video.NewFrame(2, 2), nil, tracking.Identity())
	if r.Toggle() {
		t.Fatal("second Toggle should disable recording")
	}
	r.Update(video.NewFrame(2, 2), nil, tracking.Identity())
	if r.Frames() != 1 {
		t.Errorf("Frames = %d, want 1", r.Frames())
	}
}

func TestUpdateRejectsEmptyFrame(t *testing.T) {
	r, _ := New(t.TempDir(), Options{})
	r.Toggle()
	if err := r.Update(&video.Frame{}, nil, tracking.Identity()); err == nil {
		t.Error("empty frame accepted")
	}
}

func TestMatrixFileStorageLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yml")
	if err := writeYAML(path, map[string]matrix{"camera": newMatrix(1, 2, []float64{1.5, 2})}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "%YAML:1.0\n---\ncamera: !!opencv-matrix\n    rows: 1\n    cols: 2\n    dt: d\n    data: [1.5, 2]\n"
	if string(data) != want {
		t.Errorf("file =\n%s\nwant\n%s", data, want)
	}
}
