package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Name     string        `toml:"test.name" env:"TEST_NAME"`
	Enabled  bool          `toml:"test.enabled" env:"TEST_ENABLED"`
	Width    int           `toml:"test.width" env:"TEST_WIDTH"`
	Distance float64       `toml:"test.distance" env:"TEST_DISTANCE"`
	Interval time.Duration `toml:"test.interval" env:"TEST_INTERVAL"`
	Tags     []string      `toml:"test.tags" env:"TEST_TAGS"`
	Nested   string        `toml:"outer.inner.value" env:"NESTED"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "framebridge.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[test]
name = "c920"
enabled = true
width = 1280
distance = 1000
interval = "250ms"
tags = ["a", "b"]

[outer.inner]
value = "deep"
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := testOptions{
		Config:   path,
		Name:     "c920",
		Enabled:  true,
		Width:    1280,
		Distance: 1000,
		Interval: 250 * time.Millisecond,
		Tags:     []string{"a", "b"},
		Nested:   "deep",
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("got %+v\nwant %+v", *opts, want)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FRAMEBRIDGE_TEST_NAME", "env")
	t.Setenv("FRAMEBRIDGE_TEST_ENABLED", "true")
	t.Setenv("FRAMEBRIDGE_TEST_WIDTH", "320")
	t.Setenv("FRAMEBRIDGE_TEST_DISTANCE", "1.5")
	t.Setenv("FRAMEBRIDGE_TEST_INTERVAL", "2s")
	t.Setenv("FRAMEBRIDGE_TEST_TAGS", "x, y")

	opts := &testOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if opts.Name != "env" || !opts.Enabled || opts.Width != 320 || opts.Distance != 1.5 || opts.Interval != 2*time.Second {
		t.Errorf("got %+v", *opts)
	}
	if !reflect.DeepEqual(opts.Tags, []string{"x", "y"}) {
		t.Errorf("Tags = %v", opts.Tags)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, `
[test]
name = "file"
width = 800
distance = 2.5
`)
	t.Setenv("FRAMEBRIDGE_TEST_WIDTH", "1024")
	t.Setenv("FRAMEBRIDGE_TEST_NAME", "env")

	cmd := &cobra.Command{Use: "test"}
	opts := &testOptions{Config: path}
	cmd.Flags().StringVar(&opts.Name, "name", "default", "")
	cmd.Flags().IntVar(&opts.Width, "width", 640, "")
	cmd.Flags().Float64Var(&opts.Distance, "distance", 1000, "")
	if err := cmd.Flags().Parse([]string{"--name", "flag"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tests := []struct {
		field string
		got   any
		want  any
	}{
		{"Name (flag beats env and file)", opts.Name, "flag"},
		{"Width (env beats file)", opts.Width, 1024},
		{"Distance (file beats default)", opts.Distance, 2.5},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.field, tt.got, tt.want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), Width: 640}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if opts.Width != 640 {
		t.Errorf("default overwritten: %d", opts.Width)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{"invalid toml", "[test\nbroken", nil},
		{"wrong type", "[test]\nwidth = \"wide\"\n", nil},
		{"bad env int", "", map[string]string{"FRAMEBRIDGE_TEST_WIDTH": "wide"}},
		{"bad env duration", "", map[string]string{"FRAMEBRIDGE_TEST_INTERVAL": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &testOptions{Config: writeConfig(t, tt.toml)}
			if err := LoadConfig(opts, nil); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Error("expected an error for a struct value")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Device":             "device",
		"LogLevel":           "log-level",
		"ZDistance":          "z-distance",
		"GenObjectTemplates": "gen-object-templates",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
format = "json"
producer = "debug"
framechannel = "error"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("got level=%q format=%q", cfg.Level, cfg.Format)
	}
	want := map[string]string{"producer": "debug", "framechannel": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	if def := LoadLoggingConfig(""); def.Level != "info" || def.Format != "text" {
		t.Errorf("defaults = %+v", def)
	}
}
