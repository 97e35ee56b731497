package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultDetection(t *testing.T) {
	d := DefaultDetection()
	want := Detection{DP: 1, MinDist: 20, Param1: 50, Param2: 30, MinRadius: 1, MaxRadius: 40}
	if d != want {
		t.Errorf("DefaultDetection() = %+v, want %+v", d, want)
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestDetectionValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Detection)
	}{
		{"zero dp", func(d *Detection) { d.DP = 0 }},
		{"negative min dist", func(d *Detection) { d.MinDist = -1 }},
		{"zero param1", func(d *Detection) { d.Param1 = 0 }},
		{"zero param2", func(d *Detection) { d.Param2 = 0 }},
		{"negative min radius", func(d *Detection) { d.MinRadius = -1 }},
		{"inverted radius range", func(d *Detection) { d.MinRadius = 50; d.MaxRadius = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultDetection()
			tt.modify(&d)
			if err := d.Validate(); !errors.Is(err, ErrInvalidDetection) {
				t.Errorf("Validate() = %v, want ErrInvalidDetection", err)
			}
		})
	}
}

func writeConfig(t *testing.T, path string, c *Config) {
	t.Helper()
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "missing.json")
	if err := Load(ctx, path); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if got := Get().Detection; got != DefaultDetection() {
		t.Errorf("Get().Detection = %+v, want defaults", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "bad.json")
	c := Default()
	c.Detection.MaxRadius = 0
	c.Detection.MinRadius = 5
	writeConfig(t, path, c)

	if err := Load(ctx, path); !errors.Is(err, ErrInvalidDetection) {
		t.Errorf("Load() = %v, want ErrInvalidDetection", err)
	}
}

func TestLoadAndReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "holecenter.json")
	c := Default()
	c.CameraIndex = 2
	writeConfig(t, path, c)

	changed := make(chan *Config, 4)
	OnChange(func(c *Config) { changed <- c })

	if err := Load(ctx, path); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if got := Get().CameraIndex; got != 2 {
		t.Fatalf("CameraIndex = %d, want 2", got)
	}

	// Give the watcher a moment to attach before rewriting.
	time.Sleep(100 * time.Millisecond)
	c.Detection.MaxRadius = 60
	writeConfig(t, path, c)

	select {
	case got := <-changed:
		if got.Detection.MaxRadius != 60 {
			t.Errorf("reloaded MaxRadius = %d, want 60", got.Detection.MaxRadius)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
	if got := Get().Detection.MaxRadius; got != 60 {
		t.Errorf("Get().Detection.MaxRadius = %d, want 60", got)
	}
}
