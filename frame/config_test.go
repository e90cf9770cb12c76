// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"testing"
	"time"

	"golang.org/x/image/math/f32"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FramesInFlight != 2 {
		t.Fatalf("Config.FramesInFlight:\nhave %d\nwant 2", cfg.FramesInFlight)
	}
	if cfg.ClearColor != (f32.Vec4{0, 0, 0, 1}) {
		t.Fatalf("Config.ClearColor:\nhave %v\nwant [0 0 0 1]", cfg.ClearColor)
	}
	if cfg.FenceTimeout != 5*time.Second {
		t.Fatalf("Config.FenceTimeout:\nhave %v\nwant 5s", cfg.FenceTimeout)
	}
	if cfg.MaxTimeouts != 3 {
		t.Fatalf("Config.MaxTimeouts:\nhave %d\nwant 3", cfg.MaxTimeouts)
	}
	x := cfg
	x.validate()
	if x != cfg {
		t.Fatalf("Config.validate:\nhave %+v\nwant %+v", x, cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	for _, x := range [...]struct {
		cfg  Config
		want Config
	}{
		{
			Config{},
			Config{FramesInFlight: 2, FenceTimeout: 5 * time.Second, MaxTimeouts: 3},
		},
		{
			Config{FramesInFlight: 3, FenceTimeout: -1, MaxTimeouts: 1},
			Config{FramesInFlight: 3, FenceTimeout: -1, MaxTimeouts: 1},
		},
		{
			Config{FramesInFlight: 4, FenceTimeout: time.Millisecond, MaxTimeouts: -2},
			Config{FramesInFlight: 4, FenceTimeout: time.Millisecond, MaxTimeouts: 3},
		},
		{
			Config{FramesInFlight: -1},
			Config{FramesInFlight: 2, FenceTimeout: 5 * time.Second, MaxTimeouts: 3},
		},
		{
			Config{FramesInFlight: 1, ClearColor: f32.Vec4{1, 0, 0, 1}},
			Config{FramesInFlight: 1, ClearColor: f32.Vec4{1, 0, 0, 1}, FenceTimeout: 5 * time.Second, MaxTimeouts: 3},
		},
	} {
		cfg := x.cfg
		cfg.validate()
		if cfg != x.want {
			t.Fatalf("Config.validate:\nhave %+v\nwant %+v", cfg, x.want)
		}
	}
}
