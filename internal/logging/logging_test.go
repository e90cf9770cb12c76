// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	if Get().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("Get().Enabled(LevelError):\nhave true\nwant false")
	}
}

func TestSet(t *testing.T) {
	defer Set(nil)
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	Set(l)
	if x := Get(); x != l {
		t.Fatalf("Get:\nhave %p\nwant %p", x, l)
	}
	Get().Info("hello", "n", 1)
	if s := buf.String(); !strings.Contains(s, "msg=hello") || !strings.Contains(s, "n=1") {
		t.Fatalf("logged output:\nhave %q\nwant msg=hello and n=1", s)
	}
	Set(nil)
	if Get().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("Set(nil): logger is not silent")
	}
}

func TestOr(t *testing.T) {
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if x := Or(l); x != l {
		t.Fatalf("Or(l):\nhave %p\nwant %p", x, l)
	}
	if x := Or(nil); x != Get() {
		t.Fatalf("Or(nil):\nhave %p\nwant %p", x, Get())
	}
}
