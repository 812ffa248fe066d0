package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriterProducesNonEmptyFileWithInitSegmentAndCluster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.mkv")
	w, err := New(path, 1280, 720, []byte{0x01, 0x42, 0x00, 0x1f})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := w.WriteVideoFrame(1000, true, []byte("keyframe-data")); err != nil {
		t.Fatalf("WriteVideoFrame: %v", err)
	}
	if err := w.WriteVideoFrame(1033, false, []byte("delta-data")); err != nil {
		t.Fatalf("WriteVideoFrame: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.FlushAndClose(ctx); err != nil {
		t.Fatalf("FlushAndClose: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty output file")
	}
}

func TestWriterWaitsForKeyframeBeforeInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.mkv")
	w, err := New(path, 640, 480, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.WriteVideoFrame(0, false, []byte("delta")); err != nil {
		t.Fatalf("WriteVideoFrame: %v", err)
	}
	if w.wroteInit {
		t.Fatal("should not write init segment before first keyframe")
	}
}

func TestWriterRejectsWritesAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.mkv")
	w, _ := New(path, 640, 480, nil)
	_ = w.WriteVideoFrame(0, true, []byte("kf"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = w.FlushAndClose(ctx)

	if err := w.WriteVideoFrame(100, true, []byte("kf2")); err == nil {
		t.Fatal("expected error writing after close")
	}
}
