package source

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestSyntheticProducesFramesThenEOF(t *testing.T) {
	src := NewSynthetic(SyntheticOptions{Width: 64, Height: 48, Frames: 3})
	defer src.Close()

	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		frame, err := src.NextFrame(ctx)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if frame.Seq != i {
			t.Errorf("expected seq %d, got %d", i, frame.Seq)
		}
		if frame.Width != 64 || frame.Height != 48 || len(frame.Data) != 64*48*3 {
			t.Errorf("unexpected geometry %dx%d (%d bytes)", frame.Width, frame.Height, len(frame.Data))
		}
	}

	if _, err := src.NextFrame(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSyntheticSquareMoves(t *testing.T) {
	src := NewSynthetic(SyntheticOptions{Width: 100, Height: 100, Size: 10, Speed: 5})
	ctx := context.Background()

	first, _ := src.NextFrame(ctx)
	second, _ := src.NextFrame(ctx)

	if first.Luma(2, 2) != 255 {
		t.Fatalf("expected the square at the origin, luma=%d", first.Luma(2, 2))
	}
	if first.Luma(50, 50) != 16 {
		t.Fatalf("expected dark background, luma=%d", first.Luma(50, 50))
	}
	if second.Luma(2, 2) == 255 || second.Luma(12, 12) != 255 {
		t.Fatal("expected the square to move diagonally")
	}
}

func TestSyntheticBounces(t *testing.T) {
	pos, vel := bounce(95, 10, 100)
	if pos != 95 || vel != -10 {
		t.Errorf("expected reflection off the far edge, got pos=%d vel=%d", pos, vel)
	}
	pos, vel = bounce(3, -5, 100)
	if pos != 2 || vel != 5 {
		t.Errorf("expected reflection off the near edge, got pos=%d vel=%d", pos, vel)
	}
}

func TestSyntheticClosedAndCancelled(t *testing.T) {
	src := NewSynthetic(SyntheticOptions{Width: 8, Height: 8})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.NextFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	_ = src.Close()
	if _, err := src.NextFrame(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after Close, got %v", err)
	}
}
