package renderer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khaledhikmat/tandem-go/model"
)

func TestLabel(t *testing.T) {
	names := []string{"person", "bicycle"}
	tests := []struct {
		det  model.Detection
		want string
	}{
		{model.Detection{ClassID: 0, Confidence: 0.876}, "person:0.88"},
		{model.Detection{ClassID: 1, Confidence: 1}, "bicycle:1.00"},
		{model.Detection{ClassID: 7, Confidence: 0.5}, "7:0.50"},
		{model.Detection{ClassID: -1, Confidence: 0.5}, "-1:0.50"},
	}
	for _, tt := range tests {
		if got := Label(tt.det, names); got != tt.want {
			t.Errorf("Label(%+v) = %q, want %q", tt.det, got, tt.want)
		}
	}
}

func TestConsoleWritesPlainLines(t *testing.T) {
	var buf bytes.Buffer
	off := false
	r := NewConsole(&buf, ConsoleOptions{Names: []string{"square"}, Colour: &off})

	set := model.DetectionSet{{ClassID: 0, Confidence: 1, X1: 2, Y1: 4, X2: 12, Y2: 24}}
	if err := r.Render(context.Background(), model.Frame{Seq: 3}, set); err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "frame 3: 1 object(s)") {
		t.Errorf("missing frame header in %q", got)
	}
	if !strings.Contains(got, "square:1.00 [2,4 10x20]") {
		t.Errorf("missing detection in %q", got)
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("expected no escape codes, got %q", got)
	}
}

func TestConsoleEvery(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsole(&buf, ConsoleOptions{Every: 3})
	for i := int64(1); i <= 7; i++ {
		_ = r.Render(context.Background(), model.Frame{Seq: i}, nil)
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Fatalf("expected 3 lines for 7 frames every 3, got %d", n)
	}
}

func TestJournalWritesNonEmptySets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detections.log")
	r := NewJournal(path, []string{"square"})

	ctx := context.Background()
	_ = r.Render(ctx, model.Frame{Seq: 1}, model.DetectionSet{})
	_ = r.Render(ctx, model.Frame{Seq: 2}, model.DetectionSet{{ClassID: 0, Confidence: 0.5, X2: 4, Y2: 4}})
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	var entries []journalEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e journalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad journal line %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(entries))
	}
	if entries[0].Seq != 2 || entries[0].Detections[0].Label != "square:0.50" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

type stubRenderer struct {
	calls int
	err   error
}

func (s *stubRenderer) Render(context.Context, model.Frame, model.DetectionSet) error {
	s.calls++
	return s.err
}

func (s *stubRenderer) Close() error { return s.err }

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b := &stubRenderer{err: boom}, &stubRenderer{}
	m := NewMulti(a, b)

	err := m.Render(context.Background(), model.Frame{}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("expected both renderers called, got %d and %d", a.calls, b.calls)
	}
	if err := m.Close(); !errors.Is(err, boom) {
		t.Fatalf("expected close error, got %v", err)
	}
}

func TestPalette(t *testing.T) {
	p := Palette(3)
	if len(p) != 3 {
		t.Fatalf("expected 3 colours, got %d", len(p))
	}
	// Hue 0 is red dominated.
	if p[0].R <= p[0].G || p[0].R <= p[0].B {
		t.Errorf("expected red first, got %+v", p[0])
	}
	if p[0] == p[1] || p[1] == p[2] {
		t.Errorf("expected distinct colours, got %+v", p)
	}
	if ColorFor(p, 4) != p[1] || ColorFor(p, -1) != p[1] {
		t.Error("expected class ids to wrap around the palette")
	}
	if Palette(0) != nil {
		t.Error("expected no palette for zero classes")
	}
}
