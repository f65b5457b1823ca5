package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bdougie/boxshadow/internal/models"
	"github.com/bdougie/boxshadow/internal/shadow"
)

var geometry = models.Geometry{BlockSize: 10, Pitch: 10, RowWidth: 2, ContainerSize: 20}

func makeFrames(n int) []models.Frame {
	frames := make([]models.Frame, n)
	for i := range frames {
		c := "#" + strings.Repeat(strconv.FormatInt(int64(i%16), 16), 3)
		frames[i] = models.Frame{c, c, c, c}
	}
	return frames
}

func TestCompileEmpty(t *testing.T) {
	if _, err := Compile(context.Background(), nil, geometry, Options{}); !errors.Is(err, ErrEmptyStore) {
		t.Fatalf("Compile(nil) = %v, want ErrEmptyStore", err)
	}
}

func TestCompileVariablesMatchEncoder(t *testing.T) {
	frames := makeFrames(7)
	doc, err := Compile(context.Background(), frames, geometry, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Variables) != len(frames) {
		t.Fatalf("got %d variables, want %d", len(doc.Variables), len(frames))
	}
	for i, f := range frames {
		if want := shadow.EncodeFrame(f, geometry); doc.Variables[i] != want {
			t.Errorf("variable %d = %q, want %q", i, doc.Variables[i], want)
		}
	}
}

func TestKeyframeTimeline(t *testing.T) {
	tests := []struct {
		name   string
		frames int
		steps  int
	}{
		{"equal", 100, 100},
		{"fewer frames", 30, 100},
		{"more frames", 250, 100},
		{"coarse", 10, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Compile(context.Background(), makeFrames(tt.frames), geometry, Options{Steps: tt.steps})
			if err != nil {
				t.Fatal(err)
			}
			if len(doc.Keyframes) != tt.steps {
				t.Fatalf("got %d keyframes, want %d", len(doc.Keyframes), tt.steps)
			}
			if doc.Keyframes[0].Percent != 0 || doc.Keyframes[0].Frame != 0 {
				t.Fatalf("first keyframe = %+v", doc.Keyframes[0])
			}
			for s := 1; s < len(doc.Keyframes); s++ {
				if doc.Keyframes[s].Percent <= doc.Keyframes[s-1].Percent {
					t.Fatalf("percent not increasing at step %d", s)
				}
				if want := s * tt.frames / tt.steps; doc.Keyframes[s].Frame != want {
					t.Fatalf("step %d frame = %d, want %d", s, doc.Keyframes[s].Frame, want)
				}
				if doc.Keyframes[s].Frame >= tt.frames {
					t.Fatalf("step %d references missing frame", s)
				}
			}
		})
	}
}

func TestKeyframePercentIsExact(t *testing.T) {
	doc, err := Compile(context.Background(), makeFrames(100), geometry, Options{Steps: 100})
	if err != nil {
		t.Fatal(err)
	}
	for s, kf := range doc.Keyframes {
		if kf.Percent != s || kf.Frame != s {
			t.Fatalf("step %d = %+v, want percent and frame %d", s, kf, s)
		}
	}
}

func TestCompileRejectsTooManySteps(t *testing.T) {
	if _, err := Compile(context.Background(), makeFrames(2), geometry, Options{Steps: 101}); err == nil {
		t.Fatal("expected error for 101 steps")
	}
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Compile(ctx, makeFrames(4), geometry, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Compile() = %v, want context.Canceled", err)
	}
}

func TestCSS(t *testing.T) {
	doc, err := Compile(context.Background(), makeFrames(3), geometry, Options{Steps: 4, Duration: 2500 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	css := doc.CSS()

	for _, want := range []string{
		"--bxs-frame-0: inset 0 0 0 10Q #000",
		"--bxs-frame-2: ",
		"animation: anim-shadow 2.5s steps(4, end) infinite;",
		"box-shadow: var(--bxs-frame-0);",
		"@keyframes anim-shadow {",
		"  0% {box-shadow: var(--bxs-frame-0)}",
		"  25% {box-shadow: var(--bxs-frame-0)}",
		"  50% {box-shadow: var(--bxs-frame-1)}",
		"  75% {box-shadow: var(--bxs-frame-2)}",
	} {
		if !strings.Contains(css, want) {
			t.Errorf("stylesheet missing %q", want)
		}
	}

	entries := regexp.MustCompile(`(?m)^[ \t]+\d+% \{`).FindAllString(css, -1)
	if len(entries) != 4 {
		t.Errorf("got %d keyframe entries, want 4", len(entries))
	}
	if strings.Count(css, "{") != strings.Count(css, "}") {
		t.Error("unbalanced braces")
	}
}

func TestHTMLDocument(t *testing.T) {
	page := HTMLDocument("div{}")
	if !strings.Contains(page, "<style>div{}</style>") || !strings.Contains(page, Markup) {
		t.Fatalf("unexpected page %q", page)
	}
}

func TestHTMLDocumentCannotCloseStyle(t *testing.T) {
	page := HTMLDocument("</style><script>alert(1)</script>")
	if strings.Contains(page, "</script>") {
		t.Fatalf("stylesheet escaped its style element: %q", page)
	}
	if strings.Count(page, "</style>") != 1 {
		t.Fatalf("want exactly one closing style tag in %q", page)
	}
}

func TestStyleText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a{b:c}", "a{b:c}"},
		{"</style>", `<\/style>`},
		{"x</y</z", `x<\/y<\/z`},
	}
	for _, tt := range tests {
		if got := StyleText(tt.in); got != tt.want {
			t.Errorf("StyleText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCodepenPayload(t *testing.T) {
	data, err := CodepenPayload("a{b:c}")
	if err != nil {
		t.Fatal(err)
	}
	var pen Codepen
	if err := json.Unmarshal(data, &pen); err != nil {
		t.Fatal(err)
	}
	if pen.CSS != "a{b:c}" || pen.HTML != Markup || pen.CSSPreProcessor != "none" {
		t.Fatalf("unexpected payload %+v", pen)
	}
}
