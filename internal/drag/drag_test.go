package drag

import (
	"math"
	"math/rand"
	"testing"

	"imged/internal/geometry"
)

const eps = 1e-9

func TestDelta(t *testing.T) {
	dx, dy, ok := Delta(Pointer{X: 100, Y: 50}, Pointer{X: 150, Y: 25}, Bounds{Width: 500, Height: 250})
	if !ok {
		t.Fatal("Delta() ok = false")
	}
	if math.Abs(dx-0.1) > eps || math.Abs(dy+0.1) > eps {
		t.Errorf("Delta() = (%v, %v), want (0.1, -0.1)", dx, dy)
	}

	if _, _, ok := Delta(Pointer{}, Pointer{X: 10}, Bounds{Width: 0, Height: 100}); ok {
		t.Error("Delta() with zero width should not be ok")
	}
}

func TestMoveTitleClamps(t *testing.T) {
	tests := []struct {
		name   string
		start  geometry.Point
		dx, dy float64
		want   geometry.Point
	}{
		{"inside", geometry.Point{X: 0.5, Y: 0.5}, 0.1, -0.1, geometry.Point{X: 0.6, Y: 0.4}},
		{"past left top", geometry.Point{X: 0.2, Y: 0.2}, -1, -1, geometry.Point{X: 0.05, Y: 0.05}},
		{"past right bottom", geometry.Point{X: 0.8, Y: 0.8}, 3, 3, geometry.Point{X: 0.95, Y: 0.95}},
		{"axes independent", geometry.Point{X: 0.5, Y: 0.5}, 2, 0, geometry.Point{X: 0.95, Y: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoveTitle(tt.start, tt.dx, tt.dy)
			if math.Abs(got.X-tt.want.X) > eps || math.Abs(got.Y-tt.want.Y) > eps {
				t.Errorf("MoveTitle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoveCropKeepsSize(t *testing.T) {
	start := geometry.Rect{X: 0.2, Y: 0.3, Width: 0.5, Height: 0.4}
	got := MoveCrop(start, 0.9, -0.9)
	if got.Width != start.Width || got.Height != start.Height {
		t.Errorf("MoveCrop() changed size: %v", got)
	}
	if math.Abs(got.X-0.5) > eps || got.Y != 0 {
		t.Errorf("MoveCrop() = %v, want x=0.5 y=0", got)
	}
}

func TestResizeSEKeepsOrigin(t *testing.T) {
	start := geometry.Rect{X: 0.3, Y: 0.2, Width: 0.4, Height: 0.4}
	for _, d := range [][2]float64{{0.1, 0.1}, {-0.5, -0.5}, {0.9, 0.9}, {-0.1, 0.3}} {
		got := ResizeCrop(start, HandleSE, d[0], d[1])
		if math.Abs(got.X-start.X) > eps || math.Abs(got.Y-start.Y) > eps {
			t.Errorf("ResizeCrop(se, %v) moved origin: %v", d, got)
		}
	}
}

func TestResizeNWKeepsOppositeCorner(t *testing.T) {
	start := geometry.Rect{X: 0.3, Y: 0.3, Width: 0.4, Height: 0.4}
	for _, d := range [][2]float64{{0.1, 0.1}, {-0.2, -0.1}, {0.05, -0.25}} {
		got := ResizeCrop(start, HandleNW, d[0], d[1])
		if math.Abs(got.Right()-start.Right()) > eps || math.Abs(got.Bottom()-start.Bottom()) > eps {
			t.Errorf("ResizeCrop(nw, %v) moved bottom-right: %v", d, got)
		}
	}
}

func TestResizeHandles(t *testing.T) {
	start := geometry.Rect{X: 0.2, Y: 0.2, Width: 0.5, Height: 0.5}
	tests := []struct {
		handle Handle
		dx, dy float64
		want   geometry.Rect
	}{
		{HandleNE, 0.1, 0.1, geometry.Rect{X: 0.2, Y: 0.3, Width: 0.6, Height: 0.4}},
		{HandleSW, 0.1, 0.1, geometry.Rect{X: 0.3, Y: 0.2, Width: 0.4, Height: 0.6}},
		{HandleSE, 0.5, 0.5, geometry.Rect{X: 0.2, Y: 0.2, Width: 0.8, Height: 0.8}},
		{HandleNW, 0.6, 0.6, geometry.Rect{X: 0.55, Y: 0.55, Width: 0.15, Height: 0.15}},
	}
	for _, tt := range tests {
		t.Run(string(tt.handle), func(t *testing.T) {
			got := ResizeCrop(start, tt.handle, tt.dx, tt.dy)
			if !rectNear(got, tt.want) {
				t.Errorf("ResizeCrop(%s) = %v, want %v", tt.handle, got, tt.want)
			}
		})
	}
}

func TestCropContainmentUnderRandomDrags(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	handles := []Handle{HandleNW, HandleNE, HandleSW, HandleSE}
	crop := geometry.DefaultCrop()
	for i := 0; i < 5000; i++ {
		dx := rng.Float64()*2 - 1
		dy := rng.Float64()*2 - 1
		if rng.Intn(3) == 0 {
			crop = MoveCrop(crop, dx, dy)
		} else {
			crop = ResizeCrop(crop, handles[rng.Intn(len(handles))], dx, dy)
		}
		if !crop.Valid(eps) {
			t.Fatalf("step %d: crop left the valid region: %v", i, crop)
		}
	}
}

func TestTitleContainmentUnderRandomDrags(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pos := geometry.DefaultTitlePosition()
	for i := 0; i < 5000; i++ {
		pos = MoveTitle(pos, rng.Float64()*4-2, rng.Float64()*4-2)
		if pos.X < geometry.TitleMin || pos.X > geometry.TitleMax || pos.Y < geometry.TitleMin || pos.Y > geometry.TitleMax {
			t.Fatalf("step %d: title escaped: %v", i, pos)
		}
	}
}

func TestParseHandle(t *testing.T) {
	for _, s := range []string{"nw", "ne", "sw", "se", "move"} {
		if _, err := ParseHandle(s); err != nil {
			t.Errorf("ParseHandle(%q) error = %v", s, err)
		}
	}
	if _, err := ParseHandle("n"); err == nil {
		t.Error("ParseHandle(\"n\") should fail")
	}
}

func rectNear(a, b geometry.Rect) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Width-b.Width) < eps && math.Abs(a.Height-b.Height) < eps
}
