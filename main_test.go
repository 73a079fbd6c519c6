package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"imged/internal/editor"
	"imged/internal/geometry"
	"imged/internal/snapshot"
	"imged/internal/store"
)

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "holiday.png")
	if err := os.WriteFile(src, createTestPNG(t, 100, 50), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "result.jpg")

	cmd := exportCmd{
		Image:  src,
		Output: out,
		Title:  `Line one\nLine two`,
		Preset: "overlay",
		Size:   "large",
		Align:  "left",
		Format: "jpg",
	}
	g := &Globals{Config: filepath.Join(dir, "absent.json")}
	if err := cmd.Run(g); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if w, h := readOutput(t, out); w != 100 || h != 50 {
		t.Errorf("output = %dx%d, want 100x50", w, h)
	}
}

func TestExportCommandRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("just text"), 0644); err != nil {
		t.Fatal(err)
	}
	cmd := exportCmd{Image: src, Output: filepath.Join(dir, "x.png")}
	if err := cmd.Run(&Globals{Config: filepath.Join(dir, "absent.json")}); err == nil {
		t.Error("Run() should reject a non-image file")
	}
}

func TestExportCommandApply(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	if err := os.WriteFile(src, createTestPNG(t, 20, 20), 0644); err != nil {
		t.Fatal(err)
	}

	stored := snapshot.Default()
	stored.Title = "from session"
	stored.Color = snapshot.ColorAccent
	stored.Crop = &geometry.Rect{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}
	data, err := json.Marshal(snapshot.Session{Snapshot: &stored})
	if err != nil {
		t.Fatal(err)
	}
	sessPath := filepath.Join(dir, "session.json")
	if err := os.WriteFile(sessPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	cmd := exportCmd{Image: src, Session: sessPath, Weight: "regular", Name: "custom"}
	ed := editor.New()
	if err := cmd.load(ed); err != nil {
		t.Fatal(err)
	}
	if err := cmd.apply(ed); err != nil {
		t.Fatal(err)
	}
	got := ed.Snapshot()
	if got.Title != "from session" || got.Color != snapshot.ColorAccent || got.Weight != snapshot.WeightRegular {
		t.Errorf("snapshot = %+v", got)
	}
	if got.DownloadName != "custom" || got.Crop == nil {
		t.Errorf("snapshot = %+v", got)
	}
	if ed.OriginalFileName() != "a.png" {
		t.Errorf("OriginalFileName() = %q", ed.OriginalFileName())
	}

	for _, bad := range []exportCmd{{Preset: "huge"}, {Size: "xl"}, {Color: "red"}, {Align: "justify"}, {Format: "gif"}, {Aspect: "3:1"}} {
		if err := bad.apply(ed); err == nil {
			t.Errorf("apply(%+v) should fail", bad)
		}
	}
}

func TestExportCommandSlot(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pier.png")
	if err := os.WriteFile(src, createTestPNG(t, 60, 60), 0644); err != nil {
		t.Fatal(err)
	}
	slotDir := filepath.Join(dir, "slot")
	g := &Globals{Config: filepath.Join(dir, "absent.json")}

	first := exportCmd{Image: src, Output: filepath.Join(dir, "first.png"), Slot: slotDir, Title: "Resumed", Aspect: "1:1"}
	if err := first.Run(g); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	saved, ok, err := store.NewSlot(slotDir, "").Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("slot Load() = %v, %v", ok, err)
	}
	if saved.Snapshot == nil || saved.Snapshot.Title != "Resumed" || saved.OriginalFileName != "pier.png" {
		t.Errorf("saved session = %+v", saved)
	}

	second := exportCmd{Output: filepath.Join(dir, "second.png"), Slot: slotDir}
	if err := second.Run(g); err != nil {
		t.Fatalf("resumed Run() error = %v", err)
	}
	w1, h1 := readOutput(t, filepath.Join(dir, "first.png"))
	w2, h2 := readOutput(t, filepath.Join(dir, "second.png"))
	if w1 != w2 || h1 != h2 {
		t.Errorf("resumed output %dx%d differs from first %dx%d", w2, h2, w1, h1)
	}
}

func TestExportCommandNeedsImage(t *testing.T) {
	dir := t.TempDir()
	cmd := exportCmd{Output: filepath.Join(dir, "x.png"), Slot: filepath.Join(dir, "empty")}
	if err := cmd.Run(&Globals{Config: filepath.Join(dir, "absent.json")}); err == nil {
		t.Error("Run() without an image or saved session should fail")
	}
}
