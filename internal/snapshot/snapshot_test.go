package snapshot

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"imged/internal/geometry"
)

func TestDefault(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if s.Preset != PresetMedium || s.SizeLevel != SizeMedium || s.Weight != WeightBold ||
		s.Color != ColorWhite || s.Align != AlignCenter || s.DownloadFormat != FormatPNG {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.Position != geometry.DefaultTitlePosition() || s.Crop != nil {
		t.Errorf("unexpected default geometry: %+v", s)
	}
}

func TestMarshalShape(t *testing.T) {
	s := Default()
	s.Title = "Hello"
	s.Crop = &geometry.Rect{X: 0.1, Y: 0.2, Width: 0.5, Height: 0.5}

	data, err := Marshal(s)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		"title", "titlePreset", "titlePosition", "cropRect", "downloadName",
		"downloadFormat", "titleSizeLevel", "titleWeight", "titleColor", "titleAlign",
	} {
		if _, ok := doc[key]; !ok {
			t.Errorf("marshaled snapshot is missing %q: %s", key, data)
		}
	}
	if lvl, _ := doc["titleSizeLevel"].(float64); lvl != 1 {
		t.Errorf("titleSizeLevel = %v, want numeric 1", doc["titleSizeLevel"])
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(got, s) {
		t.Errorf("decoded snapshot differs:\n got %+v\nwant %+v", got, s)
	}
}

func TestUnmarshalNormalizes(t *testing.T) {
	data := []byte(`{
		"title": "x",
		"titlePreset": "giant",
		"titleSizeLevel": 7,
		"titlePosition": {"x": -1, "y": 2},
		"cropRect": {"x": 0.95, "y": 0.9, "width": 0.01, "height": 0.5},
		"downloadFormat": "gif"
	}`)
	s, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("normalized snapshot is invalid: %v", err)
	}
	if s.Position.X != geometry.TitleMin || s.Position.Y != geometry.TitleMax {
		t.Errorf("position = %v", s.Position)
	}
	if s.Crop == nil || !s.Crop.Valid(1e-9) {
		t.Errorf("crop = %v", s.Crop)
	}
	if s.Weight != WeightBold {
		t.Errorf("missing weight should default to bold, got %q", s.Weight)
	}
}

func TestUnmarshalNullCrop(t *testing.T) {
	s, err := Unmarshal([]byte(`{"title":"a","cropRect":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Crop != nil {
		t.Errorf("crop = %v, want nil", s.Crop)
	}
	if _, err := Unmarshal([]byte(`{"titleSizeLevel":"big"}`)); err == nil {
		t.Error("non-numeric size level should fail")
	}
}

func TestCloneAndEqual(t *testing.T) {
	a := Default()
	a.Crop = &geometry.Rect{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}
	b := a.Clone()
	if !Equal(a, b) {
		t.Fatal("clone should be equal")
	}
	b.Crop.X = 0.2
	if a.Crop.X != 0.1 {
		t.Error("Clone shares the crop")
	}
	if Equal(a, b) {
		t.Error("Equal ignores crop changes")
	}
	b = a.Clone()
	b.Crop = nil
	if Equal(a, b) {
		t.Error("Equal ignores crop removal")
	}
}

func TestStyleValidate(t *testing.T) {
	s := DefaultStyle()
	s.Align = "justify"
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "align") {
		t.Errorf("Validate() = %v, want align error", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"png": FormatPNG, "jpeg": FormatJPEG, "jpg": FormatJPEG}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("webp"); err == nil {
		t.Error("ParseFormat(\"webp\") should fail")
	}
	if FormatJPEG.Extension() != "jpg" || FormatPNG.Extension() != "png" {
		t.Error("unexpected extensions")
	}
}

func TestDataURL(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	u := EncodeDataURL("image/png", payload)
	if !strings.HasPrefix(u, "data:image/png;base64,") {
		t.Fatalf("EncodeDataURL() = %q", u)
	}
	mime, data, err := DecodeDataURL(u)
	if err != nil {
		t.Fatal(err)
	}
	if mime != "image/png" || !bytes.Equal(data, payload) {
		t.Errorf("DecodeDataURL() = %q, %v", mime, data)
	}

	for _, bad := range []string{"http://x", "data:image/png;base64", "data:image/png;base64,@@@"} {
		if _, _, err := DecodeDataURL(bad); err == nil {
			t.Errorf("DecodeDataURL(%q) should fail", bad)
		}
	}
}

func TestSessionValidate(t *testing.T) {
	s := Default()
	if err := (Session{Snapshot: &s}).Validate(); err != ErrMissingImage {
		t.Errorf("Validate() = %v, want ErrMissingImage", err)
	}
	if err := (Session{ImageDataURL: "data:,"}).Validate(); err != ErrMissingSnapshot {
		t.Errorf("Validate() = %v, want ErrMissingSnapshot", err)
	}
	if !IsImageMIME("image/jpeg") || !IsImageMIME("") || IsImageMIME("text/plain") {
		t.Error("IsImageMIME mismatch")
	}
}
