package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"imged/internal/compositor"
	"imged/internal/geometry"
	"imged/internal/snapshot"
	"imged/internal/store"
)

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestExporter(t *testing.T) *compositor.Exporter {
	t.Helper()
	r, err := compositor.NewRenderer(compositor.FontConfig{})
	if err != nil {
		t.Fatal(err)
	}
	return compositor.NewExporter(r, 0)
}

func newTestApp(t *testing.T, rootDir string) *fiber.App {
	t.Helper()
	return NewWebApp(Config{
		RootDir:  rootDir,
		Store:    store.NewMemoryStore(),
		Exporter: newTestExporter(t),
	}).App()
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func sessionPayload(t *testing.T, title string) map[string]any {
	s := snapshot.Default()
	s.Title = title
	return map[string]any{
		"imageDataUrl":     snapshot.EncodeDataURL("image/png", createTestPNG(t, 40, 30)),
		"originalFileName": "beach.png",
		"snapshot":         s,
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, "")
	resp := doJSON(t, app, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[map[string]bool](t, resp)
	if !body["ok"] {
		t.Errorf("body = %v", body)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	app := newTestApp(t, "")
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{"missing image", map[string]any{"snapshot": snapshot.Default()}, "imageDataUrl is required"},
		{"missing snapshot", map[string]any{"imageDataUrl": "data:image/png;base64,AA=="}, "snapshot is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, http.MethodPost, "/api/sessions", tt.payload)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			body := decodeBody[map[string]string](t, resp)
			if body["error"] != tt.want {
				t.Errorf("error = %q, want %q", body["error"], tt.want)
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	app := newTestApp(t, "")

	resp := doJSON(t, app, http.MethodPost, "/api/sessions", sessionPayload(t, "Hello"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	id := decodeBody[map[string]string](t, resp)["id"]
	if id == "" {
		t.Fatal("create returned no id")
	}

	resp = doJSON(t, app, http.MethodGet, "/api/sessions/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	got := decodeBody[snapshot.Session](t, resp)
	if got.ID != id || got.Snapshot == nil || got.Snapshot.Title != "Hello" {
		t.Errorf("get = %+v", got)
	}
	if !got.IsPublic || got.IsTemplate {
		t.Errorf("defaults: public=%v template=%v, want public only", got.IsPublic, got.IsTemplate)
	}
}

func TestGetSessionErrors(t *testing.T) {
	app := newTestApp(t, "")

	resp := doJSON(t, app, http.MethodGet, "/api/sessions/not-an-id", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", resp.StatusCode)
	}
	resp = doJSON(t, app, http.MethodGet, "/api/sessions/3f2b8c1e-4a5d-4e6f-8a7b-9c0d1e2f3a4b", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["error"] != "Not found" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestListSessions(t *testing.T) {
	app := newTestApp(t, "")

	template := sessionPayload(t, "tpl")
	template["isTemplate"] = true
	template["isPublic"] = false
	for _, p := range []map[string]any{sessionPayload(t, "a"), sessionPayload(t, "b"), template} {
		if resp := doJSON(t, app, http.MethodPost, "/api/sessions", p); resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status = %d", resp.StatusCode)
		}
	}

	type listResponse struct {
		Items []sessionSummary `json:"items"`
	}
	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?kind=template", 1},
		{"?kind=public", 2},
		{"?limit=2", 2},
		{"?limit=0", 1},
		{"?limit=junk", 1},
		{"?limit=500", 3},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := doJSON(t, app, http.MethodGet, "/api/sessions"+tt.query, nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			body := decodeBody[listResponse](t, resp)
			if len(body.Items) != tt.want {
				t.Errorf("items = %d, want %d", len(body.Items), tt.want)
			}
		})
	}
}

func TestExportEndpoint(t *testing.T) {
	app := newTestApp(t, "")

	s := snapshot.Default()
	s.Title = "Caption"
	s.Crop = &geometry.Rect{X: 0, Y: 0, Width: 0.5, Height: 0.5}
	resp := doJSON(t, app, http.MethodPost, "/api/export", map[string]any{
		"imageDataUrl":     snapshot.EncodeDataURL("image/png", createTestPNG(t, 80, 60)),
		"originalFileName": "trip.jpeg",
		"snapshot":         s,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "trip.png") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	defer resp.Body.Close()
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("size = %v, want 40x30", img.Bounds())
	}
}

func TestExportEndpointNothingToExport(t *testing.T) {
	app := newTestApp(t, "")
	resp := doJSON(t, app, http.MethodPost, "/api/export", map[string]any{
		"imageDataUrl": snapshot.EncodeDataURL("image/png", []byte("garbage")),
		"snapshot":     snapshot.Default(),
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}

func TestExportStoredSession(t *testing.T) {
	app := newTestApp(t, "")
	resp := doJSON(t, app, http.MethodPost, "/api/sessions", sessionPayload(t, "Stored"))
	id := decodeBody[map[string]string](t, resp)["id"]

	resp = doJSON(t, app, http.MethodGet, "/api/sessions/"+id+"/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "beach.png") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestPresetEndpoint(t *testing.T) {
	app := newTestApp(t, "")

	resp := doJSON(t, app, http.MethodPost, "/api/preset", map[string]any{"aspect": "1:1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[struct {
		Crop geometry.Rect `json:"crop"`
	}](t, resp)
	if !body.Crop.Valid(1e-9) {
		t.Errorf("crop = %v is not valid", body.Crop)
	}

	resp = doJSON(t, app, http.MethodPost, "/api/preset", map[string]any{"aspect": "3:2"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown aspect status = %d, want 400", resp.StatusCode)
	}
}

func TestImageLibrary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.png"), createTestPNG(t, 12, 7), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	app := newTestApp(t, dir)

	resp := doJSON(t, app, http.MethodGet, "/api/images", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	lib := decodeBody[Library](t, resp)
	if len(lib.Images) != 1 {
		t.Fatalf("images = %+v", lib.Images)
	}
	got := lib.Images[0]
	if got.Name != "a.png" || got.Image.Width != 12 || got.Image.Height != 7 {
		t.Errorf("image = %+v", got)
	}

	resp = doJSON(t, app, http.MethodPost, "/api/export", map[string]any{
		"source":   "a.png",
		"snapshot": snapshot.Default(),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export from library status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "a.png") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}
