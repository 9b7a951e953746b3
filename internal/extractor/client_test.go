package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facial-attendance/internal/database"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPrepareImage_Downscales(t *testing.T) {
	out, err := PrepareImage(testPNG(t, 400, 200), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("expected 100x50, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPrepareImage_KeepsSmallImages(t *testing.T) {
	out, err := PrepareImage(testPNG(t, 40, 60), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 60 {
		t.Errorf("expected 40x60, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPrepareImage_InvalidData(t *testing.T) {
	if _, err := PrepareImage([]byte("not an image"), 100); err == nil {
		t.Error("expected decode error")
	}
}

func newFaceServer(t *testing.T, resp FaceResponse, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("expected multipart file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file.Close()
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("expected image/jpeg part, got %s", ct)
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestExtractEmbedding_PicksHighestScore(t *testing.T) {
	server := newFaceServer(t, FaceResponse{
		FacesCount: 2,
		Faces: []FaceDetection{
			{FaceIndex: 0, Embedding: []float32{1, 0}, DetScore: 0.71},
			{FaceIndex: 1, Embedding: []float32{0, 1}, DetScore: 0.93},
		},
	}, http.StatusOK)
	defer server.Close()

	c := NewClient(server.URL+"/", 100, 0)
	emb, err := c.ExtractEmbedding(context.Background(), testPNG(t, 20, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb) != 2 || emb[1] != 1 {
		t.Errorf("expected embedding of the second face, got %v", emb)
	}
}

func TestExtractEmbedding_NoFace(t *testing.T) {
	server := newFaceServer(t, FaceResponse{FacesCount: 0}, http.StatusOK)
	defer server.Close()

	c := NewClient(server.URL, 100, 0)
	_, err := c.ExtractEmbedding(context.Background(), testPNG(t, 20, 20))
	if !errors.Is(err, database.ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestExtractEmbedding_ServerError(t *testing.T) {
	server := newFaceServer(t, FaceResponse{}, http.StatusInternalServerError)
	defer server.Close()

	c := NewClient(server.URL, 100, 0)
	_, err := c.ExtractEmbedding(context.Background(), testPNG(t, 20, 20))
	if err == nil || errors.Is(err, database.ErrNoFaceDetected) {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestExtractEmbedding_BadImage(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100, 0)
	_, err := c.ExtractEmbedding(context.Background(), []byte{0x00, 0x01})
	if !errors.Is(err, database.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
