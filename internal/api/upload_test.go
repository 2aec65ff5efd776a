package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestUploadImagesMultipartForm(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/projects/proj-1/upload/images" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		files := r.MultipartForm.File["images"]
		ids := r.MultipartForm.Value["images_id"]
		if len(files) != 2 || len(ids) != 2 {
			t.Fatalf("expected 2 files and 2 ids, got %d/%d", len(files), len(ids))
		}
		if files[0].Filename != "a.png" || ids[0] != "img-a" {
			t.Fatalf("first part mismatched: %s / %s", files[0].Filename, ids[0])
		}
		f, err := files[1].Open()
		if err != nil {
			t.Fatalf("open part: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "bytes-b" {
			t.Fatalf("unexpected file content %q", data)
		}
		_, _ = w.Write([]byte(`{"code":0,"data":{"success":[{"path":"store/a.png","image_id":"img-a"},{"path":"store/b.png","image_id":"img-b"}],"failed":[]}}`))
	})

	result, err := client.UploadImages(context.Background(), "proj-1", []ImageFile{
		{ID: "img-a", Name: "a.png", Data: strings.NewReader("bytes-a")},
		{ID: "img-b", Name: "b.png", Data: strings.NewReader("bytes-b")},
	})
	if err != nil {
		t.Fatalf("UploadImages failed: %v", err)
	}
	if len(result.Success) != 2 || result.Success[0].Path != "store/a.png" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestUploadImagesRejectsEmptyBatch(t *testing.T) {
	client := New("http://127.0.0.1:1", "", nil)
	if _, err := client.UploadImages(context.Background(), "proj-1", nil); err == nil {
		t.Fatalf("expected error for empty batch")
	}
}
