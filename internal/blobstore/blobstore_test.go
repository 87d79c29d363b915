package blobstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetObjectReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/abc123" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("file bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	rc, err := c.GetObject(context.Background(), "files", "abc123")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "file bytes" {
		t.Fatalf("got %q", body)
	}
}

func TestGetObjectErrorsOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.GetObject(context.Background(), "files", "missing"); err == nil {
		t.Fatalf("expected error on 404")
	}
}

func TestPutThumbnailPOSTSucceeds(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.PutThumbnail(context.Background(), "thumbnails", "abc123", []byte("png bytes")); err != nil {
		t.Fatalf("PutThumbnail: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("got method %s, want POST", gotMethod)
	}
}

func TestPutThumbnailFallsBackToPUTOnAlreadyExists(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("object already exists"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.PutThumbnail(context.Background(), "thumbnails", "abc123", []byte("png bytes")); err != nil {
		t.Fatalf("PutThumbnail: %v", err)
	}
	if len(methods) != 2 || methods[0] != http.MethodPost || methods[1] != http.MethodPut {
		t.Fatalf("got method sequence %v, want [POST PUT]", methods)
	}
}
