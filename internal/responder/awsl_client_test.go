package responder

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAwslClientFetchRandom(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/random":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id": 42, "url": %q}`, server.URL+"/images/42.jpg")
		case "/images/42.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewAwslClient(server.URL)
	asset, err := client.FetchRandom(context.Background(), "awsl")
	if err != nil {
		t.Fatalf("FetchRandom failed: %v", err)
	}

	if string(asset.Data) != "jpeg-bytes" {
		t.Errorf("unexpected asset data: %q", asset.Data)
	}
	if asset.ContentType != "image/jpeg" {
		t.Errorf("unexpected content type: %q", asset.ContentType)
	}
}

func TestAwslClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewAwslClient(server.URL)
	if _, err := client.FetchRandom(context.Background(), "awsl"); err == nil {
		t.Fatal("expected error on server failure")
	}
}

func TestAwslClientEmptyURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 1, "url": ""}`)
	}))
	defer server.Close()

	client := NewAwslClient(server.URL)
	if _, err := client.FetchRandom(context.Background(), "awsl"); err == nil {
		t.Fatal("expected error for empty image URL")
	}
}
