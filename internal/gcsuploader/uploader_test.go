package gcsuploader

import (
	"context"
	"strings"
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://exports/2025/july.xlsx", "exports", "2025/july.xlsx", false},
		{"gs://exports/", "", "", true},
		{"gs://exports", "", "", true},
		{"s3://exports/a", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || object != tt.object {
				t.Errorf("got %q %q, want %q %q", bucket, object, tt.bucket, tt.object)
			}
		})
	}
}

func TestFilenameFromURI(t *testing.T) {
	if got := FilenameFromURI("gs://b/exports/july.xlsx"); got != "july.xlsx" {
		t.Errorf("got %q", got)
	}
	if got := FilenameFromURI("gs://b"); got != "b" {
		t.Errorf("got %q", got)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	uri, err := m.Upload(ctx, "bucket", "exports/a.xlsx", "application/octet-stream", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if uri != "gs://bucket/exports/a.xlsx" {
		t.Errorf("uri = %s", uri)
	}

	got, err := m.Fetch(ctx, uri)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("Fetch = %q", got)
	}

	if _, err := m.Fetch(ctx, "gs://bucket/missing"); err == nil {
		t.Error("expected error for missing object")
	}
}
