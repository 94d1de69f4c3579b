package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/ltd-dasher/internal/storage"
)

func TestStoreUploadCopiesData(t *testing.T) {
	t.Parallel()

	store := New()
	payload := []byte("content")
	meta := map[string]string{"surrogate-key": "abc"}
	err := store.Upload(context.Background(), storage.Object{Bucket: "b", Key: "path/page.html", Body: payload, Metadata: meta})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	payload[0] = 'C'
	meta["surrogate-key"] = "changed"

	obj, ok := store.Get("b", "path/page.html")
	if !ok {
		t.Fatalf("expected object to be stored")
	}
	if string(obj.Body) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", obj.Body)
	}
	if obj.Metadata["surrogate-key"] != "abc" {
		t.Fatalf("expected metadata copy, got %v", obj.Metadata)
	}
}

func TestStoreKeysKeepUploadOrder(t *testing.T) {
	t.Parallel()

	store := New()
	for _, key := range []string{"a", "b", "a", "c"} {
		if err := store.Upload(context.Background(), storage.Object{Bucket: "x", Key: key}); err != nil {
			t.Fatalf("Upload(%s) error = %v", key, err)
		}
	}
	got := store.Keys()
	want := []string{"x/a", "x/b", "x/c"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}

func TestStoreUploadRejectsInvalid(t *testing.T) {
	t.Parallel()

	if err := New().Upload(context.Background(), storage.Object{}); err == nil {
		t.Fatalf("expected validation error")
	}
}
