package message

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSource_Missing(t *testing.T) {
	_, err := FileSource(filepath.Join(t.TempDir(), "does-not-exist.png"))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestFileSource_Reads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dog.png")
	content := []byte("not really a png")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := FileSource(path)
	if err != nil {
		t.Fatal(err)
	}
	rc := src.Open()
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("expected %q, got %q", content, got)
	}
}

func TestBytesSource_RoundTrip(t *testing.T) {
	src := BytesSource([]byte("woof"))
	got, err := io.ReadAll(src.Open())
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "woof" {
		t.Errorf("expected woof, got %q", got)
	}
}

func TestReaderSource_Nil(t *testing.T) {
	src := ReaderSource(nil)
	if src.valid() {
		t.Error("nil reader must produce an invalid source")
	}
	_, err := Files(map[string]DataSource{"dog": src})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
