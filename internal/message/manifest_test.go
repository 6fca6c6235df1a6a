package message

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest_Content(t *testing.T) {
	path := writeManifest(t, `
content: deploy finished
username: ci-bot
tts: false
embeds:
  - title: build
    description: all green
    color: 65280
`)
	msg, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Content != "deploy finished" || msg.Username != "ci-bot" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if len(msg.Embeds) != 1 || msg.Embeds[0].Title != "build" {
		t.Errorf("embed not built: %+v", msg.Embeds)
	}
}

func TestLoadManifest_Files(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(filePath, []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}

	path := writeManifest(t, "files:\n  - path: "+filePath+"\n")
	msg, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	if msg.Attachments[0].Name != "report.txt" {
		t.Errorf("name should default to base name, got %q", msg.Attachments[0].Name)
	}
}

func TestLoadManifest_FilesAndContentRejected(t *testing.T) {
	path := writeManifest(t, "content: hi\nfiles:\n  - path: /tmp/x\n")
	_, err := LoadManifest(path)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
