package sidecarlog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriters_CreateFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Dir: dir}
	out, errW := cfg.Writers("web")
	if out == nil || errW == nil {
		t.Fatal("expected writers when Dir is set")
	}
	if _, err := out.Write([]byte("hello out\n")); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
	if _, err := errW.Write([]byte("hello err\n")); err != nil {
		t.Fatalf("write stderr: %v", err)
	}
	_ = out.Close()
	_ = errW.Close()

	b, err := os.ReadFile(filepath.Join(dir, "web.stdout.log"))
	if err != nil || string(b) != "hello out\n" {
		t.Fatalf("stdout file: %q err=%v", b, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "web.stderr.log")); err != nil {
		t.Fatalf("stderr file: %v", err)
	}
}

func TestWriters_DisabledWithoutDir(t *testing.T) {
	out, errW := Config{}.Writers("backend")
	if out != nil || errW != nil {
		t.Fatal("expected nil writers when Dir is empty")
	}
}
