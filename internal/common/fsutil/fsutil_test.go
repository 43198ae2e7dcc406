package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	// Set a deterministic HOME for the duration of this test so we never skip.
	origHome, hadHome := os.LookupEnv("HOME")
	origUserProfile, hadUserProfile := os.LookupEnv("USERPROFILE")
	t.Cleanup(func() {
		if hadHome {
			_ = os.Setenv("HOME", origHome)
		} else {
			_ = os.Unsetenv("HOME")
		}
		if hadUserProfile {
			_ = os.Setenv("USERPROFILE", origUserProfile)
		} else {
			_ = os.Unsetenv("USERPROFILE")
		}
	})

	home := t.TempDir()
	// Configure both env vars for cross-platform behavior of os.UserHomeDir.
	_ = os.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		_ = os.Setenv("USERPROFILE", home)
	}
	// raw path unaffected
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// empty path
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// ~ expansion
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	// ~/subdir
	sub := "test-sub"
	exp, err := ExpandHome("~/" + sub)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if runtime.GOOS == "windows" {
		if filepath.Base(exp) != sub {
			t.Fatalf("unexpected expanded path: %q", exp)
		}
	} else {
		expected := filepath.Join(home, sub)
		if exp != expected {
			t.Fatalf("expected %q, got %q", expected, exp)
		}
	}
}

func TestResolveDirCreates(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "a", "b")
	got, err := ResolveDir(target)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != target {
		t.Fatalf("got %q want %q", got, target)
	}
	if fi, err := os.Stat(target); err != nil || !fi.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}
	if _, err := ResolveDir("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestPathHelpers(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "x.bin")
	if err := os.WriteFile(f, []byte("1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !PathExists(f) || !IsRegularFile(f) {
		t.Fatalf("expected file to exist")
	}
	if IsRegularFile(dir) {
		t.Fatalf("directory is not a regular file")
	}
	if PathExists(filepath.Join(dir, "missing")) {
		t.Fatalf("missing path reported present")
	}
}

func TestValidName(t *testing.T) {
	for _, ok := range []string{"weights.bin", "org_model_weights.bin", "a..b"} {
		if !ValidName(ok) {
			t.Fatalf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "../x"} {
		if ValidName(bad) {
			t.Fatalf("%q should be rejected", bad)
		}
	}
}
