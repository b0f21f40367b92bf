package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfiles_Defaults(t *testing.T) {
	got, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"diligent", "average", "sparse"} {
		if _, ok := got[name]; !ok {
			t.Fatalf("built-in profile %s missing", name)
		}
	}
}

func TestLoadProfiles_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	data := `
keen:
  completion_rate: 0.9
  score_mean: 90
  score_stddev: 5
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := got["keen"]
	if !ok {
		t.Fatalf("profile keen missing: %v", got)
	}
	if p.CompletionRate != 0.9 || p.ScoreMean != 90 || p.ScoreStddev != 5 {
		t.Fatalf("profile = %+v", p)
	}
}

func TestLoadProfiles_EmptyFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfiles(path); err == nil {
		t.Fatalf("empty profiles file accepted")
	}
}
