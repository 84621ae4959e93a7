package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	filled := filepath.Join(dir, "key")
	if err := os.WriteFile(filled, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	t.Setenv("PREPSCOUT_TEST_KEY", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{Name: "key", File: filled, Value: "inline", Env: "PREPSCOUT_TEST_KEY"}, want: "from-file"},
		{name: "inline", src: Source{Value: " inline "}, want: "inline"},
		{name: "env", src: Source{Env: "PREPSCOUT_TEST_KEY"}, want: "from-env"},
		{name: "empty file", src: Source{Name: "key", File: empty}, wantErr: "is empty"},
		{name: "missing env", src: Source{Name: "serpapi key", Env: "PREPSCOUT_MISSING"}, wantErr: "set PREPSCOUT_MISSING"},
		{name: "nothing", src: Source{}, wantErr: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
