package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func writePrefs(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "prefs.toml")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Prefs
		wantErr bool
	}{
		{
			name: "all keys",
			body: "theme = \"Kanagawa\"\nraw_view = true\nauto_scroll = false\n",
			want: Prefs{Theme: "Kanagawa", RawView: true},
		},
		{
			name: "unset keys keep defaults",
			body: "raw_view = true\n",
			want: Prefs{Theme: defaultTheme, RawView: true, AutoScroll: true},
		},
		{
			name: "blank theme",
			body: "theme = \"  \"\n",
			want: Default(),
		},
		{
			name:    "invalid toml",
			body:    "theme = {{\n",
			want:    Default(),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePrefs(t, t.TempDir(), tt.body)
			got, err := Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Load = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad_DefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if p, err := Load(""); err != nil || p != Default() {
		t.Fatalf("Load with no file = %+v, %v; want defaults", p, err)
	}

	writePrefs(t, filepath.Join(home, ".config", "uartconsole"), "theme = \"Phosphor\"\n")
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Theme != "Phosphor" {
		t.Fatalf("Theme = %q, want Phosphor from ~/.config/uartconsole", p.Theme)
	}
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "prefs.toml")

	for _, p := range []Prefs{
		{Theme: "Kanagawa", RawView: true},
		{Theme: "Phosphor", AutoScroll: true},
	} {
		if err := Save(path, p); err != nil {
			t.Fatalf("Save(%+v): %v", p, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got != p {
			t.Fatalf("Load after Save = %+v, want %+v", got, p)
		}
	}

	// No temporary files are left next to the preferences.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want only prefs.toml", len(entries))
	}
}
