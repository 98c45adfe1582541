package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSourceURLIsAbsolute(t *testing.T) {
	got, err := SourceURL("migrations")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.HasPrefix(got, "file://") {
		t.Fatalf("expected file:// prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "/migrations") {
		t.Fatalf("expected migrations suffix, got %q", got)
	}
}

func TestMigrationsArePaired(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", DefaultMigrationsDir, "*.sql"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected migration files")
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, f := range files {
		base := filepath.Base(f)
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			ups[strings.TrimSuffix(base, ".up.sql")] = true
		case strings.HasSuffix(base, ".down.sql"):
			downs[strings.TrimSuffix(base, ".down.sql")] = true
		}
	}
	for name := range ups {
		if !downs[name] {
			t.Fatalf("migration %s has no down file", name)
		}
	}
}

func TestGraphMigrationSeedsEdgeTypes(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", DefaultMigrationsDir, "000001_network_graph.up.sql"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	for _, name := range []string{"Facebook Friend", "Facebook Like", "Phone Contact", "Phone Call", "SMS"} {
		if !strings.Contains(string(data), "'"+name+"'") {
			t.Fatalf("expected edge type %q to be seeded", name)
		}
	}
	for _, constraint := range []string{"account_name TEXT NOT NULL UNIQUE", "edge_combo_id TEXT NOT NULL UNIQUE"} {
		if !strings.Contains(string(data), constraint) {
			t.Fatalf("expected %q in schema", constraint)
		}
	}
}
