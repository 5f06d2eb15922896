package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsFromEmbeddedFS(t *testing.T) {
	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("load embedded migrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one migration")
	}
	for i, m := range migrations {
		if m.UpSQL == "" || m.DownSQL == "" {
			t.Fatalf("migration %d_%s is missing up or down body", m.Version, m.Name)
		}
		if i > 0 && migrations[i-1].Version >= m.Version {
			t.Fatalf("migrations are not sorted: %d before %d", migrations[i-1].Version, m.Version)
		}
	}
}

func TestLoadMigrationsRejectsOrphanFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": &fstest.MapFile{Data: []byte("CREATE TABLE t (id INT)")},
	}

	_, err := loadMigrationsFromFS(fsys)
	if err == nil || !strings.Contains(err.Error(), "must have both up and down") {
		t.Fatalf("expected orphan migration error, got %v", err)
	}
}

func TestLoadMigrationsRejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/init.sql": &fstest.MapFile{Data: []byte("SELECT 1")},
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected invalid file name error")
	}
}

func TestLoadMigrationsRejectsEmptyBody(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql":   &fstest.MapFile{Data: []byte("   ")},
		"sql/migrations/0001_init.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE t")},
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected empty migration error")
	}
}
