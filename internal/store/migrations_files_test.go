package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var migrationsDir = filepath.Join("..", "..", "db", "migrations")

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err, "read migrations dir")

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, direction := match[1], match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		require.False(t, byVersion[version][direction], "duplicate %s migration file for version %s", direction, version)
		byVersion[version][direction] = true
	}

	require.NotEmpty(t, byVersion, "no migrations discovered")
	for version, dirs := range byVersion {
		assert.True(t, dirs["up"] && dirs["down"], "version %s must include both up and down files", version)
	}
}

func TestUpMigrationsAreOrdered(t *testing.T) {
	names, err := upMigrations(os.DirFS(migrationsDir))
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for i, name := range names {
		assert.True(t, strings.HasSuffix(name, ".up.sql"), name)
		if i > 0 {
			assert.Less(t, names[i-1], name)
		}
	}
}

func TestAppendOnlyMigrationUsesBlockingTriggers(t *testing.T) {
	sqlBytes, err := os.ReadFile(filepath.Join(migrationsDir, "0003_checkin_records_append_only.up.sql"))
	require.NoError(t, err)
	sqlText := string(sqlBytes)

	for _, snippet := range []string{
		"checkin_records_append_only_guard",
		"RAISE EXCEPTION",
		"CREATE TRIGGER trg_checkin_records_block_update",
		"CREATE TRIGGER trg_checkin_records_block_delete",
	} {
		assert.Contains(t, sqlText, snippet)
	}
	assert.NotContains(t, sqlText, "DO INSTEAD NOTHING", "append-only guard must fail loudly")
}
