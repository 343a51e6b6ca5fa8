package lsmtree

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T, cfg Config) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	e, err := Open(dir, cfg)
	require.NoError(t, err)
	return e, dir
}

func TestEngine_SetThenGet(t *testing.T) {
	e, _ := openTestEngine(t, DefaultConfig())
	defer e.Close()

	require.NoError(t, e.Set("user:1", []byte(`{"name":"Alice"}`)))
	value, found, err := e.Get("user:1")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"name":"Alice"}`, string(value))
}

func TestEngine_DeleteThenGetAbsent(t *testing.T) {
	e, _ := openTestEngine(t, DefaultConfig())
	defer e.Close()

	require.NoError(t, e.Set("k", []byte(`1`)))
	require.NoError(t, e.Delete("k"))

	_, found, err := e.Get("k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEngine_RejectsEmptyKey(t *testing.T) {
	e, _ := openTestEngine(t, DefaultConfig())
	defer e.Close()

	assert.ErrorIs(t, e.Set("", []byte(`1`)), ErrEmptyKey)
	assert.ErrorIs(t, e.Delete(""), ErrEmptyKey)
	_, _, err := e.Get("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

// Scenario 1: basic durability across a close/reopen cycle.
func TestEngine_Scenario_BasicDurability(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, e.Set("user:1", []byte(`{"name":"Alice"}`)))
	require.NoError(t, e.Set("user:2", []byte(`{"name":"Bob"}`)))
	require.NoError(t, e.Set("counter", []byte(`42`)))
	require.NoError(t, e.Close())

	reopened, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	defer reopened.Close()

	v, found, err := reopened.Get("user:1")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"name":"Alice"}`, string(v))

	v, found, err = reopened.Get("counter")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `42`, string(v))
}

// Scenario 2: a delete survives a close-and-reopen cycle.
func TestEngine_Scenario_DeleteSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e.Set("user:1", []byte(`{"name":"Alice"}`)))
	require.NoError(t, e.Set("user:2", []byte(`{"name":"Bob"}`)))
	require.NoError(t, e.Delete("user:2"))
	require.NoError(t, e.Close())

	reopened, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	defer reopened.Close()

	_, found, err := reopened.Get("user:2")
	require.NoError(t, err)
	assert.False(t, found)
}

// Scenario 3: exceeding mem_max_bytes flushes at least one Level-0 file.
func TestEngine_Scenario_FlushTriggersOnThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemMaxBytes = 2048
	e, dir := openTestEngine(t, cfg)
	defer e.Close()

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("data:%04d", i+10)
		value := []byte(fmt.Sprintf(`"%060d"`, i))
		require.NoError(t, e.Set(key, value))
	}

	files, err := filepath.Glob(filepath.Join(dir, "level0_*.st"))
	require.NoError(t, err)
	assert.NotEmpty(t, files, "expected at least one level-0 flush")
}

// Scenario 4: range scan spans the MemTable and any flushed tables.
func TestEngine_Scenario_RangeAcrossMemtableAndTables(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemMaxBytes = 2048
	e, _ := openTestEngine(t, cfg)
	defer e.Close()

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("data:%04d", i+10)
		value := []byte(fmt.Sprintf(`"%060d"`, i))
		require.NoError(t, e.Set(key, value))
	}

	got, err := e.Range("data:0015", "data:0020")
	require.NoError(t, err)

	var keys []string
	for _, p := range got {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{
		"data:0015", "data:0016", "data:0017", "data:0018", "data:0019", "data:0020",
	}, keys)
}

// Scenario 5: enough Level-0 flushes trigger compaction into Level 1.
func TestEngine_Scenario_CompactionReducesFileCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemMaxBytes = 512
	cfg.Level0MaxFiles = 2
	e, dir := openTestEngine(t, cfg)
	defer e.Close()

	// Three bursts of 20 keys. Each entry is about 54 bytes, so the
	// 512-byte MemTable flushes every 10 writes: six Level-0 flushes,
	// each pair of which is compacted into Level 1.
	for burst := 0; burst < 3; burst++ {
		for i := 0; i < 20; i++ {
			key := fmt.Sprintf("burst%d:%04d", burst, i)
			require.NoError(t, e.Set(key, []byte(fmt.Sprintf(`"%040d"`, i))))
		}
	}

	l0Files, err := filepath.Glob(filepath.Join(dir, "level0_*.st"))
	require.NoError(t, err)
	l1Files, err := filepath.Glob(filepath.Join(dir, "level1_*.st"))
	require.NoError(t, err)

	assert.Empty(t, l0Files, "level 0 should have been compacted away")
	assert.Len(t, l1Files, 1, "the whole-level merge design keeps at most one table at level 1")

	// The union of all three bursts must still be readable.
	for burst := 0; burst < 3; burst++ {
		for i := 0; i < 20; i++ {
			key := fmt.Sprintf("burst%d:%04d", burst, i)
			_, found, err := e.Get(key)
			require.NoError(t, err)
			assert.True(t, found, "key %s should survive compaction", key)
		}
	}
}

// Scenario 6: a tombstone that reaches the deepest level is dropped.
func TestEngine_Scenario_TombstoneDroppedAtDeepestLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LevelsMax = 2
	cfg.MemMaxBytes = 1
	cfg.Level0MaxFiles = 1
	e, dir := openTestEngine(t, cfg)
	defer e.Close()

	require.NoError(t, e.Set("k", []byte(`"v"`))) // flush + compact to level 1
	require.NoError(t, e.Delete("k"))              // flush + compact to level 1 again

	_, found, err := e.Get("k")
	require.NoError(t, err)
	assert.False(t, found)

	l1Files, err := filepath.Glob(filepath.Join(dir, "level1_*.st"))
	require.NoError(t, err)
	if len(l1Files) == 1 {
		r, err := OpenSortedTable(l1Files[0], 1, 0)
		require.NoError(t, err)
		_, found, err := r.Get("k")
		require.NoError(t, err)
		assert.False(t, found, "tombstone must not survive a merge into the deepest level")
	}
}

func TestEngine_OpenTwiceOnSameDirectoryIsLocked(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	defer e.Close()

	_, err = Open(dir, DefaultConfig())
	assert.ErrorIs(t, err, ErrLocked)
}

func TestEngine_OpenFailsOnMalformedSortedTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level0_7.st"), nil, 0644))
	e, err := Open(dir, DefaultConfig())
	// The stray zero-byte file is not a well-formed sorted table; the
	// writer's atomic rename means such a file should never occur in
	// practice, so opening it is expected to fail loudly.
	if err == nil {
		defer e.Close()
	}
	assert.Error(t, err)
}

func TestEngine_StatsReportsMemtableAndLevels(t *testing.T) {
	e, _ := openTestEngine(t, DefaultConfig())
	defer e.Close()

	require.NoError(t, e.Set("a", []byte(`1`)))
	s := e.Stats()
	assert.NotEmpty(t, s.SessionID)
	assert.Positive(t, s.MemtableBytes)
	assert.Len(t, s.PerLevelFileCounts, DefaultConfig().LevelsMax)
}
