package lsmtree

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"lsmkv/internal/domain"
)

var sstNamePattern = regexp.MustCompile(`^level(\d+)_(\d+)\.st$`)

const lockFileName = "LOCK"

// Pair is a (key, value) result from Range, tombstones already
// suppressed and recency already resolved.
type Pair struct {
	Key   string
	Value json.RawMessage
}

// Engine orchestrates the MemTable, WAL, per-level Sorted Tables,
// flush, compaction, and the read-merge across all of them.
// Single-threaded and synchronous: every call runs to completion on
// the caller's goroutine.
type Engine struct {
	dir       string
	cfg       Config
	sessionID string

	mem *MemTable
	wal *WAL

	// levels[0] is ordered oldest-appended to newest-appended (append
	// order == recency order). levels[L>=1] holds pairwise
	// disjoint tables sorted ascending by min key.
	levels [][]*Reader

	nextSeq uint64
	lock    *os.File
	closed  bool
}

// Open ensures dir exists, takes an exclusive lock on it, recovers
// on-disk levels and next_seq, then replays the WAL into a fresh
// MemTable.
func Open(dir string, cfg Config) (*Engine, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("lsmtree: ensure data directory: %w", err)
	}

	lock, err := acquireLock(dir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dir:       dir,
		cfg:       cfg,
		sessionID: uuid.NewString(),
		levels:    make([][]*Reader, cfg.LevelsMax),
		lock:      lock,
	}

	if err := e.loadLevels(); err != nil {
		e.releaseLock()
		return nil, err
	}

	e.mem = NewMemTable()
	walPath := filepath.Join(dir, walFileName)
	entries, err := Replay(walPath)
	if err != nil {
		e.releaseLock()
		return nil, err
	}
	for _, rec := range entries {
		if rec.IsDelete() {
			e.mem.Delete(rec.Key)
		} else {
			e.mem.Set(rec.Key, rec.Value)
		}
	}

	wal, err := OpenWAL(dir)
	if err != nil {
		e.releaseLock()
		return nil, err
	}
	e.wal = wal

	log.Printf("lsmtree[%s]: opened %s, next_seq=%d", e.sessionID, dir, e.nextSeq)
	return e, nil
}

func acquireLock(dir string) (*os.File, error) {
	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lsmtree: acquire lock: %w", err)
	}
	return f, nil
}

func (e *Engine) releaseLock() error {
	if e.lock == nil {
		return nil
	}
	path := e.lock.Name()
	err := e.lock.Close()
	e.lock = nil
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return fmt.Errorf("lsmtree: release lock: %w", rmErr)
	}
	if err != nil {
		return fmt.Errorf("lsmtree: close lock: %w", err)
	}
	return nil
}

// loadLevels enumerates level<L>_<seq>.st files, opens a Reader per
// file, sorts each level >= 1 by min key (they are disjoint), and
// recovers next_seq as one greater than the maximum seq on disk. Any
// file matching the pattern is expected to be fully formed: the
// writer installs files via tmp-then-rename, so a crash mid-write
// never leaves a stray file under the final name.
func (e *Engine) loadLevels() error {
	dirEntries, err := os.ReadDir(e.dir)
	if err != nil {
		return fmt.Errorf("lsmtree: read data directory: %w", err)
	}

	var maxSeq uint64
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		m := sstNamePattern.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		level, _ := strconv.Atoi(m[1])
		seq, _ := strconv.ParseUint(m[2], 10, 64)
		if level < 0 || level >= e.cfg.LevelsMax {
			return fmt.Errorf("lsmtree: %s: level %d outside configured range: %w", de.Name(), level, ErrBadMagic)
		}
		path := filepath.Join(e.dir, de.Name())
		r, err := OpenSortedTable(path, level, seq)
		if err != nil {
			return fmt.Errorf("lsmtree: recover %s: %w", de.Name(), err)
		}
		e.levels[level] = append(e.levels[level], r)
		if seq >= maxSeq {
			maxSeq = seq + 1
		}
	}
	e.nextSeq = maxSeq

	for l := 1; l < e.cfg.LevelsMax; l++ {
		lvl := e.levels[l]
		sort.Slice(lvl, func(i, j int) bool { return lvl[i].MinKey() < lvl[j].MinKey() })
	}
	// Level 0 recency is by seq ascending (append order); files were
	// discovered in directory order, not seq order, so sort explicitly.
	sort.Slice(e.levels[0], func(i, j int) bool { return e.levels[0][i].Seq() < e.levels[0][j].Seq() })
	return nil
}

func sstPath(dir string, level int, seq uint64) string {
	return filepath.Join(dir, fmt.Sprintf("level%d_%d.st", level, seq))
}

// Set durably appends a SET record to the WAL, applies it to the
// MemTable, and flushes if the MemTable has grown past its threshold.
// The write is complete once the WAL append returns.
func (e *Engine) Set(key string, value json.RawMessage) error {
	if e.closed {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	if err := e.wal.AppendSet(key, value); err != nil {
		return err
	}
	e.mem.Set(key, value)
	if int64(e.mem.ApproxBytes()) >= e.cfg.MemMaxBytes {
		return e.flush()
	}
	return nil
}

// Delete durably appends a DELETE (tombstone) record to the WAL and
// applies it to the MemTable, flushing if oversize.
func (e *Engine) Delete(key string) error {
	if e.closed {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	if err := e.wal.AppendDelete(key); err != nil {
		return err
	}
	e.mem.Delete(key)
	if int64(e.mem.ApproxBytes()) >= e.cfg.MemMaxBytes {
		return e.flush()
	}
	return nil
}

// Get checks the MemTable, then Level 0 newest-to-oldest, then levels
// 1..Lmax-1, returning the first definite answer. A tombstone anywhere
// along that chain reports absent without consulting deeper levels.
func (e *Engine) Get(key string) (json.RawMessage, bool, error) {
	if e.closed {
		return nil, false, ErrClosed
	}
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	if entry, ok := e.mem.Get(key); ok {
		return resolve(entry)
	}

	l0 := e.levels[0]
	for i := len(l0) - 1; i >= 0; i-- {
		entry, found, err := l0[i].Get(key)
		if err != nil {
			return nil, false, err
		}
		if found {
			return resolve(entry)
		}
	}

	for l := 1; l < len(e.levels); l++ {
		for _, r := range e.levels[l] {
			if key < r.MinKey() || key > r.MaxKey() {
				continue
			}
			entry, found, err := r.Get(key)
			if err != nil {
				return nil, false, err
			}
			if found {
				return resolve(entry)
			}
		}
	}

	return nil, false, nil
}

func resolve(entry domain.Entry) (json.RawMessage, bool, error) {
	if entry.IsTombstone() {
		return nil, false, nil
	}
	return entry.Value(), true, nil
}

// Range returns every live key in [lo, hi] in ascending order with
// recency-correct values, tombstones suppressed. It overlays deepest
// level first, upward, finally the MemTable.
func (e *Engine) Range(lo, hi string) ([]Pair, error) {
	if e.closed {
		return nil, ErrClosed
	}

	merged := make(map[string]domain.Entry)

	for l := len(e.levels) - 1; l >= 1; l-- {
		for _, r := range e.levels[l] {
			entries, err := r.Range(lo, hi)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				merged[entry.Key()] = entry
			}
		}
	}
	for _, r := range e.levels[0] {
		entries, err := r.Range(lo, hi)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			merged[entry.Key()] = entry
		}
	}
	for _, entry := range e.mem.Range(lo, hi) {
		merged[entry.Key()] = entry
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Pair, 0, len(keys))
	for _, k := range keys {
		entry := merged[k]
		if entry.IsTombstone() {
			continue
		}
		out = append(out, Pair{Key: k, Value: entry.Value()})
	}
	return out, nil
}

// Stats reports the engine's current instrumentation.
func (e *Engine) Stats() domain.Stats {
	fileCounts := make([]int, len(e.levels))
	entryCounts := make([]int, len(e.levels))
	for l, readers := range e.levels {
		fileCounts[l] = len(readers)
		total := 0
		for _, r := range readers {
			total += int(r.Stats().EntryCount)
		}
		entryCounts[l] = total
	}
	return domain.Stats{
		SessionID:           e.sessionID,
		MemtableBytes:       e.mem.ApproxBytes(),
		PerLevelFileCounts:  fileCounts,
		PerLevelEntryCounts: entryCounts,
	}
}

// Close closes the WAL and releases the directory lock. On-disk state
// is left exactly as it is; a subsequent Open replays the WAL and
// reconstructs the levels.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.wal.Close(); err != nil {
		return err
	}
	return e.releaseLock()
}
