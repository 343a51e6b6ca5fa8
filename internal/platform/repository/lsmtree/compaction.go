package lsmtree

import (
	"fmt"
	"log"
	"os"
	"sort"

	"lsmkv/internal/domain"
)

// flush streams the current MemTable through the Sorted Table Writer
// into a new Level-0 file, installs it, replaces the MemTable, and
// truncates the WAL. If Level 0 has now reached its file-count
// threshold, it triggers compaction.
func (e *Engine) flush() error {
	entries := e.mem.All()
	if len(entries) == 0 {
		return nil
	}

	seq := e.nextSeq
	e.nextSeq++
	path := sstPath(e.dir, 0, seq)
	if err := WriteSortedTable(path, entries, e.cfg.BlockSizeBytes); err != nil {
		return fmt.Errorf("lsmtree: flush: %w", err)
	}

	r, err := OpenSortedTable(path, 0, seq)
	if err != nil {
		return fmt.Errorf("lsmtree: open freshly flushed table: %w", err)
	}
	e.levels[0] = append(e.levels[0], r)
	e.mem = NewMemTable()

	if err := e.wal.Truncate(); err != nil {
		return fmt.Errorf("lsmtree: truncate wal after flush: %w", err)
	}

	log.Printf("lsmtree[%s]: flushed %d entries to %s", e.sessionID, len(entries), path)

	if len(e.levels[0]) >= e.cfg.Level0MaxFiles {
		return e.compact(0)
	}
	return nil
}

// compact merges every table at level L with every table at level
// L+1 into a single new table at L+1. This is a whole-level merge,
// which keeps each level >= 1 at exactly zero or one table, so
// compaction at L never needs to cascade beyond L+1 within the same
// call. Only flush calls compact, and only with level 0: levels >= 1
// have no threshold of their own and are never compacted further, so
// tables never reach level 2 or deeper.
func (e *Engine) compact(level int) error {
	target := level + 1
	inputs := append(append([]*Reader{}, e.levels[level]...), e.levels[target]...)
	if len(inputs) == 0 {
		return nil
	}

	// Priority order, newest first: level's own tables by seq
	// descending, then the target level's tables (already disjoint,
	// order among them doesn't matter for recency).
	newestFirst := append([]*Reader{}, e.levels[level]...)
	sort.Slice(newestFirst, func(i, j int) bool { return newestFirst[i].Seq() > newestFirst[j].Seq() })
	newestFirst = append(newestFirst, e.levels[target]...)

	merged := make(map[string]domain.Entry)
	seen := make(map[string]bool)
	for _, r := range newestFirst {
		all, err := r.All()
		if err != nil {
			return fmt.Errorf("lsmtree: compact: read %s: %w", r.Path(), err)
		}
		for _, entry := range all {
			if seen[entry.Key()] {
				continue
			}
			seen[entry.Key()] = true
			merged[entry.Key()] = entry
		}
	}

	dropTombstones := target == e.cfg.LevelsMax-1

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	live := make([]domain.Entry, 0, len(keys))
	for _, k := range keys {
		entry := merged[k]
		if dropTombstones && entry.IsTombstone() {
			continue
		}
		live = append(live, entry)
	}

	var newReader *Reader
	if len(live) > 0 {
		seq := e.nextSeq
		e.nextSeq++
		path := sstPath(e.dir, target, seq)
		if err := WriteSortedTable(path, live, e.cfg.BlockSizeBytes); err != nil {
			return fmt.Errorf("lsmtree: compact: write merged table: %w", err)
		}
		r, err := OpenSortedTable(path, target, seq)
		if err != nil {
			return fmt.Errorf("lsmtree: compact: open merged table: %w", err)
		}
		newReader = r
	}

	for _, r := range inputs {
		if err := os.Remove(r.Path()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("lsmtree: compact: remove input %s: %w", r.Path(), err)
		}
	}

	e.levels[level] = nil
	if newReader != nil {
		e.levels[target] = []*Reader{newReader}
	} else {
		e.levels[target] = nil
	}

	log.Printf("lsmtree[%s]: compacted level %d (%d inputs) into level %d (%d live entries)",
		e.sessionID, level, len(inputs), target, len(live))
	return nil
}
