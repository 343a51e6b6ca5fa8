package lsmtree

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"lsmkv/internal/domain"
)

// Reader opens an immutable Sorted Table and serves point lookups,
// bounded range scans, and full ascending iteration. It keeps a
// two-level block index in memory (no bloom filter) and reads data
// blocks on demand.
type Reader struct {
	path   string
	seq    uint64
	level  int
	footer footer
	index  []indexEntry
}

// OpenSortedTable reads the trailing footer-length, the footer, and
// the index from path, caching them for the reader's lifetime. It
// does not keep the file descriptor open between calls: each
// Get/Range opens and closes its own handle, trading throughput for
// simplicity.
func OpenSortedTable(path string, level int, seq uint64) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lsmtree: open sorted table: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("lsmtree: stat sorted table: %w", err)
	}
	if info.Size() < 4 {
		return nil, fmt.Errorf("lsmtree: sorted table %s too small: %w", path, ErrBadMagic)
	}

	var lenBuf [4]byte
	if _, err := f.ReadAt(lenBuf[:], info.Size()-4); err != nil {
		return nil, fmt.Errorf("lsmtree: read footer length: %w", err)
	}
	footerLen := int64(binary.LittleEndian.Uint32(lenBuf[:]))
	if footerLen <= 0 || footerLen > info.Size()-4 {
		return nil, fmt.Errorf("lsmtree: implausible footer length in %s: %w", path, ErrBadMagic)
	}

	footerBuf := make([]byte, footerLen)
	if _, err := f.ReadAt(footerBuf, info.Size()-4-footerLen); err != nil {
		return nil, fmt.Errorf("lsmtree: read footer: %w", err)
	}
	var ft footer
	if err := json.Unmarshal(footerBuf, &ft); err != nil {
		return nil, fmt.Errorf("lsmtree: decode footer in %s: %w", path, err)
	}
	if ft.Magic != sstMagic {
		return nil, fmt.Errorf("lsmtree: sorted table %s: %w", path, ErrBadMagic)
	}

	indexBuf := make([]byte, ft.IndexSize)
	if _, err := f.ReadAt(indexBuf, int64(ft.IndexOffset)); err != nil {
		return nil, fmt.Errorf("lsmtree: read index: %w", err)
	}
	var idx []indexEntry
	if err := json.Unmarshal(indexBuf, &idx); err != nil {
		return nil, fmt.Errorf("lsmtree: decode index in %s: %w", path, err)
	}

	return &Reader{path: path, seq: seq, level: level, footer: ft, index: idx}, nil
}

func (r *Reader) Path() string   { return r.path }
func (r *Reader) Seq() uint64    { return r.seq }
func (r *Reader) Level() int     { return r.level }
func (r *Reader) MinKey() string { return r.footer.MinKey }
func (r *Reader) MaxKey() string { return r.footer.MaxKey }
func (r *Reader) Stats() Stats   { return r.footer.Stats() }

// blockIndexFor returns the index of the last block whose start key is
// <= key, or -1 if key precedes every block.
func (r *Reader) blockIndexFor(key string) int {
	i := sort.Search(len(r.index), func(i int) bool {
		return r.index[i].StartKey > key
	})
	return i - 1
}

func (r *Reader) readBlock(i int) ([]wireEntry, error) {
	meta := r.index[i]
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("lsmtree: open sorted table block: %w", err)
	}
	defer f.Close()

	buf := make([]byte, meta.Size)
	if _, err := f.ReadAt(buf, int64(meta.Offset)); err != nil {
		return nil, fmt.Errorf("lsmtree: read block: %w", err)
	}
	var entries []wireEntry
	if err := json.Unmarshal(buf, &entries); err != nil {
		return nil, fmt.Errorf("lsmtree: decode block: %w", err)
	}
	return entries, nil
}

// Get returns the entry for key, or (zero, false) if the table has no
// record of it at all. Tombstones are returned, not suppressed: the
// engine decides what absence means.
func (r *Reader) Get(key string) (domain.Entry, bool, error) {
	if r.footer.EntryCount == 0 || key < r.footer.MinKey || key > r.footer.MaxKey {
		return domain.Entry{}, false, nil
	}
	bi := r.blockIndexFor(key)
	if bi < 0 {
		return domain.Entry{}, false, nil
	}
	block, err := r.readBlock(bi)
	if err != nil {
		return domain.Entry{}, false, err
	}
	j := sort.Search(len(block), func(j int) bool { return block[j].Key >= key })
	if j < len(block) && block[j].Key == key {
		return fromWire(block[j]), true, nil
	}
	return domain.Entry{}, false, nil
}

// Range returns entries with lo <= key <= hi in ascending order,
// tombstones included: suppression is the engine's job.
func (r *Reader) Range(lo, hi string) ([]domain.Entry, error) {
	if r.footer.EntryCount == 0 || hi < r.footer.MinKey || lo > r.footer.MaxKey {
		return nil, nil
	}
	start := r.blockIndexFor(lo)
	if start < 0 {
		start = 0
	}
	var out []domain.Entry
	for i := start; i < len(r.index); i++ {
		if r.index[i].StartKey > hi {
			break
		}
		block, err := r.readBlock(i)
		if err != nil {
			return nil, err
		}
		for _, we := range block {
			if we.Key < lo {
				continue
			}
			if we.Key > hi {
				return out, nil
			}
			out = append(out, fromWire(we))
		}
	}
	return out, nil
}

// All returns every entry in the table in ascending key order, for
// full iteration during compaction.
func (r *Reader) All() ([]domain.Entry, error) {
	var out []domain.Entry
	for i := range r.index {
		block, err := r.readBlock(i)
		if err != nil {
			return nil, err
		}
		for _, we := range block {
			out = append(out, fromWire(we))
		}
	}
	return out, nil
}
