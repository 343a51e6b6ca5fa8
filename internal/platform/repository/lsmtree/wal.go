package lsmtree

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

const walFileName = "wal.log"

type walOp string

const (
	walOpSet    walOp = "SET"
	walOpDelete walOp = "DELETE"
)

// walRecord is the JSON-line wire format for a single WAL entry:
// {"op":"SET"|"DELETE","key":"...","value":...?,"ts":...}.
type walRecord struct {
	Op    walOp           `json:"op"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
	TS    int64           `json:"ts"`
}

// WALEntry is a logical operation replayed from the WAL.
type WALEntry struct {
	Op    walOp
	Key   string
	Value json.RawMessage
}

func (e WALEntry) IsDelete() bool { return e.Op == walOpDelete }

// WAL is the append-only, fsync'd record stream backing durability
// and recovery, using JSON-line framing, a per-append fsync, and
// truncate-on-flush.
type WAL struct {
	fd   *os.File
	dir  string
	path string
}

// OpenWAL opens (creating if absent) the single current WAL file in dir.
func OpenWAL(dir string) (*WAL, error) {
	path := filepath.Join(dir, walFileName)
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("lsmtree: open wal: %w", err)
	}
	return &WAL{fd: fd, dir: dir, path: path}, nil
}

// AppendSet durably records a SET of key/value. It returns only after
// the bytes are fsync'd: WAL record durable implies MemTable mutation
// visible.
func (w *WAL) AppendSet(key string, value json.RawMessage) error {
	return w.append(walRecord{Op: walOpSet, Key: key, Value: value, TS: time.Now().UnixMilli()})
}

// AppendDelete durably records a DELETE of key.
func (w *WAL) AppendDelete(key string) error {
	return w.append(walRecord{Op: walOpDelete, Key: key, TS: time.Now().UnixMilli()})
}

func (w *WAL) append(rec walRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("lsmtree: encode wal record: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.fd.Write(line); err != nil {
		return fmt.Errorf("lsmtree: write wal record: %w", err)
	}
	if err := w.fd.Sync(); err != nil {
		return fmt.Errorf("lsmtree: sync wal: %w", err)
	}
	return nil
}

// Replay reads every record from the start of the WAL and returns the
// ordered sequence of logical ops. A crash mid-record leaves an
// unparseable trailing line; replay stops there (logging a
// diagnostic) and returns everything decoded so far.
func Replay(path string) ([]WALEntry, error) {
	fd, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lsmtree: open wal for replay: %w", err)
	}
	defer fd.Close()

	var entries []WALEntry
	scanner := bufio.NewScanner(fd)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec walRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Printf("lsmtree: skipping corrupt wal record in %s: %v", path, err)
			break
		}
		entries = append(entries, WALEntry{Op: rec.Op, Key: rec.Key, Value: rec.Value})
	}
	if err := scanner.Err(); err != nil {
		log.Printf("lsmtree: wal scan stopped early on %s: %v", path, err)
	}
	return entries, nil
}

// Replay reads this WAL's own file from the start.
func (w *WAL) Replay() ([]WALEntry, error) {
	return Replay(w.path)
}

// Truncate closes the current file, removes it, and reopens a fresh
// empty WAL at the same path. Called after a successful MemTable
// flush.
func (w *WAL) Truncate() error {
	if err := w.close(); err != nil {
		return err
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lsmtree: remove wal: %w", err)
	}
	fd, err := os.OpenFile(w.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("lsmtree: reopen wal: %w", err)
	}
	w.fd = fd
	return nil
}

func (w *WAL) close() error {
	if w.fd == nil {
		return nil
	}
	err := w.fd.Close()
	w.fd = nil
	if err != nil {
		return fmt.Errorf("lsmtree: close wal: %w", err)
	}
	return nil
}

// Close releases the WAL's file handle.
func (w *WAL) Close() error {
	return w.close()
}

// Path returns the WAL's file path, for diagnostics.
func (w *WAL) Path() string { return w.path }
