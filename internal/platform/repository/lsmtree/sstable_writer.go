package lsmtree

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"lsmkv/internal/domain"
)

// WriteSortedTable serializes an ascending entries stream into a new
// immutable ST file at path, targeting blockSize bytes per data block.
//
// Empty or out-of-order input is an error and leaves no file behind:
// the caller (the engine) must never invoke this with an empty
// MemTable or compaction input.
func WriteSortedTable(path string, entries []domain.Entry, blockSize int) (err error) {
	if len(entries) == 0 {
		return ErrEmptyFlush
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key() >= entries[i].Key() {
			return fmt.Errorf("%w: %q >= %q", ErrOutOfOrder, entries[i-1].Key(), entries[i].Key())
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("lsmtree: create sorted table: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	var (
		indexEntries []indexEntry
		offset       uint64
		block        []wireEntry
		blockBytes   int
		blockStart   string
	)

	flushBlock := func() error {
		if len(block) == 0 {
			return nil
		}
		payload, mErr := json.Marshal(block)
		if mErr != nil {
			return fmt.Errorf("lsmtree: encode block: %w", mErr)
		}
		if _, wErr := f.Write(payload); wErr != nil {
			return fmt.Errorf("lsmtree: write block: %w", wErr)
		}
		indexEntries = append(indexEntries, indexEntry{
			StartKey:      blockStart,
			EndKey:        block[len(block)-1].Key,
			blockMetadata: blockMetadata{Offset: offset, Size: uint64(len(payload))},
		})
		offset += uint64(len(payload))
		block = nil
		blockBytes = 0
		return nil
	}

	for _, e := range entries {
		we := toWire(e)
		encoded, mErr := json.Marshal(we)
		if mErr != nil {
			return fmt.Errorf("lsmtree: encode entry: %w", mErr)
		}
		if len(block) > 0 && blockBytes+len(encoded) > blockSize {
			if fErr := flushBlock(); fErr != nil {
				return fErr
			}
		}
		if len(block) == 0 {
			blockStart = we.Key
		}
		block = append(block, we)
		blockBytes += len(encoded)
	}
	if err = flushBlock(); err != nil {
		return err
	}

	indexOffset := offset
	indexPayload, err := json.Marshal(indexEntries)
	if err != nil {
		return fmt.Errorf("lsmtree: encode index: %w", err)
	}
	if _, err = f.Write(indexPayload); err != nil {
		return fmt.Errorf("lsmtree: write index: %w", err)
	}

	ft := footer{
		IndexOffset: indexOffset,
		IndexSize:   uint64(len(indexPayload)),
		BlockCount:  uint32(len(indexEntries)),
		EntryCount:  uint64(len(entries)),
		MinKey:      entries[0].Key(),
		MaxKey:      entries[len(entries)-1].Key(),
		Magic:       sstMagic,
	}
	footerPayload, err := json.Marshal(ft)
	if err != nil {
		return fmt.Errorf("lsmtree: encode footer: %w", err)
	}
	if _, err = f.Write(footerPayload); err != nil {
		return fmt.Errorf("lsmtree: write footer: %w", err)
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(footerPayload)))
	if _, err = f.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("lsmtree: write footer length: %w", err)
	}

	if err = f.Sync(); err != nil {
		return fmt.Errorf("lsmtree: sync sorted table: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("lsmtree: close sorted table: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("lsmtree: install sorted table: %w", err)
	}
	return nil
}
