package lsmtree

import (
	"math/rand"
	"time"

	"lsmkv/internal/domain"
)

// memtableMaxLevel and memtableP tune the skip list backing every
// MemTable.
const (
	memtableMaxLevel = 16
	memtableP        = 0.5
)

// MemTable is the newest tier of the engine: a sorted in-memory buffer
// of recent writes with tracked approximate size. It owns no WAL
// handle; the engine orchestrates the WAL-then-MemTable write order.
type MemTable struct {
	list *SkipList
}

// NewMemTable returns an empty MemTable.
func NewMemTable() *MemTable {
	return &MemTable{list: NewSkipList(memtableMaxLevel, memtableP, rand.NewSource(time.Now().UnixNano()))}
}

func (m *MemTable) Set(key string, value []byte) {
	m.list.Set(domain.NewEntry(key, value))
}

func (m *MemTable) Delete(key string) {
	m.list.Delete(key)
}

func (m *MemTable) Get(key string) (domain.Entry, bool) {
	return m.list.Get(key)
}

func (m *MemTable) Range(lo, hi string) []domain.Entry {
	return m.list.Range(lo, hi)
}

// All returns every entry in ascending key order, for streaming into
// the Sorted Table Writer during flush.
func (m *MemTable) All() []domain.Entry {
	return m.list.All()
}

func (m *MemTable) ApproxBytes() int {
	return m.list.ApproxBytes()
}

func (m *MemTable) Len() int {
	return m.list.Len()
}
