package repository

import (
	"encoding/json"

	"lsmkv/internal/domain"
	"lsmkv/internal/platform/repository/lsmtree"
)

// LSMTreeRepository adapts the lsmtree.Engine to the application
// layer's domain.DbEntryRepository port.
type LSMTreeRepository struct {
	engine *lsmtree.Engine
}

// NewLSMTreeRepository wraps an already-open engine.
func NewLSMTreeRepository(engine *lsmtree.Engine) *LSMTreeRepository {
	return &LSMTreeRepository{engine: engine}
}

func (r *LSMTreeRepository) Save(key string, value json.RawMessage) error {
	return r.engine.Set(key, value)
}

func (r *LSMTreeRepository) Delete(key string) error {
	return r.engine.Delete(key)
}

func (r *LSMTreeRepository) Get(key string) (json.RawMessage, bool, error) {
	return r.engine.Get(key)
}

func (r *LSMTreeRepository) Range(lo, hi string) ([]domain.Entry, error) {
	pairs, err := r.engine.Range(lo, hi)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.Entry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, domain.NewEntry(p.Key, p.Value))
	}
	return entries, nil
}

func (r *LSMTreeRepository) Stats() (domain.Stats, error) {
	return r.engine.Stats(), nil
}

func (r *LSMTreeRepository) Close() error {
	return r.engine.Close()
}
