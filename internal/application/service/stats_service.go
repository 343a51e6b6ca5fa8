package service

import "lsmkv/internal/domain"

// StatsService exposes the engine's instrumentation.
type StatsService struct {
	repository domain.DbEntryRepository
}

func NewStatsService(repository domain.DbEntryRepository) *StatsService {
	return &StatsService{repository: repository}
}

func (s *StatsService) Execute() (domain.Stats, error) {
	return s.repository.Stats()
}
