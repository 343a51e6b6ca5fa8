package service

import "lsmkv/internal/domain"

// DeleteEntryService stores a tombstone for a key. The engine itself
// is the authority on whether a key existed; deleting a never-written
// key is not an error, a later get simply reports absent.
type DeleteEntryService struct {
	repository domain.DbEntryRepository
}

func NewDeleteEntryService(repository domain.DbEntryRepository) *DeleteEntryService {
	return &DeleteEntryService{repository: repository}
}

type DeleteEntryCommand struct {
	Key string
}

type DeleteEntryResult struct {
	Key string
}

func (s *DeleteEntryService) Execute(command DeleteEntryCommand) (DeleteEntryResult, error) {
	if err := s.repository.Delete(command.Key); err != nil {
		return DeleteEntryResult{}, err
	}
	return DeleteEntryResult{Key: command.Key}, nil
}
