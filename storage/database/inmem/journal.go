package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/eliseea/mobility/core/journal"
)

type journalRepository struct {
	db *journalTable
}

var _ journal.Repository = (*journalRepository)(nil) // interface compliance check

func NewJournalRepository(db *DB) *journalRepository {
	return &journalRepository{db: db.journal}
}

func (repo *journalRepository) QueryEntries(_ context.Context, mobilityID string) ([]journal.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]journal.Entry, 0)
	for _, e := range repo.db.table {
		if e.MobilityID == mobilityID {
			entry := *e
			entry.Photos = append([]string{}, e.Photos...)
			entries = append(entries, entry)
		}
	}
	journal.SortChronologically(entries)
	return entries, nil
}

func (repo *journalRepository) CreateEntry(_ context.Context, entry journal.Entry) (journal.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	entry.ID = uuid.New().String()
	entry.Photos = append([]string{}, entry.Photos...)
	stored := entry
	repo.db.table[entry.ID] = &stored
	return entry, nil
}
