package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/eliseea/mobility/core/mobility"
)

type mobilityRepository struct {
	mobilities *mobilityTable
	checklist  *checklistTable
}

var _ mobility.Repository = (*mobilityRepository)(nil) // interface compliance check

func NewMobilityRepository(db *DB) *mobilityRepository {
	return &mobilityRepository{mobilities: db.mobility, checklist: db.checklist}
}

func (repo *mobilityRepository) GetMobility(_ context.Context, id string) (mobility.Mobility, error) {
	repo.mobilities.RLock()
	defer repo.mobilities.RUnlock()

	if mob, ok := repo.mobilities.table[id]; ok {
		return *mob, nil
	}
	return mobility.Mobility{}, mobility.ErrNotFound
}

func (repo *mobilityRepository) GetMobilityByUser(_ context.Context, userID string) (mobility.Mobility, error) {
	repo.mobilities.RLock()
	defer repo.mobilities.RUnlock()

	for _, mob := range repo.mobilities.table {
		if mob.UserID == userID {
			return *mob, nil
		}
	}
	return mobility.Mobility{}, mobility.ErrNotFound
}

func (repo *mobilityRepository) QueryChecklist(_ context.Context, mobilityID string) ([]mobility.ChecklistItem, error) {
	repo.checklist.RLock()
	defer repo.checklist.RUnlock()

	items := make([]mobility.ChecklistItem, 0)
	for _, item := range repo.checklist.table {
		if item.MobilityID == mobilityID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (repo *mobilityRepository) GetChecklistItem(_ context.Context, id string) (mobility.ChecklistItem, error) {
	repo.checklist.RLock()
	defer repo.checklist.RUnlock()

	if item, ok := repo.checklist.table[id]; ok {
		return *item, nil
	}
	return mobility.ChecklistItem{}, mobility.ErrItemNotFound
}

func (repo *mobilityRepository) UpdateChecklistItemStatus(_ context.Context, id string, status mobility.ItemStatus) error {
	repo.checklist.Lock()
	defer repo.checklist.Unlock()

	item, ok := repo.checklist.table[id]
	if !ok {
		return mobility.ErrItemNotFound
	}
	item.Status = status
	item.UpdatedAt = time.Now().UTC()
	return nil
}
