package inmemdb

import (
	"sync"

	"github.com/eliseea/mobility/core/journal"
	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/testimonial"
	"github.com/eliseea/mobility/core/user"
	"github.com/eliseea/mobility/storage/database"
)

type (
	// DB keeps every table in memory. It is lost on restart.
	DB struct {
		user        *userTable
		mobility    *mobilityTable
		checklist   *checklistTable
		journal     *journalTable
		testimonial *testimonialTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	mobilityTable struct {
		sync.RWMutex
		table map[string]*mobility.Mobility
	}

	checklistTable struct {
		sync.RWMutex
		table map[string]*mobility.ChecklistItem
	}

	journalTable struct {
		sync.RWMutex
		table map[string]*journal.Entry
	}

	testimonialTable struct {
		sync.RWMutex
		table map[string]*testimonial.Testimonial
	}
)

func Open() *DB {
	return &DB{
		user:        &userTable{table: make(map[string]*user.User)},
		mobility:    &mobilityTable{table: make(map[string]*mobility.Mobility)},
		checklist:   &checklistTable{table: make(map[string]*mobility.ChecklistItem)},
		journal:     &journalTable{table: make(map[string]*journal.Entry)},
		testimonial: &testimonialTable{table: make(map[string]*testimonial.Testimonial)},
	}
}

// Seed loads fixtures, replacing records with the same IDs.
func (db *DB) Seed(f database.Fixtures) {
	db.user.Lock()
	for i := range f.Users {
		usr := f.Users[i]
		db.user.table[usr.ID] = &usr
	}
	db.user.Unlock()

	db.mobility.Lock()
	for i := range f.Mobilities {
		mob := f.Mobilities[i]
		db.mobility.table[mob.ID] = &mob
	}
	db.mobility.Unlock()

	db.checklist.Lock()
	for i := range f.Checklist {
		item := f.Checklist[i]
		db.checklist.table[item.ID] = &item
	}
	db.checklist.Unlock()

	db.journal.Lock()
	for i := range f.Journal {
		entry := f.Journal[i]
		entry.Photos = append([]string{}, entry.Photos...)
		db.journal.table[entry.ID] = &entry
	}
	db.journal.Unlock()
}
