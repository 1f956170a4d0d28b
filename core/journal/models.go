package journal

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eliseea/mobility/core"
)

const DateLayout = "2006-01-02"

// Entry is a daily log record of a Mobility. Entries are never mutated once created.
type Entry struct {
	ID         string    `json:"id"`
	MobilityID string    `json:"mobility_id"`
	Date       time.Time `json:"date"`
	Content    string    `json:"content"`
	Activities string    `json:"activities"`
	Skills     string    `json:"skills"`
	Mood       int       `json:"mood"` // 1-5
	Photos     []string  `json:"photos"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// NewEntry contains information needed to append an Entry to a journal.
type NewEntry struct {
	Date       string   `json:"date" validate:"required,datetime=2006-01-02"`
	Content    string   `json:"content" validate:"notblank"`
	Activities string   `json:"activities"`
	Skills     string   `json:"skills"`
	Mood       int      `json:"mood" validate:"rating"`
	Photos     []string `json:"photos" validate:"omitempty,dive,url"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Date = core.CleanString(ne.Date)
	ne.Content = core.CleanString(ne.Content)
	ne.Activities = core.CleanString(ne.Activities)
	ne.Skills = core.CleanString(ne.Skills)
	return validate.Struct(ne)
}

// SortChronologically orders entries by date, then by creation time.
func SortChronologically(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
