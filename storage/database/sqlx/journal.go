package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core/journal"
)

type journalRow struct {
	ID         string         `db:"id"`
	MobilityID string         `db:"mobility_id"`
	Date       time.Time      `db:"entry_date"`
	Content    string         `db:"content"`
	Activities string         `db:"activities"`
	Skills     string         `db:"skills"`
	Mood       int            `db:"mood"`
	Photos     pq.StringArray `db:"photos"`
	CreatedAt  time.Time      `db:"created_at"`
}

func toJournalRow(e journal.Entry) journalRow {
	photos := pq.StringArray(e.Photos)
	if photos == nil {
		photos = pq.StringArray{}
	}
	return journalRow{
		ID:         e.ID,
		MobilityID: e.MobilityID,
		Date:       e.Date,
		Content:    e.Content,
		Activities: e.Activities,
		Skills:     e.Skills,
		Mood:       e.Mood,
		Photos:     photos,
		CreatedAt:  e.CreatedAt.UTC(),
	}
}

func (row journalRow) entry() journal.Entry {
	photos := []string(row.Photos)
	if photos == nil {
		photos = []string{}
	}
	return journal.Entry{
		ID:         row.ID,
		MobilityID: row.MobilityID,
		Date:       row.Date,
		Content:    row.Content,
		Activities: row.Activities,
		Skills:     row.Skills,
		Mood:       row.Mood,
		Photos:     photos,
		CreatedAt:  row.CreatedAt,
	}
}

const insertJournalEntry = `
	INSERT INTO journal_entry (id, mobility_id, entry_date, content, activities, skills, mood, photos, created_at)
	VALUES (:id, :mobility_id, :entry_date, :content, :activities, :skills, :mood, :photos, :created_at)`

type journalRepository struct {
	db *sqlx.DB
}

var _ journal.Repository = (*journalRepository)(nil) // interface compliance check

func NewJournalRepository(db *sqlx.DB) *journalRepository {
	return &journalRepository{db: db}
}

func (repo journalRepository) QueryEntries(ctx context.Context, mobilityID string) ([]journal.Entry, error) {
	var rows []journalRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, mobility_id, entry_date, content, activities, skills, mood, photos, created_at
		FROM journal_entry WHERE mobility_id = $1
		ORDER BY entry_date, created_at`, mobilityID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting journal entries")
	}
	entries := make([]journal.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (repo journalRepository) CreateEntry(ctx context.Context, entry journal.Entry) (journal.Entry, error) {
	entry.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertJournalEntry, toJournalRow(entry)); err != nil {
		return journal.Entry{}, errors.Wrap(err, "inserting journal entry")
	}
	if entry.Photos == nil {
		entry.Photos = []string{}
	}
	return entry, nil
}
