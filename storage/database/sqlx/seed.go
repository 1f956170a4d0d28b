package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/storage/database"
)

// Seed upserts fixtures in a single transaction.
func Seed(ctx context.Context, db *sqlx.DB, f database.Fixtures) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, usr := range f.Users {
		usr.CreatedAt = usr.CreatedAt.UTC()
		if _, err = tx.NamedExecContext(ctx, `
			INSERT INTO "user" (id, name, email, role, created_at)
			VALUES (:id, :name, :email, :role, :created_at)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role`, usr); err != nil {
			return errors.Wrapf(err, "seeding user %s", usr.ID)
		}
	}
	for _, mob := range f.Mobilities {
		if _, err = tx.NamedExecContext(ctx, `
			INSERT INTO mobility (`+mobilityColumns+`)
			VALUES (:id, :user_id, :destination, :country_code, :host_organization, :kind, :status, :start_date, :end_date)
			ON CONFLICT (id) DO UPDATE SET
				user_id = EXCLUDED.user_id, destination = EXCLUDED.destination, country_code = EXCLUDED.country_code,
				host_organization = EXCLUDED.host_organization, kind = EXCLUDED.kind, status = EXCLUDED.status,
				start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`, mob); err != nil {
			return errors.Wrapf(err, "seeding mobility %s", mob.ID)
		}
	}
	for _, item := range f.Checklist {
		if _, err = tx.NamedExecContext(ctx, `
			INSERT INTO checklist_item (`+checklistColumns+`)
			VALUES (:id, :mobility_id, :position, :label, :description, :deadline, :requires_upload, :uploaded_file, :status, :updated_at)
			ON CONFLICT (id) DO UPDATE SET
				position = EXCLUDED.position, label = EXCLUDED.label, description = EXCLUDED.description,
				deadline = EXCLUDED.deadline, requires_upload = EXCLUDED.requires_upload,
				uploaded_file = EXCLUDED.uploaded_file, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
			toChecklistRow(item)); err != nil {
			return errors.Wrapf(err, "seeding checklist item %s", item.ID)
		}
	}
	for _, entry := range f.Journal {
		if _, err = tx.NamedExecContext(ctx, insertJournalEntry+` ON CONFLICT (id) DO NOTHING`, toJournalRow(entry)); err != nil {
			return errors.Wrapf(err, "seeding journal entry %s", entry.ID)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing seed")
	}
	return nil
}
