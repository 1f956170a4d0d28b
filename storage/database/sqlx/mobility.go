package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/eliseea/mobility/core/mobility"
)

const mobilityColumns = `id, user_id, destination, country_code, host_organization, kind, status, start_date, end_date`

type checklistRow struct {
	ID             string      `db:"id"`
	MobilityID     string      `db:"mobility_id"`
	Position       int         `db:"position"`
	Label          string      `db:"label"`
	Description    null.String `db:"description"`
	Deadline       null.Time   `db:"deadline"`
	RequiresUpload bool        `db:"requires_upload"`
	UploadedFile   null.String `db:"uploaded_file"`
	Status         string      `db:"status"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func toChecklistRow(item mobility.ChecklistItem) checklistRow {
	return checklistRow{
		ID:             item.ID,
		MobilityID:     item.MobilityID,
		Position:       item.Position,
		Label:          item.Label,
		Description:    null.NewString(item.Description, item.Description != ""),
		Deadline:       null.TimeFromPtr(item.Deadline),
		RequiresUpload: item.RequiresUpload,
		UploadedFile:   null.NewString(item.UploadedFile, item.UploadedFile != ""),
		Status:         string(item.Status),
		UpdatedAt:      item.UpdatedAt.UTC(),
	}
}

func (row checklistRow) item() mobility.ChecklistItem {
	return mobility.ChecklistItem{
		ID:             row.ID,
		MobilityID:     row.MobilityID,
		Position:       row.Position,
		Label:          row.Label,
		Description:    row.Description.String,
		Deadline:       row.Deadline.Ptr(),
		RequiresUpload: row.RequiresUpload,
		UploadedFile:   row.UploadedFile.String,
		Status:         mobility.ItemStatus(row.Status),
		UpdatedAt:      row.UpdatedAt,
	}
}

const checklistColumns = `id, mobility_id, position, label, description, deadline, requires_upload, uploaded_file, status, updated_at`

type mobilityRepository struct {
	db *sqlx.DB
}

var _ mobility.Repository = (*mobilityRepository)(nil) // interface compliance check

func NewMobilityRepository(db *sqlx.DB) *mobilityRepository {
	return &mobilityRepository{db: db}
}

func (repo mobilityRepository) getMobility(ctx context.Context, where string, arg string) (mobility.Mobility, error) {
	var mob mobility.Mobility
	if err := repo.db.GetContext(ctx, &mob, `SELECT `+mobilityColumns+` FROM mobility WHERE `+where, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mobility.Mobility{}, mobility.ErrNotFound
		}
		return mobility.Mobility{}, errors.Wrap(err, "selecting mobility")
	}
	return mob, nil
}

func (repo mobilityRepository) GetMobility(ctx context.Context, id string) (mobility.Mobility, error) {
	return repo.getMobility(ctx, "id = $1", id)
}

func (repo mobilityRepository) GetMobilityByUser(ctx context.Context, userID string) (mobility.Mobility, error) {
	return repo.getMobility(ctx, "user_id = $1", userID)
}

func (repo mobilityRepository) QueryChecklist(ctx context.Context, mobilityID string) ([]mobility.ChecklistItem, error) {
	var rows []checklistRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+checklistColumns+` FROM checklist_item WHERE mobility_id = $1 ORDER BY position, id`, mobilityID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting checklist items")
	}
	items := make([]mobility.ChecklistItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}
	return items, nil
}

func (repo mobilityRepository) GetChecklistItem(ctx context.Context, id string) (mobility.ChecklistItem, error) {
	var row checklistRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+checklistColumns+` FROM checklist_item WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mobility.ChecklistItem{}, mobility.ErrItemNotFound
		}
		return mobility.ChecklistItem{}, errors.Wrap(err, "selecting checklist item")
	}
	return row.item(), nil
}

func (repo mobilityRepository) UpdateChecklistItemStatus(ctx context.Context, id string, status mobility.ItemStatus) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE checklist_item SET status = $1, updated_at = now() WHERE id = $2`, string(status), id)
	if err != nil {
		return errors.Wrap(err, "updating checklist item")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating checklist item")
	}
	if n == 0 {
		return mobility.ErrItemNotFound
	}
	return nil
}
