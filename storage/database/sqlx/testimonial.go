package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/eliseea/mobility/core/testimonial"
)

type testimonialRow struct {
	ID          string    `db:"id"`
	MobilityID  string    `db:"mobility_id"`
	AuthorID    string    `db:"author_id"`
	AuthorName  string    `db:"author_name"`
	Title       string    `db:"title"`
	Content     string    `db:"content"`
	Status      string    `db:"status"`
	AIAssisted  bool      `db:"ai_assisted"`
	EditRatio   float64   `db:"edit_ratio"`
	Digest      string    `db:"digest"`
	PublishedAt null.Time `db:"published_at"`
}

func toTestimonialRow(t testimonial.Testimonial) testimonialRow {
	row := testimonialRow{
		ID:         t.ID,
		MobilityID: t.MobilityID,
		AuthorID:   t.AuthorID,
		AuthorName: t.AuthorName,
		Title:      t.Title,
		Content:    t.Content,
		Status:     string(t.Status),
		AIAssisted: t.AIAssisted,
		EditRatio:  t.EditRatio,
		Digest:     t.Digest,
	}
	if t.PublishedAt != nil {
		row.PublishedAt = null.TimeFrom(t.PublishedAt.UTC())
	}
	return row
}

func (row testimonialRow) testimonial() testimonial.Testimonial {
	return testimonial.Testimonial{
		ID:          row.ID,
		MobilityID:  row.MobilityID,
		AuthorID:    row.AuthorID,
		AuthorName:  row.AuthorName,
		Title:       row.Title,
		Content:     row.Content,
		Status:      testimonial.Status(row.Status),
		AIAssisted:  row.AIAssisted,
		EditRatio:   row.EditRatio,
		Digest:      row.Digest,
		PublishedAt: row.PublishedAt.Ptr(),
	}
}

type testimonialRepository struct {
	db *sqlx.DB
}

var _ testimonial.Repository = (*testimonialRepository)(nil) // interface compliance check

func NewTestimonialRepository(db *sqlx.DB) *testimonialRepository {
	return &testimonialRepository{db: db}
}

func (repo testimonialRepository) SaveTestimonial(ctx context.Context, t testimonial.Testimonial) error {
	const q = `
		INSERT INTO testimonial (id, mobility_id, author_id, author_name, title, content, status, ai_assisted, edit_ratio, digest, published_at)
		VALUES (:id, :mobility_id, :author_id, :author_name, :title, :content, :status, :ai_assisted, :edit_ratio, :digest, :published_at)
		ON CONFLICT (id) DO NOTHING`

	res, err := repo.db.NamedExecContext(ctx, q, toTestimonialRow(t))
	if err != nil {
		return errors.Wrap(err, "inserting testimonial")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "inserting testimonial")
	}
	if n > 0 {
		return nil
	}

	// a previous attempt may have been saved without its caller knowing
	var existing testimonialRow
	err = repo.db.GetContext(ctx, &existing, `SELECT id, mobility_id, digest FROM testimonial WHERE id = $1`, t.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "selecting testimonial")
	}
	if existing.Digest == t.Digest && existing.MobilityID == t.MobilityID {
		return nil
	}
	return testimonial.ErrAlreadyExists
}

func (repo testimonialRepository) QueryTestimonials(ctx context.Context, mobilityID string) ([]testimonial.Testimonial, error) {
	var rows []testimonialRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, mobility_id, author_id, author_name, title, content, status, ai_assisted, edit_ratio, digest, published_at
		FROM testimonial WHERE mobility_id = $1
		ORDER BY published_at DESC NULLS LAST, id`, mobilityID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting testimonials")
	}
	ts := make([]testimonial.Testimonial, 0, len(rows))
	for _, row := range rows {
		ts = append(ts, row.testimonial())
	}
	return ts, nil
}
