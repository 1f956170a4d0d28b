package inmemdb

import (
	"context"
	"sort"

	"github.com/eliseea/mobility/core/testimonial"
)

type testimonialRepository struct {
	db *testimonialTable
}

var _ testimonial.Repository = (*testimonialRepository)(nil) // interface compliance check

func NewTestimonialRepository(db *DB) *testimonialRepository {
	return &testimonialRepository{db: db.testimonial}
}

func (repo *testimonialRepository) SaveTestimonial(_ context.Context, t testimonial.Testimonial) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if existing, ok := repo.db.table[t.ID]; ok {
		if existing.Digest == t.Digest && existing.MobilityID == t.MobilityID {
			return nil
		}
		return testimonial.ErrAlreadyExists
	}
	if t.PublishedAt != nil {
		at := *t.PublishedAt
		t.PublishedAt = &at
	}
	repo.db.table[t.ID] = &t
	return nil
}

// QueryTestimonials returns the testimonials of a mobility, latest publication first.
func (repo *testimonialRepository) QueryTestimonials(_ context.Context, mobilityID string) ([]testimonial.Testimonial, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ts := make([]testimonial.Testimonial, 0)
	for _, t := range repo.db.table {
		if t.MobilityID == mobilityID {
			ts = append(ts, *t)
		}
	}
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i].PublishedAt, ts[j].PublishedAt
		switch {
		case a == nil || b == nil:
			return b == nil && a != nil
		case !a.Equal(*b):
			return a.After(*b)
		}
		return ts[i].ID < ts[j].ID
	})
	return ts, nil
}
