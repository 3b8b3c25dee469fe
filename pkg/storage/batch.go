package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Batch records one batch run and its final tally.
type Batch struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Source string `gorm:"not null;default:''"`
	Mode   string `gorm:"not null;default:''"`

	Total     int `gorm:"not null;default:0"`
	Succeeded int `gorm:"not null;default:0"`
	Failed    int `gorm:"not null;default:0"`
}

func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	var v Batch
	if err := s.db.First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get Batch %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetBatch(ctx context.Context, v *Batch) error {
	if err := s.db.Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set Batch %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) ListBatches(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Batch, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Batch{}
	q := s.db.Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list Batches: %w", err)
	}
	return vs, nil
}
