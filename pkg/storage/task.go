package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Task is the journal entry for one generation request. It keeps enough
// of the request to identify the task later and resume after a local
// timeout or restart.
type Task struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TaskID string `gorm:"uniqueIndex;not null;default:''"`

	Title        string `gorm:"not null;default:''"`
	Model        string `gorm:"not null;default:''"`
	Prompt       string `gorm:"not null;default:''"`
	Style        string `gorm:"not null;default:''"`
	Instrumental bool

	Status string `gorm:"index;not null;default:''"`
	Error  string `gorm:"not null;default:''"`
	Output string `gorm:"not null;default:''"`

	CoverTaskID string  `gorm:"not null;default:''"`
	Duration    float32 `gorm:"not null;default:0"`

	BatchID string `gorm:"index"`
	Batch   *Batch `gorm:"foreignKey:BatchID"`
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	var v Task
	q := s.db.Preload("Batch")
	if err := q.First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get Task %s: %w", id, err)
	}
	return &v, nil
}

// GetTaskByRemoteID looks up the journal entry for a service-issued task id.
func (s *Store) GetTaskByRemoteID(ctx context.Context, taskID string) (*Task, error) {
	var v Task
	q := s.db.Preload("Batch")
	if err := q.First(&v, "task_id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get Task by remote id %s: %w", taskID, err)
	}
	return &v, nil
}

func (s *Store) SetTask(ctx context.Context, v *Task) error {
	if err := s.db.Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set Task %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.db.Delete(&Task{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete Task %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Task, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Task{}
	q := s.db.Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list Tasks: %w", err)
	}
	return vs, nil
}
