package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"queuedesk/internal/models"

	"gorm.io/gorm"
)

// QueueService manages queues and the resolver roster.
type QueueService struct {
	db *gorm.DB
}

func NewQueueService(db *gorm.DB) *QueueService {
	return &QueueService{db: db}
}

type QueueRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

// QueueStats is one row of the resolver dashboard's queue overview.
type QueueStats struct {
	QueueID    uint   `json:"queue_id"`
	Name       string `json:"name"`
	Open       int64  `json:"open"`
	InProgress int64  `json:"in_progress"`
}

func (s *QueueService) ListQueues(ctx context.Context, activeOnly bool) ([]models.Queue, error) {
	query := s.db.WithContext(ctx).Model(&models.Queue{}).Order("id ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var queues []models.Queue
	if err := query.Find(&queues).Error; err != nil {
		return nil, err
	}
	return queues, nil
}

func (s *QueueService) GetQueue(ctx context.Context, id uint) (*models.Queue, error) {
	var queue models.Queue
	if err := s.db.WithContext(ctx).First(&queue, id).Error; err != nil {
		return nil, err
	}
	return &queue, nil
}

func (s *QueueService) CreateQueue(ctx context.Context, req *QueueRequest) (*models.Queue, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("name required")
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	now := time.Now()
	queue := &models.Queue{
		Name:        name,
		Description: req.Description,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(queue).Error; err != nil {
		return nil, err
	}
	return queue, nil
}

func (s *QueueService) UpdateQueue(ctx context.Context, id uint, req *QueueRequest) (*models.Queue, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	var queue models.Queue
	if err := s.db.WithContext(ctx).First(&queue, id).Error; err != nil {
		return nil, err
	}
	queue.Name = strings.TrimSpace(req.Name)
	queue.Description = req.Description
	if req.Active != nil {
		queue.Active = *req.Active
	}
	queue.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&queue).Error; err != nil {
		return nil, err
	}
	return &queue, nil
}

func (s *QueueService) DeleteQueue(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Queue{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("queue not found")
	}
	return nil
}

// ListResolvers returns active accounts that can take assignments.
func (s *QueueService) ListResolvers(ctx context.Context) ([]models.User, error) {
	var resolvers []models.User
	if err := s.db.WithContext(ctx).
		Where("role IN ? AND active = ?", []string{"resolver", "admin"}, true).
		Order("id ASC").
		Find(&resolvers).Error; err != nil {
		return nil, err
	}
	return resolvers, nil
}

// GetQueueStats returns per-queue open/in-progress ticket counts.
func (s *QueueService) GetQueueStats(ctx context.Context) ([]QueueStats, error) {
	queues, err := s.ListQueues(ctx, true)
	if err != nil {
		return nil, err
	}
	stats := make([]QueueStats, 0, len(queues))
	for _, q := range queues {
		row := QueueStats{QueueID: q.ID, Name: q.Name}
		if err := s.db.WithContext(ctx).Model(&models.Ticket{}).
			Where("queue_id = ? AND status = ?", q.ID, "open").
			Count(&row.Open).Error; err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Model(&models.Ticket{}).
			Where("queue_id = ? AND status = ?", q.ID, "in_progress").
			Count(&row.InProgress).Error; err != nil {
			return nil, err
		}
		stats = append(stats, row)
	}
	return stats, nil
}
