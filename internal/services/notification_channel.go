package services

import (
	"context"
	"errors"

	"github.com/stockyard-ci/stockyard/internal/models"
	"gorm.io/gorm"
)

var ErrChannelNotFound = errors.New("notification channel not found")

type NotificationChannelService struct {
	db *gorm.DB
}

func NewNotificationChannelService(db *gorm.DB) *NotificationChannelService {
	return &NotificationChannelService{db: db}
}

type CreateChannelRequest struct {
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type" binding:"required,oneof=slack pr_comment discord teams webhook"`
	Webhook       string `json:"webhook"`
	Token         string `json:"token"`
	Filter        string `json:"filter" binding:"omitempty,oneof=all success failure"`
	NotifyStarted bool   `json:"notify_started"`
	IsActive      *bool  `json:"is_active"`
}

type UpdateChannelRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type" binding:"omitempty,oneof=slack pr_comment discord teams webhook"`
	Webhook       string `json:"webhook"`
	Token         string `json:"token"`
	Filter        string `json:"filter" binding:"omitempty,oneof=all success failure"`
	NotifyStarted *bool  `json:"notify_started"`
	IsActive      *bool  `json:"is_active"`
}

func (s *NotificationChannelService) List(ctx context.Context) ([]models.NotificationChannel, error) {
	var channels []models.NotificationChannel
	if err := s.db.WithContext(ctx).Order("id").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

func (s *NotificationChannelService) GetByID(ctx context.Context, id uint) (*models.NotificationChannel, error) {
	var ch models.NotificationChannel
	if err := s.db.WithContext(ctx).First(&ch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	return &ch, nil
}

func (s *NotificationChannelService) Create(ctx context.Context, req *CreateChannelRequest) (*models.NotificationChannel, error) {
	ch := models.NotificationChannel{
		Name:          req.Name,
		Type:          req.Type,
		Webhook:       req.Webhook,
		Token:         req.Token,
		Filter:        req.Filter,
		NotifyStarted: req.NotifyStarted,
		IsActive:      true,
	}
	if ch.Filter == "" {
		ch.Filter = models.FilterAll
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ch).Error; err != nil {
			return err
		}
		// a false is_active is a zero value, so Create leaves the column default
		if req.IsActive != nil && !*req.IsActive {
			ch.IsActive = false
			return tx.Model(&ch).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *NotificationChannelService) Update(ctx context.Context, id uint, req *UpdateChannelRequest) (*models.NotificationChannel, error) {
	ch, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Type != "" {
		updates["type"] = req.Type
	}
	if req.Webhook != "" {
		updates["webhook"] = req.Webhook
	}
	if req.Token != "" {
		updates["token"] = req.Token
	}
	if req.Filter != "" {
		updates["filter"] = req.Filter
	}
	if req.NotifyStarted != nil {
		updates["notify_started"] = *req.NotifyStarted
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(ch).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

func (s *NotificationChannelService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.NotificationChannel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrChannelNotFound
	}
	return nil
}

func (s *NotificationChannelService) GetAllActive(ctx context.Context) ([]models.NotificationChannel, error) {
	var channels []models.NotificationChannel
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}
