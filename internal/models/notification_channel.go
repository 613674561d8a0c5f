package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ChannelSlack     = "slack"
	ChannelPRComment = "pr_comment"
	ChannelDiscord   = "discord"
	ChannelTeams     = "teams"
	ChannelWebhook   = "webhook"

	FilterAll     = "all"
	FilterSuccess = "success"
	FilterFailure = "failure"
)

// NotificationChannel is a destination for build notifications.
type NotificationChannel struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
	Type string `gorm:"size:50;not null" json:"type"`
	// Webhook is the chat webhook URL, or the API base URL override for pr_comment.
	Webhook       string         `gorm:"size:500" json:"webhook"`
	Token         string         `gorm:"size:255" json:"-"`
	Filter        string         `gorm:"size:20;default:all" json:"filter"`
	NotifyStarted bool           `gorm:"default:false" json:"notify_started"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (NotificationChannel) TableName() string { return "notification_channels" }
