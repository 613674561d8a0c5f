package models

import "time"

// Repository is keyed by (owner, repository). Rows are created on first
// upload and only the default branch is ever updated.
type Repository struct {
	Owner         string  `gorm:"primaryKey;size:191" json:"owner"`
	Name          string  `gorm:"column:repository;primaryKey;size:191" json:"repository"`
	DefaultBranch *string `gorm:"size:191" json:"default_branch"`
}

func (Repository) TableName() string { return "repositories" }

type Branch struct {
	Owner          string     `gorm:"primaryKey;size:191" json:"owner"`
	Repository     string     `gorm:"primaryKey;size:191" json:"repository"`
	Name           string     `gorm:"column:branch;primaryKey;size:191" json:"branch"`
	PullRequest    *string    `gorm:"size:191" json:"pull_request"`
	LatestActivity *time.Time `json:"latest_activity"`
}

func (Branch) TableName() string { return "branches" }
