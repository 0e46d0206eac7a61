package models

import "time"

// Score is a numeric score applied to one user for a target under a scoring rule.
type Score struct {
	UserID     string    `json:"user_id"`
	TargetPath string    `json:"target_path"`
	RulePath   string    `json:"rule_path"`
	Score      int64     `json:"score"`
	UpdatedAt  time.Time `json:"updated_at"`
}
