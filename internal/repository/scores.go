package repository

import (
	"context"
	"fmt"
	"strings"

	"ugcmigrate/internal/models"
)

// SaveScore records score for userID on targetPath under rulePath.
// A later save for the same triple overwrites the earlier one.
func (r *Repository) SaveScore(ctx context.Context, userID, targetPath, rulePath string, score int64) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	target, err := CleanPath(targetPath)
	if err != nil {
		return fmt.Errorf("target path: %w", err)
	}
	rule, err := CleanPath(rulePath)
	if err != nil {
		return fmt.Errorf("rule path: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scores (user_id, target_path, rule_path, score, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, target_path, rule_path)
		DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at
	`, userID, target, rule, score, formatTime(r.now()))
	return err
}

// ListScores lists scores for userID, or all scores when userID is empty.
func (r *Repository) ListScores(ctx context.Context, userID string) ([]models.Score, error) {
	query := "SELECT user_id, target_path, rule_path, score, updated_at FROM scores"
	args := []any{}
	if userID = strings.TrimSpace(userID); userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY user_id ASC, target_path ASC, rule_path ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := []models.Score{}
	for rows.Next() {
		var score models.Score
		var updatedAt string
		if err := rows.Scan(&score.UserID, &score.TargetPath, &score.RulePath, &score.Score, &updatedAt); err != nil {
			return nil, err
		}
		parsed, err := parseTime(updatedAt)
		if err != nil {
			return nil, err
		}
		score.UpdatedAt = parsed
		scores = append(scores, score)
	}
	return scores, rows.Err()
}
