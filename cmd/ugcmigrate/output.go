package main

import (
	"fmt"
	"os"
	"time"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeNodeList(nodes []api.NodeResponse) error {
	for _, node := range nodes {
		if err := writePlain("%s\n", formatNodeLine(node)); err != nil {
			return err
		}
	}
	return nil
}

func formatNodeLine(node api.NodeResponse) string {
	if node.IsFolder() {
		return fmt.Sprintf("%s/ [%s]", node.Path, node.Type)
	}
	modified := formatTime(node.CreatedAt)
	if node.LastModified != nil {
		modified = formatTime(*node.LastModified)
	}
	return fmt.Sprintf("%s [%s] %d bytes %s", node.Path, node.MimeType, node.SizeBytes, modified)
}

func writeScoreList(scores []api.ScoreResponse) error {
	for _, score := range scores {
		if err := writePlain("%s\t%d\t%s\t%s\n", score.UserID, score.Score, score.TargetPath, score.RulePath); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
