package main

import (
	"context"
	"errors"
	"net"

	"ugcmigrate/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.NeedsAdmin():
			lines = append(lines, "hint: set UGCMIGRATE_ADMIN_TOKEN to a token whose hash is configured as admin_token_hash.")
		case apiErr.NotImported():
			lines = append(lines, "hint: the asset could not be fetched or stored; check server logs for the reason.")
		case apiErr.RejectedScores():
			lines = append(lines, "hint: the score file must be a .json object mapping user ids to integer scores.")
		case apiErr.ErrorCode == api.ErrorCodeNodeNotFound:
			lines = append(lines, "hint: list stored nodes with: ugcmigrate assets ls")
		case apiErr.Code == "resource_exhausted":
			lines = append(lines, "hint: retry shortly; score imports run one at a time.")
		case apiErr.FromOtherService():
			lines = append(lines, "hint: verify UGCMIGRATE_API_URL points to a ugcmigrate server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		if apiErr.RequestID != "" && (apiErr.Status >= 500 || apiErr.NotImported()) {
			lines = append(lines, "hint: the server logged this request as request_id="+apiErr.RequestID+".")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase UGCMIGRATE_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a ugcmigrate server is running at UGCMIGRATE_API_URL.",
			"hint: start local server manually with: ugcmigrate srv",
			"hint: you can increase UGCMIGRATE_HTTP_TIMEOUT for slow asset hosts.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
