package server

import (
	"net/http"

	"ugcmigrate/internal/api"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Image rewriting and asset import.
	mux.HandleFunc("POST /v1/rewrite", s.handleRewrite)
	mux.HandleFunc("POST /v1/assets/import", s.handleImportAsset)
	mux.HandleFunc("GET /v1/assets", s.handleListAssets)

	// Stored content.
	mux.HandleFunc("GET /content/{path...}", s.handleContent)

	// Scores.
	mux.Handle("POST "+api.ScoreImportPath, s.withAdmin(http.HandlerFunc(s.handleScoreImport)))
	mux.HandleFunc("GET /v1/scores", s.handleListScores)

	// Admin.
	mux.Handle("POST /v1/admin/gc", s.withAdmin(http.HandlerFunc(s.handleAdminGCBlobs)))

	return mux
}
