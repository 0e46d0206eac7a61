package server

import (
	"errors"
	"net/http"
	"strings"

	"ugcmigrate/internal/api"
)

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var req api.RewriteRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	s.withLimiter(w, r, s.rewriteLimiter, "rewrite", func() {
		report := s.rewriter.RewriteWithReport(r.Context(), req.Text, req.Include)

		resp := api.RewriteResponse{
			Text:         report.Text,
			Replacements: make([]api.Replacement, 0, len(report.Replacements)),
			Skipped:      report.Skipped,
		}
		for _, replacement := range report.Replacements {
			resp.Replacements = append(resp.Replacements, api.Replacement{URL: replacement.URL, Path: replacement.Path})
		}
		s.writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) handleImportAsset(w http.ResponseWriter, r *http.Request) {
	var req api.AssetImportRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		s.writeServiceError(w, r, badRequestCode(errors.New("url is required"), ErrCodeMissingRequired))
		return
	}

	s.withLimiter(w, r, s.rewriteLimiter, "asset import", func() {
		nodePath, ok := s.importer.ImportAsset(r.Context(), url)
		if !ok {
			s.writeServiceError(w, r, unprocessable(errors.New("asset not imported"), ErrCodeAssetNotImported))
			return
		}
		s.writeJSON(w, http.StatusCreated, api.AssetImportResponse{Path: nodePath})
	})
}
