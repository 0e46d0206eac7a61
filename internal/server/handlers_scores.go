package server

import (
	"errors"
	"net/http"
	"strings"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/scoring"
)

func (s *Server) handleScoreImport(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.importLimiter, "score import", func() {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
			s.writeServiceError(w, r, classifyMultipartError(err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		targetPath := strings.TrimSpace(r.FormValue("path"))
		if targetPath == "" {
			s.writeServiceError(w, r, badRequestCode(scoring.ErrMissingTargetPath, ErrCodeMissingRequired))
			return
		}
		rulePath := strings.TrimSpace(r.FormValue("scoringRule"))
		if rulePath == "" {
			s.writeServiceError(w, r, badRequestCode(scoring.ErrMissingRulePath, ErrCodeMissingRequired))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeServiceError(w, r, badRequestCode(errors.New("file is required"), ErrCodeMissingRequired))
			return
		}
		defer file.Close()
		if !strings.HasSuffix(header.Filename, ".json") {
			s.writeServiceError(w, r, badRequestCode(errors.New("invalid file: expected a .json upload"), ErrCodeInvalidFile))
			return
		}

		result, err := s.scores.Import(r.Context(), file, targetPath, rulePath)
		if err != nil {
			s.writeServiceError(w, r, classifyScoreImportError(err))
			return
		}

		s.writeJSON(w, http.StatusOK, api.ScoreImportResponse{
			Applied:    result.Applied,
			TargetPath: result.TargetPath,
			RulePath:   result.RulePath,
		})
	})
}

func classifyScoreImportError(err error) error {
	switch {
	case errors.Is(err, scoring.ErrMissingTargetPath), errors.Is(err, scoring.ErrMissingRulePath):
		return badRequestCode(err, ErrCodeMissingRequired)
	case errors.Is(err, scoring.ErrMalformedInput):
		return badRequestCode(err, ErrCodeMalformedScores)
	default:
		return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeImportFailed, err)
	}
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	scores, err := s.repo.ListScores(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := make([]api.ScoreResponse, 0, len(scores))
	for _, score := range scores {
		resp = append(resp, api.ScoreResponse{
			UserID:     score.UserID,
			TargetPath: score.TargetPath,
			RulePath:   score.RulePath,
			Score:      score.Score,
			UpdatedAt:  score.UpdatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}
