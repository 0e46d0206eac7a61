package server

import (
	"fmt"
	"net/http"

	"ugcmigrate/internal/api"
)

func (s *Server) handleAdminGCBlobs(w http.ResponseWriter, r *http.Request) {
	apply, err := queryBool(r, "apply")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	batchSize, err := queryIntDefault(r, "batch_size", s.gcBatchSize)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if apply && r.Header.Get("X-Confirm") != "true" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("apply requires X-Confirm: true header"), ErrCodeMissingRequired))
		return
	}

	result, err := s.repo.GCBlobs(r.Context(), batchSize, apply)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.BlobGCResponse{
		CandidateCount: result.CandidateCount,
		DeletedCount:   result.DeletedCount,
		FailedCount:    result.FailedCount,
		ReclaimedBytes: result.ReclaimedBytes,
		DryRun:         result.DryRun,
	}
	s.writeJSON(w, http.StatusOK, resp)
}
