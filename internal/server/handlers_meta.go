package server

import (
	"net/http"

	"ugcmigrate/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.repo.Info(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.InfoResponse{
		DBPath:         s.dbPath,
		StorageBackend: s.repo.Backend(),
		SchemaVersion:  info.SchemaVersion,
		FolderCount:    info.FolderCount,
		FileCount:      info.FileCount,
		BlobCount:      info.BlobCount,
		BlobBytes:      info.BlobBytes,
		ScoreCount:     info.ScoreCount,
	}

	s.writeJSON(w, http.StatusOK, resp)
}
