package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/imgrewrite"
	"ugcmigrate/internal/repository"
)

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	folder := strings.TrimSpace(r.URL.Query().Get("folder"))
	if folder == "" {
		folder = imgrewrite.StagingPath
	}
	folder, err := repository.CleanPath(folder)
	if err != nil {
		s.writeServiceError(w, r, badRequestCode(err, ErrCodeInvalidPath))
		return
	}

	node, err := s.repo.GetNode(r.Context(), folder)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if node == nil {
		// Nothing has been imported yet.
		s.writeJSON(w, http.StatusOK, []api.NodeResponse{})
		return
	}
	if !node.IsFolder() {
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("%w: %s", repository.ErrNotFolder, folder), ErrCodeNotFolder))
		return
	}

	children, err := s.repo.ListChildren(r.Context(), folder)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	resp := make([]api.NodeResponse, 0, len(children))
	for _, child := range children {
		resp = append(resp, api.NodeResponse{Node: child})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	nodePath, err := repository.CleanPath("/content/" + r.PathValue("path"))
	if err != nil {
		s.writeServiceError(w, r, badRequestCode(err, ErrCodeInvalidPath))
		return
	}

	content, err := s.repo.OpenContent(r.Context(), nodePath)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	defer content.Body.Close()

	mimeType := content.Node.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(content.Node.SizeBytes, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if content.Node.LastModified != nil {
		w.Header().Set("Last-Modified", content.Node.LastModified.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content.Body); err != nil {
		s.log().Warn("content stream interrupted", "path", nodePath, "error", err)
	}
}
