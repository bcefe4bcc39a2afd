// Package httpapi exposes the photo library over HTTP JSON: the index, the
// paged month and stream views, sibling and range resolution, and the
// mutation endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homebase-id/photo-library-backend/internal/domain/library"
	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
	"github.com/homebase-id/photo-library-backend/internal/domain/timeline"
)

// Server routes the photo library API.
type Server struct {
	timeline *timeline.Service
	library  *library.Service
	drive    photo.Drive
	mux      *http.ServeMux
}

// NewServer creates the API server for one drive.
func NewServer(tl *timeline.Service, lib *library.Service, drive photo.Drive) *Server {
	s := &Server{
		timeline: tl,
		library:  lib,
		drive:    drive,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler with request-id and logging middleware
// applied.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withRequestID(s.mux).ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/v1/library", s.handleLibrary)
	s.mux.HandleFunc("GET /api/v1/photos/month", s.handleMonth)
	s.mux.HandleFunc("POST /api/v1/photos/month/next", s.handleMonthNext)
	s.mux.HandleFunc("GET /api/v1/photos/stream", s.handleStream)
	s.mux.HandleFunc("POST /api/v1/photos/stream/next", s.handleStreamNext)
	s.mux.HandleFunc("POST /api/v1/photos/stream/jump", s.handleStreamJump)
	s.mux.HandleFunc("GET /api/v1/photos/range", s.handleRange)
	s.mux.HandleFunc("GET /api/v1/photos/{fileId}/siblings", s.handleSiblings)
	s.mux.HandleFunc("GET /api/v1/cursor", s.handleCursor)

	s.mux.HandleFunc("POST /api/v1/photos/{fileId}/archive", s.mutateOne(func(r *http.Request, id string) error {
		return s.timeline.Archive(r.Context(), s.drive, id)
	}))
	s.mux.HandleFunc("POST /api/v1/photos/{fileId}/remove", s.mutateOne(func(r *http.Request, id string) error {
		return s.timeline.Remove(r.Context(), s.drive, id)
	}))
	s.mux.HandleFunc("POST /api/v1/photos/{fileId}/restore", s.mutateOne(func(r *http.Request, id string) error {
		return s.timeline.Restore(r.Context(), s.drive, id)
	}))
	s.mux.HandleFunc("POST /api/v1/photos/{fileId}/tags/add", s.mutateTags(s.timeline.AddTags))
	s.mux.HandleFunc("POST /api/v1/photos/{fileId}/tags/remove", s.mutateTags(s.timeline.RemoveTags))

	s.mux.HandleFunc("POST /api/v1/photos/archive", s.mutateBulk(s.timeline.ArchiveAll))
	s.mux.HandleFunc("POST /api/v1/photos/remove", s.mutateBulk(s.timeline.RemoveAll))
	s.mux.HandleFunc("POST /api/v1/photos/restore", s.mutateBulk(s.timeline.RestoreAll))
	s.mux.HandleFunc("POST /api/v1/photos/tags/add", s.mutateBulkTags(s.timeline.AddTagsAll))
	s.mux.HandleFunc("POST /api/v1/photos/tags/remove", s.mutateBulkTags(s.timeline.RemoveTagsAll))
}

// filterFromQuery reads the view selection off the request: ?view= picks a
// typed view, ?album= an album tag.
func filterFromQuery(r *http.Request) photo.AlbumFilter {
	if album := r.URL.Query().Get("album"); album != "" {
		return photo.AlbumFilter{AlbumTag: album}
	}
	return photo.AlbumFilter{Kind: photo.ViewKind(r.URL.Query().Get("view"))}
}

type libraryResponse struct {
	*library.Index
	PhotoWeight float64 `json:"photoWeight"`
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	ix, err := s.library.Get(r.Context(), s.drive, filterFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, libraryResponse{Index: ix, PhotoWeight: ix.PhotoWeight()})
}

type pageResponse struct {
	Photos  []photo.Record `json:"photos"`
	HasMore bool           `json:"hasMore"`
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthFromQuery(w, r)
	if !ok {
		return
	}
	records, hasMore, err := s.timeline.MonthPhotos(r.Context(), s.drive, filterFromQuery(r), year, month)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pageResponse{Photos: emptyIfNil(records), HasMore: hasMore})
}

func (s *Server) handleMonthNext(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthFromQuery(w, r)
	if !ok {
		return
	}
	records, hasMore, err := s.timeline.FetchNextMonthPage(r.Context(), s.drive, filterFromQuery(r), year, month)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pageResponse{Photos: emptyIfNil(records), HasMore: hasMore})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	records, hasMore, err := s.timeline.StreamPhotos(r.Context(), s.drive, filterFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pageResponse{Photos: emptyIfNil(records), HasMore: hasMore})
}

func (s *Server) handleStreamNext(w http.ResponseWriter, r *http.Request) {
	records, hasMore, err := s.timeline.FetchNextStreamPage(r.Context(), s.drive, filterFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pageResponse{Photos: emptyIfNil(records), HasMore: hasMore})
}

func (s *Server) handleStreamJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TimestampMs int64 `json:"timestampMs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TimestampMs <= 0 {
		respondBadRequest(w, "timestampMs required")
		return
	}
	records, hasMore, err := s.timeline.JumpStream(r.Context(), s.drive, filterFromQuery(r), req.TimestampMs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pageResponse{Photos: emptyIfNil(records), HasMore: hasMore})
}

type siblingsResponse struct {
	Current  *photo.Record `json:"current"`
	Previous *photo.Record `json:"previous"`
	Next     *photo.Record `json:"next"`
}

func (s *Server) handleSiblings(w http.ResponseWriter, r *http.Request) {
	sib, err := s.timeline.Siblings(r.Context(), s.drive, filterFromQuery(r), r.PathValue("fileId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, siblingsResponse{Current: sib.Current, Previous: sib.Previous, Next: sib.Next})
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		respondBadRequest(w, "from and to required")
		return
	}
	ids, err := s.timeline.Range(r.Context(), s.drive, filterFromQuery(r), from, to)
	if err != nil {
		respondError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"fileIds": ids})
}

// handleCursor synthesizes a scroll cursor for an arbitrary timestamp.
func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.ParseInt(r.URL.Query().Get("timestampMs"), 10, 64)
	if err != nil || ms <= 0 {
		respondBadRequest(w, "timestampMs required")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"cursor": photo.BuildCursor(ms)})
}

func (s *Server) mutateOne(op func(r *http.Request, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(r, r.PathValue("fileId")); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) mutateTags(op func(ctx context.Context, drive photo.Drive, fileID string, tags []string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tags []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Tags) == 0 {
			respondBadRequest(w, "tags required")
			return
		}
		if err := op(r.Context(), s.drive, r.PathValue("fileId"), req.Tags); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) mutateBulk(op func(ctx context.Context, drive photo.Drive, fileIDs []string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FileIDs []string `json:"fileIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.FileIDs) == 0 {
			respondBadRequest(w, "fileIds required")
			return
		}
		respondBulk(w, op(r.Context(), s.drive, req.FileIDs))
	}
}

func (s *Server) mutateBulkTags(op func(ctx context.Context, drive photo.Drive, fileIDs []string, tags []string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FileIDs []string `json:"fileIds"`
			Tags    []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.FileIDs) == 0 || len(req.Tags) == 0 {
			respondBadRequest(w, "fileIds and tags required")
			return
		}
		respondBulk(w, op(r.Context(), s.drive, req.FileIDs, req.Tags))
	}
}

type bulkResponse struct {
	Failures map[string]string `json:"failures"`
}

// respondBulk reports partial failure without failing the whole request:
// successful items already took effect.
func respondBulk(w http.ResponseWriter, err error) {
	if err == nil {
		respondJSON(w, http.StatusOK, bulkResponse{Failures: map[string]string{}})
		return
	}
	var bulk *photo.BulkError
	if errors.As(err, &bulk) {
		failures := make(map[string]string, len(bulk.Failures))
		for id, itemErr := range bulk.Failures {
			failures[id] = itemErr.Error()
		}
		respondJSON(w, http.StatusOK, bulkResponse{Failures: failures})
		return
	}
	respondError(w, err)
}

func yearMonthFromQuery(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, yerr := strconv.Atoi(r.URL.Query().Get("year"))
	month, merr := strconv.Atoi(r.URL.Query().Get("month"))
	if yerr != nil || merr != nil || month < 1 || month > 12 {
		respondBadRequest(w, "year and month required")
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondBadRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, photo.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, photo.ErrTemporaryFailure):
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": "record store unavailable"})
	default:
		log.Error().Err(err).Msg("Request failed")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func emptyIfNil(records []photo.Record) []photo.Record {
	if records == nil {
		return []photo.Record{}
	}
	return records
}
