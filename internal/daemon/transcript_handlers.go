package daemon

import (
	"net/http"
	"strconv"
	"strings"

	"podstudio/internal/api"
	"podstudio/internal/services"
	"podstudio/internal/transcribe"
)

func (s *apiServer) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	track, err := s.daemon.segments.Transcript(r.Context(), userID(r), episodeID, segmentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTrack(track))
}

func (s *apiServer) handleGenerateTranscript(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req api.GenerateTranscriptRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}
	track, err := s.daemon.segments.GenerateTranscript(r.Context(), userID(r), episodeID, segmentID,
		transcribe.Options{Language: req.Language, Prompt: req.Prompt})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromTrack(track))
}

func (s *apiServer) handleOverwriteTranscript(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req api.OverwriteTranscriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	track, err := s.daemon.segments.OverwriteTranscript(r.Context(), userID(r), episodeID, segmentID, req.SRT)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTrack(track))
}

// handleDeleteTranscript removes the whole transcript, or a single entry when
// ?entryIndex= names one. Deleting an entry also cuts the matching audio
// range out of the segment.
func (s *apiServer) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("entryIndex"))
	if raw == "" {
		if err := s.daemon.segments.DeleteTranscript(r.Context(), userID(r), episodeID, segmentID); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusNoContent, nil)
		return
	}

	index, parseErr := strconv.Atoi(raw)
	if parseErr != nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "delete_entry", "entryIndex must be an integer", parseErr))
		return
	}
	segment, err := s.daemon.segments.DeleteTranscriptEntry(r.Context(), userID(r), episodeID, segmentID, index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSegment(segment))
}
