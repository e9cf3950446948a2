package daemon

import (
	"net/http"
	"strings"

	"podstudio/internal/api"
	"podstudio/internal/segments"
	"podstudio/internal/services"
)

// maxUploadMemory bounds the in-memory buffering of multipart uploads; larger
// parts spill to temp files.
const maxUploadMemory = 32 << 20

func (s *apiServer) handleListSegments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	timeline, err := s.daemon.segments.List(r.Context(), userID(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SegmentList{Segments: api.FromSegments(timeline)})
}

// handleCreateSegment accepts either a multipart audio upload (recorded
// segment) or a JSON asset reference (reusable segment).
func (s *apiServer) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		s.createSegmentFromUpload(w, r, id)
		return
	}

	var req api.AttachAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	segment, err := s.daemon.segments.CreateFromAsset(r.Context(), userID(r), id, req.AssetID, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromSegment(segment))
}

func (s *apiServer) createSegmentFromUpload(w http.ResponseWriter, r *http.Request, episodeID int64) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "upload", "malformed multipart body", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "upload", "file part is required", err))
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(header.Filename, pathExt(header.Filename))
	}
	segment, err := s.daemon.segments.CreateFromUpload(r.Context(), userID(r), episodeID, name, header.Filename, file, header.Size)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromSegment(segment))
}

func (s *apiServer) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	segment, err := s.daemon.segments.Get(r.Context(), userID(r), episodeID, segmentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSegment(segment))
}

func (s *apiServer) handleRenameSegment(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req api.RenameSegmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	segment, err := s.daemon.segments.Rename(r.Context(), userID(r), episodeID, segmentID, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSegment(segment))
}

func (s *apiServer) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.daemon.segments.Delete(r.Context(), userID(r), episodeID, segmentID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *apiServer) handleReorderSegments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req api.ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	timeline, err := s.daemon.segments.Reorder(r.Context(), userID(r), id, req.SegmentIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SegmentList{Segments: api.FromSegments(timeline)})
}

// handleSegmentAudio streams the segment's current audio with range support.
func (s *apiServer) handleSegmentAudio(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	path, err := s.daemon.segments.StreamSource(r.Context(), userID(r), episodeID, segmentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleTrim(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req api.TrimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	segment, err := s.daemon.segments.Trim(r.Context(), userID(r), episodeID, segmentID,
		segments.TrimParams{Start: req.StartSec, End: req.EndSec})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSegment(segment))
}

func (s *apiServer) handleRemoveSilence(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req api.SilenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	segment, err := s.daemon.segments.RemoveSilence(r.Context(), userID(r), episodeID, segmentID,
		segments.SilenceParams{MinDurationSec: req.MinDurationSec, NoiseDB: req.NoiseDB})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSegment(segment))
}

func (s *apiServer) handleSuppressNoise(w http.ResponseWriter, r *http.Request) {
	episodeID, segmentID, err := segmentPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req api.DenoiseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	segment, err := s.daemon.segments.SuppressNoise(r.Context(), userID(r), episodeID, segmentID,
		segments.NoiseParams{NoiseFloorDB: req.NoiseFloorDB})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSegment(segment))
}

func segmentPath(r *http.Request) (episodeID, segmentID int64, err error) {
	episodeID, err = pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	segmentID, err = pathID(r, "segmentID")
	if err != nil {
		return 0, 0, err
	}
	return episodeID, segmentID, nil
}

func pathExt(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}
