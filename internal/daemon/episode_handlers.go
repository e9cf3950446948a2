package daemon

import (
	"net/http"
	"strings"

	"podstudio/internal/api"
	"podstudio/internal/fileutil"
	"podstudio/internal/services"
	"podstudio/internal/store"
)

func (s *apiServer) handleCreateEpisode(w http.ResponseWriter, r *http.Request) {
	var req api.CreateEpisodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "create_episode", "title is required", nil))
		return
	}
	episode, err := s.daemon.store.CreateEpisode(r.Context(), userID(r), req.Title)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromEpisode(episode))
}

func (s *apiServer) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.daemon.store.ListEpisodes(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EpisodeList{Episodes: api.FromEpisodes(episodes)})
}

func (s *apiServer) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := s.ownedEpisode(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromEpisode(episode))
}

func (s *apiServer) handleDeleteEpisode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.daemon.segments.DeleteEpisode(r.Context(), userID(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *apiServer) handleRender(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.daemon.assembler.Render(r.Context(), userID(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RenderResult{
		Episode:         api.FromEpisode(result.Episode),
		SkippedSegments: result.Skipped,
	})
}

func (s *apiServer) handleEpisodeAudio(w http.ResponseWriter, r *http.Request) {
	episode, err := s.ownedEpisode(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !episode.HasFinalAudio() {
		s.writeError(w, services.Wrap(services.ErrNotFound, "api", "episode_audio", "episode has not been rendered", nil))
		return
	}
	path, err := fileutil.EnsureWithin(s.daemon.cfg.EpisodeDir(episode.ID), episode.FinalAudioPath)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if episode.FinalAudioMIME != "" {
		w.Header().Set("Content-Type", episode.FinalAudioMIME)
	}
	http.ServeFile(w, r, path)
}

// ownedEpisode loads the {id} episode and hides episodes the caller does not
// own behind a not-found.
func (s *apiServer) ownedEpisode(r *http.Request) (*store.Episode, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	episode, err := s.daemon.store.GetEpisode(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if episode == nil || episode.OwnerID != userID(r) {
		return nil, services.Wrap(services.ErrNotFound, "api", "episode", "episode not found", nil)
	}
	return episode, nil
}
