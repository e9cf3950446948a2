package daemon

import (
	"net/http"
	"strings"

	"podstudio/internal/api"
	"podstudio/internal/services"
)

func (s *apiServer) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.daemon.registry.List(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AssetList{Assets: api.FromAssets(assets)})
}

func (s *apiServer) handleImportAsset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "import_asset", "malformed multipart body", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "import_asset", "file part is required", err))
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	asset, err := s.daemon.registry.Import(r.Context(), userID(r), name, header.Filename, file, header.Size)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromAsset(asset))
}

func (s *apiServer) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	asset, err := s.daemon.registry.Get(r.Context(), userID(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromAsset(asset))
}

func (s *apiServer) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.daemon.registry.Delete(r.Context(), userID(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}
