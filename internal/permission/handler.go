package permission

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/arityo/merchant-bridge/internal/transport"
	"github.com/arityo/merchant-bridge/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateLevel(dto CreateLevelDTO) (*Level, error)
	GetLevel(id string) (*Level, error)
	ListLevels() ([]*Level, error)
	UpdateLevel(id string, dto UpdateLevelDTO) (*Level, error)
	DeleteLevel(id string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreateLevel(w http.ResponseWriter, r *http.Request) {
	var dto CreateLevelDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	level, err := h.Service.CreateLevel(dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, level.ToView())
}

func (h *Handler) ListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.Service.ListLevels()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	views := make([]LevelView, 0, len(levels))
	for _, level := range levels {
		views = append(views, level.ToView())
	}
	h.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) GetLevel(w http.ResponseWriter, r *http.Request) {
	level, err := h.Service.GetLevel(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, level.ToView())
}

func (h *Handler) UpdateLevel(w http.ResponseWriter, r *http.Request) {
	var dto UpdateLevelDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	level, err := h.Service.UpdateLevel(chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, level.ToView())
}

func (h *Handler) DeleteLevel(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteLevel(chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
