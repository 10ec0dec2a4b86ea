package team

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/arityo/merchant-bridge/internal/identity"
	"github.com/arityo/merchant-bridge/internal/transport"
	"github.com/arityo/merchant-bridge/pkg/logger"
)

type ServiceAPI interface {
	GetMember(id string) (*MemberView, error)
	ListMembers(merchantID string) ([]*MemberView, error)
	ReassignLevel(memberID, newLevelID string) (*MemberView, error)
	TogglePermission(memberID, key string, value bool) (*MemberView, error)
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

// ListMembers returns the directory for the caller's merchant. The merchant
// scope comes from the session user's metadata, not from the request.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	merchantID := user.MetaString(identity.MetaMerchantID)
	if merchantID == "" {
		h.WriteError(w, http.StatusBadRequest, "session has no linked merchant")
		return
	}

	members, err := h.Service.ListMembers(merchantID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.Service.GetMember(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) ReassignLevel(w http.ResponseWriter, r *http.Request) {
	var dto ReassignLevelDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := h.Service.ReassignLevel(chi.URLParam(r, "id"), dto.LevelID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) TogglePermission(w http.ResponseWriter, r *http.Request) {
	var dto TogglePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := h.Service.TogglePermission(chi.URLParam(r, "id"), dto.Key, dto.Value)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, member)
}
