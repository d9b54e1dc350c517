package profile

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/response"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// Handler exposes profile read/update and user search.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type ProfileData struct {
	Profile *entity.View `json:"profile"`
}

type SearchData struct {
	Users      []entity.SearchResult `json:"users"`
	Pagination utilities.Pagination  `json:"pagination"`
}

// UpdateRequest is the body of PUT /api/user/profile.
type UpdateRequest struct {
	Username       *string `json:"username"`
	Bio            *string `json:"bio" validate:"omitempty,max=500"`
	Location       *string `json:"location" validate:"omitempty,max=100"`
	ProfilePicture *string `json:"profile_picture" validate:"omitempty,max=2048"`
	CoverPhoto     *string `json:"cover_photo" validate:"omitempty,max=2048"`
}

type UsernameRequest struct {
	Username string `json:"username"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Get(r.Context(), session.UserID(r.Context()))
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", ProfileData{Profile: v})
}

func (h *Handler) GetByUserID(w http.ResponseWriter, r *http.Request) {
	id, ok := utilities.PathID(r, "userId")
	if !ok {
		response.Fail(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	v, err := h.svc.GetByUserID(r.Context(), id)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", ProfileData{Profile: v})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid profile payload", "err", err)
		response.Validation(w, err)
		return
	}
	v, err := h.svc.Update(r.Context(), session.UserID(r.Context()), entity.Patch{
		Username:       req.Username,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
		CoverPicture:   req.CoverPhoto,
		Location:       req.Location,
	})
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "Profile updated successfully", ProfileData{Profile: v})
}

func (h *Handler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	var req UsernameRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		response.Validation(w, err)
		return
	}
	v, err := h.svc.UpdateUsername(r.Context(), session.UserID(r.Context()), req.Username)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "Username updated successfully", ProfileData{Profile: v})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	page := utilities.PageFromRequest(r, 10)
	users, pg, err := h.svc.Search(r.Context(), session.UserID(r.Context()), r.URL.Query().Get("query"), page)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", SearchData{Users: users, Pagination: pg})
}
