package graph

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/graph/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/response"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// Handler exposes the follow and connection endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type FollowList struct {
	Users []entity.FollowUser `json:"users"`
	Count int                 `json:"count"`
}

type RequestData struct {
	Connection *entity.ConnectionRequest `json:"connection"`
}

type ConnectionList struct {
	Connections []entity.ConnectionUser `json:"connections"`
	Count       int                     `json:"count"`
}

// SendRequest is the body of POST /api/connections/send-request.
type SendRequest struct {
	ToUserID int64 `json:"toUserId"`
}

func (h *Handler) userParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := utilities.PathID(r, "userId")
	if !ok {
		response.Fail(w, http.StatusBadRequest, "Invalid user id")
	}
	return id, ok
}

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	target, ok := h.userParam(w, r)
	if !ok {
		return
	}
	me := session.UserID(r.Context())
	if err := h.svc.Follow(r.Context(), me, target); err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	h.logger.Infow("user followed", "user_id", me, "target_id", target)
	response.Message(w, http.StatusCreated, "User followed successfully")
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	target, ok := h.userParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Unfollow(r.Context(), session.UserID(r.Context()), target); err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.Message(w, http.StatusOK, "User unfollowed successfully")
}

func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Following(r.Context(), session.UserID(r.Context()))
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", FollowList{Users: users, Count: len(users)})
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Followers(r.Context(), session.UserID(r.Context()))
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", FollowList{Users: users, Count: len(users)})
}

func (h *Handler) FollowStatus(w http.ResponseWriter, r *http.Request) {
	other, ok := h.userParam(w, r)
	if !ok {
		return
	}
	st, err := h.svc.FollowStatus(r.Context(), session.UserID(r.Context()), other)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", st)
}

func (h *Handler) SendConnection(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid connection payload", "err", err)
		response.Validation(w, err)
		return
	}
	me := session.UserID(r.Context())
	c, err := h.svc.SendRequest(r.Context(), me, req.ToUserID)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	h.logger.Infow("connection requested", "user_id", me, "target_id", req.ToUserID, "connection_id", c.ID)
	response.OK(w, http.StatusCreated, "Connection request sent successfully", RequestData{Connection: c})
}

func (h *Handler) AcceptConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := utilities.PathID(r, "id")
	if !ok {
		response.Fail(w, http.StatusBadRequest, "Invalid connection id")
		return
	}
	c, err := h.svc.AcceptRequest(r.Context(), session.UserID(r.Context()), id)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "Connection request accepted successfully", RequestData{Connection: c})
}

func (h *Handler) RejectConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := utilities.PathID(r, "id")
	if !ok {
		response.Fail(w, http.StatusBadRequest, "Invalid connection id")
		return
	}
	if err := h.svc.RejectRequest(r.Context(), session.UserID(r.Context()), id); err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.Message(w, http.StatusOK, "Connection request removed successfully")
}

func (h *Handler) list(view entity.ListView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := h.svc.List(r.Context(), session.UserID(r.Context()), view)
		if err != nil {
			response.Error(w, h.logger, r, err)
			return
		}
		response.OK(w, http.StatusOK, "", ConnectionList{Connections: out, Count: len(out)})
	}
}

func (h *Handler) Pending() http.HandlerFunc  { return h.list(entity.Incoming) }
func (h *Handler) Sent() http.HandlerFunc     { return h.list(entity.Outgoing) }
func (h *Handler) Accepted() http.HandlerFunc { return h.list(entity.Friends) }

func (h *Handler) ConnectionStatus(w http.ResponseWriter, r *http.Request) {
	other, ok := h.userParam(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Status(r.Context(), session.UserID(r.Context()), other)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", st)
}
