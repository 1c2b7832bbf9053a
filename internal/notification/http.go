// Copyright (c) 2026 Maktaba. All rights reserved.

package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maktaba/maktaba/internal/platform/middleware"
	requestutil "github.com/maktaba/maktaba/internal/platform/request"
	"github.com/maktaba/maktaba/internal/platform/respond"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// Handler implements the notification HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the notification handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the notification router.
//
// # Endpoints
//   - GET    /               : The caller's inbox (?unread=true filters).
//   - GET    /unread-count   : Badge counter.
//   - POST   /{id}/read      : Mark one read.
//   - POST   /read-all       : Mark everything read.
//   - DELETE /{id}           : Remove one.
//   - DELETE /               : Clear the inbox.
//   - POST   /send           : Staff: queue a message for one user.
//   - POST   /broadcast      : Staff: queue a message for everyone.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Get("/unread-count", handler.unreadCount)
	router.Post("/{id}/read", handler.markRead)
	router.Post("/read-all", handler.markAllRead)
	router.Delete("/{id}", handler.remove)
	router.Delete("/", handler.removeAll)
	router.Post("/send", handler.send)
	router.Post("/broadcast", handler.broadcast)

	return router
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	unreadOnly := request.URL.Query().Get("unread") == "true"

	notifications, total, err := handler.service.List(request.Context(), userID, unreadOnly, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, notifications, pagination.NewMeta(page.Page, page.Limit, total))
}

func (handler *Handler) unreadCount(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.service.UnreadCount(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int{"unread": count})
}

func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.MarkRead(request.Context(), userID, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Notification marked as read")
}

func (handler *Handler) markAllRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.MarkAllRead(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "All notifications marked as read")
}

func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), userID, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) removeAll(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteAll(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

type sendRequest struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

func (handler *Handler) send(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input sendRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.SendToUser(request.Context(), actorID, input.UserID, input.Message); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, "Notification queued")
}

type broadcastRequest struct {
	Message string `json:"message"`
}

func (handler *Handler) broadcast(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input broadcastRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	recipients, err := handler.service.Broadcast(request.Context(), actorID, input.Message)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusAccepted, map[string]any{
		"message":    "Broadcast queued",
		"recipients": recipients,
	})
}
