// Copyright (c) 2026 Maktaba. All rights reserved.

package user

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maktaba/maktaba/internal/platform/middleware"
	requestutil "github.com/maktaba/maktaba/internal/platform/request"
	"github.com/maktaba/maktaba/internal/platform/respond"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// Handler implements the user management HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the user handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the user management router. All endpoints require
// authentication; the fine-grained decisions live in the policy.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Post("/", handler.create)
	router.Get("/{id}", handler.get)
	router.Put("/{id}", handler.update)
	router.Delete("/{id}", handler.remove)
	router.Post("/{id}/roles/{roleID}", handler.assignRole)
	router.Delete("/{id}/roles/{roleID}", handler.revokeRole)

	return router
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	filter := Filter{Query: request.URL.Query().Get("q")}

	users, total, err := handler.service.List(request.Context(), actorID, filter, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, pagination.NewMeta(page.Page, page.Limit, total))
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	u, err := handler.service.Get(request.Context(), actorID, targetID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, u)
}

type createRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	u, err := handler.service.Create(request.Context(), actorID, CreateInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, u)
}

type updateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsActive *bool   `json:"is_active"`
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	u, err := handler.service.Update(request.Context(), actorID, targetID, UpdateInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		IsActive: input.IsActive,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, u)
}

func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), actorID, targetID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) assignRole(writer http.ResponseWriter, request *http.Request) {
	handler.roleChange(writer, request, handler.service.AssignRole, "Role assigned")
}

func (handler *Handler) revokeRole(writer http.ResponseWriter, request *http.Request) {
	handler.roleChange(writer, request, handler.service.RevokeRole, "Role revoked")
}

func (handler *Handler) roleChange(
	writer http.ResponseWriter,
	request *http.Request,
	apply func(ctx context.Context, actorID, targetID, roleID int64) error,
	message string,
) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	roleID, err := requestutil.IntParam(request, "roleID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := apply(request.Context(), actorID, targetID, roleID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, message)
}
