// Copyright (c) 2026 Maktaba. All rights reserved.

package author

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/middleware"
	requestutil "github.com/maktaba/maktaba/internal/platform/request"
	"github.com/maktaba/maktaba/internal/platform/respond"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// Handler implements the author HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the author handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the author router. The catalog is public; the request flow
// requires authentication.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/{id}", handler.get)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)

		protected.Post("/requests", handler.submitRequest)
		protected.Get("/requests", handler.listRequests)
		protected.Put("/requests/{id}", handler.updateRequest)
		protected.Post("/requests/{id}/approve", handler.approveRequest)
		protected.Post("/requests/{id}/reject", handler.rejectRequest)

		protected.Put("/{id}", handler.update)
		protected.Delete("/{id}", handler.remove)
	})

	return router
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)
	authors, total, err := handler.service.List(request.Context(), page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, authors, pagination.NewMeta(page.Page, page.Limit, total))
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	a, err := handler.service.Get(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, a)
}

type authorRequest struct {
	AuthorID  *int64 `json:"author_id"`
	Name      string `json:"name"`
	Biography string `json:"biography"`
	Birthdate string `json:"birthdate"`
}

// toInput parses the wire form; birthdate arrives as YYYY-MM-DD.
func (body authorRequest) toInput() (Input, error) {
	input := Input{
		AuthorID:  body.AuthorID,
		Name:      body.Name,
		Biography: body.Biography,
	}
	if body.Birthdate != "" {
		parsed, err := time.Parse("2006-01-02", body.Birthdate)
		if err != nil {
			return Input{}, apperr.ValidationError("Validation failed", apperr.FieldError{
				Field: "birthdate", Message: "Must be a date in YYYY-MM-DD form",
			})
		}
		input.Birthdate = &parsed
	}
	return input, nil
}

func (handler *Handler) submitRequest(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body authorRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input, err := body.toInput()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	staged, err := handler.service.SubmitRequest(request.Context(), actorID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, staged)
}

func (handler *Handler) listRequests(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	requests, total, err := handler.service.ListRequests(request.Context(), actorID, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, requests, pagination.NewMeta(page.Page, page.Limit, total))
}

func (handler *Handler) updateRequest(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body authorRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input, err := body.toInput()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	staged, err := handler.service.UpdateRequest(request.Context(), actorID, id, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, staged)
}

func (handler *Handler) approveRequest(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	a, err := handler.service.Approve(request.Context(), actorID, id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, a)
}

func (handler *Handler) rejectRequest(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Reject(request.Context(), actorID, id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body authorRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input, err := body.toInput()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	a, err := handler.service.Update(request.Context(), actorID, id, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, a)
}

func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), actorID, id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
