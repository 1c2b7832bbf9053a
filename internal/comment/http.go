// Copyright (c) 2026 Maktaba. All rights reserved.

package comment

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maktaba/maktaba/internal/platform/middleware"
	requestutil "github.com/maktaba/maktaba/internal/platform/request"
	"github.com/maktaba/maktaba/internal/platform/respond"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// Handler implements the comment HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the comment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the comment router, mounted under a book path so creation
// and listing carry the book id.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/books/{bookID}", handler.listForBook)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)

		protected.Post("/books/{bookID}", handler.create)
		protected.Put("/{id}", handler.update)
		protected.Delete("/{id}", handler.remove)
	})

	return router
}

func (handler *Handler) listForBook(writer http.ResponseWriter, request *http.Request) {
	bookID, err := requestutil.IntParam(request, "bookID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	comments, total, err := handler.service.ListForBook(request.Context(), bookID, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, comments, pagination.NewMeta(page.Page, page.Limit, total))
}

type commentRequest struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	bookID, err := requestutil.IntParam(request, "bookID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body commentRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	c, err := handler.service.Create(request.Context(), actorID, bookID, Input{
		Content: body.Content,
		Rating:  body.Rating,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, c)
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

	var body commentRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	c, err := handler.service.Update(request.Context(), actorID, id, Input{
		Content: body.Content,
		Rating:  body.Rating,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, c)
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
