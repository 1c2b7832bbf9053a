// Copyright (c) 2026 Maktaba. All rights reserved.

package home

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maktaba/maktaba/internal/platform/respond"
)

// Handler serves the public landing page endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the home handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the landing page router.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.page)
	router.Get("/search", handler.search)

	return router
}

func (handler *Handler) page(writer http.ResponseWriter, request *http.Request) {
	aggregate, err := handler.service.Page(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, aggregate)
}

func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	results, err := handler.service.Search(request.Context(), request.URL.Query().Get("q"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, results)
}
