// Copyright (c) 2026 Maktaba. All rights reserved.

package download

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maktaba/maktaba/internal/platform/middleware"
	requestutil "github.com/maktaba/maktaba/internal/platform/request"
	"github.com/maktaba/maktaba/internal/platform/respond"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// Handler serves the authenticated user's download history. The listing is
// always self-scoped, so there is no policy beyond authentication.
type Handler struct {
	repository Repository
}

// NewHandler constructs the download handler.
func NewHandler(repository Repository) *Handler {
	return &Handler{repository: repository}
}

// Routes returns the download history router.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.listMine)

	return router
}

func (handler *Handler) listMine(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	downloads, total, err := handler.repository.ListForUser(request.Context(), userID, page.Limit, page.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, downloads, pagination.NewMeta(page.Page, page.Limit, total))
}
