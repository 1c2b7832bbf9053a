// Copyright (c) 2026 Maktaba. All rights reserved.

package book

import (
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maktaba/maktaba/internal/platform/middleware"
	requestutil "github.com/maktaba/maktaba/internal/platform/request"
	"github.com/maktaba/maktaba/internal/platform/respond"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/pkg/pagination"
)

// maxUploadBytes caps the in-memory portion of a multipart book upload.
const maxUploadBytes = 32 << 20

// Handler implements the book HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the book handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the book router. Catalog reads and downloads work without a
// session; everything that writes requires one.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/{id}", handler.get)
	router.Post("/{id}/download", handler.download)
	router.Get("/{id}/file", handler.file)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)

		protected.Post("/", handler.create)
		protected.Put("/{id}", handler.update)
		protected.Delete("/{id}", handler.remove)

		protected.Get("/pending", handler.pending)
		protected.Post("/{id}/approve", handler.approve)
		protected.Post("/{id}/reject", handler.reject)
	})

	return router
}

// actorID returns the authenticated user id, or zero for anonymous requests.
func actorID(request *http.Request) int64 {
	if claims := requestutil.Claims(request); claims != nil {
		return claims.UserID
	}
	return 0
}

// viewerKey identifies a viewing session for the view dedup marker.
func viewerKey(request *http.Request) string {
	if claims := requestutil.Claims(request); claims != nil {
		return "u" + strconv.FormatInt(claims.UserID, 10)
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		host = request.RemoteAddr
	}
	return "ip" + host
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	f := Filter{Query: query.Get("q")}
	f.AuthorID, _ = strconv.ParseInt(query.Get("author_id"), 10, 64)
	f.CategoryID, _ = strconv.ParseInt(query.Get("category_id"), 10, 64)
	f.SeriesID, _ = strconv.ParseInt(query.Get("series_id"), 10, 64)

	page := pagination.FromRequest(request)
	books, total, err := handler.service.List(request.Context(), actorID(request), f, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, books, pagination.NewMeta(page.Page, page.Limit, total))
}

func (handler *Handler) pending(writer http.ResponseWriter, request *http.Request) {
	moderatorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	books, total, err := handler.service.Pending(request.Context(), moderatorID, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, books, pagination.NewMeta(page.Page, page.Limit, total))
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.service.Get(request.Context(), actorID(request), viewerKey(request), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, b)
}

// bookForm reads the multipart book form shared by create and update.
// The file part is optional.
func bookForm(request *http.Request) (CreateInput, error) {
	if err := request.ParseMultipartForm(maxUploadBytes); err != nil {
		return CreateInput{}, validate.ErrInvalidJSON
	}

	input := CreateInput{
		Title:       request.FormValue("title"),
		Description: request.FormValue("description"),
		AuthorID:    optionalID(request.FormValue("author_id")),
		CategoryID:  optionalID(request.FormValue("category_id")),
		SeriesID:    optionalID(request.FormValue("series_id")),
	}

	file, header, err := request.FormFile("file")
	if err == nil {
		input.File = file
		input.Filename = header.Filename
	}

	return input, nil
}

func optionalID(raw string) *int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	ownerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	input, err := bookForm(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.service.Create(request.Context(), ownerID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, b)
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	editorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	form, err := bookForm(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.service.Update(request.Context(), editorID, id, UpdateInput{
		Title:       form.Title,
		Description: form.Description,
		AuthorID:    form.AuthorID,
		CategoryID:  form.CategoryID,
		SeriesID:    form.SeriesID,
		File:        form.File,
		Filename:    form.Filename,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, b)
}

func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	editorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), editorID, id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) approve(writer http.ResponseWriter, request *http.Request) {
	moderatorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.service.Approve(request.Context(), moderatorID, id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, b)
}

func (handler *Handler) reject(writer http.ResponseWriter, request *http.Request) {
	moderatorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Reject(request.Context(), moderatorID, id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) download(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Download(request.Context(), actorID(request), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, "Download queued")
}

func (handler *Handler) file(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	url, err := handler.service.PresignDownload(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"url": url})
}
