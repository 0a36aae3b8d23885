package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/narrative"
)

// Handler holds API route handlers.
type Handler struct {
	svc *narrative.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *narrative.Service) *Handler {
	return &Handler{svc: svc}
}

// ListSeries handles GET /api/series.
//
//	@Summary		List series, optionally for one author
//	@Tags			series
//	@Produce		json
//	@Param			author_id	query		string	false	"Author filter"
//	@Success		200			{object}	SeriesListResponse
//	@Security		BearerAuth
//	@Router			/series [get]
func (h *Handler) ListSeries(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListSeries(r.Context(), r.URL.Query().Get("author_id"))
	if err != nil {
		writeError(w, err, "list series")
		return
	}
	writeJSON(w, http.StatusOK, SeriesListResponse{Series: items})
}

// CreateSeries handles POST /api/series.
//
//	@Summary		Create a series
//	@Tags			series
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Series	true	"Series to create"
//	@Success		201		{object}	models.Series
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series [post]
func (h *Handler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	var in models.Series
	if !decodeJSON(w, r, &in) {
		return
	}
	s, err := h.svc.CreateSeries(r.Context(), in)
	if err != nil {
		writeError(w, err, "create series")
		return
	}
	setETag(w, s.Version)
	writeJSON(w, http.StatusCreated, s)
}

// GetSeries handles GET /api/series/{seriesID}.
//
//	@Summary		Get a series
//	@Tags			series
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Success		200			{object}	models.Series
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID} [get]
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetSeries(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, err, "get series")
		return
	}
	setETag(w, s.Version)
	writeJSON(w, http.StatusOK, s)
}

// UpdateSeries handles PATCH /api/series/{seriesID}.
//
//	@Summary		Update series metadata with optimistic concurrency
//	@Tags			series
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string				true	"Series ID"
//	@Param			If-Match	header		string				false	"Entity version"
//	@Param			body		body		models.SeriesPatch	true	"Fields to change"
//	@Success		200			{object}	models.Series
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID} [patch]
func (h *Handler) UpdateSeries(w http.ResponseWriter, r *http.Request) {
	version, ok := ifMatch(w, r)
	if !ok {
		return
	}
	var patch models.SeriesPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	s, err := h.svc.UpdateSeries(r.Context(), chi.URLParam(r, "seriesID"), version, patch)
	if err != nil {
		writeError(w, err, "update series")
		return
	}
	setETag(w, s.Version)
	writeJSON(w, http.StatusOK, s)
}

// ArchiveSeries handles POST /api/series/{seriesID}/archive.
//
//	@Summary		Archive a series, making it read-only
//	@Tags			series
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Success		200			{object}	models.Series
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/archive [post]
func (h *Handler) ArchiveSeries(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.ArchiveSeries(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, err, "archive series")
		return
	}
	setETag(w, s.Version)
	writeJSON(w, http.StatusOK, s)
}

// ListBooks handles GET /api/series/{seriesID}/books.
//
//	@Summary		List the books of a series
//	@Tags			books
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Success		200			{array}		models.Book
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/books [get]
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.GetSeriesBooks(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, err, "list books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// CreateBook handles POST /api/series/{seriesID}/books.
//
//	@Summary		Add a book to a series
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string		true	"Series ID"
//	@Param			body		body		models.Book	true	"Book to create"
//	@Success		201			{object}	models.Book
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/books [post]
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var in models.Book
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.svc.CreateBook(r.Context(), chi.URLParam(r, "seriesID"), in)
	if err != nil {
		writeError(w, err, "create book")
		return
	}
	setETag(w, b.Version)
	writeJSON(w, http.StatusCreated, b)
}

// UpdateBook handles PATCH /api/series/{seriesID}/books/{bookID}.
//
//	@Summary		Change a book's title or word count
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string				true	"Series ID"
//	@Param			bookID		path		string				true	"Book ID"
//	@Param			If-Match	header		string				false	"Entity version"
//	@Param			body		body		models.BookPatch	true	"Fields to change"
//	@Success		200			{object}	models.Book
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/books/{bookID} [patch]
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	version, ok := ifMatch(w, r)
	if !ok {
		return
	}
	var patch models.BookPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	b, err := h.svc.UpdateBook(r.Context(), chi.URLParam(r, "seriesID"), chi.URLParam(r, "bookID"), version, patch)
	if err != nil {
		writeError(w, err, "update book")
		return
	}
	setETag(w, b.Version)
	writeJSON(w, http.StatusOK, b)
}
