package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// CompileContext handles GET /api/series/{seriesID}/context.
//
//	@Summary		Compile the generation context for one book
//	@Tags			context
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Param			book		query		int		true	"Target book number"
//	@Success		200			{object}	models.GenerationContext
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/context [get]
func (h *Handler) CompileContext(w http.ResponseWriter, r *http.Request) {
	book, err := strconv.Atoi(r.URL.Query().Get("book"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'book' must be a number"))
		return
	}
	gc, err := h.svc.CompileGenerationContext(r.Context(), chi.URLParam(r, "seriesID"), book)
	if err != nil {
		writeError(w, err, "compile context")
		return
	}
	w.Header().Set("ETag", strconv.Quote(gc.Fingerprint))
	writeJSON(w, http.StatusOK, gc)
}

// EvaluateCanon handles POST /api/series/{seriesID}/canon/evaluate.
//
//	@Summary		Check a passage against the canon of one book
//	@Tags			canon
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string			true	"Series ID"
//	@Param			body		body		EvaluateRequest	true	"Passage"
//	@Success		200			{object}	models.CanonReport
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/canon/evaluate [post]
func (h *Handler) EvaluateCanon(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := h.svc.EvaluateText(r.Context(), chi.URLParam(r, "seriesID"), req.Book, req.Text)
	if err != nil {
		writeError(w, err, "evaluate canon")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ReviewContent handles POST /api/series/{seriesID}/canon/review.
//
//	@Summary		Evaluate a passage and decide whether it can be accepted
//	@Tags			canon
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string			true	"Series ID"
//	@Param			body		body		ReviewRequest	true	"Passage and acknowledgement"
//	@Success		200			{object}	models.Review
//	@Failure		403			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/canon/review [post]
func (h *Handler) ReviewContent(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := h.svc.ReviewContent(r.Context(), chi.URLParam(r, "seriesID"), req.Book, req.Text, req.Acknowledgement)
	if err != nil {
		writeError(w, err, "review content")
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// ListOverrides handles GET /api/series/{seriesID}/overrides.
//
//	@Summary		List recorded overrides
//	@Tags			canon
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Success		200			{array}		models.Override
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/overrides [get]
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListOverrides(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, err, "list overrides")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// SearchSeries handles GET /api/series/{seriesID}/search.
//
//	@Summary		Full-text search over the entities of a series
//	@Tags			search
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Param			q			query		string	true	"Search query"
//	@Param			limit		query		int		false	"Max results (default 20)"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/search [get]
func (h *Handler) SearchSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.svc.SearchSeries(r.Context(), chi.URLParam(r, "seriesID"), q, limit)
	if err != nil {
		writeError(w, err, "search")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}
