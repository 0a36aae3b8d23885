package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/saga/internal/models"
)

// ListCharacters handles GET /api/series/{seriesID}/characters.
//
//	@Summary		List the characters of a series
//	@Tags			characters
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Success		200			{array}		models.Character
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/characters [get]
func (h *Handler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.GetSeriesCharacters(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, err, "list characters")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateCharacter handles POST /api/series/{seriesID}/characters.
//
//	@Summary		Add a character
//	@Tags			characters
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string				true	"Series ID"
//	@Param			body		body		models.Character	true	"Character to create"
//	@Success		201			{object}	models.Character
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/characters [post]
func (h *Handler) CreateCharacter(w http.ResponseWriter, r *http.Request) {
	var in models.Character
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.svc.CreateCharacter(r.Context(), chi.URLParam(r, "seriesID"), in)
	if err != nil {
		writeError(w, err, "create character")
		return
	}
	setETag(w, c.Version)
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCharacter handles PATCH /api/series/{seriesID}/characters/{characterID}.
//
//	@Summary		Update a character; locked attributes need an override
//	@Tags			characters
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string					true	"Series ID"
//	@Param			characterID	path		string					true	"Character ID"
//	@Param			If-Match	header		string					false	"Entity version"
//	@Param			body		body		CharacterUpdateRequest	true	"Fields to change"
//	@Success		200			{object}	models.Character
//	@Failure		403			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/characters/{characterID} [patch]
func (h *Handler) UpdateCharacter(w http.ResponseWriter, r *http.Request) {
	version, ok := ifMatch(w, r)
	if !ok {
		return
	}
	var req CharacterUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateCharacter(r.Context(), chi.URLParam(r, "seriesID"), chi.URLParam(r, "characterID"),
		version, req.CharacterPatch, req.Override)
	if err != nil {
		writeError(w, err, "update character")
		return
	}
	setETag(w, c.Version)
	writeJSON(w, http.StatusOK, c)
}

// ListWorldElements handles GET /api/series/{seriesID}/world-elements.
//
//	@Summary		List the world elements of a series
//	@Tags			world
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Success		200			{array}		models.WorldElement
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/world-elements [get]
func (h *Handler) ListWorldElements(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.GetWorldElements(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, err, "list world elements")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateWorldElement handles POST /api/series/{seriesID}/world-elements.
//
//	@Summary		Add a world element
//	@Tags			world
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string				true	"Series ID"
//	@Param			body		body		models.WorldElement	true	"Element to create"
//	@Success		201			{object}	models.WorldElement
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/world-elements [post]
func (h *Handler) CreateWorldElement(w http.ResponseWriter, r *http.Request) {
	var in models.WorldElement
	if !decodeJSON(w, r, &in) {
		return
	}
	el, err := h.svc.CreateWorldElement(r.Context(), chi.URLParam(r, "seriesID"), in)
	if err != nil {
		writeError(w, err, "create world element")
		return
	}
	setETag(w, el.Version)
	writeJSON(w, http.StatusCreated, el)
}

// DeactivateWorldElement handles POST /api/series/{seriesID}/world-elements/{elementID}/deactivate.
//
//	@Summary		Deactivate a world element
//	@Tags			world
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string				true	"Series ID"
//	@Param			elementID	path		string				true	"World element ID"
//	@Param			body		body		DeactivateRequest	false	"Override for locked elements"
//	@Success		200			{object}	models.WorldElement
//	@Failure		403			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/world-elements/{elementID}/deactivate [post]
func (h *Handler) DeactivateWorldElement(w http.ResponseWriter, r *http.Request) {
	var req DeactivateRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	el, err := h.svc.DeactivateWorldElement(r.Context(), chi.URLParam(r, "seriesID"), chi.URLParam(r, "elementID"), req.Override)
	if err != nil {
		writeError(w, err, "deactivate world element")
		return
	}
	setETag(w, el.Version)
	writeJSON(w, http.StatusOK, el)
}

// ListArcs handles GET /api/series/{seriesID}/arcs.
//
//	@Summary		List the narrative arcs of a series
//	@Tags			arcs
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Success		200			{array}		models.NarrativeArc
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/arcs [get]
func (h *Handler) ListArcs(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.GetNarrativeArcs(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, err, "list arcs")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateArc handles POST /api/series/{seriesID}/arcs.
//
//	@Summary		Add a narrative arc
//	@Tags			arcs
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string				true	"Series ID"
//	@Param			body		body		models.NarrativeArc	true	"Arc to create"
//	@Success		201			{object}	models.NarrativeArc
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/arcs [post]
func (h *Handler) CreateArc(w http.ResponseWriter, r *http.Request) {
	var in models.NarrativeArc
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.svc.CreateNarrativeArc(r.Context(), chi.URLParam(r, "seriesID"), in)
	if err != nil {
		writeError(w, err, "create arc")
		return
	}
	setETag(w, a.Version)
	writeJSON(w, http.StatusCreated, a)
}

// TransitionArc handles POST /api/series/{seriesID}/arcs/{arcID}/transition.
//
//	@Summary		Move an arc to its next status or abandon it
//	@Tags			arcs
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string				true	"Series ID"
//	@Param			arcID		path		string				true	"Arc ID"
//	@Param			If-Match	header		string				false	"Entity version"
//	@Param			body		body		TransitionRequest	true	"Target status"
//	@Success		200			{object}	models.NarrativeArc
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/arcs/{arcID}/transition [post]
func (h *Handler) TransitionArc(w http.ResponseWriter, r *http.Request) {
	version, ok := ifMatch(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.TransitionArc(r.Context(), chi.URLParam(r, "seriesID"), chi.URLParam(r, "arcID"), version, req.Status)
	if err != nil {
		writeError(w, err, "transition arc")
		return
	}
	setETag(w, a.Version)
	writeJSON(w, http.StatusOK, a)
}

// SetArcCompletion handles PUT /api/series/{seriesID}/arcs/{arcID}/completion.
//
//	@Summary		Set arc completion percentage
//	@Tags			arcs
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string				true	"Series ID"
//	@Param			arcID		path		string				true	"Arc ID"
//	@Param			If-Match	header		string				false	"Entity version"
//	@Param			body		body		CompletionRequest	true	"Completion"
//	@Success		200			{object}	models.NarrativeArc
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/arcs/{arcID}/completion [put]
func (h *Handler) SetArcCompletion(w http.ResponseWriter, r *http.Request) {
	version, ok := ifMatch(w, r)
	if !ok {
		return
	}
	var req CompletionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.SetArcCompletion(r.Context(), chi.URLParam(r, "seriesID"), chi.URLParam(r, "arcID"),
		version, req.CompletionPercentage)
	if err != nil {
		writeError(w, err, "set arc completion")
		return
	}
	setETag(w, a.Version)
	writeJSON(w, http.StatusOK, a)
}

// ListCanonRules handles GET /api/series/{seriesID}/canon-rules.
//
//	@Summary		List the canon rules of a series
//	@Tags			canon
//	@Produce		json
//	@Param			seriesID	path		string	true	"Series ID"
//	@Success		200			{array}		models.CanonRule
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/canon-rules [get]
func (h *Handler) ListCanonRules(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.GetCanonRules(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, err, "list canon rules")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateCanonRule handles POST /api/series/{seriesID}/canon-rules.
//
//	@Summary		Add a canon rule
//	@Tags			canon
//	@Accept			json
//	@Produce		json
//	@Param			seriesID	path		string				true	"Series ID"
//	@Param			body		body		models.CanonRule	true	"Rule to create"
//	@Success		201			{object}	models.CanonRule
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/series/{seriesID}/canon-rules [post]
func (h *Handler) CreateCanonRule(w http.ResponseWriter, r *http.Request) {
	var in models.CanonRule
	if !decodeJSON(w, r, &in) {
		return
	}
	rule, err := h.svc.CreateCanonRule(r.Context(), chi.URLParam(r, "seriesID"), in)
	if err != nil {
		writeError(w, err, "create canon rule")
		return
	}
	setETag(w, rule.Version)
	writeJSON(w, http.StatusCreated, rule)
}
