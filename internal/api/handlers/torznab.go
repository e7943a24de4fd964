// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/orionarr/orionarr/internal/indexer"
	"github.com/orionarr/orionarr/internal/orionoid"
	"github.com/orionarr/orionarr/internal/torznab"
)

// TorznabHandler serves the Torznab API endpoint.
type TorznabHandler struct {
	translator *indexer.Translator
	limits     indexer.Limits
	apiKey     string
	logger     zerolog.Logger
}

// NewTorznabHandler creates the handler. An empty apiKey disables the
// inbound credential gate.
func NewTorznabHandler(translator *indexer.Translator, limits indexer.Limits, apiKey string) *TorznabHandler {
	return &TorznabHandler{
		translator: translator,
		limits:     limits,
		apiKey:     apiKey,
		logger:     log.Logger.With().Str("module", "torznab").Logger(),
	}
}

// Routes registers the endpoint twice: bare, and under an indexer id path
// segment so Prowlarr-style URLs (/orionoid/api) work unchanged.
func (h *TorznabHandler) Routes(r chi.Router) {
	r.Get("/api", h.Handle)
	r.Get("/{indexerID}/api", h.Handle)
}

func (h *TorznabHandler) Handle(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	req, err := indexer.ParseSearchRequest(values, h.limits)
	if err != nil {
		if errors.Is(err, indexer.ErrUnknownQueryType) {
			// Newznab convention: an unknown function is still HTTP 200
			// with an error document.
			RespondXML(w, http.StatusOK, torznab.BuildError(torznab.ErrorCodeIncorrectParameter, err.Error()))
			return
		}

		code := torznab.ErrorCodeIncorrectParameter
		if errors.Is(err, indexer.ErrMissingParameter) {
			code = torznab.ErrorCodeMissingParameter
		}
		RespondXML(w, http.StatusBadRequest, torznab.BuildError(code, err.Error()))
		return
	}

	// Caps is public so clients can discover the indexer before keys are
	// exchanged.
	if req.Type == indexer.QueryCaps {
		h.handleCaps(w)
		return
	}

	if h.apiKey != "" && values.Get("apikey") != h.apiKey {
		RespondXML(w, http.StatusForbidden, torznab.BuildError(torznab.ErrorCodeIncorrectCredentials, "Incorrect user credentials"))
		return
	}

	results, err := h.translator.Translate(r.Context(), req)
	if err != nil {
		h.respondSearchError(w, req, err)
		return
	}

	body, err := torznab.BuildSearchResponse(results, req.Offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build search response")
		RespondXML(w, http.StatusInternalServerError, torznab.BuildError(torznab.ErrorCodeUnknown, "internal error"))
		return
	}

	h.logger.Debug().
		Str("type", string(req.Type)).
		Str("query", req.Query).
		Int("results", len(results)).
		Msg("Search served")

	RespondXML(w, http.StatusOK, body)
}

func (h *TorznabHandler) handleCaps(w http.ResponseWriter) {
	body, err := torznab.BuildCaps(torznab.CapsConfig{
		DefaultLimit: h.limits.Default,
		MaxLimit:     h.limits.Max,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build caps response")
		RespondXML(w, http.StatusInternalServerError, torznab.BuildError(torznab.ErrorCodeUnknown, "internal error"))
		return
	}
	RespondXML(w, http.StatusOK, body)
}

func (h *TorznabHandler) respondSearchError(w http.ResponseWriter, req indexer.SearchRequest, err error) {
	h.logger.Error().
		Err(err).
		Str("type", string(req.Type)).
		Str("query", req.Query).
		Msg("Search failed")

	var authErr *orionoid.AuthError
	switch {
	case errors.Is(err, indexer.ErrUpstreamUnavailable):
		RespondXML(w, http.StatusServiceUnavailable, torznab.BuildError(torznab.ErrorCodeUnknown, "Upstream unavailable"))
	case errors.As(err, &authErr):
		RespondXML(w, http.StatusBadGateway, torznab.BuildError(torznab.ErrorCodeIncorrectCredentials, "Upstream rejected credentials"))
	default:
		RespondXML(w, http.StatusBadGateway, torznab.BuildError(torznab.ErrorCodeUnknown, "Upstream request failed"))
	}
}
