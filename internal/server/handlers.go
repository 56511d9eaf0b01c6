package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jonathan/collection-day/internal/export"
	"github.com/jonathan/collection-day/internal/logx"
	"github.com/jonathan/collection-day/internal/types"
)

// CollectionErrorHeader carries the lookup error on export responses, whose
// bodies have no room for it.
const CollectionErrorHeader = "X-Collection-Error"

// RegionResponse is one entry of GET /regions.
type RegionResponse struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
}

// exportFormat describes one rendering served under /collection/{format}.
type exportFormat struct {
	ext         string
	contentType string
	render      func(w io.Writer, result types.CollectionResult, opts export.Options) error
}

var exportFormats = map[string]exportFormat{
	"ical": {ext: "ics", contentType: "text/calendar; charset=utf-8", render: export.ICS},
	"ics":  {ext: "ics", contentType: "text/calendar; charset=utf-8", render: export.ICS},
	"csv":  {ext: "csv", contentType: "text/csv; charset=utf-8", render: export.CSV},
	"json": {ext: "json", contentType: "application/json", render: export.JSON},
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRegions lists the supported councils.
func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	regions := s.service.Regions()
	out := make([]RegionResponse, 0, len(regions))
	for _, reg := range regions {
		out = append(out, RegionResponse{Code: reg.Code, Name: reg.Name, BaseURL: reg.BaseURL})
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleCollection resolves one address. Lookup failures are reported in the
// result body with status 200; only malformed requests get a 4xx.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	req, err := s.collectionRequest(r)
	if errors.Is(err, types.ErrMissingDefaults) {
		s.jsonResponse(w, http.StatusOK, types.FailedResult(err))
		return
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	result := s.resolve(r.Context(), req)
	s.jsonResponse(w, http.StatusOK, result)
}

// handleExport resolves one address and renders it as a calendar feed, CSV or
// JSON document filtered by the requested collection types.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "format"))
	format, ok := exportFormats[name]
	if !ok {
		err := &ErrUnknownFormat{Format: name}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	req, err := s.collectionRequest(r)
	var result types.CollectionResult
	switch {
	case errors.Is(err, types.ErrMissingDefaults):
		result = types.FailedResult(err)
	case err != nil:
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	filter, err := types.ParseCollectionTypes(req.Types)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, (&ErrValidation{Field: "types", Message: err.Error()}).Error())
		return
	}
	reminder, err := export.ParseReminder(r.URL.Query().Get("reminder"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, (&ErrValidation{Field: "reminder", Message: err.Error()}).Error())
		return
	}

	opts := export.Options{Types: filter, Reminder: reminder}
	if result.Error == "" {
		result = s.resolve(r.Context(), req)
		if reg, err := s.service.Region(req.Council); err == nil {
			opts.RegionCode = reg.Code
			opts.CalendarName = reg.Name + " collections"
		}
	}

	var buf bytes.Buffer
	if err := format.render(&buf, result, opts); err != nil {
		logx.FromContext(r.Context()).Error("rendering export", "format", name, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to render "+name)
		return
	}

	if result.Failed() {
		w.Header().Set(CollectionErrorHeader, result.Error)
	}
	w.Header().Set("Content-Type", format.contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(result.StreetAddress, format.ext)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// collectionRequest reads council, address and types from the query. With
// neither council nor address it falls back to the configured defaults and
// returns types.ErrMissingDefaults when they are not set.
func (s *Server) collectionRequest(r *http.Request) (types.CollectionRequest, error) {
	q := r.URL.Query()
	req := types.CollectionRequest{
		Council: strings.TrimSpace(q.Get("council")),
		Address: strings.TrimSpace(q.Get("address")),
		Types:   strings.TrimSpace(q.Get("types")),
	}
	if req.Types == "" {
		req.Types = s.defaults.CollectionTypes
	}

	if req.Council == "" && req.Address == "" {
		if !s.defaults.HasDefaultLookup() {
			return req, types.ErrMissingDefaults
		}
		req.Council = s.defaults.Council
		req.Address = s.defaults.StreetAddress
	}

	if err := req.Validate(); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return req, &ErrValidation{Field: strings.ToLower(fe.Field()), Message: "failed on '" + fe.Tag() + "'"}
		}
		return req, &ErrValidation{Field: "request", Message: err.Error()}
	}
	if _, err := types.ParseCollectionTypes(req.Types); err != nil {
		return req, &ErrValidation{Field: "types", Message: err.Error()}
	}
	return req, nil
}

// resolve runs the lookup under the configured request timeout.
func (s *Server) resolve(ctx context.Context, req types.CollectionRequest) types.CollectionResult {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout())
	defer cancel()
	return s.service.ResolveCollection(ctx, req.Council, req.Address)
}
