package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/hrhrng/clash-sub002/pkg/buildinfo"
	"github.com/hrhrng/clash-sub002/pkg/document"
	"github.com/hrhrng/clash-sub002/pkg/engine"
	"github.com/hrhrng/clash-sub002/pkg/errors"
	"github.com/hrhrng/clash-sub002/pkg/pipeline"
	"github.com/hrhrng/clash-sub002/pkg/render"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LayoutRequest is the body of every /v1 operation.
type LayoutRequest struct {
	Document *document.Document `json:"document" validate:"required"`
	Trigger  string             `json:"trigger,omitempty" validate:"omitempty,max=256"`
	Scope    string             `json:"scope,omitempty" validate:"omitempty,max=256"`
	All      bool               `json:"all,omitempty"`
	Refresh  bool               `json:"refresh,omitempty"`
}

// LayoutResponse is the answer to a layout operation.
type LayoutResponse struct {
	PatchSet document.PatchSet  `json:"patchSet"`
	Document *document.Document `json:"document"`
	DocHash  string             `json:"docHash"`
	Cached   bool               `json:"cached"`
}

// HealthResponse is the answer of /healthz.
type HealthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) operation(op engine.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LayoutRequest
		if err := s.decode(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}

		res, err := s.runner.Execute(r.Context(), req.Document, pipeline.Options{
			Op:      op,
			Trigger: req.Trigger,
			Scope:   req.Scope,
			All:     req.All,
			Refresh: req.Refresh,
		})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		if s.batcher != nil && len(res.PatchSet.Patches) > 0 {
			if err := s.batcher.Enqueue(res.PatchSet.Patches...); err != nil {
				s.logger.Warn("patches not queued for persistence", "op", op, "error", err)
			}
		}

		s.respondJSON(w, http.StatusOK, LayoutResponse{
			PatchSet: res.PatchSet,
			Document: res.Document,
			DocHash:  res.DocHash,
			Cached:   res.CacheHit,
		})
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	format := render.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = render.FormatSVG
	}
	if !render.ValidFormats[format] {
		s.respondError(w, r, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format))
		return
	}
	labels, _ := strconv.ParseBool(r.URL.Query().Get("labels"))

	var req LayoutRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	out, cached, err := s.runner.RenderWithCacheInfo(r.Context(), req.Document, format, render.Options{Labels: labels})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Cache", cacheHeader(cached))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Build: buildinfo.Get()})
}

var contentTypes = map[render.Format]string{
	render.FormatDOT: "text/vnd.graphviz",
	render.FormatSVG: "image/svg+xml",
	render.FormatPNG: "image/png",
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) decode(r *http.Request, req *LayoutRequest) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New(errors.ErrCodeInvalidInput, "%s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request")
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.respondJSON(w, status, ErrorResponse{Code: code, Message: errors.UserMessage(err)})
}
