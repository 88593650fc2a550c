package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/renderer"
)

// maxBody bounds the size of a submitted portfolio.
const maxBody = 64 << 10

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
	Hint    string   `json:"hint,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmit values the posted portfolio. It becomes the latest valuation
// unless a newer portfolio was posted in the meantime.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	spec, err := whatif.DecodeSpecJSON(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.driver.Submit(r.Context(), spec)
	if err != nil {
		s.writeValuationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	res := s.driver.Latest()
	if res == nil {
		s.writeError(w, http.StatusNotFound, errorResponse{Error: "no valuation yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLatestHTML(w http.ResponseWriter, r *http.Request) {
	res := s.driver.Latest()
	if res == nil {
		s.writeError(w, http.StatusNotFound, errorResponse{Error: "no valuation yet"})
		return
	}
	md, err := renderer.RenderValuation(renderer.NewReport(res))
	if err == nil {
		md, err = renderer.HTML(md)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(md)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write HTML response")
	}
}

func (s *Server) handleLatestChart(w http.ResponseWriter, r *http.Request) {
	res := s.driver.Latest()
	if res == nil {
		s.writeError(w, http.StatusNotFound, errorResponse{Error: "no valuation yet"})
		return
	}
	format, contentType := renderer.PNG, "image/png"
	if strings.HasSuffix(r.URL.Path, ".svg") {
		format, contentType = renderer.SVG, "image/svg+xml"
	}
	img, err := renderer.RenderChart(res, format)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		s.log.Error().Err(err).Msg("Failed to write chart response")
	}
}

// writeValuationError maps a Driver error to its HTTP status.
func (s *Server) writeValuationError(w http.ResponseWriter, err error) {
	body := errorResponse{Error: err.Error(), Hint: whatif.Hint(err)}
	if kind, ok := whatif.KindOf(err); ok {
		body.Kind = kind.String()
		body.Symbols = whatif.SymbolsOf(err)
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, whatif.ErrInvalidSpec):
		status = http.StatusBadRequest
	case errors.Is(err, whatif.ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, whatif.ErrSymbolValidationFailed), errors.Is(err, whatif.ErrDivisionUndefined):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, whatif.ErrDataUnavailable):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.log.Error().Err(err).Int("status", status).Msg("valuation failed")
	}
	s.writeError(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, body errorResponse) {
	s.writeJSON(w, status, body)
}
