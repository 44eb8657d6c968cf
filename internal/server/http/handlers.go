package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/expert-finder-service/internal/domain"
	"github.com/helixir/expert-finder-service/internal/expertise"
)

var validate = newValidator()

// newValidator builds the request validator, reporting fields by their
// query-parameter name instead of the Go struct field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("param"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// searchRequest is the query-parameter surface of GET /api/v1/experts.
// Paging bounds beyond the structural checks here are enforced by the
// search service, which owns the configured maximum page size.
type searchRequest struct {
	Topic        string `param:"topic" validate:"required,max=500"`
	Location     string `param:"location" validate:"omitempty,max=200"`
	Page         int    `param:"page" validate:"omitempty,min=1"`
	PageSize     int    `param:"pageSize" validate:"omitempty,min=1"`
	Mode         string `param:"mode" validate:"omitempty,oneof=standard dashboard"`
	ProfileFetch string `param:"profileFetch" validate:"omitempty,oneof=fast thorough"`
}

// searchExperts handles GET /api/v1/experts.
// It runs the expert discovery pipeline for the requested topic and
// returns one page of ranked experts.
func (s *Server) searchExperts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	req := searchRequest{
		Topic:        strings.TrimSpace(params.Get("topic")),
		Location:     strings.TrimSpace(params.Get("location")),
		Mode:         params.Get("mode"),
		ProfileFetch: params.Get("profileFetch"),
	}

	var err error
	if req.Page, err = parseIntParam(params.Get("page"), "page"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PageSize, err = parseIntParam(params.Get("pageSize"), "pageSize"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	page, err := s.finder.FindExperts(ctx, expertise.Query{
		Topic:        req.Topic,
		Location:     req.Location,
		Page:         req.Page,
		PageSize:     req.PageSize,
		Mode:         expertise.SearchMode(req.Mode),
		ProfileFetch: domain.ProfileFetchMode(req.ProfileFetch),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// writeDomainError maps domain errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseIntParam parses an optional integer query parameter.
// An empty value yields zero, which downstream code treats as "use default".
func parseIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// validationMessage renders the first field failure of a validator error
// as a client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
