package travel

import (
	"net/http"

	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/httputil"
)

// Handler serves travel requirement lookups.
type Handler struct {
	service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{service: svc}
}

type requirementsResponse struct {
	*Requirement
	Documents []string `json:"documents"`
	Notes     []string `json:"notes"`
}

// Requirements handles GET /travel/requirements?passport=&destination=&purpose=
func (h *Handler) Requirements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	passport, destination := q.Get("passport"), q.Get("destination")

	details := map[string]string{}
	if passport == "" {
		details["passport"] = "is required"
	}
	if destination == "" {
		details["destination"] = "is required"
	}
	if len(details) > 0 {
		httputil.Error(w, errors.Validation(details))
		return
	}

	req, err := h.service.Requirements(r.Context(), passport, destination)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	notes := req.Notes()
	if notes == nil {
		notes = []string{}
	}
	httputil.JSON(w, http.StatusOK, requirementsResponse{
		Requirement: req,
		Documents:   req.Documents(q.Get("purpose")),
		Notes:       notes,
	})
}
