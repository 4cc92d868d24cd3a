package http

import (
	"net/http"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/service"
)

// NamedHandler serves display names of charts, ledgers and accounts.
type NamedHandler struct {
	namedSvc service.NamedService
}

func NewNamedHandler(namedSvc service.NamedService) *NamedHandler {
	return &NamedHandler{namedSvc: namedSvc}
}

// FindNamed looks names up by ?container=, or by ?name= and ?type= with an
// optional ?context=.
func (h *NamedHandler) FindNamed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		found []domain.Named
		err   error
	)
	switch {
	case q.Get("container") != "":
		container, perr := uuid.Parse(q.Get("container"))
		if perr != nil {
			badRequest(w, "invalid container id")
			return
		}
		found, err = h.namedSvc.FindByContainer(r.Context(), container)
	case q.Get("name") != "" && q.Get("context") != "":
		scope, perr := uuid.Parse(q.Get("context"))
		if perr != nil {
			badRequest(w, "invalid context id")
			return
		}
		found, err = h.namedSvc.FindByNameTypeAndContext(r.Context(), q.Get("name"), domain.ContainerType(q.Get("type")), scope)
	case q.Get("name") != "":
		found, err = h.namedSvc.FindByNameAndType(r.Context(), q.Get("name"), domain.ContainerType(q.Get("type")))
	default:
		badRequest(w, "container or name is required")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *NamedHandler) UpsertNamed(w http.ResponseWriter, r *http.Request) {
	user, err := GetUserFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.Named
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if id, ok := pathID(r, "id"); ok {
		req.ID = id
	}
	named, err := h.namedSvc.Upsert(r.Context(), user, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, named)
}
