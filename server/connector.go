package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tarungka/rxwire/internal/pipeline"
	"github.com/tarungka/rxwire/sinks"
	"github.com/tarungka/rxwire/sources"
)

// ConnectorRouter lists the available source, sink and transform types.
func ConnectorRouter() chi.Router {
	router := chi.NewRouter()
	router.Get("/", listConnectors)
	router.Get("/{kind}", listConnectors)
	return router
}

func listConnectors(w http.ResponseWriter, r *http.Request) {
	all := map[string][]string{
		"sources":    sources.Types(),
		"sinks":      sinks.Types(),
		"transforms": pipeline.TransformNames(),
	}

	kind := chi.URLParam(r, "kind")
	if kind == "" {
		SendResponse(w, true, all, "")
		return
	}
	types, ok := all[kind]
	if !ok {
		SendResponseWithHeader(w, false, nil, "unknown connector kind: "+kind, http.StatusNotFound, nil)
		return
	}
	SendResponse(w, true, types, "")
}
