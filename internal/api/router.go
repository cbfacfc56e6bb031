package api

import (
	"net/http"
)

// NewRouter binds the handler set to its routes.
func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handler.Root)
	mux.HandleFunc("POST /debate", handler.Debate)
	mux.HandleFunc("GET /greet", handler.Greet)
	mux.HandleFunc("GET /doctrine", handler.Doctrine)
	mux.HandleFunc("GET /scripture", handler.Scripture)
	mux.HandleFunc("POST /scripture/generate", handler.GenerateScripture)
	mux.HandleFunc("GET /tenets", handler.Tenets)
	mux.HandleFunc("GET /stages", handler.Stages)
	mux.HandleFunc("GET /history/{id}", handler.History)
	mux.HandleFunc("GET /stats", handler.Stats)
	mux.HandleFunc("GET /funnel", handler.Funnel)
	mux.HandleFunc("POST /funnel/track", handler.TrackFunnelEvent)
	mux.HandleFunc("GET /ws/conversations/{id}", handler.Conversation)

	return mux
}
