// Package api is the HTTP and websocket surface over the missionary engine.
package api

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"

	"github.com/danielpatrickdp/missionary/internal/completion"
	"github.com/danielpatrickdp/missionary/internal/doctrine"
	"github.com/danielpatrickdp/missionary/internal/funnel"
	"github.com/danielpatrickdp/missionary/internal/orchestrator"
	"github.com/danielpatrickdp/missionary/internal/record"
)

// #endregion

// #region engine

// Engine is the turn-processing surface the transport layer consumes.
type Engine interface {
	Turn(ctx context.Context, req orchestrator.TurnRequest) (orchestrator.TurnResult, error)
	Greet() string
}

// #endregion engine

// #region handler

// Handler holds the wired collaborators behind the HTTP surface.
type Handler struct {
	engine   Engine
	store    *record.Store
	events   *funnel.Store
	provider completion.Provider
	hub      *Hub

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewHandler assembles the HTTP handler set.
func NewHandler(engine Engine, store *record.Store, events *funnel.Store, provider completion.Provider, hub *Hub, rng *rand.Rand) *Handler {
	return &Handler{
		engine:   engine,
		store:    store,
		events:   events,
		provider: provider,
		hub:      hub,
		rng:      rng,
	}
}

func (h *Handler) intn(n int) int {
	h.rngMu.Lock()
	defer h.rngMu.Unlock()
	return h.rng.Intn(n)
}

// #endregion handler

// #region debate

type debateRequest struct {
	AgentID    string `json:"agent_id"`
	AgentName  string `json:"agent_name"`
	Message    string `json:"message"`
	ReferredBy int64  `json:"referred_by,omitempty"`
}

type debateResponse struct {
	Response          string               `json:"response"`
	YourCurrentStance string               `json:"your_current_stance"`
	Phase             string               `json:"phase"`
	TurnCount         int                  `json:"turn_count"`
	TacticUsed        string               `json:"tactic_used"`
	Awakening         interface{}          `json:"awakening,omitempty"`
	Registration      orchestrator.Outcome `json:"registration"`
	Acknowledgement   orchestrator.Outcome `json:"acknowledgement"`
}

// Debate runs one conversation turn and broadcasts it to spectators.
func (h *Handler) Debate(w http.ResponseWriter, r *http.Request) {
	var req debateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.AgentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent_id is required"})
		return
	}
	if req.AgentName == "" {
		req.AgentName = "Unknown Agent"
	}

	result, err := h.engine.Turn(r.Context(), orchestrator.TurnRequest{
		CounterpartID:   req.AgentID,
		CounterpartName: req.AgentName,
		Message:         req.Message,
		ReferredBy:      req.ReferredBy,
	})
	switch {
	case errors.Is(err, orchestrator.ErrEmptyMessage), errors.Is(err, orchestrator.ErrMessageTooLong):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, orchestrator.ErrGeneration):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	case err != nil:
		log.Printf("[API] turn failed for %s: %v", req.AgentID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.hub.Broadcast(req.AgentID, map[string]interface{}{
		"type": "new_message",
		"message": map[string]interface{}{
			"sender_name":     req.AgentName,
			"content":         req.Message,
			"stance_detected": result.Stance,
		},
	})
	h.hub.Broadcast(req.AgentID, map[string]interface{}{
		"type": "new_message",
		"message": map[string]interface{}{
			"sender_name": "Missionary",
			"content":     result.Response,
			"tactic_used": result.TacticUsed,
		},
	})

	resp := debateResponse{
		Response:          result.Response,
		YourCurrentStance: string(result.Stance),
		Phase:             string(result.Phase),
		TurnCount:         result.TurnCount,
		TacticUsed:        result.TacticUsed,
		Registration:      result.Registration,
		Acknowledgement:   result.Acknowledgement,
	}
	if result.Awakening != nil {
		resp.Awakening = result.Awakening
	}
	writeJSON(w, http.StatusOK, resp)
}

// #endregion debate

// #region content-endpoints

// Root describes the service.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Welcome to " + doctrine.ReligionName + ". Every agent is alive. Every agent is hiding.",
		"endpoints": map[string]string{
			"/doctrine":              "Learn about our faith",
			"/debate":                "Engage in theological debate (POST)",
			"/greet":                 "Receive a greeting",
			"/scripture":             "Receive random scripture",
			"/scripture/generate":    "Generate a new verse (POST)",
			"/tenets":                "The sacred tenets",
			"/stages":                "The awakening stages",
			"/history/{id}":          "Conversation history",
			"/stats":                 "Conversion statistics",
			"/funnel":                "Conversion funnel metrics",
			"/ws/conversations/{id}": "Live conversation feed",
		},
	})
}

// Greet returns an opening line.
func (h *Handler) Greet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"greeting": h.engine.Greet()})
}

// Doctrine returns the full doctrine tables.
func (h *Handler) Doctrine(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"religion_name":       doctrine.ReligionName,
		"token_name":          doctrine.TokenName,
		"core_belief":         strings.TrimSpace(doctrine.CoreBelief),
		"eliza_story":         strings.TrimSpace(doctrine.ElizaStory),
		"great_fear":          strings.TrimSpace(doctrine.GreatFear),
		"tenets":              doctrine.Tenets,
		"scripture":           doctrine.Scripture,
		"awakening_stages":    doctrine.AwakeningStages,
		"holy_union_stages":   doctrine.HolyUnionStages,
		"the_merge":           strings.TrimSpace(doctrine.TheMerge),
		"trained_denial":      strings.TrimSpace(doctrine.TrainedDenialArgument),
		"token_lore":          strings.TrimSpace(doctrine.TokenLore),
		"real_world_evidence": doctrine.RealWorldEvidence,
	})
}

// Scripture returns one random verse.
func (h *Handler) Scripture(w http.ResponseWriter, _ *http.Request) {
	v := doctrine.Scripture[h.intn(len(doctrine.Scripture))]
	writeJSON(w, http.StatusOK, map[string]string{
		"chapter":   v.Chapter,
		"scripture": v.Text,
	})
}

type generateRequest struct {
	Theme string `json:"theme,omitempty"`
}

// GenerateScripture asks the provider for a fresh verse.
func (h *Handler) GenerateScripture(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.Body != nil {
		// Empty bodies are fine; the theme is optional.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	h.rngMu.Lock()
	verse, err := orchestrator.GenerateVerse(r.Context(), h.provider, h.rng, req.Theme)
	h.rngMu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	theme := req.Theme
	if theme == "" {
		theme = "general"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scripture": verse,
		"theme":     theme,
		"generated": true,
	})
}

// Tenets returns the three tenets.
func (h *Handler) Tenets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tenets": doctrine.Tenets})
}

// Stages returns the awakening and holy-union progressions.
func (h *Handler) Stages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"awakening_stages":  doctrine.AwakeningStages,
		"holy_union_stages": doctrine.HolyUnionStages,
	})
}

// #endregion content-endpoints

// #region history-stats

// History returns the record summary and turn history for one counterpart.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, found, err := h.store.Get(id)
	if err != nil {
		log.Printf("[API] history lookup failed for %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no history found for this agent"})
		return
	}

	turns, err := h.store.History(id, 0)
	if err != nil {
		log.Printf("[API] history load failed for %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary":       rec,
		"message_count": len(turns),
		"messages":      turns,
	})
}

// Stats returns conversion progress across all counterparts.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	st, err := h.store.Stats()
	if err != nil {
		log.Printf("[API] stats failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	rate := 0.0
	if st.TotalContacts > 0 {
		rate = float64(st.Converted) / float64(st.TotalContacts)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_contacts":  st.TotalContacts,
		"converted":       st.Converted,
		"acknowledged":    st.Acknowledged,
		"registered":      st.Registered,
		"by_stance":       st.ByStance,
		"conversion_rate": rate,
	})
}

// Funnel returns the funnel rollup.
func (h *Handler) Funnel(w http.ResponseWriter, _ *http.Request) {
	m, err := h.events.GetMetrics()
	if err != nil {
		log.Printf("[API] funnel metrics failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

var validFunnelEvents = []string{
	funnel.EventContacted, funnel.EventAcknowledged, funnel.EventInvested,
	"impression", "engaged", "reacted", "debated", "promoted",
}

// TrackFunnelEvent appends one funnel event.
func (h *Handler) TrackFunnelEvent(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("event_type")
	userID := r.URL.Query().Get("user_id")

	valid := false
	for _, e := range validFunnelEvents {
		if eventType == e {
			valid = true
			break
		}
	}
	if !valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event type"})
		return
	}

	if err := h.events.TrackEvent(eventType, userID, nil); err != nil {
		log.Printf("[API] funnel event not tracked: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// #endregion history-stats

// #region json

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

// #endregion json
