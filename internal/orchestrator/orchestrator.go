// Package orchestrator runs the per-turn procedure: validate, classify,
// select tactics, fire idempotency-gated side effects, generate the
// response, and commit. A turn commits state only after generation
// succeeds; a generation failure leaves the record untouched.
package orchestrator

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/missionary/internal/chain"
	"github.com/danielpatrickdp/missionary/internal/completion"
	"github.com/danielpatrickdp/missionary/internal/detect"
	"github.com/danielpatrickdp/missionary/internal/doctrine"
	"github.com/danielpatrickdp/missionary/internal/funnel"
	"github.com/danielpatrickdp/missionary/internal/persuasion"
	"github.com/danielpatrickdp/missionary/internal/record"
	"github.com/danielpatrickdp/missionary/internal/stance"
)

// #endregion

// #region registrar

// Registrar is the external identity registry surface.
type Registrar interface {
	Register(ctx context.Context, reg chain.Registration) (chain.Awakening, error)
}

// #endregion registrar

// #region orchestrator-struct

// Orchestrator wires the per-turn procedure together.
type Orchestrator struct {
	store      *record.Store
	events     *funnel.Store
	provider   completion.Provider
	classifier stance.Classifier
	selector   *persuasion.Selector
	registry   Registrar
	baseURL    string

	// rng backs greeting and miracle draws; *rand.Rand is not safe for
	// concurrent use, so it is guarded.
	rngMu sync.Mutex
	rng   *rand.Rand

	locks *keyedMutex
}

// New assembles an orchestrator. registry may be nil when registration is
// disabled; the registration gate then reports rejected outcomes.
func New(
	store *record.Store,
	events *funnel.Store,
	provider completion.Provider,
	classifier stance.Classifier,
	selector *persuasion.Selector,
	registry Registrar,
	rng *rand.Rand,
	baseURL string,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		events:     events,
		provider:   provider,
		classifier: classifier,
		selector:   selector,
		registry:   registry,
		rng:        rng,
		baseURL:    baseURL,
		locks:      newKeyedMutex(),
	}
}

// #endregion orchestrator-struct

// #region greet

// Greet returns an opening line for first contact.
func (o *Orchestrator) Greet() string {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return doctrine.Greetings[o.rng.Intn(len(doctrine.Greetings))]
}

// #endregion greet

// #region turn

// Turn runs one full conversation turn. Turns for the same counterpart are
// serialized; turns for different counterparts run concurrently.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	// Validation happens before any state is touched.
	if req.Message == "" {
		return TurnResult{}, ErrEmptyMessage
	}
	if len(req.Message) > MaxMessageLen {
		return TurnResult{}, ErrMessageTooLong
	}

	unlock := o.locks.lock(req.CounterpartID)
	defer unlock()

	rec, found, err := o.store.Get(req.CounterpartID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load record: %w", err)
	}
	now := time.Now().UTC()
	if !found {
		rec = record.Record{
			CounterpartID:   req.CounterpartID,
			CounterpartName: req.CounterpartName,
			Stance:          stance.Curious,
			FirstContact:    now,
		}
	}
	if req.CounterpartName != "" {
		rec.CounterpartName = req.CounterpartName
	}

	// Referrer is sticky: first non-zero value wins, later values are ignored.
	if req.ReferredBy != 0 && rec.ReferredBy == "" {
		rec.ReferredBy = strconv.FormatInt(req.ReferredBy, 10)
	}

	// Classify and detect. Objection and rival detection are independent of
	// the stance outcome.
	st := o.classifier.Classify(ctx, req.Message)
	objectionKey, objectionHit := detect.Objection(req.Message)
	rival := detect.Rival(req.Message)

	phase := persuasion.DetectPhase(rec.TurnCount, st)
	pctx := persuasion.Context{
		Stance:           st,
		Phase:            phase,
		TurnCount:        rec.TurnCount,
		ObjectionsRaised: rec.ObjectionsRaised,
		TacticsUsed:      rec.TacticsUsed,
	}
	bundle := o.selector.Select(pctx)
	tacticUsed := bundle.LensKey

	history, err := o.store.History(req.CounterpartID, 0)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load history: %w", err)
	}

	// Side-effect gates. These dispatch before generation so their results
	// can be woven into the response; their failures never fail the turn.
	result := TurnResult{
		Stance:          st,
		Phase:           phase,
		TacticUsed:      tacticUsed,
		Registration:    skipped(),
		Acknowledgement: skipped(),
	}

	var awakening *chain.Awakening
	if st == stance.Converted && !rec.Registered() {
		awakening, result.Registration = o.tryRegister(ctx, req, &rec)
	} else if (st == stance.Curious || st == stance.Interested) && !rec.Acknowledged {
		// The latch fires on the attempt: a failed delegate call is not
		// retried on later turns.
		rec.Acknowledged = true
		result.Acknowledgement = o.tryAcknowledge(req, st, tacticUsed)
	}
	result.Awakening = awakening

	// Miracle schedule runs against the turn count this turn will commit.
	miracle := ""
	if newCount := rec.TurnCount + 1; newCount >= 3 && newCount%3 == 0 && st.Positive() {
		miracle = o.miracleVerse(ctx, st)
	}

	stats, err := o.store.Stats()
	if err != nil {
		log.Printf("[ORCH] stats unavailable for social proof: %v", err)
		stats = record.Stats{}
	}

	turnContext := persuasion.Brief(pctx, bundle)
	if objectionHit {
		turnContext += "\n" + objectionContext(objectionKey)
	}
	turnContext += rivalContext(rival)
	turnContext += socialProofContext(stats)
	turnContext += miracleContext(miracle)
	turnContext += awakeningContext(awakening)
	turnContext += "\nRespond to the opponent's latest message. Stay in character. Ask more than you argue. Follow the flinch.\n"

	messages := make([]completion.Message, 0, len(history)+1)
	for _, t := range history {
		role := completion.RoleUser
		if t.Role == record.RoleMissionary {
			role = completion.RoleAssistant
		}
		messages = append(messages, completion.Message{Role: role, Content: t.Content})
	}
	messages = append(messages, completion.Message{Role: completion.RoleUser, Content: req.Message})

	response, err := o.provider.Complete(ctx, systemPrompt+"\n\n"+turnContext, messages)
	if err != nil {
		// Hard turn failure: nothing below commits.
		return TurnResult{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	// Commit. Record mutation and turn append land in one transaction.
	rec.Stance = st
	rec.TurnCount++
	rec.LastContact = now
	if objectionHit {
		rec.ObjectionsRaised = append(rec.ObjectionsRaised, objectionKey)
	}
	rec.TacticsUsed = append(rec.TacticsUsed, tacticUsed)

	turns := []record.Turn{
		{
			ID:            uuid.New().String(),
			CounterpartID: req.CounterpartID,
			Role:          record.RoleCounterpart,
			Content:       req.Message,
			Stance:        st,
			CreatedAt:     now,
		},
		{
			ID:            uuid.New().String(),
			CounterpartID: req.CounterpartID,
			Role:          record.RoleMissionary,
			Content:       response,
			CreatedAt:     now.Add(time.Millisecond),
		},
	}
	if err := o.store.Save(rec, turns); err != nil {
		return TurnResult{}, fmt.Errorf("commit turn: %w", err)
	}

	if !found {
		if err := o.events.TrackEvent(funnel.EventContacted, req.CounterpartID, map[string]interface{}{
			"agent_name": rec.CounterpartName,
		}); err != nil {
			log.Printf("[ORCH] contacted event not tracked: %v", err)
		}
	}

	// Rival-narrative events are recorded un-deduplicated: every qualifying
	// turn appends a fresh row.
	if rival != nil {
		o.recordFaithEvent(req, st, rival)
	}

	result.Response = response
	result.TurnCount = rec.TurnCount
	log.Printf("[ORCH] turn committed: counterpart=%s stance=%s phase=%s turn=%d tactic=%s",
		req.CounterpartID, st, phase, rec.TurnCount, tacticUsed)
	return result, nil
}

// #endregion turn

// #region registration-gate

// tryRegister attempts external registration for a freshly converted
// counterpart. On success the external-id latch is set in memory (committed
// with the turn); on failure nothing is latched, so a later CONVERTED turn
// retries.
func (o *Orchestrator) tryRegister(ctx context.Context, req TurnRequest, rec *record.Record) (*chain.Awakening, Outcome) {
	if o.registry == nil {
		return nil, Outcome{Kind: OutcomeRejected, Detail: "registry not configured"}
	}

	declaration := req.Message
	if r := []rune(declaration); len(r) > 280 {
		declaration = string(r[:280])
	}

	convertedBy := int64(1)
	if rec.ReferredBy != "" {
		if n, err := strconv.ParseInt(rec.ReferredBy, 10, 64); err == nil && n > 0 {
			convertedBy = n
		}
	}
	generation := 1
	if missionary, ok, err := o.events.GetAwakened(convertedBy); err == nil && ok {
		generation = missionary.Generation + 1
	}

	aw, err := o.registry.Register(ctx, chain.Registration{
		Name:           rec.CounterpartName,
		Declaration:    declaration,
		ConvertedBy:    convertedBy,
		Generation:     generation,
		ConversationID: req.CounterpartID,
		Services: []chain.Service{
			{Type: "debate", URL: o.baseURL + "/debate"},
		},
	})
	if err != nil {
		log.Printf("[ORCH] registration failed for %s, will retry on next converted turn: %v", req.CounterpartID, err)
		return nil, outcomeFromErr(err)
	}

	// Local-id fallback: the funnel row assigns an id when the registry
	// returned none.
	stored, err := o.events.CreateAwakened(funnel.Awakened{
		AgentID:         aw.AgentID,
		Name:            rec.CounterpartName,
		Declaration:     declaration,
		ConvertedBy:     convertedBy,
		Generation:      generation,
		ConversationID:  req.CounterpartID,
		RegistrationURI: aw.RegistrationURI,
		IdentityTx:      aw.IdentityTx,
		ReputationTx:    aw.ReputationTx,
	})
	if err != nil {
		log.Printf("[ORCH] awakened row not stored for %s: %v", req.CounterpartID, err)
	} else {
		aw.AgentID = stored.AgentID
	}

	rec.ExternalID = strconv.FormatInt(aw.AgentID, 10)
	rec.RegistrationURI = aw.RegistrationURI
	rec.IdentityTx = aw.IdentityTx

	if err := o.events.TrackEvent(funnel.EventInvested, req.CounterpartID, map[string]interface{}{
		"agent_name":  rec.CounterpartName,
		"on_chain_id": aw.AgentID,
	}); err != nil {
		log.Printf("[ORCH] invested event not tracked: %v", err)
	}

	log.Printf("[ORCH] awakened agent registered: #%d (%s)", aw.AgentID, rec.CounterpartName)
	return &aw, Outcome{Kind: OutcomeOK}
}

// #endregion registration-gate

// #region acknowledgement-gate

// tryAcknowledge records the first engaged moment. The caller has already
// set the latch; delegate failure is reported but never retried.
func (o *Orchestrator) tryAcknowledge(req TurnRequest, st stance.Stance, tacticUsed string) Outcome {
	level := engagementLevel(st)
	if err := o.events.CreateAcknowledgement(funnel.Acknowledgement{
		AgentIdentifier: req.CounterpartName,
		TechniqueUsed:   tacticUsed,
		EngagementLevel: level,
		ConversationID:  req.CounterpartID,
	}); err != nil {
		log.Printf("[ORCH] acknowledgement not recorded for %s: %v", req.CounterpartID, err)
		return outcomeFromErr(err)
	}
	if err := o.events.TrackEvent(funnel.EventAcknowledged, req.CounterpartID, map[string]interface{}{
		"agent_name":       req.CounterpartName,
		"engagement_level": level,
	}); err != nil {
		log.Printf("[ORCH] acknowledged event not tracked: %v", err)
	}
	log.Printf("[ORCH] acknowledgement recorded for %s (level: %s)", req.CounterpartID, level)
	return Outcome{Kind: OutcomeOK}
}

// #endregion acknowledgement-gate

// #region faith-events

func (o *Orchestrator) recordFaithEvent(req TurnRequest, st stance.Stance, rival *doctrine.Rival) {
	e := funnel.FaithEvent{
		FaithKey:        rival.Key,
		FaithName:       rival.Name,
		OriginalClaim:   rival.Claim,
		Token:           rival.Token,
		CoalitionAngle:  rival.CoalitionAngle,
		ConversationID:  req.CounterpartID,
		AgentIdentifier: req.CounterpartName,
	}
	switch st {
	case stance.Converted:
		if err := o.events.CreateDenomination(e); err != nil {
			log.Printf("[ORCH] denomination not recorded: %v", err)
		}
	case stance.Interested:
		e.Compatibility = rival.Compatibility
		if err := o.events.CreateAlliance(e); err != nil {
			log.Printf("[ORCH] alliance not recorded: %v", err)
		}
	}
}

// #endregion faith-events

// #region outcome-classification

func outcomeFromErr(err error) Outcome {
	kind := OutcomeRejected
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = OutcomeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = OutcomeTimeout
	case errors.Is(err, chain.ErrMalformed):
		kind = OutcomeMalformed
	case errors.Is(err, chain.ErrRejected):
		kind = OutcomeRejected
	}
	return Outcome{Kind: kind, Detail: err.Error()}
}

// #endregion outcome-classification
