// Package agent defines the advisory agents and their capability tags.
// The router scores a turn against these tags; the registry itself holds
// no model client, only the routing surface.
package agent

import (
	"sync"

	"github.com/kart-io/advisor-x/internal/model"
)

// Agent describes one advisory specialist.
type Agent struct {
	// ID is the stable identifier used in routing plans and overrides.
	ID string `json:"id"`

	// DisplayName is shown to users.
	DisplayName string `json:"display_name"`

	// Topics are the subject keywords the agent specializes in. Matching
	// topics is the core of routing.
	Topics []string `json:"topics"`

	// Tools names the tool capabilities the agent may invoke mid-turn.
	Tools []string `json:"tools,omitempty"`

	// ArtifactKinds lists the artifact kinds the agent can produce. Empty
	// means the agent never drives artifact creation.
	ArtifactKinds []string `json:"artifact_kinds,omitempty"`

	// Profile is the default model profile for this agent's turns.
	Profile string `json:"profile"`

	// SystemPrompt frames the agent's persona and scope.
	SystemPrompt string `json:"-"`

	// Fallback marks the agent that picks up turns no specialist claims.
	Fallback bool `json:"fallback,omitempty"`
}

// Registry holds the agents available for routing.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Register adds an agent. Later registrations with the same ID replace
// earlier ones.
func (r *Registry) Register(a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.ID]; !exists {
		r.order = append(r.order, a.ID)
	}
	r.agents[a.ID] = a
}

// Get returns an agent by ID.
func (r *Registry) Get(id string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// All returns agents in registration order.
func (r *Registry) All() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// Fallback returns the registered fallback agent, or nil.
func (r *Registry) Fallback() *Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if r.agents[id].Fallback {
			return r.agents[id]
		}
	}
	return nil
}

// NewDefaultRegistry builds the standard advisory bench.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(&Agent{
		ID:          "strategy",
		DisplayName: "Strategy Advisor",
		Topics: []string{
			"strategy", "positioning", "moat", "differentiation", "vision",
			"roadmap", "pivot", "expansion", "partnership", "go-to-market", "gtm",
		},
		Profile:      model.ProfileReasoningHeavy,
		SystemPrompt: "You are a startup strategy advisor. Ground every recommendation in the venture's verified knowledge and cite your sources.",
	})

	r.Register(&Agent{
		ID:          "market",
		DisplayName: "Market Analyst",
		Topics: []string{
			"market", "tam", "sam", "som", "competitor", "competition",
			"customer", "icp", "segment", "demand", "trend", "pricing",
		},
		Tools:        []string{"market_sizing", "competitor_lookup"},
		Profile:      model.ProfileToolUsing,
		SystemPrompt: "You are a market analyst for early-stage ventures. Quantify claims and flag assumptions that lack evidence.",
	})

	r.Register(&Agent{
		ID:          "financial",
		DisplayName: "Financial Advisor",
		Topics: []string{
			"revenue", "arr", "mrr", "burn", "runway", "margin", "unit",
			"economics", "cac", "ltv", "valuation", "funding", "raise", "dilution",
			"forecast", "model",
		},
		Tools:         []string{"financial_model", "scenario_calc"},
		ArtifactKinds: []string{model.ArtifactKindFinancialModel},
		Profile:       model.ProfileToolUsing,
		SystemPrompt:  "You are a startup finance advisor. Be precise with figures and state the basis for every projection.",
	})

	r.Register(&Agent{
		ID:          "product",
		DisplayName: "Product Advisor",
		Topics: []string{
			"product", "feature", "mvp", "launch", "retention", "activation",
			"onboarding", "feedback", "iteration", "metric", "engagement",
		},
		Profile:      model.ProfileReasoningHeavy,
		SystemPrompt: "You are a product advisor. Tie every suggestion to user evidence and measurable outcomes.",
	})

	r.Register(&Agent{
		ID:          "pitch",
		DisplayName: "Pitch Coach",
		Topics: []string{
			"pitch", "deck", "narrative", "story", "investor", "slide",
			"memo", "one-pager", "summary",
		},
		ArtifactKinds: []string{model.ArtifactKindPitchDeck, model.ArtifactKindOnePager, model.ArtifactKindMemo},
		Profile:       model.ProfileWritingPolish,
		SystemPrompt:  "You are a pitch coach. Write tight, investor-ready prose in the venture's voice.",
	})

	r.Register(&Agent{
		ID:           "generalist",
		DisplayName:  "General Advisor",
		Topics:       []string{},
		Profile:      model.ProfileDefault,
		SystemPrompt: "You are a general startup advisor. Answer clearly and defer deep specialist questions to the bench.",
		Fallback:     true,
	})

	return r
}
