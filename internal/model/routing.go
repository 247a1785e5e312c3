package model

// Model profiles a routed turn can demand. The profile picks the model
// tier, independent of which agent handles the turn.
const (
	ProfileReasoningHeavy = "reasoning-heavy"
	ProfileWritingPolish  = "writing-polish"
	ProfileToolUsing      = "tool-using"
	ProfileFastResponse   = "fast-response"
	ProfileDefault        = "default"
)

// RoutingPlan is the routing decision for one turn. It is persisted as
// JSON alongside the assistant message and emitted as the first stream
// event, so a turn's agent choice is always auditable. Plans are never
// mutated after creation.
type RoutingPlan struct {
	AgentID string `json:"agent_id"`

	// FallbackAgentID differs from AgentID whenever Confidence sits
	// below the routing threshold.
	FallbackAgentID string `json:"fallback_agent_id,omitempty"`

	Profile string `json:"profile"`

	// Tools is the whitelist of tool capabilities the turn may invoke.
	Tools []string `json:"tools,omitempty"`

	// ArtifactNeeded marks turns whose intent is producing a deliverable.
	ArtifactNeeded bool `json:"artifact_needed,omitempty"`

	// Confidence is the normalized margin between the top two scores, 0..1.
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`

	Reasoning string `json:"reasoning,omitempty"`

	// Overridden marks plans where the caller forced the agent.
	Overridden bool `json:"overridden,omitempty"`

	// LatencyMS is the time the scoring pass took.
	LatencyMS int64 `json:"latency_ms"`
}

// Citation points an assistant statement back at retrieved context.
type Citation struct {
	ChunkID    string  `json:"chunk_id,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	EntityID   string  `json:"entity_id,omitempty"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
}
