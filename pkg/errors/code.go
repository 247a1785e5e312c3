package errors

// Service codes (AA of AABBCCC).
const (
	ServiceCommon  = 0  // shared, cross-service errors
	ServiceAdvisor = 30 // advisory decision core
)

// Category codes (BB of AABBCCC).
const (
	CategoryGeneral    = 0  // uncategorized
	CategoryValidation = 1  // request validation
	CategoryAuth       = 2  // authentication / authorization
	CategoryNotFound   = 3  // missing resources
	CategoryConflict   = 4  // state conflicts
	CategoryDatabase   = 5  // persistence layer
	CategoryUpstream   = 6  // upstream providers (LLM, vector store)
	CategoryRouting    = 7  // agent / model routing
	CategoryRetrieval  = 8  // retrieval engine
	CategoryKnowledge  = 9  // knowledge graph lifecycle
	CategoryStream     = 10 // streaming coordinator
	CategoryArtifact   = 11 // artifact version store
)

// MakeCode composes a 7-digit error code from service, category and sequence.
func MakeCode(service, category, seq int) int {
	return service*100000 + category*1000 + seq
}
