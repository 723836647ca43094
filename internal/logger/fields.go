package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Tracing Fields (Context level)
// Propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldConversationID is the conversation record ID
	FieldConversationID = "conversation_id"

	// FieldCheckID is the drift check ID
	FieldCheckID = "check_id"

	// FieldMethod is the dimensionality-reduction method
	FieldMethod = "method"
)

// ============================================
// Metric Fields (Entry level)
// Used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSimilarity is a cosine similarity score
	FieldSimilarity = "similarity"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
