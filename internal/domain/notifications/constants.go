package notifications

// Target kinds determine which push tokens a notification is addressed to.
type Target string

const (
	TargetAll      Target = "ALL"
	TargetSingle   Target = "SINGLE"
	TargetDistrict Target = "DISTRICT"
	TargetStation  Target = "STATION"
	TargetAdmin    Target = "ADMIN"
)

// Queue audit statuses, matching the processing pipeline's outcomes.
const (
	StatusQueued         = "queued"
	StatusProcessed      = "processed"
	StatusPartialSuccess = "partial_success"
	StatusNoRecipients   = "no_recipients"
	StatusNoTokens       = "no_tokens"
	StatusInvalidParams  = "invalid_params"
	StatusFailed         = "failed"
)

// FCM caps multicast sends at 500 tokens per call.
const batchSize = 500
