package ws

const (
	// server - client
	EventSnapshot         = "snapshot"
	EventChallengeExpired = "challenge_expired"
	EventRoundResolved    = "round_resolved"
	EventMatchCompleted   = "match_completed"
	EventError            = "error"
)
