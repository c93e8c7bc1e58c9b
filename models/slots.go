package models

// Slot is a bookable start time. WorkerID is the worker the slot would be
// assigned to, empty when the site has no workers configured.
type Slot struct {
	Time     string `json:"time"`
	End      string `json:"end"`
	WorkerID string `json:"workerId,omitempty"`
}

// RateLimitCounter is one fixed window of requests for a hashed key.
type RateLimitCounter struct {
	Key         string `json:"key"`
	Count       int64  `json:"count"`
	WindowStart int64  `json:"windowStart"` // unix millis
}

// RateLimitDecision is the outcome of a rate limit check.
type RateLimitDecision struct {
	Allowed      bool  `json:"allowed"`
	RetryAfterMs int64 `json:"retryAfterMs,omitempty"`
}
