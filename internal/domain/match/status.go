package match

import "strings"

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusLive      Status = "LIVE"
	StatusFinished  Status = "FINISHED"
	StatusPostponed Status = "POSTPONED"
	StatusCancelled Status = "CANCELLED"
)

// NormalizeStatus maps provider status vocabulary onto the canonical set.
// Unknown values fall back to SCHEDULED.
func NormalizeStatus(value string) Status {
	status := strings.ToUpper(strings.TrimSpace(value))
	status = strings.ReplaceAll(status, " ", "_")
	switch status {
	case "", "SCHEDULED", "NS", "NOT_STARTED", "PRE", "TBD", "TIMED", "UPCOMING", "STATUS_SCHEDULED":
		return StatusScheduled
	case "LIVE", "IN_PLAY", "INPLAY", "IN_PROGRESS", "IN", "HT", "HALFTIME", "HALF_TIME", "1H", "2H", "ET", "BREAK",
		"STATUS_IN_PROGRESS", "STATUS_HALFTIME", "STATUS_END_PERIOD":
		return StatusLive
	case "FINISHED", "FT", "FINAL", "POST", "AET", "PEN", "ENDED", "COMPLETED", "FULL_TIME", "STATUS_FINAL", "STATUS_FULL_TIME":
		return StatusFinished
	case "POSTPONED", "PST", "DELAYED", "SUSPENDED", "STATUS_POSTPONED", "STATUS_DELAYED":
		return StatusPostponed
	case "CANCELLED", "CANCELED", "CANC", "ABANDONED", "ABD", "STATUS_CANCELED", "STATUS_ABANDONED":
		return StatusCancelled
	}
	if strings.HasPrefix(status, "Q") || strings.HasSuffix(status, "_QUARTER") || strings.HasSuffix(status, "_INNING") {
		return StatusLive
	}
	return StatusScheduled
}

// ParseStatus accepts only canonical values, case-insensitively.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusScheduled:
		return StatusScheduled, true
	case StatusLive:
		return StatusLive, true
	case StatusFinished:
		return StatusFinished, true
	case StatusPostponed:
		return StatusPostponed, true
	case StatusCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

// Rank orders lifecycle progress: scheduled < live < finished.
// Postponed and cancelled carry no progress and rank lowest.
func (s Status) Rank() int {
	switch s {
	case StatusScheduled:
		return 1
	case StatusLive:
		return 2
	case StatusFinished:
		return 3
	default:
		return 0
	}
}

// MoreAdvancedThan reports whether s is strictly further along than other.
func (s Status) MoreAdvancedThan(other Status) bool {
	return s.Rank() > other.Rank()
}

func (s Status) HasScore() bool {
	return s == StatusLive || s == StatusFinished
}

func (s Status) String() string {
	return string(s)
}
