// Package classifier routes user messages to an answer source by keyword membership.
package classifier

import (
	"strings"
)

// Intent is the routing category derived from a user message.
type Intent int

const (
	// IntentGeneral is the default intent when no keyword list matches.
	IntentGeneral Intent = iota
	// IntentRules routes to the rulebook knowledge base.
	IntentRules
	// IntentPartsOrSchedule routes to the dynamic-data server.
	IntentPartsOrSchedule
	// IntentHybrid routes to both the rulebook and the dynamic-data server.
	IntentHybrid
)

// String returns the wire name of the intent.
func (i Intent) String() string {
	switch i {
	case IntentRules:
		return "rules"
	case IntentPartsOrSchedule:
		return "parts_or_schedule"
	case IntentHybrid:
		return "hybrid"
	default:
		return "general"
	}
}

// Keyword lists for each intent. Hybrid is checked before the others so that
// composite questions ("help me build a legal car") are not mis-routed to a
// single source. The precedence order must not change.
var (
	hybridKeywords  = []string{"build", "car", "setup", "recommend"}
	rulesKeywords   = []string{"rulebook", "regulation", "legal", "allowed", "requirement", "spec", "rule"}
	dynamicKeywords = []string{"part", "price", "schedule", "race", "event", "upcoming", "cost"}
)

// Classify maps a raw user message to exactly one intent. Matching is
// case-insensitive substring membership; the first matching list wins.
// Classify is a pure function of the message text and always returns a value.
func Classify(message string) Intent {
	m := strings.ToLower(message)

	switch {
	case containsAny(m, hybridKeywords):
		return IntentHybrid
	case containsAny(m, rulesKeywords):
		return IntentRules
	case containsAny(m, dynamicKeywords):
		return IntentPartsOrSchedule
	default:
		return IntentGeneral
	}
}

func containsAny(message string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}
