package quota

import (
	"strings"
	"unicode/utf8"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/internal/pkg/entitlements"
)

const (
	// MinMeaningfulChars and MinMeaningfulTokens gate quota consumption so
	// single-word chatter does not burn free units.
	MinMeaningfulChars  = 20
	MinMeaningfulTokens = 4
)

// IsMeaningful reports whether the text is substantial enough to consume a
// quota unit.
func IsMeaningful(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinMeaningfulChars {
		return false
	}
	return len(strings.Fields(trimmed)) >= MinMeaningfulTokens
}

// Decision is the paywall verdict for one message.
type Decision int

const (
	// DecisionSkip means the text is not meaningful; reply conversationally
	// without touching quota.
	DecisionSkip Decision = iota
	// DecisionAllow means the message may be summarized. Free users are
	// charged one unit on success.
	DecisionAllow
	// DecisionPaywall means the free quota is exhausted; send an upgrade
	// prompt and never call the summarization client.
	DecisionPaywall
)

// Check runs the paywall strictly before any summarization work.
func Check(user *models.User, text string) Decision {
	if !IsMeaningful(text) {
		return DecisionSkip
	}
	if entitlements.IsPaid(user.Plan) {
		return DecisionAllow
	}
	if user.FreeRemaining <= 0 {
		return DecisionPaywall
	}
	return DecisionAllow
}

// ChargeOnSuccess reports whether a successful summary should decrement
// the user's free counter. Paid plans are never metered.
func ChargeOnSuccess(user *models.User) bool {
	return !entitlements.IsPaid(user.Plan)
}
