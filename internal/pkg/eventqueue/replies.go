package eventqueue

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/internal/pkg/entitlements"
)

// Reply texts live here in one place. Confirmations use a language-neutral
// "key: value" format so they read the same whatever the user's lang
// preference is.

const privacyNoticeReply = "Welcome! I turn long texts into short summaries. " +
	"Your messages are processed automatically and not shared with anyone. " +
	"Reply HELP for commands, STOP to opt out. By continuing you accept our terms of service."

const helpReply = "Commands:\n" +
	"HELP - this list\n" +
	"STATUS - plan and remaining free summaries\n" +
	"PAY - upgrade to pro\n" +
	"LANG <AUTO|EN|AR|ES> - set language\n" +
	"FEEDBACK - how to reach us\n" +
	"STOP - opt out, START - opt back in\n" +
	"DELETE - reset stored preferences\n" +
	"Current language: %s"

const feedbackReply = "We read everything: send your feedback as a normal message starting with the word FEEDBACK, " +
	"or mail feedback@textfox.app."

const stopReply = "You are opted out. No more messages will be processed. Send START to opt back in."

const startReply = "Welcome back. Send me any text and I will summarize it."

const deleteReply = "Your preferences and counters were reset."

const tooShortReply = "Send me a longer text (a few sentences at least) and I will summarize it."

const paywallReply = "Your free summaries are used up. Upgrade to pro for unlimited summaries: %s"

const payReply = "Upgrade to pro here: %s"

const langUsageReply = "Usage: LANG <AUTO|EN|AR|ES>"

const langInvalidReply = "Unsupported language %q. Supported: AUTO, EN, AR, ES."

const langUpdatedReply = "language: %s"

func statusReply(user *models.User) string {
	plan := string(entitlements.NormalizePlan(user.Plan))
	var b strings.Builder
	fmt.Fprintf(&b, "plan: %s\n", plan)
	if !entitlements.IsPaid(user.Plan) {
		fmt.Fprintf(&b, "free summaries left: %d\n", user.FreeRemaining)
	}
	fmt.Fprintf(&b, "language: %s", user.Lang)
	return b.String()
}

// checkoutLink embeds the user's identifier as opaque custom data so the
// billing webhook can be correlated back later, plus a fresh reference id.
func checkoutLink(baseURL string, user *models.User) string {
	if baseURL == "" {
		return "(checkout is not configured yet)"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	q := u.Query()
	q.Set("checkout[custom][user_id]", user.Phone)
	q.Set("checkout[custom][ref]", uuid.NewString())
	u.RawQuery = q.Encode()
	return u.String()
}
