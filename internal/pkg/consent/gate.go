package consent

import (
	"time"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/app/repository"
	"github.com/ManuelReschke/TextFox/internal/pkg/commands"
)

// Outcome is the gate's verdict for one inbound message.
type Outcome int

const (
	// OutcomeProceed means the user is compliant and the message may move
	// on to the quota and summarization stages.
	OutcomeProceed Outcome = iota
	// OutcomeBlocked means the user opted out; drop the message silently.
	OutcomeBlocked
	// OutcomeCommand means a high-priority command short-circuited the
	// gate; route straight to the command handler.
	OutcomeCommand
	// OutcomeNoticeClaimed means this worker won the one-time privacy
	// notice claim; the caller must send the notice text and stop. The
	// first inbound message never produces a summary.
	OutcomeNoticeClaimed
	// OutcomeNoticePending means a concurrent worker already claimed the
	// notice for this user; stop without replying.
	OutcomeNoticePending
)

// Gate enforces the legal consent state machine in front of the
// summarization pipeline. Set-once fields are claimed via conditional
// updates, never read-then-write, so racing workers cannot both win.
type Gate struct {
	users      repository.UserRepository
	tosVersion string
}

func NewGate(users repository.UserRepository, tosVersion string) *Gate {
	return &Gate{users: users, tosVersion: tosVersion}
}

// Check runs the state machine for one message. cmd is the already-parsed
// command for the message text (KindNone when it is ordinary text).
func (g *Gate) Check(user *models.User, cmd commands.Command, now time.Time) (Outcome, error) {
	// Opt-out and account queries must always work, even before any
	// notice went out and even for blocked users (START has to get in).
	if commands.IsPriority(cmd) {
		return OutcomeCommand, nil
	}

	if user.IsBlocked() {
		return OutcomeBlocked, nil
	}

	if user.PrivacyNoticeSentAt == nil {
		claimed, err := g.users.ClaimPrivacyNotice(user.Phone, now)
		if err != nil {
			return OutcomeNoticePending, err
		}
		if claimed {
			return OutcomeNoticeClaimed, nil
		}
		return OutcomeNoticePending, nil
	}

	// Terms acceptance is recorded on the first qualifying message after
	// notice delivery. Losing the claim race or failing outright degrades
	// to implied acceptance and never blocks processing.
	if user.TosAcceptedAt == nil {
		if _, err := g.users.ClaimTosAccepted(user.Phone, g.tosVersion, now); err != nil {
			return OutcomeProceed, err
		}
	}

	return OutcomeProceed, nil
}
