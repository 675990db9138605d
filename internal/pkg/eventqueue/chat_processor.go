package eventqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/app/repository"
	"github.com/ManuelReschke/TextFox/internal/pkg/commands"
	"github.com/ManuelReschke/TextFox/internal/pkg/consent"
	"github.com/ManuelReschke/TextFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/TextFox/internal/pkg/env"
	"github.com/ManuelReschke/TextFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/TextFox/internal/pkg/quota"
	"github.com/ManuelReschke/TextFox/internal/pkg/summarize"
)

// Sender abstracts the outbound chat channel so the processor is testable
// without the Graph API.
type Sender interface {
	SendText(ctx context.Context, recipient, body string) error
}

// Summarizer abstracts the external summarization client.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*summarize.Result, error)
}

// ChatProcessor handles one claimed WhatsApp event end to end: consent
// gate, command protocol, paywall, summarization, outbound reply.
type ChatProcessor struct {
	users       repository.UserRepository
	summaries   repository.SummaryRepository
	gate        *consent.Gate
	summarizer  Summarizer
	sender      Sender
	freeQuota   int
	checkoutURL string
}

// NewChatProcessor wires the chat pipeline from injected collaborators.
func NewChatProcessor(repos *repository.Repositories, summarizer Summarizer, sender Sender, freeQuota int, checkoutURL, tosVersion string) *ChatProcessor {
	return &ChatProcessor{
		users:       repos.User,
		summaries:   repos.Summary,
		gate:        consent.NewGate(repos.User, tosVersion),
		summarizer:  summarizer,
		sender:      sender,
		freeQuota:   freeQuota,
		checkoutURL: checkoutURL,
	}
}

// NewChatProcessorFromEnv builds the production wiring.
func NewChatProcessorFromEnv(repos *repository.Repositories, summarizer Summarizer, sender Sender) *ChatProcessor {
	return NewChatProcessor(
		repos,
		summarizer,
		sender,
		env.GetEnvInt("FREE_TIER_QUOTA", entitlements.DefaultFreeQuota),
		env.GetEnv("LEMONSQUEEZY_CHECKOUT_URL", ""),
		env.GetEnv("TOS_VERSION", "1"),
	)
}

// Process runs one claimed chat event. Consent-gate and quota outcomes
// reply to the sender; internal failures return an error and stay silent
// so the queue can retry without leaking internals to the user.
func (p *ChatProcessor) Process(ctx context.Context, ev *models.InboundEvent) error {
	if ev.Sender == "" || ev.TextBody == "" {
		// Nothing actionable survived extraction; done.
		return nil
	}

	user, created, err := p.users.GetOrCreateByPhone(ev.Sender, p.freeQuota)
	if err != nil {
		return fmt.Errorf("get or create user: %w", err)
	}
	if created {
		log.Debugf("[ChatProcessor] created user %d for new sender", user.ID)
	}

	cmd := commands.Parse(ev.TextBody)
	outcome, err := p.gate.Check(user, cmd, time.Now())
	if err != nil && outcome != consent.OutcomeProceed {
		return fmt.Errorf("consent gate: %w", err)
	}
	if err != nil {
		// ToS claim failures degrade to implied acceptance.
		log.Warnf("[ChatProcessor] tos claim failed for user %d: %v", user.ID, err)
	}

	switch outcome {
	case consent.OutcomeBlocked, consent.OutcomeNoticePending:
		return nil
	case consent.OutcomeNoticeClaimed:
		return p.reply(ctx, ev.Sender, privacyNoticeReply)
	case consent.OutcomeCommand:
		return p.handleCommand(ctx, user, cmd)
	}

	// Non-priority commands (currently only LANG) still run after the gate.
	if cmd.IsCommand() {
		return p.handleCommand(ctx, user, cmd)
	}

	return p.summarizeAndReply(ctx, user, ev.TextBody)
}

func (p *ChatProcessor) handleCommand(ctx context.Context, user *models.User, cmd commands.Command) error {
	switch cmd.Kind {
	case commands.KindHelp:
		return p.reply(ctx, user.Phone, fmt.Sprintf(helpReply, user.Lang))
	case commands.KindStatus:
		return p.reply(ctx, user.Phone, statusReply(user))
	case commands.KindPay:
		return p.reply(ctx, user.Phone, fmt.Sprintf(payReply, checkoutLink(p.checkoutURL, user)))
	case commands.KindStop, commands.KindPause:
		if err := p.users.SetStatus(user.ID, models.USER_STATUS_BLOCKED); err != nil {
			return fmt.Errorf("block user: %w", err)
		}
		return p.reply(ctx, user.Phone, stopReply)
	case commands.KindStart:
		if err := p.users.SetStatus(user.ID, models.USER_STATUS_ACTIVE); err != nil {
			return fmt.Errorf("unblock user: %w", err)
		}
		return p.reply(ctx, user.Phone, startReply)
	case commands.KindDelete:
		if err := p.users.ResetPreferences(user.ID, p.freeQuota); err != nil {
			return fmt.Errorf("reset preferences: %w", err)
		}
		return p.reply(ctx, user.Phone, deleteReply)
	case commands.KindFeedback:
		return p.reply(ctx, user.Phone, feedbackReply)
	case commands.KindLang:
		return p.handleLang(ctx, user, cmd.Arg)
	}
	return nil
}

func (p *ChatProcessor) handleLang(ctx context.Context, user *models.User, code string) error {
	if code == "" {
		return p.reply(ctx, user.Phone, langUsageReply)
	}
	if !models.IsSupportedLang(code) {
		return p.reply(ctx, user.Phone, fmt.Sprintf(langInvalidReply, code))
	}
	if err := p.users.SetLang(user.ID, code); err != nil {
		return fmt.Errorf("set lang: %w", err)
	}
	return p.reply(ctx, user.Phone, fmt.Sprintf(langUpdatedReply, code))
}

func (p *ChatProcessor) summarizeAndReply(ctx context.Context, user *models.User, text string) error {
	switch quota.Check(user, text) {
	case quota.DecisionSkip:
		return p.reply(ctx, user.Phone, tooShortReply)
	case quota.DecisionPaywall:
		return p.reply(ctx, user.Phone, fmt.Sprintf(paywallReply, checkoutLink(p.checkoutURL, user)))
	}

	res, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	if err := p.reply(ctx, user.Phone, res.Text); err != nil {
		return err
	}

	// Bookkeeping after the user already has their summary: log-only on
	// failure, never retry a delivered reply.
	if err := p.summaries.Create(&models.Summary{
		UserID:      user.ID,
		Model:       res.Model,
		InputChars:  res.InputChars,
		SummaryText: res.Text,
		CostUSD:     res.CostUSD,
		Fingerprint: res.Fingerprint,
	}); err != nil {
		log.Errorf("[ChatProcessor] failed to record summary for user %d: %v", user.ID, err)
	}
	count(models.StatSummariesCreated)

	if quota.ChargeOnSuccess(user) {
		if _, err := p.users.DecrementFreeRemaining(user.ID); err != nil {
			log.Errorf("[ChatProcessor] failed to decrement quota for user %d: %v", user.ID, err)
		}
	}
	return nil
}

func (p *ChatProcessor) reply(ctx context.Context, recipient, body string) error {
	if err := p.sender.SendText(ctx, recipient, body); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	count(models.StatRepliesSent)
	return nil
}

// count bumps a pipeline counter; metrics must never fail the pipeline.
func count(name string) {
	if err := counter.Add(name); err != nil {
		log.Debugf("[EventQueue] counter %s: %v", name, err)
	}
}
