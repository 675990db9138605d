package eventqueue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/app/repository"
	"github.com/ManuelReschke/TextFox/internal/pkg/summarize"
)

const (
	testPhone       = "4915112345678"
	testCheckout    = "https://textfox.lemonsqueezy.com/checkout/buy/abc"
	meaningfulText  = "please summarize this long article about queue design for me"
	testTosVersion  = "2025-01"
	testFreeQuota   = 3
	testFingerprint = "f1e2d3c4b5a697887766554433221100f1e2d3c4b5a697887766554433221100"
)

type sentMessage struct {
	Recipient string
	Body      string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendText(_ context.Context, recipient, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{Recipient: recipient, Body: body})
	return nil
}

func (f *fakeSender) lastBody(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("expected a reply, none was sent")
	}
	return f.sent[len(f.sent)-1].Body
}

type fakeSummarizer struct {
	calls int
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (*summarize.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &summarize.Result{
		Text:        "a short summary",
		Model:       "gpt-4o-mini",
		InputChars:  len(text),
		Fingerprint: testFingerprint,
	}, nil
}

type testPipeline struct {
	repos      *repository.Repositories
	sender     *fakeSender
	summarizer *fakeSummarizer
	chat       *ChatProcessor
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.InboundEvent{},
		&models.User{},
		&models.Subscription{},
		&models.Summary{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repos := repository.NewRepositories(db)
	sender := &fakeSender{}
	summarizer := &fakeSummarizer{}
	chat := NewChatProcessor(repos, summarizer, sender, testFreeQuota, testCheckout, testTosVersion)
	return &testPipeline{repos: repos, sender: sender, summarizer: summarizer, chat: chat}
}

// compliantUser creates a user whose privacy notice already went out, so
// messages reach the quota and summarization stages.
func (p *testPipeline) compliantUser(t *testing.T) *models.User {
	t.Helper()
	user, _, err := p.repos.User.GetOrCreateByPhone(testPhone, testFreeQuota)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := p.repos.User.ClaimPrivacyNotice(testPhone, time.Now()); err != nil {
		t.Fatalf("claim notice: %v", err)
	}
	return user
}

func chatEvent(text string) *models.InboundEvent {
	return &models.InboundEvent{
		Provider:        string(models.ProviderWhatsApp),
		ProviderEventID: "wamid.test",
		EventType:       "message",
		Sender:          testPhone,
		MessageType:     "text",
		TextBody:        text,
	}
}

func TestStopFromUnknownSender(t *testing.T) {
	p := newTestPipeline(t)

	err := p.chat.Process(context.Background(), chatEvent("STOP"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	user, err := p.repos.User.GetByPhone(testPhone)
	if err != nil {
		t.Fatalf("user must have been created: %v", err)
	}
	assert.True(t, user.IsBlocked())
	assert.Contains(t, p.sender.lastBody(t), "opted out")
	assert.Zero(t, p.summarizer.calls, "no summary for a STOP")
}

func TestStartUnblocks(t *testing.T) {
	p := newTestPipeline(t)
	user := p.compliantUser(t)
	_ = p.repos.User.SetStatus(user.ID, models.USER_STATUS_BLOCKED)

	if err := p.chat.Process(context.Background(), chatEvent("START")); err != nil {
		t.Fatalf("process: %v", err)
	}

	stored, _ := p.repos.User.GetByPhone(testPhone)
	assert.False(t, stored.IsBlocked())
}

func TestBlockedUserTextIsDroppedSilently(t *testing.T) {
	p := newTestPipeline(t)
	user := p.compliantUser(t)
	_ = p.repos.User.SetStatus(user.ID, models.USER_STATUS_BLOCKED)

	if err := p.chat.Process(context.Background(), chatEvent(meaningfulText)); err != nil {
		t.Fatalf("process: %v", err)
	}
	assert.Empty(t, p.sender.sent)
	assert.Zero(t, p.summarizer.calls)
}

func TestFirstMessageSendsPrivacyNoticeNotSummary(t *testing.T) {
	p := newTestPipeline(t)

	if err := p.chat.Process(context.Background(), chatEvent(meaningfulText)); err != nil {
		t.Fatalf("process: %v", err)
	}

	assert.Contains(t, p.sender.lastBody(t), "STOP to opt out")
	assert.Zero(t, p.summarizer.calls, "the first inbound message never produces a summary")

	user, _ := p.repos.User.GetByPhone(testPhone)
	assert.NotNil(t, user.PrivacyNoticeSentAt)
	assert.Equal(t, testFreeQuota, user.FreeRemaining)
}

func TestMeaningfulMessageIsSummarizedAndCharged(t *testing.T) {
	p := newTestPipeline(t)
	user := p.compliantUser(t)

	if err := p.chat.Process(context.Background(), chatEvent(meaningfulText)); err != nil {
		t.Fatalf("process: %v", err)
	}

	assert.Equal(t, 1, p.summarizer.calls)
	assert.Equal(t, "a short summary", p.sender.lastBody(t))

	stored, _ := p.repos.User.GetByPhone(testPhone)
	assert.Equal(t, testFreeQuota-1, stored.FreeRemaining)

	count, err := p.repos.Summary.CountByUserID(user.ID)
	if err != nil {
		t.Fatalf("count summaries: %v", err)
	}
	assert.EqualValues(t, 1, count)
}

func TestShortChatterIsNotSummarized(t *testing.T) {
	p := newTestPipeline(t)
	p.compliantUser(t)

	if err := p.chat.Process(context.Background(), chatEvent("thanks")); err != nil {
		t.Fatalf("process: %v", err)
	}

	assert.Zero(t, p.summarizer.calls)
	assert.Contains(t, p.sender.lastBody(t), "longer text")

	stored, _ := p.repos.User.GetByPhone(testPhone)
	assert.Equal(t, testFreeQuota, stored.FreeRemaining, "short chatter must not burn quota")
}

func TestPaywallAtZeroFreeRemaining(t *testing.T) {
	p := newTestPipeline(t)
	user := p.compliantUser(t)
	for i := 0; i < testFreeQuota; i++ {
		_, _ = p.repos.User.DecrementFreeRemaining(user.ID)
	}

	if err := p.chat.Process(context.Background(), chatEvent(meaningfulText)); err != nil {
		t.Fatalf("process: %v", err)
	}

	assert.Zero(t, p.summarizer.calls, "paywall must fire before any summarization work")
	body := p.sender.lastBody(t)
	assert.Contains(t, body, "used up")
	assert.Contains(t, body, testCheckout)

	stored, _ := p.repos.User.GetByPhone(testPhone)
	assert.Equal(t, 0, stored.FreeRemaining)
}

func TestProUserIsNeverPaywalled(t *testing.T) {
	p := newTestPipeline(t)
	user := p.compliantUser(t)
	_ = p.repos.User.SetPlanByID(user.ID, "pro")
	for i := 0; i < testFreeQuota; i++ {
		_, _ = p.repos.User.DecrementFreeRemaining(user.ID)
	}

	if err := p.chat.Process(context.Background(), chatEvent(meaningfulText)); err != nil {
		t.Fatalf("process: %v", err)
	}

	assert.Equal(t, 1, p.summarizer.calls)
	stored, _ := p.repos.User.GetByPhone(testPhone)
	assert.Equal(t, testFreeQuota, stored.FreeRemaining, "pro plans are not metered")
}

func TestLangCommand(t *testing.T) {
	p := newTestPipeline(t)
	p.compliantUser(t)
	ctx := context.Background()

	if err := p.chat.Process(ctx, chatEvent("LANG AR")); err != nil {
		t.Fatalf("process: %v", err)
	}
	assert.Equal(t, "language: ar", p.sender.lastBody(t))

	stored, _ := p.repos.User.GetByPhone(testPhone)
	assert.Equal(t, models.LangArabic, stored.Lang)

	// Unsupported codes reply with the specific error and mutate nothing.
	if err := p.chat.Process(ctx, chatEvent("LANG KLINGON")); err != nil {
		t.Fatalf("process: %v", err)
	}
	assert.Contains(t, p.sender.lastBody(t), "Unsupported language")

	stored, _ = p.repos.User.GetByPhone(testPhone)
	assert.Equal(t, models.LangArabic, stored.Lang)
}

func TestStatusCommandReportsPlanQuotaAndLang(t *testing.T) {
	p := newTestPipeline(t)
	p.compliantUser(t)

	if err := p.chat.Process(context.Background(), chatEvent("STATUS")); err != nil {
		t.Fatalf("process: %v", err)
	}

	body := p.sender.lastBody(t)
	assert.Contains(t, body, "plan: free")
	assert.Contains(t, body, "free summaries left: 3")
	assert.Contains(t, body, "language: auto")
}

func TestPayCommandEmbedsUserCorrelation(t *testing.T) {
	p := newTestPipeline(t)
	p.compliantUser(t)

	if err := p.chat.Process(context.Background(), chatEvent("PAY")); err != nil {
		t.Fatalf("process: %v", err)
	}

	body := p.sender.lastBody(t)
	assert.Contains(t, body, testCheckout)
	assert.Contains(t, body, "user_id")
	assert.Contains(t, body, testPhone)
}

func TestDeleteResetsPreferences(t *testing.T) {
	p := newTestPipeline(t)
	user := p.compliantUser(t)
	_ = p.repos.User.SetLang(user.ID, models.LangSpanish)
	_, _ = p.repos.User.DecrementFreeRemaining(user.ID)

	if err := p.chat.Process(context.Background(), chatEvent("DELETE")); err != nil {
		t.Fatalf("process: %v", err)
	}

	stored, _ := p.repos.User.GetByPhone(testPhone)
	assert.Equal(t, models.LangAuto, stored.Lang)
	assert.Equal(t, testFreeQuota, stored.FreeRemaining)
	assert.NotNil(t, stored.PrivacyNoticeSentAt, "the account and its consent record survive")
}

func TestSummarizerFailureStaysSilentAndRetryable(t *testing.T) {
	p := newTestPipeline(t)
	p.compliantUser(t)
	p.summarizer.err = errors.New("rate limited")

	err := p.chat.Process(context.Background(), chatEvent(meaningfulText))
	assert.Error(t, err, "a failed summary must surface so the queue can retry")
	assert.Empty(t, p.sender.sent, "internal errors never leak to the user")

	stored, _ := p.repos.User.GetByPhone(testPhone)
	assert.Equal(t, testFreeQuota, stored.FreeRemaining, "no charge without a delivered summary")
}

func TestSendFailureSurfacesAsError(t *testing.T) {
	p := newTestPipeline(t)
	p.compliantUser(t)
	p.sender.err = errors.New("graph api: 500")

	err := p.chat.Process(context.Background(), chatEvent(meaningfulText))
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "send reply"))
}
