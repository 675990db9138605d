package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/app/repository"
	"github.com/ManuelReschke/TextFox/internal/pkg/billing"
	"github.com/ManuelReschke/TextFox/internal/pkg/database"
	"github.com/ManuelReschke/TextFox/internal/pkg/env"
	"github.com/ManuelReschke/TextFox/internal/pkg/whatsapp"
)

// Fast-ack contract: both webhook handlers respond as soon as the
// signature checks out. Extraction and the event store insert happen out
// of band, and a degraded store must never turn into a 5xx for the
// webhook caller.

// HandleChatWebhookVerify answers the Meta subscription handshake
// (GET with hub.mode / hub.verify_token / hub.challenge).
func HandleChatWebhookVerify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode == "subscribe" && token != "" && token == env.GetEnv("WHATSAPP_VERIFY_TOKEN", "") {
		return c.Status(fiber.StatusOK).SendString(c.Query("hub.challenge"))
	}
	return c.SendStatus(fiber.StatusForbidden)
}

// HandleChatWebhook ingests WhatsApp message deliveries. Signature
// verification runs only when WHATSAPP_APP_SECRET is configured.
func HandleChatWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	if secret := env.GetEnv("WHATSAPP_APP_SECRET", ""); secret != "" {
		if !whatsapp.VerifyWebhookSignature(rawBody, c.Get("X-Hub-Signature-256"), secret) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
		}
	}

	go ingestChatPayload(rawBody)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// HandleBillingWebhook ingests Lemon Squeezy events. The raw body is
// required pre-parse for the HMAC check; bad signatures are rejected with
// 401 and never enqueued.
func HandleBillingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	secret := env.GetEnv("LEMONSQUEEZY_WEBHOOK_SECRET", "")

	if !billing.VerifyWebhookSignature(rawBody, c.Get("X-Signature"), secret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	eventName := strings.TrimSpace(c.Get("X-Event-Name"))
	eventID := firstHeaderValue(c, "X-Event-Id", "X-Event-ID")
	go ingestBillingPayload(rawBody, eventName, eventID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// HandleHealth is the unauthenticated liveness check.
func HandleHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func ingestChatPayload(rawBody []byte) {
	inbound, err := whatsapp.ExtractInbound(rawBody)
	if err != nil {
		if errors.Is(err, whatsapp.ErrNotActionable) {
			log.Debugf("[Webhook] chat payload not actionable, dropped")
		} else {
			log.Warnf("[Webhook] malformed chat payload dropped: %v", err)
		}
		return
	}
	if inbound.Kind != whatsapp.KindMessage {
		// Delivery receipts and other status changes are acked but never
		// enqueued.
		return
	}

	created, _, err := eventRepo().Insert(&models.InboundEvent{
		Provider:          string(models.ProviderWhatsApp),
		ProviderEventID:   inbound.MessageID,
		EventType:         string(inbound.Kind),
		PayloadHash:       payloadHash(rawBody),
		Sender:            inbound.Sender,
		MessageType:       inbound.MessageType,
		TextBody:          inbound.Text,
		ProviderTimestamp: inbound.Timestamp,
	})
	if err != nil {
		log.Errorf("[Webhook] chat event insert failed: %v", err)
		return
	}
	if !created {
		log.Debugf("[Webhook] duplicate chat event %s dropped", inbound.MessageID)
	}
}

func ingestBillingPayload(rawBody []byte, eventName, eventID string) {
	hash := payloadHash(rawBody)
	if eventID == "" {
		// Lemon Squeezy sends no delivery id header; the body hash still
		// dedupes byte-identical redeliveries.
		eventID = hash
	}
	if eventName == "" {
		eventName = "unknown"
	}

	created, _, err := eventRepo().Insert(&models.InboundEvent{
		Provider:        string(models.ProviderLemonSqueezy),
		ProviderEventID: eventID,
		EventType:       eventName,
		PayloadHash:     hash,
		TextBody:        string(rawBody),
	})
	if err != nil {
		log.Errorf("[Webhook] billing event insert failed: %v", err)
		return
	}
	if !created {
		log.Debugf("[Webhook] duplicate billing event %s dropped", eventID)
	}
}

var (
	repoFactory     *repository.Factory
	repoFactoryOnce sync.Once
)

func eventRepo() repository.EventRepository {
	repoFactoryOnce.Do(func() {
		repoFactory = repository.NewFactory(database.GetDB())
	})
	return repoFactory.GetEventRepository()
}

func payloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}
