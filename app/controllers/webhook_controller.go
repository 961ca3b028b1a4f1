package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coursebridge/coursebridge/internal/pkg/database"
	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
	"github.com/coursebridge/coursebridge/internal/pkg/env"
	"github.com/coursebridge/coursebridge/internal/pkg/reconcile"
)

// HandleMembershipWebhook ingests membership lifecycle notifications. Every
// payload is recorded first so duplicate deliveries short-circuit before any
// reconciliation runs; the idempotent mutator covers the remaining races.
func HandleMembershipWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	eventType := strings.TrimSpace(c.Get("X-Membership-Event"))
	eventID := firstHeaderValue(c, "X-Membership-Delivery", "X-Membership-Event-ID")
	signature := strings.TrimSpace(c.Get("X-Membership-Signature"))
	secret := env.GetEnv("MEMBERSHIP_WEBHOOK_SECRET", "")
	provider := env.GetEnv("MEMBERSHIP_PROVIDER", "membership")

	svc := reconcile.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := reconcile.VerifyWebhookSignature(rawBody, signature, secret)
	created, stored, err := svc.RecordWebhookEvent(ctx, reconcile.WebhookEventInput{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	status, procErr := dispatchMembershipEvent(ctx, svc, eventType, rawBody)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, procErr)
	if procErr != nil {
		code := "reconcile_failed"
		if status == fiber.StatusBadRequest {
			code = "invalid_payload"
		}
		return c.Status(status).JSON(fiber.Map{"error": code})
	}
	return c.Status(status).JSON(fiber.Map{"ok": true})
}

// dispatchMembershipEvent translates one recorded payload into zero or more
// reconciliation invocations. Parse failures and missing user ids are hard
// stops (400); mutation failures surface as 500 so the provider redelivers.
func dispatchMembershipEvent(ctx context.Context, svc *reconcile.Service, eventType string, payload []byte) (int, error) {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case reconcile.EventTypeCheckoutCompleted:
		return handleCheckoutCompleted(ctx, svc, payload)
	case reconcile.EventTypeLevelChanged:
		return handleLevelChanged(ctx, svc, payload)
	case reconcile.EventTypeBatchLevelsChanged:
		return handleBatchLevelsChanged(ctx, svc, payload)
	case reconcile.EventTypeOrderRefunded:
		return handleOrderRefunded(ctx, svc, payload)
	case reconcile.EventTypeEnrollmentObserved:
		return handleEnrollmentObserved(ctx, svc, payload)
	case reconcile.EventTypeResync:
		return handleResync(ctx, svc, payload)
	default:
		// Unknown lifecycle events are recorded and acknowledged.
		return fiber.StatusOK, nil
	}
}

func handleCheckoutCompleted(ctx context.Context, svc *reconcile.Service, payload []byte) (int, error) {
	p, err := reconcile.ParseCheckoutCompleted(payload)
	if err != nil {
		return fiber.StatusBadRequest, err
	}

	purchased := entitlements.LevelID(p.LevelID)
	if ok, err := svc.LevelExists(ctx, purchased); err == nil && !ok {
		// A level unknown to the directory resolves to nothing; the pipeline
		// still runs so prior grants stay consistent.
		log.Printf("checkout for unknown membership level %d (user %d)", p.LevelID, p.UserID)
	}

	// The membership sync may already include the just-purchased level, so
	// it is stripped from the best-effort previous state.
	activeBefore := []entitlements.LevelID{}
	if levels, err := svc.ActiveLevels(ctx, p.UserID); err == nil {
		for _, id := range levels {
			if id != purchased {
				activeBefore = append(activeBefore, id)
			}
		}
	}

	ev, err := reconcile.CheckoutCompleted(p.UserID, purchased, activeBefore)
	if err != nil {
		return fiber.StatusBadRequest, err
	}
	if _, err := svc.Reconcile(ctx, ev); err != nil {
		return fiber.StatusInternalServerError, err
	}
	return fiber.StatusOK, nil
}

func handleLevelChanged(ctx context.Context, svc *reconcile.Service, payload []byte) (int, error) {
	p, err := reconcile.ParseLevelChanged(payload)
	if err != nil {
		return fiber.StatusBadRequest, err
	}
	ev, err := reconcile.LevelChanged(p.UserID, entitlements.LevelID(p.OldLevelID), entitlements.LevelID(p.NewLevelID))
	if err != nil {
		return fiber.StatusBadRequest, err
	}
	if _, err := svc.Reconcile(ctx, ev); err != nil {
		return fiber.StatusInternalServerError, err
	}
	return fiber.StatusOK, nil
}

func handleBatchLevelsChanged(ctx context.Context, svc *reconcile.Service, payload []byte) (int, error) {
	p, err := reconcile.ParseBatchLevelsChanged(payload)
	if err != nil {
		return fiber.StatusBadRequest, err
	}
	events, err := p.Events()
	if err != nil {
		return fiber.StatusBadRequest, err
	}
	for _, ev := range events {
		if _, err := svc.Reconcile(ctx, ev); err != nil {
			// Re-delivery re-runs the whole batch; completed users no-op.
			return fiber.StatusInternalServerError, err
		}
	}
	return fiber.StatusOK, nil
}

func handleOrderRefunded(ctx context.Context, svc *reconcile.Service, payload []byte) (int, error) {
	p, err := reconcile.ParseOrderRefunded(payload)
	if err != nil {
		return fiber.StatusBadRequest, err
	}

	remaining := []entitlements.LevelID{}
	if levels, err := svc.ActiveLevels(ctx, p.UserID); err == nil {
		remaining = levels
	}

	ev, err := reconcile.OrderRefunded(p.UserID, entitlements.LevelID(p.LevelID), remaining)
	if err != nil {
		return fiber.StatusBadRequest, err
	}
	if _, err := svc.Reconcile(ctx, ev); err != nil {
		return fiber.StatusInternalServerError, err
	}
	return fiber.StatusOK, nil
}

func handleEnrollmentObserved(ctx context.Context, svc *reconcile.Service, payload []byte) (int, error) {
	p, err := reconcile.ParseEnrollmentObserved(payload)
	if err != nil {
		return fiber.StatusBadRequest, err
	}
	if _, err := svc.ObserveManualEnrollment(ctx, p.UserID, entitlements.CourseID(p.CourseID)); err != nil {
		return fiber.StatusInternalServerError, err
	}
	return fiber.StatusOK, nil
}

func handleResync(ctx context.Context, svc *reconcile.Service, payload []byte) (int, error) {
	p, err := reconcile.ParseResync(payload)
	if err != nil {
		return fiber.StatusBadRequest, err
	}
	if _, err := svc.ReconcileAll(ctx, p.UserID); err != nil {
		return fiber.StatusInternalServerError, err
	}
	return fiber.StatusOK, nil
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
