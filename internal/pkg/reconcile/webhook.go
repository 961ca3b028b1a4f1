package reconcile

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/coursebridge/coursebridge/internal/pkg/entitlements"
)

// Webhook event types emitted by the membership provider.
const (
	EventTypeCheckoutCompleted  = "checkout.completed"
	EventTypeLevelChanged       = "level.changed"
	EventTypeBatchLevelsChanged = "levels.changed"
	EventTypeOrderRefunded      = "order.refunded"
	EventTypeEnrollmentObserved = "enrollment.observed"
	EventTypeResync             = "membership.resync"
)

var validate = validator.New()

// orderRef is the order object embedded in checkout and refund payloads.
// Some provider versions send only this object with no top-level user id.
type orderRef struct {
	ID      uint `json:"id"`
	UserID  uint `json:"user_id"`
	LevelID uint `json:"level_id"`
}

// CheckoutCompletedPayload is the normalized checkout.completed payload.
type CheckoutCompletedPayload struct {
	UserID  uint      `json:"user_id"`
	LevelID uint      `json:"level_id" validate:"required"`
	Order   *orderRef `json:"order"`
}

// ParseCheckoutCompleted parses and normalizes a checkout.completed payload.
// A missing top-level user id or level id falls back to the embedded order;
// a payload with no user id anywhere is rejected.
func ParseCheckoutCompleted(payload []byte) (*CheckoutCompletedPayload, error) {
	var p CheckoutCompletedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.Order != nil {
		if p.UserID == 0 {
			p.UserID = p.Order.UserID
		}
		if p.LevelID == 0 {
			p.LevelID = p.Order.LevelID
		}
	}
	if p.UserID == 0 {
		return nil, ErrMissingUserID
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid checkout payload: %w", err)
	}
	return &p, nil
}

// LevelChangedPayload is the single-level transition payload. A zero id on
// either side means "no level".
type LevelChangedPayload struct {
	UserID     uint `json:"user_id"`
	OldLevelID uint `json:"old_level_id"`
	NewLevelID uint `json:"new_level_id"`
}

// ParseLevelChanged parses a level.changed payload.
func ParseLevelChanged(payload []byte) (*LevelChangedPayload, error) {
	var p LevelChangedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.UserID == 0 {
		return nil, ErrMissingUserID
	}
	return &p, nil
}

// BatchLevelsChangedPayload carries a plan-wide change fanned out per user.
type BatchLevelsChangedPayload struct {
	Changes []BatchUserChange `json:"changes" validate:"required,min=1,dive"`
}

// BatchUserChange is one user's slice of a batch change.
type BatchUserChange struct {
	UserID      uint   `json:"user_id" validate:"required"`
	OldLevelIDs []uint `json:"old_level_ids"`
	NewLevelIDs []uint `json:"new_level_ids"`
}

// ParseBatchLevelsChanged parses a levels.changed payload.
func ParseBatchLevelsChanged(payload []byte) (*BatchLevelsChangedPayload, error) {
	var p BatchLevelsChangedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid batch payload: %w", err)
	}
	return &p, nil
}

// Events converts the payload into one reconciliation event per user.
func (p *BatchLevelsChangedPayload) Events() ([]Event, error) {
	changes := make([]UserLevelChange, 0, len(p.Changes))
	for _, ch := range p.Changes {
		changes = append(changes, UserLevelChange{
			UserID:      ch.UserID,
			OldLevelIDs: toLevelIDs(ch.OldLevelIDs),
			NewLevelIDs: toLevelIDs(ch.NewLevelIDs),
		})
	}
	return BatchLevelsChanged(changes)
}

// OrderRefundedPayload is the refund payload.
type OrderRefundedPayload struct {
	UserID  uint      `json:"user_id"`
	LevelID uint      `json:"level_id" validate:"required"`
	Order   *orderRef `json:"order"`
}

// ParseOrderRefunded parses an order.refunded payload with the same order
// fallback as checkout.
func ParseOrderRefunded(payload []byte) (*OrderRefundedPayload, error) {
	var p OrderRefundedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.Order != nil {
		if p.UserID == 0 {
			p.UserID = p.Order.UserID
		}
		if p.LevelID == 0 {
			p.LevelID = p.Order.LevelID
		}
	}
	if p.UserID == 0 {
		return nil, ErrMissingUserID
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid refund payload: %w", err)
	}
	return &p, nil
}

// ResyncPayload asks for a full re-reconciliation of one user from their
// currently active levels. Providers send it after repairing their own state.
type ResyncPayload struct {
	UserID uint `json:"user_id"`
}

// ParseResync parses a membership.resync payload.
func ParseResync(payload []byte) (*ResyncPayload, error) {
	var p ResyncPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.UserID == 0 {
		return nil, ErrMissingUserID
	}
	return &p, nil
}

// EnrollmentObservedPayload reports a manual enrollment made outside the
// membership flow.
type EnrollmentObservedPayload struct {
	UserID   uint `json:"user_id"`
	CourseID uint `json:"course_id" validate:"required"`
}

// ParseEnrollmentObserved parses an enrollment.observed payload.
func ParseEnrollmentObserved(payload []byte) (*EnrollmentObservedPayload, error) {
	var p EnrollmentObservedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.UserID == 0 {
		return nil, ErrMissingUserID
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid enrollment payload: %w", err)
	}
	return &p, nil
}

// VerifyWebhookSignature checks the provider's HMAC-SHA256 signature over
// the raw request body. The header value may carry a "sha256=" prefix.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}
	sig = strings.TrimPrefix(sig, "sha256=")

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	return verifyHMAC(payload, decodedSig, []byte(secret), sha256.New)
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}

func toLevelIDs(ids []uint) []entitlements.LevelID {
	out := make([]entitlements.LevelID, 0, len(ids))
	for _, id := range ids {
		out = append(out, entitlements.LevelID(id))
	}
	return out
}
