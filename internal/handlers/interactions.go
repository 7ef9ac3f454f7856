package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/woo-slack-tools/internal/models"
	"github.com/Ananth-NQI/woo-slack-tools/internal/services"
)

// Button action ids.
const (
	ActionConfirmDraft       = "confirm_draft"
	ActionCancelDraft        = "cancel_draft"
	ActionConfirmPrice       = "confirm_price"
	ActionCancelPrice        = "cancel_price"
	ActionSaveCustomerMeta   = "save_customer_meta"
	ActionCancelCustomerMeta = "cancel_customer_meta"
	ActionEditOrderStatus    = "edit_order_status"
	ActionOrderPDF           = "orderpdf_generate"
)

// Session field keys.
const (
	keyProductID     = "productId"
	keyProductName   = "productName"
	keySKU           = "sku"
	keyVariationID   = "variationId"
	keyIsVariation   = "isVariation"
	keyOriginalPrice = "originalPrice"
	keyCustomerID    = "customerId"
	keyEmail         = "email"
)

var (
	errActorMismatch     = errors.New("action issued by another user")
	errNoSession         = errors.New("no active session")
	errSessionIncomplete = errors.New("session is missing workflow fields")
)

// interaction is a parsed button click.
type interaction struct {
	UserID    string
	ChannelID string
	Action    models.ActionPayload
	State     models.BlockState
}

type actionFunc func(ctx context.Context, in *interaction)

func (h *SlackHandler) actionTable() map[string]actionFunc {
	return map[string]actionFunc{
		ActionConfirmDraft:       h.confirmDraft,
		ActionCancelDraft:        h.cancelWorkflow("❌ Removal canceled."),
		ActionConfirmPrice:       h.confirmPrice,
		ActionCancelPrice:        h.cancelWorkflow("❌ Price update canceled."),
		ActionSaveCustomerMeta:   h.saveCustomerMeta,
		ActionCancelCustomerMeta: h.cancelWorkflow("❌ Customer meta update canceled."),
		ActionEditOrderStatus:    h.editOrderStatus,
		ActionOrderPDF:           h.generateOrderPDF,
	}
}

// HandleInteraction is the single endpoint for every interactive callback.
func (h *SlackHandler) HandleInteraction(c *fiber.Ctx) error {
	raw := c.FormValue("payload")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid payload")
	}

	var payload models.InteractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.Printf("Error parsing interaction payload: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid payload")
	}

	action, ok := payload.FirstAction()
	if !ok || action.ActionID == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid action")
	}
	if payload.Channel.ID == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid channel")
	}

	in := &interaction{
		UserID:    payload.User.ID,
		ChannelID: payload.Channel.ID,
		Action:    action,
		State:     payload.State,
	}
	log.Printf("👆 Action %s from %s in %s", action.ActionID, in.UserID, in.ChannelID)

	h.runJob(c, action.ActionID, func(ctx context.Context) {
		h.Dispatch(ctx, in)
	})

	return c.SendStatus(fiber.StatusOK)
}

// Dispatch routes a click to its action by exact action id.
func (h *SlackHandler) Dispatch(ctx context.Context, in *interaction) {
	fn, ok := h.actions[in.Action.ActionID]
	if !ok {
		log.Printf("⚠️  Unsupported action %q from %s", in.Action.ActionID, in.UserID)
		h.notify(ctx, in.ChannelID, "⚠️ Unsupported action.")
		return
	}
	fn(ctx, in)
}

// loadSession runs the checks every session-backed confirm or cancel needs:
// the clicking user issued the button, a live session exists for them, and
// it holds the fields the caller will read. The session key is always the
// clicking user from the callback; the button value can only deny.
func (h *SlackHandler) loadSession(in *interaction, required ...string) (services.SessionData, error) {
	if in.UserID == "" {
		return nil, errNoSession
	}
	if issuer := in.Action.Value; issuer != "" && issuer != in.UserID {
		return nil, errActorMismatch
	}

	data, ok := h.sessions.Get(in.UserID)
	if !ok {
		return nil, errNoSession
	}
	for _, key := range required {
		if _, ok := data[key]; !ok {
			return nil, errSessionIncomplete
		}
	}
	return data, nil
}

// rejectSession reports a failed loadSession to the channel.
func (h *SlackHandler) rejectSession(ctx context.Context, in *interaction, err error) {
	log.Printf("🚫 %s rejected for %s: %v", in.Action.ActionID, in.UserID, err)

	switch {
	case errors.Is(err, errActorMismatch):
		h.notify(ctx, in.ChannelID, "❌ This button can only be used by the original requester.")
	case errors.Is(err, errSessionIncomplete):
		h.notify(ctx, in.ChannelID, "❌ Session expired. Please run the command again.")
	default:
		h.notify(ctx, in.ChannelID, "❌ No session found. It may have expired, please run the command again.")
	}
}

// cancelWorkflow builds a cancel action that clears the caller's session.
func (h *SlackHandler) cancelWorkflow(notice string) actionFunc {
	return func(ctx context.Context, in *interaction) {
		if _, err := h.loadSession(in); err != nil {
			h.rejectSession(ctx, in, err)
			return
		}
		h.sessions.Delete(in.UserID)
		h.notify(ctx, in.ChannelID, notice)
	}
}
