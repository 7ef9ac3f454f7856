package handlers

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/woo-slack-tools/internal/models"
	"github.com/Ananth-NQI/woo-slack-tools/internal/services"
)

const (
	blockCustomerCode   = "customer_code_block"
	actionCustomerCode  = "customer_code"
	blockCustomerClass  = "customer_class_block"
	actionCustomerClass = "customer_class"
)

// CustomerMeta loads a customer by email and offers to edit their code and class.
func (h *SlackHandler) CustomerMeta(c *fiber.Ctx) error {
	cmd, err := parseCommand(c)
	if err != nil {
		return badCommand(c, err)
	}

	h.runJob(c, "customermeta", func(ctx context.Context) {
		email := cmd.Text
		if email == "" {
			h.notify(ctx, cmd.ChannelID, "❌ Please provide an email address.")
			return
		}

		var customers []models.Customer
		err := h.getJSON(ctx, "/customers", url.Values{"email": {email}, "per_page": {"1"}}, &customers)
		if err != nil {
			log.Printf("❌ customermeta: lookup %s for %s: %v", email, cmd.UserID, err)
			h.notify(ctx, cmd.ChannelID, "❌ Failed to retrieve customer metadata.")
			return
		}
		if len(customers) == 0 {
			h.notify(ctx, cmd.ChannelID, fmt.Sprintf("❌ No WooCommerce customer found with email: %s", email))
			return
		}
		customer := customers[0]

		h.sessions.Set(cmd.UserID, services.SessionData{
			keyCustomerID: customer.ID,
			keyEmail:      email,
		})

		h.notify(ctx, cmd.ChannelID,
			fmt.Sprintf("Customer metadata loaded for %s", email),
			customerMetaBlocks(cmd.UserID, customer)...)
	})

	return c.SendString("🔍 Looking up customer metadata...")
}

func (h *SlackHandler) saveCustomerMeta(ctx context.Context, in *interaction) {
	session, err := h.loadSession(in, keyCustomerID)
	if err != nil {
		h.rejectSession(ctx, in, err)
		return
	}
	customerID, _ := session.Int64(keyCustomerID)

	code, _ := in.State.Input(blockCustomerCode, actionCustomerCode)
	class, _ := in.State.Input(blockCustomerClass, actionCustomerClass)

	body := map[string]interface{}{
		"meta_data": []models.MetaData{
			{Key: models.MetaCustomerCode, Value: code},
			{Key: models.MetaCustomerClass, Value: class},
		},
	}
	if _, err := h.woo.Put(ctx, customerPath(customerID), body); err != nil {
		log.Printf("❌ Save customer meta failed for customer %d by %s: %v", customerID, in.UserID, err)
		h.notify(ctx, in.ChannelID, "❌ Failed to save customer metadata.")
		return
	}

	h.sessions.Delete(in.UserID)
	h.notify(ctx, in.ChannelID, fmt.Sprintf("✅ Customer metadata updated:\n*Customer Code:* %s\n*Customer Class:* %s",
		orEmpty(code), orEmpty(class)))
}

func orEmpty(s string) string {
	if s == "" {
		return "_empty_"
	}
	return s
}
