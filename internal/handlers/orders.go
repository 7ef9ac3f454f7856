package handlers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/woo-slack-tools/internal/models"
	"github.com/Ananth-NQI/woo-slack-tools/internal/services"
)

const (
	findOrderPages   = 3
	findOrderPerPage = 100
	maxStatusButtons = 5
	maxStripeMeta    = 8
)

// OrderStatuses are the statuses offered as buttons, in display order.
var OrderStatuses = []string{"pending", "processing", "completed", "on-hold", "cancelled", "refunded", "failed"}

var statusAliases = map[string]string{
	"pendingpayment":  "pending",
	"pending_payment": "pending",
}

// NormalizeStatus lower-cases a status, joins words with "_" and resolves aliases.
func NormalizeStatus(status string) string {
	raw := strings.Join(strings.Fields(strings.ToLower(status)), "_")
	if alias, ok := statusAliases[raw]; ok {
		return alias
	}
	return raw
}

// StatusLabel is the human readable form of a status.
func StatusLabel(status string) string {
	value := NormalizeStatus(status)
	if value == "pending" {
		return "Pending payment"
	}
	words := strings.Fields(strings.ReplaceAll(value, "_", " "))
	for i, w := range words {
		parts := strings.Split(w, "-")
		for j, p := range parts {
			if p != "" {
				parts[j] = strings.ToUpper(p[:1]) + p[1:]
			}
		}
		words[i] = strings.Join(parts, "-")
	}
	return strings.Join(words, " ")
}

func isKnownStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// FindOrder searches recent orders for a custom order number.
func (h *SlackHandler) FindOrder(c *fiber.Ctx) error {
	cmd, err := parseCommand(c)
	if err != nil {
		return badCommand(c, err)
	}
	number := cmd.Text

	h.runJob(c, "findorder", func(ctx context.Context) {
		if number == "" {
			h.notify(ctx, cmd.ChannelID, "❌ Please provide an order number.")
			return
		}

		order, found, err := h.findOrderByCustomNumber(ctx, number)
		if err != nil {
			log.Printf("❌ findorder: searching %s: %v", number, err)
			h.notify(ctx, cmd.ChannelID, "❌ Failed to retrieve order due to an error.")
			return
		}
		if !found {
			h.notify(ctx, cmd.ChannelID, fmt.Sprintf("❌ No order found with custom number: %s", number))
			return
		}

		h.notify(ctx, cmd.ChannelID, fmt.Sprintf("📦 Order found for *%s*", number), orderSummaryBlocks(order)...)
	})

	return c.SendString(fmt.Sprintf("🔍 Searching for order *%s*...", number))
}

func (h *SlackHandler) findOrderByCustomNumber(ctx context.Context, number string) (models.Order, bool, error) {
	for page := 1; page <= findOrderPages; page++ {
		var orders []models.Order
		params := url.Values{
			"per_page": {strconv.Itoa(findOrderPerPage)},
			"page":     {strconv.Itoa(page)},
			"orderby":  {"date"},
			"order":    {"desc"},
		}
		if err := h.getJSON(ctx, "/orders", params, &orders); err != nil {
			return models.Order{}, false, err
		}
		for _, o := range orders {
			if n, ok := o.CustomOrderNumber(); ok && n == number {
				return o, true, nil
			}
		}
		if len(orders) < findOrderPerPage {
			break
		}
	}
	return models.Order{}, false, nil
}

// FindIDOrder shows an order by WooCommerce id.
func (h *SlackHandler) FindIDOrder(c *fiber.Ctx) error {
	cmd, err := parseCommand(c)
	if err != nil {
		return badCommand(c, err)
	}

	h.runJob(c, "findidorder", func(ctx context.Context) {
		orderID, ok := parseID(cmd.Text)
		if !ok {
			h.notify(ctx, cmd.ChannelID, "❌ Please enter a valid numeric Order ID.")
			return
		}

		order, err := h.fetchOrder(ctx, orderID)
		if err != nil {
			log.Printf("❌ findidorder: order %d: %v", orderID, err)
			if services.IsNotFound(err) {
				h.notify(ctx, cmd.ChannelID, fmt.Sprintf("❌ No order found with WooCommerce ID: %d", orderID))
				return
			}
			h.notify(ctx, cmd.ChannelID, fmt.Sprintf("❌ Failed to retrieve WooCommerce order %d.", orderID))
			return
		}

		h.notify(ctx, cmd.ChannelID, fmt.Sprintf("📦 Order found with WooCommerce ID *%d*", orderID), orderSummaryBlocks(order)...)
	})

	return c.SendString(fmt.Sprintf("🔍 Searching for WooCommerce order ID *%s*...", cmd.Text))
}

// FindCustomID shows the custom order number stored on an order.
func (h *SlackHandler) FindCustomID(c *fiber.Ctx) error {
	cmd, err := parseCommand(c)
	if err != nil {
		return badCommand(c, err)
	}

	h.runJob(c, "findcustomid", func(ctx context.Context) {
		orderID, ok := parseID(cmd.Text)
		if !ok {
			h.notify(ctx, cmd.ChannelID, "❌ Please enter a valid numeric WooCommerce Order ID.")
			return
		}

		order, err := h.fetchOrder(ctx, orderID)
		if err != nil {
			log.Printf("❌ findcustomid: order %d: %v", orderID, err)
			h.notify(ctx, cmd.ChannelID, fmt.Sprintf("❌ Could not find order ID *%d* or failed to retrieve order.", orderID))
			return
		}

		number, ok := order.CustomOrderNumber()
		if !ok {
			h.notify(ctx, cmd.ChannelID, fmt.Sprintf("⚠️ No custom order number found on Woo order ID *%d*.", orderID))
			return
		}

		h.notify(ctx, cmd.ChannelID, fmt.Sprintf("✅ Custom order number found for Woo order ID *%d*", orderID),
			customNumberBlocks(order, number)...)
	})

	return c.SendString(fmt.Sprintf("🔍 Looking up custom order number for Woo order ID *%s*...", cmd.Text))
}

// EditOrder posts the admin edit link for an order.
func (h *SlackHandler) EditOrder(c *fiber.Ctx) error {
	cmd, err := parseCommand(c)
	if err != nil {
		return badCommand(c, err)
	}
	orderID, ok := parseID(cmd.Text)
	if !ok {
		return c.SendString("❌ Please enter a valid numeric Order ID.")
	}

	editURL := h.adminEditURL + strconv.FormatInt(orderID, 10)
	h.runJob(c, "editorder", func(ctx context.Context) {
		h.notify(ctx, cmd.ChannelID, fmt.Sprintf("✏️ Edit order <%s|#%d>", editURL, orderID))
	})

	return c.SendStatus(fiber.StatusOK)
}

// EditOrderStatus shows order and payment details with one button per
// reachable status.
func (h *SlackHandler) EditOrderStatus(c *fiber.Ctx) error {
	cmd, err := parseCommand(c)
	if err != nil {
		return badCommand(c, err)
	}

	h.runJob(c, "editorderstatus", func(ctx context.Context) {
		orderID, ok := parseID(cmd.Text)
		if !ok {
			h.notify(ctx, cmd.ChannelID, "❌ Please enter a valid numeric Order ID.")
			return
		}

		order, err := h.fetchOrder(ctx, orderID)
		if err != nil {
			log.Printf("❌ editorderstatus: order %d for %s: %v", orderID, cmd.UserID, err)
			h.notify(ctx, cmd.ChannelID, fmt.Sprintf("❌ Could not find order ID *%d* or failed to retrieve order details.", orderID))
			return
		}

		h.notify(ctx, cmd.ChannelID, fmt.Sprintf("Order %d status and payment details", order.ID),
			orderStatusBlocks(cmd.UserID, order)...)
	})

	return c.SendString(fmt.Sprintf("🔍 Loading order *%s*...", cmd.Text))
}

// editOrderStatus applies a status button. The order is re-read right
// before the write and nothing is written when it is already in the target
// status.
func (h *SlackHandler) editOrderStatus(ctx context.Context, in *interaction) {
	ref, err := models.ParseActionRef(in.Action.Value)
	if err != nil || !ref.IssuedBy(in.UserID) {
		log.Printf("🚫 edit_order_status rejected for %s (value %q)", in.UserID, in.Action.Value)
		h.notify(ctx, in.ChannelID, "❌ This button can only be used by the original requester.")
		return
	}

	orderID, ok := parseID(ref.ObjectID)
	target := NormalizeStatus(ref.Target)
	if !ok || !isKnownStatus(target) {
		h.notify(ctx, in.ChannelID, "❌ Invalid status update request.")
		return
	}

	order, err := h.fetchOrder(ctx, orderID)
	if err != nil {
		log.Printf("❌ Edit order status: reading order %d: %v", orderID, err)
		h.notify(ctx, in.ChannelID, "❌ Failed to update order status.")
		return
	}
	current := NormalizeStatus(order.Status)

	if current == target {
		h.notify(ctx, in.ChannelID, fmt.Sprintf("ℹ️ Order *%d* is already in *%s* status.", orderID, target))
		return
	}

	if _, err := h.woo.Put(ctx, orderPath(orderID), map[string]string{"status": target}); err != nil {
		log.Printf("❌ Edit order status failed for order %d (%s -> %s) by %s: %v", orderID, current, target, in.UserID, err)
		h.notify(ctx, in.ChannelID, "❌ Failed to update order status.")
		return
	}

	if current == "" {
		current = "unknown"
	}
	h.notify(ctx, in.ChannelID, fmt.Sprintf("✅ Order *%d* status changed from *%s* to *%s*.", orderID, current, target))
}

func (h *SlackHandler) fetchOrder(ctx context.Context, orderID int64) (models.Order, error) {
	var order models.Order
	err := h.getJSON(ctx, orderPath(orderID), nil, &order)
	return order, err
}

// stripeMeta lists up to maxStripeMeta meta entries whose key mentions stripe.
func stripeMeta(order models.Order) string {
	var lines []string
	for _, m := range order.MetaData {
		if !strings.Contains(strings.ToLower(m.Key), "stripe") {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s: %s", m.Key, m.ValueString()))
		if len(lines) == maxStripeMeta {
			break
		}
	}
	if len(lines) == 0 {
		return "• No Stripe meta found"
	}
	return strings.Join(lines, "\n")
}
