package handlers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/woo-slack-tools/internal/models"
	"github.com/Ananth-NQI/woo-slack-tools/internal/services"
)

const (
	blockNewPrice  = "new_price_input"
	actionNewPrice = "new_price"
)

var plainDecimal = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// DraftProduct looks a product up by SKU and asks for confirmation before
// setting it to draft.
func (h *SlackHandler) DraftProduct(c *fiber.Ctx) error {
	cmd, err := parseCommand(c)
	if err != nil {
		return badCommand(c, err)
	}
	sku := cmd.Text
	if sku == "" {
		return c.SendString("❌ Please provide a SKU.")
	}

	h.runJob(c, "draftproduct", func(ctx context.Context) {
		product, found, err := h.findProductBySKU(ctx, sku)
		if err != nil {
			log.Printf("❌ draftproduct: lookup SKU %s for %s: %v", sku, cmd.UserID, err)
			h.notify(ctx, cmd.ChannelID, "❌ Error retrieving product.")
			return
		}
		if !found {
			h.notify(ctx, cmd.ChannelID, fmt.Sprintf("❌ No product found with SKU: %s", sku))
			return
		}

		h.sessions.Set(cmd.UserID, services.SessionData{
			keyProductID:   product.ID,
			keyProductName: product.Name,
		})

		h.notify(ctx, cmd.ChannelID,
			fmt.Sprintf("Is this the correct product to draft?\n*%s* ($%s)", product.Name, product.Price),
			draftPromptBlocks(cmd.UserID, product)...)
	})

	return c.SendString(fmt.Sprintf("🔍 Looking up SKU *%s*...", sku))
}

// PriceUpdate stages a price change for a product or variation by SKU.
func (h *SlackHandler) PriceUpdate(c *fiber.Ctx) error {
	cmd, err := parseCommand(c)
	if err != nil {
		return badCommand(c, err)
	}
	sku := cmd.Text
	if sku == "" {
		return c.SendString("❌ Please provide a SKU.")
	}

	h.runJob(c, "priceupdate", func(ctx context.Context) {
		h.stagePriceUpdate(ctx, cmd.UserID, cmd.ChannelID, sku)
	})

	return c.SendString(fmt.Sprintf("🔍 Looking up current price for *%s*...", sku))
}

func (h *SlackHandler) stagePriceUpdate(ctx context.Context, userID, channelID, sku string) {
	product, found, err := h.findProductBySKU(ctx, sku)
	if err != nil {
		log.Printf("❌ priceupdate: lookup SKU %s for %s: %v", sku, userID, err)
		h.notify(ctx, channelID, "❌ Failed to find product.")
		return
	}
	if !found {
		h.notify(ctx, channelID, fmt.Sprintf("❌ No product found with SKU: %s", sku))
		return
	}

	session := services.SessionData{
		keySKU:         sku,
		keyProductID:   product.ID,
		keyIsVariation: false,
	}
	currentPrice := product.Price

	if product.IsVariable() {
		var variations []models.Variation
		if err := h.getJSON(ctx, fmt.Sprintf("/products/%d/variations", product.ID), nil, &variations); err != nil {
			log.Printf("❌ priceupdate: variations of product %d: %v", product.ID, err)
			h.notify(ctx, channelID, "❌ Failed to find product.")
			return
		}
		variant, ok := findVariation(variations, sku)
		if !ok {
			h.notify(ctx, channelID, fmt.Sprintf("❌ No matching variation found with SKU: %s", sku))
			return
		}
		session[keyIsVariation] = true
		session[keyVariationID] = variant.ID
		currentPrice = variant.Price
	}
	session[keyOriginalPrice] = currentPrice

	h.sessions.Set(userID, session)

	h.notify(ctx, channelID,
		fmt.Sprintf("Current price for *%s* is $%s.", sku, currentPrice),
		pricePromptBlocks(userID, sku, currentPrice)...)
}

func (h *SlackHandler) findProductBySKU(ctx context.Context, sku string) (models.Product, bool, error) {
	var products []models.Product
	if err := h.getJSON(ctx, "/products", url.Values{"sku": {sku}}, &products); err != nil {
		return models.Product{}, false, err
	}
	if len(products) == 0 {
		return models.Product{}, false, nil
	}
	return products[0], true, nil
}

func findVariation(variations []models.Variation, sku string) (models.Variation, bool) {
	for _, v := range variations {
		if v.SKU == sku {
			return v, true
		}
	}
	return models.Variation{}, false
}

func (h *SlackHandler) confirmDraft(ctx context.Context, in *interaction) {
	session, err := h.loadSession(in, keyProductID, keyProductName)
	if err != nil {
		h.rejectSession(ctx, in, err)
		return
	}
	productID, _ := session.Int64(keyProductID)
	productName, _ := session.String(keyProductName)

	if _, err := h.woo.Put(ctx, productPath(productID), map[string]string{"status": "draft"}); err != nil {
		log.Printf("❌ Error drafting product %d for %s: %v", productID, in.UserID, err)
		h.notify(ctx, in.ChannelID, fmt.Sprintf("❌ Failed to remove *%s*. Press Yes to try again or No to cancel.", productName))
		return
	}

	h.sessions.Delete(in.UserID)
	h.notify(ctx, in.ChannelID, fmt.Sprintf("✅ *%s* has been removed successfully.", productName))
}

func (h *SlackHandler) confirmPrice(ctx context.Context, in *interaction) {
	session, err := h.loadSession(in, keyProductID, keySKU, keyIsVariation)
	if err != nil {
		h.rejectSession(ctx, in, err)
		return
	}
	productID, _ := session.Int64(keyProductID)
	sku, _ := session.String(keySKU)
	isVariation, _ := session.Bool(keyIsVariation)

	endpoint := productPath(productID)
	if isVariation {
		variationID, ok := session.Int64(keyVariationID)
		if !ok {
			h.rejectSession(ctx, in, errSessionIncomplete)
			return
		}
		endpoint = variationPath(productID, variationID)
	}

	price, ok := parsePrice(enteredPrice(in.State))
	if !ok {
		h.notify(ctx, in.ChannelID, "❌ Invalid price entered.")
		return
	}

	body := map[string]string{"regular_price": strconv.FormatFloat(price, 'f', -1, 64)}
	if _, err := h.woo.Put(ctx, endpoint, body); err != nil {
		log.Printf("❌ Price update failed for %s (%s) by %s: %v", sku, endpoint, in.UserID, err)
		h.notify(ctx, in.ChannelID, "❌ Price update failed.")
		return
	}

	h.sessions.Delete(in.UserID)
	h.notify(ctx, in.ChannelID, fmt.Sprintf("✅ Price for *%s* updated to $%.2f.", sku, price))
}

// enteredPrice reads the price input, falling back to the first non-empty
// input in block order.
func enteredPrice(state models.BlockState) string {
	if v, ok := state.Input(blockNewPrice, actionNewPrice); ok && strings.TrimSpace(v) != "" {
		return v
	}

	blockIDs := make([]string, 0, len(state.Values))
	for id := range state.Values {
		blockIDs = append(blockIDs, id)
	}
	sort.Strings(blockIDs)
	for _, id := range blockIDs {
		for _, input := range state.Values[id] {
			if strings.TrimSpace(input.Value) != "" {
				return input.Value
			}
		}
	}
	return ""
}

// parsePrice accepts a plain non-negative decimal such as "24.99" or
// "$24.99". Exponents, hex floats and signs are rejected.
func parsePrice(raw string) (float64, bool) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "$")
	if !plainDecimal.MatchString(raw) {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
