package handlers

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/Ananth-NQI/woo-slack-tools/internal/models"
)

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}

func section(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(mrkdwn(text), nil, nil)
}

func button(actionID, value, label string, style slack.Style) *slack.ButtonBlockElement {
	b := slack.NewButtonBlockElement(actionID, value, plain(label))
	if style != "" {
		b = b.WithStyle(style)
	}
	return b
}

func textInput(blockID, actionID, label, initial string) *slack.InputBlock {
	el := slack.NewPlainTextInputBlockElement(nil, actionID)
	el.InitialValue = initial
	return slack.NewInputBlock(blockID, plain(label), nil, el)
}

func confirmCancel(confirmID, confirmLabel, cancelID, cancelLabel, userID string) *slack.ActionBlock {
	return slack.NewActionBlock("",
		button(confirmID, userID, confirmLabel, slack.StylePrimary),
		button(cancelID, userID, cancelLabel, slack.StyleDanger),
	)
}

func draftPromptBlocks(userID string, p models.Product) []slack.Block {
	return []slack.Block{
		section(fmt.Sprintf("*Product:* %s\n*Price:* $%s", p.Name, p.Price)),
		confirmCancel(ActionConfirmDraft, "✅ Yes", ActionCancelDraft, "❌ No", userID),
	}
}

func pricePromptBlocks(userID, sku, currentPrice string) []slack.Block {
	return []slack.Block{
		section(fmt.Sprintf("*SKU:* %s\n*Current Price:* $%s", sku, currentPrice)),
		textInput(blockNewPrice, actionNewPrice, "Enter new price", ""),
		confirmCancel(ActionConfirmPrice, "✅ Confirm", ActionCancelPrice, "❌ Cancel", userID),
	}
}

func customerMetaBlocks(userID string, c models.Customer) []slack.Block {
	code := c.MetaString(models.MetaCustomerCode)
	class := c.MetaString(models.MetaCustomerClass)
	return []slack.Block{
		section(fmt.Sprintf("*Customer ID:* %d\n*Customer Code:* %s\n*Customer Class:* %s", c.ID, orEmpty(code), orEmpty(class))),
		textInput(blockCustomerCode, actionCustomerCode, "Customer Code", code),
		textInput(blockCustomerClass, actionCustomerClass, "Customer Class", class),
		confirmCancel(ActionSaveCustomerMeta, "💾 Save", ActionCancelCustomerMeta, "❌ Cancel", userID),
	}
}

func orderSummaryBlocks(o models.Order) []slack.Block {
	return []slack.Block{
		section(fmt.Sprintf("*Order ID:* %d\n*Customer:* %s\n*Email:* %s\n*User ID:* %d",
			o.ID, o.Billing.FullName(), o.Billing.Email, o.CustomerID)),
	}
}

func customNumberBlocks(o models.Order, number string) []slack.Block {
	var b strings.Builder
	fmt.Fprintf(&b, "*Woo Order ID:* %d\n*Custom Order Number:* *%s*\n", o.ID, number)
	if name := o.Billing.FullName(); name != "" {
		fmt.Fprintf(&b, "*Customer:* %s\n", name)
	}
	if o.Billing.Email != "" {
		fmt.Fprintf(&b, "*Email:* %s\n", o.Billing.Email)
	}
	return []slack.Block{section(b.String())}
}

// statusButtons returns up to maxStatusButtons buttons, skipping the current
// status. All share ActionEditOrderStatus; the target travels in the value.
// Slack requires action ids to be unique per block, so each button gets its
// own actions block.
func statusButtons(userID string, orderID int64, current string) []slack.Block {
	current = NormalizeStatus(current)
	var blocks []slack.Block
	for _, status := range OrderStatuses {
		if status == current {
			continue
		}
		if len(blocks) == maxStatusButtons {
			break
		}
		ref := models.ActionRef{UserID: userID, ObjectID: fmt.Sprint(orderID), Target: status}
		var style slack.Style
		if status == "completed" {
			style = slack.StylePrimary
		}
		blocks = append(blocks, slack.NewActionBlock("order_status_"+status,
			button(ActionEditOrderStatus, ref.String(), "Set "+StatusLabel(status), style)))
	}
	return blocks
}

func orderStatusBlocks(userID string, o models.Order) []slack.Block {
	name := o.Billing.FullName()
	if name == "" {
		name = "N/A"
	}
	payment := o.PaymentMethodTitle
	if payment == "" {
		payment = o.PaymentMethod
	}

	blocks := []slack.Block{
		section(fmt.Sprintf("*Order ID:* %d\n*Status:* %s\n*Customer:* %s\n*Email:* %s\n*Total:* %s %s\n*Payment Method:* %s\n*Transaction ID:* %s",
			o.ID, StatusLabel(o.Status), name, valueOr(o.Billing.Email, "N/A"),
			o.Currency, valueOr(o.Total, "0.00"), valueOr(payment, "N/A"), valueOr(o.TransactionID, "N/A"))),
		section("*Stripe Data:*\n" + stripeMeta(o)),
	}
	return append(blocks, statusButtons(userID, o.ID, o.Status)...)
}

func mailLogBlocks(userID, query string, total int, rows []models.MailLogSummary) []slack.Block {
	blocks := []slack.Block{
		section(fmt.Sprintf("📨 Found *%d* email log(s) matching:\n*%s*\n\nSelect one to generate a PDF:", total, query)),
	}
	for _, row := range rows {
		ref := models.ActionRef{UserID: userID, ObjectID: row.MailID.String()}
		blocks = append(blocks, slack.NewSectionBlock(
			mrkdwn(fmt.Sprintf("*%s*\n*To:* %s\n*Date:* %s\n*Mail ID:* %s", row.Subject, row.Receiver, row.Timestamp, row.MailID)),
			nil,
			slack.NewAccessory(button(ActionOrderPDF, ref.String(), "📄 Generate PDF", slack.StylePrimary)),
		))
	}
	return blocks
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
