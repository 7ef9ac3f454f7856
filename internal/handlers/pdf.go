package handlers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/woo-slack-tools/internal/models"
)

const (
	mailSearchLimit = 10
	mailSearchDays  = 30
	maxFilenameLen  = 60
)

var unsafeFilenameChars = regexp.MustCompile(`[^\w\- ]+`)

// OrderPDF searches the mail log by subject and lists matches with a
// generate button each.
func (h *SlackHandler) OrderPDF(c *fiber.Ctx) error {
	cmd, err := parseCommand(c)
	if err != nil {
		return badCommand(c, err)
	}

	h.runJob(c, "orderpdf", func(ctx context.Context) {
		query := cmd.Text
		if query == "" {
			h.notify(ctx, cmd.ChannelID, "❌ Please provide a subject search (ex: `New Order #4105`).")
			return
		}

		var search models.MailLogSearch
		params := url.Values{
			"subject": {query},
			"limit":   {fmt.Sprint(mailSearchLimit)},
			"days":    {fmt.Sprint(mailSearchDays)},
		}
		if err := h.getJSON(ctx, "/mail-log/search", params, &search); err != nil {
			log.Printf("❌ orderpdf: search %q for %s: %v", query, cmd.UserID, err)
			h.notify(ctx, cmd.ChannelID, "❌ Failed to search email logs.")
			return
		}
		if len(search.Results) == 0 {
			h.notify(ctx, cmd.ChannelID, fmt.Sprintf("❌ No email logs found matching subject: *%s*", query))
			return
		}

		results := search.Results
		if len(results) > mailSearchLimit {
			results = results[:mailSearchLimit]
		}
		h.notify(ctx, cmd.ChannelID, fmt.Sprintf("Email logs found for %s", query),
			mailLogBlocks(cmd.UserID, query, len(search.Results), results)...)
	})

	return c.SendString("🔎 Searching email logs...")
}

// generateOrderPDF renders one mail log to PDF and uploads it.
func (h *SlackHandler) generateOrderPDF(ctx context.Context, in *interaction) {
	ref, err := models.ParseActionRef(in.Action.Value)
	if err != nil || !ref.IssuedBy(in.UserID) {
		log.Printf("🚫 orderpdf_generate rejected for %s (value %q)", in.UserID, in.Action.Value)
		h.notify(ctx, in.ChannelID, "❌ This button can only be used by the original requester.")
		return
	}

	mailID, ok := parseID(ref.ObjectID)
	if !ok {
		h.notify(ctx, in.ChannelID, "❌ Invalid mail log selection.")
		return
	}

	h.notify(ctx, in.ChannelID, fmt.Sprintf("🛠 Generating PDF for mail log ID *%d*...", mailID))

	var mail models.MailLog
	if err := h.getJSON(ctx, fmt.Sprintf("/mail-log/%d", mailID), nil, &mail); err != nil {
		log.Printf("❌ orderpdf: fetch mail log %d: %v", mailID, err)
		h.notify(ctx, in.ChannelID, "❌ Failed to generate/upload PDF.")
		return
	}
	if strings.TrimSpace(mail.HTML) == "" {
		h.notify(ctx, in.ChannelID, "❌ No HTML content found for that log.")
		return
	}

	pdf, err := h.renderer.Render(ctx, mail.HTML)
	if err != nil {
		log.Printf("❌ orderpdf: render mail log %d: %v", mailID, err)
		h.notify(ctx, in.ChannelID, "❌ Could not produce a PDF for that email.")
		return
	}

	filename := PDFFilename(mail.Subject, mailID)
	if err := h.notifier.Upload(ctx, in.ChannelID, filename, pdf); err != nil {
		log.Printf("❌ orderpdf: upload %s: %v", filename, err)
		h.notify(ctx, in.ChannelID, "❌ Failed to generate/upload PDF.")
		return
	}

	h.notify(ctx, in.ChannelID, fmt.Sprintf("✅ PDF uploaded: *%s*", filename))
}

// PDFFilename keeps word characters, dashes and spaces from the subject,
// truncated to 60 characters, falling back to mail-<id>.
func PDFFilename(subject string, mailID int64) string {
	name := unsafeFilenameChars.ReplaceAllString(subject, "")
	if r := []rune(name); len(r) > maxFilenameLen {
		name = string(r[:maxFilenameLen])
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("mail-%d", mailID)
	}
	return name + ".pdf"
}
