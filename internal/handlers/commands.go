package handlers

import (
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/Ananth-NQI/woo-slack-tools/internal/models"
)

// parseCommand reads the slash command form and trims its text. The fields
// are copied out of the request buffer because they outlive the handler in
// background jobs.
func parseCommand(c *fiber.Ctx) (*models.SlashCommand, error) {
	var parsed models.SlashCommand
	if err := c.BodyParser(&parsed); err != nil {
		return nil, err
	}
	cmd := models.SlashCommand{
		Command:     utils.CopyString(parsed.Command),
		Text:        utils.CopyString(strings.TrimSpace(parsed.Text)),
		UserID:      utils.CopyString(parsed.UserID),
		UserName:    utils.CopyString(parsed.UserName),
		ChannelID:   utils.CopyString(parsed.ChannelID),
		TeamID:      utils.CopyString(parsed.TeamID),
		ResponseURL: utils.CopyString(parsed.ResponseURL),
	}
	log.Printf("💬 %s %q from %s in %s", c.Path(), cmd.Text, cmd.UserID, cmd.ChannelID)
	return &cmd, nil
}

func badCommand(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing slash command on %s: %v", c.Path(), err)
	return c.Status(fiber.StatusBadRequest).SendString("Invalid command payload")
}

// parseID accepts a positive decimal id.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
