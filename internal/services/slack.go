package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// slackAPI is the part of *slack.Client the notifier uses.
type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// SlackNotifier posts workflow outcomes back to Slack.
type SlackNotifier struct {
	api slackAPI
}

// NewSlackNotifier creates a notifier from a bot token.
func NewSlackNotifier(botToken string) (*SlackNotifier, error) {
	if botToken == "" {
		return nil, errors.New("slack: bot token must not be empty")
	}
	return &SlackNotifier{api: slack.New(botToken)}, nil
}

// Notify posts text with optional Block Kit blocks to a channel.
func (s *SlackNotifier) Notify(ctx context.Context, channelID, text string, blocks ...slack.Block) error {
	opts := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}

	_, ts, err := s.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return fmt.Errorf("slack: post message to %s: %w", channelID, err)
	}
	log.Printf("✅ Slack message posted to %s (ts %s)", channelID, ts)
	return nil
}

// Upload sends a file to a channel.
func (s *SlackNotifier) Upload(ctx context.Context, channelID, filename string, content []byte) error {
	_, err := s.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:  channelID,
		Filename: filename,
		Title:    filename,
		FileSize: len(content),
		Reader:   bytes.NewReader(content),
	})
	if err != nil {
		return fmt.Errorf("slack: upload %s to %s: %w", filename, channelID, err)
	}
	log.Printf("✅ Uploaded %s (%d bytes) to %s", filename, len(content), channelID)
	return nil
}
