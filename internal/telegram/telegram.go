// Package telegram delivers posts to the target channels and operator
// reports to the service channels.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/deusflow/newspulse/internal/logger"
	"github.com/deusflow/newspulse/internal/retry"
)

// Telegram caps photo captions at 1024 characters.
const captionLimit = 1024

type Poster struct {
	bot             *tgbotapi.BotAPI
	targetChannels  []string
	serviceChannels []string
	retryCfg        retry.Config
}

func NewPoster(token string, targetChannels, serviceChannels []string, retryCfg retry.Config) (*Poster, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &Poster{
		bot:             bot,
		targetChannels:  targetChannels,
		serviceChannels: serviceChannels,
		retryCfg:        retryCfg,
	}, nil
}

// PublishNews sends the post to every target channel, as a photo with
// caption when imagePath is set. An error on any channel fails the publish;
// the item stays a candidate for a future run.
func (p *Poster) PublishNews(ctx context.Context, text, imagePath string) error {
	if len(p.targetChannels) == 0 {
		return fmt.Errorf("no target channels configured")
	}

	for _, channel := range p.targetChannels {
		var send func() error
		if imagePath != "" {
			send = func() error { return p.sendPhoto(channel, imagePath, text) }
		} else {
			send = func() error { return p.sendText(channel, text) }
		}
		if err := retry.Do(ctx, p.retryCfg, send); err != nil {
			return fmt.Errorf("delivery to %s failed: %w", channel, err)
		}
		logger.Info("published to channel", "channel", channel)
	}
	return nil
}

// SendReport sends an operator status message to the service channels.
// Best-effort: a failed report is logged, never escalated.
func (p *Poster) SendReport(ctx context.Context, text string) {
	if len(p.serviceChannels) == 0 {
		logger.Warn("no service channels configured, dropping report")
		return
	}
	for _, channel := range p.serviceChannels {
		err := retry.Do(ctx, p.retryCfg, func() error {
			return p.sendText(channel, text)
		})
		if err != nil {
			logger.Error("failed to send service report", "channel", channel, "error", err)
		}
	}
}

func (p *Poster) sendText(channel, text string) error {
	msg := tgbotapi.NewMessageToChannel(channel, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := p.bot.Send(msg)
	return err
}

func (p *Poster) sendPhoto(channel, imagePath, caption string) error {
	photo := tgbotapi.NewPhotoToChannel(channel, tgbotapi.FilePath(imagePath))
	photo.Caption = trimCaption(caption)
	photo.ParseMode = tgbotapi.ModeHTML
	_, err := p.bot.Send(photo)
	return err
}

func trimCaption(caption string) string {
	runes := []rune(caption)
	if len(runes) <= captionLimit {
		return caption
	}
	return string(runes[:captionLimit])
}
