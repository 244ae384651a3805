package telegrambot

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"wg-access-bot/internal/config"
)

// MessageHandler defines the interface for handling Telegram messages
type MessageHandler interface {
	Handle(ctx context.Context, c telebot.Context) error
}

// Bot represents the Telegram bot
type Bot struct {
	bot     *telebot.Bot
	handler MessageHandler
	logger  *logrus.Logger
}

// NewBot creates a new Telegram bot
func NewBot(cfg *config.Config, handler MessageHandler, logger *logrus.Logger) (*Bot, error) {
	settings := telebot.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			logger.Errorf("Telegram bot error: %v", err)
			if c != nil {
				c.Send("An error occurred. Please try again later.")
			}
		},
	}

	b, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	bot := &Bot{
		bot:     b,
		handler: handler,
		logger:  logger,
	}

	bot.setupMiddleware()
	return bot, nil
}

// Start starts the bot and blocks until the context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting Telegram bot")

	go func() {
		<-ctx.Done()
		b.logger.Info("Stopping Telegram bot")
		b.bot.Stop()
	}()

	b.bot.Start()
	return nil
}

// setupMiddleware sets up the bot middleware
func (b *Bot) setupMiddleware() {
	b.bot.Use(func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			b.logger.Infof("Received message from %d: %s", c.Sender().ID, c.Text())
			return next(c)
		}
	})

	b.bot.Handle(telebot.OnText, b.handleUpdate)
}

// handleUpdate handles an update from Telegram
func (b *Bot) handleUpdate(c telebot.Context) error {
	return b.handler.Handle(context.Background(), c)
}
