package handlers

import (
	"bytes"
	"html"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"wg-access-bot/internal/services"
)

// BaseHandler provides common send functionality for the router
type BaseHandler struct {
	artifacts *services.ArtifactService
	sessions  *services.SessionService
	logger    *logrus.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(
	artifacts *services.ArtifactService,
	sessions *services.SessionService,
	logger *logrus.Logger,
) BaseHandler {
	return BaseHandler{
		artifacts: artifacts,
		sessions:  sessions,
		logger:    logger,
	}
}

// sendTextMessage sends a text message in HTML mode
func (h *BaseHandler) sendTextMessage(c telebot.Context, text string) error {
	opts := &telebot.SendOptions{
		ParseMode: telebot.ModeHTML,
	}

	if err := c.Send(text, opts); err != nil {
		h.logger.Errorf("Failed to send message: %v", err)
		return err
	}
	return nil
}

// sendArtifacts delivers the peer's .conf file and QR image, named after
// the profile rather than the internal peer ID
func (h *BaseHandler) sendArtifacts(c telebot.Context, peerID, profileName string) error {
	artifacts, err := h.artifacts.Load(peerID)
	if err != nil {
		h.logger.Errorf("Failed to load artifacts for %s: %v", peerID, err)
		return h.sendTextMessage(c, "The profile's files are not available yet. Please try again later or contact the administrator.")
	}

	document := &telebot.Document{
		File:     telebot.FromReader(bytes.NewReader(artifacts.Conf)),
		FileName: profileName + ".conf",
		Caption:  profileName + ".conf",
	}
	if err := c.Send(document); err != nil {
		h.logger.Errorf("Failed to send config file: %v", err)
		return err
	}

	photo := &telebot.Photo{
		File:    telebot.FromReader(bytes.NewReader(artifacts.QR)),
		Caption: profileName + ".png",
	}
	if err := c.Send(photo); err != nil {
		h.logger.Errorf("Failed to send QR code: %v", err)
		return err
	}
	return nil
}

// escape sanitizes user-supplied text before embedding it into an HTML reply
func escape(text string) string {
	return html.EscapeString(text)
}
