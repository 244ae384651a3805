package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"wg-access-bot/internal/commands"
	"wg-access-bot/internal/config"
	"wg-access-bot/internal/constants"
	"wg-access-bot/internal/errors"
	"wg-access-bot/internal/models"
	"wg-access-bot/internal/notify"
	"wg-access-bot/internal/services"
	"wg-access-bot/internal/storage"
	"wg-access-bot/internal/wireguard"
)

const helpText = `/start - Initialize user in the system
/register - Register new token
/add - Add a new VPN profile
/list - List all VPN profiles
/delete - Delete a VPN profile
/help - Show this help message
/get - Get .conf file and qr code for wireguard client application for existing peer
/unregister - Unregister token
/info - Show info about your token
/balance - Show balance of your token
/suspend - Suspend VPN profile
/resume - Resume VPN profile`

// Router parses inbound commands and dispatches them to the registries
// and the peer provisioner
type Router struct {
	BaseHandler
	users        storage.UserRepository
	profiles     storage.ProfileRepository
	provisioner  wireguard.Provisioner
	notifier     *notify.Notifier
	requireToken bool

	commandHandlers map[string]func(context.Context, telebot.Context, string) error

	locksMu sync.Mutex
	locks   map[int64]*userLock
}

// userLock is a reference-counted per-user mutex; the router removes it
// from the lock map once the last holder releases it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewRouter creates the command router
func NewRouter(
	users storage.UserRepository,
	profiles storage.ProfileRepository,
	provisioner wireguard.Provisioner,
	artifacts *services.ArtifactService,
	sessions *services.SessionService,
	notifier *notify.Notifier,
	cfg *config.Config,
	logger *logrus.Logger,
) *Router {
	router := &Router{
		BaseHandler:  NewBaseHandler(artifacts, sessions, logger),
		users:        users,
		profiles:     profiles,
		provisioner:  provisioner,
		notifier:     notifier,
		requireToken: cfg.Policy.RequireToken,
		locks:        make(map[int64]*userLock),
	}

	router.initializeCommands()
	return router
}

// initializeCommands initializes the command handlers
func (h *Router) initializeCommands() {
	h.commandHandlers = map[string]func(context.Context, telebot.Context, string) error{
		commands.Start:      h.handleStart,
		commands.Help:       h.handleHelp,
		commands.Add:        h.handleAdd,
		commands.List:       h.handleList,
		commands.Delete:     h.handleDelete,
		commands.Get:        h.handleGet,
		commands.Register:   h.handleRegister,
		commands.Unregister: h.handleUnregister,
		commands.Info:       h.handleInfo,
		commands.Balance:    h.handleInfo,
		commands.Suspend:    h.handleSuspend,
		commands.Resume:     h.handleResume,
	}
}

// Handle handles a message from Telegram. Per-user check-then-act
// sequences are serialized so concurrent updates from one user cannot
// race profile creation or token linking.
func (h *Router) Handle(ctx context.Context, c telebot.Context) error {
	userID := c.Sender().ID
	unlock := h.lockUser(userID)
	defer unlock()

	text := strings.TrimSpace(c.Text())
	if strings.HasPrefix(text, "/") {
		verb, arg := splitCommand(text)
		handler, ok := h.commandHandlers[verb]
		if !ok {
			// Unknown verbs are ignored without a reply.
			return nil
		}
		h.sessions.Clear(userID)
		return handler(ctx, c, arg)
	}

	// Plain text: only meaningful as the argument of a pending verb.
	session := h.sessions.Get(userID)
	if session.Pending == models.PendingNone || text == "" {
		return nil
	}

	h.sessions.Clear(userID)
	switch session.Pending {
	case models.PendingAddName:
		return h.addProfile(ctx, c, text)
	case models.PendingDeleteName:
		return h.deleteProfile(ctx, c, text)
	case models.PendingGetName:
		return h.getProfile(ctx, c, text)
	case models.PendingSuspendName:
		return h.suspendProfile(ctx, c, text)
	case models.PendingResumeName:
		return h.resumeProfile(ctx, c, text)
	case models.PendingRegisterToken:
		return h.registerToken(ctx, c, text)
	default:
		h.logger.Warnf("Unknown pending command %d for user %d", session.Pending, userID)
		return nil
	}
}

func (h *Router) lockUser(userID int64) func() {
	h.locksMu.Lock()
	lock, ok := h.locks[userID]
	if !ok {
		lock = &userLock{}
		h.locks[userID] = lock
	}
	lock.refs++
	h.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		h.locksMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(h.locks, userID)
		}
		h.locksMu.Unlock()
	}
}

// splitCommand splits a command line into its verb and trimmed argument,
// dropping a @botname suffix on the verb
func splitCommand(text string) (string, string) {
	verb, arg, _ := strings.Cut(text, " ")
	if at := strings.Index(verb, "@"); at != -1 {
		verb = verb[:at]
	}
	return verb, strings.TrimSpace(arg)
}

// prompt stores the pending verb and asks the user for its argument
func (h *Router) prompt(c telebot.Context, pending models.PendingCommand, text string) error {
	h.sessions.SetPending(c.Sender().ID, pending)
	return h.sendTextMessage(c, text)
}

func (h *Router) handleStart(ctx context.Context, c telebot.Context, _ string) error {
	if _, err := h.users.Ensure(ctx, c.Sender().ID); err != nil {
		h.logger.Errorf("Failed to ensure user %d: %v", c.Sender().ID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}
	return h.sendTextMessage(c, "Welcome to the VPN Access Bot! Use /help for available commands.")
}

func (h *Router) handleHelp(_ context.Context, c telebot.Context, _ string) error {
	return h.sendTextMessage(c, helpText)
}

func (h *Router) handleAdd(ctx context.Context, c telebot.Context, arg string) error {
	if arg == "" {
		return h.prompt(c, models.PendingAddName, "Please provide a profile name after the /add command.")
	}
	return h.addProfile(ctx, c, arg)
}

func (h *Router) addProfile(ctx context.Context, c telebot.Context, name string) error {
	userID := c.Sender().ID

	if err := wireguard.ValidateProfileName(name); err != nil {
		var ve *errors.ValidationError
		if stderrors.As(err, &ve) {
			return h.sendTextMessage(c, ve.Message+".")
		}
		return h.sendTextMessage(c, "Invalid profile name.")
	}

	if _, err := h.users.Ensure(ctx, userID); err != nil {
		h.logger.Errorf("Failed to ensure user %d: %v", userID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	if h.requireToken {
		token, err := h.users.LinkedToken(ctx, userID)
		if err != nil {
			h.logger.Errorf("Failed to load linked token for %d: %v", userID, err)
			return h.sendTextMessage(c, "Something went wrong. Please try again later.")
		}
		if token == nil || token.Balance <= 0 {
			return h.sendTextMessage(c, "A registered token with a positive balance is required. Use /register first.")
		}
	}

	peerID := wireguard.PeerID(userID, name)

	_, err := h.profiles.Create(ctx, userID, name)
	if errors.IsConflict(err) {
		// Soft conflict: the profile is already provisioned, re-deliver
		// its artifacts.
		if err := h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' already exists.", escape(name))); err != nil {
			return err
		}
		return h.sendArtifacts(c, peerID, name)
	}
	if err != nil {
		h.logger.Errorf("Failed to create profile %s for %d: %v", name, userID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	if err := h.provisioner.Add(ctx, peerID); err != nil {
		h.notifier.ProvisionFailure(ctx, "add", peerID, err.Error())
		return h.sendTextMessage(c, fmt.Sprintf(
			"VPN profile '%s' was recorded, but the VPN peer may not be active yet. Please contact the administrator.",
			escape(name)))
	}

	if err := h.sendTextMessage(c, fmt.Sprintf(
		"VPN profile '%s' added successfully.\nYour .conf file and qr code for wireguard client application:",
		escape(name))); err != nil {
		return err
	}
	return h.sendArtifacts(c, peerID, name)
}

func (h *Router) handleList(ctx context.Context, c telebot.Context, _ string) error {
	profiles, err := h.profiles.List(ctx, c.Sender().ID)
	if err != nil {
		h.logger.Errorf("Failed to list profiles for %d: %v", c.Sender().ID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	if len(profiles) == 0 {
		return h.sendTextMessage(c, "You have no VPN profiles.")
	}

	var sb strings.Builder
	sb.WriteString("Your VPN profiles:")
	for _, profile := range profiles {
		sb.WriteString(fmt.Sprintf("\n- %s created: %s",
			escape(profile.Name), profile.CreatedAt.Format(constants.TimestampFormat)))
		if profile.Status == models.StatusSuspended {
			sb.WriteString(" (suspended)")
		}
	}
	return h.sendTextMessage(c, sb.String())
}

func (h *Router) handleDelete(ctx context.Context, c telebot.Context, arg string) error {
	if arg == "" {
		return h.prompt(c, models.PendingDeleteName, "Please provide the profile name you want to delete after the /delete command.")
	}
	return h.deleteProfile(ctx, c, arg)
}

func (h *Router) deleteProfile(ctx context.Context, c telebot.Context, name string) error {
	userID := c.Sender().ID

	err := h.profiles.Delete(ctx, userID, name)
	if errors.IsNotFound(err) {
		return h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' not found.", escape(name)))
	}
	if err != nil {
		h.logger.Errorf("Failed to delete profile %s for %d: %v", name, userID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	peerID := wireguard.PeerID(userID, name)
	if err := h.provisioner.Remove(ctx, peerID); err != nil {
		h.notifier.ProvisionFailure(ctx, "remove", peerID, err.Error())
		return h.sendTextMessage(c, fmt.Sprintf(
			"VPN profile '%s' was deleted, but the VPN peer may still be active. Please contact the administrator.",
			escape(name)))
	}

	return h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' deleted successfully.", escape(name)))
}

func (h *Router) handleGet(ctx context.Context, c telebot.Context, arg string) error {
	if arg == "" {
		return h.prompt(c, models.PendingGetName, "Please provide the profile name you want to get after the /get command.")
	}
	return h.getProfile(ctx, c, arg)
}

func (h *Router) getProfile(ctx context.Context, c telebot.Context, name string) error {
	userID := c.Sender().ID

	if _, err := h.profiles.Get(ctx, userID, name); err != nil {
		if errors.IsNotFound(err) {
			return h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' not found.", escape(name)))
		}
		h.logger.Errorf("Failed to load profile %s for %d: %v", name, userID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	return h.sendArtifacts(c, wireguard.PeerID(userID, name), name)
}

func (h *Router) handleRegister(ctx context.Context, c telebot.Context, arg string) error {
	if arg == "" {
		return h.prompt(c, models.PendingRegisterToken, "Please provide the token you want to register after the /register command.")
	}
	return h.registerToken(ctx, c, arg)
}

func (h *Router) registerToken(ctx context.Context, c telebot.Context, token string) error {
	userID := c.Sender().ID

	balance, err := h.users.LinkToken(ctx, userID, token)
	if err != nil {
		var conflict *errors.ConflictError
		if stderrors.As(err, &conflict) {
			return h.sendTextMessage(c, fmt.Sprintf("You already have token: %s", escape(conflict.Key)))
		}
		if errors.IsNotFound(err) {
			return h.sendTextMessage(c, fmt.Sprintf("Token %s not found.", escape(token)))
		}
		h.logger.Errorf("Failed to link token for %d: %v", userID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	return h.sendTextMessage(c, fmt.Sprintf("Token %s registered successfully.\nYour balance is %d", escape(token), balance))
}

func (h *Router) handleUnregister(ctx context.Context, c telebot.Context, _ string) error {
	userID := c.Sender().ID

	token, err := h.users.UnlinkToken(ctx, userID)
	if errors.IsNotFound(err) {
		return h.sendTextMessage(c, "You don't have any token.")
	}
	if err != nil {
		h.logger.Errorf("Failed to unlink token for %d: %v", userID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	return h.sendTextMessage(c, fmt.Sprintf("Token %s unregistered successfully.", escape(token)))
}

func (h *Router) handleInfo(ctx context.Context, c telebot.Context, _ string) error {
	token, err := h.users.LinkedToken(ctx, c.Sender().ID)
	if err != nil {
		h.logger.Errorf("Failed to load linked token for %d: %v", c.Sender().ID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	if token == nil {
		return h.sendTextMessage(c, "You don't have any token.")
	}

	return h.sendTextMessage(c, fmt.Sprintf("Your token is %s\nYour balance is %d", escape(token.Token), token.Balance))
}

func (h *Router) handleSuspend(ctx context.Context, c telebot.Context, arg string) error {
	if arg == "" {
		return h.prompt(c, models.PendingSuspendName, "Please provide the profile name you want to suspend after the /suspend command.")
	}
	return h.suspendProfile(ctx, c, arg)
}

func (h *Router) suspendProfile(ctx context.Context, c telebot.Context, name string) error {
	userID := c.Sender().ID

	err := h.profiles.SetStatus(ctx, userID, name, models.StatusSuspended)
	if errors.IsNotFound(err) {
		return h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' not found.", escape(name)))
	}
	if errors.IsConflict(err) {
		return h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' already suspended.", escape(name)))
	}
	if err != nil {
		h.logger.Errorf("Failed to suspend profile %s for %d: %v", name, userID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	peerID := wireguard.PeerID(userID, name)
	if err := h.provisioner.Suspend(ctx, peerID); err != nil {
		h.notifier.ProvisionFailure(ctx, "suspend", peerID, err.Error())
		return h.sendTextMessage(c, fmt.Sprintf(
			"VPN profile '%s' was marked suspended, but the VPN peer may still be active. Please contact the administrator.",
			escape(name)))
	}

	return h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' suspended successfully.", escape(name)))
}

func (h *Router) handleResume(ctx context.Context, c telebot.Context, arg string) error {
	if arg == "" {
		return h.prompt(c, models.PendingResumeName, "Please provide the profile name you want to resume after the /resume command.")
	}
	return h.resumeProfile(ctx, c, arg)
}

func (h *Router) resumeProfile(ctx context.Context, c telebot.Context, name string) error {
	userID := c.Sender().ID

	err := h.profiles.SetStatus(ctx, userID, name, models.StatusActive)
	if errors.IsNotFound(err) {
		return h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' not found.", escape(name)))
	}
	if errors.IsConflict(err) {
		return h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' already active.", escape(name)))
	}
	if err != nil {
		h.logger.Errorf("Failed to resume profile %s for %d: %v", name, userID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.")
	}

	peerID := wireguard.PeerID(userID, name)
	if err := h.provisioner.Resume(ctx, peerID); err != nil {
		h.notifier.ProvisionFailure(ctx, "resume", peerID, err.Error())
		return h.sendTextMessage(c, fmt.Sprintf(
			"VPN profile '%s' was marked active, but the VPN peer may not be active yet. Please contact the administrator.",
			escape(name)))
	}

	return h.sendTextMessage(c, fmt.Sprintf("VPN profile '%s' resumed successfully.", escape(name)))
}
