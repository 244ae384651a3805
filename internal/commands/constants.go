package commands

// TelegramCommands contains all commands for the Telegram bot
const (
	Start      = "/start"
	Help       = "/help"
	Add        = "/add"
	List       = "/list"
	Delete     = "/delete"
	Get        = "/get"
	Register   = "/register"
	Unregister = "/unregister"
	Info       = "/info"
	Balance    = "/balance"
	Suspend    = "/suspend"
	Resume     = "/resume"
)
