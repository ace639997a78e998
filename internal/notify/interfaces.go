package notify

import "gopkg.in/telebot.v4"

// API is the slice of the Telegram bot client the notifier needs; kept
// narrow so tests can substitute a mock.
type API interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}
