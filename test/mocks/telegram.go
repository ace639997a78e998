package mocks

import (
	"github.com/stretchr/testify/mock"
	"gopkg.in/telebot.v4"
)

// TelegramAPI mocks the send-only Telegram client.
type TelegramAPI struct {
	mock.Mock
}

func (m *TelegramAPI) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	args := m.Called(to, what, opts)
	if msg, ok := args.Get(0).(*telebot.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}
