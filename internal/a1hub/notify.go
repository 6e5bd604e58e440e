package a1hub

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"a1hub/internal/telegram"

	"github.com/PaulSonOfLars/gotgbot/v2"
)

func EscapeMarkdownV2(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	for _, char := range specialChars {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// SendTelegramMessage pushes an ops notification to the finance or default
// channel. Best effort: callers ignore the error outside of logging.
func SendTelegramMessage(msg string, chat string) error {
	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return errors.New("TELEGRAM_TOKEN is not set")
	}
	chatId := os.Getenv("DEFAULT_CHAT_ID")
	switch chat {
	case "finance":
		chatId = os.Getenv("FINANCE_CHAT_ID")
	}
	if chatId == "" {
		return errors.New("CHAT_ID is not set")
	}
	chatIdInt, err := strconv.Atoi(chatId)
	if err != nil {
		return err
	}
	bot, err := telegram.NewBot(token)
	if err != nil {
		return err
	}
	_, err = bot.Api.SendMessage(int64(chatIdInt), msg, &gotgbot.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	return err
}
