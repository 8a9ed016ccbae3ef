package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeText = `Hey! I'm your fitness coach.

Tell me what you eat, how you train and how you sleep, and I'll keep track of everything. You can also send me a photo of a meal or a menu.

Try things like:
- "I had 3 eggs and toast for breakfast"
- "Log my workout: bench 4x8 at 60kg"
- "Slept 6 hours, woke up twice"
- "Show me a chart of my calories this week"`

const helpText = `Here's what I can do:

- Log meals and track your daily calories and macros
- Log workouts and tell you what's scheduled next
- Track sleep and strength records
- Keep notes about injuries or anything affecting training
- Draw charts of your progress

Just talk to me normally. No commands needed.`

// handleCommand answers bot commands. Everything that is not a known
// command gets the help text.
func (b *Bot) handleCommand(msg *tgbotapi.Message) error {
	var text string
	switch msg.Command() {
	case "start":
		text = welcomeText
	default:
		text = helpText
	}

	_, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, text))
	return err
}
