package telegram

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/amr/nutrisync/pkg/turn"
)

// handleMessage runs one turn for an inbound chat message and delivers the
// reply, including any chart artifact as a photo.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	var attachment []byte
	var attachmentMIME string
	if len(msg.Photo) > 0 {
		// Telegram lists photo sizes smallest first.
		fileID := msg.Photo[len(msg.Photo)-1].FileID
		data, mime, err := b.downloadPhoto(ctx, fileID)
		if err != nil {
			b.logger.Warn().
				Err(err).
				Str("file_id", fileID).
				Int64("chat_id", msg.Chat.ID).
				Msg("Photo download failed, continuing without it")
		} else {
			attachment = data
			attachmentMIME = mime
		}
	}

	if strings.TrimSpace(text) == "" && attachment == nil {
		return nil
	}

	userID := strconv.FormatInt(msg.Chat.ID, 10)

	b.logger.Debug().
		Str("user_id", userID).
		Bool("has_photo", attachment != nil).
		Msg("Message received")

	b.sendTyping(msg.Chat.ID)

	result := b.turns.ProcessTurn(ctx, turn.Request{
		UserID:         userID,
		Text:           text,
		Attachment:     attachment,
		AttachmentMIME: attachmentMIME,
	})

	return b.deliverResult(msg, result)
}

func (b *Bot) deliverResult(msg *tgbotapi.Message, result turn.Result) error {
	if result.Text != "" {
		reply := tgbotapi.NewMessage(msg.Chat.ID, result.Text)
		reply.ReplyToMessageID = msg.MessageID
		if _, err := b.api.Send(reply); err != nil {
			return err
		}
	}

	if result.Chart != nil {
		if err := b.sendChart(msg.Chat.ID, result.Chart.ImageBase64, result.Chart.Caption); err != nil {
			// The text reply already went out; a lost chart is not fatal.
			b.logger.Error().
				Err(err).
				Int64("chat_id", msg.Chat.ID).
				Msg("Failed to send chart photo")
		}
	}

	return nil
}

func (b *Bot) sendChart(chatID int64, imageBase64, caption string) error {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "chart.png",
		Bytes: data,
	})
	photo.Caption = caption

	_, err = b.api.Send(photo)
	return err
}

func (b *Bot) sendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Send(action); err != nil {
		b.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to send typing action")
	}
}
