package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxPhotoSize caps downloads from the Bot API.
const maxPhotoSize = 5 * 1024 * 1024

// downloadPhoto fetches a photo's bytes through the Bot API file endpoint.
// Telegram re-encodes chat photos as JPEG.
func (b *Bot) downloadPhoto(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file info: %w", err)
	}

	if file.FileSize > maxPhotoSize {
		return nil, "", fmt.Errorf("photo size %d exceeds maximum %d", file.FileSize, maxPhotoSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.token), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("photo download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) > maxPhotoSize {
		return nil, "", fmt.Errorf("photo exceeds maximum size %d", maxPhotoSize)
	}

	return data, "image/jpeg", nil
}
