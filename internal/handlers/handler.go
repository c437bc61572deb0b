package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"media-studio/internal/mediagroup"
	"media-studio/internal/session"
	"media-studio/internal/studio"
	"media-studio/internal/telegram"
)

// Messenger is the part of telegram.Client the handlers use.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendTyping(chatID int64)
	SendPhoto(chatID int64, name string, data []byte, caption string) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Options struct {
	Telegram Messenger
	Sessions *session.Store
	Logger   *slog.Logger
}

type Handler struct {
	tg         Messenger
	sessions   *session.Store
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:       opts.Telegram,
		sessions: opts.Sessions,
		logger:   logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	var userID int64
	var username string
	if msg.From != nil {
		userID = msg.From.ID
		username = msg.From.UserName
	}

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, username, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, userID, username, msg)
	}

	if msg.Text != "" {
		return h.handleText(ctx, chatID, username, msg.Text)
	}

	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processPhotos(ctx, group.ChatID, group.Username, group.Caption, group.FileIDs); err != nil {
		h.logger.Error("media group processing failed", "err", err)
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, username string, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	st := h.sessions.Studio(chatID, username)
	refining, isRefining := st.Mode().(studio.Refining)

	h.tg.SendTyping(chatID)
	reply, err := st.Chat(ctx, text)
	if err != nil {
		return h.tg.SendText(chatID, describe(err))
	}

	if isRefining {
		if a, err := st.Asset(refining.AssetID); err == nil && a.Status == studio.StatusCompleted && st.Mode() == (studio.Negotiating{}) {
			return h.tg.SendPhoto(chatID, a.ID+".png", a.Result, reply.Content)
		}
	}
	return h.tg.SendText(chatID, reply.Content)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, userID int64, username string, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]
	fileID := photo.FileID

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			Username:     username,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}

	return h.processPhotos(ctx, chatID, username, msg.Caption, []string{fileID})
}

func (h *Handler) processPhotos(ctx context.Context, chatID int64, username, caption string, fileIDs []string) error {
	h.tg.SendTyping(chatID)

	uploads := make([]studio.Upload, len(fileIDs))
	note := strings.TrimSpace(caption)
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			data, mimeType, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			uploads[i] = studio.Upload{Data: data, MimeType: mimeType, Note: note}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("photo download failed", "err", err)
		return h.tg.SendText(chatID, "❌ Could not download the photo. Please send it again.")
	}

	st := h.sessions.Studio(chatID, username)
	added := st.AddItems(uploads, "")
	if len(added) == 0 {
		return h.tg.SendText(chatID, "❌ No usable images in that message.")
	}

	product := st.SelectedProduct()
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📥 Added %d asset(s) for %s (%s):", len(added), product.Name, product.AspectRatio))
	for _, a := range added {
		b.WriteString(" " + a.ID)
	}
	if added[0].Remixing {
		b.WriteString("\n♻️ Remixing from the locked template.")
	}
	b.WriteString("\nSend /synthesize to render.")
	return h.tg.SendText(chatID, b.String())
}

func describe(err error) string {
	switch {
	case errors.Is(err, studio.ErrBusy):
		return "⏳ The studio is busy rendering. Try again when it finishes."
	case errors.Is(err, studio.ErrNotFound):
		return "❌ No asset with that id. Use /assets to list them."
	case errors.Is(err, studio.ErrNotRemixable):
		return "❌ Only completed assets can be used as a remix template."
	case errors.Is(err, studio.ErrNoResult):
		return "❌ That asset has not been rendered yet. Send /synthesize first."
	case errors.Is(err, studio.ErrNotRetryable):
		return "❌ That asset is already rendered."
	case errors.Is(err, studio.ErrNoSuggestion):
		return "❌ No such suggestion. Send /suggest to load them."
	case errors.Is(err, studio.ErrUnknownProduct):
		return "❌ Unknown product. Use /products to list them."
	case errors.Is(err, studio.ErrEmptyMessage):
		return "❌ Empty message."
	default:
		return "❌ " + err.Error()
	}
}
