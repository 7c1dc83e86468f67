package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/spacesedan/postforge/internal/db"
	"github.com/spacesedan/postforge/internal/digest"
	"github.com/spacesedan/postforge/internal/models"
)

const draftsPerPage = 5

// Poster publishes an approved draft to X.
type Poster interface {
	Configured() bool
	Post(ctx context.Context, text string) (tweetID, tweetURL string, err error)
}

// Bot drives the Telegram review flow: browse pending drafts, approve or
// reject them inline, and check stats without opening the dashboard.
type Bot struct {
	api     *tgbotapi.BotAPI
	store   db.Store
	poster  Poster
	ownerID int64
}

// New builds the bot from TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID. The
// chat ID restricts the bot to its owner; everyone else is ignored.
func New(store db.Store, poster Poster) (*Bot, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, errors.New("bot: TELEGRAM_BOT_TOKEN is not set")
	}

	ownerID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bot: TELEGRAM_CHAT_ID must be a numeric chat id: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("bot: failed to connect: %w", err)
	}

	slog.Info("[Bot] Authorized", slog.String("username", api.Self.UserName))
	return &Bot{api: api, store: store, poster: poster, ownerID: ownerID}, nil
}

// Run processes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if update.CallbackQuery.From.ID != b.ownerID {
			return
		}
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat.ID != b.ownerID {
			slog.Warn("[Bot] Ignoring message from unknown chat",
				slog.Int64("chat_id", update.Message.Chat.ID))
			return
		}
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, "Commands:\n"+
			"/drafts - pending drafts awaiting review\n"+
			"/approved - this week's schedule\n"+
			"/stats - pipeline counts")
	case "drafts":
		b.sendPendingDrafts(ctx, msg.Chat.ID)
	case "approved":
		b.sendSchedule(ctx, msg.Chat.ID)
	case "stats":
		b.sendStats(ctx, msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Try /drafts, /approved, or /stats.")
	}
}

func (b *Bot) sendPendingDrafts(ctx context.Context, chatID int64) {
	pending := models.StatusPending
	drafts, err := b.store.ListDrafts(ctx, &pending, draftsPerPage)
	if err != nil {
		slog.Error("[Bot] Failed to list pending drafts", slog.String("error", err.Error()))
		b.reply(chatID, "Could not load drafts, try again later.")
		return
	}
	if len(drafts) == 0 {
		b.reply(chatID, "No pending drafts.")
		return
	}

	for _, d := range drafts {
		text := fmt.Sprintf("%s (variant %d)\n\n%s", d.DraftID, d.Variant, d.Content)
		if d.QualityScore > 0 {
			text += fmt.Sprintf("\n\nQuality: %.0f", d.QualityScore)
		}

		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Approve", "approve:"+d.DraftID),
				tgbotapi.NewInlineKeyboardButtonData("Reject", "reject:"+d.DraftID),
			),
		)
		if _, err := b.api.Send(msg); err != nil {
			slog.Error("[Bot] Failed to send draft", slog.String("error", err.Error()))
		}
	}
}

func (b *Bot) sendSchedule(ctx context.Context, chatID int64) {
	approved := models.StatusApproved
	drafts, err := b.store.ListDrafts(ctx, &approved, 0)
	if err != nil {
		slog.Error("[Bot] Failed to list approved drafts", slog.String("error", err.Error()))
		b.reply(chatID, "Could not load the schedule, try again later.")
		return
	}
	entries := digest.CompileWeekly(drafts, time.Now())
	b.reply(chatID, digest.FormatSchedule(entries))
}

func (b *Bot) sendStats(ctx context.Context, chatID int64) {
	var sb strings.Builder
	sb.WriteString("Draft counts:\n")
	for _, status := range []models.DraftStatus{models.StatusPending, models.StatusApproved, models.StatusRejected} {
		st := status
		drafts, err := b.store.ListDrafts(ctx, &st, 0)
		if err != nil {
			slog.Error("[Bot] Failed to count drafts",
				slog.String("status", string(status)),
				slog.String("error", err.Error()))
			b.reply(chatID, "Could not load stats, try again later.")
			return
		}
		sb.WriteString(fmt.Sprintf("  %s: %d\n", status, len(drafts)))
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	action, draftID, found := strings.Cut(cb.Data, ":")
	if !found {
		return
	}

	var status models.DraftStatus
	switch action {
	case "approve":
		status = models.StatusApproved
	case "reject":
		status = models.StatusRejected
	default:
		return
	}

	draft, err := b.store.UpdateDraftReview(ctx, draftID, models.DraftUpdate{Status: &status})
	if err != nil {
		slog.Error("[Bot] Failed to update draft",
			slog.String("draft_id", draftID),
			slog.String("error", err.Error()))
		b.answerCallback(cb.ID, "Update failed")
		return
	}

	note := fmt.Sprintf("Draft %s %s", draftID, status)
	if status == models.StatusApproved && b.poster != nil && b.poster.Configured() && draft.TweetID == "" {
		tweetID, tweetURL, postErr := b.poster.Post(ctx, draft.PostText())
		if postErr != nil {
			slog.Error("[Bot] Failed to post approved draft",
				slog.String("draft_id", draftID),
				slog.String("error", postErr.Error()))
			note += " (posting failed)"
		} else if err := b.store.SetTweetRef(ctx, draftID, tweetID, tweetURL); err != nil {
			slog.Error("[Bot] Failed to record tweet ref",
				slog.String("draft_id", draftID),
				slog.String("error", err.Error()))
		} else {
			note += "\n" + tweetURL
		}
	}

	b.answerCallback(cb.ID, string(status))

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
		cb.Message.Text+"\n\n"+note)
	if _, err := b.api.Send(edit); err != nil {
		slog.Error("[Bot] Failed to edit message", slog.String("error", err.Error()))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("[Bot] Failed to send message", slog.String("error", err.Error()))
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		slog.Error("[Bot] Failed to answer callback", slog.String("error", err.Error()))
	}
}
