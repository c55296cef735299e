package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

const (
	btnMyTasks   = "📋 My tasks"
	linkCodeTTL  = 30 * time.Minute
	digestLength = 10
)

// telegramAPI is the part of *tgbotapi.BotAPI the service uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramService delivers notifications to linked chats and handles the
// bot commands that link a chat to an account.
type TelegramService struct {
	api   telegramAPI
	links repositories.TelegramLinkRepository
	users repositories.UserRepository
	tasks repositories.TaskRepository
}

func NewTelegramService(botToken string, links repositories.TelegramLinkRepository, users repositories.UserRepository, tasks repositories.TaskRepository) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Printf("[tg] authorized as @%s", bot.Self.UserName)
	return newTelegramService(bot, links, users, tasks), nil
}

func newTelegramService(api telegramAPI, links repositories.TelegramLinkRepository, users repositories.UserRepository, tasks repositories.TaskRepository) *TelegramService {
	return &TelegramService{api: api, links: links, users: users, tasks: tasks}
}

func (t *TelegramService) Name() string { return "telegram" }

// Deliver sends n to the recipient's linked chat. Users without a chat are skipped.
func (t *TelegramService) Deliver(ctx context.Context, user *models.User, n *models.Notification) error {
	if user == nil || user.TelegramChatID == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.SendMessage(*user.TelegramChatID, "🔔 "+html.EscapeString(n.Message))
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if t == nil || chatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		log.Printf("[tg][send][err] chatID=%d: %v", chatID, err)
		return err
	}
	return nil
}

func (t *TelegramService) sendWithKeyboard(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMyTasks)),
	)
	_, err := t.api.Send(msg)
	return err
}

func (t *TelegramService) SetWebhook(url string) error {
	if t == nil || url == "" {
		return nil
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	if _, err := t.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	log.Printf("[tg][setWebhook] %s", url)
	return nil
}

// RequestLink issues a one-time code the user sends to the bot with /link.
func (t *TelegramService) RequestLink(ctx context.Context, userID int64) (*repositories.TelegramLink, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	code := strings.ToUpper(hex.EncodeToString(buf))
	link, err := t.links.Create(ctx, userID, code, linkCodeTTL)
	if err != nil {
		return nil, persistence("create telegram link", err)
	}
	return link, nil
}

// HandleUpdate processes one bot update. Reply failures are logged only.
func (t *TelegramService) HandleUpdate(ctx context.Context, up tgbotapi.Update) {
	if up.Message == nil || up.Message.Chat == nil {
		return
	}
	chatID := up.Message.Chat.ID
	text := strings.TrimSpace(up.Message.Text)
	log.Printf("[tg][update] chatID=%d text=%q", chatID, text)

	var err error
	switch {
	case up.Message.IsCommand() && up.Message.Command() == "start":
		err = t.sendWithKeyboard(chatID, "Hi! To link your account send:\n<code>/link &lt;code&gt;</code>")
	case up.Message.IsCommand() && up.Message.Command() == "link":
		err = t.link(ctx, chatID, up.Message.CommandArguments())
	case up.Message.IsCommand() && up.Message.Command() == "tasks", text == btnMyTasks:
		err = t.sendDigest(ctx, chatID)
	default:
		err = t.SendMessage(chatID, "Unknown command. Use <code>/link &lt;code&gt;</code> or the menu button.")
	}
	if err != nil {
		log.Printf("[tg][update][err] chatID=%d: %v", chatID, err)
	}
}

func (t *TelegramService) link(ctx context.Context, chatID int64, raw string) error {
	code, ok := normalizeLinkCode(raw)
	if !ok {
		return t.SendMessage(chatID, "Invalid code format. Send exactly 32 hex characters:\n<code>/link 0123456789ABCDEF0123456789ABCDEF</code>")
	}
	l, err := t.links.UseByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return t.SendMessage(chatID, "The code is invalid or expired. Request a new one.")
		}
		return err
	}
	if err := t.users.SetTelegramChat(ctx, l.UserID, &chatID); err != nil {
		_ = t.SendMessage(chatID, "Could not link the account, try again later.")
		return err
	}
	log.Printf("[tg][link][ok] userID=%d chatID=%d", l.UserID, chatID)
	if err := t.SendMessage(chatID, "Done! You will receive task notifications here."); err != nil {
		return err
	}
	return t.sendDigest(ctx, chatID)
}

func (t *TelegramService) sendDigest(ctx context.Context, chatID int64) error {
	u, err := t.users.GetByTelegramChat(ctx, chatID)
	if err != nil {
		return t.SendMessage(chatID, "This chat is not linked. Use /link first.")
	}
	uid := u.ID
	tasks, err := t.tasks.FindAll(ctx, models.TaskFilter{AssignedTo: &uid})
	if err != nil {
		return err
	}
	return t.sendWithKeyboard(chatID, FormatTaskDigest(tasks, time.Now()))
}

// FormatTaskDigest lists open tasks, most urgent first as returned by the store.
func FormatTaskDigest(tasks []models.Task, now time.Time) string {
	var open []models.Task
	for _, task := range tasks {
		if task.Status != models.StatusDone {
			open = append(open, task)
		}
	}
	if len(open) == 0 {
		return "You have no open tasks. 👍"
	}
	var b strings.Builder
	b.WriteString("📝 Your open tasks:\n")
	for i, task := range open {
		if i == digestLength {
			fmt.Fprintf(&b, "…and %d more\n", len(open)-digestLength)
			break
		}
		fmt.Fprintf(&b, "• %s (%s, %s) [%s]\n",
			html.EscapeString(task.Title), task.Status, task.Priority, dueLabel(now, task.DueDate))
	}
	return b.String()
}

func dueLabel(now time.Time, due *time.Time) string {
	if due == nil {
		return "no due date"
	}
	days := int(due.Sub(now).Hours() / 24)
	switch {
	case due.Before(now):
		return "overdue"
	case days == 0:
		return "due today"
	case days == 1:
		return "due in 1 day"
	}
	return fmt.Sprintf("due in %d days", days)
}

func normalizeLinkCode(s string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if unicode.Is(unicode.Hex_Digit, r) {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) != 32 {
		return "", false
	}
	return code, true
}
