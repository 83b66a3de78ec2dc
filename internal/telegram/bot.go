package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/meal"
	"meal-planner/internal/metrics"
	"meal-planner/internal/shopping"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// messageTimeout bounds the work done for a single update.
const messageTimeout = 45 * time.Second

// Sender is the part of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service is the set of use-cases the bot exposes.
type Service interface {
	Meals(ctx context.Context, filter meal.Filter) ([]meal.Meal, error)
	Meal(ctx context.Context, id meal.ID) (*meal.Meal, error)
	RandomMenu(ctx context.Context) (*meal.Menu, error)
	GeneratePlan(ctx context.Context, filter meal.PlanFilter) (meal.WeeklyPlan, error)
	CurrentPlan() (meal.WeeklyPlan, error)
	Select(ctx context.Context, chatID int64, ids ...meal.ID) ([]meal.ID, error)
	Unselect(ctx context.Context, chatID int64, id meal.ID) ([]meal.ID, error)
	ClearSelection(ctx context.Context, chatID int64) error
	SelectionShoppingList(ctx context.Context, chatID int64, remote bool) (*shopping.ShoppingList, error)
	PlanShoppingList(ctx context.Context, remote bool) (*shopping.ShoppingList, error)
	ToggleFavorite(id meal.ID) (bool, error)
	Favorites(ctx context.Context) ([]meal.Meal, error)
	Clip(ctx context.Context, url string) (*meal.Meal, error)
	Usage(ctx context.Context, days int) ([]metrics.DailyUsage, metrics.SysHealth, error)
}

var _ Service = (*app.App)(nil)

// Bot wraps the Telegram API and the meal planner use-cases.
type Bot struct {
	api     Sender
	service Service
	cfg     *config.Config
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewBot creates a Bot that answers through api.
func NewBot(cfg *config.Config, api Sender, service Service, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{api: api, service: service, cfg: cfg, logger: logger.Named("telegram")}
}

// Connect authorizes against Telegram and points the webhook at cfg.TelegramWebhookURL.
func Connect(cfg *config.Config, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("description", resp.Description))
	return api, nil
}

// RegisterRoutes adds the webhook and health endpoints to r.
func (b *Bot) RegisterRoutes(r gin.IRoutes) {
	r.POST("/webhook", b.handleWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
}

// Wait blocks until every update being processed is done.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}
	c.Status(http.StatusOK)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
		defer cancel()
		b.HandleUpdate(ctx, update)
	}()
}

// HandleUpdate processes a single update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.allowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName),
		)
		return
	}
	b.processMessage(ctx, msg)
}

func (b *Bot) allowed(userID int64) bool {
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if userID == id {
			return true
		}
	}
	return userID != 0 && userID == b.cfg.AdminTelegramID
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		b.handleClip(ctx, msg.Chat.ID, text)
		return
	}

	if !msg.IsCommand() {
		b.reply(msg.Chat.ID, helpText)
		return
	}

	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	b.logger.Debug("command received", zap.String("command", msg.Command()), zap.Int64("chat_id", chatID))

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText)
	case "meals":
		b.handleMeals(ctx, chatID, strings.Join(args, " "))
	case "meal":
		b.handleMeal(ctx, chatID, args)
	case "random":
		b.handleRandom(ctx, chatID)
	case "week":
		b.handleWeek(ctx, chatID, args)
	case "plan":
		b.handlePlan(chatID)
	case "select":
		b.handleSelect(ctx, chatID, args)
	case "unselect":
		b.handleUnselect(ctx, chatID, args)
	case "clear":
		b.handleClear(ctx, chatID)
	case "shop":
		b.handleShop(ctx, chatID, args)
	case "fav":
		b.handleFavorite(chatID, args)
	case "favorites":
		b.handleFavorites(ctx, chatID)
	case "metrics":
		b.handleMetrics(ctx, msg)
	default:
		b.reply(chatID, "Unknown command. Send /help to see what I can do.")
	}
}

func (b *Bot) handleMeals(ctx context.Context, chatID int64, search string) {
	meals, err := b.service.Meals(ctx, meal.Filter{Search: search})
	if err != nil {
		b.replyError(chatID, "listing meals", err)
		return
	}
	b.reply(chatID, formatMeals(meals))
}

func (b *Bot) handleMeal(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(chatID, "Usage: /meal <id>")
		return
	}
	m, err := b.service.Meal(ctx, meal.ID(args[0]))
	if err != nil {
		b.replyError(chatID, "fetching meal", err)
		return
	}
	b.reply(chatID, formatMeal(*m))
}

func (b *Bot) handleRandom(ctx context.Context, chatID int64) {
	menu, err := b.service.RandomMenu(ctx)
	if err != nil {
		b.replyError(chatID, "picking a random menu", err)
		return
	}
	b.reply(chatID, formatMenu(*menu))
}

// handleWeek accepts an optional diet type and maximum calories, in any order.
func (b *Bot) handleWeek(ctx context.Context, chatID int64, args []string) {
	var filter meal.PlanFilter
	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			filter.MaxCalories = n
			continue
		}
		filter.DietType = strings.ToLower(arg)
	}

	status := b.reply(chatID, "🧑‍🍳 *Planning your week...*")
	plan, err := b.service.GeneratePlan(ctx, filter)
	if err != nil {
		b.edit(chatID, status, errorText("generating plan", err))
		return
	}
	b.edit(chatID, status, formatPlan(plan))
}

func (b *Bot) handlePlan(chatID int64) {
	plan, err := b.service.CurrentPlan()
	if err != nil {
		b.replyError(chatID, "loading plan", err)
		return
	}
	b.reply(chatID, formatPlan(plan))
}

func (b *Bot) handleSelect(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(chatID, "Usage: /select <id> [id...]")
		return
	}
	ids := make([]meal.ID, 0, len(args))
	for _, a := range args {
		ids = append(ids, meal.ID(a))
	}
	selection, err := b.service.Select(ctx, chatID, ids...)
	if err != nil {
		b.replyError(chatID, "updating selection", err)
		return
	}
	b.reply(chatID, formatSelection(selection))
}

func (b *Bot) handleUnselect(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(chatID, "Usage: /unselect <id>")
		return
	}
	selection, err := b.service.Unselect(ctx, chatID, meal.ID(args[0]))
	if err != nil {
		b.replyError(chatID, "updating selection", err)
		return
	}
	b.reply(chatID, formatSelection(selection))
}

func (b *Bot) handleClear(ctx context.Context, chatID int64) {
	if err := b.service.ClearSelection(ctx, chatID); err != nil {
		b.replyError(chatID, "clearing selection", err)
		return
	}
	b.reply(chatID, "🧹 Selection cleared.")
}

// handleShop builds a list from the chat's selection, or from the current
// plan with "/shop week". "remote" asks the backend to aggregate.
func (b *Bot) handleShop(ctx context.Context, chatID int64, args []string) {
	var fromPlan, remote bool
	for _, a := range args {
		switch strings.ToLower(a) {
		case "week", "plan":
			fromPlan = true
		case "remote":
			remote = true
		}
	}

	var (
		list *shopping.ShoppingList
		err  error
	)
	if fromPlan {
		list, err = b.service.PlanShoppingList(ctx, remote)
	} else {
		list, err = b.service.SelectionShoppingList(ctx, chatID, remote)
	}
	if err != nil {
		b.replyError(chatID, "building shopping list", err)
		return
	}
	b.reply(chatID, formatShoppingList(list))
}

func (b *Bot) handleFavorite(chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(chatID, "Usage: /fav <id>")
		return
	}
	on, err := b.service.ToggleFavorite(meal.ID(args[0]))
	if err != nil {
		b.replyError(chatID, "updating favorites", err)
		return
	}
	if on {
		b.reply(chatID, fmt.Sprintf("⭐ Meal #%s added to favorites.", escape(args[0])))
	} else {
		b.reply(chatID, fmt.Sprintf("Meal #%s removed from favorites.", escape(args[0])))
	}
}

func (b *Bot) handleFavorites(ctx context.Context, chatID int64) {
	favs, err := b.service.Favorites(ctx)
	if err != nil {
		b.replyError(chatID, "loading favorites", err)
		return
	}
	if len(favs) == 0 {
		b.reply(chatID, "No favorites yet. Use /fav <id> to add one.")
		return
	}
	b.reply(chatID, "⭐ *Favorites*\n\n"+formatMealLines(favs))
}

func (b *Bot) handleClip(ctx context.Context, chatID int64, url string) {
	status := b.reply(chatID, "✂️ *Clipping recipe...*")
	created, err := b.service.Clip(ctx, url)
	if err != nil {
		b.edit(chatID, status, errorText("clipping recipe", err))
		return
	}
	b.edit(chatID, status, "✅ *Recipe Saved!*\n\n"+formatMeal(*created))
}

func (b *Bot) handleMetrics(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	usage, health, err := b.service.Usage(ctx, 7)
	if err != nil {
		b.replyError(msg.Chat.ID, "fetching metrics", err)
		return
	}
	b.reply(msg.Chat.ID, formatUsage(usage, health))
}

// reply sends a Markdown message and returns its id, or 0 if sending failed.
func (b *Bot) reply(chatID int64, text string) int {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(m)
	if err != nil {
		b.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0
	}
	return sent.MessageID
}

// edit replaces a status message, falling back to a new message when the
// status could not be sent.
func (b *Bot) edit(chatID int64, messageID int, text string) {
	if messageID == 0 {
		b.reply(chatID, text)
		return
	}
	e := tgbotapi.NewEditMessageText(chatID, messageID, text)
	e.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(e); err != nil {
		b.logger.Warn("failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) replyError(chatID int64, action string, err error) {
	b.logger.Warn("command failed", zap.String("action", action), zap.Error(err))
	b.reply(chatID, errorText(action, err))
}

func errorText(action string, err error) string {
	return fmt.Sprintf("❌ *Error %s:*\n%s", action, escape(app.Describe(err)))
}
