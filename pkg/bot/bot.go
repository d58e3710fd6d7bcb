// Package bot is the Telegram gateway: it receives commands from one group
// chat, asks the policy engine for a decision, and forwards allowed posts to
// the configured channel. All policy and statistics logic lives in the
// packages it calls into; this package only renders and transports.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/chaynik/teabot/pkg/policy"
	"github.com/chaynik/teabot/pkg/stats"
)

// Telegram allows roughly 30 messages a second bot-wide; stay well under it
// so a stats burst never trips flood control.
const (
	sendRate  = rate.Limit(20)
	sendBurst = 5
)

// Dependencies holds external collaborators for the bot.
type Dependencies struct {
	Engine   *policy.Engine
	Reporter *stats.Reporter
	Quotes   []string
}

// Bot runs the long-polling update loop.
type Bot struct {
	cfg      Config
	api      *tgbotapi.BotAPI
	engine   *policy.Engine
	reporter *stats.Reporter
	quotes   []string
	metrics  *Metrics
	limiter  *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
}

// New authenticates against the Telegram API and assembles the bot.
func New(cfg Config, deps Dependencies) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("bot: authorize: %w", err)
	}
	return &Bot{
		cfg:      cfg,
		api:      api,
		engine:   deps.Engine,
		reporter: deps.Reporter,
		quotes:   deps.Quotes,
		metrics:  NewMetrics(),
		limiter:  rate.NewLimiter(sendRate, sendBurst),
	}, nil
}

// Metrics exposes the bot's counters.
func (b *Bot) Metrics() *Metrics {
	return b.metrics
}

// Run polls for updates until the context is cancelled. Each update is
// handled as one independent unit of work.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.cancel()

	b.StartMetricsHTTP()
	b.metrics.StartPeriodicLog(60*time.Second, b.ctx.Done())

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}
	updates := b.api.GetUpdatesChan(u)

	slog.Info("bot running",
		"account", b.api.Self.UserName,
		"group", b.cfg.GroupID,
		"channel", b.cfg.ChannelID,
		"daily_limit", b.cfg.DailyLimit,
	)

	for {
		select {
		case <-b.ctx.Done():
			b.api.StopReceivingUpdates()
			slog.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		}
	}
}

// handleUpdate routes one inbound message. Anything outside the configured
// source chat is silently ignored.
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if msg.Chat == nil || msg.Chat.ID != b.cfg.GroupID {
		return
	}

	cmd := commandOf(msg, b.api.Self.UserName)
	if cmd == "" {
		return
	}
	route, ok := routes[cmd]
	if !ok {
		return
	}

	if route.adminOnly && !b.engine.IsAdmin(msg.From.ID) {
		b.reply(msg, "This command is for administrators only.")
		slog.Warn("unauthorized command", "command", cmd, "user_id", msg.From.ID)
		return
	}

	b.metrics.CommandsHandled.Add(1)
	route.handler(b, msg)
}

// send pushes a message through the outbound rate limiter.
func (b *Bot) send(c tgbotapi.Chattable) error {
	if err := b.limiter.Wait(b.ctx); err != nil {
		return fmt.Errorf("bot: send: %w", err)
	}
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("bot: send: %w", err)
	}
	return nil
}

// reply answers in the source chat; failures are logged, never propagated.
func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if err := b.send(out); err != nil {
		slog.Error("reply failed", "err", err)
	}
}
