package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chaynik/teabot/pkg/caption"
	"github.com/chaynik/teabot/pkg/charts"
	"github.com/chaynik/teabot/pkg/model"
	"github.com/chaynik/teabot/pkg/policy"
	"github.com/chaynik/teabot/pkg/stats"
)

// route binds a command to its handler and permission flag.
type route struct {
	handler   func(b *Bot, msg *tgbotapi.Message)
	adminOnly bool
}

var routes = map[string]route{
	"help":  {(*Bot).handleHelp, false},
	"tea":   {(*Bot).handleTea, false},
	"quote": {(*Bot).handleQuote, false},
	"stats": {(*Bot).handleStats, true},
	"reset": {(*Bot).handleReset, true},
	"ban":   {(*Bot).handleBan, true},
	"unban": {(*Bot).handleUnban, true},
}

// commandOf extracts the leading /command from a message's text or media
// caption, stripping an optional @botname suffix. Media captions matter:
// "/tea nice one" arrives as the caption of a photo, which the library's
// own Command() ignores.
func commandOf(msg *tgbotapi.Message, botName string) string {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.Index(cmd, "@"); at >= 0 {
		if !strings.EqualFold(cmd[at+1:], botName) {
			return ""
		}
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

// argumentsOf returns everything after the /command token, trimmed.
func argumentsOf(msg *tgbotapi.Message) string {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if _, rest, found := strings.Cut(text, " "); found {
		return strings.TrimSpace(rest)
	}
	return ""
}

// kindOf classifies the message content.
func kindOf(msg *tgbotapi.Message) model.Kind {
	switch {
	case len(msg.Photo) > 0:
		return model.KindPhoto
	case msg.Video != nil:
		return model.KindVideo
	case msg.VideoNote != nil:
		return model.KindVideoNote
	default:
		return model.KindText
	}
}

func senderName(u *tgbotapi.User) string {
	return caption.DisplayName(u.UserName, u.FirstName, u.LastName)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	help := fmt.Sprintf(`TeaBot commands:

/tea — publish an announcement to the channel
  • plain /tea — default announcement
  • /tea with a photo or video — media with caption
  • /tea your text — custom caption
/quote — publish a random quote
/help — this message

Administrator commands:
/stats [month|1-12|year|all|hours|days] — forwarding statistics
/reset — reset today's counter
/ban <hours> [reason] — reply to a message to ban its sender
/unban — reply to a message to lift its sender's ban

Limits: %d forwards per day, reset at %02d:00 (%s), %s between posts.`,
		b.cfg.DailyLimit, b.cfg.ResetHour, b.cfg.Timezone,
		formatDuration(time.Duration(b.cfg.CooldownMinutes)*time.Minute))
	b.reply(msg, help)
}

func (b *Bot) handleTea(msg *tgbotapi.Message) {
	name := senderName(msg.From)
	text := caption.Compose(name, argumentsOf(msg))
	b.gateAndPublish(msg, text)
}

func (b *Bot) handleQuote(msg *tgbotapi.Message) {
	name := senderName(msg.From)
	text := caption.ComposeQuote(name, caption.RandomQuote(b.quotes))
	b.gateAndPublish(msg, text)
}

// gateAndPublish runs the policy gates and, on ALLOW, performs the channel
// post. The publish event is recorded only after the external send succeeded;
// a failed send must not consume quota.
func (b *Bot) gateAndPublish(msg *tgbotapi.Message, captionText string) {
	decision, err := b.engine.Check(msg.From.ID)
	if err != nil {
		slog.Error("publish check failed", "err", err)
		b.reply(msg, "Something went wrong, try again later.")
		return
	}
	if !decision.Allowed() {
		b.countDenial(decision.Denial)
		b.reply(msg, renderDenial(decision))
		return
	}

	kind := kindOf(msg)
	if err := b.publish(msg, kind, captionText); err != nil {
		b.metrics.PublishFailures.Add(1)
		slog.Error("channel publish failed", "err", err, "kind", kind.String())
		b.reply(msg, "Failed to post to the channel.")
		return
	}

	name := senderName(msg.From)
	if _, err := b.engine.Record(name, kind); err != nil {
		// The post went out but the event was lost; surface it loudly.
		slog.Error("record publish failed", "err", err, "user", name)
	}
	b.metrics.Published.Add(1)

	remaining, err := b.engine.Remaining()
	if err != nil {
		b.reply(msg, "Sent!")
		return
	}
	b.reply(msg, fmt.Sprintf("Sent! %d forwards remaining today.", remaining))
}

// publish performs the actual channel send for the message's content kind.
// Video notes cannot carry captions, so the caption follows as its own
// message.
func (b *Bot) publish(msg *tgbotapi.Message, kind model.Kind, captionText string) error {
	switch kind {
	case model.KindPhoto:
		photo := msg.Photo[len(msg.Photo)-1] // largest resolution last
		out := tgbotapi.NewPhoto(b.cfg.ChannelID, tgbotapi.FileID(photo.FileID))
		out.Caption = captionText
		return b.send(out)
	case model.KindVideo:
		out := tgbotapi.NewVideo(b.cfg.ChannelID, tgbotapi.FileID(msg.Video.FileID))
		out.Caption = captionText
		return b.send(out)
	case model.KindVideoNote:
		note := tgbotapi.NewVideoNote(b.cfg.ChannelID, msg.VideoNote.Length, tgbotapi.FileID(msg.VideoNote.FileID))
		if err := b.send(note); err != nil {
			return err
		}
		return b.send(tgbotapi.NewMessage(b.cfg.ChannelID, captionText))
	default:
		return b.send(tgbotapi.NewMessage(b.cfg.ChannelID, captionText))
	}
}

func (b *Bot) countDenial(d policy.Denial) {
	switch d {
	case policy.DenialBanned:
		b.metrics.DeniedBanned.Add(1)
	case policy.DenialCooldown:
		b.metrics.DeniedCooldown.Add(1)
	case policy.DenialQuota:
		b.metrics.DeniedQuota.Add(1)
	}
}

func renderDenial(d policy.Decision) string {
	switch d.Denial {
	case policy.DenialBanned:
		text := fmt.Sprintf("You are banned for another %s", formatDuration(d.RetryIn))
		if d.Ban != nil {
			if d.Ban.Reason != "" {
				text += fmt.Sprintf(" (reason: %s)", d.Ban.Reason)
			}
			if d.Ban.IssuerName != "" {
				text += fmt.Sprintf(", issued by %s", d.Ban.IssuerName)
			}
		}
		return text + "."
	case policy.DenialCooldown:
		return fmt.Sprintf("Too soon — next post possible in %s.", formatDuration(d.RetryIn))
	case policy.DenialQuota:
		return "Daily limit reached. Next announcement tomorrow!"
	default:
		return "Not allowed."
	}
}

func (b *Bot) handleStats(msg *tgbotapi.Message) {
	arg := strings.ToLower(argumentsOf(msg))
	switch {
	case arg == "":
		b.sendSummary(msg)
	case arg == "month":
		b.sendMonthDetail(msg, int(b.reporter.CurrentMonth()))
	case arg == "year":
		b.sendYearHistogram(msg)
	case arg == "all":
		b.sendAllTime(msg)
	case arg == "hours":
		b.sendHourHistogram(msg)
	case arg == "days" || arg == "weekdays":
		b.sendWeekdayHistogram(msg)
	default:
		month, err := strconv.Atoi(arg)
		if err != nil {
			b.reply(msg, "Usage: /stats [month|1-12|year|all|hours|days]")
			return
		}
		b.sendMonthDetail(msg, month)
	}
}

func (b *Bot) sendSummary(msg *tgbotapi.Message) {
	sum, err := b.reporter.Summary()
	if err != nil {
		slog.Error("stats summary failed", "err", err)
		b.reply(msg, "Failed to gather statistics.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Forwarding statistics\n\n")
	fmt.Fprintf(&sb, "Today: %d/%d (%d remaining)\n", sum.Today, sum.Limit, sum.Remaining)
	fmt.Fprintf(&sb, "This month: %d\n", sum.ThisMonth)
	fmt.Fprintf(&sb, "This year: %d\n", sum.ThisYear)
	fmt.Fprintf(&sb, "All time: %d\n", sum.AllTime)
	if len(sum.TopMonth) > 0 {
		sb.WriteString("\nTop this month:\n")
		for i, uc := range sum.TopMonth {
			fmt.Fprintf(&sb, "%d. %s — %d\n", i+1, uc.Username, uc.Count)
		}
	}
	if len(sum.TodayUsers) > 0 {
		fmt.Fprintf(&sb, "\nPosted today: %s\n", strings.Join(sum.TodayUsers, ", "))
	}
	b.reply(msg, strings.TrimSpace(sb.String()))
}

func (b *Bot) sendMonthDetail(msg *tgbotapi.Message, month int) {
	rep, err := b.reporter.MonthDetail(month)
	switch {
	case errors.Is(err, stats.ErrBadMonth),
		errors.Is(err, stats.ErrMonthTooOld),
		errors.Is(err, stats.ErrMonthInFuture):
		b.reply(msg, "Cannot show that month: "+err.Error())
		return
	case err != nil:
		slog.Error("month detail failed", "err", err)
		b.reply(msg, "Failed to gather statistics.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d: %d forwards\n", rep.Month, rep.Year, rep.Total)
	for i, uc := range rep.TopUser {
		fmt.Fprintf(&sb, "%d. %s — %d\n", i+1, uc.Username, uc.Count)
	}
	text := strings.TrimSpace(sb.String())

	png, err := charts.DaysOfMonth(rep.Days, rep.Month.String(), rep.Year)
	b.sendReport(msg, text, png, err)
}

func (b *Bot) sendYearHistogram(msg *tgbotapi.Message) {
	buckets, err := b.reporter.MonthOfYear()
	if err != nil {
		slog.Error("year stats failed", "err", err)
		b.reply(msg, "Failed to gather statistics.")
		return
	}
	year := b.reporter.CurrentYear()
	total := 0
	for _, c := range buckets {
		total += c
	}
	text := fmt.Sprintf("Forwards in %d: %d", year, total)

	png, err := charts.MonthsOfYear(buckets, year)
	b.sendReport(msg, text, png, err)
}

func (b *Bot) sendAllTime(msg *tgbotapi.Message) {
	years, err := b.reporter.YearCounts()
	if err != nil {
		slog.Error("all-time stats failed", "err", err)
		b.reply(msg, "Failed to gather statistics.")
		return
	}
	if len(years) == 0 {
		b.reply(msg, "No forwards recorded yet.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Forwards per year:\n")
	total := 0
	for _, yc := range years {
		fmt.Fprintf(&sb, "%d — %d\n", yc.Year, yc.Count)
		total += yc.Count
	}
	fmt.Fprintf(&sb, "\nAll time: %d", total)
	b.reply(msg, sb.String())
}

func (b *Bot) sendHourHistogram(msg *tgbotapi.Message) {
	buckets, err := b.reporter.HourActivity()
	if err != nil {
		slog.Error("hour stats failed", "err", err)
		b.reply(msg, "Failed to gather statistics.")
		return
	}
	png, err := charts.HourActivity(buckets, "all time")
	b.sendReport(msg, "Activity by hour of day (all time).", png, err)
}

func (b *Bot) sendWeekdayHistogram(msg *tgbotapi.Message) {
	buckets, err := b.reporter.WeekdayActivity()
	if err != nil {
		slog.Error("weekday stats failed", "err", err)
		b.reply(msg, "Failed to gather statistics.")
		return
	}
	png, err := charts.WeekdayActivity(buckets, "all time")
	b.sendReport(msg, "Activity by weekday (all time).", png, err)
}

// sendReport delivers statistics with a chart when rendering succeeded and
// degrades to text-only when it did not. Chart failure is never surfaced to
// the user.
func (b *Bot) sendReport(msg *tgbotapi.Message, text string, png []byte, renderErr error) {
	if renderErr != nil {
		b.metrics.ChartFailures.Add(1)
		slog.Error("chart render failed", "err", renderErr)
		b.reply(msg, text)
		return
	}
	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{Name: "chart.png", Bytes: png})
	photo.Caption = text
	if err := b.send(photo); err != nil {
		slog.Error("chart send failed", "err", err)
		b.reply(msg, text)
	}
}

func (b *Bot) handleReset(msg *tgbotapi.Message) {
	deleted, err := b.engine.ResetToday()
	if err != nil {
		slog.Error("reset failed", "err", err)
		b.reply(msg, "Failed to reset today's counter.")
		return
	}
	b.metrics.Resets.Add(1)
	b.reply(msg, fmt.Sprintf("Counter reset. Records deleted: %d.", deleted))
}

func (b *Bot) handleBan(msg *tgbotapi.Message) {
	target := replyTarget(msg)
	if target == nil {
		b.reply(msg, "Reply to a message from the user you want to ban.")
		return
	}

	args := strings.Fields(argumentsOf(msg))
	if len(args) == 0 {
		b.reply(msg, "Usage: /ban <hours> [reason] (as a reply).")
		return
	}
	hours, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(msg, "Ban duration must be a whole number of hours.")
		return
	}
	reason := strings.Join(args[1:], " ")

	ban, err := b.engine.BanUser(target.ID, senderName(target), msg.From.ID, senderName(msg.From), hours, reason)
	switch {
	case errors.Is(err, policy.ErrBadDuration):
		b.reply(msg, "Ban duration must be a positive number of hours.")
		return
	case errors.Is(err, policy.ErrAdminSubject):
		b.reply(msg, "Administrators cannot be banned.")
		return
	case err != nil:
		slog.Error("ban failed", "err", err)
		b.reply(msg, "Failed to issue the ban.")
		return
	}
	b.metrics.BansCreated.Add(1)
	b.reply(msg, fmt.Sprintf("%s is banned for %dh (until %s).",
		ban.Username, hours, ban.Until.Format("2006-01-02 15:04")))
}

func (b *Bot) handleUnban(msg *tgbotapi.Message) {
	target := replyTarget(msg)
	if target == nil {
		b.reply(msg, "Reply to a message from the user you want to unban.")
		return
	}
	revoked, err := b.engine.UnbanUser(target.ID)
	if err != nil {
		slog.Error("unban failed", "err", err)
		b.reply(msg, "Failed to lift the ban.")
		return
	}
	if revoked == 0 {
		b.reply(msg, fmt.Sprintf("%s has no active ban.", senderName(target)))
		return
	}
	b.metrics.BansRevoked.Add(revoked)
	b.reply(msg, fmt.Sprintf("%s is unbanned.", senderName(target)))
}

// replyTarget returns the sender of the replied-to message, if any.
// Ban and unban both require reply targeting; there is no username lookup.
func replyTarget(msg *tgbotapi.Message) *tgbotapi.User {
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
		return nil
	}
	return msg.ReplyToMessage.From
}

// formatDuration renders a duration as "2h 05m" / "45m" / "30s".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
