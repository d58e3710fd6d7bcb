package bot

import (
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chaynik/teabot/pkg/model"
	"github.com/chaynik/teabot/pkg/policy"
)

func TestCommandOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  tgbotapi.Message
		want string
	}{
		{"plain command", tgbotapi.Message{Text: "/tea"}, "tea"},
		{"command with args", tgbotapi.Message{Text: "/ban 24 spam"}, "ban"},
		{"command with bot suffix", tgbotapi.Message{Text: "/tea@TeaBot"}, "tea"},
		{"bot suffix case insensitive", tgbotapi.Message{Text: "/tea@teabot"}, "tea"},
		{"other bot's command", tgbotapi.Message{Text: "/tea@OtherBot"}, ""},
		{"uppercase normalized", tgbotapi.Message{Text: "/TEA"}, "tea"},
		{"caption command", tgbotapi.Message{Caption: "/tea great leaves"}, "tea"},
		{"not a command", tgbotapi.Message{Text: "just chatting"}, ""},
		{"empty", tgbotapi.Message{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commandOf(&tt.msg, "TeaBot"); got != tt.want {
				t.Errorf("commandOf(%q/%q) = %q, want %q", tt.msg.Text, tt.msg.Caption, got, tt.want)
			}
		})
	}
}

func TestArgumentsOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  tgbotapi.Message
		want string
	}{
		{"no args", tgbotapi.Message{Text: "/tea"}, ""},
		{"text args", tgbotapi.Message{Text: "/tea first brew"}, "first brew"},
		{"caption args", tgbotapi.Message{Caption: "/tea from the garden"}, "from the garden"},
		{"trailing space", tgbotapi.Message{Text: "/ban 24  "}, "24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argumentsOf(&tt.msg); got != tt.want {
				t.Errorf("argumentsOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  tgbotapi.Message
		want model.Kind
	}{
		{"text", tgbotapi.Message{Text: "/tea"}, model.KindText},
		{"photo", tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "p"}}}, model.KindPhoto},
		{"video", tgbotapi.Message{Video: &tgbotapi.Video{FileID: "v"}}, model.KindVideo},
		{"video note", tgbotapi.Message{VideoNote: &tgbotapi.VideoNote{FileID: "n"}}, model.KindVideoNote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kindOf(&tt.msg); got != tt.want {
				t.Errorf("kindOf = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderDenial(t *testing.T) {
	t.Parallel()

	banned := policy.Decision{
		Denial:  policy.DenialBanned,
		RetryIn: 3 * time.Hour,
		Ban:     &model.Ban{Reason: "spam", IssuerName: "@admin"},
	}
	text := renderDenial(banned)
	for _, want := range []string{"banned", "3h", "spam", "@admin"} {
		if !strings.Contains(text, want) {
			t.Errorf("banned denial %q missing %q", text, want)
		}
	}

	cooldown := policy.Decision{Denial: policy.DenialCooldown, RetryIn: 10 * time.Minute}
	if text := renderDenial(cooldown); !strings.Contains(text, "10m") {
		t.Errorf("cooldown denial %q missing remaining time", text)
	}

	quota := policy.Decision{Denial: policy.DenialQuota}
	if text := renderDenial(quota); !strings.Contains(text, "tomorrow") {
		t.Errorf("quota denial %q missing retry hint", text)
	}
}

func TestReplyTarget(t *testing.T) {
	t.Parallel()

	if got := replyTarget(&tgbotapi.Message{}); got != nil {
		t.Errorf("replyTarget without reply = %+v, want nil", got)
	}

	target := &tgbotapi.User{ID: 42, UserName: "mallory"}
	msg := tgbotapi.Message{ReplyToMessage: &tgbotapi.Message{From: target}}
	if got := replyTarget(&msg); got != target {
		t.Errorf("replyTarget = %+v, want %+v", got, target)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{45 * time.Minute, "45m"},
		{time.Hour, "1h 00m"},
		{2*time.Hour + 5*time.Minute, "2h 05m"},
		{25*time.Hour + 30*time.Minute, "25h 30m"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
