package notify

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/brequin/catalog/config"
)

const (
	colorOK     = 0x2ecc71
	colorFailed = 0xe74c3c
)

type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error)
}

// Report summarizes one command run.
type Report struct {
	RunID    string
	Command  string
	Term     string
	Scraped  int
	Updated  int
	Deleted  int
	Failures int
	Duration time.Duration
	Err      error
}

// Notifier posts run reports to a Discord webhook. A nil *Notifier is valid
// and sends nothing.
type Notifier struct {
	session   webhookExecutor
	webhookID string
	token     string
}

func New(cfg config.DiscordConfig) (*Notifier, error) {
	if cfg.WebhookID == "" || cfg.WebhookToken == "" {
		return nil, nil
	}

	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	return &Notifier{session: s, webhookID: cfg.WebhookID, token: cfg.WebhookToken}, nil
}

func (n *Notifier) Send(r Report) error {
	if n == nil {
		return nil
	}

	if _, err := n.session.WebhookExecute(n.webhookID, n.token, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed(r)},
	}); err != nil {
		return fmt.Errorf("sending run report: %w", err)
	}
	return nil
}

func embed(r Report) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s %s", r.Command, r.Term),
		Color: colorOK,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Scraped", Value: fmt.Sprint(r.Scraped), Inline: true},
			{Name: "Updated", Value: fmt.Sprint(r.Updated), Inline: true},
			{Name: "Deleted", Value: fmt.Sprint(r.Deleted), Inline: true},
			{Name: "Parse failures", Value: fmt.Sprint(r.Failures), Inline: true},
			{Name: "Duration", Value: r.Duration.Round(time.Second).String(), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: r.RunID},
	}
	if r.Err != nil {
		e.Color = colorFailed
		e.Description = r.Err.Error()
	}
	return e
}
