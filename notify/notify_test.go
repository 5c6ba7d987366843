package notify

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brequin/catalog/config"
)

type recordingWebhook struct {
	params []*discordgo.WebhookParams
	err    error
}

func (w *recordingWebhook) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error) {
	w.params = append(w.params, data)
	return nil, w.err
}

func TestNewWithoutWebhook(t *testing.T) {
	n, err := New(config.DiscordConfig{})
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.NoError(t, n.Send(Report{}))
}

func TestSendReport(t *testing.T) {
	hook := &recordingWebhook{}
	n := &Notifier{session: hook, webhookID: "id", token: "token"}

	err := n.Send(Report{RunID: "run", Command: "courses", Term: "202510", Scraped: 12, Err: errors.New("too many deletions")})
	require.NoError(t, err)

	require.Len(t, hook.params, 1)
	e := hook.params[0].Embeds[0]
	assert.Equal(t, "courses 202510", e.Title)
	assert.Equal(t, colorFailed, e.Color)
	assert.Equal(t, "too many deletions", e.Description)
	assert.Equal(t, "12", e.Fields[0].Value)
}

func TestSendFailure(t *testing.T) {
	hook := &recordingWebhook{err: errors.New("unavailable")}
	n := &Notifier{session: hook, webhookID: "id", token: "token"}

	assert.Error(t, n.Send(Report{}))
}
