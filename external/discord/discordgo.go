package discord

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/livescribe/internal/discord"
	"github.com/foxseedlab/livescribe/internal/repository"
)

// Discord rejects message content longer than this.
const maxMessageRunes = 2000

type Client struct {
	session *discordgo.Session
}

func NewClient(token string) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &Client{session: s}, nil
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, truncateMessage(content))
	return err
}

func (c *Client) SendChannelMessageWithFile(msg discordpkg.FileMessage) error {
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: truncateMessage(msg.Content),
		Files: []*discordgo.File{
			{Name: msg.Filename, ContentType: "application/json", Reader: bytes.NewReader(msg.FileBody)},
		},
	})
	return err
}

func truncateMessage(content string) string {
	r := []rune(content)
	if len(r) <= maxMessageRunes {
		return content
	}
	return string(r[:maxMessageRunes-1]) + "…"
}

type CaptionRelay struct {
	client    discordpkg.Client
	channelID string
}

func NewCaptionRelay(client discordpkg.Client, channelID string) *CaptionRelay {
	return &CaptionRelay{client: client, channelID: channelID}
}

func (r *CaptionRelay) Bind(sessionID string) repository.Recorder {
	return &captionRecorder{relay: r, sessionID: sessionID}
}

type captionRecorder struct {
	relay     *CaptionRelay
	sessionID string
}

func (c *captionRecorder) AppendUtterance(ctx context.Context, u repository.Utterance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.relay.client.SendChannelMessage(c.relay.channelID, repository.UtteranceLine(u))
}

func (c *captionRecorder) AppendSentiment(ctx context.Context, s repository.SentimentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.relay.client.SendChannelMessage(c.relay.channelID, "```\n"+strings.Join(repository.SentimentLines(s), "\n")+"\n```")
}

func (c *captionRecorder) WriteFinalTranscript(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.relay.client.SendChannelMessageWithFile(discordpkg.FileMessage{
		ChannelID: c.relay.channelID,
		Content:   fmt.Sprintf("Final transcript for session %s", c.sessionID),
		Filename:  fmt.Sprintf("transcript_%s_final.json", c.sessionID),
		FileBody:  doc,
	})
}
