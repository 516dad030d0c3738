package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/chris/dayplan/internal/agent"
	"go.uber.org/zap"
)

type Bot struct {
	session *discordgo.Session
	agent   *agent.Agent
	log     *zap.SugaredLogger
}

func NewBot(token string, ag *agent.Agent, log *zap.SugaredLogger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	bot := &Bot{session: s, agent: ag, log: log}
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	log.Infow("Discord bot connected", "user", s.State.User.Username)
	return bot, nil
}

// SendDM sends content to a user's direct-message channel, split to fit
// Discord's message limit.
func (b *Bot) SendDM(userID, content string) error {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("opening DM channel for %s: %w", userID, err)
	}
	for _, chunk := range splitMessage(content, maxMessageLen) {
		if _, err := b.session.ChannelMessageSend(ch.ID, chunk); err != nil {
			return fmt.Errorf("sending DM to %s: %w", userID, err)
		}
	}
	return nil
}

func (b *Bot) Close() {
	b.session.Close()
}
