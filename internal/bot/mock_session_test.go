package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type mockMessage struct {
	ChannelID string
	Content   string
}

// mockDiscordSession implements notifierSession for testing.
type mockDiscordSession struct {
	mu sync.Mutex

	SentMessages []mockMessage
	Reactions    []string
	Deleted      []string
	// ErrorToReturn allows tests to simulate errors
	ErrorToReturn error
	// Block makes every call wait for its request context.
	Block bool
}

func (m *mockDiscordSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if err := m.wait(options); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, mockMessage{ChannelID: channelID, Content: content})
	return &discordgo.Message{
		ID:        fmt.Sprintf("mock_message_%d", len(m.SentMessages)),
		ChannelID: channelID,
		Content:   content,
	}, nil
}

func (m *mockDiscordSession) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	if err := m.wait(options); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reactions = append(m.Reactions, messageID+":"+emojiID)
	return nil
}

func (m *mockDiscordSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	if err := m.wait(options); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, messageID)
	return nil
}

func (m *mockDiscordSession) wait(options []discordgo.RequestOption) error {
	if m.ErrorToReturn != nil {
		return m.ErrorToReturn
	}
	if !m.Block {
		return nil
	}
	<-requestContext(options).Done()
	return requestContext(options).Err()
}

// requestContext applies the options to a throwaway request to recover the
// context passed with discordgo.WithContext.
func requestContext(options []discordgo.RequestOption) context.Context {
	req, _ := http.NewRequest(http.MethodGet, "http://discord.invalid", nil)
	cfg := &discordgo.RequestConfig{Request: req}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg.Request.Context()
}
