package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

const callTimeout = 12 * time.Second

// Minimal session interface for the calls the coordinator makes.
type notifierSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// discordNotifier implements coordinator.Notifier. Calls are throttled and
// bounded by callTimeout; failures are returned as is, never retried.
type discordNotifier struct {
	session notifierSession
	limiter *rate.Limiter
	timeout time.Duration
}

func newDiscordNotifier(session notifierSession, perSecond float64) *discordNotifier {
	burst := int(math.Ceil(perSecond))
	if burst < 1 {
		burst = 1
	}
	return &discordNotifier{
		session: session,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		timeout: callTimeout,
	}
}

func (n *discordNotifier) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	var messageID string
	err := n.call(ctx, func(opt discordgo.RequestOption) error {
		msg, err := n.session.ChannelMessageSend(channelID, content, opt)
		if err != nil {
			return err
		}
		messageID = msg.ID
		return nil
	})
	return messageID, err
}

func (n *discordNotifier) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return n.call(ctx, func(opt discordgo.RequestOption) error {
		return n.session.MessageReactionAdd(channelID, messageID, emoji, opt)
	})
}

func (n *discordNotifier) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return n.call(ctx, func(opt discordgo.RequestOption) error {
		return n.session.ChannelMessageDelete(channelID, messageID, opt)
	})
}

func (n *discordNotifier) call(ctx context.Context, fn func(opt discordgo.RequestOption) error) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttled: %w", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	err := fn(discordgo.WithContext(callCtx))
	if isTimeout(err) {
		return fmt.Errorf("discord call timed out after %s: %w", n.timeout, err)
	}
	return err
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
