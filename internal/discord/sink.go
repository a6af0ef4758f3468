package discord

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/botcore/pkg/retrylimit"
)

// restError exposes the HTTP status of a discordgo REST failure to the
// retry classifier.
type restError struct {
	*discordgo.RESTError
}

func (e restError) StatusCode() int { return e.Response.StatusCode }
func (e restError) Unwrap() error   { return e.RESTError }

func wrapREST(err error) error {
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		return restError{re}
	}
	return err
}

// sendMessage posts text to a channel through the adaptive limiter.
func (b *Bot) sendMessage(ctx context.Context, channelID, text string) (*discordgo.Message, error) {
	var msg *discordgo.Message
	err := retrylimit.Do(ctx, b.limiter, b.policy, func(ctx context.Context) error {
		m, err := b.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
		if err != nil {
			return wrapREST(err)
		}
		msg = m
		return nil
	})
	return msg, err
}

// replySink answers in the channel a command was used in and remembers the
// replies so they can be removed if the invoking message is deleted.
type replySink struct {
	bot       *Bot
	channelID string
	triggerID string
}

func (r replySink) SendVisible(ctx context.Context, text string) error {
	msg, err := r.bot.sendMessage(ctx, r.channelID, text)
	if err != nil {
		return err
	}
	r.bot.calls.link(r.triggerID, msg.ID)
	return nil
}

const callCacheSize = 500

// callCache maps invoking message IDs to the IDs of the bot's replies. Only
// the most recent calls are kept.
type callCache struct {
	mu      sync.Mutex
	replies map[string][]string
	order   []string
}

func newCallCache() *callCache {
	return &callCache{replies: make(map[string][]string)}
}

func (c *callCache) link(triggerID, replyID string) {
	if triggerID == "" || replyID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.replies[triggerID]; !ok {
		c.order = append(c.order, triggerID)
		if len(c.order) > callCacheSize {
			delete(c.replies, c.order[0])
			c.order = c.order[1:]
		}
	}
	c.replies[triggerID] = append(c.replies[triggerID], replyID)
}

// take removes and returns the replies linked to triggerID.
func (c *callCache) take(triggerID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, ok := c.replies[triggerID]
	if !ok {
		return nil
	}
	delete(c.replies, triggerID)
	for i, id := range c.order {
		if id == triggerID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return ids
}
