// Package discord connects the command dispatcher and the event waiter to a
// Discord gateway session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/config"
	"github.com/keshon/botcore/internal/events"
	"github.com/keshon/botcore/internal/waiter"
	"github.com/keshon/botcore/internal/welcome"
	"github.com/keshon/botcore/pkg/retrylimit"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsMessageContent

// Bot is a Discord bot
type Bot struct {
	session    *discordgo.Session
	cfg        *config.Config
	dispatcher *command.Dispatcher
	waiter     *waiter.Waiter
	welcomer   *welcome.Welcomer
	limiter    *retrylimit.Limiter
	policy     retrylimit.Policy
	calls      *callCache
	logger     *zap.Logger

	ctx context.Context
}

// Options wires a Bot. Welcome is optional.
type Options struct {
	Config     *config.Config
	Dispatcher *command.Dispatcher
	Waiter     *waiter.Waiter
	Welcome    func(send welcome.SendFunc) *welcome.Welcomer
	Logger     *zap.Logger
}

// New creates the session. Nothing connects until Run.
func New(opts Options) (*Bot, error) {
	if err := opts.Config.RequireToken(); err != nil {
		return nil, err
	}
	dg, err := discordgo.New("Bot " + opts.Config.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = intents

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("discord")

	b := &Bot{
		session:    dg,
		cfg:        opts.Config,
		dispatcher: opts.Dispatcher,
		waiter:     opts.Waiter,
		limiter:    retrylimit.NewLimiter(rate.Limit(opts.Config.ReplyRate), 1, rate.Limit(opts.Config.ReplyRate*4)),
		calls:      newCallCache(),
		logger:     logger,
		ctx:        context.Background(),
	}
	b.policy = retrylimit.DefaultPolicy()
	b.policy.Logger = logger
	if opts.Welcome != nil {
		b.welcomer = opts.Welcome(func(ctx context.Context, channelID, text string) error {
			_, err := b.sendMessage(ctx, channelID, text)
			return err
		})
	}
	return b, nil
}

// Run connects and serves until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onReactionAdd)
	b.session.AddHandler(b.onReactionRemove)
	b.session.AddHandler(b.onMemberAdd)
	b.session.AddHandler(b.onMemberRemove)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.logger.Info("Shutdown signal received, closing session")
	b.feed(events.Shutdown{})
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// Latency is the gateway heartbeat round trip.
func (b *Bot) Latency() time.Duration {
	return b.session.HeartbeatLatency()
}

func (b *Bot) selfID() string {
	if u := b.session.State.User; u != nil {
		return u.ID
	}
	return ""
}

// feed hands an event to the waiter.
func (b *Bot) feed(ev waiter.Event) {
	if b.waiter == nil {
		return
	}
	if err := b.waiter.Dispatch(b.ctx, ev); err != nil && !errors.Is(err, waiter.ErrClosed) {
		b.logger.Warn("Failed to dispatch event", zap.Error(err))
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		b.leaveIfBlacklisted(s, g.ID)
	}
	b.logger.Info("Discord bot is running",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)
	b.feed(events.Ready{SelfID: r.User.ID})
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.logger.Info("Guild available", zap.String("guild", g.ID), zap.String("name", g.Name))
	b.leaveIfBlacklisted(s, g.ID)
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID string) {
	if !b.cfg.IsBlacklisted(guildID) {
		return
	}
	b.logger.Info("Leaving blacklisted guild", zap.String("guild", guildID))
	if err := s.GuildLeave(guildID); err != nil {
		b.logger.Error("Failed to leave guild", zap.String("guild", guildID), zap.Error(err))
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	b.feed(events.Message{
		ID:        m.ID,
		AuthorID:  m.Author.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
		Bot:       m.Author.Bot,
		Time:      m.Timestamp,
	})

	if m.Author.Bot {
		return
	}
	text, ok := StripPrefix(m.Content, b.dispatcher.Prefix(), b.selfID())
	if !ok {
		return
	}

	b.dispatcher.Dispatch(b.ctx, command.Request{
		Text:  text,
		Actor: b.actor(s, m),
		Location: command.Location{
			ChannelID:      m.ChannelID,
			GuildID:        m.GuildID,
			VoiceChannelID: voiceChannel(s.State, m.GuildID, m.Author.ID),
		},
		Capabilities: capabilities{state: s.State, selfID: b.selfID()},
		Sink:         replySink{bot: b, channelID: m.ChannelID, triggerID: m.ID},
	})
}

func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	b.feed(events.MessageDelete{ID: m.ID, ChannelID: m.ChannelID, GuildID: m.GuildID})

	replies := b.calls.take(m.ID)
	switch {
	case len(replies) == 0:
	case len(replies) > 1 && m.GuildID != "" && (capabilities{state: s.State, selfID: b.selfID()}).BotHas(command.Capability{Name: "Manage Messages"}, m.ChannelID):
		if err := s.ChannelMessagesBulkDelete(m.ChannelID, replies); err != nil {
			b.logger.Debug("Failed to delete replies", zap.String("message", m.ID), zap.Error(err))
		}
	case len(replies) < 3:
		for _, id := range replies {
			if err := s.ChannelMessageDelete(m.ChannelID, id); err != nil {
				b.logger.Debug("Failed to delete reply", zap.String("message", id), zap.Error(err))
			}
		}
	}
}

func (b *Bot) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	b.feed(events.ReactionAdd{
		UserID:    r.UserID,
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
		Emoji:     r.Emoji.Name,
	})
}

func (b *Bot) onReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	b.feed(events.ReactionRemove{
		UserID:    r.UserID,
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
		Emoji:     r.Emoji.Name,
	})
}

func (b *Bot) onMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil {
		return
	}
	ev := events.MemberJoin{UserID: m.User.ID, GuildID: m.GuildID}
	b.feed(ev)
	if b.welcomer != nil && !m.User.Bot {
		b.welcomer.Greet(b.ctx, ev)
	}
}

func (b *Bot) onMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.User == nil {
		return
	}
	b.feed(events.MemberLeave{UserID: m.User.ID, GuildID: m.GuildID})
}

// StripPrefix removes the command prefix, or a mention of the bot, from the
// start of content. It reports false when content is not addressed to the
// bot or nothing follows the prefix.
func StripPrefix(content, prefix, selfID string) (string, bool) {
	candidates := []string{prefix}
	if selfID != "" {
		candidates = append(candidates, "<@"+selfID+">", "<@!"+selfID+">")
	}
	for _, p := range candidates {
		if p == "" || !strings.HasPrefix(content, p) {
			continue
		}
		rest := strings.TrimSpace(content[len(p):])
		return rest, rest != ""
	}
	return "", false
}
