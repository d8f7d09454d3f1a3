package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"sentinel-warden/internal/analytics"
	"sentinel-warden/internal/commands"
	"sentinel-warden/internal/config"
	"sentinel-warden/internal/customcmd"
	"sentinel-warden/internal/moderation"
	"sentinel-warden/internal/modules/audit"
	"sentinel-warden/internal/modules/profanity"
	"sentinel-warden/internal/modules/reaction"
	"sentinel-warden/internal/pipeline"
	"sentinel-warden/internal/policy"
	"sentinel-warden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	session  *discordgo.Session
	adapter  *Adapter
	policies *policy.Store
	audit    *audit.Logger
	commands *commands.Registry
	pipeline *pipeline.Pipeline
	stop     chan struct{}
	wg       sync.WaitGroup
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, auditLogger *audit.Logger, analyticsEngine *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsMessageContent |
		discordgo.IntentsDirectMessages

	adapter := NewAdapter(session, logger.Named("adapter"))
	policies := policy.NewStore(store, cfg.PolicyCache.Size, time.Duration(cfg.PolicyCache.TTLSeconds)*time.Second)
	ledger := moderation.NewLedger(store, adapter.DisplayName)
	custom := customcmd.NewRegistry(store, nil)

	registry := commands.NewRegistry(adapter, adapter, cfg.OwnerID, logger.Named("commands"))
	if err := commands.RegisterBuiltins(registry, commands.Services{
		Policies:  policies,
		Ledger:    ledger,
		Custom:    custom,
		Analytics: analyticsEngine,
		Audit:     auditLogger,
		Colors:    cfg.Notifications.EmbedColors,
		Logger:    logger.Named("commands"),
	}); err != nil {
		return nil, err
	}
	custom.SetBuiltins(registry)
	if cfg.Notifications.LogChannelID != "" {
		auditLogger.SetNotifier(auditNotifier(adapter, cfg.Notifications, logger.Named("audit")))
	}

	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		session:  session,
		adapter:  adapter,
		policies: policies,
		audit:    auditLogger,
		commands: registry,
		stop:     make(chan struct{}),
	}
	b.pipeline = pipeline.New(pipeline.Deps{
		Policies:   policies,
		Moderation: ledger,
		Commands:   custom,
		Profanity:  profanity.NewDefault(cfg.Profanity.ExtraWords, cfg.Profanity.FalsePositives),
		Reactions:  reaction.New(cfg.TriggerWords, cfg.BotNicknames),
		Adapter:    adapter,
		Dispatcher: registry,
		Audit:      auditLogger,
		Logger:     logger.Named("pipeline"),
	}, pipeline.Options{
		OwnerID:           cfg.OwnerID,
		PrivateMode:       cfg.PrivateMode,
		ExclusiveUsers:    cfg.ExclusiveUsers,
		DMAllowedCommands: cfg.DMAllowedCommands,
		OwnerCommands:     registry.Names(),
	})
	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)

	if err := b.session.Open(); err != nil {
		return err
	}

	b.startRetention()
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	close(b.stop)
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("retention worker did not stop in time")
	}
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	ctx := context.Background()
	b.pipeline.Handle(ctx, toMessage(session.State, b.cfg.Prefixes, msg.Message))
}

func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.ID == "" {
		return
	}
	if err := b.policies.Ensure(context.Background(), event.ID); err != nil {
		b.logger.Warn("guild policy init failed", zap.String("guild_id", event.ID), zap.Error(err))
	}
}

func (b *Bot) onGuildDelete(session *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Guild == nil || event.ID == "" || event.Unavailable {
		return
	}
	if err := b.policies.Delete(context.Background(), event.ID); err != nil {
		b.logger.Warn("guild cleanup failed", zap.String("guild_id", event.ID), zap.Error(err))
		return
	}
	b.logger.Info("guild removed", zap.String("guild_id", event.ID))
}

func (b *Bot) startRetention() {
	if b.cfg.RetentionDays <= 0 {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		b.audit.Cleanup(context.Background(), b.cfg.RetentionDays)
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				b.audit.Cleanup(context.Background(), b.cfg.RetentionDays)
			}
		}
	}()
}

// toMessage converts a gateway message into the pipeline's view of it.
func toMessage(state *discordgo.State, prefixes []string, m *discordgo.Message) pipeline.Message {
	msg := pipeline.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Prefix:    detectPrefix(m.Content, prefixes),
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
		msg.AuthorIsBot = m.Author.Bot
	}
	if m.Member != nil && m.Member.Nick != "" {
		msg.AuthorName = m.Member.Nick
	}

	if state != nil {
		if state.User != nil {
			for _, user := range m.Mentions {
				if user != nil && user.ID == state.User.ID {
					msg.MentionsBot = true
					break
				}
			}
		}
		if m.GuildID != "" && msg.AuthorID != "" {
			if presence, err := state.Presence(m.GuildID, msg.AuthorID); err == nil && presence != nil {
				msg.Presence = string(presence.Status)
			}
		}
	}
	return msg
}

// detectPrefix returns the first prefix content starts with. prefixes are
// expected longest first so "!!" wins over "!".
func detectPrefix(content string, prefixes []string) string {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(content, prefix) {
			return prefix
		}
	}
	return ""
}
