package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sentinel-warden/internal/customcmd"
	"sentinel-warden/internal/moderation"
	"sentinel-warden/internal/modules/profanity"
	"sentinel-warden/internal/modules/reaction"
	"sentinel-warden/internal/policy"
	"sentinel-warden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/hashicorp/golang-lru/v2/expirable.NewLRU[...].func1"))
}

type sent struct {
	channelID string
	content   string
	quiet     bool
}

type fakeAdapter struct {
	mu        sync.Mutex
	messages  []sent
	dms       []sent
	deleted   []string
	deleteErr error
	dmErr     error
}

func (a *fakeAdapter) SendMessage(_ context.Context, channelID, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, sent{channelID: channelID, content: content})
	return nil
}

func (a *fakeAdapter) SendWithoutMentions(_ context.Context, channelID, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, sent{channelID: channelID, content: content, quiet: true})
	return nil
}

func (a *fakeAdapter) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	return a.SendMessage(context.Background(), channelID, embed.Description)
}

func (a *fakeAdapter) DeleteMessage(_ context.Context, _, messageID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.deleteErr != nil {
		return a.deleteErr
	}
	a.deleted = append(a.deleted, messageID)
	return nil
}

func (a *fakeAdapter) SendDirectMessage(_ context.Context, userID, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dmErr != nil {
		return a.dmErr
	}
	a.dms = append(a.dms, sent{channelID: userID, content: content})
	return nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *fakeDispatcher) Dispatch(_ context.Context, _ Message, name string, _ []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, name)
	return nil
}

type failingPolicies struct{}

func (failingPolicies) Get(context.Context, string, string) (policy.Policy, error) {
	return policy.Policy{}, errors.New("database is locked")
}

type failingModeration struct{}

func (failingModeration) Get(context.Context, moderation.Kind, string, string) (moderation.Entry, bool, error) {
	return moderation.Entry{}, false, errors.New("connection refused")
}

type harness struct {
	pipeline   *Pipeline
	adapter    *fakeAdapter
	dispatcher *fakeDispatcher
	policies   *policy.Store
	ledger     *moderation.Ledger
	commands   *customcmd.Registry
	deps       Deps
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	st, err := storage.Open("sqlite://:memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Migrate())

	h := &harness{
		adapter:    &fakeAdapter{},
		dispatcher: &fakeDispatcher{},
		policies:   policy.NewStore(st, 16, time.Minute),
		ledger:     moderation.NewLedger(st, nil),
		commands:   customcmd.NewRegistry(st, nil),
	}
	h.deps = Deps{
		Policies:   h.policies,
		Moderation: h.ledger,
		Commands:   h.commands,
		Profanity:  profanity.NewDefault(nil, nil),
		Reactions:  reaction.New([]string{"stupid", "idiot"}, []string{"bot"}),
		Adapter:    h.adapter,
		Dispatcher: h.dispatcher,
		Logger:     zap.NewNop(),
	}
	h.pipeline = New(h.deps, opts)
	require.NoError(t, h.policies.Ensure(context.Background(), "g1"))
	return h
}

func guildMessage(content string) Message {
	msg := Message{
		ID:         "m1",
		AuthorID:   "u1",
		AuthorName: "alice",
		GuildID:    "g1",
		ChannelID:  "c1",
		Content:    content,
		Presence:   "online",
	}
	if len(content) > 0 && content[0] == '!' {
		msg.Prefix = "!"
	}
	return msg
}

func TestInvisibleAuthorIsBlocked(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	require.NoError(t, h.policies.SetBlockInvisible(ctx, "g1", true))

	msg := guildMessage("!roll")
	msg.Presence = "offline"
	outcome := h.pipeline.Handle(ctx, msg)

	require.Equal(t, ActionInvisibleBlock, outcome.Action)
	require.Equal(t, []string{"m1"}, h.adapter.deleted)
	require.Len(t, h.adapter.dms, 1)
	require.Empty(t, h.dispatcher.calls)
}

func TestInvisibleWithoutDeletePermissionWarns(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	require.NoError(t, h.policies.SetBlockInvisible(ctx, "g1", true))
	h.adapter.deleteErr = ErrForbidden

	msg := guildMessage("hello")
	msg.Presence = "invisible"
	outcome := h.pipeline.Handle(ctx, msg)

	require.Equal(t, ActionInvisibleBlock, outcome.Action)
	require.Empty(t, h.adapter.deleted)
	require.Len(t, h.adapter.messages, 1)
	require.Contains(t, h.adapter.messages[0].content, "<@u1>")
}

func TestMutedAuthorIsBlocked(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_, err := h.ledger.Add(ctx, moderation.Mute, "g1", "u1", "admin", "spam")
	require.NoError(t, err)

	outcome := h.pipeline.Handle(ctx, guildMessage("!ping"))

	require.Equal(t, ActionMuteBlock, outcome.Action)
	require.Equal(t, []string{"m1"}, h.adapter.deleted)
	require.Len(t, h.adapter.dms, 1)
	require.Contains(t, h.adapter.dms[0].content, "spam")
	require.Empty(t, h.adapter.messages)
	require.Empty(t, h.dispatcher.calls)
}

func TestMutedAuthorFallbacks(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_, err := h.ledger.Add(ctx, moderation.Mute, "g1", "u1", "admin", "spam")
	require.NoError(t, err)
	h.adapter.deleteErr = ErrForbidden
	h.adapter.dmErr = ErrUndeliverable

	outcome := h.pipeline.Handle(ctx, guildMessage("!ping"))

	require.Equal(t, ActionMuteBlock, outcome.Action)
	require.Len(t, h.adapter.messages, 2)
	require.Contains(t, h.adapter.messages[1].content, "spam")
	require.Empty(t, h.dispatcher.calls)
}

func TestCustomCommandWinsOverBuiltin(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_, err := h.commands.Create(ctx, "g1", "admin", "ping", "pong!")
	require.NoError(t, err)

	outcome := h.pipeline.Handle(ctx, guildMessage("!PING"))

	require.Equal(t, ActionCustomReply, outcome.Action)
	require.Equal(t, []sent{{channelID: "c1", content: "pong!", quiet: true}}, h.adapter.messages)
	require.Empty(t, h.dispatcher.calls)
}

func TestReactionTriggerPreemptsCommands(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	require.NoError(t, h.policies.SetBotWordReactions(ctx, "g1", true))

	outcome := h.pipeline.Handle(ctx, guildMessage("bot you are stupid"))
	require.Equal(t, ActionReact, outcome.Action)
	require.Len(t, h.adapter.messages, 1)
	require.Contains(t, h.adapter.messages[0].content, "not stupid")

	outcome = h.pipeline.Handle(ctx, guildMessage("!ping bot you are stupid"))
	require.Equal(t, ActionReact, outcome.Action)
	require.Empty(t, h.dispatcher.calls)
}

func TestReactionsDisabled(t *testing.T) {
	h := newHarness(t, Options{})
	outcome := h.pipeline.Handle(context.Background(), guildMessage("bot you are stupid"))
	require.Equal(t, ActionIgnore, outcome.Action)
	require.Empty(t, h.adapter.messages)
}

func TestProfanityIsCensored(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	enabled, err := h.policies.ToggleProfanityFilter(ctx, "g1", "c1", "general", "admin")
	require.NoError(t, err)
	require.True(t, enabled)

	outcome := h.pipeline.Handle(ctx, guildMessage("this is shit"))

	require.Equal(t, ActionCensor, outcome.Action)
	require.Equal(t, []string{"m1"}, h.adapter.deleted)
	require.Len(t, h.adapter.messages, 1)
	require.Contains(t, h.adapter.messages[0].content, "alice")
	require.NotContains(t, h.adapter.messages[0].content, "shit")
	require.True(t, h.adapter.messages[0].quiet)
	require.Len(t, h.adapter.dms, 1)

	// Other channels are not filtered.
	msg := guildMessage("this is shit")
	msg.ChannelID = "c2"
	require.Equal(t, ActionIgnore, h.pipeline.Handle(ctx, msg).Action)
}

func TestCensoredRepostCannotPing(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_, err := h.policies.ToggleProfanityFilter(ctx, "g1", "c1", "general", "admin")
	require.NoError(t, err)

	outcome := h.pipeline.Handle(ctx, guildMessage("@everyone this is shit"))

	require.Equal(t, ActionCensor, outcome.Action)
	require.Len(t, h.adapter.messages, 1)
	repost := h.adapter.messages[0]
	require.Contains(t, repost.content, "@everyone")
	require.True(t, repost.quiet)
}

func TestBlacklistOnlyBlocksCommands(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_, err := h.ledger.Add(ctx, moderation.Blacklist, "g1", "u1", "admin", "abuse")
	require.NoError(t, err)
	_, err = h.commands.Create(ctx, "g1", "admin", "rules", "be nice")
	require.NoError(t, err)

	outcome := h.pipeline.Handle(ctx, guildMessage("!rules"))
	require.Equal(t, ActionBlacklistBlock, outcome.Action)
	require.Len(t, h.adapter.messages, 1)
	require.Contains(t, h.adapter.messages[0].content, "abuse")
	require.Empty(t, h.dispatcher.calls)

	outcome = h.pipeline.Handle(ctx, guildMessage("just chatting"))
	require.Equal(t, ActionIgnore, outcome.Action)
	require.Len(t, h.adapter.messages, 1)
}

func TestMuteTakesPrecedenceOverBlacklist(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_, err := h.ledger.Add(ctx, moderation.Blacklist, "g1", "u1", "admin", "")
	require.NoError(t, err)
	_, err = h.ledger.Add(ctx, moderation.Mute, "g1", "u1", "admin", "")
	require.NoError(t, err)

	require.Equal(t, ActionMuteBlock, h.pipeline.Handle(ctx, guildMessage("!ping")).Action)
}

func TestPrefixNoiseIsIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	for _, content := range []string{"!!", "!", "!:)", "! ping", "!1d6"} {
		outcome := h.pipeline.Handle(context.Background(), guildMessage(content))
		require.Equal(t, ActionNoise, outcome.Action, content)
	}
	require.Empty(t, h.dispatcher.calls)
	require.Empty(t, h.adapter.messages)
}

func TestStandardDispatch(t *testing.T) {
	h := newHarness(t, Options{})
	outcome := h.pipeline.Handle(context.Background(), guildMessage("!Roll 2d6"))
	require.Equal(t, ActionDispatch, outcome.Action)
	require.Equal(t, []string{"roll"}, h.dispatcher.calls)
}

func TestExclusiveUsers(t *testing.T) {
	h := newHarness(t, Options{OwnerID: "owner", PrivateMode: true, ExclusiveUsers: []string{"u2"}})
	ctx := context.Background()

	outcome := h.pipeline.Handle(ctx, guildMessage("!ping"))
	require.Equal(t, ActionExclusiveBlock, outcome.Action)
	require.Len(t, h.adapter.dms, 1)

	msg := guildMessage("!ping")
	msg.AuthorID = "u2"
	require.Equal(t, ActionDispatch, h.pipeline.Handle(ctx, msg).Action)

	msg.AuthorID = "owner"
	require.Equal(t, ActionDispatch, h.pipeline.Handle(ctx, msg).Action)

	// Private mode without an allow-list lets everybody through.
	open := New(h.deps, Options{PrivateMode: true})
	require.Equal(t, ActionDispatch, open.Evaluate(ctx, guildMessage("!ping")).Action)
}

func TestPolicyFailureFailsOpen(t *testing.T) {
	h := newHarness(t, Options{})
	deps := h.deps
	deps.Policies = failingPolicies{}
	p := New(deps, Options{})

	msg := guildMessage("!ping")
	msg.Presence = "offline"
	require.Equal(t, ActionDispatch, p.Handle(context.Background(), msg).Action)
	require.Equal(t, []string{"ping"}, h.dispatcher.calls)
}

func TestUnconfiguredGuildFailsOpen(t *testing.T) {
	h := newHarness(t, Options{})
	msg := guildMessage("!ping")
	msg.GuildID = "unknown"
	require.Equal(t, ActionDispatch, h.pipeline.Handle(context.Background(), msg).Action)
}

func TestModerationFailureFailsOpen(t *testing.T) {
	h := newHarness(t, Options{})
	deps := h.deps
	deps.Moderation = failingModeration{}
	p := New(deps, Options{})

	require.Equal(t, ActionDispatch, p.Handle(context.Background(), guildMessage("!ping")).Action)
}

func TestBotAuthorsAreIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	msg := guildMessage("!ping")
	msg.AuthorIsBot = true
	require.Equal(t, ActionIgnore, h.pipeline.Handle(context.Background(), msg).Action)
	require.Empty(t, h.dispatcher.calls)
}

func TestExactlyOneOutcomePerMessage(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	require.NoError(t, h.policies.SetBlockInvisible(ctx, "g1", true))
	require.NoError(t, h.policies.SetBotWordReactions(ctx, "g1", true))
	_, err := h.ledger.Add(ctx, moderation.Mute, "g1", "u1", "admin", "")
	require.NoError(t, err)

	msg := guildMessage("!ping bot you are stupid")
	msg.Presence = "offline"
	outcome := h.pipeline.Handle(ctx, msg)

	require.Equal(t, ActionInvisibleBlock, outcome.Action)
	require.Len(t, h.adapter.deleted, 1)
	require.Len(t, h.adapter.dms, 1)
	require.Empty(t, h.adapter.messages)
	require.Empty(t, h.dispatcher.calls)
}

func privateMessage(content string) Message {
	msg := guildMessage(content)
	msg.GuildID = ""
	msg.ChannelID = "dm1"
	return msg
}

func TestPrivateMessagePath(t *testing.T) {
	h := newHarness(t, Options{
		OwnerID:           "owner",
		DMAllowedCommands: []string{"help", "ping"},
		OwnerCommands:     []string{"help", "ping"},
	})
	ctx := context.Background()

	require.Equal(t, ActionDMRefused, h.pipeline.Handle(ctx, privateMessage("hello")).Action)
	require.Equal(t, ActionReact, h.pipeline.Handle(ctx, privateMessage("you idiot bot")).Action)
	outcome := h.pipeline.Handle(ctx, privateMessage("you are stupid"))
	require.Equal(t, ActionReact, outcome.Action)
	require.Contains(t, outcome.UserMessage, "not stupid")

	owner := privateMessage("hello")
	owner.AuthorID = "owner"
	outcome = h.pipeline.Handle(ctx, owner)
	require.Equal(t, ActionOwnerGreeting, outcome.Action)
	require.Contains(t, outcome.UserMessage, "help, ping")

	outcome = h.pipeline.Handle(ctx, privateMessage("!roll"))
	require.Equal(t, ActionDMNotAllowed, outcome.Action)
	require.Contains(t, outcome.UserMessage, "help, ping")

	require.Equal(t, ActionDispatch, h.pipeline.Handle(ctx, privateMessage("!PING")).Action)
	require.Equal(t, []string{"ping"}, h.dispatcher.calls)

	for _, m := range h.adapter.messages {
		require.Equal(t, "dm1", m.channelID)
	}
}

func TestPrivateMessageExclusive(t *testing.T) {
	h := newHarness(t, Options{PrivateMode: true, ExclusiveUsers: []string{"u2"}, DMAllowedCommands: []string{"ping"}})
	outcome := h.pipeline.Handle(context.Background(), privateMessage("!ping"))
	require.Equal(t, ActionExclusiveBlock, outcome.Action)
	require.Empty(t, h.adapter.dms)
	require.Len(t, h.adapter.messages, 1)
	require.Empty(t, h.dispatcher.calls)
}

func TestConcurrentMessages(t *testing.T) {
	h := newHarness(t, Options{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.pipeline.Handle(context.Background(), guildMessage("!ping"))
		}()
	}
	wg.Wait()
	require.Len(t, h.dispatcher.calls, 8)
}
