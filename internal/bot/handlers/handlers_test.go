package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/hivebot/internal/config"
	"github.com/edgard/hivebot/internal/conversation"
	"github.com/edgard/hivebot/internal/database/stubs"
	"github.com/edgard/hivebot/internal/mutex"
)

// fakeMessenger records every API call.
type fakeMessenger struct {
	mu       sync.Mutex
	sent     []*tgbot.SendMessageParams
	edited   []*tgbot.EditMessageTextParams
	deleted  []*tgbot.DeleteMessageParams
	answered []*tgbot.AnswerCallbackQueryParams
	commands []*tgbot.SetMyCommandsParams
}

func (f *fakeMessenger) SendMessage(_ context.Context, p *tgbot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeMessenger) EditMessageText(_ context.Context, p *tgbot.EditMessageTextParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, p)
	return &models.Message{ID: p.MessageID}, nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, p *tgbot.DeleteMessageParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, p)
	return true, nil
}

func (f *fakeMessenger) AnswerCallbackQuery(_ context.Context, p *tgbot.AnswerCallbackQueryParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, p)
	return true, nil
}

func (f *fakeMessenger) SetMyCommands(_ context.Context, p *tgbot.SetMyCommandsParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, p)
	return true, nil
}

func (f *fakeMessenger) sentTexts() []string {
	var out []string
	for _, p := range f.sent {
		out = append(out, p.Text)
	}
	return out
}

const (
	privateChat int64 = 500
	groupChat   int64 = -1001
)

func newTestDeps(t *testing.T) (HandlerDeps, *stubs.MemoryStore) {
	t.Helper()
	store := stubs.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	texts := conversation.DefaultTexts()
	cfg := &config.Config{Messages: config.MessagesConfig{
		NotAuthorized:  texts.NotAuthorized,
		AccessDenied:   texts.AccessDenied,
		GenericFailure: texts.GenericFailure,
		UnknownCommand: texts.UnknownCommand,
		SessionEnded:   texts.SessionEnded,
		GroupGreeting:  "Hello!",
		GroupInitError: "Init error!",
		WelcomeMember:  "Welcome %s to the group!",
	}}
	return HandlerDeps{
		Logger:  logger,
		Config:  cfg,
		Store:   store,
		Machine: conversation.NewMachine(store, store, cfg.Messages.Texts(), logger),
		Locks:   &mutex.KeyedMutex{},
	}, store
}

func textUpdate(userID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   10,
		Chat: models.Chat{ID: privateChat, Type: "private"},
		From: &models.User{ID: userID, FirstName: "Alice"},
		Text: text,
	}}
}

func callbackUpdate(userID int64, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb-1",
		From: models.User{ID: userID, FirstName: "Alice"},
		Data: data,
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{
			ID:   77,
			Chat: models.Chat{ID: privateChat, Type: "private"},
		}},
	}}
}

func TestApplyEffects(t *testing.T) {
	t.Parallel()
	m := &fakeMessenger{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	applyEffects(context.Background(), log, m, target{chatID: privateChat, promptID: 77, callbackID: "cb"}, []conversation.Effect{
		conversation.Notice{Text: "Done"},
		conversation.EditPrompt{Text: "menu", Options: [][]conversation.Option{{{Label: "Cancel", Token: "cancel"}}}},
		conversation.Reply{Text: "plain"},
		conversation.ClearPrompt{},
		conversation.PublishCommands{Admin: true},
		conversation.Notice{Text: "ignored second notice"},
	})

	require.Len(t, m.edited, 1)
	assert.Equal(t, 77, m.edited[0].MessageID)
	markup, ok := m.edited[0].ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "cancel", markup.InlineKeyboard[0][0].CallbackData)

	require.Len(t, m.sent, 1)
	assert.Equal(t, "plain", m.sent[0].Text)
	assert.Nil(t, m.sent[0].ReplyMarkup)

	require.Len(t, m.deleted, 1)
	require.Len(t, m.commands, 1)
	assert.Len(t, m.commands[0].Commands, len(conversation.Commands(true)))

	require.Len(t, m.answered, 1)
	assert.Equal(t, "Done", m.answered[0].Text)
}

func TestApplyEffectsWithoutPrompt(t *testing.T) {
	t.Parallel()
	m := &fakeMessenger{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	applyEffects(context.Background(), log, m, target{chatID: privateChat}, []conversation.Effect{
		conversation.EditPrompt{Text: "menu"},
		conversation.ClearPrompt{},
		conversation.Notice{Text: "note"},
	})

	assert.Equal(t, []string{"menu", "note"}, m.sentTexts())
	assert.Empty(t, m.deleted)
	assert.Empty(t, m.answered)
}

func TestConversationHandlerStartAndCallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	deps, store := newTestDeps(t)
	h := conversationHandler{deps}
	m := &fakeMessenger{}

	h.handle(ctx, m, textUpdate(1, "/start"))
	isAdmin, err := store.IsAdmin(ctx, "1")
	require.NoError(t, err)
	assert.True(t, isAdmin)
	require.Len(t, m.commands, 1)

	h.handle(ctx, m, callbackUpdate(1, "add_poll_message"))
	require.Len(t, m.answered, 1)
	require.Len(t, m.edited, 1)
	assert.Equal(t, 77, m.edited[0].MessageID)

	h.handle(ctx, m, textUpdate(1, "Good morning!"))
	h.handle(ctx, m, textUpdate(1, "Morning Greeting"))

	msgs, err := store.ListPolling(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Good morning!", msgs[0].Body)
	assert.Zero(t, deps.Locks.Len())
}

func TestConversationHandlerIgnoresNonText(t *testing.T) {
	t.Parallel()
	deps, _ := newTestDeps(t)
	m := &fakeMessenger{}

	conversationHandler{deps}.handle(context.Background(), m, &models.Update{Message: &models.Message{
		Chat: models.Chat{ID: privateChat},
		From: &models.User{ID: 1},
	}})
	assert.Empty(t, m.sent)
}

func TestConversationHandlerAdminLookupFailure(t *testing.T) {
	t.Parallel()
	deps, store := newTestDeps(t)
	store.FailOn("IsAdmin", errors.New("db down"))
	m := &fakeMessenger{}

	conversationHandler{deps}.handle(context.Background(), m, callbackUpdate(1, "cancel"))
	require.Len(t, m.answered, 1)
	assert.Equal(t, deps.Config.Messages.GenericFailure, m.answered[0].Text)
}

func TestAdminOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	deps, store := newTestDeps(t)
	_, err := store.GrantAdmin(ctx, "1", "alice")
	require.NoError(t, err)

	m := &fakeMessenger{}
	assert.True(t, adminOnly(ctx, deps, m, callbackUpdate(1, "cancel")))
	assert.Empty(t, m.answered)

	assert.False(t, adminOnly(ctx, deps, m, callbackUpdate(2, "cancel")))
	require.Len(t, m.answered, 1)
	assert.Equal(t, deps.Config.Messages.NotAuthorized, m.answered[0].Text)

	assert.False(t, adminOnly(ctx, deps, m, textUpdate(2, "/group")))
	assert.Equal(t, []string{deps.Config.Messages.NotAuthorized}, m.sentTexts())
}

func botMembership(status string) *models.Update {
	return &models.Update{MyChatMember: &models.ChatMemberUpdated{
		Chat:          models.Chat{ID: groupChat, Type: "supergroup", Title: "Team A"},
		From:          models.User{ID: 1},
		NewChatMember: models.ChatMember{Type: models.ChatMemberType(status)},
	}}
}

func newMembers(users ...models.User) *models.Update {
	return &models.Update{Message: &models.Message{
		Chat:           models.Chat{ID: groupChat, Type: "supergroup", Title: "Team A"},
		From:           &models.User{ID: 1},
		NewChatMembers: users,
	}}
}

func TestMembershipJoinAndLeave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	deps, store := newTestDeps(t)
	h := membershipHandler{deps}
	m := &fakeMessenger{}

	h.handle(ctx, m, botMembership("member"))
	group, err := store.GroupByExternalID(ctx, "-1001")
	require.NoError(t, err)
	assert.Equal(t, "Team A", group.Name)
	assert.Equal(t, []string{"Hello!"}, m.sentTexts())

	h.handle(ctx, m, botMembership("kicked"))
	groups, err := store.ListGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestMembershipJoinFailure(t *testing.T) {
	t.Parallel()
	deps, store := newTestDeps(t)
	store.FailOn("RecordJoin", errors.New("db down"))
	m := &fakeMessenger{}

	membershipHandler{deps}.handle(context.Background(), m, botMembership("administrator"))
	assert.Equal(t, []string{"Init error!"}, m.sentTexts())
}

func TestWelcomeNewMembers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	deps, store := newTestDeps(t)
	h := membershipHandler{deps}
	require.NoError(t, store.UpsertWelcome(ctx, "Read the rules."))

	m := &fakeMessenger{}
	h.handle(ctx, m, newMembers(models.User{ID: 5, FirstName: "Dana"}, models.User{ID: 6, IsBot: true, FirstName: "Spam"}))
	assert.Equal(t, []string{"Welcome Dana to the group!\n\nRead the rules."}, m.sentTexts())

	group, err := store.GroupByExternalID(ctx, "-1001")
	require.NoError(t, err, "unknown group is registered on first welcome")
	_, err = store.SetMuteWelcome(ctx, group.ID, true)
	require.NoError(t, err)

	m = &fakeMessenger{}
	h.handle(ctx, m, newMembers(models.User{ID: 7, FirstName: "Eve"}))
	assert.Empty(t, m.sent)
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()
	deps, _ := newTestDeps(t)

	handlers := RegisterAllCommands(deps)
	for _, c := range conversation.Commands(true) {
		h, ok := handlers["/"+c.Name]
		require.True(t, ok, c.Name)
		assert.Equal(t, c.AdminOnly, len(h.Middleware) > 0, c.Name)
	}
	assert.NotNil(t, handlers["my_chat_member"].Match)
	assert.NotNil(t, handlers["new_chat_members"].Match)
	assert.Equal(t, tgbot.HandlerTypeCallbackQueryData, handlers["callback"].HandlerType)
}

func TestWelcomeParseModeEscapesName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name string
		mode string
		want string
	}{
		{name: "plain", mode: "", want: "Welcome <Dana_1> to the group!"},
		{name: "html", mode: "HTML", want: "Welcome &lt;Dana_1&gt; to the group!"},
		{name: "markdown v2", mode: "MarkdownV2", want: `Welcome <Dana\_1\> to the group!`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			deps, store := newTestDeps(t)
			deps.Config.Messages.WelcomeParseMode = tt.mode
			require.NoError(t, store.UpsertWelcome(ctx, "Rules"))

			m := &fakeMessenger{}
			membershipHandler{deps}.handle(ctx, m, newMembers(models.User{ID: 5, FirstName: "<Dana_1>"}))
			require.Len(t, m.sent, 1)
			assert.Equal(t, tt.want+"\n\nRules", m.sent[0].Text)
			assert.Equal(t, models.ParseMode(tt.mode), m.sent[0].ParseMode)
		})
	}
}
