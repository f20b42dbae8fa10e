package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/hivebot/internal/database/stubs"
)

const testKey = "-100:1"

var (
	admin    = Actor{UserID: 1, Name: "alice", IsAdmin: true}
	stranger = Actor{UserID: 2, Name: "bob"}
	errStore = errors.New("store unavailable")
)

func newTestMachine(t *testing.T) (*Machine, *stubs.MemoryStore) {
	t.Helper()
	store := stubs.NewMemoryStore()
	return NewMachine(store, store, DefaultTexts(), nil), store
}

func setState(t *testing.T, store *stubs.MemoryStore, s State) {
	t.Helper()
	data, err := EncodeState(s)
	require.NoError(t, err)
	require.NoError(t, store.SaveState(context.Background(), testKey, data))
}

func currentState(t *testing.T, store *stubs.MemoryStore) State {
	t.Helper()
	data, ok, err := store.LoadState(context.Background(), testKey)
	require.NoError(t, err)
	if !ok {
		return Menu{}
	}
	s, err := DecodeState(data)
	require.NoError(t, err)
	return s
}

// texts flattens the visible text of every effect.
func texts(effects []Effect) []string {
	var out []string
	for _, e := range effects {
		switch v := e.(type) {
		case Reply:
			out = append(out, v.Text)
		case EditPrompt:
			out = append(out, v.Text)
		case Notice:
			out = append(out, v.Text)
		}
	}
	return out
}

func TestStartBootstrapsFirstAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	first := Actor{UserID: 1, Name: "alice"}
	out := m.HandleEvent(ctx, testKey, first, Command{Name: "start"})
	assert.Equal(t, Menu{}, out.State)
	assert.Contains(t, texts(out.Effects), textCongratulations)
	assert.Contains(t, out.Effects, PublishCommands{Admin: true})

	isAdmin, err := store.IsAdmin(ctx, "1")
	require.NoError(t, err)
	assert.True(t, isAdmin)

	out = m.HandleEvent(ctx, "-100:2", stranger, Command{Name: "start"})
	assert.Equal(t, []string{DefaultTexts().AccessDenied}, texts(out.Effects))
	assert.False(t, out.Saved)

	isAdmin, err = store.IsAdmin(ctx, "2")
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestStartForAdminShowsMenu(t *testing.T) {
	t.Parallel()
	m, _ := newTestMachine(t)

	out := m.HandleEvent(context.Background(), testKey, admin, Command{Name: "start"})
	require.NotEmpty(t, out.Effects)
	reply, ok := out.Effects[0].(Reply)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf(textWelcomeBack, "alice"), reply.Text)
	assert.NotEmpty(t, reply.Options)
}

func TestAdminCommandsRequireAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	for _, name := range []string{"addadmin", "deladmin", "admins", "himsg", "pollmsg", "msg", "group"} {
		out := m.HandleEvent(ctx, testKey, stranger, Command{Name: name})
		assert.Equal(t, []string{DefaultTexts().NotAuthorized}, texts(out.Effects), name)
		assert.False(t, out.Saved, name)
	}

	admins, err := store.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Empty(t, admins)
}

func TestUnknownCommandAndIgnoredText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestMachine(t)

	out := m.HandleEvent(ctx, testKey, admin, Command{Name: "frobnicate"})
	assert.Equal(t, []string{DefaultTexts().UnknownCommand}, texts(out.Effects))

	out = m.HandleEvent(ctx, testKey, admin, Text{Text: "just chatting"})
	assert.Empty(t, out.Effects)
	assert.False(t, out.Saved)
	assert.Equal(t, Menu{}, out.State)
}

func TestAddAdminInputTokenCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		granted bool
	}{
		{name: "empty", input: "   "},
		{name: "one token", input: "42"},
		{name: "two tokens", input: "42 carol", granted: true},
		{name: "three tokens", input: "42 carol smith"},
		{name: "non-numeric id", input: "ops_team carol"},
		{name: "negative id", input: "-42 carol"},
		{name: "id overflows int64", input: "99999999999999999999999 carol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			m, store := newTestMachine(t)

			out := m.HandleEvent(ctx, testKey, admin, Command{Name: "addadmin"})
			assert.Equal(t, AwaitingAdminIDAndName{}, out.State)

			out = m.HandleEvent(ctx, testKey, admin, Text{Text: tt.input})
			isAdmin, err := store.IsAdmin(ctx, "42")
			require.NoError(t, err)
			assert.Equal(t, tt.granted, isAdmin)

			if tt.granted {
				assert.Equal(t, Menu{}, out.State)
				assert.Equal(t, []string{fmt.Sprintf(textAdminAdded, "carol", "42")}, texts(out.Effects))
			} else {
				assert.Equal(t, AwaitingAdminIDAndName{}, out.State)
				assert.Equal(t, []string{textAddAdminFormat}, texts(out.Effects))
			}
		})
	}
}

func TestAddAdminReactivatesRevoked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	_, err := store.GrantAdmin(ctx, "42", "carol")
	require.NoError(t, err)
	_, err = store.RevokeAdmin(ctx, "42")
	require.NoError(t, err)

	setState(t, store, AwaitingAdminIDAndName{})
	out := m.HandleEvent(ctx, testKey, admin, Text{Text: "42 carol"})
	assert.Equal(t, Menu{}, out.State)
	assert.Equal(t, []string{fmt.Sprintf(textAdminReactivated, "carol", "42")}, texts(out.Effects))

	isAdmin, err := store.IsAdmin(ctx, "42")
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestRemoveAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	_, err := store.GrantAdmin(ctx, "42", "carol")
	require.NoError(t, err)

	setState(t, store, AwaitingAdminIDToRemove{})
	out := m.HandleEvent(ctx, testKey, admin, Text{Text: "42 extra"})
	assert.Equal(t, AwaitingAdminIDToRemove{}, out.State)
	assert.Equal(t, []string{textRemoveAdminFormat}, texts(out.Effects))

	out = m.HandleEvent(ctx, testKey, admin, Text{Text: "42"})
	assert.Equal(t, Menu{}, out.State)
	assert.Equal(t, []string{fmt.Sprintf(textAdminRemoved, "42")}, texts(out.Effects))

	isAdmin, err := store.IsAdmin(ctx, "42")
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestRenameChosenAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	_, err := store.GrantAdmin(ctx, "42", "carol")
	require.NoError(t, err)

	out := m.HandleEvent(ctx, testKey, admin, Callback{Token: "chosen_admin_42"})
	assert.Equal(t, AdminChosen{UserID: "42"}, out.State)

	out = m.HandleEvent(ctx, testKey, admin, Callback{Token: "admin_rename"})
	assert.Equal(t, AwaitingAdminName{UserID: "42"}, out.State)

	out = m.HandleEvent(ctx, testKey, admin, Text{Text: "Caroline"})
	assert.Equal(t, Menu{}, out.State)

	got, err := store.GetAdmin(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Caroline", got.Name)
}

func TestPollingBodyWhitespaceKeepsState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	setState(t, store, AwaitingPollingBody{})
	out := m.HandleEvent(ctx, testKey, admin, Text{Text: " \t\n "})
	assert.Equal(t, AwaitingPollingBody{}, out.State)
	assert.Equal(t, []string{textEmptyMessage}, texts(out.Effects))

	msgs, err := store.ListPolling(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestWelcomeUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	out := m.HandleEvent(ctx, testKey, admin, Callback{Token: "setting_welcome_message"})
	assert.Equal(t, AwaitingWelcomeText{}, out.State)

	out = m.HandleEvent(ctx, testKey, admin, Text{Text: "Hello there"})
	assert.Equal(t, Menu{}, out.State)

	out = m.HandleEvent(ctx, testKey, admin, Callback{Token: "current_welcome_message"})
	assert.Equal(t, []string{fmt.Sprintf(textCurrentWelcome, "Hello there")}, texts(out.Effects))

	welcome, err := store.CurrentWelcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", welcome)
	polling, err := store.ListPolling(ctx)
	require.NoError(t, err)
	assert.Empty(t, polling, "the welcome message is not a polling message")
}

func TestScheduleFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	groupID, err := store.RecordJoin(ctx, "-1001", "Team A")
	require.NoError(t, err)

	steps := []struct {
		event Event
		want  State
	}{
		{event: Callback{Token: "add_poll_message"}, want: AwaitingPollingBody{}},
		{event: Text{Text: "Good morning!"}, want: AwaitingPollingTitle{Body: "Good morning!"}},
		{event: Text{Text: "Morning Greeting"}, want: Menu{}},
		{event: Callback{Token: fmt.Sprintf("group_%d_Team A", groupID)}, want: GroupChosen{GroupID: groupID}},
		{event: Callback{Token: "group_add_push"}, want: GroupChosen{GroupID: groupID}},
	}
	for i, s := range steps {
		out := m.HandleEvent(ctx, testKey, admin, s.event)
		require.Equal(t, s.want, out.State, "step %d", i)
	}

	msgs, err := store.ListPolling(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Morning Greeting", msgs[0].Title)
	assert.Equal(t, "Good morning!", msgs[0].Body)

	out := m.HandleEvent(ctx, testKey, admin, Callback{Token: Token(ChoosePushMessage{MessageID: msgs[0].ID})})
	require.Equal(t, GroupMessageChosen{GroupID: groupID, MessageID: msgs[0].ID}, out.State)

	out = m.HandleEvent(ctx, testKey, admin, Text{Text: "8:30"})
	assert.Equal(t, GroupMessageChosen{GroupID: groupID, MessageID: msgs[0].ID}, out.State)
	assert.Equal(t, []string{textBadTime}, texts(out.Effects))

	out = m.HandleEvent(ctx, testKey, admin, Text{Text: "08:30"})
	assert.Equal(t, GroupChosen{GroupID: groupID}, out.State)
	assert.Equal(t, []string{textSuccess}, texts(out.Effects))

	entries, err := store.EntriesForGroup(ctx, groupID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "08:30", entries[0].TimeOfDay)
	assert.Equal(t, msgs[0].ID, entries[0].MessageID)

	due, err := store.EntriesAtTime(ctx, "08:30")
	require.NoError(t, err)
	assert.Len(t, due, 1)
	due, err = store.EntriesAtTime(ctx, "08:31")
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDeletePollingCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	msgID, err := store.AddPolling(ctx, "t", "b")
	require.NoError(t, err)
	g1, err := store.RecordJoin(ctx, "-1", "one")
	require.NoError(t, err)
	g2, err := store.RecordJoin(ctx, "-2", "two")
	require.NoError(t, err)
	_, err = store.AddEntry(ctx, msgID, g1, "09:00")
	require.NoError(t, err)
	_, err = store.AddEntry(ctx, msgID, g2, "10:00")
	require.NoError(t, err)

	out := m.HandleEvent(ctx, testKey, admin, Callback{Token: Token(DeletePolling{MessageID: msgID})})
	assert.Equal(t, Notice{Text: textSuccess}, out.Effects[0])
	assert.Equal(t, 0, store.CountEntries())
}

func TestDeletePollingKeepsWelcome(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	require.NoError(t, store.UpsertWelcome(ctx, "custom hello"))
	pollID, err := store.AddPolling(ctx, "t", "b")
	require.NoError(t, err)

	for id := int64(1); id < pollID; id++ {
		out := m.HandleEvent(ctx, testKey, admin, Callback{Token: Token(DeletePolling{MessageID: id})})
		assert.Equal(t, Notice{Text: textFailed}, out.Effects[0], "message %d", id)
	}

	welcome, err := store.CurrentWelcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, "custom hello", welcome)

	out := m.HandleEvent(ctx, testKey, admin, Callback{Token: Token(DeletePolling{MessageID: 999})})
	assert.Equal(t, Notice{Text: textFailed}, out.Effects[0])

	out = m.HandleEvent(ctx, testKey, admin, Callback{Token: Token(DeletePolling{MessageID: pollID})})
	assert.Equal(t, Notice{Text: textSuccess}, out.Effects[0])
}

func TestRemoveAdminRejectsNonNumericID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestMachine(t)

	m.HandleEvent(ctx, testKey, admin, Command{Name: "deladmin"})
	out := m.HandleEvent(ctx, testKey, admin, Text{Text: "ops_team"})
	assert.Equal(t, AwaitingAdminIDToRemove{}, out.State)
	assert.Equal(t, []string{textRemoveAdminFormat}, texts(out.Effects))
}

func TestToggleMute(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	groupID, err := store.RecordJoin(ctx, "-1", "one")
	require.NoError(t, err)
	setState(t, store, GroupChosen{GroupID: groupID})

	m.HandleEvent(ctx, testKey, admin, Callback{Token: "group_mute_push"})
	g, err := store.GetGroup(ctx, groupID)
	require.NoError(t, err)
	assert.True(t, g.MutePolling)

	m.HandleEvent(ctx, testKey, admin, Callback{Token: "group_mute_welcome"})
	m.HandleEvent(ctx, testKey, admin, Callback{Token: "group_mute_push"})
	g, err = store.GetGroup(ctx, groupID)
	require.NoError(t, err)
	assert.False(t, g.MutePolling)
	assert.True(t, g.MuteWelcome)
}

func TestCancelCallbackClearsPrompt(t *testing.T) {
	t.Parallel()
	m, store := newTestMachine(t)

	setState(t, store, AwaitingWelcomeText{})
	out := m.HandleEvent(context.Background(), testKey, admin, Callback{Token: "cancel"})
	assert.Equal(t, Menu{}, out.State)
	assert.True(t, out.Saved)
	assert.Equal(t, []Effect{ClearPrompt{}, Notice{Text: textCancelled}}, out.Effects)
	assert.Equal(t, Menu{}, currentState(t, store))
}

func TestCallbackEdgeCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		actor     Actor
		state     State
		token     string
		wantState State
		wantText  string
	}{
		{
			name:      "non-admin",
			actor:     stranger,
			state:     AwaitingPollingBody{},
			token:     "cancel",
			wantState: AwaitingPollingBody{},
			wantText:  DefaultTexts().NotAuthorized,
		},
		{
			name:      "unknown token",
			actor:     admin,
			state:     AwaitingWelcomeText{},
			token:     "bogus_token",
			wantState: AwaitingWelcomeText{},
			wantText:  fmt.Sprintf(textMissingActuator, "bogus_token"),
		},
		{
			name:      "group action outside group flow",
			actor:     admin,
			state:     AwaitingPollingBody{},
			token:     "group_view_push",
			wantState: Menu{},
			wantText:  textAborted,
		},
		{
			name:      "revoke without chosen admin",
			actor:     admin,
			state:     Menu{},
			token:     "admin_delete",
			wantState: Menu{},
			wantText:  textAborted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, store := newTestMachine(t)
			setState(t, store, tt.state)

			out := m.HandleEvent(context.Background(), testKey, tt.actor, Callback{Token: tt.token})
			assert.Equal(t, tt.wantState, out.State)
			assert.Equal(t, []string{tt.wantText}, texts(out.Effects))
			assert.Equal(t, tt.wantState, currentState(t, store))
		})
	}
}

func TestStoreFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	setState(t, store, AwaitingPollingTitle{Body: "body"})
	store.FailOn("AddPolling", errStore)

	out := m.HandleEvent(ctx, testKey, admin, Text{Text: "title"})
	assert.Equal(t, AwaitingPollingTitle{Body: "body"}, out.State)
	assert.False(t, out.Saved)
	assert.Equal(t, []string{DefaultTexts().GenericFailure}, texts(out.Effects))
}

func TestStateStoreFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("load", func(t *testing.T) {
		t.Parallel()
		m, store := newTestMachine(t)
		store.FailOn("LoadState", errStore)

		out := m.HandleEvent(ctx, testKey, admin, Command{Name: "addadmin"})
		assert.False(t, out.Saved)
		assert.Equal(t, []string{DefaultTexts().GenericFailure}, texts(out.Effects))
	})

	t.Run("save", func(t *testing.T) {
		t.Parallel()
		m, store := newTestMachine(t)
		store.FailOn("SaveState", errStore)

		out := m.HandleEvent(ctx, testKey, admin, Command{Name: "addadmin"})
		assert.False(t, out.Saved)
		assert.Equal(t, Menu{}, out.State)
		assert.Equal(t, []string{textAddAdminPrompt, DefaultTexts().GenericFailure}, texts(out.Effects))
	})
}

func TestUnreadableStateResetsToMenu(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestMachine(t)

	require.NoError(t, store.SaveState(ctx, testKey, []byte(`{"kind":"group_chosen"}`)))

	out := m.HandleEvent(ctx, testKey, admin, Text{Text: "anything"})
	assert.Equal(t, Menu{}, out.State)
	assert.True(t, out.Saved)
	assert.Equal(t, []string{textStateReset}, texts(out.Effects))
	assert.Equal(t, Menu{}, currentState(t, store))
}

func TestConfiguredTextsOverrideDefaults(t *testing.T) {
	t.Parallel()
	store := stubs.NewMemoryStore()
	m := NewMachine(store, store, Texts{UnknownCommand: "nope"}, nil)

	out := m.HandleEvent(context.Background(), testKey, admin, Command{Name: "missing"})
	assert.Equal(t, []string{"nope"}, texts(out.Effects))

	out = m.HandleEvent(context.Background(), testKey, stranger, Command{Name: "group"})
	assert.Equal(t, []string{DefaultTexts().NotAuthorized}, texts(out.Effects))
}
