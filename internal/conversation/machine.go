package conversation

import (
	"context"
	"io"
	"log/slog"
	"strconv"

	"github.com/edgard/hivebot/internal/database"
)

// Store is the subset of database.Store the dialogue reads and mutates.
type Store interface {
	HasAdmin(ctx context.Context) (bool, error)
	GrantAdmin(ctx context.Context, userID, name string) (bool, error)
	ReactivateAdmin(ctx context.Context, userID string) (bool, error)
	RevokeAdmin(ctx context.Context, userID string) (bool, error)
	RenameAdmin(ctx context.Context, userID, name string) (bool, error)
	GetAdmin(ctx context.Context, userID string) (*database.Admin, error)
	ListAdmins(ctx context.Context) ([]database.Admin, error)

	ListPolling(ctx context.Context) ([]database.CatalogMessage, error)
	GetMessage(ctx context.Context, id int64) (*database.CatalogMessage, error)
	UpsertWelcome(ctx context.Context, text string) error
	AddPolling(ctx context.Context, title, body string) (int64, error)
	DeleteMessage(ctx context.Context, id int64) (bool, error)
	CurrentWelcome(ctx context.Context) (string, error)

	ListGroups(ctx context.Context) ([]database.Group, error)
	GetGroup(ctx context.Context, id int64) (*database.Group, error)
	SetMutePolling(ctx context.Context, id int64, muted bool) (bool, error)
	SetMuteWelcome(ctx context.Context, id int64, muted bool) (bool, error)

	AddEntry(ctx context.Context, messageID, groupID int64, timeOfDay string) (int64, error)
	EntriesForGroup(ctx context.Context, groupID int64) ([]database.ScheduleEntry, error)
	DeleteEntry(ctx context.Context, id int64) (bool, error)
}

// StateStore persists encoded conversation states by key.
type StateStore interface {
	LoadState(ctx context.Context, key string) ([]byte, bool, error)
	SaveState(ctx context.Context, key string, data []byte) error
}

// Machine applies inbound events to persisted conversation state.
// It is safe for concurrent use across distinct conversation keys.
type Machine struct {
	store  Store
	states StateStore
	texts  Texts
	logger *slog.Logger
}

// NewMachine creates a Machine. Empty fields in texts fall back to DefaultTexts.
func NewMachine(store Store, states StateStore, texts Texts, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Machine{
		store:  store,
		states: states,
		texts:  texts.withDefaults(),
		logger: logger.With("component", "conversation"),
	}
}

// step is the result of one transition. A nil next leaves the state untouched.
type step struct {
	next    State
	effects []Effect
}

func stay(effects ...Effect) step {
	return step{effects: effects}
}

func moveTo(next State, effects ...Effect) step {
	return step{next: next, effects: effects}
}

// HandleEvent loads the state for key, applies ev on behalf of actor, persists the
// next state when it changed, and returns the effects to deliver. Collaborator
// failures are reported as effects and never returned.
func (m *Machine) HandleEvent(ctx context.Context, key string, actor Actor, ev Event) Outcome {
	log := m.logger.With("conv_key", key, "user_id", actor.UserID)

	current, st := m.load(ctx, log, key)
	if st == nil {
		s := m.dispatch(ctx, log, current, actor, ev)
		st = &s
	}

	out := Outcome{State: current, Effects: st.effects}
	if st.next == nil || st.next == current {
		return out
	}

	data, err := EncodeState(st.next)
	if err == nil {
		err = m.states.SaveState(ctx, key, data)
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to persist conversation state", "next", st.next.kind(), "error", err)
		out.Effects = append(out.Effects, Reply{Text: m.texts.GenericFailure})
		return out
	}

	log.DebugContext(ctx, "Conversation state changed", "from", current.kind(), "to", st.next.kind())
	out.State = st.next
	out.Saved = true
	return out
}

// load returns the current state. A failed load yields a terminal step; an
// undecodable state yields a reset to Menu.
func (m *Machine) load(ctx context.Context, log *slog.Logger, key string) (State, *step) {
	data, ok, err := m.states.LoadState(ctx, key)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load conversation state", "error", err)
		st := stay(Reply{Text: m.texts.GenericFailure})
		return Menu{}, &st
	}
	if !ok {
		return Menu{}, nil
	}

	s, err := DecodeState(data)
	if err != nil {
		log.WarnContext(ctx, "Discarding unreadable conversation state", "error", err)
		st := moveTo(Menu{}, Reply{Text: textStateReset})
		return invalidState{}, &st
	}
	return s, nil
}

// invalidState stands in for a stored state that could not be decoded so that
// the reset to Menu is always persisted.
type invalidState struct{}

func (invalidState) kind() string { return "invalid" }

func (m *Machine) dispatch(ctx context.Context, log *slog.Logger, current State, actor Actor, ev Event) step {
	switch e := ev.(type) {
	case Command:
		return m.onCommand(ctx, log, current, actor, e)
	case Callback:
		return m.onCallback(ctx, log, current, actor, e)
	case Text:
		return m.onText(ctx, log, current, actor, e)
	default:
		return stay()
	}
}

func (m *Machine) failure(ctx context.Context, log *slog.Logger, op string, err error) step {
	log.ErrorContext(ctx, "Store operation failed", "op", op, "error", err)
	return stay(Reply{Text: m.texts.GenericFailure})
}

// noticeFailure reports a failed button action as an acknowledgement so the
// prompt stays usable.
func (m *Machine) noticeFailure(ctx context.Context, log *slog.Logger, op string, err error) step {
	log.ErrorContext(ctx, "Store operation failed", "op", op, "error", err)
	return stay(Notice{Text: m.texts.GenericFailure})
}

// mismatch recovers from a state that cannot serve the requested transition.
func mismatch(log *slog.Logger, current State, want string) step {
	log.Warn("Conversation state mismatch, resetting", "state", current.kind(), "expected", want)
	return moveTo(Menu{}, EditPrompt{Text: textAborted})
}

func userID(actor Actor) string {
	return strconv.FormatInt(actor.UserID, 10)
}

// groupOf extracts the group carried by the group-flow states.
func groupOf(s State) (int64, bool) {
	switch v := s.(type) {
	case GroupChosen:
		return v.GroupID, true
	case GroupMessageChosen:
		return v.GroupID, true
	default:
		return 0, false
	}
}
