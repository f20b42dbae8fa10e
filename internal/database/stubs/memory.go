// Package stubs provides an in-memory database.Store for tests.
package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edgard/hivebot/internal/clock"
	"github.com/edgard/hivebot/internal/database"
)

type stateRow struct {
	data      []byte
	updatedAt time.Time
}

// MemoryStore is an in-memory implementation of database.Store.
// Individual methods can be made to fail with FailOn.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	admins   []database.Admin
	messages map[int64]database.CatalogMessage
	groups   map[int64]database.Group
	entries  map[int64]database.ScheduleEntry
	states   map[string]stateRow
	failures map[string]error
}

var _ database.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[int64]database.CatalogMessage),
		groups:   make(map[int64]database.Group),
		entries:  make(map[int64]database.ScheduleEntry),
		states:   make(map[string]stateRow),
		failures: make(map[string]error),
	}
}

// FailOn makes every later call to method return err. A nil err clears the failure.
func (m *MemoryStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

func (m *MemoryStore) fail(method string) error {
	return m.failures[method]
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// RunSQLMaintenance is a no-op.
func (m *MemoryStore) RunSQLMaintenance(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fail("RunSQLMaintenance")
}

// HasAdmin reports whether any admin is active.
func (m *MemoryStore) HasAdmin(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("HasAdmin"); err != nil {
		return false, err
	}
	for _, a := range m.admins {
		if a.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

// IsAdmin reports whether userID is an active admin.
func (m *MemoryStore) IsAdmin(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("IsAdmin"); err != nil {
		return false, err
	}
	for _, a := range m.admins {
		if a.UserID == userID {
			return a.IsAdmin, nil
		}
	}
	return false, nil
}

// GrantAdmin inserts userID unless a row exists.
func (m *MemoryStore) GrantAdmin(_ context.Context, userID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GrantAdmin"); err != nil {
		return false, err
	}
	for _, a := range m.admins {
		if a.UserID == userID {
			return false, nil
		}
	}
	m.admins = append(m.admins, database.Admin{
		ID: m.id(), UserID: userID, Name: name, IsAdmin: true, CreatedAt: time.Now().UTC(),
	})
	return true, nil
}

// ReactivateAdmin restores a revoked admin.
func (m *MemoryStore) ReactivateAdmin(_ context.Context, userID string) (bool, error) {
	return m.setAdminFlag("ReactivateAdmin", userID, true)
}

// RevokeAdmin clears an active admin's flag.
func (m *MemoryStore) RevokeAdmin(_ context.Context, userID string) (bool, error) {
	return m.setAdminFlag("RevokeAdmin", userID, false)
}

func (m *MemoryStore) setAdminFlag(method, userID string, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(method); err != nil {
		return false, err
	}
	for i, a := range m.admins {
		if a.UserID == userID && a.IsAdmin != active {
			m.admins[i].IsAdmin = active
			return true, nil
		}
	}
	return false, nil
}

// RenameAdmin changes an admin's display name.
func (m *MemoryStore) RenameAdmin(_ context.Context, userID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RenameAdmin"); err != nil {
		return false, err
	}
	for i, a := range m.admins {
		if a.UserID == userID {
			m.admins[i].Name = name
			return true, nil
		}
	}
	return false, nil
}

// GetAdmin returns the admin row for userID.
func (m *MemoryStore) GetAdmin(_ context.Context, userID string) (*database.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("GetAdmin"); err != nil {
		return nil, err
	}
	for _, a := range m.admins {
		if a.UserID == userID {
			admin := a
			return &admin, nil
		}
	}
	return nil, database.ErrNotFound
}

// ListAdmins returns all admin rows in insertion order.
func (m *MemoryStore) ListAdmins(context.Context) ([]database.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("ListAdmins"); err != nil {
		return nil, err
	}
	return append([]database.Admin(nil), m.admins...), nil
}

// ListPolling returns polling messages ordered by id.
func (m *MemoryStore) ListPolling(context.Context) ([]database.CatalogMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("ListPolling"); err != nil {
		return nil, err
	}
	var msgs []database.CatalogMessage
	for _, msg := range m.messages {
		if msg.Kind == database.KindPolling {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, nil
}

// GetMessage returns a catalog message by id.
func (m *MemoryStore) GetMessage(_ context.Context, id int64) (*database.CatalogMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("GetMessage"); err != nil {
		return nil, err
	}
	msg, ok := m.messages[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &msg, nil
}

// UpsertWelcome sets the singleton welcome message.
func (m *MemoryStore) UpsertWelcome(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertWelcome"); err != nil {
		return err
	}
	for id, msg := range m.messages {
		if msg.Kind == database.KindWelcome {
			msg.Body = text
			m.messages[id] = msg
			return nil
		}
	}
	id := m.id()
	m.messages[id] = database.CatalogMessage{
		ID: id, Kind: database.KindWelcome, Title: "Welcome", Body: text, CreatedAt: time.Now().UTC(),
	}
	return nil
}

// AddPolling inserts a polling message.
func (m *MemoryStore) AddPolling(_ context.Context, title, body string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AddPolling"); err != nil {
		return 0, err
	}
	id := m.id()
	m.messages[id] = database.CatalogMessage{
		ID: id, Kind: database.KindPolling, Title: title, Body: body, CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

// DeleteMessage removes a message and its schedule entries.
func (m *MemoryStore) DeleteMessage(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteMessage"); err != nil {
		return false, err
	}
	m.deleteEntriesWhere(func(e database.ScheduleEntry) bool { return e.MessageID == id })
	if _, ok := m.messages[id]; !ok {
		return false, nil
	}
	delete(m.messages, id)
	return true, nil
}

// CurrentWelcome returns the welcome text or the default.
func (m *MemoryStore) CurrentWelcome(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("CurrentWelcome"); err != nil {
		return "", err
	}
	for _, msg := range m.messages {
		if msg.Kind == database.KindWelcome {
			return msg.Body, nil
		}
	}
	return database.DefaultWelcomeText, nil
}

// RecordJoin registers a group idempotently.
func (m *MemoryStore) RecordJoin(_ context.Context, externalGroupID, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RecordJoin"); err != nil {
		return 0, err
	}
	for id, g := range m.groups {
		if g.GroupID == externalGroupID {
			return id, nil
		}
	}
	id := m.id()
	m.groups[id] = database.Group{ID: id, GroupID: externalGroupID, Name: name, JoinedAt: time.Now().UTC()}
	return id, nil
}

// RecordLeave removes a group and its schedule entries.
func (m *MemoryStore) RecordLeave(_ context.Context, externalGroupID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RecordLeave"); err != nil {
		return false, err
	}
	for id, g := range m.groups {
		if g.GroupID == externalGroupID {
			m.deleteEntriesWhere(func(e database.ScheduleEntry) bool { return e.GroupID == id })
			delete(m.groups, id)
			return true, nil
		}
	}
	return false, nil
}

// ListGroups returns groups ordered by id.
func (m *MemoryStore) ListGroups(context.Context) ([]database.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("ListGroups"); err != nil {
		return nil, err
	}
	groups := make([]database.Group, 0, len(m.groups))
	for _, g := range m.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

// GetGroup returns a group by internal id.
func (m *MemoryStore) GetGroup(_ context.Context, id int64) (*database.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("GetGroup"); err != nil {
		return nil, err
	}
	g, ok := m.groups[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &g, nil
}

// GroupByExternalID returns a group by chat id.
func (m *MemoryStore) GroupByExternalID(_ context.Context, externalGroupID string) (*database.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("GroupByExternalID"); err != nil {
		return nil, err
	}
	for _, g := range m.groups {
		if g.GroupID == externalGroupID {
			group := g
			return &group, nil
		}
	}
	return nil, database.ErrNotFound
}

// SetMutePolling toggles scheduled pushes for a group.
func (m *MemoryStore) SetMutePolling(_ context.Context, id int64, muted bool) (bool, error) {
	return m.updateGroup("SetMutePolling", id, func(g *database.Group) { g.MutePolling = muted })
}

// SetMuteWelcome toggles welcome messages for a group.
func (m *MemoryStore) SetMuteWelcome(_ context.Context, id int64, muted bool) (bool, error) {
	return m.updateGroup("SetMuteWelcome", id, func(g *database.Group) { g.MuteWelcome = muted })
}

func (m *MemoryStore) updateGroup(method string, id int64, fn func(*database.Group)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(method); err != nil {
		return false, err
	}
	g, ok := m.groups[id]
	if !ok {
		return false, nil
	}
	fn(&g)
	m.groups[id] = g
	return true, nil
}

// AddEntry schedules a message to a group.
func (m *MemoryStore) AddEntry(_ context.Context, messageID, groupID int64, timeOfDay string) (int64, error) {
	tod, err := clock.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AddEntry"); err != nil {
		return 0, err
	}
	if _, ok := m.messages[messageID]; !ok {
		return 0, database.ErrNotFound
	}
	if _, ok := m.groups[groupID]; !ok {
		return 0, database.ErrNotFound
	}
	id := m.id()
	m.entries[id] = database.ScheduleEntry{ID: id, MessageID: messageID, GroupID: groupID, TimeOfDay: tod}
	return id, nil
}

// EntriesForGroup returns a group's entries joined with message data.
func (m *MemoryStore) EntriesForGroup(_ context.Context, groupID int64) ([]database.ScheduleEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("EntriesForGroup"); err != nil {
		return nil, err
	}
	entries := m.joinedEntries(func(e database.ScheduleEntry, _ database.Group) bool { return e.GroupID == groupID })
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].TimeOfDay < entries[j].TimeOfDay })
	return entries, nil
}

// EntriesAtTime returns entries due at timeOfDay for unmuted groups.
func (m *MemoryStore) EntriesAtTime(_ context.Context, timeOfDay string) ([]database.ScheduleEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("EntriesAtTime"); err != nil {
		return nil, err
	}
	return m.joinedEntries(func(e database.ScheduleEntry, g database.Group) bool {
		return e.TimeOfDay == timeOfDay && !g.MutePolling
	}), nil
}

func (m *MemoryStore) joinedEntries(keep func(database.ScheduleEntry, database.Group) bool) []database.ScheduleEntry {
	var out []database.ScheduleEntry
	for _, e := range m.entries {
		g := m.groups[e.GroupID]
		if !keep(e, g) {
			continue
		}
		msg := m.messages[e.MessageID]
		e.MessageTitle = msg.Title
		e.MessageBody = msg.Body
		e.ExternalGroupID = g.GroupID
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteEntry removes one schedule entry.
func (m *MemoryStore) DeleteEntry(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteEntry"); err != nil {
		return false, err
	}
	if _, ok := m.entries[id]; !ok {
		return false, nil
	}
	delete(m.entries, id)
	return true, nil
}

// DeleteEntriesForMessage removes every entry referencing messageID.
func (m *MemoryStore) DeleteEntriesForMessage(_ context.Context, messageID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteEntriesForMessage"); err != nil {
		return false, err
	}
	return m.deleteEntriesWhere(func(e database.ScheduleEntry) bool { return e.MessageID == messageID }) > 0, nil
}

func (m *MemoryStore) deleteEntriesWhere(match func(database.ScheduleEntry) bool) int {
	n := 0
	for id, e := range m.entries {
		if match(e) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

// LoadState returns the stored conversation state.
func (m *MemoryStore) LoadState(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("LoadState"); err != nil {
		return nil, false, err
	}
	row, ok := m.states[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), row.data...), true, nil
}

// SaveState stores the conversation state.
func (m *MemoryStore) SaveState(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveState"); err != nil {
		return err
	}
	m.states[key] = stateRow{data: append([]byte(nil), data...), updatedAt: time.Now()}
	return nil
}

// PruneStates deletes states idle since before.
func (m *MemoryStore) PruneStates(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("PruneStates"); err != nil {
		return 0, err
	}
	var n int64
	for key, row := range m.states {
		if row.updatedAt.Before(before) {
			delete(m.states, key)
			n++
		}
	}
	return n, nil
}

// CountEntries returns the number of stored schedule entries.
func (m *MemoryStore) CountEntries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
