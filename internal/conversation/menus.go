package conversation

import (
	"fmt"
	"strings"

	"github.com/edgard/hivebot/internal/database"
)

// CommandInfo describes a slash command for help output and the chat command list.
type CommandInfo struct {
	Name        string
	Description string
	AdminOnly   bool
}

var commands = []CommandInfo{
	{Name: "help", Description: "Help"},
	{Name: "start", Description: "Start"},
	{Name: "cancel", Description: "Cancel"},
	{Name: "whoami", Description: "Who am I?"},
	{Name: "addadmin", Description: "➕ Add admin", AdminOnly: true},
	{Name: "deladmin", Description: "➖ Remove admin", AdminOnly: true},
	{Name: "admins", Description: "📋 Admin list", AdminOnly: true},
	{Name: "himsg", Description: "✨ Welcome", AdminOnly: true},
	{Name: "pollmsg", Description: "📝 Add msg", AdminOnly: true},
	{Name: "msg", Description: "📜 Messages", AdminOnly: true},
	{Name: "group", Description: "👥 Groups", AdminOnly: true},
}

// Commands returns the commands visible to a user. Admins see every command.
func Commands(admin bool) []CommandInfo {
	var out []CommandInfo
	for _, c := range commands {
		if c.AdminOnly && !admin {
			continue
		}
		out = append(out, c)
	}
	return out
}

// IsAdminCommand reports whether name is restricted to admins.
func IsAdminCommand(name string) bool {
	for _, c := range commands {
		if c.Name == name {
			return c.AdminOnly
		}
	}
	return false
}

func helpText(admin bool) string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range Commands(admin) {
		fmt.Fprintf(&b, "\n/%s - %s", c.Name, c.Description)
	}
	return b.String()
}

func option(label string, a Action) Option {
	return Option{Label: label, Token: Token(a)}
}

func cancelRow() []Option {
	return []Option{option("Cancel", Cancel{})}
}

func mainMenu() [][]Option {
	return [][]Option{
		{option("📋 Admins", ListAdmins{}), option("➕ Add admin", AddAdmin{})},
		{option("✨ Set welcome", SetWelcome{}), option("👀 Current welcome", ShowWelcome{})},
		{option("📝 Add polling", AddPolling{}), option("📜 Polling list", ListPolling{})},
		{option("👥 Groups", ListGroups{})},
		cancelRow(),
	}
}

func adminsMenu() [][]Option {
	return [][]Option{
		{option("📋 Managers", ListAdmins{}), option("➕ Add", AddAdmin{})},
		cancelRow(),
	}
}

func welcomeMenu() [][]Option {
	return [][]Option{
		{option("✨ Set", SetWelcome{}), option("👀 Current", ShowWelcome{})},
		cancelRow(),
	}
}

func pollingMenu() [][]Option {
	return [][]Option{
		{option("📝 Add", AddPolling{}), option("📜 List", ListPolling{})},
		cancelRow(),
	}
}

func adminList(admins []database.Admin) [][]Option {
	rows := make([][]Option, 0, len(admins)+1)
	for _, a := range admins {
		label := fmt.Sprintf("%s (%s)", a.Name, a.UserID)
		if !a.IsAdmin {
			label += " - revoked"
		}
		rows = append(rows, []Option{option(label, ChooseAdmin{UserID: a.UserID})})
	}
	return append(rows, []Option{option("⬅️ Back", BackToMenu{})})
}

func adminActions() [][]Option {
	return [][]Option{
		{option("➖ Delete", RevokeChosenAdmin{}), option("✏️ Rename", RenameChosenAdmin{})},
		{option("⬅️ Back", ListAdmins{})},
	}
}

func pollingList(msgs []database.CatalogMessage) [][]Option {
	rows := make([][]Option, 0, len(msgs)+1)
	for _, m := range msgs {
		rows = append(rows, []Option{option(m.Title, DeletePolling{MessageID: m.ID})})
	}
	return append(rows, []Option{option("⬅️ Back", BackToMenu{})})
}

func groupList(groups []database.Group) [][]Option {
	rows := make([][]Option, 0, len(groups)+1)
	for _, g := range groups {
		rows = append(rows, []Option{option(g.Name, ChooseGroup{GroupID: g.ID})})
	}
	return append(rows, cancelRow())
}

func groupMenu(g *database.Group) [][]Option {
	push, welcome := "🔕 Mute pushes", "🔕 Mute welcome"
	if g != nil && g.MutePolling {
		push = "🔔 Unmute pushes"
	}
	if g != nil && g.MuteWelcome {
		welcome = "🔔 Unmute welcome"
	}
	return [][]Option{
		{option("📲 Add Push", AddPush{}), option("👀 View Push", ViewPush{})},
		{option(push, TogglePushMute{}), option(welcome, ToggleWelcomeMute{})},
		{option("Cancel", CancelGroup{})},
	}
}

func pushMessages(groupID int64, msgs []database.CatalogMessage) [][]Option {
	rows := [][]Option{{option("⬅️ Back", ChooseGroup{GroupID: groupID})}}
	for _, m := range msgs {
		rows = append(rows, []Option{option(m.Title, ChoosePushMessage{MessageID: m.ID})})
	}
	return rows
}

func pushEntries(groupID int64, entries []database.ScheduleEntry) [][]Option {
	rows := [][]Option{{option("⬅️ Back", ChooseGroup{GroupID: groupID})}}
	for _, e := range entries {
		rows = append(rows, []Option{option(e.TimeOfDay+"-"+e.MessageTitle, DeletePush{EntryID: e.ID})})
	}
	return rows
}
