package conversation

// Texts holds the user-facing strings that operators may override from configuration.
type Texts struct {
	NotAuthorized  string
	AccessDenied   string
	GenericFailure string
	UnknownCommand string
	SessionEnded   string
}

// DefaultTexts returns the built-in strings.
func DefaultTexts() Texts {
	return Texts{
		NotAuthorized:  "Sorry, you are not an administrator and cannot use this function.",
		AccessDenied:   "Access restricted to administrators only",
		GenericFailure: "Operation failed, please try again.",
		UnknownCommand: "Unknown command. Use /help to see available commands.",
		SessionEnded:   "This session is ended.",
	}
}

// withDefaults fills empty fields from DefaultTexts.
func (t Texts) withDefaults() Texts {
	d := DefaultTexts()
	if t.NotAuthorized == "" {
		t.NotAuthorized = d.NotAuthorized
	}
	if t.AccessDenied == "" {
		t.AccessDenied = d.AccessDenied
	}
	if t.GenericFailure == "" {
		t.GenericFailure = d.GenericFailure
	}
	if t.UnknownCommand == "" {
		t.UnknownCommand = d.UnknownCommand
	}
	if t.SessionEnded == "" {
		t.SessionEnded = d.SessionEnded
	}
	return t
}

const (
	textCongratulations   = "Congratulations on becoming an administrator! /start will open a new menu"
	textSetAdminFailed    = "Setting administrator failed"
	textWelcomeBack       = "Dear %s, welcome back! Choose action:"
	textChooseAction      = "Choose action"
	textWhoami            = "Hi %s, your user ID is:\n%d"
	textAddAdminPrompt    = "Add admin: [ID] [name]"
	textAddAdminFormat    = "Input format error e.g. [ID] [name]:"
	textAdminAdded        = "Administrator %s (%s) added."
	textAdminReactivated  = "Administrator %s (%s) reactivated."
	textAdminExists       = "%s is already an administrator."
	textRemoveAdminPrompt = "Remove admin: [ID]"
	textRemoveAdminFormat = "Input format error e.g. [ID]:"
	textAdminRemoved      = "Administrator %s removed."
	textAdminNotActive    = "No active administrator with ID %s."
	textAdminList         = "Administrators:"
	textNoAdmins          = "There are no administrators."
	textAdminNotFound     = "Administrator not found."
	textAdminMenu         = "%s (%s)\nPlease choose an operation:"
	textRenamePrompt      = "Enter the new name:"
	textWelcomeMenu       = "Welcome message:"
	textWelcomePrompt     = "Send the new welcome message:"
	textCurrentWelcome    = "Current welcome message:\n\n%s"
	textWelcomeUpdated    = "Welcome message updated."
	textPollingMenu       = "Polling messages:"
	textPollingBodyPrompt = "Step 1: Send the message content:"
	textPollingTitle      = "Step 2: Set the message title:"
	textEmptyMessage      = "Message is empty. Add content to continue."
	textInputError        = "Input Error"
	textPollingAdded      = "[%s] addition was successful!"
	textNoPolling         = "There are no polling messages yet."
	textClickToDelete     = "Click to delete:"
	textNoGroups          = "The robot has not joined any groups yet!"
	textSelectGroup       = "Select group:"
	textGroupMenu         = "%s\nPlease choose an operation:"
	textGroupNotFound     = "Group not found."
	textSpecifyMessage    = "Please specify the message:"
	textTimePrompt        = "Time (HH:MM): e.g. 08:20"
	textBadTime           = "Wrong format. Use HH:MM (e.g. 08:20)"
	textNoPushes          = "No pushes scheduled for this group."
	textSuccess           = "Success"
	textFailed            = "Failed"
	textStateReset        = "Status error, auto reset to default"
	textAborted           = "Abnormal status, exited!"
	textCancelled         = "Operation cancelled"
	textMissingActuator   = "Missing actuator callback query: %s"
)
