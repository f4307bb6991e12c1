package bot

import (
	"fmt"
	"log"
	"strings"

	"github.com/tbaldin/ferro/internal/export"
	"github.com/tbaldin/ferro/internal/session"
	"github.com/tbaldin/ferro/internal/users"
	"github.com/tbaldin/ferro/internal/workout"
)

// CommandHandler processes "/" commands from chat. Commands are read-only
// except /finish (closes the caller's session) and the admin /users
// subcommands.
type CommandHandler struct {
	sessions *session.Manager
	workouts *workout.Service
	users    *users.Service
	exporter *export.Service
}

// CommandHandlerOpts holds parameters for creating a CommandHandler.
type CommandHandlerOpts struct {
	Sessions *session.Manager
	Workouts *workout.Service
	Users    *users.Service
	Exporter *export.Service
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(opts CommandHandlerOpts) (*CommandHandler, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("bot: command handler: session manager is required")
	}
	if opts.Workouts == nil {
		return nil, fmt.Errorf("bot: command handler: workout service is required")
	}
	if opts.Users == nil {
		return nil, fmt.Errorf("bot: command handler: users service is required")
	}
	if opts.Exporter == nil {
		return nil, fmt.Errorf("bot: command handler: exporter is required")
	}
	return &CommandHandler{
		sessions: opts.Sessions,
		workouts: opts.Workouts,
		users:    opts.Users,
		exporter: opts.Exporter,
	}, nil
}

// Execute parses and executes a "/" command string for the given user.
// Returns the response text and an optional file attachment.
func (ch *CommandHandler) Execute(userID, text string) (string, *OutboundFile) {
	args := parseCommand(text)
	if len(args) == 0 {
		return ch.helpText(), nil
	}

	switch args[0] {
	case "start":
		return ch.cmdStart(), nil
	case "status":
		return ch.cmdStatus(userID), nil
	case "finish":
		return ch.cmdFinish(userID), nil
	case "stats":
		return ch.cmdStats(userID), nil
	case "history":
		return ch.cmdHistory(userID), nil
	case "export":
		return ch.cmdExport(userID, args[1:])
	case "users":
		return ch.cmdUsers(userID, args[1:]), nil
	case "help":
		return ch.helpText(), nil
	default:
		return fmt.Sprintf("Unknown command: `/%s`\n\n%s", args[0], ch.helpText()), nil
	}
}

// parseCommand strips the "/" prefix and splits the remaining text.
func parseCommand(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, commandPrefix)
	if text == "" {
		return nil
	}
	return strings.Fields(text)
}

// cmdStart returns the welcome message.
func (ch *CommandHandler) cmdStart() string {
	return "Welcome! Record a voice note describing your workout and I will log it.\n" +
		"Notes sent within " + fmt.Sprintf("%d", int(session.DefaultTimeout.Hours())) +
		" hours land in the same session. Use /help for commands."
}

// cmdStatus reports the user's current session.
func (ch *CommandHandler) cmdStatus(userID string) string {
	st, err := ch.workouts.SessionStatus(userID, ch.sessions.Timeout())
	if err != nil {
		log.Printf("bot: command: status for %s: %v", userID, err)
		return "Could not read your session status."
	}
	return formatStatus(st)
}

// cmdFinish explicitly closes the user's active session.
func (ch *CommandHandler) cmdFinish(userID string) string {
	last, err := ch.sessions.Last(userID)
	if err != nil {
		log.Printf("bot: command: finish lookup for %s: %v", userID, err)
		return "Could not find your session."
	}
	if last == nil {
		return "No session to finish. Send a voice note to start one."
	}
	res, err := ch.workouts.Finish(last.ID, userID)
	if err != nil {
		log.Printf("bot: command: finish for %s: %v", userID, err)
		return "Could not finish your session."
	}
	return formatFinish(res)
}

// cmdStats shows aggregate numbers for the user's latest session.
func (ch *CommandHandler) cmdStats(userID string) string {
	stats, err := ch.workouts.Stats(userID)
	if err != nil {
		log.Printf("bot: command: stats for %s: %v", userID, err)
		return "Could not compute your stats."
	}
	if stats == nil {
		return "No sessions yet. Send a voice note to start one."
	}
	return "**Latest session**\n" + formatStats(stats)
}

// historyLimit caps the number of sessions shown by /history.
const historyLimit = 10

// cmdHistory lists the user's recent sessions.
func (ch *CommandHandler) cmdHistory(userID string) string {
	sessions, err := ch.sessions.History(userID, historyLimit, true)
	if err != nil {
		log.Printf("bot: command: history for %s: %v", userID, err)
		return "Could not load your history."
	}
	if len(sessions) == 0 {
		return "No sessions yet. Send a voice note to start one."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("**Recent sessions** (%d)\n", len(sessions)))
	for _, s := range sessions {
		duration := "-"
		if s.DurationMinutes != nil {
			duration = fmt.Sprintf("%d min", *s.DurationMinutes)
		}
		b.WriteString(fmt.Sprintf("%s  %-10s %s\n",
			s.Date.Format("2006-01-02"), s.Status, duration))
	}
	return b.String()
}

// cmdExport renders the user's history as a file attachment.
func (ch *CommandHandler) cmdExport(userID string, args []string) (string, *OutboundFile) {
	format := "csv"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}

	var data []byte
	var err error
	switch format {
	case "csv":
		data, err = ch.exporter.CSV(userID)
	case "json":
		data, err = ch.exporter.JSON(userID)
	default:
		return "Usage: `/export [csv|json]`", nil
	}
	if err != nil {
		log.Printf("bot: command: export for %s: %v", userID, err)
		return "Could not build your export.", nil
	}

	return "Here is your workout history.", &OutboundFile{
		Name: export.Filename(userID, format),
		Data: data,
	}
}

// cmdUsers handles the admin-only /users subcommands.
func (ch *CommandHandler) cmdUsers(callerID string, args []string) string {
	if !ch.users.IsAdmin(callerID) {
		return "Only admins can manage users."
	}
	if len(args) == 0 {
		return "Usage: `/users list` | `/users add <id> [admin]` | `/users rm <id>`"
	}

	switch args[0] {
	case "list":
		return ch.cmdUsersList()
	case "add":
		if len(args) < 2 {
			return "Usage: `/users add <id> [admin]`"
		}
		admin := len(args) > 2 && args[2] == "admin"
		if err := ch.users.Add(args[1], callerID, admin); err != nil {
			return fmt.Sprintf("Error adding user: %v", err)
		}
		return fmt.Sprintf("User %s authorized.", args[1])
	case "rm":
		if len(args) < 2 {
			return "Usage: `/users rm <id>`"
		}
		if err := ch.users.Deactivate(args[1]); err != nil {
			return fmt.Sprintf("Error removing user: %v", err)
		}
		return fmt.Sprintf("User %s deactivated.", args[1])
	default:
		return fmt.Sprintf("Unknown users subcommand: `%s`", args[0])
	}
}

// cmdUsersList formats the user registry as a table.
func (ch *CommandHandler) cmdUsersList() string {
	all, err := ch.users.List()
	if err != nil {
		return fmt.Sprintf("Error listing users: %v", err)
	}
	if len(all) == 0 {
		return "No users registered."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("**Users** (%d)\n", len(all)))
	b.WriteString(fmt.Sprintf("%-16s %-14s %-6s %s\n", "ID", "USERNAME", "ADMIN", "ACTIVE"))
	for _, u := range all {
		b.WriteString(fmt.Sprintf("%-16s %-14s %-6t %t\n",
			u.UserID, u.Username, u.IsAdmin, u.IsActive))
	}
	return b.String()
}

// helpText returns usage information for all commands.
func (ch *CommandHandler) helpText() string {
	return "**Workout Bot Commands**\n" +
		"Send a voice note to log exercises.\n" +
		"`/status` — Current session\n" +
		"`/finish` — Close your session\n" +
		"`/stats` — Latest session numbers\n" +
		"`/history` — Recent sessions\n" +
		"`/export [csv|json]` — Download your history\n" +
		"`/help` — This message"
}
