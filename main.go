// ABOUTME: Entry point for the TeleMsg terminal client
// ABOUTME: Routes to the TUI, CLI commands, MCP server or demo backend based on arguments
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"

	"github.com/harperreed/telemsg/api"
	"github.com/harperreed/telemsg/charm"
	"github.com/harperreed/telemsg/cli"
	"github.com/harperreed/telemsg/config"
	"github.com/harperreed/telemsg/logging"
	"github.com/harperreed/telemsg/realtime"
	"github.com/harperreed/telemsg/session"
	"github.com/harperreed/telemsg/store"
	"github.com/harperreed/telemsg/tui"
)

const version = "0.2.0"

// app holds what every backend-facing command needs.
type app struct {
	cfg    *config.Config
	logger *charmlog.Logger
	local  *store.Store
	client *api.Client
	close  func()
}

func openApp(cfg *config.Config) (*app, error) {
	logger, closeLog, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}

	local, err := store.Open(filepath.Join(cfg.DataPath(), "state"))
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	client := api.New(api.Options{
		BaseURL:         cfg.APIURL,
		Timeout:         cfg.HTTPTimeout(),
		FixtureFallback: cfg.FixtureFallback,
		Logger:          logger,
	}, local)

	return &app{
		cfg:    cfg,
		logger: logger,
		local:  local,
		client: client,
		close: func() {
			_ = local.Close()
			_ = closeLog()
		},
	}, nil
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	apiURL := flag.String("api-url", "", "Backend REST base URL (default from config)")
	dataDir := flag.String("data-dir", "", "Local state directory (default: ~/.local/share/telemsg)")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("telemsg version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	args := flag.Args()
	command := "tui"
	var commandArgs []string
	if len(args) > 0 {
		command, commandArgs = args[0], args[1:]
	}

	switch command {
	case "help", "-h", "--help":
		printUsage()

	case "sync":
		runSync(commandArgs)

	case "demo":
		logger := logging.NewWriter(os.Stderr, cfg)
		if err := cli.DemoCommand(logger, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "tui", "auth", "chat", "notify", "call", "admin", "mcp":
		a, err := openApp(cfg)
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		err = dispatch(a, command, commandArgs)
		a.close()
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

type commandFunc func(*api.Client, []string) error

var subcommands = map[string]map[string]commandFunc{
	"auth": {
		"login":    cli.LoginCommand,
		"register": cli.RegisterCommand,
		"logout":   cli.LogoutCommand,
		"whoami":   cli.WhoamiCommand,
	},
	"chat": {
		"contacts": cli.ContactsCommand,
		"history":  cli.HistoryCommand,
		"send":     cli.SendCommand,
		"upload":   cli.UploadCommand,
	},
	"notify": {
		"list":     cli.NotificationsCommand,
		"read":     cli.ReadNotificationCommand,
		"read-all": cli.ReadAllNotificationsCommand,
		"delete":   cli.DeleteNotificationCommand,
	},
	"call": {
		"start": cli.CallStartCommand,
		"end":   cli.CallEndCommand,
	},
	"admin": {
		"stats":       cli.AdminStatsCommand,
		"users":       cli.UsersCommand,
		"roles":       cli.RolesCommand,
		"role-perms":  cli.RolePermsCommand,
		"departments": cli.DepartmentsCommand,
		"dept-graph":  cli.DeptGraphCommand,
		"approvals":   cli.ApprovalsCommand,
		"approve":     cli.ApproveCommand,
		"reject":      cli.RejectCommand,
		"logs":        cli.LogsCommand,
		"export-logs": cli.ExportLogsCommand,
	},
}

func dispatch(a *app, name string, args []string) error {
	switch name {
	case "tui":
		return runTUI(a)
	case "mcp":
		return cli.MCPCommand(a.client, version)
	}

	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("%s requires a subcommand", name)
	}
	cmd, ok := subcommands[name][args[0]]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown %s command: %s", name, args[0])
	}
	return cmd(a.client, args[1:])
}

func runSync(args []string) {
	if len(args) == 0 {
		fmt.Println("Error: sync requires a subcommand")
		printUsage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "link":
		err = charm.SyncLinkCommand(args[1:])
	case "status":
		err = charm.SyncStatusCommand(args[1:])
	case "now":
		err = charm.SyncNowCommand(args[1:])
	case "auto":
		err = charm.SetAutoSyncCommand(args[1:])
	case "wipe":
		err = charm.SyncWipeCommand(args[1:])
	default:
		fmt.Printf("Unknown sync command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runTUI(a *app) error {
	logger := a.logger
	if deviceID, err := a.cfg.EnsureDeviceID(); err == nil {
		logger = logger.With("device", deviceID)
	} else {
		logger.Warn("could not persist device id", "err", err)
	}

	sess := session.New(logger)
	link := realtime.New(realtime.Options{
		URL: func() string {
			u, _ := sess.CurrentUser()
			return a.client.WebSocketURL(u.ID)
		},
		ReconnectDelay: a.cfg.ReconnectDelay(),
		Logger:         logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := tui.Deps{
		API:     a.client,
		Session: sess,
		Link:    link,
		Logger:  logger,
		Context: ctx,
	}

	// Preferences sync is optional; the settings dialog falls back to defaults.
	if kv, err := charm.GetClient(); err == nil {
		deps.Prefs = charm.NewPreferenceStore(kv, func() string {
			u, _ := sess.CurrentUser()
			return u.ID
		})
	} else {
		logger.Warn("preference sync unavailable", "err", err)
	}

	p := tea.NewProgram(tui.NewModel(deps), tea.WithAltScreen())
	_, err := p.Run()
	link.Disconnect()
	return err
}

func printUsage() {
	fmt.Printf(`telemsg v%s - Terminal client for TeleMsg

USAGE:
  telemsg [global flags] [command] [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --api-url <url>        Backend REST base URL (default: http://localhost:8080/api)
  --data-dir <dir>       Local state directory (default: ~/.local/share/telemsg)

COMMANDS:
  tui                    Interactive client (default)
  auth                   Sign in and out
  chat                   Contacts and messages
  notify                 Notification center
  call                   Voice and video call signalling
  admin                  Administration (admin accounts only)
  sync                   Preference sync through Charm
  mcp                    Start MCP server for desktop agents
  demo                   Run the in-memory demo backend

AUTH COMMANDS:
  telemsg auth login --username <name> [--password <pw>]
  telemsg auth register --name <name> --username <name> [--password <pw>]
  telemsg auth logout
  telemsg auth whoami

CHAT COMMANDS:
  telemsg chat contacts [--q <text>] [--online]
  telemsg chat history [--limit <n>] <contact-id>
  telemsg chat send <contact-id> <text>
  telemsg chat upload <contact-id> <path>

NOTIFY COMMANDS:
  telemsg notify list [--unread]
  telemsg notify read <id>
  telemsg notify read-all
  telemsg notify delete <id>

CALL COMMANDS:
  telemsg call start [--voice] <contact-id>
  telemsg call end <call-id>

ADMIN COMMANDS:
  telemsg admin stats
  telemsg admin users [--q <text>]
  telemsg admin roles
  telemsg admin role-perms [--set <id,id,...>] <role-id>
  telemsg admin departments [--q <text>]
  telemsg admin dept-graph [--members] [--out <file.dot|svg|png|jpg>]
  telemsg admin approvals [--status pending|approved|rejected|all]
  telemsg admin approve [--comment <text>] <id>
  telemsg admin reject --reason <text> <id>
  telemsg admin logs [--action <a>] [--user <id>] [--from <date>] [--to <date>]
  telemsg admin export-logs --out <file.csv> [same filters as logs]
    Note: flags must come before positional arguments

SYNC COMMANDS:
  telemsg sync link      Link this device to a Charm account
  telemsg sync status    Show sync status
  telemsg sync now       Sync preferences now
  telemsg sync auto --enable|--disable
  telemsg sync wipe --confirm

DEMO:
  telemsg demo [--port 8080]
    Sign in as zhangsan (admin) or lisi with the printed password.

EXAMPLES:
  # Try everything offline
  telemsg demo &
  telemsg auth login --username zhangsan
  telemsg

  # Export this month's logins
  telemsg admin export-logs --action login --from 2024-03-01 --out logins.csv

`, version)
}
