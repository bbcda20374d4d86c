// ABOUTME: Dispatcher routing parsed slash commands to engine operations.
// ABOUTME: Admin gate, subcommand parsing, help text, deferred work split.

package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/opsmith-io/wardroom/internal/platform"
	"github.com/opsmith-io/wardroom/internal/reconcile"
)

const deniedText = "Sorry, you do not have access to this command."

var channelHelp = strings.Join([]string{
	"`/channel create [channel]` - Creates an empty channel",
	"`/channel full [channel]` - Creates a channel and fills it with all users",
	"`/channel fill` - Fills the current channel with all users",
	"`/channel empty` - Removes everyone from the current channel",
	"`/channel mirror [channel]` - Fills the current channel with users from another channel",
	"`/channel invite [list]` - Invites everyone on the list to the current channel",
	"`/channel prune [list]` - Removes everyone *not* on the list from the current channel",
	"",
	"* Example of a valid user list: U78TKJHAL,U70GEE62D,U70QG8ZB5,U845M27A5",
}, "\n")

var utilHelp = strings.Join([]string{
	"`/util users` - Lists all workspace users and their user id",
	"`/util addbot` - Adds this bot to all existing channels",
	"`/util activity [channel]` - Reports first and last post per user in a channel",
}, "\n")

// Request is one inbound slash-command invocation.
type Request struct {
	Command     string // "/channel" or "/util"
	Text        string // everything after the command
	UserID      platform.UserID
	ChannelID   string
	ChannelName string
}

// Work is the deferred part of a command, run after the ack is sent.
type Work func(context.Context)

// Dispatcher routes slash commands to the engine.
type Dispatcher struct {
	adapter platform.Adapter
	engine  *reconcile.Engine
	logger  *slog.Logger
}

// New creates a dispatcher.
func New(adapter platform.Adapter, engine *reconcile.Engine, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		adapter: adapter,
		engine:  engine,
		logger:  logger.With("component", "commands"),
	}
}

// Dispatch authorizes and parses one command. It returns the immediate
// ack text and, for commands with asynchronous work, a non-nil Work the
// caller must run. A returned error means the request could not be
// evaluated at all.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (string, Work, error) {
	user, err := d.adapter.GetUser(ctx, req.UserID)
	if err != nil {
		return "", nil, err
	}
	if !user.Admin {
		return deniedText, nil, nil
	}

	fields := strings.Fields(req.Text)
	sub := "help"
	if len(fields) > 0 {
		sub = fields[0]
	}
	args := fields[1:]

	d.logger.Info("command received",
		"command", req.Command,
		"sub", sub,
		"user_id", req.UserID)

	inv := reconcile.Invoker{UserID: req.UserID, ChannelID: req.ChannelID}
	switch req.Command {
	case "/channel":
		return d.channel(sub, args, req, inv)
	case "/util":
		return d.util(sub, args, req, inv)
	default:
		return "Unknown command", nil, nil
	}
}

func (d *Dispatcher) channel(sub string, args []string, req Request, inv reconcile.Invoker) (string, Work, error) {
	name := req.ChannelName
	if len(args) > 0 {
		name = args[0]
	}

	switch sub {
	case "create":
		return "", d.work(func(ctx context.Context) error {
			return d.engine.CreateChannel(ctx, name, req.UserID, false, false, inv)
		}), nil
	case "full":
		return "", d.work(func(ctx context.Context) error {
			return d.engine.CreateChannel(ctx, name, req.UserID, false, true, inv)
		}), nil
	case "fill":
		return "", d.work(func(ctx context.Context) error {
			return d.engine.Fill(ctx, req.ChannelID, inv)
		}), nil
	case "empty":
		return "", d.work(func(ctx context.Context) error {
			return d.engine.Empty(ctx, req.ChannelID, inv)
		}), nil
	case "mirror":
		if len(args) == 0 {
			return "Need to specify a channel", nil, nil
		}
		source := args[0]
		return "", d.work(func(ctx context.Context) error {
			return d.engine.Mirror(ctx, source, req.ChannelID, inv)
		}), nil
	case "invite":
		if len(args) == 0 {
			return "Need to specify a user list", nil, nil
		}
		list := strings.Join(args, " ")
		return "", d.work(func(ctx context.Context) error {
			return d.engine.Invite(ctx, req.ChannelID, list, inv)
		}), nil
	case "prune":
		list := strings.Join(args, " ")
		return "Pruning...", d.work(func(ctx context.Context) error {
			return d.engine.Prune(ctx, req.ChannelID, list, inv)
		}), nil
	default:
		return channelHelp, nil, nil
	}
}

func (d *Dispatcher) util(sub string, args []string, req Request, inv reconcile.Invoker) (string, Work, error) {
	switch sub {
	case "users":
		return "", d.work(func(ctx context.Context) error {
			return d.engine.ListUsers(ctx, inv)
		}), nil
	case "addbot":
		return "", d.work(func(ctx context.Context) error {
			return d.engine.AddBotEverywhere(ctx, inv)
		}), nil
	case "activity":
		target := req.ChannelID
		if len(args) > 0 {
			target = args[0]
		}
		return "", d.work(func(ctx context.Context) error {
			return d.engine.ActivityReport(ctx, target, inv)
		}), nil
	default:
		return utilHelp, nil, nil
	}
}

// work wraps an engine call so its failure stays scoped to this
// invocation. The engine already reports outcomes to the invoker.
func (d *Dispatcher) work(call func(context.Context) error) Work {
	return func(ctx context.Context) {
		if err := call(ctx); err != nil {
			d.logger.Error("command failed", "error", err)
		}
	}
}
