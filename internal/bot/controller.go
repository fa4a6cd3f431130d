package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/seedingbot/internal/discord"
	"github.com/edgard/seedingbot/internal/process"
	"github.com/edgard/seedingbot/internal/status"
)

// State is the lifecycle state of the Controller.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateMonitoring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateMonitoring:
		return "monitoring"
	default:
		return "unknown"
	}
}

const (
	successPrefix = "Command executed successfully:\n```\n"
	successSuffix = "\n```"
	failurePrefix = "Error executing command: "
	truncatedMark = "...\n"
)

// ControllerDeps holds everything the Controller needs. Location and Text
// shape the status message; Commands maps status.ActionStart and
// status.ActionStop to shell commands.
type ControllerDeps struct {
	Logger   *slog.Logger
	Prober   process.Prober
	Runner   process.Runner
	Channel  *discord.ChannelManager
	Acks     *discord.Acknowledger
	Location string
	Text     status.Text
	Commands map[string]string
}

// Controller binds the START/STOP buttons to commands and keeps the status
// message in sync with the controlled process.
type Controller struct {
	logger   *slog.Logger
	prober   process.Prober
	runner   process.Runner
	channel  *discord.ChannelManager
	acks     *discord.Acknowledger
	ids      status.ButtonIDs
	location string
	text     status.Text
	commands map[string]string

	state     atomic.Int32
	refreshMu sync.Mutex
	commandMu sync.Mutex
}

// NewController creates a Controller in the idle state.
func NewController(deps ControllerDeps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		logger:   logger.With("component", "controller"),
		prober:   deps.Prober,
		runner:   deps.Runner,
		channel:  deps.Channel,
		acks:     deps.Acks,
		ids:      status.NewButtonIDs(deps.Location),
		location: deps.Location,
		text:     deps.Text,
		commands: deps.Commands,
	}
}

// ButtonIDs returns the custom ids bound by this controller.
func (c *Controller) ButtonIDs() status.ButtonIDs {
	return c.ids
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// HandleReady runs the one-time startup: clear the channel and publish the
// first status message. Later calls, e.g. after a gateway reconnect, only
// refresh.
func (c *Controller) HandleReady(ctx context.Context, botUserID string) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		c.logger.InfoContext(ctx, "Gateway ready again, refreshing status")
		c.Refresh(ctx)
		return
	}

	c.logger.InfoContext(ctx, "Bot started", "location", c.location, "start_id", c.ids.Start, "stop_id", c.ids.Stop)
	c.channel.SetBotUserID(botUserID)
	c.channel.Resolve(ctx)
	c.channel.Reset(ctx)
	c.Refresh(ctx)

	c.state.Store(int32(StateMonitoring))
	c.logger.InfoContext(ctx, "Monitoring process status")
}

// Refresh probes the process and publishes the rendered status.
func (c *Controller) Refresh(ctx context.Context) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	st := c.prober.Probe(ctx)
	c.channel.Publish(ctx, status.Render(st, c.location, c.text), c.ids)
	c.logger.DebugContext(ctx, "Status refreshed", "running", st.Running)
}

// RefreshIfMonitoring refreshes only after the startup sequence completed.
func (c *Controller) RefreshIfMonitoring(ctx context.Context) {
	if c.State() != StateMonitoring {
		c.logger.DebugContext(ctx, "Skipping refresh before startup completed", "state", c.State().String())
		return
	}
	c.Refresh(ctx)
}

// HandleInteraction runs the command bound to a clicked button. Interactions
// that are not button clicks or carry another deployment's id are ignored
// without acknowledgment.
func (c *Controller) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent {
		return
	}
	customID := i.MessageComponentData().CustomID
	action := c.ids.Action(customID)
	if action == "" {
		c.logger.DebugContext(ctx, "Ignoring foreign button", "custom_id", customID)
		return
	}

	log := c.logger.With("action", action, "interaction_id", i.ID)
	ack := c.acks.Begin(i)
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Panic while handling interaction", "panic", r)
			ack.Finalize(ctx, failurePrefix+fmt.Sprint(r))
		}
	}()

	ack.EnsureAcknowledged(ctx)
	res := c.execute(ctx, action)
	if !res.Success {
		log.ErrorContext(ctx, "Error executing command", "error", res.Err)
	}
	ack.Finalize(ctx, Summary(res))
	c.Refresh(ctx)
}

// execute runs the command for action. Only one command runs at a time.
func (c *Controller) execute(ctx context.Context, action string) process.CommandResult {
	c.commandMu.Lock()
	defer c.commandMu.Unlock()

	return c.runner.Run(ctx, c.commands[action])
}

// Summary renders a command result as reply content that fits in one
// Discord message. Long output and long errors keep their tail, where
// docker-compose reports what went wrong.
func Summary(res process.CommandResult) string {
	if !res.Success {
		msg := "unknown error"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return fitTail(failurePrefix, msg, "")
	}
	return fitTail(successPrefix, res.Output, successSuffix)
}

// fitTail joins prefix, body and suffix, dropping the start of body when the
// result would exceed discord.MaxContentLength.
func fitTail(prefix, body, suffix string) string {
	room := discord.MaxContentLength - utf8.RuneCountInString(prefix) - utf8.RuneCountInString(suffix)
	if utf8.RuneCountInString(body) > room {
		runes := []rune(body)
		keep := room - utf8.RuneCountInString(truncatedMark)
		body = truncatedMark + string(runes[len(runes)-keep:])
	}
	return prefix + body + suffix
}

// ReadyHandler adapts HandleReady to a discordgo event handler.
func (c *Controller) ReadyHandler(ctx context.Context) func(*discordgo.Session, *discordgo.Ready) {
	return func(_ *discordgo.Session, r *discordgo.Ready) {
		var botUserID string
		if r != nil && r.User != nil {
			botUserID = r.User.ID
		}
		c.HandleReady(ctx, botUserID)
	}
}

// InteractionHandler adapts HandleInteraction to a discordgo event handler.
func (c *Controller) InteractionHandler(ctx context.Context) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		if i == nil {
			return
		}
		c.HandleInteraction(ctx, i.Interaction)
	}
}
