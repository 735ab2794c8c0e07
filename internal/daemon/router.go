package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/copydesk/internal/telegram"
	"github.com/harun/copydesk/internal/tracing"
	"github.com/harun/copydesk/pkg/commandqueue"
	"github.com/harun/copydesk/pkg/workflow"
	"github.com/rs/zerolog"
)

// Replier is how the router answers a chat. *telegram.Bot implements it.
type Replier interface {
	SendMessageWithReply(chatID int64, text string, replyToMessageID int) error
	SendTyping(chatID int64) error
}

// Router turns chat commands and messages into workflow operations. Every
// request for a chat runs in that chat's queue lane, so requests from one
// chat are handled one at a time and in arrival order.
type Router struct {
	controller *workflow.Controller
	queue      *commandqueue.CommandQueue
	replier    Replier
	logger     zerolog.Logger
	warnAfter  time.Duration
}

// RouterConfig holds router dependencies
type RouterConfig struct {
	Controller *workflow.Controller
	Queue      *commandqueue.CommandQueue
	Replier    Replier
	Logger     zerolog.Logger
	WarnAfter  time.Duration
}

// operation is a workflow step bound to a chat
type operation func(ctx context.Context, chatID int64) (string, error)

type route struct {
	description string
	typing      bool // show "typing" while a model works
	op          func(c *workflow.Controller) operation
}

// Command menu order
var commandOrder = []string{"start", "brief", "write", "pick", "revise", "deliver"}

var routes = map[string]route{
	"start":   {description: "show commands", op: func(c *workflow.Controller) operation { return c.Start }},
	"brief":   {description: "send product info", op: func(c *workflow.Controller) operation { return c.Brief }},
	"write":   {description: "generate copy", typing: true, op: func(c *workflow.Controller) operation { return c.Write }},
	"pick":    {description: "select draft", op: func(c *workflow.Controller) operation { return c.Pick }},
	"revise":  {description: "improve", typing: true, op: func(c *workflow.Controller) operation { return c.Revise }},
	"deliver": {description: "final copy", op: func(c *workflow.Controller) operation { return c.Deliver }},
}

// NewRouter creates a new command router
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		controller: cfg.Controller,
		queue:      cfg.Queue,
		replier:    cfg.Replier,
		logger:     cfg.Logger.With().Str("component", "router").Logger(),
		warnAfter:  cfg.WarnAfter,
	}
}

// RegisterCommands registers every workflow command on the bot
func (r *Router) RegisterCommands(commands *telegram.Commands) {
	for _, name := range commandOrder {
		rt := routes[name]
		commands.Register(name, rt.description, func(cc telegram.CommandContext) error {
			r.RouteCommand(name, cc.ChatID, cc.MessageID)
			return nil
		})
	}
}

// RouteCommand queues a workflow command for the chat. The returned channel
// reports when the command has been answered.
func (r *Router) RouteCommand(command string, chatID int64, messageID int) <-chan commandqueue.Result {
	rt, ok := routes[command]
	if !ok {
		result := make(chan commandqueue.Result, 1)
		result <- commandqueue.Result{Err: fmt.Errorf("unknown command: %s", command)}
		close(result)
		return result
	}
	return r.dispatch(command, chatID, messageID, rt.typing, rt.op(r.controller))
}

// HandleText queues a free-text message for the chat
func (r *Router) HandleText(mc telegram.MessageContext) error {
	text := mc.Text
	r.dispatch("text", mc.ChatID, mc.MessageID, false, func(ctx context.Context, chatID int64) (string, error) {
		return r.controller.CaptureText(ctx, chatID, text)
	})
	return nil
}

func (r *Router) dispatch(command string, chatID int64, messageID int, typing bool, op operation) <-chan commandqueue.Result {
	lane := commandqueue.LaneForChat(chatID)

	ctx := tracing.NewRequestContext(context.Background())
	ctx = tracing.WithSessionKey(ctx, lane)
	ctx = tracing.WithCommand(ctx, command)

	logger := tracing.LoggerFromContext(ctx, r.logger)
	logger.Debug().Int64("chat_id", chatID).Msg("Routing request")

	opts := &commandqueue.TaskOptions{
		WarnAfter: r.warnAfter,
		OnWait: func(wait time.Duration, queuePos int) {
			logger.Warn().
				Dur("wait", wait).
				Int("queue_pos", queuePos).
				Msg("Request still waiting for earlier requests in this chat")
		},
	}

	return r.queue.Submit(ctx, lane, func(ctx context.Context) error {
		return r.execute(ctx, chatID, messageID, typing, op)
	}, opts)
}

func (r *Router) execute(ctx context.Context, chatID int64, messageID int, typing bool, op operation) error {
	logger := tracing.LoggerFromContext(ctx, r.logger)

	if typing {
		if err := r.replier.SendTyping(chatID); err != nil {
			logger.Debug().Err(err).Msg("Typing indicator failed")
		}
	}

	reply, err := op(ctx, chatID)
	if err != nil {
		guidance, ok := workflow.ReplyFor(err)
		if !ok {
			return err
		}
		reply = guidance
	}

	if err := r.replier.SendMessageWithReply(chatID, reply, messageID); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}
