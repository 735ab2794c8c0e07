package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harun/copydesk/internal/observability"
	"github.com/harun/copydesk/internal/tracing"
	"github.com/harun/copydesk/pkg/models"
	"github.com/harun/copydesk/pkg/session"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Controller runs workflow operations against the session store
type Controller struct {
	store     *session.Store
	policy    *models.Policy
	completer models.Completer
	logger    zerolog.Logger
}

// Config holds controller dependencies
type Config struct {
	Store     *session.Store
	Policy    *models.Policy
	Completer models.Completer
	Logger    zerolog.Logger
}

// New creates a controller. A nil policy uses the default models.
func New(cfg Config) (*Controller, error) {
	observability.EnsureRegistered()

	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}

	policy := cfg.Policy
	if policy == nil {
		policy = models.DefaultPolicy()
	}

	return &Controller{
		store:     cfg.Store,
		policy:    policy,
		completer: cfg.Completer,
		logger:    cfg.Logger.With().Str("component", "workflow").Logger(),
	}, nil
}

// Start returns the command overview
func (c *Controller) Start(ctx context.Context, chatID int64) (string, error) {
	c.store.GetOrCreate(chatID)
	c.record(ctx, OpStart, chatID, nil)
	return ReplyHelp, nil
}

// Brief starts a new brief: the session is cleared and the next free-text
// message is taken as the product info.
func (c *Controller) Brief(ctx context.Context, chatID int64) (string, error) {
	c.store.Reset(chatID)
	_, err := c.store.Update(chatID, func(s *session.Session) error {
		s.Awaiting = session.AwaitBrief
		return nil
	})
	c.record(ctx, OpBrief, chatID, err)
	if err != nil {
		return "", err
	}
	return ReplyBriefPrompt, nil
}

// CaptureText handles a free-text message
func (c *Controller) CaptureText(ctx context.Context, chatID int64, text string) (string, error) {
	_, err := c.store.Update(chatID, func(s *session.Session) error {
		if s.Awaiting != session.AwaitBrief {
			return &PreconditionError{Op: OpCapture, Reply: ReplyNotAwaiting}
		}
		if strings.TrimSpace(text) == "" {
			return &PreconditionError{Op: OpCapture, Reply: ReplyBriefPrompt}
		}
		s.Brief = text
		s.Awaiting = session.AwaitNone
		return nil
	})
	c.record(ctx, OpCapture, chatID, err)
	if err != nil {
		return "", err
	}
	return ReplyBriefSaved, nil
}

// Write generates drafts from the brief. A new draft replaces the old one.
func (c *Controller) Write(ctx context.Context, chatID int64) (reply string, err error) {
	defer func() { c.record(ctx, OpWrite, chatID, err) }()

	sess := c.store.GetOrCreate(chatID)
	if !sess.AtLeast(session.StageBrief) {
		return "", &PreconditionError{Op: OpWrite, Reply: ReplyNeedBrief}
	}

	text, err := c.generate(ctx, OpWrite, models.TaskDraft, DraftPrompt(sess.Brief))
	if err != nil {
		return "", err
	}

	_, err = c.store.Update(chatID, func(s *session.Session) error {
		if s.Brief == "" {
			return &PreconditionError{Op: OpWrite, Reply: ReplyNeedBrief}
		}
		s.Draft = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return draftsReply(text), nil
}

// Pick selects the current draft unchanged
func (c *Controller) Pick(ctx context.Context, chatID int64) (string, error) {
	_, err := c.store.Update(chatID, func(s *session.Session) error {
		if !s.AtLeast(session.StageDraft) {
			return &PreconditionError{Op: OpPick, Reply: ReplyNeedDraft}
		}
		s.Chosen = s.Draft
		return nil
	})
	c.record(ctx, OpPick, chatID, err)
	if err != nil {
		return "", err
	}
	return ReplyPicked, nil
}

// Revise polishes the chosen draft into the final copy
func (c *Controller) Revise(ctx context.Context, chatID int64) (reply string, err error) {
	defer func() { c.record(ctx, OpRevise, chatID, err) }()

	sess := c.store.GetOrCreate(chatID)
	if !sess.AtLeast(session.StageChosen) {
		return "", &PreconditionError{Op: OpRevise, Reply: ReplyNeedChosen}
	}

	text, err := c.generate(ctx, OpRevise, models.TaskRevise, RevisePrompt(sess.Chosen))
	if err != nil {
		return "", err
	}

	_, err = c.store.Update(chatID, func(s *session.Session) error {
		if s.Chosen == "" {
			return &PreconditionError{Op: OpRevise, Reply: ReplyNeedChosen}
		}
		s.Final = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return revisedReply(text), nil
}

// Deliver returns the final copy with the client follow-up. It can be
// called any number of times.
func (c *Controller) Deliver(ctx context.Context, chatID int64) (string, error) {
	sess := c.store.GetOrCreate(chatID)
	if !sess.AtLeast(session.StageFinal) {
		err := &PreconditionError{Op: OpDeliver, Reply: ReplyNothingToSend}
		c.record(ctx, OpDeliver, chatID, err)
		return "", err
	}
	c.record(ctx, OpDeliver, chatID, nil)
	return deliverReply(sess.Final), nil
}

func (c *Controller) generate(ctx context.Context, op string, task models.Task, prompt string) (string, error) {
	ctx, span := tracing.StartSpan(
		ctx,
		"copydesk.workflow",
		"workflow."+op,
		attribute.String("task", string(task)),
	)
	defer span.End()

	result, err := c.policy.RunWithLogger(ctx, c.completer, task, prompt, c.logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", &GenerationError{Op: op, Cause: err}
	}

	span.SetAttributes(
		attribute.String("model", result.Model),
		attribute.Int("attempts", result.Attempts),
	)
	return result.Text, nil
}

func (c *Controller) record(ctx context.Context, op string, chatID int64, err error) {
	logger := tracing.LoggerFromContext(ctx, c.logger).With().
		Str("op", op).
		Int64("chat_id", chatID).
		Logger()

	var pe *PreconditionError
	switch {
	case err == nil:
		observability.RecordWorkflowOp(op, "ok")
		logger.Debug().Msg("Operation completed")
	case errors.As(err, &pe):
		observability.RecordWorkflowOp(op, "precondition")
		logger.Debug().Str("reply", pe.Reply).Msg("Precondition not met")
	default:
		observability.RecordWorkflowOp(op, "failed")
		logger.Error().Err(err).Msg("Operation failed")
	}
}
