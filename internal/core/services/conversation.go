package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-dispatch/internal/intent"
)

// Ensure ConversationService implements ChatService
var _ driving.ChatService = (*ConversationService)(nil)

const (
	// DefaultMaxToolRounds executes tools once per user turn.
	DefaultMaxToolRounds = 1

	// maxParallelTools bounds concurrent tool calls in parallel mode.
	maxParallelTools = 4

	// persistTimeout bounds history writes after the request context ends.
	persistTimeout = 5 * time.Second
)

// ConversationService runs the conversation loop:
//
//	AwaitingModel -> ExecutingTools -> (AwaitingModel ...) -> Streaming
//
// The first pass is non-streaming so tool calls can be inspected. Tools run
// in request order and each yields one tool message. After at most
// MaxToolRounds rounds the final reply is streamed without tools, so tool
// requests in the final pass are never executed.
type ConversationService struct {
	llm           driven.LLMService
	tools         driving.ToolService
	store         driven.ConversationStore
	superseder    *Superseder
	prompts       promptBuilder
	maxToolRounds int
	parallelTools bool
	logger        *slog.Logger
}

// ConversationServiceConfig holds dependencies for ConversationService.
type ConversationServiceConfig struct {
	LLM   driven.LLMService
	Tools driving.ToolService

	// Store persists history. Optional.
	Store driven.ConversationStore

	// Superseder cancels a user's previous chat. Optional.
	Superseder *Superseder

	// MaxToolRounds bounds tool execution per turn. Zero means one round.
	MaxToolRounds int

	// ParallelTools runs one round's tools concurrently. Result order still
	// matches request order.
	ParallelTools bool

	Logger *slog.Logger
	Now    func() time.Time
}

// NewConversationService creates a new conversation service.
func NewConversationService(cfg ConversationServiceConfig) *ConversationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rounds := cfg.MaxToolRounds
	if rounds <= 0 {
		rounds = DefaultMaxToolRounds
	}
	superseder := cfg.Superseder
	if superseder == nil {
		superseder = NewSuperseder()
	}
	return &ConversationService{
		llm:           cfg.LLM,
		tools:         cfg.Tools,
		store:         cfg.Store,
		superseder:    superseder,
		prompts:       promptBuilder{now: now},
		maxToolRounds: rounds,
		parallelTools: cfg.ParallelTools,
		logger:        logger.With("component", "conversation"),
	}
}

// Start runs the loop up to the opening of the final stream.
func (s *ConversationService) Start(ctx context.Context, user domain.UserContext, req driving.ChatRequest) (driving.ChatReply, error) {
	if err := validateMessages(req.Messages); err != nil {
		return nil, err
	}
	if len(user.Sources) == 0 {
		user.Sources = req.ConnectedSources
	}

	ctx, done := s.superseder.Begin(ctx, KindChat, user.UserID)
	reply, err := s.start(ctx, user, req, done)
	if err != nil {
		done()
		return nil, err
	}
	return reply, nil
}

func (s *ConversationService) start(ctx context.Context, user domain.UserContext, req driving.ChatRequest, done func()) (*chatReply, error) {
	convID, err := s.openConversation(ctx, user.UserID, req)
	if err != nil {
		return nil, err
	}

	tools := s.tools.Available(user.Sources)
	lastUser := domain.LastUserMessage(req.Messages)
	parsed := intent.Parse(lastUser)
	log := s.logger.With("user_id", user.UserID, "conversation_id", convID)
	log.Debug("intent parsed", "kind", parsed.Kind, "connector", parsed.Connector, "references", len(parsed.References))

	// history holds the turns only. Each pass prepends its own system
	// message on a fresh slice.
	history := append([]domain.Message(nil), req.Messages...)
	s.persist(ctx, convID, domain.Message{Role: domain.RoleUser, Content: lastUser})

	var results []domain.ToolResult
	rounds := 0
	for rounds < s.maxToolRounds {
		log.Debug("loop state", "state", domain.LoopAwaitingModel, "round", rounds)
		system := s.prompts.firstPass(tools, parsed)
		if rounds > 0 {
			system = s.prompts.followUp(tools)
		}
		completion, err := s.llm.Complete(ctx, driven.ChatRequest{Messages: withSystem(system, history), Tools: tools})
		if err != nil {
			return nil, fmt.Errorf("model gateway: %w", err)
		}
		calls := append([]domain.ToolCall(nil), completion.Message.ToolCalls...)
		if len(calls) == 0 {
			break
		}

		rounds++
		log.Info("loop state", "state", domain.LoopExecutingTools, "round", rounds, "tool_calls", len(calls))
		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = "call_" + uuid.New().String()
			}
		}
		assistant := domain.Message{Role: domain.RoleAssistant, Content: completion.Message.Content, ToolCalls: calls}
		history = append(history, assistant)

		roundResults := s.executeTools(ctx, user, calls)
		toolMsgs := make([]domain.Message, len(roundResults))
		for i, r := range roundResults {
			toolMsgs[i] = domain.Message{Role: domain.RoleTool, ToolCallID: r.Call.ID, Content: r.Result.ToolContent()}
		}
		history = append(history, toolMsgs...)
		results = append(results, roundResults...)
		s.persist(ctx, convID, append([]domain.Message{assistant}, toolMsgs...)...)
	}

	final := s.prompts.firstPass(tools, parsed)
	if rounds > 0 {
		final = s.prompts.finalPass(tools)
	}

	log.Debug("loop state", "state", domain.LoopStreaming, "rounds", rounds)
	stream, err := s.llm.Stream(ctx, driven.ChatRequest{Messages: withSystem(final, history)})
	if err != nil {
		return nil, fmt.Errorf("model gateway stream: %w", err)
	}

	return &chatReply{
		svc:            s,
		ctx:            ctx,
		stream:         stream,
		done:           done,
		conversationID: convID,
		results:        results,
	}, nil
}

func withSystem(system string, turns []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(turns)+1)
	out = append(out, domain.Message{Role: domain.RoleSystem, Content: system})
	return append(out, turns...)
}

// executeTools runs one round. results[i] always belongs to calls[i].
func (s *ConversationService) executeTools(ctx context.Context, user domain.UserContext, calls []domain.ToolCall) []domain.ToolResult {
	results := make([]domain.ToolResult, len(calls))
	run := func(ctx context.Context, i int) {
		res := s.tools.Dispatch(ctx, user, calls[i])
		if res == nil {
			res = domain.Fail(fmt.Errorf("tool %s returned no result", calls[i].Name))
		}
		results[i] = domain.ToolResult{Call: calls[i], Result: res}
	}

	if !s.parallelTools || len(calls) < 2 {
		for i := range calls {
			run(ctx, i)
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelTools)
	for i := range calls {
		g.Go(func() error {
			run(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// History returns stored messages of a conversation owned by userID.
func (s *ConversationService) History(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	conv, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return s.store.Messages(ctx, conversationID)
}

func (s *ConversationService) openConversation(ctx context.Context, userID string, req driving.ChatRequest) (string, error) {
	if s.store == nil || userID == "" {
		return "", nil
	}
	if req.ConversationID != "" {
		conv, err := s.store.Get(ctx, req.ConversationID)
		if err != nil {
			return "", err
		}
		if conv.UserID != userID {
			return "", domain.ErrNotFound
		}
		return conv.ID, nil
	}

	now := s.prompts.now()
	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     conversationTitle(domain.LastUserMessage(req.Messages)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, conv); err != nil {
		// History is for display only; the turn proceeds without it.
		s.logger.Warn("create conversation", "user_id", userID, "error", err)
		return "", nil
	}
	return conv.ID, nil
}

func (s *ConversationService) persist(ctx context.Context, convID string, msgs ...domain.Message) {
	if s.store == nil || convID == "" || len(msgs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	now := s.prompts.now()
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.New().String()
		}
		msgs[i].CreatedAt = now
	}
	if err := s.store.AppendMessages(ctx, convID, msgs); err != nil {
		s.logger.Warn("persist messages", "conversation_id", convID, "error", err)
	}
}

func validateMessages(msgs []domain.Message) error {
	if len(msgs) == 0 {
		return fmt.Errorf("%w: messages are required", domain.ErrInvalidInput)
	}
	for i, m := range msgs {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %d has invalid role %q", domain.ErrInvalidInput, i, m.Role)
		}
	}
	if domain.LastUserMessage(msgs) == "" {
		return fmt.Errorf("%w: a user message is required", domain.ErrInvalidInput)
	}
	return nil
}

func conversationTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:77]) + "..."
	}
	return text
}

// chatReply relays the final stream and persists the assistant text.
type chatReply struct {
	svc            *ConversationService
	ctx            context.Context
	stream         driven.ChatStream
	done           func()
	conversationID string
	results        []domain.ToolResult
	closeOnce      sync.Once
}

func (r *chatReply) ConversationID() string { return r.conversationID }

func (r *chatReply) ToolResults() []domain.ToolResult { return r.results }

func (r *chatReply) Relay(emit func(raw []byte) error) error {
	var text strings.Builder
	defer func() {
		if text.Len() > 0 {
			r.svc.persist(r.ctx, r.conversationID, domain.Message{Role: domain.RoleAssistant, Content: text.String()})
		}
	}()

	for {
		ev, err := r.stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if r.ctx.Err() != nil {
				return fmt.Errorf("chat cancelled: %w", r.ctx.Err())
			}
			return fmt.Errorf("read stream: %w", err)
		}
		text.WriteString(ev.Delta)
		if err := emit(ev.Raw); err != nil {
			return err
		}
		if ev.Done {
			return nil
		}
	}
}

func (r *chatReply) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.stream.Close()
		r.done()
	})
	return err
}
