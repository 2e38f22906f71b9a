// Package assistant answers finance questions in a chat. The server keeps
// no conversation state: callers send the transcript with every message.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Willizberc/Pexfin/internal/metrics"
	"github.com/Willizberc/Pexfin/internal/validation"
)

const (
	RoleUser  = "user"
	RoleModel = "model"

	persona = "You are Pexfin, a friendly personal finance assistant. " +
		"Answer briefly and concretely. Amounts are in the user's account currency."
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrRateLimited  = errors.New("too many assistant requests")
	ErrEmptyReply   = errors.New("assistant returned no text")
)

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

//go:generate mockgen -source=assistant.go -destination=assistant_mock.go -package=assistant
type Completer interface {
	// Complete returns the model's next turn for the conversation.
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
}

type Statements interface {
	Statement(ctx context.Context, userID uuid.UUID, month time.Time) (string, error)
}

type Service struct {
	completer  Completer
	statements Statements
	log        zerolog.Logger
	now        func() time.Time

	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

type Option func(*Service)

// WithStatements grounds every reply in the user's current month.
func WithStatements(s Statements) Option {
	return func(svc *Service) { svc.statements = s }
}

// WithRate allows perMinute requests per user with the given burst.
func WithRate(perMinute float64, burst int) Option {
	return func(s *Service) {
		s.limit = rate.Limit(perMinute / 60)
		s.burst = burst
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(c Completer, opts ...Option) *Service {
	s := &Service{
		completer: c,
		log:       zerolog.Nop(),
		now:       time.Now,
		limit:     rate.Limit(10.0 / 60),
		burst:     3,
		limiters:  make(map[uuid.UUID]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) limiter(userID uuid.UUID) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[userID]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[userID] = l
	}

	return l
}

// Reply sends the whole transcript plus message to the model and returns the
// transcript extended with both the user's and the model's turn.
func (s *Service) Reply(ctx context.Context, userID uuid.UUID, transcript []Turn, message string) ([]Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	var p validation.Problems

	for i, t := range transcript {
		if t.Role != RoleUser && t.Role != RoleModel {
			p.Add(fmt.Sprintf("transcript[%d].role", i), "must be user or model")
		}
	}

	if err := p.Err(); err != nil {
		return nil, err
	}

	if !s.limiter(userID).AllowN(s.now(), 1) {
		metrics.AssistantRequest("rate_limited")
		return nil, ErrRateLimited
	}

	turns := make([]Turn, 0, len(transcript)+1)
	turns = append(turns, transcript...)
	turns = append(turns, Turn{Role: RoleUser, Text: message})

	text, err := s.completer.Complete(ctx, s.systemPrompt(ctx, userID), turns)
	if err != nil {
		metrics.AssistantRequest("error")
		return nil, fmt.Errorf("completing reply: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		metrics.AssistantRequest("empty")
		return nil, ErrEmptyReply
	}

	metrics.AssistantRequest("ok")

	return append(turns, Turn{Role: RoleModel, Text: text}), nil
}

// systemPrompt degrades to the bare persona when the statement is unavailable.
func (s *Service) systemPrompt(ctx context.Context, userID uuid.UUID) string {
	if s.statements == nil {
		return persona
	}

	stmt, err := s.statements.Statement(ctx, userID, s.now())
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("assistant without statement")
		return persona
	}

	return persona + "\n\nThe user's statement for this month:\n" + stmt
}
