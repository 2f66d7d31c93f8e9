package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/chat"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// ChatService answers questions about standards with a language model,
// remembering each conversation for a while.
type ChatService struct {
	base
	history   chat.History
	assistant chat.Assistant
	ids       *chat.SessionIDs
	maxTurns  int
}

// ChatDependencies bundles the chat collaborators. A nil Assistant disables chat.
type ChatDependencies struct {
	Dependencies
	History    chat.History
	Assistant  chat.Assistant
	SessionIDs *chat.SessionIDs
	MaxTurns   int
}

// ChatInput is one user message. SessionID and Iso are optional.
type ChatInput struct {
	SessionID string
	Message   string
	Iso       string
}

// ChatReply is the assistant's answer and the session to continue with.
type ChatReply struct {
	Response  string
	SessionID string
	Iso       string
}

func NewChatService(deps ChatDependencies) *ChatService {
	return &ChatService{
		base:      newBase(deps.Dependencies),
		history:   deps.History,
		assistant: deps.Assistant,
		ids:       deps.SessionIDs,
		maxTurns:  deps.MaxTurns,
	}
}

// Enabled reports whether a language model is configured.
func (s *ChatService) Enabled() bool {
	return s.assistant != nil && s.history != nil && s.ids != nil
}

func (s *ChatService) Ask(ctx context.Context, userID string, input ChatInput) (*ChatReply, error) {
	if !s.Enabled() {
		return nil, apperrors.NewUnavailable("chat assistant is not configured")
	}
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	message := trimmed(input.Message)
	if message == "" {
		return nil, apperrors.NewBadRequest("message is required")
	}

	sessionID := trimmed(input.SessionID)
	session := chat.Session{OwnerID: userID}
	if sessionID == "" {
		sessionID = s.ids.New()
	} else {
		loaded, found, err := s.history.Load(ctx, sessionID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if found {
			if loaded.OwnerID != userID {
				return nil, apperrors.NewForbidden("chat session belongs to another user")
			}
			session = loaded
		}
	}

	iso := trimmed(input.Iso)
	switch {
	case iso == "":
		iso = session.Iso
	case session.Iso != "" && session.Iso != iso:
		return nil, apperrors.NewBadRequest("a session is bound to one ISO standard, start a new session to change it")
	}
	session.Iso = iso

	content := message
	if iso != "" {
		content = "[Regarding ISO " + iso + "] " + message
	}
	turns := make([]chat.Turn, 0, len(session.Turns)+2)
	turns = append(turns, chat.Turn{Role: chat.RoleSystem, Content: chat.SystemPrompt})
	turns = append(turns, session.Turns...)
	turns = append(turns, chat.Turn{Role: chat.RoleUser, Content: content})

	answer, err := s.assistant.Complete(ctx, turns)
	if err != nil {
		s.logger.Error("chat completion failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, apperrors.NewUnavailable("chat assistant is unavailable")
	}

	session.Turns = append(session.Turns,
		chat.Turn{Role: chat.RoleUser, Content: content},
		chat.Turn{Role: chat.RoleAssistant, Content: answer})
	session.Trim(s.maxTurns)
	if err := s.history.Save(ctx, sessionID, session); err != nil {
		s.logger.Warn("failed to save chat history", zap.String("session_id", sessionID), zap.Error(err))
	}
	return &ChatReply{Response: answer, SessionID: sessionID, Iso: iso}, nil
}
