package service

import (
	"context"
	"errors"
	"strings"

	"support-desk/internal/domain"
	"support-desk/internal/idgen"
	"support-desk/internal/repository"
)

var ErrMessageServiceNotConfigured = errors.New("message service not configured")

// Viewer describe a quien consulta la cola de mensajes.
type Viewer struct {
	Identity *domain.Identity
	Admin    bool
}

func (v Viewer) Authenticated() bool {
	return v.Identity != nil && v.Identity.UserID != 0
}

// MessageService encapsula la lógica para manejar mensajes de soporte.
type MessageService struct {
	repo         repository.MessageRepository
	ids          *idgen.Generator
	requireAdmin bool
}

// NewMessageService crea el servicio. Con requireAdmin, listar sin sesión y responder
// exigen la credencial de administrador.
func NewMessageService(repo repository.MessageRepository, ids *idgen.Generator, requireAdmin bool) *MessageService {
	if ids == nil {
		ids = idgen.New()
	}
	return &MessageService{repo: repo, ids: ids, requireAdmin: requireAdmin}
}

func (s *MessageService) Submit(ctx context.Context, identity domain.Identity, text string) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrMessageServiceNotConfigured
	}
	if identity.UserID == 0 {
		return domain.Message{}, ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, ErrInvalidInput
	}

	msg := domain.Message{
		ID:          s.ids.Next(),
		UserID:      identity.UserID,
		Username:    identity.Username,
		UserMessage: text,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return domain.Message{}, persistenceError("create message", err)
	}
	return msg, nil
}

// ListVisible devuelve los mensajes propios de un usuario autenticado. El administrador
// ve la cola completa; sin sesión, también, salvo que el servicio exija administrador.
func (s *MessageService) ListVisible(ctx context.Context, viewer Viewer) ([]domain.Message, error) {
	if s == nil || s.repo == nil {
		return nil, ErrMessageServiceNotConfigured
	}

	var (
		messages []domain.Message
		err      error
	)
	switch {
	case viewer.Admin:
		messages, err = s.repo.List(ctx)
	case viewer.Authenticated():
		messages, err = s.repo.ListByUserID(ctx, viewer.Identity.UserID)
	case s.requireAdmin:
		return nil, ErrUnauthenticated
	default:
		messages, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, persistenceError("list messages", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// Reply sobrescribe la respuesta del mensaje id.
func (s *MessageService) Reply(ctx context.Context, viewer Viewer, id int64, text string) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrMessageServiceNotConfigured
	}
	if s.requireAdmin && !viewer.Admin {
		return domain.Message{}, ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, ErrInvalidInput
	}
	if id <= 0 {
		return domain.Message{}, ErrMessageNotFound
	}

	msg, err := s.repo.SetReply(ctx, id, text)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Message{}, ErrMessageNotFound
		}
		return domain.Message{}, persistenceError("reply message", err)
	}
	return msg, nil
}
