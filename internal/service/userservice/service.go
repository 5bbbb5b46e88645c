package userservice

import (
	"context"
	"errors"
	"strings"

	"microleads/internal/domain"
	apperror "microleads/internal/errors"
	"microleads/internal/pkg/logger"
	"microleads/internal/pkg/middleware"
	"microleads/internal/pkg/password"
	"microleads/internal/pkg/token"
)

// Credencial administrativa de emergência: aceita apenas quando o banco
// está inacessível, para que a ferramenta continue utilizável durante
// indisponibilidade ou má configuração. É um atalho deliberado e visível
// (logado em WARN a cada uso), não um caminho normal de autenticação.
// TODO: substituir por um mecanismo de recuperação fora de banda antes de
// expor esta API fora da rede interna.
const (
	fallbackAdminEmail    = "admin@leads.com"
	fallbackAdminPassword = "admin123"
	fallbackAdminID       = "fallback-admin"
	fallbackAdminName     = "Admin User"
)

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(userID, email, name, role string) (string, error)
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// SessionStore é o contrato da persistência de sessão (internal/pkg/session).
type SessionStore interface {
	Save(ctx context.Context, user domain.User) error
	Load(ctx context.Context, userID string) (domain.User, bool, error)
	Clear(ctx context.Context, userID string) error
}

// UserService define o serviço de lógica de negócio do diretório de contas.
type UserService struct {
	UserRepo domain.UserRepository
	TokenSvc TokenService
	Sessions SessionStore
	logger   logger.Logger
}

// NewService cria uma nova instância do UserService, injetando as dependências.
func NewService(repo domain.UserRepository, tokenSvc TokenService, sessions SessionStore, log logger.Logger) *UserService {
	return &UserService{
		UserRepo: repo,
		TokenSvc: tokenSvc,
		Sessions: sessions,
		logger:   log,
	}
}

// Login resolve o par email/senha para uma identidade, emite o token e
// persiste a sessão. Com o banco inacessível, aceita exclusivamente a
// credencial administrativa de emergência.
func (s *UserService) Login(ctx context.Context, email string, pass string) (domain.LoginResult, error) {
	if email == "" || pass == "" {
		return domain.LoginResult{}, apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			// 404 vira 401 para não dar dicas a invasores.
			middleware.RecordLoginAttempt("failure")
			return domain.LoginResult{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
		}

		// Banco inacessível: só a credencial de emergência passa.
		if strings.EqualFold(email, fallbackAdminEmail) && pass == fallbackAdminPassword {
			s.logger.Warn("Diretório inacessível. Login aceito pela credencial administrativa de emergência.",
				map[string]interface{}{"email": email})
			middleware.RecordLoginAttempt("fallback")
			return s.issueSession(ctx, domain.User{
				ID:    fallbackAdminID,
				Email: fallbackAdminEmail,
				Name:  fallbackAdminName,
				Role:  domain.RoleAdmin,
			})
		}

		middleware.RecordLoginAttempt("failure")
		return domain.LoginResult{}, err
	}

	if !password.Verify(pass, user.PasswordHash) {
		middleware.RecordLoginAttempt("failure")
		return domain.LoginResult{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	middleware.RecordLoginAttempt("success")
	return s.issueSession(ctx, user)
}

// issueSession gera o JWT e grava a identidade na sessão persistida.
func (s *UserService) issueSession(ctx context.Context, user domain.User) (domain.LoginResult, error) {
	tokenString, err := s.TokenSvc.GenerateToken(user.ID, user.Email, user.Name, string(user.Role))
	if err != nil {
		return domain.LoginResult{}, apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	// Sessão é conveniência de restauração: falha aqui não bloqueia o login.
	if err := s.Sessions.Save(ctx, user); err != nil {
		s.logger.Error("Falha ao persistir sessão.", err)
	}

	return domain.LoginResult{User: user, Token: tokenString}, nil
}

// Logout descarta a sessão persistida.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.Sessions.Clear(ctx, userID); err != nil {
		s.logger.Error("Falha ao limpar sessão.", err)
		return apperror.NewInternalError("Falha ao encerrar a sessão.", err)
	}
	return nil
}

// CurrentUser restaura a identidade persistida sem reconsultar o diretório.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (domain.User, error) {
	user, found, err := s.Sessions.Load(ctx, userID)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("Falha ao restaurar a sessão.", err)
	}
	if !found {
		return domain.User{}, apperror.NewUnauthorizedError("Sessão não encontrada ou expirada.")
	}
	return user, nil
}

// Register sempre falha: o auto-registro é desabilitado na camada de dados,
// mesmo onde um formulário de registro exista no cliente. Somente um admin
// cria contas (CreateUser).
func (s *UserService) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	s.logger.Info("Tentativa de auto-registro rejeitada.",
		map[string]interface{}{"email": registration.Email})
	return domain.User{}, apperror.NewForbiddenError("O auto-registro está desabilitado. Solicite uma conta a um administrador.")
}

// ListUsers lista todas as contas, mais recentes primeiro.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.UserRepo.FindAll(ctx)
}

// CreateUser cria uma conta (ação de admin). Rejeita e-mail duplicado (sem
// distinção de maiúsculas), gera senha temporária quando nenhuma é
// fornecida e devolve a senha em texto puro uma única vez, para
// distribuição manual. Ela nunca é recuperável depois.
func (s *UserService) CreateUser(ctx context.Context, input domain.UserCreate) (domain.User, string, error) {
	if !password.IsValidEmail(input.Email) {
		return domain.User{}, "", apperror.NewValidationError("Email inválido.")
	}
	if input.Name == "" {
		return domain.User{}, "", apperror.NewValidationError("O nome é obrigatório.")
	}
	if input.Role == "" {
		input.Role = domain.RoleViewer
	}
	if !input.Role.Valid() {
		return domain.User{}, "", apperror.NewValidationError("Role desconhecida.")
	}

	// Unicidade de e-mail (case-insensitive) verificada antes do insert.
	if _, err := s.UserRepo.FindByEmail(ctx, input.Email); err == nil {
		return domain.User{}, "", apperror.NewConflictError("O email '" + input.Email + "' já está em uso.")
	} else {
		var notFoundErr *apperror.NotFoundError
		if !errors.As(err, &notFoundErr) {
			return domain.User{}, "", err
		}
	}

	plaintext := input.Password
	if plaintext == "" {
		plaintext = password.GenerateTemporary()
	} else if errs := password.ValidateStrength(plaintext); len(errs) > 0 {
		return domain.User{}, "", apperror.NewValidationError(strings.Join(errs, "; "))
	}

	user, err := s.UserRepo.Save(ctx, domain.User{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: password.Hash(plaintext),
		Role:         input.Role,
	})
	if err != nil {
		return domain.User{}, "", err
	}

	return user, plaintext, nil
}

// UpdateUserRole altera a role de uma conta, recusando a mudança que
// removeria o último admin do sistema. A verificação acontece antes de
// qualquer escrita.
func (s *UserService) UpdateUserRole(ctx context.Context, id string, role domain.UserRole) error {
	if !role.Valid() {
		return apperror.NewValidationError("Role desconhecida.")
	}

	current, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if current.Role == domain.RoleAdmin && role != domain.RoleAdmin {
		admins, err := s.UserRepo.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return apperror.NewConflictError("Não é possível rebaixar o último administrador do sistema.")
		}
	}

	return s.UserRepo.UpdateRole(ctx, id, role)
}

// ResetPassword gera uma nova senha temporária para a conta e devolve o
// texto puro uma única vez.
func (s *UserService) ResetPassword(ctx context.Context, id string) (string, error) {
	if _, err := s.UserRepo.FindByID(ctx, id); err != nil {
		return "", err
	}

	plaintext := password.GenerateTemporary()
	if err := s.UserRepo.UpdatePasswordHash(ctx, id, password.Hash(plaintext)); err != nil {
		return "", err
	}

	return plaintext, nil
}

// DeleteUser remove uma conta (ação de admin). Uma sessão nunca exclui a
// própria conta, e o último admin não pode ser removido.
func (s *UserService) DeleteUser(ctx context.Context, id string, requesterID string) error {
	if id == requesterID {
		return apperror.NewConflictError("Não é possível excluir a própria conta.")
	}

	target, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if target.Role == domain.RoleAdmin {
		admins, err := s.UserRepo.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return apperror.NewConflictError("Não é possível excluir o último administrador do sistema.")
		}
	}

	return s.UserRepo.Delete(ctx, id)
}
