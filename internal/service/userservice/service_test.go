package userservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"microleads/internal/domain"
	apperror "microleads/internal/errors"
	"microleads/internal/pkg/logger"
	"microleads/internal/pkg/password"
	"microleads/internal/pkg/token"
	"microleads/internal/service/userservice"
)

// MockUserRepository é uma implementação mock da interface UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id string, role domain.UserRole) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role domain.UserRole) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}

// MockSessionStore é uma implementação mock da interface SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Save(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockSessionStore) Load(ctx context.Context, userID string) (domain.User, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.User), args.Bool(1), args.Error(2)
}

func (m *MockSessionStore) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// newTestService monta o serviço com repo e sessão mockados e um serviço de
// tokens real de teste.
func newTestService(repo *MockUserRepository, sessions *MockSessionStore) *userservice.UserService {
	tokenSvc := token.NewService("segredo-de-teste", time.Hour)
	return userservice.NewService(repo, tokenSvc, sessions, logger.NewLogger("debug"))
}

// TestLogin_Sucesso testa o login normal contra o diretório.
func TestLogin_Sucesso(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	user := domain.User{
		ID:           "user-1",
		Email:        "maria@empresa.com",
		Name:         "Maria",
		PasswordHash: password.Hash("senha1"),
		Role:         domain.RoleManager,
	}
	mockRepo.On("FindByEmail", mock.Anything, "maria@empresa.com").Return(user, nil)
	mockSessions.On("Save", mock.Anything, user).Return(nil)

	result, err := svc.Login(context.Background(), "maria@empresa.com", "senha1")

	assert.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)
	assert.NotEmpty(t, result.Token)
	mockRepo.AssertExpectations(t)
	mockSessions.AssertExpectations(t)
}

// TestLogin_SenhaErrada testa o 401 genérico para senha incorreta.
func TestLogin_SenhaErrada(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	user := domain.User{ID: "user-1", Email: "maria@empresa.com", PasswordHash: password.Hash("senha1")}
	mockRepo.On("FindByEmail", mock.Anything, "maria@empresa.com").Return(user, nil)

	_, err := svc.Login(context.Background(), "maria@empresa.com", "errada9")

	var uErr *apperror.UnauthorizedError
	assert.ErrorAs(t, err, &uErr)
	mockSessions.AssertNotCalled(t, "Save")
}

// TestLogin_EmailDesconhecido testa que "não encontrado" vira 401, não 404.
func TestLogin_EmailDesconhecido(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByEmail", mock.Anything, "ninguem@empresa.com").
		Return(domain.User{}, apperror.NewNotFoundError("usuário"))

	_, err := svc.Login(context.Background(), "ninguem@empresa.com", "senha1")

	var uErr *apperror.UnauthorizedError
	assert.ErrorAs(t, err, &uErr)
}

// TestLogin_FallbackAdmin_BancoInacessivel testa a credencial administrativa
// de emergência: aceita exatamente admin@leads.com/admin123 quando a
// consulta ao diretório falha por indisponibilidade.
func TestLogin_FallbackAdmin_BancoInacessivel(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByEmail", mock.Anything, mock.Anything).
		Return(domain.User{}, errors.New("dial tcp: connection refused"))
	mockSessions.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Login(context.Background(), "admin@leads.com", "admin123")

	assert.NoError(t, err)
	assert.Equal(t, "fallback-admin", result.User.ID)
	assert.Equal(t, domain.RoleAdmin, result.User.Role)
	assert.NotEmpty(t, result.Token)
}

// TestLogin_FallbackAdmin_SomenteCredencialExata testa que qualquer outra
// credencial continua falhando com o banco inacessível.
func TestLogin_FallbackAdmin_SomenteCredencialExata(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	dbErr := errors.New("dial tcp: connection refused")
	mockRepo.On("FindByEmail", mock.Anything, mock.Anything).Return(domain.User{}, dbErr)

	// Senha errada para o e-mail de emergência.
	_, err := svc.Login(context.Background(), "admin@leads.com", "outra1")
	assert.Error(t, err)

	// Usuário comum, mesmo com senha plausível.
	_, err = svc.Login(context.Background(), "maria@empresa.com", "senha1")
	assert.Error(t, err)

	mockSessions.AssertNotCalled(t, "Save")
}

// TestLogin_FallbackAdmin_EmailCaseInsensitive testa a comparação do e-mail
// de emergência sem distinção de maiúsculas.
func TestLogin_FallbackAdmin_EmailCaseInsensitive(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByEmail", mock.Anything, mock.Anything).
		Return(domain.User{}, errors.New("timeout"))
	mockSessions.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Login(context.Background(), "Admin@Leads.com", "admin123")

	assert.NoError(t, err)
	assert.Equal(t, "fallback-admin", result.User.ID)
}

// TestLogin_CamposVazios testa a rejeição antes de tocar o diretório.
func TestLogin_CamposVazios(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	_, err := svc.Login(context.Background(), "", "senha1")
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), "maria@empresa.com", "")
	assert.Error(t, err)

	mockRepo.AssertNotCalled(t, "FindByEmail")
}

// TestRegister_SempreRejeitado testa que o auto-registro é desabilitado.
func TestRegister_SempreRejeitado(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	_, err := svc.Register(context.Background(), domain.UserRegistration{
		Email:    "novo@empresa.com",
		Password: "senha1",
		Name:     "Novo",
	})

	var fErr *apperror.ForbiddenError
	assert.ErrorAs(t, err, &fErr)
	mockRepo.AssertNotCalled(t, "Save")
}

// TestCreateUser_SenhaTemporaria testa a criação por admin sem senha: a
// temporária é devolvida em texto puro uma única vez.
func TestCreateUser_SenhaTemporaria(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByEmail", mock.Anything, "novo@empresa.com").
		Return(domain.User{}, apperror.NewNotFoundError("usuário"))
	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == "novo@empresa.com" && u.Role == domain.RoleViewer && u.PasswordHash != ""
	})).Return(domain.User{ID: "user-9", Email: "novo@empresa.com", Role: domain.RoleViewer}, nil)

	user, plaintext, err := svc.CreateUser(context.Background(), domain.UserCreate{
		Email: "novo@empresa.com",
		Name:  "Novo Usuário",
	})

	assert.NoError(t, err)
	assert.Equal(t, "user-9", user.ID)
	assert.Len(t, plaintext, 8)

	// A senha devolvida verifica contra o hash gravado.
	savedHash := mockRepo.Calls[1].Arguments.Get(1).(domain.User).PasswordHash
	assert.True(t, password.Verify(plaintext, savedHash))
	mockRepo.AssertExpectations(t)
}

// TestCreateUser_EmailDuplicado testa o conflito antes de qualquer escrita.
func TestCreateUser_EmailDuplicado(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByEmail", mock.Anything, "maria@empresa.com").
		Return(domain.User{ID: "user-1", Email: "maria@empresa.com"}, nil)

	_, _, err := svc.CreateUser(context.Background(), domain.UserCreate{
		Email: "maria@empresa.com",
		Name:  "Maria",
	})

	var cErr *apperror.ConflictError
	assert.ErrorAs(t, err, &cErr)
	mockRepo.AssertNotCalled(t, "Save")
}

// TestCreateUser_Validacao testa e-mail, nome, role e força da senha.
func TestCreateUser_Validacao(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	var vErr *apperror.ValidationError

	_, _, err := svc.CreateUser(context.Background(), domain.UserCreate{Email: "invalido", Name: "X"})
	assert.ErrorAs(t, err, &vErr)

	_, _, err = svc.CreateUser(context.Background(), domain.UserCreate{Email: "a@b.com", Name: ""})
	assert.ErrorAs(t, err, &vErr)

	_, _, err = svc.CreateUser(context.Background(), domain.UserCreate{Email: "a@b.com", Name: "X", Role: "chefe"})
	assert.ErrorAs(t, err, &vErr)

	// Senha fornecida mas fraca.
	mockRepo.On("FindByEmail", mock.Anything, "a@b.com").
		Return(domain.User{}, apperror.NewNotFoundError("usuário"))
	_, _, err = svc.CreateUser(context.Background(), domain.UserCreate{Email: "a@b.com", Name: "X", Password: "123"})
	assert.ErrorAs(t, err, &vErr)

	mockRepo.AssertNotCalled(t, "Save")
}

// TestUpdateUserRole_UltimoAdmin testa a recusa de rebaixar o último admin,
// antes de qualquer escrita.
func TestUpdateUserRole_UltimoAdmin(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByID", mock.Anything, "admin-1").
		Return(domain.User{ID: "admin-1", Role: domain.RoleAdmin}, nil)
	mockRepo.On("CountByRole", mock.Anything, domain.RoleAdmin).Return(1, nil)

	err := svc.UpdateUserRole(context.Background(), "admin-1", domain.RoleViewer)

	var cErr *apperror.ConflictError
	assert.ErrorAs(t, err, &cErr)
	mockRepo.AssertNotCalled(t, "UpdateRole")
}

// TestUpdateUserRole_ComOutroAdmin testa que o rebaixamento passa quando há
// mais de um admin.
func TestUpdateUserRole_ComOutroAdmin(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByID", mock.Anything, "admin-1").
		Return(domain.User{ID: "admin-1", Role: domain.RoleAdmin}, nil)
	mockRepo.On("CountByRole", mock.Anything, domain.RoleAdmin).Return(2, nil)
	mockRepo.On("UpdateRole", mock.Anything, "admin-1", domain.RoleManager).Return(nil)

	assert.NoError(t, svc.UpdateUserRole(context.Background(), "admin-1", domain.RoleManager))
	mockRepo.AssertExpectations(t)
}

// TestUpdateUserRole_PromocaoNaoConsultaContagem testa que promover (ou
// manter admin) não dispara a contagem de admins.
func TestUpdateUserRole_PromocaoNaoConsultaContagem(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByID", mock.Anything, "user-1").
		Return(domain.User{ID: "user-1", Role: domain.RoleViewer}, nil)
	mockRepo.On("UpdateRole", mock.Anything, "user-1", domain.RoleAdmin).Return(nil)

	assert.NoError(t, svc.UpdateUserRole(context.Background(), "user-1", domain.RoleAdmin))
	mockRepo.AssertNotCalled(t, "CountByRole")
}

// TestResetPassword testa a nova senha temporária devolvida em texto puro.
func TestResetPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByID", mock.Anything, "user-1").
		Return(domain.User{ID: "user-1"}, nil)
	mockRepo.On("UpdatePasswordHash", mock.Anything, "user-1", mock.AnythingOfType("string")).Return(nil)

	plaintext, err := svc.ResetPassword(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.Len(t, plaintext, 8)

	savedHash := mockRepo.Calls[1].Arguments.String(2)
	assert.True(t, password.Verify(plaintext, savedHash))
}

// TestDeleteUser_PropriaConta testa que uma sessão nunca exclui a si mesma.
func TestDeleteUser_PropriaConta(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	err := svc.DeleteUser(context.Background(), "user-1", "user-1")

	var cErr *apperror.ConflictError
	assert.ErrorAs(t, err, &cErr)
	mockRepo.AssertNotCalled(t, "Delete")
}

// TestDeleteUser_UltimoAdmin testa a recusa de excluir o último admin.
func TestDeleteUser_UltimoAdmin(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByID", mock.Anything, "admin-1").
		Return(domain.User{ID: "admin-1", Role: domain.RoleAdmin}, nil)
	mockRepo.On("CountByRole", mock.Anything, domain.RoleAdmin).Return(1, nil)

	err := svc.DeleteUser(context.Background(), "admin-1", "admin-2")

	var cErr *apperror.ConflictError
	assert.ErrorAs(t, err, &cErr)
	mockRepo.AssertNotCalled(t, "Delete")
}

// TestDeleteUser_Sucesso testa a exclusão de uma conta comum.
func TestDeleteUser_Sucesso(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockRepo.On("FindByID", mock.Anything, "user-2").
		Return(domain.User{ID: "user-2", Role: domain.RoleViewer}, nil)
	mockRepo.On("Delete", mock.Anything, "user-2").Return(nil)

	assert.NoError(t, svc.DeleteUser(context.Background(), "user-2", "admin-1"))
	mockRepo.AssertExpectations(t)
}

// TestCurrentUser testa a restauração da sessão persistida.
func TestCurrentUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	user := domain.User{ID: "user-1", Email: "maria@empresa.com", Role: domain.RoleManager}
	mockSessions.On("Load", mock.Anything, "user-1").Return(user, true, nil)

	got, err := svc.CurrentUser(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, user, got)
}

// TestCurrentUser_SessaoExpirada testa o 401 sem sessão gravada.
func TestCurrentUser_SessaoExpirada(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockSessions := new(MockSessionStore)
	svc := newTestService(mockRepo, mockSessions)

	mockSessions.On("Load", mock.Anything, "user-1").Return(domain.User{}, false, nil)

	_, err := svc.CurrentUser(context.Background(), "user-1")

	var uErr *apperror.UnauthorizedError
	assert.ErrorAs(t, err, &uErr)
}
