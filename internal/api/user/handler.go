package user

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"microleads/internal/domain"
	apperror "microleads/internal/errors"
	"microleads/internal/pkg/logger"
	"microleads/internal/pkg/middleware"
)

// UserService define o contrato que o Handler consome da camada de serviço.
type UserService interface {
	Login(ctx context.Context, email string, password string) (domain.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	CurrentUser(ctx context.Context, userID string) (domain.User, error)
	Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, input domain.UserCreate) (domain.User, string, error)
	UpdateUserRole(ctx context.Context, id string, role domain.UserRole) error
	ResetPassword(ctx context.Context, id string) (string, error)
	DeleteUser(ctx context.Context, id string, requesterID string) error
}

// LoginRequest representa o payload de entrada para o login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RoleRequest representa o payload de mudança de role.
type RoleRequest struct {
	Role domain.UserRole `json:"role"`
}

// CreatedUserResponse devolve a conta criada e a senha em texto puro,
// exibida uma única vez para distribuição manual.
type CreatedUserResponse struct {
	User     domain.User `json:"user"`
	Password string      `json:"password"`
}

// Handler agrupa todos os métodos de Handler do usuário.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse padroniza o tratamento de erros e respostas HTTP.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			json.NewEncoder(w).Encode(data)
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error("Erro interno no serviço de usuário:", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
	})
}

// LoginUserHandler lida com a requisição POST /v1/login.
// @Summary Autentica um usuário e retorna a identidade com um JWT
// @Description Resolve email/senha (sem distinção de maiúsculas no email) para uma identidade e persiste a sessão.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Credenciais do usuário (email e senha)"
// @Success 200 {object} domain.LoginResult
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /login [post]
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	var loginReq LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		h.handleServiceResponse(w, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return
	}

	result, err := h.Service.Login(r.Context(), loginReq.Email, loginReq.Password)
	h.handleServiceResponse(w, result, err, http.StatusOK)
}

// LogoutUserHandler lida com a requisição POST /v1/logout.
// @Summary Encerra a sessão persistida
// @Tags auth
// @Success 204 "Sessão encerrada"
// @Failure 401 {object} domain.ErrorResponse "Token ausente ou inválido"
// @Router /logout [post]
func (h *Handler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	claims, _ := middleware.GetUserClaimsFromContext(r.Context())
	if err := h.Service.Logout(r.Context(), claims.UserID); err != nil {
		h.handleServiceResponse(w, nil, err, http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionHandler lida com a requisição GET /v1/session.
// @Summary Restaura a identidade da sessão persistida
// @Tags auth
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} domain.ErrorResponse "Sessão não encontrada ou expirada"
// @Router /session [get]
func (h *Handler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	claims, _ := middleware.GetUserClaimsFromContext(r.Context())
	user, err := h.Service.CurrentUser(r.Context(), claims.UserID)
	h.handleServiceResponse(w, user, err, http.StatusOK)
}

// RegisterUserHandler lida com a requisição POST /v1/register.
// @Summary Auto-registro (desabilitado)
// @Description O auto-registro é desabilitado na camada de dados; a rota sempre responde 403.
// @Tags auth
// @Accept json
// @Produce json
// @Param registration body domain.UserRegistration true "Credenciais de registro"
// @Failure 403 {object} domain.ErrorResponse "Registro desabilitado"
// @Router /register [post]
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	var reg domain.UserRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		h.handleServiceResponse(w, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusCreated)
		return
	}

	newUser, err := h.Service.Register(r.Context(), reg)
	h.handleServiceResponse(w, newUser, err, http.StatusCreated)
}

// UsersHandler despacha GET (listar) e POST (criar) em /v1/users.
func (h *Handler) UsersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listUsers(w, r)
	case http.MethodPost:
		h.createUser(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// listUsers lida com a requisição GET /v1/users.
// @Summary Lista todas as contas (admin)
// @Tags users
// @Produce json
// @Success 200 {array} domain.User
// @Failure 403 {object} domain.ErrorResponse "Acesso restrito a admin"
// @Router /users [get]
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	h.handleServiceResponse(w, users, err, http.StatusOK)
}

// createUser lida com a requisição POST /v1/users.
// @Summary Cria uma conta (admin)
// @Description Sem senha no payload, uma senha temporária é gerada; o texto puro é devolvido uma única vez.
// @Tags users
// @Accept json
// @Produce json
// @Param user body domain.UserCreate true "Dados da conta"
// @Success 201 {object} CreatedUserResponse
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Router /users [post]
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var input domain.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.handleServiceResponse(w, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusCreated)
		return
	}

	created, plaintext, err := h.Service.CreateUser(r.Context(), input)
	if err != nil {
		h.handleServiceResponse(w, nil, err, http.StatusCreated)
		return
	}

	h.handleServiceResponse(w, CreatedUserResponse{User: created, Password: plaintext}, nil, http.StatusCreated)
}

// UserByIDHandler despacha as operações sobre /v1/users/{id}:
// PUT {id}/role, POST {id}/password-reset e DELETE {id}.
func (h *Handler) UserByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if rest == "" {
		http.Error(w, "Identificador do usuário ausente", http.StatusNotFound)
		return
	}

	id, action := rest, ""
	if i := strings.Index(rest, "/"); i >= 0 {
		id, action = rest[:i], rest[i+1:]
	}

	switch {
	case r.Method == http.MethodPut && action == "role":
		h.updateRole(w, r, id)
	case r.Method == http.MethodPost && action == "password-reset":
		h.resetPassword(w, r, id)
	case r.Method == http.MethodDelete && action == "":
		h.deleteUser(w, r, id)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// updateRole lida com a requisição PUT /v1/users/{id}/role.
// @Summary Altera a role de uma conta (admin)
// @Description Recusa a mudança que removeria o último administrador, antes de qualquer escrita.
// @Tags users
// @Accept json
// @Param id path string true "Id da conta"
// @Param role body RoleRequest true "Nova role"
// @Success 204 "Role alterada"
// @Failure 409 {object} domain.ErrorResponse "Mudança removeria o último admin"
// @Router /users/{id}/role [put]
func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request, id string) {
	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusNoContent)
		return
	}

	if err := h.Service.UpdateUserRole(r.Context(), id, req.Role); err != nil {
		h.handleServiceResponse(w, nil, err, http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resetPassword lida com a requisição POST /v1/users/{id}/password-reset.
// @Summary Gera uma nova senha temporária (admin)
// @Tags users
// @Produce json
// @Param id path string true "Id da conta"
// @Success 200 {object} map[string]string "Senha temporária em texto puro"
// @Failure 404 {object} domain.ErrorResponse "Conta não encontrada"
// @Router /users/{id}/password-reset [post]
func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request, id string) {
	plaintext, err := h.Service.ResetPassword(r.Context(), id)
	if err != nil {
		h.handleServiceResponse(w, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, map[string]string{"password": plaintext}, nil, http.StatusOK)
}

// deleteUser lida com a requisição DELETE /v1/users/{id}.
// @Summary Exclui uma conta (admin)
// @Description Uma sessão não exclui a própria conta; o último admin não pode ser removido.
// @Tags users
// @Param id path string true "Id da conta"
// @Success 204 "Conta removida"
// @Failure 409 {object} domain.ErrorResponse "Exclusão violaria as regras de conta"
// @Router /users/{id} [delete]
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	claims, _ := middleware.GetUserClaimsFromContext(r.Context())
	if err := h.Service.DeleteUser(r.Context(), id, claims.UserID); err != nil {
		h.handleServiceResponse(w, nil, err, http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
