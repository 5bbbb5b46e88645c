package domain

import (
	"context"
	"time"
)

// User representa uma conta do sistema.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRole é um tipo string para representar o papel do usuário no sistema.
// Ordem de privilégio: viewer < manager < admin.
type UserRole string

const (
	RoleViewer  UserRole = "viewer"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

// Valid informa se a role pertence ao conjunto fechado.
func (r UserRole) Valid() bool {
	switch r {
	case RoleViewer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManageLeads informa se a role pode criar e editar leads.
// Excluir é mais restrito: somente admin.
func (r UserRole) CanManageLeads() bool {
	return r == RoleManager || r == RoleAdmin
}

// UserRegistration representa o payload de auto-registro. O registro é
// desabilitado na camada de dados: apenas um admin cria contas.
type UserRegistration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// UserCreate representa o payload de criação de conta por um admin.
// Password vazio gera uma senha temporária, devolvida uma única vez.
type UserCreate struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
	Password string   `json:"password,omitempty"`
}

// LoginResult agrupa a identidade autenticada e o token de acesso.
type LoginResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// UserRepository define o contrato de persistência do diretório de contas.
type UserRepository interface {
	FindAll(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Save(ctx context.Context, user User) (User, error)
	UpdateRole(ctx context.Context, id string, role UserRole) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role UserRole) (int, error)
}

// UserService define o contrato de lógica de negócio do diretório.
type UserService interface {
	Login(ctx context.Context, email string, password string) (LoginResult, error)
	Logout(ctx context.Context, userID string) error
	CurrentUser(ctx context.Context, userID string) (User, error)
	Register(ctx context.Context, registration UserRegistration) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, input UserCreate) (User, string, error)
	UpdateUserRole(ctx context.Context, id string, role UserRole) error
	ResetPassword(ctx context.Context, id string) (string, error)
	DeleteUser(ctx context.Context, id string, requesterID string) error
}
