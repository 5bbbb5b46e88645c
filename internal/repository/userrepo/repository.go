package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"microleads/internal/domain"
	apperror "microleads/internal/errors"
	"microleads/internal/pkg/logger"
)

// UserRepository implementa a interface domain.UserRepository sobre a
// tabela única de contas.
type UserRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository, injetando o DB.
func NewUserRepository(db *sql.DB, dbTimeout time.Duration, log logger.Logger) *UserRepository {
	return &UserRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

const userColumns = `id, email, name, password_hash, role, created_at, updated_at`

// FindAll lista todas as contas, das mais recentes para as mais antigas.
func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao listar usuários no DB.", err)
		return nil, apperror.NewDBError("failed to list users", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, apperror.NewDBError("failed to scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("failed to iterate users", err)
	}

	return users, nil
}

// FindByID busca uma conta pelo id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user domain.User
	err := scanUser(r.DB.QueryRowContext(ctxTimeout, query, id), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário '%s' não encontrado", id))
		}
		r.logger.Error("Falha ao buscar usuário por id no DB.", err)
		return domain.User{}, apperror.NewDBError("failed to find user by id", err)
	}
	return user, nil
}

// FindByEmail busca uma conta pelo e-mail, sem distinção de maiúsculas:
// o e-mail é a chave de login.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	var user domain.User
	err := scanUser(r.DB.QueryRowContext(ctxTimeout, query, email), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Info("Usuário não encontrado no DB por email.", map[string]interface{}{"email": email})
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado", email))
		}
		r.logger.Error("Falha ao buscar usuário por email no DB.", err)
		return domain.User{}, apperror.NewDBError("failed to find user by email", err)
	}
	return user, nil
}

// Save insere uma nova conta no banco de dados.
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	query := `INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// Violação de unicidade (e-mail duplicado) vira 409.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.User{}, apperror.NewConflictError(
				fmt.Sprintf("O email '%s' já está em uso.", user.Email))
		}
		r.logger.Error("Falha ao inserir usuário no DB.", err)
		return domain.User{}, apperror.NewDBError("failed to insert user", err)
	}

	r.logger.Info("Usuário salvo com sucesso no repositório.",
		map[string]interface{}{"user_id": user.ID, "email": user.Email})
	return user, nil
}

// UpdateRole altera a role da conta. A invariante de "pelo menos um admin"
// é responsabilidade do serviço, antes desta chamada.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.UserRole) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`

	result, err := r.DB.ExecContext(ctxTimeout, query, role, time.Now(), id)
	if err != nil {
		r.logger.Error("Falha ao atualizar role no DB.", err)
		return apperror.NewDBError("failed to update user role", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Usuário '%s' não encontrado", id))
	}
	return nil
}

// UpdatePasswordHash substitui o hash da senha da conta.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	result, err := r.DB.ExecContext(ctxTimeout, query, hash, time.Now(), id)
	if err != nil {
		r.logger.Error("Falha ao atualizar senha no DB.", err)
		return apperror.NewDBError("failed to update user password", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Usuário '%s' não encontrado", id))
	}
	return nil
}

// Delete remove a conta pelo id. Não há limpeza em cascata: referências
// updated_by em leads ficam como valor de exibição pendurado.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao excluir usuário no DB.", err)
		return apperror.NewDBError("failed to delete user", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Usuário '%s' não encontrado", id))
	}
	return nil
}

// CountByRole conta as contas com a role informada.
func (r *UserRepository) CountByRole(ctx context.Context, role domain.UserRole) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var count int
	err := r.DB.QueryRowContext(ctxTimeout, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&count)
	if err != nil {
		r.logger.Error("Falha ao contar usuários por role no DB.", err)
		return 0, apperror.NewDBError("failed to count users by role", err)
	}
	return count, nil
}

// scanner cobre *sql.Row e *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner, user *domain.User) error {
	return s.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
