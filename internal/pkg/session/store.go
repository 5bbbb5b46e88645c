package session

import (
	"context"
	"encoding/json"
	"time"

	"microleads/internal/domain"
	"microleads/internal/pkg/cache"
)

// sessionKeyPrefix é a chave fixa sob a qual a identidade autenticada fica
// persistida, uma entrada por usuário, serializada em JSON.
const sessionKeyPrefix = "currentUser:"

// Store guarda a identidade da sessão em Redis para que ela seja restaurada
// entre recargas do cliente sem reconsultar o diretório. Não há expiração
// imposta pela camada de aplicação além do TTL configurado.
type Store struct {
	cache cache.Client
	ttl   time.Duration
}

// NewStore cria um novo Store de sessões.
func NewStore(cacheClient cache.Client, ttl time.Duration) *Store {
	return &Store{
		cache: cacheClient,
		ttl:   ttl,
	}
}

// Save persiste a identidade do usuário autenticado.
func (s *Store) Save(ctx context.Context, user domain.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, sessionKeyPrefix+user.ID, string(payload), s.ttl)
}

// Load restaura a identidade persistida. O segundo retorno informa se havia
// sessão gravada.
func (s *Store) Load(ctx context.Context, userID string) (domain.User, bool, error) {
	raw, err := s.cache.Get(ctx, sessionKeyPrefix+userID)
	if err == cache.ErrCacheMiss {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

// Clear remove a sessão persistida (logout).
func (s *Store) Clear(ctx context.Context, userID string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+userID)
}
