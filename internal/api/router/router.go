package router

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"microleads/internal/api/lead"
	"microleads/internal/api/user"
	"microleads/internal/domain"
	"microleads/internal/pkg/cache"
	"microleads/internal/pkg/middleware"
)

// Options agrupa os parâmetros de middleware global do roteador.
type Options struct {
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration
	AllowedOrigins       []string
}

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(leadHandler *lead.Handler, userHandler *user.Handler, tokenSvc middleware.TokenService, cacheClient cache.Client, opts Options) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	mux := http.NewServeMux()

	auth := middleware.NewAuthMiddleware(tokenSvc)
	adminOnly := middleware.PermissionMiddleware(domain.RoleAdmin)

	// --- 1. Rotas de infraestrutura ---
	mux.HandleFunc("/ping", PingHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// --- 2. Autenticação (v1) ---
	mux.HandleFunc("/v1/login", userHandler.LoginUserHandler)
	mux.HandleFunc("/v1/register", userHandler.RegisterUserHandler) // sempre 403
	mux.HandleFunc("/v1/logout", auth(userHandler.LogoutUserHandler))
	mux.HandleFunc("/v1/session", auth(userHandler.SessionHandler))

	// --- 3. Leads (v1) ---
	// Listagem aberta a qualquer autenticado. A role exigida varia por
	// método (criar/editar manager|admin, excluir admin), então o gate de
	// permissão fica dentro dos handlers de despacho.
	mux.HandleFunc("/v1/leads", auth(leadHandler.LeadsHandler))
	mux.HandleFunc("/v1/leads/", auth(leadHandler.LeadByIDHandler))

	// --- 4. Diretório de contas (v1, admin) ---
	mux.HandleFunc("/v1/users", auth(adminOnly(userHandler.UsersHandler)))
	mux.HandleFunc("/v1/users/", auth(adminOnly(userHandler.UserByIDHandler)))

	// --- 5. Middlewares globais: métricas, rate limit e CORS ---
	var handler http.Handler = mux
	handler = middleware.Metrics(handler)
	handler = middleware.RateLimiter(cacheClient, opts.RateLimitMaxRequests, opts.RateLimitPeriod)(handler)
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})(handler)

	return handler
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
