package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	stdlog "log"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"microleads/config"
	"microleads/internal/pkg/cache"
	"microleads/internal/pkg/database"
	"microleads/internal/pkg/logger"
	"microleads/internal/pkg/rowstore"
	"microleads/internal/pkg/session"
	"microleads/internal/pkg/token"

	// Camadas por Injeção de Dependências
	"microleads/internal/api/lead"
	"microleads/internal/api/router"
	"microleads/internal/api/user"
	"microleads/internal/repository/leadrepo"
	"microleads/internal/repository/userrepo"
	"microleads/internal/service/leadservice"
	"microleads/internal/service/userservice"
)

// @title MicroLeads API
// @version 1.0
// @description Gestão de leads sobre tabelas externas, com diretório de contas e roles.
// @BasePath /v1
func main() {
	// 1. Configuração e Inicialização
	stdlog.Println("⚡ Inicializando serviço MicroLeads...")

	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Sem .env as variáveis essenciais podem estar no ambiente do
		// sistema (ex: Docker); avisamos e seguimos.
		stdlog.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig() // Fatal aqui se DATABASE_URL/JWT_SECRET_KEY faltarem
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", map[string]interface{}{
		"tables": cfg.LeadsTables,
	})

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache e Sessão (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	sessionStore := session.NewStore(cacheClient, cfg.SessionTTL)
	log.Info("Conexão Redis estabelecida.", nil)

	// C. Serviço de Tokens (JWT)
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	log.Debug("Serviço de Tokens JWT inicializado.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Row Store -> Repository -> Service -> Handler

	// A. Fronteira com as tabelas externas (formato permissivo)
	store := rowstore.NewPostgresStore(db, cfg.DBTimeout, log)

	// B. Camada de reconciliação de leads
	leadRepo := leadrepo.NewLeadRepository(store, cfg.LeadsTables, log)
	leadSvc := leadservice.NewService(leadRepo, log)
	leadHandler := lead.NewHandler(leadSvc, log)
	log.Debug("Camada de leads inicializada.", nil)

	// C. Diretório de contas
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	userSvc := userservice.NewService(userRepo, tokenSvc, sessionStore, log)
	userHandler := user.NewHandler(userSvc, log)
	log.Debug("Camada de usuários inicializada.", nil)

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(leadHandler, userHandler, tokenSvc, cacheClient, router.Options{
		RateLimitMaxRequests: cfg.RateLimitMaxRequests,
		RateLimitPeriod:      cfg.RateLimitPeriod,
		AllowedOrigins:       cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor MicroLeads ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
