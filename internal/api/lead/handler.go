package lead

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

// LeadService define o contrato que o Handler consome da camada de serviço.
type LeadService interface {
	ListLeads(ctx context.Context) ([]domain.Lead, error)
	RefreshLeads(ctx context.Context) ([]domain.Lead, error)
	CreateLead(ctx context.Context, lead domain.Lead, updatedBy string) (domain.Lead, error)
	UpdateLead(ctx context.Context, id string, updates domain.LeadUpdate, updatedBy string) (domain.Lead, error)
	DeleteLead(ctx context.Context, id string) error
}

// Handler agrupa todos os métodos de Handler de leads.
type Handler struct {
	Service LeadService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc LeadService, log logger.Logger) *Handler {
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
		h.Logger.Error("Erro interno no serviço de leads:", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
	})
}

// LeadsHandler despacha GET (listar) e POST (criar) em /v1/leads.
// Listar é aberto a qualquer autenticado; criar exige manager ou admin.
func (h *Handler) LeadsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListLeadsHandler(w, r)
	case http.MethodPost:
		middleware.PermissionMiddleware(domain.RoleManager, domain.RoleAdmin)(h.CreateLeadHandler)(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// ListLeadsHandler lida com a requisição GET /v1/leads.
// @Summary Lista a união dos leads de todas as tabelas configuradas
// @Description Devolve a visão em memória; ?refresh=true força a recarga das tabelas externas.
// @Tags leads
// @Produce json
// @Param refresh query bool false "Recarrega as tabelas externas antes de listar"
// @Success 200 {array} domain.Lead
// @Failure 401 {object} domain.ErrorResponse "Token ausente ou inválido"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /leads [get]
func (h *Handler) ListLeadsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		leads []domain.Lead
		err   error
	)
	if r.URL.Query().Get("refresh") == "true" {
		leads, err = h.Service.RefreshLeads(ctx)
	} else {
		leads, err = h.Service.ListLeads(ctx)
	}

	h.handleServiceResponse(w, leads, err, http.StatusOK)
}

// CreateLeadHandler lida com a requisição POST /v1/leads.
// @Summary Cria um novo lead na tabela padrão
// @Description O lead é inserido na primeira tabela configurada; updatedBy vem da sessão autenticada.
// @Tags leads
// @Accept json
// @Produce json
// @Param lead body domain.Lead true "Dados do lead (id e timestamps são ignorados)"
// @Success 201 {object} domain.Lead
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 403 {object} domain.ErrorResponse "Role sem permissão de escrita"
// @Router /leads [post]
func (h *Handler) CreateLeadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var lead domain.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		h.handleServiceResponse(w, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusCreated)
		return
	}

	claims, _ := middleware.GetUserClaimsFromContext(ctx)
	created, err := h.Service.CreateLead(ctx, lead, claims.Email)

	h.handleServiceResponse(w, created, err, http.StatusCreated)
}

// LeadByIDHandler despacha PUT (atualizar) e DELETE (excluir) em
// /v1/leads/{id}. O id é o identificador composto "tabela:id".
// Editar exige manager ou admin; excluir exige admin.
func (h *Handler) LeadByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/leads/")
	if id == "" {
		http.Error(w, "Identificador do lead ausente", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		middleware.PermissionMiddleware(domain.RoleManager, domain.RoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
			h.updateLead(w, r, id)
		})(w, r)
	case http.MethodDelete:
		middleware.PermissionMiddleware(domain.RoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
			h.deleteLead(w, r, id)
		})(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// updateLead lida com a requisição PUT /v1/leads/{id}.
// @Summary Atualiza parcialmente um lead
// @Description Somente os campos presentes no payload são enviados à tabela de origem.
// @Tags leads
// @Accept json
// @Produce json
// @Param id path string true "Identificador composto (tabela:id)"
// @Param updates body domain.LeadUpdate true "Campos a atualizar"
// @Success 200 {object} domain.Lead
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Lead não encontrado"
// @Router /leads/{id} [put]
func (h *Handler) updateLead(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var updates domain.LeadUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.handleServiceResponse(w, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return
	}

	claims, _ := middleware.GetUserClaimsFromContext(ctx)
	updated, err := h.Service.UpdateLead(ctx, id, updates, claims.Email)

	h.handleServiceResponse(w, updated, err, http.StatusOK)
}

// deleteLead lida com a requisição DELETE /v1/leads/{id}.
// @Summary Exclui um lead (admin)
// @Description Tenta a exclusão remota e remove da visão local mesmo em caso de falha remota.
// @Tags leads
// @Param id path string true "Identificador composto (tabela:id)"
// @Success 204 "Lead removido"
// @Failure 401 {object} domain.ErrorResponse "Token ausente ou inválido"
// @Failure 403 {object} domain.ErrorResponse "Exclusão restrita a admin"
// @Router /leads/{id} [delete]
func (h *Handler) deleteLead(w http.ResponseWriter, r *http.Request, id string) {
	err := h.Service.DeleteLead(r.Context(), id)
	if err != nil {
		h.handleServiceResponse(w, nil, err, http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
