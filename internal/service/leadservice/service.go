package leadservice

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"microleads/internal/domain"
	apperror "microleads/internal/errors"
	"microleads/internal/pkg/logger"
	"microleads/internal/pkg/middleware"
)

// LeadService mantém a visão em memória da lista de leads e aplica a regra
// de fallback otimista: quando uma escrita remota falha, a mutação é
// aplicada à visão local, a condição é logada e nenhum erro sobe ao
// chamador. A visão local pode divergir do banco até o próximo refresh;
// comportamento deliberado desta ferramenta, sinalizado nas métricas.
type LeadService struct {
	LeadRepo domain.LeadRepository
	logger   logger.Logger

	mu     sync.RWMutex
	leads  []domain.Lead
	loaded bool
}

// NewService cria uma nova instância do LeadService.
func NewService(repo domain.LeadRepository, log logger.Logger) *LeadService {
	return &LeadService{
		LeadRepo: repo,
		logger:   log,
	}
}

// ListLeads devolve a visão em memória, carregando-a do banco na primeira
// chamada. Depois disso a visão é mantida pelas próprias mutações.
func (s *LeadService) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	s.mu.RLock()
	if s.loaded {
		snapshot := s.copyLeadsLocked()
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	return s.RefreshLeads(ctx)
}

// RefreshLeads recarrega a união das tabelas externas e substitui a visão
// em memória, resolvendo qualquer divergência acumulada por fallbacks.
func (s *LeadService) RefreshLeads(ctx context.Context) ([]domain.Lead, error) {
	leads, err := s.LeadRepo.FetchAll(ctx)
	if err != nil {
		return nil, apperror.NewInternalError("Falha interna ao buscar leads.", err)
	}

	s.mu.Lock()
	s.leads = leads
	s.loaded = true
	snapshot := s.copyLeadsLocked()
	s.mu.Unlock()

	return snapshot, nil
}

// ensureLoaded carrega a visão antes da primeira mutação, para que as
// mutações sempre operem sobre a união das tabelas e não sobre uma visão
// vazia que esconderia as linhas remotas na listagem seguinte.
func (s *LeadService) ensureLoaded(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}

	leads, err := s.LeadRepo.FetchAll(ctx)
	if err != nil {
		// Visão segue não carregada; o próximo ListLeads tenta de novo.
		s.logger.Warn("Falha ao carregar a visão antes da mutação.",
			map[string]interface{}{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if !s.loaded {
		s.leads = leads
		s.loaded = true
	}
	s.mu.Unlock()
}

// CreateLead valida, grava na tabela padrão e antepõe o novo lead à visão.
// Falha remota não bloqueia: o lead ganha um id local e entra só na visão.
func (s *LeadService) CreateLead(ctx context.Context, lead domain.Lead, updatedBy string) (domain.Lead, error) {
	if lead.Name == "" {
		return domain.Lead{}, apperror.NewValidationError("O nome do lead é obrigatório.")
	}
	if lead.Email == "" {
		return domain.Lead{}, apperror.NewValidationError("O email do lead é obrigatório.")
	}

	if lead.Status == "" {
		lead.Status = domain.StatusNew
	}
	if !lead.Status.Valid() {
		return domain.Lead{}, apperror.NewValidationError("Status de lead desconhecido.")
	}
	if lead.Source == "" {
		lead.Source = domain.SourceFromChannel(lead.Canal)
	}
	if !lead.Source.Valid() {
		return domain.Lead{}, apperror.NewValidationError("Origem de lead desconhecida.")
	}

	now := time.Now()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	lead.UpdatedBy = updatedBy

	s.ensureLoaded(ctx)

	created, err := s.LeadRepo.Create(ctx, lead)
	if err != nil {
		// Fallback otimista: id local, entrada apenas na visão em memória.
		s.logger.Error("Falha remota ao criar lead. Aplicando criação apenas à visão local.", err)
		middleware.RecordLeadWrite("create", "local")

		lead.ID = uuid.NewString()
		s.prepend(lead)
		return lead, nil
	}

	middleware.RecordLeadWrite("create", "remote")
	s.prepend(created)
	return created, nil
}

// UpdateLead aplica a atualização parcial na tabela/linha do ID composto e
// substitui a entrada correspondente da visão. Falha remota não bloqueia:
// a mesma mutação é aplicada à entrada local.
func (s *LeadService) UpdateLead(ctx context.Context, id string, updates domain.LeadUpdate, updatedBy string) (domain.Lead, error) {
	if updates.Empty() {
		return domain.Lead{}, apperror.NewValidationError("Nenhum campo para atualizar.")
	}
	if updates.Status != nil && !updates.Status.Valid() {
		return domain.Lead{}, apperror.NewValidationError("Status de lead desconhecido.")
	}
	if updates.Source != nil && !updates.Source.Valid() {
		return domain.Lead{}, apperror.NewValidationError("Origem de lead desconhecida.")
	}

	s.ensureLoaded(ctx)

	updated, err := s.LeadRepo.Update(ctx, id, updates, updatedBy)
	if err != nil {
		s.logger.Error("Falha remota ao atualizar lead. Aplicando mutação apenas à visão local.", err)
		middleware.RecordLeadWrite("update", "local")

		local, ok := s.applyLocalUpdate(id, updates, updatedBy)
		if !ok {
			return domain.Lead{}, apperror.NewNotFoundError("Lead não encontrado: " + id)
		}
		return local, nil
	}

	middleware.RecordLeadWrite("update", "remote")
	s.replace(updated)
	return updated, nil
}

// DeleteLead tenta a exclusão remota primeiro, mas remove da visão em
// memória mesmo quando a exclusão remota falha. O chamador nunca vê o erro.
func (s *LeadService) DeleteLead(ctx context.Context, id string) error {
	s.ensureLoaded(ctx)

	if err := s.LeadRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Falha remota ao excluir lead. Removendo apenas da visão local.", err)
		middleware.RecordLeadWrite("delete", "local")
	} else {
		middleware.RecordLeadWrite("delete", "remote")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, lead := range s.leads {
		if lead.ID == id {
			s.leads = append(s.leads[:i], s.leads[i+1:]...)
			break
		}
	}
	return nil
}

// --- Manutenção da visão em memória ---

// prepend antepõe o lead à visão. Só RefreshLeads marca a visão como
// carregada: uma mutação nunca faz a listagem esconder as linhas remotas.
func (s *LeadService) prepend(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append([]domain.Lead{lead}, s.leads...)
}

func (s *LeadService) replace(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].ID == lead.ID {
			s.leads[i] = lead
			return
		}
	}
	// Entrada ainda desconhecida da visão: antepõe.
	s.leads = append([]domain.Lead{lead}, s.leads...)
}

// applyLocalUpdate aplica a atualização parcial diretamente à entrada da
// visão, espelhando a tradução que o repositório faria.
func (s *LeadService) applyLocalUpdate(id string, updates domain.LeadUpdate, updatedBy string) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.leads {
		if s.leads[i].ID != id {
			continue
		}

		lead := &s.leads[i]
		if updates.Name != nil {
			lead.Name = *updates.Name
		}
		if updates.Email != nil {
			lead.Email = *updates.Email
		}
		if updates.Phone != nil {
			lead.Phone = *updates.Phone
		}
		if updates.Status != nil {
			lead.Status = *updates.Status
		}
		if updates.Canal != nil {
			lead.Canal = *updates.Canal
			lead.Source = domain.SourceFromChannel(*updates.Canal)
		} else if updates.Source != nil {
			lead.Source = *updates.Source
			lead.Canal = domain.ChannelFromSource(*updates.Source)
		}
		if updates.Notes != nil {
			lead.Notes = *updates.Notes
		}
		if updates.ValorConta != nil {
			v := *updates.ValorConta
			lead.ValorConta = &v
		}
		if updates.CEP != nil {
			lead.CEP = *updates.CEP
		}
		lead.UpdatedAt = time.Now()
		lead.UpdatedBy = updatedBy

		return *lead, true
	}
	return domain.Lead{}, false
}

func (s *LeadService) copyLeadsLocked() []domain.Lead {
	snapshot := make([]domain.Lead, len(s.leads))
	copy(snapshot, s.leads)
	return snapshot
}
