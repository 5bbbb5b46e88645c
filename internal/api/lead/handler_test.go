package lead_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"microleads/internal/api/lead"
	"microleads/internal/domain"
	apperror "microleads/internal/errors"
	"microleads/internal/pkg/logger"
	"microleads/internal/pkg/middleware"
)

// MockLeadService é uma implementação mock da interface LeadService
type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Lead), args.Error(1)
}

func (m *MockLeadService) RefreshLeads(ctx context.Context) ([]domain.Lead, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Lead), args.Error(1)
}

func (m *MockLeadService) CreateLead(ctx context.Context, l domain.Lead, updatedBy string) (domain.Lead, error) {
	args := m.Called(ctx, l, updatedBy)
	return args.Get(0).(domain.Lead), args.Error(1)
}

func (m *MockLeadService) UpdateLead(ctx context.Context, id string, updates domain.LeadUpdate, updatedBy string) (domain.Lead, error) {
	args := m.Called(ctx, id, updates, updatedBy)
	return args.Get(0).(domain.Lead), args.Error(1)
}

func (m *MockLeadService) DeleteLead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// withClaims injeta as claims no contexto, como o middleware de auth faria.
func withClaims(r *http.Request, role domain.UserRole) *http.Request {
	claims := middleware.UserClaims{UserID: "user-1", Email: "maria@empresa.com", Name: "Maria", Role: role}
	return r.WithContext(context.WithValue(r.Context(), middleware.UserClaimsKey, claims))
}

// TestListLeadsHandler testa a listagem e a serialização JSON.
func TestListLeadsHandler(t *testing.T) {
	mockSvc := new(MockLeadService)
	h := lead.NewHandler(mockSvc, logger.NewLogger("debug"))

	mockSvc.On("ListLeads", mock.Anything).Return([]domain.Lead{
		{ID: "leads:1", Name: "Ana", Status: domain.StatusNew, Source: domain.SourceWebsite},
	}, nil)

	req := withClaims(httptest.NewRequest(http.MethodGet, "/v1/leads", nil), domain.RoleViewer)
	rec := httptest.NewRecorder()

	h.LeadsHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Lead
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	assert.Equal(t, "leads:1", got[0].ID)
	mockSvc.AssertNotCalled(t, "RefreshLeads")
}

// TestListLeadsHandler_Refresh testa o parâmetro ?refresh=true forçando a
// recarga das tabelas externas.
func TestListLeadsHandler_Refresh(t *testing.T) {
	mockSvc := new(MockLeadService)
	h := lead.NewHandler(mockSvc, logger.NewLogger("debug"))

	mockSvc.On("RefreshLeads", mock.Anything).Return([]domain.Lead{}, nil)

	req := withClaims(httptest.NewRequest(http.MethodGet, "/v1/leads?refresh=true", nil), domain.RoleViewer)
	rec := httptest.NewRecorder()

	h.LeadsHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockSvc.AssertNotCalled(t, "ListLeads")
	mockSvc.AssertExpectations(t)
}

// TestCreateLeadHandler_ViewerBloqueado testa o 403 do viewer no POST,
// mesmo com a rota de listagem compartilhada.
func TestCreateLeadHandler_ViewerBloqueado(t *testing.T) {
	mockSvc := new(MockLeadService)
	h := lead.NewHandler(mockSvc, logger.NewLogger("debug"))

	body := strings.NewReader(`{"name":"Bruno","email":"bruno@empresa.com"}`)
	req := withClaims(httptest.NewRequest(http.MethodPost, "/v1/leads", body), domain.RoleViewer)
	rec := httptest.NewRecorder()

	h.LeadsHandler(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	mockSvc.AssertNotCalled(t, "CreateLead")
}

// TestCreateLeadHandler_Manager testa a criação com o updatedBy vindo da sessão.
func TestCreateLeadHandler_Manager(t *testing.T) {
	mockSvc := new(MockLeadService)
	h := lead.NewHandler(mockSvc, logger.NewLogger("debug"))

	created := domain.Lead{ID: "leads:7", Name: "Bruno", Email: "bruno@empresa.com"}
	mockSvc.On("CreateLead", mock.Anything, mock.MatchedBy(func(l domain.Lead) bool {
		return l.Name == "Bruno"
	}), "maria@empresa.com").Return(created, nil)

	body := strings.NewReader(`{"name":"Bruno","email":"bruno@empresa.com"}`)
	req := withClaims(httptest.NewRequest(http.MethodPost, "/v1/leads", body), domain.RoleManager)
	rec := httptest.NewRecorder()

	h.LeadsHandler(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var got domain.Lead
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "leads:7", got.ID)
	mockSvc.AssertExpectations(t)
}

// TestLeadByIDHandler_Update testa o roteamento do id composto extraído do path.
func TestLeadByIDHandler_Update(t *testing.T) {
	mockSvc := new(MockLeadService)
	h := lead.NewHandler(mockSvc, logger.NewLogger("debug"))

	updated := domain.Lead{ID: "leads_campanha:10", Status: domain.StatusQualified}
	mockSvc.On("UpdateLead", mock.Anything, "leads_campanha:10", mock.MatchedBy(func(u domain.LeadUpdate) bool {
		return u.Status != nil && *u.Status == domain.StatusQualified
	}), "maria@empresa.com").Return(updated, nil)

	body := strings.NewReader(`{"status":"qualified"}`)
	req := withClaims(httptest.NewRequest(http.MethodPut, "/v1/leads/leads_campanha:10", body), domain.RoleManager)
	rec := httptest.NewRecorder()

	h.LeadByIDHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockSvc.AssertExpectations(t)
}

// TestLeadByIDHandler_UpdateNaoEncontrado testa a tradução do erro tipado
// para o status HTTP.
func TestLeadByIDHandler_UpdateNaoEncontrado(t *testing.T) {
	mockSvc := new(MockLeadService)
	h := lead.NewHandler(mockSvc, logger.NewLogger("debug"))

	mockSvc.On("UpdateLead", mock.Anything, "leads:999", mock.Anything, mock.Anything).
		Return(domain.Lead{}, apperror.NewNotFoundError("Lead não encontrado: leads:999"))

	body := strings.NewReader(`{"name":"X"}`)
	req := withClaims(httptest.NewRequest(http.MethodPut, "/v1/leads/leads:999", body), domain.RoleAdmin)
	rec := httptest.NewRecorder()

	h.LeadByIDHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp domain.ErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Category)
}

// TestLeadByIDHandler_Delete testa a exclusão por admin respondendo 204 sem corpo.
func TestLeadByIDHandler_Delete(t *testing.T) {
	mockSvc := new(MockLeadService)
	h := lead.NewHandler(mockSvc, logger.NewLogger("debug"))

	mockSvc.On("DeleteLead", mock.Anything, "leads:1").Return(nil)

	req := withClaims(httptest.NewRequest(http.MethodDelete, "/v1/leads/leads:1", nil), domain.RoleAdmin)
	rec := httptest.NewRecorder()

	h.LeadByIDHandler(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	mockSvc.AssertExpectations(t)
}

// TestLeadByIDHandler_DeleteManagerBloqueado testa que a exclusão é mais
// restrita que a edição: manager edita, mas não exclui.
func TestLeadByIDHandler_DeleteManagerBloqueado(t *testing.T) {
	mockSvc := new(MockLeadService)
	h := lead.NewHandler(mockSvc, logger.NewLogger("debug"))

	req := withClaims(httptest.NewRequest(http.MethodDelete, "/v1/leads/leads:1", nil), domain.RoleManager)
	rec := httptest.NewRecorder()

	h.LeadByIDHandler(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	mockSvc.AssertNotCalled(t, "DeleteLead")
}

// TestLeadByIDHandler_UpdateViewerBloqueado testa o 403 do viewer na edição.
func TestLeadByIDHandler_UpdateViewerBloqueado(t *testing.T) {
	mockSvc := new(MockLeadService)
	h := lead.NewHandler(mockSvc, logger.NewLogger("debug"))

	body := strings.NewReader(`{"name":"X"}`)
	req := withClaims(httptest.NewRequest(http.MethodPut, "/v1/leads/leads:1", body), domain.RoleViewer)
	rec := httptest.NewRecorder()

	h.LeadByIDHandler(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	mockSvc.AssertNotCalled(t, "UpdateLead")
}
