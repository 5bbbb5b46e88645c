package domain

import (
	"context"
	"strings"
	"time"
)

// Lead representa um prospecto de venda na forma canônica da aplicação.
// Os registros físicos podem viver em mais de uma tabela externa; o ID
// composto ("tabela:id") guarda a origem para que atualizações e exclusões
// posteriores sejam roteadas para a tabela correta.
type Lead struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone,omitempty"`
	Status     LeadStatus `json:"status"`
	Source     LeadSource `json:"source"`
	Canal      string     `json:"canal,omitempty"` // texto livre do canal, como veio da tabela externa
	Notes      string     `json:"notes,omitempty"`
	ValorConta *float64   `json:"valorConta,omitempty"`
	CEP        string     `json:"cep,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	UpdatedBy  string     `json:"updatedBy"`
}

// LeadStatus é o estágio do lead no funil (conjunto fechado).
type LeadStatus string

const (
	StatusNew       LeadStatus = "new"
	StatusContacted LeadStatus = "contacted"
	StatusQualified LeadStatus = "qualified"
	StatusLost      LeadStatus = "lost"
)

// LeadSource é a origem normalizada do lead (conjunto fechado).
type LeadSource string

const (
	SourceWebsite  LeadSource = "website"
	SourceSocial   LeadSource = "social"
	SourceReferral LeadSource = "referral"
	SourceCampaign LeadSource = "campaign"
)

// Valid informa se o status pertence ao conjunto fechado.
func (s LeadStatus) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusLost:
		return true
	}
	return false
}

// Valid informa se a origem pertence ao conjunto fechado.
func (s LeadSource) Valid() bool {
	switch s {
	case SourceWebsite, SourceSocial, SourceReferral, SourceCampaign:
		return true
	}
	return false
}

// LeadUpdate descreve uma atualização parcial: campos nil não são enviados
// à tabela externa, portanto não sobrescrevem colunas não relacionadas.
// Ponteiros para opcionais permitem distinguir "não alterar" de "limpar".
type LeadUpdate struct {
	Name       *string     `json:"name,omitempty"`
	Email      *string     `json:"email,omitempty"`
	Phone      *string     `json:"phone,omitempty"`
	Status     *LeadStatus `json:"status,omitempty"`
	Source     *LeadSource `json:"source,omitempty"`
	Canal      *string     `json:"canal,omitempty"`
	Notes      *string     `json:"notes,omitempty"`
	ValorConta *float64    `json:"valorConta,omitempty"`
	CEP        *string     `json:"cep,omitempty"`
}

// Empty informa se a atualização não altera campo algum.
func (u LeadUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil &&
		u.Status == nil && u.Source == nil && u.Canal == nil &&
		u.Notes == nil && u.ValorConta == nil && u.CEP == nil
}

// MakeLeadID monta o identificador composto "tabela:id".
func MakeLeadID(table, rowID string) string {
	return table + ":" + rowID
}

// ParseLeadID divide o identificador composto no primeiro ':'.
// IDs legados sem ':' são atribuídos à tabela padrão, com a string inteira
// tratada como id da linha.
func ParseLeadID(id, defaultTable string) (table, rowID string) {
	if i := strings.Index(id, ":"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return defaultTable, id
}

// LeadRepository é o contrato da camada de reconciliação: traduz entre as
// tabelas externas (formato permissivo) e a forma canônica Lead.
type LeadRepository interface {
	FetchAll(ctx context.Context) ([]Lead, error)
	Create(ctx context.Context, lead Lead) (Lead, error)
	Update(ctx context.Context, id string, updates LeadUpdate, updatedBy string) (Lead, error)
	Delete(ctx context.Context, id string) error
}

// LeadService é o contrato de lógica de negócio dos leads.
type LeadService interface {
	ListLeads(ctx context.Context) ([]Lead, error)
	RefreshLeads(ctx context.Context) ([]Lead, error)
	CreateLead(ctx context.Context, lead Lead, updatedBy string) (Lead, error)
	UpdateLead(ctx context.Context, id string, updates LeadUpdate, updatedBy string) (Lead, error)
	DeleteLead(ctx context.Context, id string) error
}
