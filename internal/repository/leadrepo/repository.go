package leadrepo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"microleads/internal/domain"
	apperror "microleads/internal/errors"
	"microleads/internal/pkg/logger"
	"microleads/internal/pkg/rowstore"
)

// LeadRepository é a camada de reconciliação: traduz entre os formatos das
// tabelas externas (uma ou várias, configuradas por nome) e a forma
// canônica Lead, nos dois sentidos, preservando no ID composto a informação
// necessária para rotear escritas futuras à tabela de origem.
type LeadRepository struct {
	Store  rowstore.Client
	Tables []string // não vazio; Tables[0] é a tabela padrão de escrita
	logger logger.Logger
}

// NewLeadRepository cria uma nova instância do LeadRepository.
func NewLeadRepository(store rowstore.Client, tables []string, log logger.Logger) *LeadRepository {
	if len(tables) == 0 {
		tables = []string{"leads"}
	}
	return &LeadRepository{
		Store:  store,
		Tables: tables,
		logger: log,
	}
}

// DefaultTable é a tabela que recebe inserções e os IDs legados sem prefixo.
func (r *LeadRepository) DefaultTable() string {
	return r.Tables[0]
}

// FetchAll busca todas as tabelas configuradas em paralelo e devolve a
// união das listas, na ordem das tabelas e depois na ordem das linhas.
// Falha em uma tabela não cancela as demais: ela é logada e contribui com
// zero linhas. Não há de-duplicação entre tabelas.
func (r *LeadRepository) FetchAll(ctx context.Context) ([]domain.Lead, error) {
	perTable := make([][]domain.Lead, len(r.Tables))

	var wg sync.WaitGroup
	for i, table := range r.Tables {
		wg.Add(1)
		go func(i int, table string) {
			defer wg.Done()

			rows, err := r.Store.SelectAll(ctx, table)
			if err != nil {
				r.logger.Warn("Falha ao buscar tabela de leads. Contribuição tratada como vazia.",
					map[string]interface{}{"table": table, "error": err.Error()})
				return
			}

			leads := make([]domain.Lead, 0, len(rows))
			for _, row := range rows {
				leads = append(leads, r.mapRow(table, row))
			}
			perTable[i] = leads
		}(i, table)
	}
	wg.Wait()

	all := make([]domain.Lead, 0)
	for _, leads := range perTable {
		all = append(all, leads...)
	}

	r.logger.Debug("União das tabelas de leads montada.",
		map[string]interface{}{"tables": len(r.Tables), "leads": len(all)})
	return all, nil
}

// Create insere o lead na tabela padrão e devolve a forma canônica do
// registro retornado pelo banco.
func (r *LeadRepository) Create(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	row := r.rowFromLead(lead)

	saved, err := r.Store.Insert(ctx, r.DefaultTable(), row)
	if err != nil {
		return domain.Lead{}, apperror.NewDBError("falha ao inserir lead", err)
	}

	return r.mapRow(r.DefaultTable(), saved), nil
}

// Update traduz a atualização parcial e a aplica exatamente na tabela/linha
// codificadas no ID composto. Campos ausentes não são enviados, portanto
// não sobrescrevem colunas não relacionadas.
func (r *LeadRepository) Update(ctx context.Context, id string, updates domain.LeadUpdate, updatedBy string) (domain.Lead, error) {
	table, rowID := domain.ParseLeadID(id, r.DefaultTable())

	row := r.rowFromUpdate(updates, updatedBy)

	saved, err := r.Store.UpdateByID(ctx, table, rowID, row)
	if err != nil {
		return domain.Lead{}, apperror.NewDBError("falha ao atualizar lead", err)
	}

	return r.mapRow(table, saved), nil
}

// Delete remove a linha exatamente na tabela codificada no ID composto.
func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	table, rowID := domain.ParseLeadID(id, r.DefaultTable())

	if err := r.Store.DeleteByID(ctx, table, rowID); err != nil {
		return apperror.NewDBError("falha ao excluir lead", err)
	}
	return nil
}

// --- Mapeamento linha externa -> Lead canônico ---

// mapRow converte uma linha permissiva na forma canônica, com defaults para
// tudo que a tabela de origem não tiver.
func (r *LeadRepository) mapRow(table string, row rowstore.Row) domain.Lead {
	now := time.Now()

	rowID, _ := row.String("id")
	name, _ := row.String("nome", "name")
	phone, _ := row.String("numero", "telefone", "phone")
	canal, _ := row.String("canal", "channel")
	cep, _ := row.String("cep")
	updatedBy, _ := row.String("updated_by", "updatedBy")

	statusRaw, _ := row.String("status")

	var valorConta *float64
	if v, ok := row.Float("valorConta", "valor_conta"); ok {
		valorConta = &v
	}

	// E-mail sintetizado a partir do nome quando a tabela não tem a coluna.
	// É conveniência de exibição, não um endereço real: nunca serve para login.
	email, ok := row.String("email")
	if !ok {
		email = synthesizeEmail(name)
	}

	// Notes direto da linha, ou sintetizado dos opcionais presentes.
	notes, ok := row.String("notes", "observacoes")
	if !ok {
		notes = synthesizeNotes(valorConta, cep)
	}

	// Timestamps ausentes caem em "agora" no momento do mapeamento. A tabela
	// externa pode genuinamente não ter essas colunas; buscas repetidas vão
	// mostrar valores diferentes e isso é uma lacuna conhecida, não algo a
	// esconder com cache.
	createdAt, ok := row.Time("created_at", "createdAt")
	if !ok {
		createdAt = now
	}
	updatedAt, ok := row.Time("updated_at", "updatedAt")
	if !ok {
		updatedAt = now
	}

	return domain.Lead{
		ID:         domain.MakeLeadID(table, rowID),
		Name:       name,
		Email:      email,
		Phone:      phone,
		Status:     domain.StatusFromExternal(statusRaw),
		Source:     domain.SourceFromChannel(canal),
		Canal:      canal,
		Notes:      notes,
		ValorConta: valorConta,
		CEP:        cep,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		UpdatedBy:  updatedBy,
	}
}

// synthesizeEmail gera "nome.sobrenome@lead.com" a partir do nome.
func synthesizeEmail(name string) string {
	local := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", ".")
	if local == "" {
		local = "lead"
	}
	return local + "@lead.com"
}

// synthesizeNotes concatena os opcionais presentes com separador fixo.
// Sem valorConta e sem cep, não há notes.
func synthesizeNotes(valorConta *float64, cep string) string {
	var parts []string
	if valorConta != nil {
		parts = append(parts, fmt.Sprintf("Valor da conta: R$ %.2f", *valorConta))
	}
	if cep != "" {
		parts = append(parts, "CEP: "+cep)
	}
	return strings.Join(parts, " | ")
}

// --- Mapeamento Lead canônico -> linha externa ---

// rowFromLead monta a linha completa de uma criação na tabela padrão.
func (r *LeadRepository) rowFromLead(lead domain.Lead) rowstore.Row {
	row := rowstore.Row{
		"nome":       lead.Name,
		"email":      lead.Email,
		"status":     domain.ExternalFromStatus(lead.Status),
		"created_at": lead.CreatedAt,
		"updated_at": lead.UpdatedAt,
		"updated_by": lead.UpdatedBy,
	}

	// Canal em texto livre quando informado; senão o rótulo fixo da origem.
	if lead.Canal != "" {
		row["canal"] = lead.Canal
	} else {
		row["canal"] = domain.ChannelFromSource(lead.Source)
	}

	if lead.Phone != "" {
		row["numero"] = lead.Phone
	}
	if lead.Notes != "" {
		row["notes"] = lead.Notes
	}
	if lead.ValorConta != nil {
		row["valorConta"] = *lead.ValorConta
	}
	if lead.CEP != "" {
		row["cep"] = lead.CEP
	}

	return row
}

// rowFromUpdate traduz só os campos presentes da atualização parcial.
// Strings opcionais esvaziadas viram null explícito na coluna.
func (r *LeadRepository) rowFromUpdate(updates domain.LeadUpdate, updatedBy string) rowstore.Row {
	row := rowstore.Row{}

	if updates.Name != nil {
		row["nome"] = *updates.Name
	}
	if updates.Email != nil {
		row["email"] = *updates.Email
	}
	if updates.Phone != nil {
		row["numero"] = nullIfEmpty(*updates.Phone)
	}
	if updates.Status != nil {
		row["status"] = domain.ExternalFromStatus(*updates.Status)
	}
	if updates.Canal != nil {
		row["canal"] = nullIfEmpty(*updates.Canal)
	} else if updates.Source != nil {
		// Sentido com perda: uma origem canônica produz um único rótulo
		// fixo, o texto original do canal não é recuperável.
		row["canal"] = domain.ChannelFromSource(*updates.Source)
	}
	if updates.Notes != nil {
		row["notes"] = nullIfEmpty(*updates.Notes)
	}
	if updates.ValorConta != nil {
		row["valorConta"] = *updates.ValorConta
	}
	if updates.CEP != nil {
		row["cep"] = nullIfEmpty(*updates.CEP)
	}

	row["updated_at"] = time.Now()
	row["updated_by"] = updatedBy

	return row
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
