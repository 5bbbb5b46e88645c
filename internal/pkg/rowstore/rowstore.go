package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/lib/pq"

	"microleads/internal/pkg/logger"
)

// O rowstore é a fronteira com o banco externo. As tabelas de leads são
// configuradas por nome e podem ter formatos diferentes entre si, então a
// fronteira trabalha com linhas permissivas (Row): colunas extras ou
// ausentes são toleradas aqui e resolvidas pela camada de reconciliação.
// O formato permissivo nunca deve vazar para além dessa camada.

// Row é o formato permissivo de uma linha vinda de uma tabela externa.
type Row map[string]interface{}

// Client define as cinco operações endereçadas por nome de tabela das
// quais a aplicação depende. Nada além destas formas é assumido do banco.
type Client interface {
	SelectAll(ctx context.Context, table string) ([]Row, error)
	SelectByID(ctx context.Context, table, id string) (Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	UpdateByID(ctx context.Context, table, id string, row Row) (Row, error)
	DeleteByID(ctx context.Context, table, id string) error
}

// PostgresStore é a implementação concreta do Client sobre *sql.DB.
type PostgresStore struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewPostgresStore cria uma nova instância do PostgresStore.
func NewPostgresStore(db *sql.DB, dbTimeout time.Duration, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// SelectAll retorna todas as linhas da tabela, no formato permissivo.
func (s *PostgresStore) SelectAll(ctx context.Context, table string) ([]Row, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, s.DBTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT * FROM %s`, pq.QuoteIdentifier(table))
	rows, err := s.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		return nil, fmt.Errorf("select em %q: %w", table, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// SelectByID retorna uma única linha pelo id.
// A comparação usa id::text para aceitar tabelas com id numérico, uuid ou texto.
func (s *PostgresStore) SelectByID(ctx context.Context, table, id string) (Row, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, s.DBTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT * FROM %s WHERE id::text = $1`, pq.QuoteIdentifier(table))
	rows, err := s.DB.QueryContext(ctxTimeout, query, id)
	if err != nil {
		return nil, fmt.Errorf("select por id em %q: %w", table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, sql.ErrNoRows
	}
	return result[0], nil
}

// Insert insere a linha e devolve o registro completo (RETURNING *).
func (s *PostgresStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, s.DBTimeout)
	defer cancel()

	cols := sortedColumns(row)
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = row[c]
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING *`,
		pq.QuoteIdentifier(table), joinComma(quoted), joinComma(placeholders))

	rows, err := s.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert em %q: %w", table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, sql.ErrNoRows
	}
	return result[0], nil
}

// UpdateByID atualiza somente as colunas presentes na linha parcial e
// devolve o registro completo resultante (RETURNING *).
func (s *PostgresStore) UpdateByID(ctx context.Context, table, id string, row Row) (Row, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, s.DBTimeout)
	defer cancel()

	cols := sortedColumns(row)
	if len(cols) == 0 {
		return s.SelectByID(ctx, table, id)
	}

	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+1)
		args = append(args, row[c])
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id::text = $%d RETURNING *`,
		pq.QuoteIdentifier(table), joinComma(sets), len(cols)+1)

	rows, err := s.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update em %q: %w", table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, sql.ErrNoRows
	}
	return result[0], nil
}

// DeleteByID remove uma linha pelo id.
func (s *PostgresStore) DeleteByID(ctx context.Context, table, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, s.DBTimeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id::text = $1`, pq.QuoteIdentifier(table))
	if _, err := s.DB.ExecContext(ctxTimeout, query, id); err != nil {
		return fmt.Errorf("delete em %q: %w", table, err)
	}
	return nil
}

// --- Helpers de varredura dinâmica ---

// scanRows materializa o resultado sem conhecer as colunas de antemão.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		pointers := make([]interface{}, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// normalizeValue converte []byte (retorno padrão do driver para text/numeric)
// em string, para que a camada de reconciliação lide só com tipos simples.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// sortedColumns devolve as colunas em ordem estável, para que a query
// gerada seja determinística.
func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// --- Acessores permissivos de Row ---

// String lê a primeira chave presente e não vazia como string.
func (r Row) String(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t, true
			}
		case int64:
			return strconv.FormatInt(t, 10), true
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		case time.Time:
			return t.Format(time.RFC3339), true
		}
	}
	return "", false
}

// Float lê a primeira chave presente como número, aceitando as codificações
// numéricas que o driver e o JSON produzem (float, int, string, json.Number).
func (r Row) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case float32:
			return float64(t), true
		case int64:
			return float64(t), true
		case int:
			return float64(t), true
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Time lê a primeira chave presente como timestamp.
func (r Row) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			return t, true
		case string:
			if parsed, err := time.Parse(time.RFC3339, t); err == nil {
				return parsed, true
			}
			if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
