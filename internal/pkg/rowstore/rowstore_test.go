package rowstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"microleads/internal/pkg/rowstore"
)

// TestRowString_MultiplasChaves testa a leitura pela primeira chave presente,
// cobrindo as variações de nome entre tabelas externas.
func TestRowString_MultiplasChaves(t *testing.T) {
	row := rowstore.Row{"numero": "11 99999-0000"}

	v, ok := row.String("telefone", "numero", "phone")
	assert.True(t, ok)
	assert.Equal(t, "11 99999-0000", v)

	_, ok = row.String("inexistente")
	assert.False(t, ok)
}

// TestRowString_Coercoes testa a conversão de tipos não-string do driver.
func TestRowString_Coercoes(t *testing.T) {
	row := rowstore.Row{
		"id_num": int64(42),
		"ativo":  true,
		"vazio":  "",
		"nulo":   nil,
	}

	v, ok := row.String("id_num")
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	v, ok = row.String("ativo")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	// String vazia e nil não contam como presença.
	_, ok = row.String("vazio")
	assert.False(t, ok)
	_, ok = row.String("nulo")
	assert.False(t, ok)
}

// TestRowFloat testa as codificações numéricas que o driver e o JSON produzem.
func TestRowFloat(t *testing.T) {
	row := rowstore.Row{
		"a": 250.5,
		"b": int64(100),
		"c": "99.9", // numeric vem do driver como texto
		"d": "abc",
	}

	v, ok := row.Float("a")
	assert.True(t, ok)
	assert.Equal(t, 250.5, v)

	v, ok = row.Float("b")
	assert.True(t, ok)
	assert.Equal(t, 100.0, v)

	v, ok = row.Float("c")
	assert.True(t, ok)
	assert.Equal(t, 99.9, v)

	_, ok = row.Float("d")
	assert.False(t, ok)
}

// TestRowTime testa a leitura de timestamps nativos e em texto.
func TestRowTime(t *testing.T) {
	native := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	row := rowstore.Row{
		"nativo": native,
		"texto":  "2026-03-01T10:30:00Z",
		"lixo":   "ontem",
	}

	v, ok := row.Time("nativo")
	assert.True(t, ok)
	assert.Equal(t, native, v)

	v, ok = row.Time("texto")
	assert.True(t, ok)
	assert.True(t, v.Equal(native))

	_, ok = row.Time("lixo")
	assert.False(t, ok)
}
