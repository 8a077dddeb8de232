package naming_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcutting/facturarator/internal/naming"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "factura-01.pdf", "factura-01"},
		{"uppercase extension", "FACTURA-01.PDF", "factura-01"},
		{"spaces and parens", "Factura 03 (final).pdf", "factura-03-final"},
		{"accented", "Fåctura 001.pdf", "factura-001"},
		{"enye", "señor gasolinera.XML", "senor-gasolinera"},
		{"path segments", "uploads/marzo/Factura 01.pdf", "factura-01"},
		{"windows path", `C:\Users\maria\Factura 01.pdf`, "factura-01"},
		{"only one extension stripped", "factura.tar.gz", "factura-tar"},
		{"leading punctuation", "__factura__.pdf", "factura"},
		{"empty", "", ""},
		{"only punctuation", "(((.pdf", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, naming.Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Factura 03 (final).pdf",
		"Fåctura 001.pdf",
		"factura-001",
		"",
		"Gasolinera PEMEX - marzo.XML",
	}

	for _, in := range inputs {
		once := naming.Normalize(in)
		assert.Equal(t, once, naming.Normalize(once), "input %q", in)
	}
}

func TestNormalize_AccentAndCaseInsensitive(t *testing.T) {
	assert.Equal(t,
		naming.Normalize("Fåctura 001.pdf"),
		naming.Normalize("factura-001.PDF"),
	)
}
