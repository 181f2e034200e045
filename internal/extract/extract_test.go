package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/markercheck/internal/checker"
)

const marker = "Bienvenido a Udeki"

func TestPatternExtract(t *testing.T) {
	t.Parallel()

	p, err := NewPattern(DefaultTag, DefaultAttribute)
	require.NoError(t, err)

	tests := []struct {
		name         string
		body         string
		wantFragment string
		wantMatched  bool
	}{
		{
			name:         "welcome heading",
			body:         `<html><body><h3 class="mb-1 text-center">Bienvenido a Udeki</h3></body></html>`,
			wantFragment: "Bienvenido a Udeki",
			wantMatched:  true,
		},
		{
			name:         "missing tag",
			body:         `<html><body><h2>Bienvenido a Udeki</h2></body></html>`,
			wantFragment: checker.NotFound,
		},
		{
			name:         "different text",
			body:         `<h3 class="mb-1 text-center">Usuario no encontrado</h3>`,
			wantFragment: "Usuario no encontrado",
		},
		{
			name:         "attribute order and extra attributes",
			body:         `<h3 id="title" data-x='1' class="mb-1 text-center" style="color:red">  Bienvenido a Udeki, Ana </h3>`,
			wantFragment: "Bienvenido a Udeki, Ana",
			wantMatched:  true,
		},
		{
			name:         "single quotes and upper case tag",
			body:         `<H3 class='mb-1 text-center'>Bienvenido a Udeki</H3>`,
			wantFragment: "Bienvenido a Udeki",
			wantMatched:  true,
		},
		{
			name:         "case sensitive marker",
			body:         `<h3 class="mb-1 text-center">bienvenido a udeki</h3>`,
			wantFragment: "bienvenido a udeki",
		},
		{
			name:         "other h3 without signature is skipped",
			body:         `<h3>Menu</h3><h3 class="mb-1 text-center">Bienvenido a Udeki</h3>`,
			wantFragment: "Bienvenido a Udeki",
			wantMatched:  true,
		},
		{
			name:         "first closing tag ends the fragment",
			body:         `<h3 class="mb-1 text-center">Hola</h3> Bienvenido a Udeki </h3>`,
			wantFragment: "Hola",
		},
		{
			name:         "fragment spans lines",
			body:         "<h3 class=\"mb-1 text-center\">\n  Bienvenido a Udeki\n</h3>",
			wantFragment: "Bienvenido a Udeki",
			wantMatched:  true,
		},
		{
			name:         "different class",
			body:         `<h3 class="mb-2">Bienvenido a Udeki</h3>`,
			wantFragment: checker.NotFound,
		},
		{
			name:         "empty body",
			body:         "",
			wantFragment: checker.NotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := p.Extract([]byte(tt.body), marker)
			assert.Equal(t, tt.wantFragment, got.Fragment)
			assert.Equal(t, tt.wantMatched, got.Matched)
			assert.Equal(t, tt.wantFragment != checker.NotFound, got.Found())
		})
	}
}

func TestNewPatternRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewPattern("h3>", DefaultAttribute)
	require.Error(t, err)
	_, err = NewPattern("h3", "class")
	require.Error(t, err)
	_, err = NewPattern("h3", `class="unterminated`)
	require.Error(t, err)
}

func TestSelectorExtract(t *testing.T) {
	t.Parallel()

	s := NewSelector(DefaultSelector)

	got := s.Extract([]byte(`<div><h3 class="text-center mb-1"> Bienvenido a Udeki </h3></div>`), marker)
	require.True(t, got.Matched)
	require.Equal(t, "Bienvenido a Udeki", got.Fragment)

	got = s.Extract([]byte(`<div><h3 class="mb-1">Bienvenido a Udeki</h3></div>`), marker)
	require.False(t, got.Matched)
	require.Equal(t, checker.NotFound, got.Fragment)

	got = NewSelector("h3[").Extract([]byte(`<h3>x</h3>`), marker)
	require.Equal(t, checker.NotFound, got.Fragment)
}

func TestNewSelectsMode(t *testing.T) {
	t.Parallel()

	e, err := New(Config{})
	require.NoError(t, err)
	require.IsType(t, &Pattern{}, e)

	e, err = New(Config{Mode: ModeSelector})
	require.NoError(t, err)
	require.IsType(t, &Selector{}, e)

	_, err = New(Config{Mode: "xpath"})
	require.Error(t, err)
}
