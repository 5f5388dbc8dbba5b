package ir_test

import (
	"testing"

	"github.com/mna/callstack/lang/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b ir.Signature
		want bool
	}{
		{
			name: "identical scalar sigs",
			a:    ir.Signature{Params: []ir.Type{ir.Int{Width: 32}}, Return: ir.Int{Width: 1}},
			b:    ir.Signature{Params: []ir.Type{ir.Int{Width: 32}}, Return: ir.Int{Width: 1}},
			want: true,
		},
		{
			name: "different width",
			a:    ir.Signature{Params: []ir.Type{ir.Int{Width: 32}}},
			b:    ir.Signature{Params: []ir.Type{ir.Int{Width: 64}}},
			want: false,
		},
		{
			name: "different arity",
			a:    ir.Signature{Params: []ir.Type{ir.Int{Width: 32}, ir.Int{Width: 32}}},
			b:    ir.Signature{Params: []ir.Type{ir.Int{Width: 32}}},
			want: false,
		},
		{
			name: "void vs non-void return",
			a:    ir.Signature{Params: []ir.Type{ir.Int{Width: 32}}},
			b:    ir.Signature{Params: []ir.Type{ir.Int{Width: 32}}, Return: ir.Int{Width: 32}},
			want: false,
		},
		{
			name: "pointer and named types",
			a:    ir.Signature{Params: []ir.Type{ir.Pointer{Elem: ir.Named{Name: "core::fmt::Void"}}}},
			b:    ir.Signature{Params: []ir.Type{ir.Pointer{Elem: ir.Named{Name: "core::fmt::Void"}}}},
			want: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Equal(tc.b))
			assert.Equal(t, tc.want, tc.b.Equal(tc.a))
		})
	}
}

func TestSignatureErase(t *testing.T) {
	sig := ir.Signature{
		Params: []ir.Type{ir.Pointer{Elem: ir.Named{Name: "Foo"}}, ir.Int{Width: 32}},
		Return: ir.Int{Width: 1},
	}
	erased := sig.Erase()
	require.True(t, erased.HasErasedFirst())
	assert.False(t, sig.HasErasedFirst())
	assert.True(t, erased.Params[1].Equal(ir.Int{Width: 32}))
	// An erased-receiver signature and the original no longer compare equal,
	// but two independently erased signatures with the same tail do.
	assert.False(t, sig.Equal(erased))
	other := ir.Signature{
		Params: []ir.Type{ir.Pointer{Elem: ir.Named{Name: "Bar"}}, ir.Int{Width: 32}},
		Return: ir.Int{Width: 1},
	}.Erase()
	assert.True(t, erased.Equal(other))
}

func TestSignatureErasePanicsOnNoParams(t *testing.T) {
	assert.Panics(t, func() {
		ir.Signature{}.Erase()
	})
}
