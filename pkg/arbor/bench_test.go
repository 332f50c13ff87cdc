package arbor

import "testing"

func BenchmarkUseShallow(b *testing.B) {
	ctx := NewContext[int]()
	root := NewScope(nil)
	child := NewScope(root)
	installProvider(root, ctx.NewProvider(42))

	b.ResetTimer()
	WithScope(child, func() {
		for i := 0; i < b.N; i++ {
			ctx.Use()
		}
	})
}

func BenchmarkUseDeepChain(b *testing.B) {
	ctx := NewContext[int]()
	root := NewScope(nil)
	installProvider(root, ctx.NewProvider(42))

	scope := root
	for i := 0; i < 64; i++ {
		scope = NewScope(scope)
	}

	b.ResetTimer()
	WithScope(scope, func() {
		for i := 0; i < b.N; i++ {
			ctx.Use()
		}
	})
}

func BenchmarkLookup(b *testing.B) {
	ctx := NewContext[string]()
	root := NewScope(nil)
	child := NewScope(root)
	installProvider(root, ctx.NewProvider("x"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx.Lookup(child)
	}
}

func BenchmarkProviderSetChanged(b *testing.B) {
	ctx := NewContext[int]()
	p := ctx.NewProvider(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Set(i)
	}
}

func BenchmarkProviderSetEqual(b *testing.B) {
	ctx := NewContext[int]()
	p := ctx.NewProvider(7)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Set(7)
	}
}

func BenchmarkSignalGetTracked(b *testing.B) {
	sig := NewSignal(1)
	l := newMockListener()

	b.ResetTimer()
	WithListener(l, func() {
		for i := 0; i < b.N; i++ {
			sig.Get()
		}
	})
}
