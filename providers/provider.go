package providers

import "context"

// Result ist das getaggte Ergebnis einer optionalen Quelle: entweder Present mit Wert oder
// Skipped mit Begründung. Eine Quelle liefert nie einen Fehler über diese Grenze hinaus.
type Result[T any] struct {
	value   T
	present bool
	Reason  string
}

// Present verpackt einen gefundenen Wert.
func Present[T any](v T) Result[T] {
	return Result[T]{value: v, present: true}
}

// Skipped meldet, dass die Quelle nichts beigetragen hat.
func Skipped[T any](reason string) Result[T] {
	return Result[T]{Reason: reason}
}

// Get liefert den Wert und ob er vorhanden ist.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.present
}

// IsPresent meldet, ob die Quelle Daten geliefert hat.
func (r Result[T]) IsPresent() bool {
	return r.present
}

// OrZero liefert den Wert oder den Nullwert von T.
func (r Result[T]) OrZero() T {
	return r.value
}

// Adapter ist das Interface, das jede optionale Quelle (PubChem, openFDA, ChEMBL, ...) implementieren muss.
type Adapter[T any] interface {
	// FetchFor holt die Daten der Quelle für eine bereits aufgelöste RxCUI.
	FetchFor(ctx context.Context, canonicalID, displayName string) Result[T]

	// Name gibt den eindeutigen Namen der Quelle zurück (z.B. "pubchem").
	Name() string
}

// AdapterFunc erlaubt einfache Funktionen als Adapter, vor allem in Tests.
type AdapterFunc[T any] struct {
	Source string
	Fn     func(ctx context.Context, canonicalID, displayName string) Result[T]
}

func (a AdapterFunc[T]) FetchFor(ctx context.Context, canonicalID, displayName string) Result[T] {
	return a.Fn(ctx, canonicalID, displayName)
}

func (a AdapterFunc[T]) Name() string { return a.Source }
