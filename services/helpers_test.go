package services

import (
	"context"
	"errors"
	"sync"

	"pharma-deck/extract"
	"pharma-deck/providers"
	"pharma-deck/providers/rxnorm"
)

// fakeIdentity löst Namen aus einer festen Tabelle auf.
type fakeIdentity struct {
	mu       sync.Mutex
	ids      map[string]string
	names    map[string]string
	related  []providers.Concept
	synonyms []string
	err      error
	calls    int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		ids: map[string]string{
			"metformin":  "6809",
			"glucophage": "6809",
			"cimetidine": "2541",
			"alcohol":    "448",
		},
		names: map[string]string{"6809": "metformin", "2541": "cimetidine", "448": "ethanol"},
		related: []providers.Concept{
			{RxCUI: "861004", Name: "metformin hydrochloride 500 MG Oral Tablet", TTY: "SCD"},
			{RxCUI: "6809", Name: "metformin", TTY: "IN"},
		},
		synonyms: []string{"metformin", "Glucophage", "dimethylbiguanide"},
	}
}

func (f *fakeIdentity) Resolve(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if id, ok := f.ids[extract.NormalizeName(name)]; ok {
		return id, nil
	}
	return "", rxnorm.ErrNotFound
}

func (f *fakeIdentity) DisplayName(_ context.Context, rxcui string) (string, error) {
	if n, ok := f.names[rxcui]; ok {
		return n, nil
	}
	return "", errors.New("no properties")
}

func (f *fakeIdentity) RelatedConcepts(context.Context, string) ([]providers.Concept, error) {
	return f.related, nil
}

func (f *fakeIdentity) Synonyms(context.Context, string, []providers.Concept) ([]string, error) {
	return f.synonyms, nil
}

func (f *fakeIdentity) resolveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func present[T any](source string, v T) providers.Adapter[T] {
	return providers.AdapterFunc[T]{Source: source, Fn: func(context.Context, string, string) providers.Result[T] {
		return providers.Present(v)
	}}
}

func skipped[T any](source, reason string) providers.Adapter[T] {
	return providers.AdapterFunc[T]{Source: source, Fn: func(context.Context, string, string) providers.Result[T] {
		return providers.Skipped[T](reason)
	}}
}
