package chembl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/providers/fetch"
)

func TestTargetType(t *testing.T) {
	tests := []struct {
		chemblType, name, want string
	}{
		{"SINGLE PROTEIN", "Solute carrier family 22 member 1", "carrier"},
		{"SINGLE PROTEIN", "Organic cation transporter 1", "transporter"},
		{"ENZYME", "AMP-activated protein kinase", "enzyme"},
		{"", "Albumin carrier protein", "carrier"},
		{"PROTEIN COMPLEX", "Glucagon receptor", "target"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TargetType(tt.chemblType, tt.name), tt.name)
	}
}

func TestAction(t *testing.T) {
	tests := map[string]string{
		"IC50":       "inhibitor",
		"Ki":         "inhibitor",
		"Inhibition": "inhibitor",
		"EC50":       "agonist",
		"Activation": "agonist",
		"Substrate":  "substrate",
		"Potency":    "",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Action(in), in)
	}
}

func TestFetchFor_DedupesAndBounds(t *testing.T) {
	var (
		mu          sync.Mutex
		targetCalls []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/molecule/search":
			assert.Equal(t, "metformin", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"molecules":[{"molecule_chembl_id":"CHEMBL1431"},{"molecule_chembl_id":"CHEMBL999"}]}`))
		case "/activity.json":
			assert.Equal(t, "CHEMBL1431", r.URL.Query().Get("molecule_chembl_id"))
			assert.Equal(t, "500", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"activities":[
				{"target_chembl_id":"CHEMBL1","standard_type":"IC50"},
				{"target_chembl_id":"CHEMBL1","standard_type":"EC50"},
				{"target_chembl_id":"","standard_type":"IC50"},
				{"target_chembl_id":"CHEMBL2","standard_type":"Potency"},
				{"target_chembl_id":"CHEMBL3","standard_type":"EC50"}
			]}`))
		case "/target/CHEMBL1.json":
			mu.Lock()
			targetCalls = append(targetCalls, r.URL.Path)
			mu.Unlock()
			_, _ = w.Write([]byte(`{"target_chembl_id":"CHEMBL1","target_type":"SINGLE PROTEIN","pref_name":"Organic cation transporter 1","organism":"Homo sapiens",
				"target_components":[{"accessions":["O15245"],"gene_name":"SLC22A1"},{"accessions":["O15244"],"gene_name":"SLC22A2"}]}`))
		case "/target/CHEMBL2.json":
			mu.Lock()
			targetCalls = append(targetCalls, r.URL.Path)
			mu.Unlock()
			_, _ = w.Write([]byte(`{"target_chembl_id":"CHEMBL2","target_type":"ENZYME","pref_name":"","components":[{"accessions":[],"gene_name":""}]}`))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{ChEMBLBaseURL: srv.URL, MaxTargets: 2, FetchInitialDelay: time.Millisecond}
	client := fetch.NewClient(zap.NewNop(), fetch.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	f := NewFetcher(cfg, client, zap.NewNop())

	links, ok := f.FetchFor(context.Background(), "6809", "metformin").Get()
	require.True(t, ok)
	require.Len(t, links, 2)
	assert.ElementsMatch(t, []string{"/target/CHEMBL1.json", "/target/CHEMBL2.json"}, targetCalls)

	first := links[0]
	assert.Equal(t, "CHEMBL1", first.Target.ChEMBLID)
	assert.Equal(t, "O15245", first.Target.UniProtID)
	assert.Equal(t, "O15245", first.Target.Key())
	assert.Equal(t, "SLC22A1", first.Target.GeneSymbol)
	assert.Equal(t, []string{"SLC22A1", "SLC22A2"}, first.Target.Aliases)
	assert.Equal(t, "transporter", first.Target.Type)
	assert.Equal(t, "inhibitor", first.Action)
	assert.Equal(t, "https://www.ebi.ac.uk/chembl/target_report_card/CHEMBL1/", first.SourceURL)

	second := links[1]
	assert.Equal(t, "CHEMBL2", second.Target.Name)
	assert.Equal(t, "CHEMBL2", second.Target.Key())
	assert.Equal(t, "enzyme", second.Target.Type)
	assert.Empty(t, second.Action)
}

func TestFetchFor_SkippedWithoutMolecule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"molecules":[]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{ChEMBLBaseURL: srv.URL, MaxTargets: 5}
	f := NewFetcher(cfg, fetch.NewClient(zap.NewNop()), zap.NewNop())

	res := f.FetchFor(context.Background(), "6809", "metformin")
	assert.False(t, res.IsPresent())
	assert.Equal(t, "no molecule", res.Reason)
}

func TestFetchFor_FailedTargetDoesNotDropOthers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/molecule/search":
			_, _ = w.Write([]byte(`{"molecules":[{"molecule_chembl_id":"CHEMBL1431"}]}`))
		case "/activity.json":
			_, _ = w.Write([]byte(`{"activities":[{"target_chembl_id":"CHEMBL1"},{"target_chembl_id":"CHEMBL2","standard_type":"Ki"}]}`))
		case "/target/CHEMBL2.json":
			_, _ = w.Write([]byte(`{"pref_name":"AMP kinase"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{ChEMBLBaseURL: srv.URL, MaxTargets: 5, FetchInitialDelay: time.Millisecond}
	client := fetch.NewClient(zap.NewNop(), fetch.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	f := NewFetcher(cfg, client, zap.NewNop())

	links, ok := f.FetchFor(context.Background(), "6809", "metformin").Get()
	require.True(t, ok)
	require.Len(t, links, 1)
	assert.Equal(t, "AMP kinase", links[0].Target.Name)
	assert.Equal(t, "inhibitor", links[0].Action)
}
