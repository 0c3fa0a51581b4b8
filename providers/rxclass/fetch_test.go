package rxclass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

func TestLevel(t *testing.T) {
	tests := map[string]int{
		"A":       1,
		"A10":     2,
		"A10B":    3,
		"A10BA":   4,
		"A10BA02": 5,
	}
	for code, want := range tests {
		assert.Equal(t, want, Level(code), code)
	}
}

func TestFetchFor_FiltersAndDedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rxclass/class/byRxcui.json", r.URL.Path)
		assert.Equal(t, "6809", r.URL.Query().Get("rxcui"))
		_, _ = w.Write([]byte(`{"rxclassDrugInfoList":{"rxclassDrugInfo":[
			{"rxclassMinConceptItem":{"classId":"A10BA","className":"Biguanides","classType":"ATC1-4"},"relaSource":"ATC"},
			{"rxclassMinConceptItem":{"classId":"A10BA","className":"Biguanides","classType":"ATC1-4"},"relaSource":"ATCPROD"},
			{"rxclassMinConceptItem":{"classId":"N0000175565","className":"Biguanide","classType":"EPC"},"relaSource":"DAILYMED"},
			{"rxclassMinConceptItem":{"classId":"A10BD02","className":"metformin and sulfonylureas","classType":"ATC1-4"},"relaSource":"ATCPROD"}
		]}}`))
	}))
	defer srv.Close()

	cfg := &config.Config{RxNavBaseURL: srv.URL}
	f := NewFetcher(cfg, fetch.NewClient(zap.NewNop()), zap.NewNop())

	classes, ok := f.FetchFor(context.Background(), "6809", "metformin").Get()
	require.True(t, ok)
	assert.Equal(t, []providers.ATCClass{
		{Code: "A10BA", Name: "Biguanides", Level: 4},
		{Code: "A10BD02", Name: "metformin and sulfonylureas", Level: 5},
	}, classes)
}

func TestFetchFor_SkippedWhenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := NewFetcher(&config.Config{RxNavBaseURL: srv.URL}, fetch.NewClient(zap.NewNop()), zap.NewNop())
	assert.False(t, f.FetchFor(context.Background(), "6809", "metformin").IsPresent())
}
