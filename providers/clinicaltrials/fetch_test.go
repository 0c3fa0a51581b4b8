package clinicaltrials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

func study(nct, title string, phases ...string) string {
	ph := `[]`
	if len(phases) > 0 {
		ph = `["` + phases[0] + `"`
		for _, p := range phases[1:] {
			ph += `,"` + p + `"`
		}
		ph += `]`
	}
	return `{"protocolSection":{"identificationModule":{"nctId":"` + nct + `","briefTitle":"` + title + `"},` +
		`"designModule":{"phases":` + ph + `},"statusModule":{"overallStatus":"COMPLETED"},` +
		`"conditionsModule":{"conditions":["Type 2 Diabetes","Obesity"]}}}`
}

func TestFetchFor_PaginatesAndDedupes(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/studies", r.URL.Path)
		assert.Equal(t, "metformin", r.URL.Query().Get("query.term"))
		assert.Equal(t, "3", r.URL.Query().Get("pageSize"))
		token := r.URL.Query().Get("pageToken")
		pages = append(pages, token)
		switch token {
		case "":
			_, _ = w.Write([]byte(`{"studies":[` + study("NCT1", "A", "PHASE2", "PHASE3") + `,` + study("NCT2", "B") + `],"nextPageToken":"p2"}`))
		case "p2":
			_, _ = w.Write([]byte(`{"studies":[` + study("NCT2", "B") + `,` + study("", "no id") + `,` + study("NCT3", "C", "PHASE4") + `,` + study("NCT4", "D") + `],"nextPageToken":"p3"}`))
		default:
			t.Errorf("unexpected page %q", token)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{ClinicalTrialsBaseURL: srv.URL, MaxTrials: 3}
	f := NewFetcher(cfg, fetch.NewClient(zap.NewNop()), zap.NewNop())

	trials, ok := f.FetchFor(context.Background(), "6809", "metformin").Get()
	require.True(t, ok)
	assert.Equal(t, []string{"", "p2"}, pages)
	require.Len(t, trials, 3)
	assert.Equal(t, providers.Trial{
		NCTID:      "NCT1",
		Title:      "A",
		Phase:      "PHASE2, PHASE3",
		Status:     "COMPLETED",
		Conditions: "Type 2 Diabetes; Obesity",
		SourceURL:  "https://clinicaltrials.gov/study/NCT1",
	}, trials[0])
	assert.Equal(t, "NCT2", trials[1].NCTID)
	assert.Empty(t, trials[1].Phase)
	assert.Equal(t, "NCT3", trials[2].NCTID)
}

func TestFetchFor_KeepsFirstPageOnLaterFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") != "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"studies":[` + study("NCT1", "A") + `],"nextPageToken":"p2"}`))
	}))
	defer srv.Close()

	cfg := &config.Config{ClinicalTrialsBaseURL: srv.URL, MaxTrials: 10, FetchInitialDelay: time.Millisecond}
	client := fetch.NewClient(zap.NewNop(), fetch.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	f := NewFetcher(cfg, client, zap.NewNop())

	trials, ok := f.FetchFor(context.Background(), "6809", "metformin").Get()
	require.True(t, ok)
	assert.Len(t, trials, 1)
}

func TestFetchFor_SkippedWithoutName(t *testing.T) {
	f := NewFetcher(&config.Config{}, fetch.NewClient(zap.NewNop()), zap.NewNop())
	res := f.FetchFor(context.Background(), "6809", "  ")
	assert.False(t, res.IsPresent())
	assert.Equal(t, "no name", res.Reason)
}
