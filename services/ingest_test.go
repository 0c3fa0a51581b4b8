package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/extract"
	"pharma-deck/models"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
	"pharma-deck/providers/rxnorm"
	"pharma-deck/storage"
	"pharma-deck/storage/storagetest"
)

func metforminSources() Sources {
	return Sources{
		Structure:  present("pubchem", metforminStructure()),
		Regulatory: present("openfda", metforminLabel()),
		Literature: present("pubmed", metforminStudies()),
		Targets: present("chembl", []providers.TargetLink{{
			Target:    providers.Target{ChEMBLID: "CHEMBL2093", UniProtID: "Q13131", Name: "AMPK", Type: "target"},
			Action:    "agonist",
			SourceURL: "https://www.ebi.ac.uk/chembl/target_report_card/CHEMBL2093",
		}}),
		Classes:  present("rxclass", []providers.ATCClass{{Code: "A10BA02", Name: "metformin", Level: 5}}),
		Trials:   skipped[[]providers.Trial]("clinicaltrials", "no results"),
		Products: skipped[[]providers.Product]("openfda_ndc", "no results"),
	}
}

func newTestService(t *testing.T, identity Identity, sources Sources) (*IngestService, *storage.Store) {
	t.Helper()
	store := storagetest.New(t)
	return NewIngestService(&config.Config{}, store, identity, sources, zap.NewNop()), store
}

func count[T any](t *testing.T, store *storage.Store, where ...any) int64 {
	t.Helper()
	var n int64
	q := store.DB.Model(new(T))
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestIngest_Metformin(t *testing.T) {
	svc, store := newTestService(t, newFakeIdentity(), metforminSources())
	ctx := context.Background()

	res := svc.Ingest(ctx, "Metformin")
	require.True(t, res.OK, res.Error)
	assert.Equal(t, "6809", res.CanonicalID)
	assert.Equal(t, "metformin", res.DisplayName)
	assert.Equal(t, StatePersisted, res.State)
	assert.Equal(t, 1, res.CardVersion)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, map[string]string{"trials": "no results", "products": "no results"}, res.Skipped)

	card, err := store.CurrentCard(ctx, res.CompoundID)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, card.RunID)
	assert.Equal(t, 3, card.StudyCount)
	assert.Contains(t, card.RegulatorySummary, "approved")
	assert.NotContains(t, card.RegulatorySummary, "boxed warning")
	assert.Contains(t, card.EvidenceSummary, "3 clinical studies")
	assert.Equal(t, 1, card.InteractionsCount)
	assert.Contains(t, card.UsesSummary, "type 2 diabetes mellitus")

	compound, err := store.CompoundByRxCUI(ctx, "6809")
	require.NoError(t, err)
	assert.Equal(t, "metformin", compound.CanonicalName)

	assert.EqualValues(t, 3, count[models.Synonym](t, store))
	assert.EqualValues(t, 1, count[models.Synonym](t, store, "is_preferred = ?", true))
	assert.EqualValues(t, 1, count[models.CompoundRelation](t, store))
	assert.EqualValues(t, 3, count[models.LabelSnippet](t, store))
	assert.EqualValues(t, 1, count[models.RegulatoryRecord](t, store))
	assert.EqualValues(t, 1, count[models.CompoundStructure](t, store))
	assert.EqualValues(t, 3, count[models.CompoundStudy](t, store))
	assert.EqualValues(t, 1, count[models.CompoundATC](t, store))
	assert.EqualValues(t, 1, count[models.CompoundTarget](t, store))
	assert.EqualValues(t, 1, count[models.SourceReference](t, store))
	assert.Zero(t, count[models.CompoundTrial](t, store))

	edges, err := store.InteractionsFor(ctx, compound.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "Cimetidine", edges[0].OtherDrugRawName)
	assert.Equal(t, models.InteractionUnresolved, edges[0].ResolutionStatus)
}

func TestIngest_AllOptionalSourcesSkipped(t *testing.T) {
	sources := Sources{
		Structure:  skipped[providers.Structure]("pubchem", "http 503"),
		Regulatory: skipped[providers.Regulatory]("openfda", "no label"),
		Literature: skipped[[]providers.Study]("pubmed", "timeout"),
	}
	svc, store := newTestService(t, newFakeIdentity(), sources)
	ctx := context.Background()

	res := svc.Ingest(ctx, "metformin")
	require.True(t, res.OK, res.Error)
	assert.Equal(t, StatePersisted, res.State)
	assert.Equal(t, "http 503", res.Skipped["structure"])
	assert.Equal(t, "disabled", res.Skipped["targets"])

	card, err := store.CurrentCard(ctx, res.CompoundID)
	require.NoError(t, err)
	assert.Empty(t, card.RegulatorySummary)
	assert.Empty(t, card.EvidenceSummary)
	assert.Zero(t, card.StudyCount)
	assert.False(t, card.Published)
}

func TestIngest_IdempotentIdentityAndMonotonicVersions(t *testing.T) {
	svc, store := newTestService(t, newFakeIdentity(), metforminSources())
	ctx := context.Background()

	first := svc.Ingest(ctx, "metformin")
	second := svc.Ingest(ctx, "Glucophage")
	require.True(t, first.OK)
	require.True(t, second.OK)

	assert.Equal(t, first.CompoundID, second.CompoundID)
	assert.Equal(t, 1, first.CardVersion)
	assert.Equal(t, 2, second.CardVersion)
	assert.EqualValues(t, 1, count[models.Compound](t, store))

	// REPLACE-Tabellen bleiben bei einer Zeile, APPEND-Tabellen wachsen
	assert.EqualValues(t, 1, count[models.RegulatoryRecord](t, store))
	assert.EqualValues(t, 3, count[models.Synonym](t, store))
	assert.EqualValues(t, 6, count[models.LabelSnippet](t, store))
	assert.EqualValues(t, 3, count[models.CompoundStudy](t, store))
	assert.EqualValues(t, 1, count[models.CompoundInteraction](t, store))

	history, err := store.CardHistory(ctx, first.CompoundID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Version)
	assert.Equal(t, second.RunID, history[0].RunID)
}

func TestIngest_ConcurrentRunsSameCompound(t *testing.T) {
	svc, store := newTestService(t, newFakeIdentity(), metforminSources())
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]IngestResult, 3)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.Ingest(ctx, "metformin")
		}()
	}
	wg.Wait()

	versions := map[int]bool{}
	for _, r := range results {
		require.True(t, r.OK, r.Error)
		versions[r.CardVersion] = true
	}
	assert.Len(t, versions, 3)
	assert.EqualValues(t, 3, count[models.CompoundCard](t, store))
}

func TestIngest_AbortsWhenNotFound(t *testing.T) {
	svc, store := newTestService(t, newFakeIdentity(), metforminSources())

	res := svc.Ingest(context.Background(), "notadrug")
	assert.False(t, res.OK)
	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, "RxCUI not found", res.Error)
	assert.Empty(t, res.CanonicalID)
	assert.Zero(t, count[models.Compound](t, store))
	assert.Zero(t, count[models.CompoundCard](t, store))
}

func TestIngest_AbortsOnResolverError(t *testing.T) {
	identity := newFakeIdentity()
	identity.err = errors.New("dial tcp: connection refused")
	svc, store := newTestService(t, identity, metforminSources())

	res := svc.Ingest(context.Background(), "metformin")
	assert.False(t, res.OK)
	assert.Equal(t, StateAborted, res.State)
	assert.Contains(t, res.Error, "identity resolver")
	assert.True(t, strings.HasPrefix(res.Error, NotFoundReason), res.Error)
	assert.True(t, res.NotFound())
	assert.Zero(t, count[models.Compound](t, store))
}

func TestIngest_RelatedOutageKeepsIdentityRows(t *testing.T) {
	var relatedDown atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rxcui.json":
			if strings.EqualFold(r.URL.Query().Get("name"), "metformin") {
				_, _ = w.Write([]byte(`{"idGroup":{"name":"metformin","rxnormId":["6809"]}}`))
				return
			}
			_, _ = w.Write([]byte(`{"idGroup":{}}`))
		case "/approximateTerm.json":
			_, _ = w.Write([]byte(`{"approximateGroup":{}}`))
		case "/rxcui/6809/properties.json":
			_, _ = w.Write([]byte(`{"properties":{"rxcui":"6809","name":"metformin","synonym":"","tty":"IN"}}`))
		case "/rxcui/6809/related.json":
			if relatedDown.Load() {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"relatedGroup":{"conceptGroup":[
				{"tty":"SCD","conceptProperties":[{"rxcui":"861004","name":"metformin hydrochloride 500 MG Oral Tablet"}]}
			]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{RxNavBaseURL: srv.URL, FetchInitialDelay: time.Millisecond}
	client := fetch.NewClient(zap.NewNop(), fetch.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	svc, store := newTestService(t, rxnorm.NewFetcher(cfg, client, zap.NewNop()), metforminSources())

	res := svc.Ingest(context.Background(), "metformin")
	require.True(t, res.OK, res.Error)
	assert.EqualValues(t, 1, count[models.CompoundRelation](t, store))
	assert.EqualValues(t, 2, count[models.Synonym](t, store))

	relatedDown.Store(true)
	res = svc.Ingest(context.Background(), "metformin")
	require.True(t, res.OK, res.Error)
	assert.Equal(t, 2, res.CardVersion)
	assert.EqualValues(t, 1, count[models.CompoundRelation](t, store))
	assert.EqualValues(t, 2, count[models.Synonym](t, store))
}

type fakeExtractor struct {
	pk  extract.Pharmacokinetics
	err error
}

func (f fakeExtractor) ExtractPharmacokinetics(context.Context, string) (extract.Pharmacokinetics, error) {
	return f.pk, f.err
}

func TestIngest_ExtractorFailureFallsBackToRegex(t *testing.T) {
	svc, store := newTestService(t, newFakeIdentity(), metforminSources())
	svc.Extractor = fakeExtractor{err: errors.New("rate limited")}
	ctx := context.Background()

	res := svc.Ingest(ctx, "metformin")
	require.True(t, res.OK, res.Error)
	card, err := store.CurrentCard(ctx, res.CompoundID)
	require.NoError(t, err)
	assert.NotNil(t, card.Pharmacokinetics)
}

type fakeOpenLinks struct{}

func (fakeOpenLinks) Enrich(_ context.Context, studies []providers.Study, _ int) int {
	for i := range studies {
		studies[i].FullTextURL = "https://oa.example/" + studies[i].PMID
	}
	return len(studies)
}

func TestIngest_OpenLinksStored(t *testing.T) {
	svc, store := newTestService(t, newFakeIdentity(), metforminSources())
	svc.OpenLinks = fakeOpenLinks{}

	res := svc.Ingest(context.Background(), "metformin")
	require.True(t, res.OK, res.Error)
	assert.EqualValues(t, 3, count[models.CompoundStudy](t, store, "full_text_url LIKE ?", "https://oa.example/%"))
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	var k keyedMutex
	unlock := k.Lock("6809")

	acquired := make(chan struct{})
	go func() {
		release := k.Lock("6809")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(20 * time.Millisecond):
	}

	other := k.Lock("2541")
	other()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}
