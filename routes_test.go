package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/extract"
	"pharma-deck/models"
	"pharma-deck/providers"
	"pharma-deck/providers/rxnorm"
	"pharma-deck/services"
	"pharma-deck/storage"
	"pharma-deck/storage/storagetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubIdentity map[string]string

func (s stubIdentity) Resolve(_ context.Context, name string) (string, error) {
	if extract.NormalizeName(name) == "outage" {
		return "", errors.New("dial tcp: connection refused")
	}
	if id, ok := s[extract.NormalizeName(name)]; ok {
		return id, nil
	}
	return "", rxnorm.ErrNotFound
}

func (s stubIdentity) DisplayName(_ context.Context, rxcui string) (string, error) {
	for name, id := range s {
		if id == rxcui {
			return name, nil
		}
	}
	return "", nil
}

func (stubIdentity) RelatedConcepts(context.Context, string) ([]providers.Concept, error) {
	return []providers.Concept{}, nil
}

func (stubIdentity) Synonyms(context.Context, string, []providers.Concept) ([]string, error) {
	return nil, nil
}

func testRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *storage.Store) {
	t.Helper()
	store := storagetest.New(t)
	identity := stubIdentity{"metformin": "6809", "cimetidine": "2541"}
	sources := services.Sources{
		Regulatory: providers.AdapterFunc[providers.Regulatory]{
			Source: "openfda",
			Fn: func(_ context.Context, rxcui, _ string) providers.Result[providers.Regulatory] {
				if rxcui != "6809" {
					return providers.Skipped[providers.Regulatory]("no label")
				}
				return providers.Present(providers.Regulatory{
					ApprovalStatus: "approved",
					Sections: []providers.LabelSection{
						{Section: "indications_and_usage", Text: "Type 2 diabetes mellitus."},
						{Section: "drug_interactions", Text: "Cimetidine (a cationic drug) may increase metformin exposure.\nFoo Bar: avoid."},
					},
				})
			},
		},
	}
	svc := services.NewIngestService(cfg, store, identity, sources, zap.NewNop())
	return newRouter(cfg, store, svc, zap.NewNop()), store
}

func do(t *testing.T, router http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAPIKeyMiddleware(t *testing.T) {
	router, _ := testRouter(t, &config.Config{APISecretKey: "secret"})

	w := do(t, router, http.MethodGet, "/compounds", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, http.MethodGet, "/compounds", "", "X-API-KEY", "secret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestRoute(t *testing.T) {
	router, _ := testRouter(t, &config.Config{})

	w := do(t, router, http.MethodPost, "/ingest", `{"name":"Metformin"}`, "Content-Type", "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[services.IngestResult](t, w)
	assert.True(t, res.OK)
	assert.Equal(t, "6809", res.CanonicalID)
	assert.Equal(t, 1, res.CardVersion)

	w = do(t, router, http.MethodPost, "/ingest", `{"name":"notadrug"}`, "Content-Type", "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.NotFoundReason, decode[services.IngestResult](t, w).Error)

	w = do(t, router, http.MethodPost, "/ingest", `{"name":"outage"}`, "Content-Type", "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[services.IngestResult](t, w).Error, "identity resolver")

	w = do(t, router, http.MethodPost, "/ingest", `{}`, "Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCardRoutes(t *testing.T) {
	router, _ := testRouter(t, &config.Config{})
	for range 2 {
		w := do(t, router, http.MethodPost, "/ingest", `{"name":"metformin"}`, "Content-Type", "application/json")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := do(t, router, http.MethodGet, "/compounds/6809/card", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.CompoundCard](t, w).Version)

	w = do(t, router, http.MethodGet, "/compounds/6809/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.CompoundCard](t, w), 2)

	w = do(t, router, http.MethodGet, "/cards/metformin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "6809", decode[models.CompoundCard](t, w).RxCUI)

	w = do(t, router, http.MethodGet, "/compounds/404/card", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/compounds", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Compound](t, w), 1)

	w = do(t, router, http.MethodPost, "/compounds/6809/obsolete", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/compounds?status=active", "")
	assert.Empty(t, decode[[]models.Compound](t, w))
}

func TestInteractionsRoute_ResolvesPartnerNames(t *testing.T) {
	router, _ := testRouter(t, &config.Config{})
	for _, name := range []string{"cimetidine", "metformin"} {
		w := do(t, router, http.MethodPost, "/ingest", `{"name":"`+name+`"}`, "Content-Type", "application/json")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := do(t, router, http.MethodGet, "/compounds/6809/interactions", "")
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[[]interactionView](t, w)
	require.Len(t, views, 2)

	byName := map[string]interactionView{}
	for _, v := range views {
		byName[v.OtherName] = v
	}
	require.Contains(t, byName, "cimetidine")
	assert.Equal(t, "2541", byName["cimetidine"].OtherRxCUI)
	assert.Equal(t, models.InteractionResolved, byName["cimetidine"].ResolutionStatus)
	require.Contains(t, byName, "Foo Bar")
	assert.Nil(t, byName["Foo Bar"].OtherCompoundID)

	w = do(t, router, http.MethodGet, "/compounds/2541/interactions", "")
	require.Equal(t, http.StatusOK, w.Code)
	views = decode[[]interactionView](t, w)
	require.Len(t, views, 1)
	assert.Equal(t, "metformin", views[0].OtherName)
}

func TestQueueRoutes(t *testing.T) {
	router, _ := testRouter(t, &config.Config{})
	csv := "rank,canonical_name,rxcui\n1,metformin,6809\n2,cimetidine,2541\n3,unknown,\n"

	w := do(t, router, http.MethodPost, "/queue/seed", csv, "Content-Type", "text/csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]int{"seeded": 2}, decode[map[string]int](t, w))

	w = do(t, router, http.MethodGet, "/queue/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int64{models.QueuePending: 2}, decode[map[string]int64](t, w))

	w = do(t, router, http.MethodPost, "/queue/requeue?max_attempts=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int64{"requeued": 0}, decode[map[string]int64](t, w))
}
