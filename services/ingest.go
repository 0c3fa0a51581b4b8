package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pharma-deck/config"
	"pharma-deck/extract"
	"pharma-deck/metrics"
	"pharma-deck/pharmaai"
	"pharma-deck/providers"
	"pharma-deck/providers/rxnorm"
	"pharma-deck/storage"
)

const (
	maxSynonyms      = 50
	maxStudySummary  = 2000
	targetConfidence = 0.5
	labelSource      = "openfda_label"
)

// NotFoundReason ist der Abbruchgrund, wenn RxNorm den Namen nicht kennt oder nicht erreichbar ist.
const NotFoundReason = "RxCUI not found"

// State ist der Zustand eines Ingestion-Laufs.
type State string

const (
	StateIdle              State = "idle"
	StateResolvingIdentity State = "resolving_identity"
	StateEnrichingParallel State = "enriching_parallel"
	StateMerging           State = "merging"
	StatePersisted         State = "persisted"
	StateAborted           State = "aborted"
)

// Identity ist der Pflicht-Resolver (RxNorm).
type Identity interface {
	Resolve(ctx context.Context, name string) (string, error)
	DisplayName(ctx context.Context, rxcui string) (string, error)
	RelatedConcepts(ctx context.Context, rxcui string) ([]providers.Concept, error)
	Synonyms(ctx context.Context, rxcui string, related []providers.Concept) ([]string, error)
}

// StudyEnricher ergänzt Volltext-Links der Studien (Unpaywall).
type StudyEnricher interface {
	Enrich(ctx context.Context, studies []providers.Study, limit int) int
}

// Sources sind die optionalen Quellen. Eine nil-Quelle gilt als übersprungen.
type Sources struct {
	Structure  providers.Adapter[providers.Structure]
	Regulatory providers.Adapter[providers.Regulatory]
	Literature providers.Adapter[[]providers.Study]
	Targets    providers.Adapter[[]providers.TargetLink]
	Classes    providers.Adapter[[]providers.ATCClass]
	Trials     providers.Adapter[[]providers.Trial]
	Products   providers.Adapter[[]providers.Product]
}

// IngestResult ist das Ergebnis eines Laufs. Bei OK=false steht die Ursache in Error.
type IngestResult struct {
	CanonicalID string            `json:"canonical_id"`
	DisplayName string            `json:"display_name"`
	OK          bool              `json:"ok"`
	Error       string            `json:"error,omitempty"`
	CompoundID  string            `json:"compound_id,omitempty"`
	CardVersion int               `json:"card_version,omitempty"`
	RunID       string            `json:"run_id"`
	State       State             `json:"state"`
	Skipped     map[string]string `json:"skipped,omitempty"`
}

// NotFound meldet, ob der Lauf ohne auflösbare Identität abgebrochen wurde.
func (r IngestResult) NotFound() bool {
	return r.State == StateAborted && strings.HasPrefix(r.Error, NotFoundReason)
}

// IngestService orchestriert einen Lauf: Identität auflösen, Quellen parallel abfragen,
// Ergebnisse speichern und eine neue Card-Version schreiben.
type IngestService struct {
	Config   *config.Config
	Store    *storage.Store
	Identity Identity
	Sources  Sources
	Names    *NameCache
	Logger   *zap.Logger

	// Optional
	Extractor pharmaai.Extractor
	OpenLinks StudyEnricher
	Archive   *storage.Archive

	locks keyedMutex
}

// NewIngestService erstellt den Orchestrator. Der NameCache wird aus Identity und Store gebildet.
func NewIngestService(cfg *config.Config, store *storage.Store, identity Identity, sources Sources, logger *zap.Logger) *IngestService {
	return &IngestService{
		Config:   cfg,
		Store:    store,
		Identity: identity,
		Sources:  sources,
		Names:    NewNameCache(identity, store),
		Logger:   logger,
	}
}

// run merkt sich Zustand und übersprungene Quellen eines Laufs.
type run struct {
	mu     sync.Mutex
	result IngestResult
	log    *zap.Logger
}

func (r *run) enter(state State) {
	r.result.State = state
	r.log.Debug("Zustandswechsel", zap.String("state", string(state)))
}

func (r *run) abort(reason string) IngestResult {
	r.result.State = StateAborted
	r.result.OK = false
	r.result.Error = reason
	r.log.Warn("Lauf abgebrochen", zap.String("reason", reason))
	return r.result
}

// track zählt das Ergebnis einer Quelle und merkt sich den Grund fürs Überspringen.
func track[T any](r *run, facet, source string, res providers.Result[T]) providers.Result[T] {
	if source == "" {
		source = facet
	}
	if res.IsPresent() {
		metrics.AdapterResults.WithLabelValues(source, "present").Inc()
		return res
	}
	metrics.AdapterResults.WithLabelValues(source, "skipped").Inc()
	r.mu.Lock()
	r.result.Skipped[facet] = res.Reason
	r.mu.Unlock()
	r.log.Info("Quelle übersprungen", zap.String("source", source), zap.String("reason", res.Reason))
	return res
}

func fetchFrom[T any](ctx context.Context, a providers.Adapter[T], rxcui, name string) (string, providers.Result[T]) {
	if a == nil {
		return "", providers.Skipped[T]("disabled")
	}
	return a.Name(), a.FetchFor(ctx, rxcui, name)
}

// Ingest führt einen vollständigen Lauf für einen Freitextnamen aus. Nur die Identitätsauflösung
// und das Speichern der Substanz und der Card können den Lauf scheitern lassen.
func (s *IngestService) Ingest(ctx context.Context, name string) IngestResult {
	start := time.Now()
	r := &run{
		result: IngestResult{DisplayName: name, RunID: uuid.NewString(), State: StateIdle, Skipped: map[string]string{}},
		log:    s.Logger.With(zap.String("input", name)),
	}
	defer func() {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
		outcome := string(r.result.State)
		if !r.result.OK && r.result.State != StateAborted {
			outcome = "failed"
		}
		metrics.IngestRuns.WithLabelValues(outcome).Inc()
		if len(r.result.Skipped) == 0 {
			r.result.Skipped = nil
		}
	}()

	r.enter(StateResolvingIdentity)
	rxcui, err := s.Identity.Resolve(ctx, name)
	switch {
	case errors.Is(err, rxnorm.ErrNotFound):
		return r.abort(NotFoundReason)
	case err != nil:
		return r.abort(fmt.Sprintf("%s: identity resolver: %v", NotFoundReason, err))
	}
	r.result.CanonicalID = rxcui
	r.log = r.log.With(zap.String("rxcui", rxcui), zap.String("run_id", r.result.RunID))

	unlock := s.locks.Lock(rxcui)
	defer unlock()

	displayName, err := s.Identity.DisplayName(ctx, rxcui)
	if err != nil {
		r.log.Warn("Anzeigename nicht abrufbar", zap.Error(err))
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = strings.TrimSpace(name)
	}
	r.result.DisplayName = displayName

	writeCtx := context.WithoutCancel(ctx)
	compound, err := s.Store.UpsertCompound(writeCtx, rxcui, displayName)
	if err != nil {
		return r.abort(fmt.Sprintf("persist compound: %v", err))
	}
	r.result.CompoundID = compound.ID

	r.enter(StateEnrichingParallel)
	e := Enrichment{RunID: r.result.RunID, Compound: *compound}
	var (
		related  []providers.Concept
		synonyms []string
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		src, res := fetchFrom(ctx, s.Sources.Structure, rxcui, displayName)
		e.Structure = track(r, "structure", src, res)
		return nil
	})
	g.Go(func() error {
		src, res := fetchFrom(ctx, s.Sources.Regulatory, rxcui, displayName)
		e.Regulatory = track(r, "regulatory", src, res)
		return nil
	})
	g.Go(func() error {
		src, res := fetchFrom(ctx, s.Sources.Literature, rxcui, displayName)
		if studies, ok := res.Get(); ok && s.OpenLinks != nil {
			found := s.OpenLinks.Enrich(ctx, studies, len(studies))
			r.log.Debug("Volltext-Links ergänzt", zap.Int("found", found))
		}
		e.Studies = track(r, "literature", src, res)
		return nil
	})
	g.Go(func() error {
		// ohne verwandte Konzepte bleiben Relationen und Synonyme unverändert
		fetched, err := s.Identity.RelatedConcepts(ctx, rxcui)
		if err != nil {
			r.log.Warn("Verwandte Konzepte nicht abrufbar", zap.Error(err))
			return nil
		}
		fetched = append([]providers.Concept{}, fetched...)
		syns, err := s.Identity.Synonyms(ctx, rxcui, fetched)
		if err != nil {
			r.log.Warn("Synonyme nicht abrufbar", zap.Error(err))
		} else {
			synonyms = syns
		}
		related = fetched
		return nil
	})
	_ = g.Wait()

	s.persistIdentity(writeCtx, r, compound, synonyms, related)
	s.persistFirstGroup(writeCtx, r, &e)

	reg, _ := e.Regulatory.Get()
	g = new(errgroup.Group)
	g.Go(func() error {
		src, res := fetchFrom(ctx, s.Sources.Targets, rxcui, displayName)
		e.Targets = track(r, "targets", src, res)
		return nil
	})
	g.Go(func() error {
		src, res := fetchFrom(ctx, s.Sources.Classes, rxcui, displayName)
		e.Classes = track(r, "classification", src, res)
		return nil
	})
	g.Go(func() error {
		src, res := fetchFrom(ctx, s.Sources.Trials, rxcui, displayName)
		e.Trials = track(r, "trials", src, res)
		return nil
	})
	g.Go(func() error {
		src, res := fetchFrom(ctx, s.Sources.Products, rxcui, displayName)
		e.Products = track(r, "products", src, res)
		return nil
	})
	g.Go(func() error {
		text := extract.FindSection(reg.Sections, extract.InteractionTopic)
		if text == "" || s.Names == nil {
			return nil
		}
		e.Interactions = BuildInteractionEdges(ctx, s.Store, s.Names, compound.ID, text, labelSource, r.log)
		r.log.Info("Interaktionen verarbeitet",
			zap.Int("candidates", e.Interactions.Candidates),
			zap.Int("resolved", e.Interactions.Resolved),
			zap.Int("unresolved", e.Interactions.Unresolved),
			zap.Int("failed", e.Interactions.Failed))
		return nil
	})
	g.Go(func() error {
		text := KineticsText(reg)
		if s.Extractor == nil || strings.TrimSpace(text) == "" {
			return nil
		}
		pk, err := s.Extractor.ExtractPharmacokinetics(ctx, text)
		if err != nil {
			r.log.Warn("KI-Extraktion fehlgeschlagen, nur Regex-Werte", zap.Error(err))
			return nil
		}
		e.RichKinetics = &pk
		return nil
	})
	_ = g.Wait()

	s.persistSecondGroup(writeCtx, r, &e)

	r.enter(StateMerging)
	card, err := BuildCard(e)
	if err != nil {
		r.result.Error = fmt.Sprintf("build card: %v", err)
		return r.result
	}
	if err := s.Store.AppendCard(writeCtx, card); err != nil {
		r.result.Error = fmt.Sprintf("persist card: %v", err)
		return r.result
	}
	metrics.CardsWritten.Inc()
	r.result.CardVersion = card.Version

	if s.Archive != nil {
		if link, err := s.Archive.PutCard(writeCtx, card); err != nil {
			r.log.Warn("Card-Snapshot nicht archiviert", zap.Error(err))
		} else {
			r.log.Debug("Card-Snapshot archiviert", zap.String("link", link))
		}
	}

	r.enter(StatePersisted)
	r.result.OK = true
	r.log.Info("Lauf abgeschlossen",
		zap.Int("version", card.Version),
		zap.Int("studies", card.StudyCount),
		zap.Int("targets", card.TargetCount),
		zap.Duration("duration", time.Since(start)))
	return r.result
}
