package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pharma-deck/extract"
	"pharma-deck/models"
	"pharma-deck/storage"
)

// InteractionWriter schreibt eine Kante über ihren PairKey.
type InteractionWriter interface {
	UpsertInteraction(ctx context.Context, edge models.CompoundInteraction, promoteFrom string) (*models.CompoundInteraction, error)
}

// PartnerResolver löst Partnernamen auf, typischerweise ein *NameCache.
type PartnerResolver interface {
	Resolve(ctx context.Context, raw string) (*Resolution, error)
}

// InteractionReport zählt das Ergebnis einer Kantenkonstruktion.
type InteractionReport struct {
	Candidates int
	Resolved   int
	Unresolved int
	Major      int
	Failed     int
}

// Total ist die Zahl der geschriebenen Kanten.
func (r InteractionReport) Total() int {
	return r.Resolved + r.Unresolved
}

// Summary beschreibt die Kanten in einem Satz oder liefert "".
func (r InteractionReport) Summary() string {
	if r.Total() == 0 {
		return ""
	}
	s := fmt.Sprintf("%d documented interactions (%d with identified compounds)", r.Total(), r.Resolved)
	if r.Total() == 1 {
		s = fmt.Sprintf("1 documented interaction (%d with identified compounds)", r.Resolved)
	}
	if r.Major > 0 {
		s += fmt.Sprintf(", %d major", r.Major)
	}
	return s + "."
}

// BuildInteractionEdges zerlegt den Interaktionsabschnitt eines Labels in Partnerkandidaten,
// löst jeden über resolver auf und schreibt je Kandidat eine Kante. Aufgelöste Partner ergeben
// eine kanonisch geordnete Kante, unaufgelöste eine einseitige Zeile mit dem Rohnamen.
// Fehler einzelner Kandidaten werden geloggt und gezählt, nie zurückgegeben.
func BuildInteractionEdges(ctx context.Context, w InteractionWriter, resolver PartnerResolver,
	compoundID, text, source string, logger *zap.Logger) InteractionReport {
	var report InteractionReport
	writeCtx := context.WithoutCancel(ctx)

	for _, cand := range extract.InteractionCandidates(text) {
		report.Candidates++
		log := logger.With(zap.String("partner", cand.Name))

		res, err := resolver.Resolve(ctx, cand.Name)
		if err != nil {
			log.Warn("Interaktionspartner nicht auflösbar", zap.Error(err))
			report.Failed++
			continue
		}
		if res != nil && res.CompoundID == compoundID {
			continue
		}

		severity := extract.InferSeverity(cand.Description)
		edge := models.CompoundInteraction{
			Severity:         severity,
			Description:      cand.Description,
			Source:           source,
			OtherDrugRawName: cand.Name,
		}
		rawKey := storage.RawPairKey(compoundID, cand.Name)
		promoteFrom := ""
		if res != nil {
			lo, hi := min(compoundID, res.CompoundID), max(compoundID, res.CompoundID)
			edge.PairKey = storage.PairKey(lo, hi)
			edge.CompoundAID = lo
			edge.CompoundBID = &hi
			edge.ResolutionStatus = models.InteractionResolved
			promoteFrom = rawKey
		} else {
			edge.PairKey = rawKey
			edge.CompoundAID = compoundID
			edge.ResolutionStatus = models.InteractionUnresolved
		}

		if _, err := w.UpsertInteraction(writeCtx, edge, promoteFrom); err != nil {
			log.Warn("Interaktion nicht gespeichert", zap.String("pair_key", edge.PairKey), zap.Error(err))
			report.Failed++
			continue
		}
		if res != nil {
			report.Resolved++
		} else {
			report.Unresolved++
		}
		if severity == extract.SeverityMajor {
			report.Major++
		}
	}
	return report
}
