package services

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pharma-deck/extract"
	"pharma-deck/metrics"
	"pharma-deck/models"
	"pharma-deck/providers"
	"pharma-deck/storage"
)

// optional loggt und zählt den Fehler eines optionalen Schreibvorgangs.
func optional(r *run, table string, err error) {
	if err == nil {
		return
	}
	metrics.WriteFailures.WithLabelValues(table).Inc()
	r.log.Warn("Optionale Tabelle nicht geschrieben", zap.String("table", table), zap.Error(err))
}

func byCompound(id string) map[string]any {
	return map[string]any{"compound_id": id}
}

// persistIdentity ersetzt Synonyme und verwandte Konzepte. nil bedeutet "nicht abgerufen", dann
// bleibt der Bestand unverändert.
func (s *IngestService) persistIdentity(ctx context.Context, r *run, c *models.Compound, synonyms []string, related []providers.Concept) {
	if synonyms != nil {
		rows := make([]models.Synonym, 0, min(len(synonyms), maxSynonyms))
		for _, term := range synonyms[:min(len(synonyms), maxSynonyms)] {
			rows = append(rows, models.Synonym{
				CompoundID:  c.ID,
				Term:        term,
				Source:      "rxnorm",
				IsPreferred: strings.EqualFold(term, c.CanonicalName),
			})
		}
		optional(r, "synonyms", storage.ReplaceRows(ctx, s.Store, byCompound(c.ID), rows))
	}

	if related != nil {
		rows := make([]models.CompoundRelation, 0, len(related))
		for _, rc := range related {
			if rc.RxCUI == c.RxCUI {
				continue
			}
			rows = append(rows, models.CompoundRelation{
				FromCompoundID: c.ID,
				ToRxCUI:        rc.RxCUI,
				ToName:         rc.Name,
				RelationType:   rc.TTY,
			})
		}
		optional(r, "compound_relations",
			storage.ReplaceRows(ctx, s.Store, map[string]any{"from_compound_id": c.ID}, rows))
	}
}

// persistFirstGroup schreibt Label, Zulassung, Struktur und Studien.
func (s *IngestService) persistFirstGroup(ctx context.Context, r *run, e *Enrichment) {
	id := e.Compound.ID

	if reg, ok := e.Regulatory.Get(); ok {
		if desc := LabelDescription(reg); desc != "" {
			if err := s.Store.SetCompoundDescription(ctx, id, desc); err != nil {
				optional(r, "compounds", err)
			} else {
				e.Compound.Description = desc
			}
		}

		var snippets []models.LabelSnippet
		for _, sec := range reg.Sections {
			sectionType, known := extract.SectionType(sec.Section)
			if !known {
				continue
			}
			snippets = append(snippets, models.LabelSnippet{
				CompoundID:    id,
				RunID:         e.RunID,
				Section:       sec.Section,
				SectionType:   sectionType,
				Text:          extract.NormalizeLabelText(sec.Text),
				Source:        labelSource,
				SourceURL:     sec.SourceURL,
				SourceVersion: reg.SourceVersion,
			})
		}
		optional(r, "label_snippets", storage.AppendRows(ctx, s.Store, snippets))

		optional(r, "regulatory_records", storage.ReplaceRows(ctx, s.Store, byCompound(id), []models.RegulatoryRecord{{
			CompoundID:                  id,
			ApprovalStatus:              reg.ApprovalStatus,
			ApprovalType:                reg.ApprovalType,
			ApprovalDate:                reg.ApprovalDate,
			ApplicationNumber:           reg.ApplicationNumber,
			SponsorName:                 reg.SponsorName,
			LabelURL:                    reg.LabelURL,
			BoxedWarning:                reg.BoxedWarning,
			REMS:                        reg.REMS,
			ControlledSubstanceSchedule: reg.ControlledSubstanceSchedule,
		}}))
	}

	if st, ok := e.Structure.Get(); ok {
		optional(r, "compound_structures", storage.ReplaceRows(ctx, s.Store, byCompound(id), []models.CompoundStructure{{
			CompoundID:      id,
			CID:             st.CID,
			Formula:         st.Formula,
			MolecularWeight: st.MolecularWeight,
			InChIKey:        st.InChIKey,
			SMILES:          st.SMILES,
		}}))
	}

	for _, st := range e.Studies.OrZero() {
		_, err := s.Store.UpsertStudy(ctx, models.CompoundStudy{
			CompoundID:      id,
			PMID:            st.PMID,
			Title:           st.Title,
			Journal:         st.Journal,
			PublicationDate: st.PublicationDate,
			StudyType:       st.StudyType,
			Summary:         extract.Truncate(st.Abstract, maxStudySummary),
			DOI:             st.DOI,
			URL:             st.URL,
			FullTextURL:     st.FullTextURL,
		})
		optional(r, "compound_studies", err)
	}
}

// persistSecondGroup schreibt Targets, ATC-Klassen, Studienregister und Produkte.
func (s *IngestService) persistSecondGroup(ctx context.Context, r *run, e *Enrichment) {
	id := e.Compound.ID

	for _, link := range e.Targets.OrZero() {
		s.persistTarget(ctx, r, id, link)
	}

	if classes, ok := e.Classes.Get(); ok {
		rows := make([]models.CompoundATC, 0, len(classes))
		for _, c := range classes {
			rows = append(rows, models.CompoundATC{CompoundID: id, Code: c.Code, Name: c.Name, Level: c.Level})
		}
		optional(r, "compound_atc", storage.ReplaceRows(ctx, s.Store, byCompound(id), rows))
	}

	if trials, ok := e.Trials.Get(); ok {
		rows := make([]models.CompoundTrial, 0, len(trials))
		for _, t := range trials {
			rows = append(rows, models.CompoundTrial{
				CompoundID: id,
				NCTID:      t.NCTID,
				Title:      t.Title,
				Phase:      t.Phase,
				Status:     t.Status,
				Conditions: t.Conditions,
				SourceURL:  t.SourceURL,
			})
		}
		optional(r, "compound_trials", storage.ReplaceRows(ctx, s.Store, byCompound(id), rows))
	}

	if products, ok := e.Products.Get(); ok {
		rows := make([]models.CompoundProduct, 0, len(products))
		for _, p := range products {
			rows = append(rows, models.CompoundProduct{
				CompoundID:        id,
				ProductNDC:        p.ProductNDC,
				DosageForm:        p.DosageForm,
				Strength:          p.Strength,
				Manufacturer:      p.Manufacturer,
				BrandName:         p.BrandName,
				GenericName:       p.GenericName,
				Route:             p.Route,
				ApprovalStatus:    p.ApprovalStatus,
				ApplicationNumber: p.ApplicationNumber,
			})
		}
		optional(r, "compound_products", storage.ReplaceRows(ctx, s.Store, byCompound(id), rows))
	}
}

func (s *IngestService) persistTarget(ctx context.Context, r *run, compoundID string, link providers.TargetLink) {
	aliases, err := json.Marshal(link.Target.Aliases)
	if err != nil {
		optional(r, "targets", err)
		return
	}
	target, err := s.Store.UpsertTarget(ctx, models.Target{
		TargetKey:  link.Target.Key(),
		ChEMBLID:   link.Target.ChEMBLID,
		UniProtID:  link.Target.UniProtID,
		Name:       link.Target.Name,
		GeneSymbol: link.Target.GeneSymbol,
		Organism:   link.Target.Organism,
		Aliases:    datatypes.JSON(aliases),
		Type:       link.Target.Type,
		Source:     "chembl",
	})
	if err != nil {
		optional(r, "targets", err)
		return
	}

	confidence := targetConfidence
	ct := models.CompoundTarget{
		CompoundID:       compoundID,
		TargetID:         target.ID,
		Confidence:       &confidence,
		EvidenceStrength: "bioactivity",
	}
	if link.Action != "" {
		action := link.Action
		ct.Action = &action
	}
	if link.SourceURL != "" {
		ref, err := s.Store.SourceRef(ctx, "chembl", link.SourceURL, link.Target.Name)
		if err != nil {
			optional(r, "source_references", err)
		} else {
			ct.SourceRefID = &ref.ID
		}
	}
	_, err = s.Store.UpsertCompoundTarget(ctx, ct)
	optional(r, "compound_targets", err)
}
