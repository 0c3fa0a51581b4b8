// Package chembl holt Protein-Targets einer Substanz aus der ChEMBL-REST-API.
package chembl

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pharma-deck/config"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

const (
	activityLimit       = 500
	targetConcurrency   = 4
	targetReportCardFmt = "https://www.ebi.ac.uk/chembl/target_report_card/%s/"
)

type moleculeSearchResponse struct {
	Molecules []struct {
		MoleculeChEMBLID string `json:"molecule_chembl_id"`
	} `json:"molecules"`
}

type activityResponse struct {
	Activities []struct {
		TargetChEMBLID string `json:"target_chembl_id"`
		StandardType   string `json:"standard_type"`
	} `json:"activities"`
}

type targetComponent struct {
	Accessions []string `json:"accessions"`
	GeneName   string   `json:"gene_name"`
}

type targetResponse struct {
	TargetChEMBLID   string            `json:"target_chembl_id"`
	TargetType       string            `json:"target_type"`
	PrefName         string            `json:"pref_name"`
	Organism         string            `json:"organism"`
	TargetComponents []targetComponent `json:"target_components"`
	Components       []targetComponent `json:"components"`
}

var (
	transporterRegex = regexp.MustCompile(`\btransporter\b`)
	enzymeRegex      = regexp.MustCompile(`\benzyme\b`)
	carrierRegex     = regexp.MustCompile(`\bcarrier\b`)

	inhibitorRegex  = regexp.MustCompile(`\bic50|ki|kd|inhibition\b`)
	agonistRegex    = regexp.MustCompile(`\bec50|agonist|activation\b`)
	antagonistRegex = regexp.MustCompile(`\bantagonist\b`)
	substrateRegex  = regexp.MustCompile(`\bsubstrate\b`)
)

// TargetType ordnet ChEMBL-Targettyp und Name einem von target, enzyme, transporter, carrier zu.
func TargetType(chemblType, prefName string) string {
	lower := strings.ToLower(chemblType + " " + prefName)
	switch {
	case transporterRegex.MatchString(lower):
		return "transporter"
	case enzymeRegex.MatchString(lower):
		return "enzyme"
	case carrierRegex.MatchString(lower):
		return "carrier"
	default:
		return "target"
	}
}

// Action leitet die Wirkung aus dem Aktivitätstyp ab (IC50 -> inhibitor, EC50 -> agonist), sonst "".
func Action(standardType string) string {
	if standardType == "" {
		return ""
	}
	t := strings.ToLower(standardType)
	switch {
	case inhibitorRegex.MatchString(t):
		return "inhibitor"
	case agonistRegex.MatchString(t):
		return "agonist"
	case antagonistRegex.MatchString(t):
		return "antagonist"
	case substrateRegex.MatchString(t):
		return "substrate"
	default:
		return ""
	}
}

// Fetcher implementiert den Target-Adapter.
type Fetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen ChEMBL-Fetcher.
func NewFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (f *Fetcher) Name() string {
	return "chembl"
}

type activity struct {
	targetID     string
	standardType string
}

// FetchFor sucht das Molekül per Name, sammelt die Targets seiner Aktivitäten (dedupliziert,
// begrenzt auf MaxTargets) und lädt deren Metadaten.
func (f *Fetcher) FetchFor(ctx context.Context, rxcui, displayName string) providers.Result[[]providers.TargetLink] {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return providers.Skipped[[]providers.TargetLink]("no name")
	}
	log := f.Logger.With(zap.String("rxcui", rxcui), zap.String("name", name))
	opts := fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}

	var search moleculeSearchResponse
	searchURL := fmt.Sprintf("%s/molecule/search?q=%s&format=json", f.Config.ChEMBLBaseURL, url.QueryEscape(name))
	if err := f.Client.GetJSON(ctx, searchURL, opts, &search); err != nil {
		log.Debug("ChEMBL-Molekülsuche fehlgeschlagen", zap.Error(err))
		return providers.Skipped[[]providers.TargetLink](err.Error())
	}
	if len(search.Molecules) == 0 || search.Molecules[0].MoleculeChEMBLID == "" {
		return providers.Skipped[[]providers.TargetLink]("no molecule")
	}
	moleculeID := search.Molecules[0].MoleculeChEMBLID

	var acts activityResponse
	actURL := fmt.Sprintf("%s/activity.json?molecule_chembl_id=%s&limit=%d",
		f.Config.ChEMBLBaseURL, url.QueryEscape(moleculeID), activityLimit)
	if err := f.Client.GetJSON(ctx, actURL, opts, &acts); err != nil {
		log.Debug("ChEMBL-Aktivitäten nicht abrufbar", zap.String("molecule", moleculeID), zap.Error(err))
		return providers.Skipped[[]providers.TargetLink](err.Error())
	}

	var todo []activity
	seen := map[string]bool{}
	for _, a := range acts.Activities {
		if a.TargetChEMBLID == "" || seen[a.TargetChEMBLID] {
			continue
		}
		seen[a.TargetChEMBLID] = true
		todo = append(todo, activity{targetID: a.TargetChEMBLID, standardType: a.StandardType})
		if f.Config.MaxTargets > 0 && len(todo) >= f.Config.MaxTargets {
			break
		}
	}
	if len(todo) == 0 {
		return providers.Skipped[[]providers.TargetLink]("no activities")
	}

	links := make([]*providers.TargetLink, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(targetConcurrency)
	for i, a := range todo {
		g.Go(func() error {
			link, err := f.fetchTarget(gctx, a, opts)
			if err != nil {
				// ein fehlendes Target verwirft nicht die übrigen
				log.Debug("ChEMBL-Target übersprungen", zap.String("target", a.targetID), zap.Error(err))
				return nil
			}
			links[i] = link
			return nil
		})
	}
	_ = g.Wait()

	out := make([]providers.TargetLink, 0, len(links))
	for _, l := range links {
		if l != nil {
			out = append(out, *l)
		}
	}
	if len(out) == 0 {
		return providers.Skipped[[]providers.TargetLink]("no targets")
	}
	log.Debug("ChEMBL-Targets gefunden", zap.String("molecule", moleculeID), zap.Int("count", len(out)))
	return providers.Present(out)
}

func (f *Fetcher) fetchTarget(ctx context.Context, a activity, opts fetch.Options) (*providers.TargetLink, error) {
	var t targetResponse
	targetURL := fmt.Sprintf("%s/target/%s.json", f.Config.ChEMBLBaseURL, url.PathEscape(a.targetID))
	if err := f.Client.GetJSON(ctx, targetURL, opts, &t); err != nil {
		return nil, err
	}

	components := t.TargetComponents
	if len(components) == 0 {
		components = t.Components
	}
	name := t.PrefName
	if name == "" {
		name = a.targetID
	}

	target := providers.Target{
		ChEMBLID: a.targetID,
		Name:     name,
		Organism: t.Organism,
		Type:     TargetType(t.TargetType, name),
	}
	if len(components) > 0 {
		if len(components[0].Accessions) > 0 {
			target.UniProtID = components[0].Accessions[0]
		}
		target.GeneSymbol = components[0].GeneName
	}
	for _, c := range components {
		if c.GeneName != "" && !slices.Contains(target.Aliases, c.GeneName) {
			target.Aliases = append(target.Aliases, c.GeneName)
		}
	}

	return &providers.TargetLink{
		Target:    target,
		Action:    Action(a.standardType),
		SourceURL: fmt.Sprintf(targetReportCardFmt, a.targetID),
	}, nil
}
