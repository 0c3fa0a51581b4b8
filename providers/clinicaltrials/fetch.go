// Package clinicaltrials sucht Studien zu einem Wirkstoff über die ClinicalTrials.gov Data API v2.
package clinicaltrials

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

const maxPageSize = 50

type studiesResponse struct {
	Studies []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			DesignModule struct {
				Phases []string `json:"phases"`
			} `json:"designModule"`
			StatusModule struct {
				OverallStatus string `json:"overallStatus"`
			} `json:"statusModule"`
			ConditionsModule struct {
				Conditions []string `json:"conditions"`
			} `json:"conditionsModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
	NextPageToken string `json:"nextPageToken"`
}

// Fetcher implementiert den Studien-Adapter.
type Fetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen ClinicalTrials.gov-Fetcher.
func NewFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (f *Fetcher) Name() string {
	return "clinicaltrials"
}

// FetchFor blättert über nextPageToken, bis MaxTrials eindeutige NCT-IDs gesammelt sind.
func (f *Fetcher) FetchFor(ctx context.Context, rxcui, displayName string) providers.Result[[]providers.Trial] {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return providers.Skipped[[]providers.Trial]("no name")
	}
	limit := f.Config.MaxTrials
	if limit <= 0 {
		limit = 20
	}
	log := f.Logger.With(zap.String("rxcui", rxcui), zap.String("name", name))
	opts := fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}

	var out []providers.Trial
	seen := map[string]bool{}
	pageToken := ""
	for len(out) < limit {
		params := url.Values{}
		params.Set("query.term", name)
		params.Set("format", "json")
		params.Set("pageSize", strconv.Itoa(min(limit, maxPageSize)))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp studiesResponse
		u := fmt.Sprintf("%s/studies?%s", f.Config.ClinicalTrialsBaseURL, params.Encode())
		if err := f.Client.GetJSON(ctx, u, opts, &resp); err != nil {
			if len(out) == 0 {
				log.Debug("ClinicalTrials.gov nicht abrufbar", zap.Error(err))
				return providers.Skipped[[]providers.Trial](err.Error())
			}
			log.Warn("ClinicalTrials.gov-Folgeseite fehlgeschlagen", zap.Int("trials", len(out)), zap.Error(err))
			break
		}

		for _, s := range resp.Studies {
			p := s.ProtocolSection
			nct := p.IdentificationModule.NCTID
			if nct == "" || seen[nct] {
				continue
			}
			seen[nct] = true
			out = append(out, providers.Trial{
				NCTID:      nct,
				Title:      p.IdentificationModule.BriefTitle,
				Phase:      strings.Join(p.DesignModule.Phases, ", "),
				Status:     p.StatusModule.OverallStatus,
				Conditions: strings.Join(p.ConditionsModule.Conditions, "; "),
				SourceURL:  "https://clinicaltrials.gov/study/" + nct,
			})
			if len(out) >= limit {
				break
			}
		}
		if resp.NextPageToken == "" || len(resp.Studies) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(out) == 0 {
		return providers.Skipped[[]providers.Trial]("no trials")
	}
	return providers.Present(out)
}
