package openfda

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

const ndcMaxPageSize = 100

// ProductFetcher implementiert den Produkt-Adapter auf Basis von drug/ndc.json.
type ProductFetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewProductFetcher erstellt einen neuen NDC-Fetcher.
func NewProductFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *ProductFetcher {
	return &ProductFetcher{Config: cfg, Client: client, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (f *ProductFetcher) Name() string {
	return "openfda_ndc"
}

// FetchFor blättert durch die NDC-Treffer des Substanznamens und dedupliziert nach Produkt-NDC.
func (f *ProductFetcher) FetchFor(ctx context.Context, rxcui, displayName string) providers.Result[[]providers.Product] {
	name := firstWord(displayName)
	if name == "" {
		return providers.Skipped[[]providers.Product]("no name")
	}
	limit := f.Config.MaxProducts
	if limit <= 0 {
		limit = 30
	}
	pageSize := min(limit, ndcMaxPageSize)
	log := f.Logger.With(zap.String("rxcui", rxcui), zap.String("substance", name))
	opts := fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}

	seen := make(map[string]bool)
	var out []providers.Product
	for skip := 0; len(out) < limit; skip += pageSize {
		u := fmt.Sprintf("%s/drug/ndc.json?search=%s&limit=%d&skip=%d",
			f.Config.OpenFDABaseURL, url.QueryEscape("openfda.substance_name:"+name), pageSize, skip)
		if f.Config.OpenFDAAPIKey != "" {
			u += "&api_key=" + url.QueryEscape(f.Config.OpenFDAAPIKey)
		}
		var page ndcResponse
		if err := f.Client.GetJSON(ctx, u, opts, &page); err != nil {
			if skip == 0 {
				log.Debug("NDC-Suche ohne Ergebnis", zap.Error(err))
				return providers.Skipped[[]providers.Product](err.Error())
			}
			log.Warn("NDC-Folgeseite fehlgeschlagen, behalte bisherige Treffer", zap.Int("skip", skip), zap.Error(err))
			break
		}
		for _, row := range page.Results {
			if row.ProductNDC == "" || seen[row.ProductNDC] {
				continue
			}
			seen[row.ProductNDC] = true
			out = append(out, mapProduct(row))
			if len(out) >= limit {
				break
			}
		}
		total := page.Meta.Results.Total
		if len(page.Results) < pageSize || (total > 0 && skip+pageSize >= total) {
			break
		}
	}
	if len(out) == 0 {
		return providers.Skipped[[]providers.Product]("no products")
	}
	log.Debug("NDC-Produkte gefunden", zap.Int("count", len(out)))
	return providers.Present(out)
}

func mapProduct(row ndcProduct) providers.Product {
	strengths := make([]string, 0, len(row.ActiveIngredients))
	for _, ai := range row.ActiveIngredients {
		if ai.Strength == "" {
			continue
		}
		strengths = append(strengths, strings.TrimSpace(ai.Name+" "+ai.Strength))
	}
	manufacturer := row.LabelerName
	if len(row.OpenFDA.ManufacturerName) > 0 {
		manufacturer = row.OpenFDA.ManufacturerName[0]
	}
	return providers.Product{
		ProductNDC:        row.ProductNDC,
		DosageForm:        row.DosageForm,
		Strength:          strings.Join(strengths, "; "),
		Manufacturer:      manufacturer,
		BrandName:         row.BrandName,
		GenericName:       row.GenericName,
		Route:             strings.Join(row.Route, "; "),
		ApprovalStatus:    row.MarketingCategory,
		ApplicationNumber: row.ApplicationNumber,
	}
}
