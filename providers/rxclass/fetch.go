// Package rxclass holt ATC-Klassifikationen einer RxCUI aus der RxClass-API.
package rxclass

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

type classResponse struct {
	RxclassDrugInfoList struct {
		RxclassDrugInfo []struct {
			RxclassMinConceptItem struct {
				ClassID   string `json:"classId"`
				ClassName string `json:"className"`
				ClassType string `json:"classType"`
			} `json:"rxclassMinConceptItem"`
			RelaSource string `json:"relaSource"`
		} `json:"rxclassDrugInfo"`
	} `json:"rxclassDrugInfoList"`
}

// Level leitet die ATC-Ebene (1 bis 5) aus der Länge des Codes ab.
func Level(code string) int {
	switch n := len(code); {
	case n <= 1:
		return 1
	case n <= 3:
		return 2
	case n <= 4:
		return 3
	case n <= 5:
		return 4
	default:
		return 5
	}
}

// Fetcher implementiert den Klassifikations-Adapter.
type Fetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen RxClass-Fetcher.
func NewFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (f *Fetcher) Name() string {
	return "rxclass"
}

// FetchFor liefert die eindeutigen ATC-Klassen (Quelle ATC oder ATCPROD) der RxCUI.
func (f *Fetcher) FetchFor(ctx context.Context, rxcui, _ string) providers.Result[[]providers.ATCClass] {
	opts := fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}

	var resp classResponse
	u := fmt.Sprintf("%s/rxclass/class/byRxcui.json?rxcui=%s", f.Config.RxNavBaseURL, url.QueryEscape(rxcui))
	if err := f.Client.GetJSON(ctx, u, opts, &resp); err != nil {
		f.Logger.Debug("RxClass nicht abrufbar", zap.String("rxcui", rxcui), zap.Error(err))
		return providers.Skipped[[]providers.ATCClass](err.Error())
	}

	var out []providers.ATCClass
	seen := map[string]bool{}
	for _, item := range resp.RxclassDrugInfoList.RxclassDrugInfo {
		if item.RelaSource != "ATC" && item.RelaSource != "ATCPROD" {
			continue
		}
		id := item.RxclassMinConceptItem.ClassID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, providers.ATCClass{
			Code:  id,
			Name:  item.RxclassMinConceptItem.ClassName,
			Level: Level(id),
		})
	}
	if len(out) == 0 {
		return providers.Skipped[[]providers.ATCClass]("no atc classes")
	}
	return providers.Present(out)
}
