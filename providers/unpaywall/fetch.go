// Package unpaywall ergänzt Studien um freie Volltext-Links anhand der DOI.
package unpaywall

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

// ErrNoEmail meldet, dass Unpaywall ohne Kontakt-E-Mail nicht genutzt werden darf.
var ErrNoEmail = errors.New("unpaywall email ist nicht konfiguriert")

// Response repräsentiert die JSON-Antwort der Unpaywall-API.
type Response struct {
	IsOA           bool `json:"is_oa"`
	BestOALocation *struct {
		URL       string `json:"url"`
		URLForPDF string `json:"url_for_pdf"`
	} `json:"best_oa_location"`
}

// Fetcher kapselt die Logik für Unpaywall.
type Fetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Unpaywall-Fetcher.
func NewFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Enabled meldet, ob eine Kontakt-E-Mail konfiguriert ist.
func (f *Fetcher) Enabled() bool {
	return f != nil && f.Config.UnpaywallEmail != ""
}

// GetOALink holt einen freien Link via Unpaywall anhand der DOI. PDF-Links werden bevorzugt.
func (f *Fetcher) GetOALink(ctx context.Context, doi string) (string, error) {
	if !f.Enabled() {
		return "", ErrNoEmail
	}
	u := fmt.Sprintf("%s/%s?email=%s", f.Config.UnpaywallBaseURL, doi, url.QueryEscape(f.Config.UnpaywallEmail))
	log := f.Logger.With(zap.String("doi", doi))
	log.Debug("Rufe Unpaywall API auf.")

	var ur Response
	if err := f.Client.GetJSON(ctx, u, fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}, &ur); err != nil {
		return "", err
	}
	if ur.BestOALocation == nil {
		log.Debug("Kein freier Link in Unpaywall-Antwort gefunden.")
		return "", nil
	}
	if ur.BestOALocation.URLForPDF != "" {
		return ur.BestOALocation.URLForPDF, nil
	}
	return ur.BestOALocation.URL, nil
}

// Enrich setzt FullTextURL für bis zu limit Studien mit DOI und ohne vorhandenen Link.
// Fehler einzelner DOIs werden geloggt und übersprungen.
func (f *Fetcher) Enrich(ctx context.Context, studies []providers.Study, limit int) int {
	if !f.Enabled() {
		return 0
	}
	found, tried := 0, 0
	for i := range studies {
		if limit > 0 && tried >= limit {
			break
		}
		if studies[i].DOI == "" || studies[i].FullTextURL != "" {
			continue
		}
		tried++
		link, err := f.GetOALink(ctx, studies[i].DOI)
		if err != nil {
			f.Logger.Debug("Unpaywall-Abfrage fehlgeschlagen", zap.String("doi", studies[i].DOI), zap.Error(err))
			continue
		}
		if link != "" {
			studies[i].FullTextURL = link
			found++
		}
	}
	return found
}
