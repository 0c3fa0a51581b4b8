package europepmc

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/extract"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

var tagRegex = regexp.MustCompile(`<[^>]+>`)

// Fetcher implementiert den Literatur-Adapter für Europe PMC.
type Fetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Europe PMC Fetcher.
func NewFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "europepmc"
}

// FetchFor führt die Suche auf Europe PMC aus. resultType=core liefert Abstracts und
// Volltext-Links in einem Aufruf.
func (f *Fetcher) FetchFor(ctx context.Context, rxcui, displayName string) providers.Result[[]providers.Study] {
	term := strings.TrimSpace(displayName)
	if term == "" {
		return providers.Skipped[[]providers.Study]("no name")
	}
	log := f.Logger.With(zap.String("rxcui", rxcui), zap.String("term", term))
	log.Info("Starte Suche auf Europe PMC.")

	pageSize := f.Config.MaxStudies
	if pageSize <= 0 {
		pageSize = 15
	}
	searchURL := fmt.Sprintf("%s/search?query=%s&format=json&resultType=core&pageSize=%d",
		f.Config.EuropePMCBaseURL, url.QueryEscape(term), pageSize)
	log.Debug("Rufe Europe PMC API auf", zap.String("url", searchURL))

	var resp SearchResponse
	opts := fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}
	if err := f.Client.GetJSON(ctx, searchURL, opts, &resp); err != nil {
		log.Warn("Europe PMC Suche fehlgeschlagen", zap.Error(err))
		return providers.Skipped[[]providers.Study](err.Error())
	}

	var studies []providers.Study
	for i := range resp.ResultList.Result {
		s, ok := mapArticle(&resp.ResultList.Result[i])
		if !ok {
			continue
		}
		studies = append(studies, s)
		if len(studies) >= pageSize {
			break
		}
	}
	if len(studies) == 0 {
		return providers.Skipped[[]providers.Study]("no europepmc results")
	}
	log.Info("Suche auf Europe PMC abgeschlossen", zap.Int("found_studies", len(studies)))
	return providers.Present(studies)
}

// mapArticle konvertiert ein Europe PMC Article-Objekt in eine Studie. Artikel ohne ID oder Titel
// werden verworfen.
func mapArticle(a *Article) (providers.Study, bool) {
	title := strings.TrimSpace(tagRegex.ReplaceAllString(a.Title, ""))
	id := a.PMID
	if id == "" {
		id = a.ID
	}
	if id == "" || title == "" {
		return providers.Study{}, false
	}
	abstract := strings.TrimSpace(tagRegex.ReplaceAllString(a.AbstractText, " "))

	s := providers.Study{
		PMID:            id,
		Title:           title,
		Journal:         a.JournalTitle,
		PublicationDate: a.FirstPublicationDate,
		Abstract:        abstract,
		DOI:             a.DOI,
		StudyType:       extract.StudyType(title, abstract),
	}
	if s.Journal == "" {
		s.Journal = a.JournalInfo.Journal.Title
	}
	if s.PublicationDate == "" {
		s.PublicationDate = a.PubYear
	}
	if a.PMID != "" {
		s.URL = fmt.Sprintf("https://europepmc.org/article/MED/%s", a.PMID)
	} else {
		s.URL = fmt.Sprintf("https://europepmc.org/article/%s/%s", a.Source, a.ID)
	}

	// PDF bevorzugt, sonst ein beliebiger freier Link
	for _, u := range a.FullTextURLList.FullTextURL {
		if u.AvailabilityCode == "OA" && u.DocumentStyle == "pdf" {
			s.FullTextURL = u.URL
			break
		}
	}
	if s.FullTextURL == "" {
		for _, u := range a.FullTextURLList.FullTextURL {
			if u.AvailabilityCode == "OA" || u.AvailabilityCode == "F" {
				s.FullTextURL = u.URL
				break
			}
		}
	}
	return s, true
}
