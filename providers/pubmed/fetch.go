package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/extract"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

// Fetcher ist eine Struktur, die die Logik zur Interaktion mit PubMed kapselt.
type Fetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewFetcher erstellt eine neue Instanz des PubMed-Fetchers.
func NewFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "pubmed"
}

func (f *Fetcher) opts() fetch.Options {
	return fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}
}

// FetchFor sucht Studien zum Anzeigenamen: ESearch liefert die PMIDs, ein einzelner
// ESummary-Aufruf die Metadaten. Abstracts (EFetch) und PMC-Links sind Zugaben.
func (f *Fetcher) FetchFor(ctx context.Context, rxcui, displayName string) providers.Result[[]providers.Study] {
	term := strings.TrimSpace(displayName)
	if term == "" {
		return providers.Skipped[[]providers.Study]("no name")
	}
	log := f.Logger.With(zap.String("rxcui", rxcui), zap.String("term", term))

	ids, err := f.searchIDs(ctx, term)
	if err != nil {
		log.Warn("PubMed ESearch fehlgeschlagen", zap.Error(err))
		return providers.Skipped[[]providers.Study](err.Error())
	}
	if len(ids) == 0 {
		return providers.Skipped[[]providers.Study]("no pubmed results")
	}

	studies, err := f.fetchSummaries(ctx, ids)
	if err != nil {
		log.Warn("PubMed ESummary fehlgeschlagen", zap.Error(err))
		return providers.Skipped[[]providers.Study](err.Error())
	}
	if len(studies) == 0 {
		return providers.Skipped[[]providers.Study]("no usable pubmed records")
	}

	if err := f.attachAbstracts(ctx, studies); err != nil {
		log.Debug("Abstracts nicht verfügbar", zap.Error(err))
	}
	if err := f.attachPMCLinks(ctx, studies); err != nil {
		log.Debug("PMC-Links nicht verfügbar", zap.Error(err))
	}
	for i := range studies {
		studies[i].StudyType = extract.StudyType(studies[i].Title, studies[i].Abstract)
	}

	log.Info("PubMed-Studien gefunden", zap.Int("count", len(studies)))
	return providers.Present(studies)
}

// commonParams hängt tool, email und api_key an, wie von NCBI verlangt.
func (f *Fetcher) commonParams(v url.Values) string {
	if f.Config.PubMedTool != "" {
		v.Set("tool", f.Config.PubMedTool)
	}
	if f.Config.PubMedEmail != "" {
		v.Set("email", f.Config.PubMedEmail)
	}
	if f.Config.PubMedAPIKey != "" {
		v.Set("api_key", f.Config.PubMedAPIKey)
	}
	return v.Encode()
}

// searchIDs führt eine ESearch-Abfrage durch und gibt höchstens MaxStudies PMIDs zurück.
func (f *Fetcher) searchIDs(ctx context.Context, term string) ([]string, error) {
	retmax := f.Config.MaxStudies
	if retmax <= 0 {
		retmax = 15
	}
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("term", term)
	v.Set("retmax", fmt.Sprint(retmax))
	v.Set("retmode", "json")
	searchURL := f.Config.PubMedBaseURL + "/esearch.fcgi?" + f.commonParams(v)
	f.Logger.Debug("Rufe ESearch-URL auf", zap.String("url", searchURL))

	var resp ESearchResponse
	if err := f.Client.GetJSON(ctx, searchURL, f.opts(), &resp); err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	ids := resp.ESearchResult.IdList
	if len(ids) > retmax {
		ids = ids[:retmax]
	}
	return ids, nil
}

// fetchSummaries löst alle PMIDs in einem Aufruf auf. Einträge ohne Titel werden verworfen,
// die Reihenfolge der ESearch-Treffer bleibt erhalten.
func (f *Fetcher) fetchSummaries(ctx context.Context, ids []string) ([]providers.Study, error) {
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("id", strings.Join(ids, ","))
	v.Set("retmode", "json")
	summaryURL := f.Config.PubMedBaseURL + "/esummary.fcgi?" + f.commonParams(v)

	var resp ESummaryResponse
	if err := f.Client.GetJSON(ctx, summaryURL, f.opts(), &resp); err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	studies := make([]providers.Study, 0, len(ids))
	for _, id := range ids {
		raw, ok := resp.Result[id]
		if !ok {
			continue
		}
		var doc DocSummary
		if err := json.Unmarshal(raw, &doc); err != nil {
			f.Logger.Debug("ESummary-Eintrag nicht lesbar", zap.String("pmid", id), zap.Error(err))
			continue
		}
		pmid := doc.UID
		if pmid == "" {
			pmid = id
		}
		title := strings.TrimSpace(doc.Title)
		if pmid == "" || title == "" {
			continue
		}
		studies = append(studies, providers.Study{
			PMID:            pmid,
			Title:           title,
			Journal:         doc.Source,
			PublicationDate: parsePubDate(doc.PubDate),
			DOI:             docDOI(doc),
			URL:             fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid),
		})
	}
	return studies, nil
}

// attachAbstracts holt die Abstracts aller Studien mit einem EFetch-Aufruf.
func (f *Fetcher) attachAbstracts(ctx context.Context, studies []providers.Study) error {
	ids := make([]string, len(studies))
	for i, s := range studies {
		ids[i] = s.PMID
	}
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("id", strings.Join(ids, ","))
	v.Set("retmode", "xml")
	efetchURL := f.Config.PubMedBaseURL + "/efetch.fcgi?" + f.commonParams(v)

	resp, err := f.Client.Get(ctx, efetchURL, f.opts())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("efetch failed: status %d", resp.StatusCode)
	}

	var set PubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("efetch decode: %w", err)
	}
	byPMID := make(map[string]*PubmedArticle, len(set.PubmedArticle))
	for i := range set.PubmedArticle {
		a := &set.PubmedArticle[i]
		byPMID[strings.TrimSpace(a.MedlineCitation.PMID)] = a
	}
	for i := range studies {
		a, ok := byPMID[studies[i].PMID]
		if !ok {
			continue
		}
		studies[i].Abstract = strings.TrimSpace(strings.Join(a.MedlineCitation.Article.Abstract.Text, "\n"))
		if studies[i].DOI == "" {
			for _, id := range a.MedlineCitation.Article.ELocationID {
				if id.IDType == "doi" && id.ValidYN == "Y" {
					studies[i].DOI = strings.TrimSpace(id.Value)
					break
				}
			}
		}
	}
	return nil
}

// attachPMCLinks setzt FullTextURL für Artikel, die in PubMed Central frei verfügbar sind.
func (f *Fetcher) attachPMCLinks(ctx context.Context, studies []providers.Study) error {
	if f.Config.PMCIDConvURL == "" {
		return nil
	}
	ids := make([]string, len(studies))
	for i, s := range studies {
		ids[i] = s.PMID
	}
	v := url.Values{}
	v.Set("ids", strings.Join(ids, ","))
	v.Set("format", "json")
	convURL := strings.TrimRight(f.Config.PMCIDConvURL, "?") + "?" + f.commonParams(v)

	var resp IDConvResponse
	if err := f.Client.GetJSON(ctx, convURL, f.opts(), &resp); err != nil {
		return err
	}
	pmc := make(map[string]string, len(resp.Records))
	for _, r := range resp.Records {
		if r.PMCID != "" {
			pmc[r.PMID] = r.PMCID
		}
	}
	for i := range studies {
		if id, ok := pmc[studies[i].PMID]; ok && studies[i].FullTextURL == "" {
			studies[i].FullTextURL = fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/", id)
		}
	}
	return nil
}

func docDOI(doc DocSummary) string {
	for _, id := range doc.ArticleIDs {
		if id.IDType == "doi" && id.Value != "" {
			return id.Value
		}
	}
	if strings.HasPrefix(doc.ELocationID, "doi:") {
		return strings.TrimSpace(strings.TrimPrefix(doc.ELocationID, "doi:"))
	}
	return ""
}

// parsePubDate wandelt "2019 Mar 5" in "2019-03-05", "2019 Mar" in "2019-03" und sonst
// wenigstens das Jahr.
func parsePubDate(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006 Jan 2", s); err == nil {
		return t.Format("2006-01-02")
	}
	if t, err := time.Parse("2006 Jan", s); err == nil {
		return t.Format("2006-01")
	}
	if len(s) >= 4 {
		return s[:4]
	}
	return ""
}
