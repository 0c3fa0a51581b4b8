package rxnorm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

// ErrNotFound meldet, dass weder die exakte noch die unscharfe Suche eine RxCUI geliefert hat.
var ErrNotFound = errors.New("rxcui not found")

// ErrUnavailable meldet eine leere oder unbrauchbare RxNav-Antwort für ein bekanntes Konzept.
var ErrUnavailable = errors.New("rxnav response unavailable")

// relatedTTYs sind die Term-Typen, deren Namen als Synonyme und verwandte Konzepte gelten.
const relatedTTYs = "SCD+SCDC+SBD+SBDF+GPCK+SBDC"

// Fetcher kapselt die Logik zur Interaktion mit RxNav.
type Fetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewFetcher erstellt eine neue Instanz des RxNorm-Fetchers.
func NewFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (f *Fetcher) Name() string {
	return "rxnorm"
}

func (f *Fetcher) opts() fetch.Options {
	return fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}
}

// getJSON liefert false bei leerer oder unbrauchbarer Antwort. Nur Netzwerkfehler werden
// als Fehler zurückgegeben.
func (f *Fetcher) getJSON(ctx context.Context, rawURL string, dest any) (bool, error) {
	err := f.Client.GetJSON(ctx, rawURL, f.opts(), dest)
	switch {
	case err == nil:
		return true, nil
	case fetch.IsTransport(err):
		return false, err
	default:
		f.Logger.Debug("RxNav-Antwort nicht verwertbar", zap.String("url", rawURL), zap.Error(err))
		return false, nil
	}
}

// Resolve sucht zuerst exakt bzw. normalisiert und fällt dann auf die unscharfe Suche zurück.
// Der erste Kandidat der ersten nicht-leeren Liste gewinnt.
func (f *Fetcher) Resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNotFound
	}
	log := f.Logger.With(zap.String("name", name))

	exactURL := fmt.Sprintf("%s/rxcui.json?name=%s&search=2", f.Config.RxNavBaseURL, url.QueryEscape(name))
	var exact idGroupResponse
	ok, err := f.getJSON(ctx, exactURL, &exact)
	if err != nil {
		return "", fmt.Errorf("rxnorm exact lookup: %w", err)
	}
	if ok && len(exact.IDGroup.RxNormID) > 0 {
		log.Debug("RxCUI über exakte Suche gefunden", zap.String("rxcui", exact.IDGroup.RxNormID[0]))
		return exact.IDGroup.RxNormID[0], nil
	}

	approxURL := fmt.Sprintf("%s/approximateTerm.json?term=%s&maxEntries=1", f.Config.RxNavBaseURL, url.QueryEscape(name))
	var approx approximateResponse
	ok, err = f.getJSON(ctx, approxURL, &approx)
	if err != nil {
		return "", fmt.Errorf("rxnorm approximate lookup: %w", err)
	}
	if ok {
		for _, c := range approx.ApproximateGroup.Candidate {
			if c.RxCUI != "" {
				log.Debug("RxCUI über unscharfe Suche gefunden", zap.String("rxcui", c.RxCUI))
				return c.RxCUI, nil
			}
		}
	}
	return "", ErrNotFound
}

func (f *Fetcher) properties(ctx context.Context, rxcui string) (*propertiesResponse, error) {
	propURL := fmt.Sprintf("%s/rxcui/%s/properties.json", f.Config.RxNavBaseURL, url.PathEscape(rxcui))
	var resp propertiesResponse
	ok, err := f.getJSON(ctx, propURL, &resp)
	if err != nil || !ok {
		return nil, err
	}
	return &resp, nil
}

// DisplayName liefert den Konzeptnamen zu einer RxCUI oder "" wenn keiner bekannt ist.
func (f *Fetcher) DisplayName(ctx context.Context, rxcui string) (string, error) {
	props, err := f.properties(ctx, rxcui)
	if err != nil {
		return "", err
	}
	if props == nil || props.Properties == nil {
		return "", nil
	}
	return props.Properties.Name, nil
}

// RelatedConcepts liefert die typisierten Kanten zu verwandten Konzepten. Eine unbrauchbare
// Antwort ergibt ErrUnavailable, eine leere Liste heißt "keine verwandten Konzepte".
func (f *Fetcher) RelatedConcepts(ctx context.Context, rxcui string) ([]providers.Concept, error) {
	relURL := fmt.Sprintf("%s/rxcui/%s/related.json?tty=%s", f.Config.RxNavBaseURL, url.PathEscape(rxcui), relatedTTYs)
	var resp relatedResponse
	ok, err := f.getJSON(ctx, relURL, &resp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnavailable
	}
	out := []providers.Concept{}
	for _, g := range resp.RelatedGroup.ConceptGroup {
		for _, p := range g.ConceptProperties {
			if p.RxCUI == "" {
				continue
			}
			tty := g.TTY
			if tty == "" {
				tty = p.TTY
			}
			out = append(out, providers.Concept{RxCUI: p.RxCUI, Name: p.Name, TTY: tty})
		}
	}
	return out, nil
}

// Synonyms liefert Name, hinterlegtes Synonym und die Namen aller verwandten Konzepte,
// dedupliziert in Fundreihenfolge. related darf nil sein, dann wird es nachgeladen.
func (f *Fetcher) Synonyms(ctx context.Context, rxcui string, related []providers.Concept) ([]string, error) {
	props, err := f.properties(ctx, rxcui)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, ErrUnavailable
	}
	if related == nil {
		related, err = f.RelatedConcepts(ctx, rxcui)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	if props.Properties != nil {
		add(props.Properties.Name)
		add(props.Properties.Synonym)
	}
	for _, c := range related {
		add(c.Name)
	}
	return out, nil
}
