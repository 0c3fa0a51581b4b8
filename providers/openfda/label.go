package openfda

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/providers"
	"pharma-deck/providers/fetch"
)

// maxSectionLength begrenzt jeden Label-Abschnitt (in Zeichen).
const maxSectionLength = 15000

// LabelSectionKeys sind die Abschnitte, die aus dem ersten Treffer übernommen werden.
var LabelSectionKeys = []string{
	"boxed_warning",
	"description",
	"indications_and_usage",
	"contraindications",
	"warnings",
	"warnings_and_cautions",
	"adverse_reactions",
	"clinical_pharmacology",
	"mechanism_of_action",
	"pharmacokinetics",
	"dosage_and_administration",
	"drug_interactions",
	"controlled_substance",
}

var (
	remsRegex     = regexp.MustCompile(`\bREMS\b|Risk Evaluation and Mitigation Strategy`)
	scheduleRegex = regexp.MustCompile(`(?i)\bschedule\s+(I{1,3}|IV|V)\b|\bC-?(I{1,3}|IV|V)\b`)
)

// LabelFetcher implementiert den Regulatory-Adapter auf Basis von drug/label.json.
type LabelFetcher struct {
	Config   *config.Config
	Client   *fetch.Client
	Logger   *zap.Logger
	DrugsFDA *DrugsFDAFetcher
}

// NewLabelFetcher erstellt einen neuen Label-Fetcher. drugsFDA darf nil sein.
func NewLabelFetcher(cfg *config.Config, client *fetch.Client, drugsFDA *DrugsFDAFetcher, logger *zap.Logger) *LabelFetcher {
	return &LabelFetcher{Config: cfg, Client: client, DrugsFDA: drugsFDA, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (f *LabelFetcher) Name() string {
	return "openfda_label"
}

func (f *LabelFetcher) labelURL(search string) string {
	u := fmt.Sprintf("%s/drug/label.json?search=%s&limit=1", f.Config.OpenFDABaseURL, url.QueryEscape(search))
	if f.Config.OpenFDAAPIKey != "" {
		u += "&api_key=" + url.QueryEscape(f.Config.OpenFDAAPIKey)
	}
	return u
}

// FetchFor sucht zuerst über die RxCUI, dann über den Substanznamen (erstes Wort).
func (f *LabelFetcher) FetchFor(ctx context.Context, rxcui, displayName string) providers.Result[providers.Regulatory] {
	log := f.Logger.With(zap.String("rxcui", rxcui))
	opts := fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}

	searches := []string{"openfda.rxcui:" + rxcui}
	if name := firstWord(displayName); name != "" {
		searches = append(searches, "openfda.substance_name:"+name)
	}

	var lastReason string
	for _, search := range searches {
		var resp labelResponse
		err := f.Client.GetJSON(ctx, f.labelURL(search), opts, &resp)
		if err != nil {
			// openFDA antwortet mit 404, wenn die Suche nichts findet
			log.Debug("openFDA-Label ohne Treffer", zap.String("search", search), zap.Error(err))
			lastReason = err.Error()
			continue
		}
		if len(resp.Results) == 0 {
			lastReason = "no label"
			continue
		}
		reg := parseLabel(resp.Results[0], f.Config.OpenFDABaseURL+"/drug/label.json")
		if f.DrugsFDA != nil && reg.ApplicationNumber != "" {
			f.DrugsFDA.Enrich(ctx, &reg)
		}
		log.Info("openFDA-Label gefunden",
			zap.String("search", search),
			zap.Int("sections", len(reg.Sections)),
			zap.Bool("boxed_warning", reg.BoxedWarning))
		return providers.Present(reg)
	}
	if lastReason == "" {
		lastReason = "no label"
	}
	return providers.Skipped[providers.Regulatory](lastReason)
}

// parseLabel übersetzt einen Label-Treffer in den neutralen Regulatory-Typ.
func parseLabel(row map[string]any, sourceURL string) providers.Regulatory {
	reg := providers.Regulatory{
		ApprovalStatus:    "approved",
		ApplicationNumber: first(openFDAField(row, "application_number")),
		SetID:             first(row["set_id"]),
		SourceVersion:     first(row["version"]),
	}
	if pt := first(openFDAField(row, "product_type")); pt != "" {
		reg.ApprovalType = strings.ToUpper(pt)
	}
	if reg.SetID != "" {
		reg.LabelURL = "https://dailymed.nlm.nih.gov/dailymed/drugInfo.cfm?setid=" + reg.SetID
	}

	var all strings.Builder
	for _, key := range LabelSectionKeys {
		text := strings.TrimSpace(strings.Join(stringList(row[key]), "\n\n"))
		if text == "" {
			continue
		}
		text = truncate(text, maxSectionLength)
		reg.Sections = append(reg.Sections, providers.LabelSection{Section: key, Text: text, SourceURL: sourceURL})
		all.WriteString(text)
		all.WriteString("\n")
	}

	reg.BoxedWarning = reg.Section("boxed_warning") != ""
	reg.REMS = remsRegex.MatchString(all.String())
	reg.ControlledSubstanceSchedule = parseSchedule(reg.Section("controlled_substance"))
	return reg
}

// parseSchedule liefert "CII" usw. aus dem Abschnitt controlled_substance.
func parseSchedule(text string) string {
	m := scheduleRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	roman := m[1]
	if roman == "" {
		roman = m[2]
	}
	return "C" + strings.ToUpper(roman)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
