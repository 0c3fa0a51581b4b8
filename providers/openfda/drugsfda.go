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

var origSubmission = regexp.MustCompile(`(?i)ORIG|SUPPL`)

// DrugsFDAFetcher ergänzt Zulassungsdatum und Sponsor aus Drugs@FDA.
type DrugsFDAFetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewDrugsFDAFetcher erstellt einen neuen Drugs@FDA-Fetcher.
func NewDrugsFDAFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *DrugsFDAFetcher {
	return &DrugsFDAFetcher{Config: cfg, Client: client, Logger: logger}
}

// Enrich setzt ApprovalDate und SponsorName, soweit Drugs@FDA sie kennt. Fehler werden nur geloggt.
func (f *DrugsFDAFetcher) Enrich(ctx context.Context, reg *providers.Regulatory) {
	appNumber := strings.ReplaceAll(strings.TrimSpace(reg.ApplicationNumber), " ", "")
	if appNumber == "" {
		return
	}
	log := f.Logger.With(zap.String("application_number", appNumber))

	u := fmt.Sprintf("%s/drug/drugsfda.json?search=%s&limit=1",
		f.Config.OpenFDABaseURL, url.QueryEscape("application_number:"+appNumber))
	if f.Config.OpenFDAAPIKey != "" {
		u += "&api_key=" + url.QueryEscape(f.Config.OpenFDAAPIKey)
	}
	var resp drugsFDAResponse
	if err := f.Client.GetJSON(ctx, u, fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}, &resp); err != nil {
		log.Debug("Drugs@FDA nicht verfügbar", zap.Error(err))
		return
	}
	if len(resp.Results) == 0 {
		return
	}
	app := resp.Results[0]

	sponsor := app.SponsorName
	if sponsor == "" && len(app.Products) > 0 {
		sponsor = app.Products[0].SponsorName
	}
	if sponsor != "" {
		reg.SponsorName = sponsor
	}

	var date string
	if len(app.Products) > 0 {
		date = app.Products[0].ApprovalDate
	}
	if date == "" {
		for _, s := range app.Submissions {
			if origSubmission.MatchString(s.SubmissionType) && s.SubmissionStatusDate != "" {
				date = s.SubmissionStatusDate
				break
			}
		}
	}
	if d := formatDate(date); d != "" {
		reg.ApprovalDate = d
	}
	log.Debug("Drugs@FDA ergänzt", zap.String("approval_date", reg.ApprovalDate), zap.String("sponsor", reg.SponsorName))
}

// formatDate wandelt YYYYMMDD in YYYY-MM-DD; andere Formate bleiben unverändert.
func formatDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 8 && !strings.Contains(s, "-") {
		return s[:4] + "-" + s[4:6] + "-" + s[6:]
	}
	return s
}
