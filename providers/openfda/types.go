// Package openfda enthält die Adapter für openFDA: Beipackzettel (drug/label), Zulassungen
// (drug/drugsfda) und Fertigarzneimittel (drug/ndc).
package openfda

import (
	"fmt"
	"strings"
)

// labelResponse repräsentiert die Antwort von drug/label.json. Die Abschnitte sind dynamische
// Schlüssel, deshalb als map.
type labelResponse struct {
	Results []map[string]any `json:"results"`
}

// drugsFDAResponse repräsentiert die Antwort von drug/drugsfda.json.
type drugsFDAResponse struct {
	Results []struct {
		ApplicationNumber string `json:"application_number"`
		SponsorName       string `json:"sponsor_name"`
		Submissions       []struct {
			SubmissionType       string `json:"submission_type"`
			SubmissionNumber     string `json:"submission_number"`
			SubmissionStatus     string `json:"submission_status"`
			SubmissionStatusDate string `json:"submission_status_date"`
		} `json:"submissions"`
		Products []struct {
			ProductNumber   string `json:"product_number"`
			BrandName       string `json:"brand_name"`
			MarketingStatus string `json:"marketing_status"`
			ApprovalDate    string `json:"approval_date"`
			SponsorName     string `json:"sponsor_name"`
		} `json:"products"`
	} `json:"results"`
}

// ndcResponse repräsentiert eine Seite von drug/ndc.json.
type ndcResponse struct {
	Meta struct {
		Results struct {
			Skip  int `json:"skip"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"results"`
	} `json:"meta"`
	Results []ndcProduct `json:"results"`
}

type ndcProduct struct {
	ProductNDC        string   `json:"product_ndc"`
	GenericName       string   `json:"generic_name"`
	BrandName         string   `json:"brand_name"`
	LabelerName       string   `json:"labeler_name"`
	DosageForm        string   `json:"dosage_form"`
	Route             []string `json:"route"`
	ApplicationNumber string   `json:"application_number"`
	MarketingCategory string   `json:"marketing_category"`
	ActiveIngredients []struct {
		Name     string `json:"name"`
		Strength string `json:"strength"`
	} `json:"active_ingredients"`
	OpenFDA struct {
		ManufacturerName []string `json:"manufacturer_name"`
	} `json:"openfda"`
}

// stringList wandelt einen Label-Wert (meist []any aus Strings) in eine String-Liste.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			} else if e != nil {
				out = append(out, fmt.Sprint(e))
			}
		}
		return out
	default:
		return nil
	}
}

// first liefert den ersten Eintrag eines Label-Werts oder "".
func first(v any) string {
	l := stringList(v)
	if len(l) == 0 {
		return ""
	}
	return strings.TrimSpace(l[0])
}

// openFDAField liest ein Feld aus dem eingebetteten openfda-Objekt.
func openFDAField(row map[string]any, key string) any {
	o, ok := row["openfda"].(map[string]any)
	if !ok {
		return nil
	}
	return o[key]
}
