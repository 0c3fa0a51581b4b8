// Package pubchem holt Chemie-Identifikatoren (CID, Summenformel, Masse, InChIKey, SMILES) aus PUG REST.
package pubchem

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

type cidResponse struct {
	IdentifierList struct {
		CID []int64 `json:"CID"`
	} `json:"IdentifierList"`
}

type propertyResponse struct {
	PropertyTable struct {
		Properties []struct {
			CID                int64   `json:"CID"`
			MolecularWeight    numeric `json:"MolecularWeight"`
			MolecularFormula   string  `json:"MolecularFormula"`
			InChIKey           string  `json:"InChIKey"`
			CanonicalSMILES    string  `json:"CanonicalSMILES"`
			ConnectivitySMILES string  `json:"ConnectivitySMILES"`
		} `json:"Properties"`
	} `json:"PropertyTable"`
}

// numeric akzeptiert Zahlen sowohl als JSON-Zahl als auch als String ("129.16").
type numeric struct {
	Value *float64
}

func (n *numeric) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n.Value = &v
	return nil
}

// Fetcher implementiert den Struktur-Adapter.
type Fetcher struct {
	Config *config.Config
	Client *fetch.Client
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen PubChem-Fetcher.
func NewFetcher(cfg *config.Config, client *fetch.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (f *Fetcher) Name() string {
	return "pubchem"
}

// FetchFor löst das erste Wort des Anzeigenamens in eine CID auf und lädt deren Eigenschaften.
func (f *Fetcher) FetchFor(ctx context.Context, rxcui, displayName string) providers.Result[providers.Structure] {
	name := firstWord(displayName)
	if name == "" {
		return providers.Skipped[providers.Structure]("no name")
	}
	log := f.Logger.With(zap.String("rxcui", rxcui), zap.String("name", name))
	opts := fetch.Options{MaxRetries: f.Config.FetchMaxRetries, InitialDelay: f.Config.FetchInitialDelay}

	var cids cidResponse
	cidURL := fmt.Sprintf("%s/compound/name/%s/cids/JSON", f.Config.PubChemBaseURL, url.PathEscape(name))
	if err := f.Client.GetJSON(ctx, cidURL, opts, &cids); err != nil {
		log.Debug("PubChem CID-Suche ohne Ergebnis", zap.Error(err))
		return providers.Skipped[providers.Structure](err.Error())
	}
	if len(cids.IdentifierList.CID) == 0 {
		return providers.Skipped[providers.Structure]("no cid")
	}
	cid := strconv.FormatInt(cids.IdentifierList.CID[0], 10)
	s := providers.Structure{CID: cid, Profile: map[string]any{}}

	var props propertyResponse
	propURL := fmt.Sprintf("%s/compound/cid/%s/property/MolecularWeight,MolecularFormula,InChIKey,CanonicalSMILES/JSON",
		f.Config.PubChemBaseURL, cid)
	if err := f.Client.GetJSON(ctx, propURL, opts, &props); err != nil {
		// CID allein ist schon verwertbar
		log.Warn("PubChem-Eigenschaften nicht abrufbar", zap.String("cid", cid), zap.Error(err))
		return providers.Present(s)
	}
	if len(props.PropertyTable.Properties) > 0 {
		p := props.PropertyTable.Properties[0]
		s.MolecularWeight = p.MolecularWeight.Value
		s.Formula = p.MolecularFormula
		s.InChIKey = p.InChIKey
		s.SMILES = p.CanonicalSMILES
		if s.SMILES == "" {
			s.SMILES = p.ConnectivitySMILES
		}
	}

	if s.MolecularWeight != nil {
		s.Profile["molecular_weight"] = *s.MolecularWeight
	}
	if s.Formula != "" {
		s.Profile["formula"] = s.Formula
	}
	if s.InChIKey != "" {
		s.Profile["inchi_key"] = s.InChIKey
	}
	if s.SMILES != "" {
		s.Profile["smiles"] = s.SMILES
	}
	log.Debug("PubChem-Struktur gefunden", zap.String("cid", cid), zap.Int("fields", len(s.Profile)))
	return providers.Present(s)
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
