// Package pubmed enthält die Logik für die Interaktion mit den NCBI E-utilities (esearch, esummary, efetch).
package pubmed

import (
	"encoding/json"
	"encoding/xml"
)

// ESearchResponse repräsentiert die JSON-Antwort von ESearch für die ID-Suche.
type ESearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IdList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// ESummaryResponse repräsentiert die JSON-Antwort von ESummary. Das result-Objekt enthält
// neben den Einträgen pro PMID auch die Liste "uids", daher RawMessage.
type ESummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

// DocSummary ist ein einzelner ESummary-Eintrag.
type DocSummary struct {
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	Source      string   `json:"source"`
	FullJournal string   `json:"fulljournalname"`
	PubDate     string   `json:"pubdate"`
	ELocationID string   `json:"elocationid"`
	PubType     []string `json:"pubtype"`
	ArticleIDs  []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

// IDConvResponse repräsentiert die JSON-Antwort des PMC ID Converters.
type IDConvResponse struct {
	Records []struct {
		PMID  string `json:"pmid"`
		PMCID string `json:"pmcid"`
	} `json:"records"`
}

// PubmedArticleSet repräsentiert das gesamte XML-Dokument von efetch.
type PubmedArticleSet struct {
	XMLName       xml.Name        `xml:"PubmedArticleSet"`
	PubmedArticle []PubmedArticle `xml:"PubmedArticle"`
}

// PubmedArticle repräsentiert einen einzelnen Artikel in der XML-Antwort.
type PubmedArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Text []string `xml:"AbstractText"`
			} `xml:"Abstract"`
			ELocationID []struct {
				IDType  string `xml:"EIdType,attr"`
				ValidYN string `xml:"ValidYN,attr"`
				Value   string `xml:",chardata"`
			} `xml:"ELocationID"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}
