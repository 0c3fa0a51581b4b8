package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pharma-deck/models"
)

// ParseQueueCSV liest Queue-Einträge aus einer CSV mit Kopfzeile
// (rank, canonical_name, rxcui, priority_score, category). Zeilen ohne RxCUI werden übersprungen.
// Fehlt priority_score oder ist leer, gilt 100 - rank.
func ParseQueueCSV(r io.Reader) ([]models.IngestQueueItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	col := func(name string, fallback int) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return fallback
	}
	rankIdx := col("rank", -1)
	nameIdx := col("canonical_name", 1)
	rxcuiIdx := col("rxcui", 2)
	scoreIdx := col("priority_score", -1)
	categoryIdx := col("category", 4)

	var items []models.IngestQueueItem
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line+1, err)
		}
		cell := func(i int) string {
			if i < 0 || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		rxcui := cell(rxcuiIdx)
		if rxcui == "" {
			continue
		}
		rank, err := strconv.Atoi(cell(rankIdx))
		if err != nil {
			rank = line
		}
		score, err := strconv.Atoi(cell(scoreIdx))
		if err != nil {
			score = 100 - rank
		}
		items = append(items, models.IngestQueueItem{
			RxCUI:         rxcui,
			CanonicalName: cell(nameIdx),
			Rank:          rank,
			PriorityScore: score,
			Category:      cell(categoryIdx),
		})
	}
	return items, nil
}
