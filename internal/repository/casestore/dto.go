package casestore

import (
	"time"

	"github.com/lexhaven/lexsearch/internal/domain"
)

// caseDTO is the JSON shape persisted for case metadata.
type caseDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Citation     string    `json:"citation"`
	Court        string    `json:"court"`
	DecisionDate time.Time `json:"decision_date"`
	Judges       []string  `json:"judges,omitempty"`
	Topics       []string  `json:"topics,omitempty"`
	Jurisdiction string    `json:"jurisdiction"`
	Citations    []string  `json:"citations,omitempty"`
	DocketNumber string    `json:"docket_number,omitempty"`
	SourceURL    string    `json:"source_url,omitempty"`
	WordCount    int       `json:"word_count"`
	IngestedAt   time.Time `json:"ingested_at"`
}

func toDTO(m domain.CaseMetadata) caseDTO {
	return caseDTO{
		ID:           m.ID.String(),
		Name:         m.Name,
		Citation:     m.Citation,
		Court:        m.Court,
		DecisionDate: m.DecisionDate,
		Judges:       m.Judges,
		Topics:       m.Topics,
		Jurisdiction: string(m.Jurisdiction),
		Citations:    m.Citations,
		DocketNumber: m.DocketNumber,
		SourceURL:    m.SourceURL,
		WordCount:    m.WordCount,
		IngestedAt:   m.IngestedAt,
	}
}

func fromDTO(d caseDTO) (domain.CaseMetadata, error) {
	id, err := domain.ParseCaseID(d.ID)
	if err != nil {
		return domain.CaseMetadata{}, err
	}
	return domain.CaseMetadata{
		ID:           id,
		Name:         d.Name,
		Citation:     d.Citation,
		Court:        d.Court,
		DecisionDate: d.DecisionDate,
		Judges:       d.Judges,
		Topics:       d.Topics,
		Jurisdiction: domain.Jurisdiction(d.Jurisdiction),
		Citations:    d.Citations,
		DocketNumber: d.DocketNumber,
		SourceURL:    d.SourceURL,
		WordCount:    d.WordCount,
		IngestedAt:   d.IngestedAt,
	}, nil
}
