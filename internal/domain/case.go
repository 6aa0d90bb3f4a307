package domain

import (
	"time"

	"github.com/google/uuid"
)

// CaseID uniquely identifies a legal case across all indices and storage.
type CaseID = uuid.UUID

// DocRef points to a location inside a case: a paragraph (or section) index
// and an optional character offset within it. Many DocRefs may reference the
// same case. Immutable once created.
type DocRef struct {
	CaseID         CaseID
	ParagraphIndex int
	CharOffset     int // -1 when not set
}

// NewDocRef creates a DocRef without a character offset.
func NewDocRef(caseID CaseID, paragraph int) DocRef {
	return DocRef{CaseID: caseID, ParagraphIndex: paragraph, CharOffset: -1}
}

// NewCaseID generates a fresh case identifier.
func NewCaseID() CaseID { return uuid.New() }

// ParseCaseID parses a case identifier from its string form.
func ParseCaseID(s string) (CaseID, error) { return uuid.Parse(s) }

// Jurisdiction classifies the deciding court's authority.
type Jurisdiction string

const (
	JurisdictionFederal       Jurisdiction = "federal"
	JurisdictionState         Jurisdiction = "state"
	JurisdictionLocal         Jurisdiction = "local"
	JurisdictionInternational Jurisdiction = "international"
)

// CaseMetadata is the stored record for a legal case.
type CaseMetadata struct {
	ID           CaseID
	Name         string
	Citation     string
	Court        string
	DecisionDate time.Time
	Judges       []string
	Topics       []string
	Jurisdiction Jurisdiction
	Citations    []string
	DocketNumber string
	SourceURL    string
	WordCount    int
	IngestedAt   time.Time
}
