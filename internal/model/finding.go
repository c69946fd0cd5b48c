package model

import "fmt"

// FindingKind classifies an integrity audit finding.
type FindingKind string

const (
	FindingMissing  FindingKind = "MISSING"
	FindingMismatch FindingKind = "MISMATCH"
)

// Finding reports a cached identifier whose upstream entity has drifted.
type Finding struct {
	Kind         FindingKind `json:"kind"`
	ID           string      `json:"id"`
	Label        string      `json:"label"`
	FetchedLabel string      `json:"fetched_label,omitempty"`
}

func (f Finding) String() string {
	switch f.Kind {
	case FindingMissing:
		return fmt.Sprintf("MISSING: %s has ID %s which does not exist on Wikidata.", f.Label, f.ID)
	case FindingMismatch:
		return fmt.Sprintf("MISMATCH: JSON Label '%s' has ID %s which is '%s' on Wikidata.", f.Label, f.ID, f.FetchedLabel)
	default:
		return fmt.Sprintf("%s: %s (%s)", f.Kind, f.Label, f.ID)
	}
}
