// Package labels keeps the three canonical answering labels in sync: it brings
// each repository's label definitions in line with the canonical set and
// moves the labels between issues according to their triage class.
package labels

import (
	"fmt"

	"github.com/wesm/issue-overseer/internal/models"
	"github.com/wesm/issue-overseer/internal/triage"
)

// Canonical label names shared by every organization.
const (
	AnsweredName    = "answering: answered"
	NotAnsweredName = "answering: not answered"
)

// Set is the immutable canonical label vocabulary for one organization.
type Set struct {
	reported    models.Label
	answered    models.Label
	notAnswered models.Label
}

// Canonical returns the label set for the given organization.
func Canonical(org string) Set {
	return Set{
		reported:    models.Label{Name: ReportedName(org), Color: "a0a000"},
		answered:    models.Label{Name: AnsweredName, Color: "00a000"},
		notAnswered: models.Label{Name: NotAnsweredName, Color: "a00000"},
	}
}

// ReportedName returns the name of the label marking issues opened by org.
func ReportedName(org string) string {
	return fmt.Sprintf("answering: reported by %s", org)
}

// All returns the canonical labels in the order reported, answered, not answered.
func (s Set) All() []models.Label {
	return []models.Label{s.reported, s.answered, s.notAnswered}
}

// For returns the label that marks issues of class c.
func (s Set) For(c triage.Class) models.Label {
	switch c {
	case triage.Internal:
		return s.reported
	case triage.Answered:
		return s.answered
	default:
		return s.notAnswered
	}
}
