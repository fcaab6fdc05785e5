package labels

import (
	"github.com/wesm/issue-overseer/internal/models"
)

// Delta is the set of label definition changes needed in one repository.
// Every label in ToRemove is also in ToAdd: a label with the right name but
// the wrong color is deleted and created again, never edited.
type Delta struct {
	ToRemove []models.Label
	ToAdd    []models.Label
}

// Empty reports whether the repository already matches the canonical set.
func (d Delta) Empty() bool {
	return len(d.ToRemove) == 0 && len(d.ToAdd) == 0
}

// Plan compares the labels of a repository with the canonical labels. Labels
// outside the canonical set are never touched.
func Plan(current, canonical []models.Label) Delta {
	byName := make(map[string]models.Label, len(current))
	for _, label := range current {
		byName[label.Name] = label
	}

	delta := Delta{ToRemove: []models.Label{}, ToAdd: []models.Label{}}
	for _, want := range canonical {
		have, ok := byName[want.Name]
		if ok && have.SameColor(want) {
			continue
		}
		if ok {
			delta.ToRemove = append(delta.ToRemove, have)
		}
		delta.ToAdd = append(delta.ToAdd, want)
	}
	return delta
}
