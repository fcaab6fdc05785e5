package models

import "strings"

// Association is the tracker-assigned relationship of an author to a repository
type Association string

// Author associations reported by GitHub
const (
	AssociationMember        Association = "MEMBER"
	AssociationOwner         Association = "OWNER"
	AssociationCollaborator  Association = "COLLABORATOR"
	AssociationContributor   Association = "CONTRIBUTOR"
	AssociationFirstTimer    Association = "FIRST_TIMER"
	AssociationFirstTimeCont Association = "FIRST_TIME_CONTRIBUTOR"
	AssociationMannequin     Association = "MANNEQUIN"
	AssociationNone          Association = "NONE"
)

// Repository represents a GitHub repository as listed for an organization
type Repository struct {
	Name     string
	Archived bool
}

// Label represents a GitHub label
type Label struct {
	Name  string
	Color string
}

// SameColor reports whether two labels carry the same color, ignoring case
// and a leading '#'.
func (l Label) SameColor(other Label) bool {
	return normalizeColor(l.Color) == normalizeColor(other.Color)
}

func normalizeColor(color string) string {
	return strings.ToLower(strings.TrimPrefix(color, "#"))
}

// Issue represents an open GitHub issue with its most recent comments
type Issue struct {
	Repository        string
	Title             string
	URL               string
	Number            int
	AuthorAssociation Association
	// Comments holds the retrieved window, oldest first.
	Comments []Comment
	// CommentsTruncated is set when the issue has more comments than the window.
	CommentsTruncated bool
}

// Comment represents a GitHub issue comment
type Comment struct {
	BodyText          string
	AuthorAssociation Association
	// AuthorLogin is empty for deleted accounts.
	AuthorLogin string
}
