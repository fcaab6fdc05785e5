// Package triage decides, for every open issue, whether it was reported by the
// organization itself, answered by a member, or still waiting for an answer.
//
// The decision only sees the comment window that was fetched for an issue. An
// issue with more comments than the window is classified on the window alone.
package triage

import (
	"fmt"
	"strings"

	"github.com/wesm/issue-overseer/internal/models"
)

// Class is the answering state assigned to an issue.
type Class int

const (
	// Internal issues were opened by a member of the organization.
	Internal Class = iota
	// Answered issues have a member comment as their latest human comment.
	Answered
	// NotAnswered issues have no comments, only bot comments, or an outside
	// comment as their latest human comment.
	NotAnswered
)

func (c Class) String() string {
	switch c {
	case Internal:
		return "internal"
	case Answered:
		return "answered"
	case NotAnswered:
		return "not-answered"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Classes lists every class in the order labels are applied.
var Classes = []Class{Internal, Answered, NotAnswered}

// Strategy selects how much of a comment thread is fetched and how it is read.
type Strategy string

const (
	// FullWindow reads the last MaxWindow comments and skips bot comments.
	FullWindow Strategy = "full-window"
	// LastComment reads only the newest comment, whoever posted it. An issue
	// whose newest comment comes from a bot is classified on that comment.
	LastComment Strategy = "last-comment"
)

// MaxWindow is the comment window used by FullWindow.
const MaxWindow = 100

// ParseStrategy parses a strategy name. An empty name selects FullWindow.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", FullWindow:
		return FullWindow, nil
	case LastComment:
		return LastComment, nil
	default:
		return "", fmt.Errorf("unknown triage strategy %q (want %q or %q)", name, FullWindow, LastComment)
	}
}

// CommentWindow returns the number of most recent comments to fetch per issue.
func (s Strategy) CommentWindow() int {
	if s == LastComment {
		return 1
	}
	return MaxWindow
}

// DefaultBots are automation accounts whose comments never count as an answer
// or as a question.
var DefaultBots = []string{"issuehunt-app"}

// Policy is the immutable classification configuration.
type Policy struct {
	strategy Strategy
	bots     map[string]struct{}
}

// NewPolicy creates a policy ignoring comments from the given bot logins.
// Logins are matched case-insensitively.
func NewPolicy(bots []string, strategy Strategy) Policy {
	set := make(map[string]struct{}, len(bots))
	for _, bot := range bots {
		bot = strings.ToLower(strings.TrimSpace(bot))
		if bot != "" {
			set[bot] = struct{}{}
		}
	}
	if strategy == "" {
		strategy = FullWindow
	}
	return Policy{strategy: strategy, bots: set}
}

// Strategy returns the strategy the policy classifies with.
func (p Policy) Strategy() Strategy {
	return p.strategy
}

// IsBot reports whether login belongs to an excluded automation account.
func (p Policy) IsBot(login string) bool {
	_, ok := p.bots[strings.ToLower(login)]
	return ok
}

// Classify assigns a single issue to exactly one class.
func (p Policy) Classify(issue models.Issue) Class {
	if issue.AuthorAssociation == models.AssociationMember {
		return Internal
	}

	comment, ok := p.lastRelevantComment(issue.Comments)
	if !ok {
		return NotAnswered
	}
	if comment.AuthorAssociation == models.AssociationMember {
		return Answered
	}
	return NotAnswered
}

// lastRelevantComment picks the comment whose author "spoke last".
func (p Policy) lastRelevantComment(comments []models.Comment) (models.Comment, bool) {
	if len(comments) == 0 {
		return models.Comment{}, false
	}

	if p.strategy == LastComment {
		return comments[len(comments)-1], true
	}

	for i := len(comments) - 1; i >= 0; i-- {
		if !p.IsBot(comments[i].AuthorLogin) {
			return comments[i], true
		}
	}
	return models.Comment{}, false
}

// Partition is the three-way split of an issue corpus. Issues keep their
// corpus order inside each bucket.
type Partition struct {
	Internal    []models.Issue
	Answered    []models.Issue
	NotAnswered []models.Issue
}

// Bucket returns the issues assigned to class c.
func (p Partition) Bucket(c Class) []models.Issue {
	switch c {
	case Internal:
		return p.Internal
	case Answered:
		return p.Answered
	default:
		return p.NotAnswered
	}
}

// Len returns the number of classified issues.
func (p Partition) Len() int {
	return len(p.Internal) + len(p.Answered) + len(p.NotAnswered)
}

// Partition classifies every issue of the corpus.
func (p Policy) Partition(issues []models.Issue) Partition {
	result := Partition{
		Internal:    []models.Issue{},
		Answered:    []models.Issue{},
		NotAnswered: []models.Issue{},
	}
	for _, issue := range issues {
		switch p.Classify(issue) {
		case Internal:
			result.Internal = append(result.Internal, issue)
		case Answered:
			result.Answered = append(result.Answered, issue)
		default:
			result.NotAnswered = append(result.NotAnswered, issue)
		}
	}
	return result
}
