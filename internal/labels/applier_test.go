package labels_test

import (
	"context"
	"errors"
	"net/http"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wesm/issue-overseer/internal/api"
	"github.com/wesm/issue-overseer/internal/labels"
	"github.com/wesm/issue-overseer/internal/models"
	"github.com/wesm/issue-overseer/internal/triage"
)

// tracker is an in-memory stand-in for the issue label endpoints.
type tracker struct {
	labels  map[string]map[string]bool
	calls   []string
	failAdd string
	failRm  string
}

var _ labels.IssueLabelClient = (*tracker)(nil)

func newTracker() *tracker {
	return &tracker{labels: make(map[string]map[string]bool)}
}

func (t *tracker) AddIssueLabel(ctx context.Context, issueURL, name string) error {
	t.calls = append(t.calls, "add "+name)
	if issueURL == t.failAdd {
		return &api.TransportError{Op: "add", StatusCode: http.StatusForbidden, Message: "forbidden"}
	}
	if t.labels[issueURL] == nil {
		t.labels[issueURL] = make(map[string]bool)
	}
	t.labels[issueURL][name] = true
	return nil
}

func (t *tracker) RemoveIssueLabel(ctx context.Context, issueURL, name string) error {
	t.calls = append(t.calls, "remove "+name)
	if issueURL == t.failRm {
		return &api.TransportError{Op: "remove", StatusCode: http.StatusBadGateway, Message: "bad gateway"}
	}
	if !t.labels[issueURL][name] {
		return &api.TransportError{Op: "remove", StatusCode: http.StatusNotFound, Message: "Label does not exist"}
	}
	delete(t.labels[issueURL], name)
	return nil
}

func (t *tracker) labelsOf(issueURL string) []string {
	names := []string{}
	for name := range t.labels[issueURL] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newIssue(url string, association models.Association, comments ...models.Comment) models.Issue {
	return models.Issue{Repository: "acme/web", URL: url, AuthorAssociation: association, Comments: comments}
}

var _ = Describe("Applier", func() {
	var (
		set     labels.Set
		policy  triage.Policy
		client  *tracker
		changes []labels.Change
		applier *labels.Applier
		corpus  []models.Issue
	)

	const (
		internalURL    = "https://github.com/acme/web/issues/1"
		answeredURL    = "https://github.com/acme/web/issues/2"
		notAnsweredURL = "https://github.com/acme/web/issues/3"
	)

	BeforeEach(func() {
		set = labels.Canonical("acme")
		policy = triage.NewPolicy(triage.DefaultBots, triage.FullWindow)
		client = newTracker()
		changes = nil
		applier = labels.NewApplier(labels.BestEffort(client), set, false, func(c labels.Change) {
			changes = append(changes, c)
		})
		corpus = []models.Issue{
			newIssue(internalURL, models.AssociationMember),
			newIssue(answeredURL, models.AssociationNone,
				models.Comment{AuthorAssociation: models.AssociationMember, AuthorLogin: "maintainer"},
				models.Comment{AuthorAssociation: models.AssociationNone, AuthorLogin: "issuehunt-app"},
			),
			newIssue(notAnsweredURL, models.AssociationNone),
		}
	})

	It("labels each issue with the label of its class", func() {
		report, err := applier.Apply(context.Background(), policy.Partition(corpus))

		Expect(err).NotTo(HaveOccurred())
		Expect(client.labelsOf(internalURL)).To(Equal([]string{"answering: reported by acme"}))
		Expect(client.labelsOf(answeredURL)).To(Equal([]string{labels.AnsweredName}))
		Expect(client.labelsOf(notAnsweredURL)).To(Equal([]string{labels.NotAnsweredName}))
		Expect(report).To(Equal(labels.Report{Absent: 9, Added: 3}))
	})

	It("issues every removal before any addition", func() {
		_, err := applier.Apply(context.Background(), policy.Partition(corpus))

		Expect(err).NotTo(HaveOccurred())
		Expect(client.calls).To(HaveLen(12))
		for i, call := range client.calls {
			if i < 9 {
				Expect(call).To(HavePrefix("remove "))
			} else {
				Expect(call).To(HavePrefix("add "))
			}
		}
	})

	It("moves a reclassified issue from not answered to answered", func() {
		client.labels[answeredURL] = map[string]bool{labels.NotAnsweredName: true, "bug": true}

		report, err := applier.Apply(context.Background(), policy.Partition(corpus))

		Expect(err).NotTo(HaveOccurred())
		Expect(client.labelsOf(answeredURL)).To(Equal([]string{labels.AnsweredName, "bug"}))
		Expect(report.Removed).To(Equal(1))
	})

	It("converges to the same labels when run twice", func() {
		partition := policy.Partition(corpus)

		_, err := applier.Apply(context.Background(), partition)
		Expect(err).NotTo(HaveOccurred())
		first := map[string][]string{}
		for _, issue := range corpus {
			first[issue.URL] = client.labelsOf(issue.URL)
		}

		report, err := applier.Apply(context.Background(), partition)
		Expect(err).NotTo(HaveOccurred())
		for _, issue := range corpus {
			Expect(client.labelsOf(issue.URL)).To(Equal(first[issue.URL]))
		}
		Expect(report).To(Equal(labels.Report{Removed: 3, Absent: 6, Added: 3}))
	})

	It("continues past removal failures", func() {
		client.failRm = answeredURL

		report, err := applier.Apply(context.Background(), policy.Partition(corpus))

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Failed).To(Equal(3))
		Expect(report.Added).To(Equal(3))
	})

	It("aborts on the first failed addition", func() {
		client.failAdd = answeredURL

		report, err := applier.Apply(context.Background(), policy.Partition(corpus))

		Expect(err).To(MatchError(ContainSubstring(answeredURL)))
		var transportErr *api.TransportError
		Expect(errors.As(err, &transportErr)).To(BeTrue())
		Expect(report.Added).To(Equal(1))
		Expect(client.labelsOf(notAnsweredURL)).To(BeEmpty())
	})

	It("reports every change", func() {
		_, err := applier.Apply(context.Background(), policy.Partition(corpus))

		Expect(err).NotTo(HaveOccurred())
		Expect(changes).To(HaveLen(12))
		Expect(changes[0].Action).To(Equal(labels.ActionRemove))
		Expect(changes[0].Outcome).To(Equal("absent"))
		Expect(changes[11]).To(Equal(labels.Change{
			Issue:   corpus[2],
			Label:   labels.NotAnsweredName,
			Action:  labels.ActionAdd,
			Outcome: "added",
		}))
	})

	It("mutates nothing in dry-run mode", func() {
		applier = labels.NewApplier(labels.BestEffort(client), set, true, nil)

		_, err := applier.Apply(context.Background(), policy.Partition(corpus))

		Expect(err).NotTo(HaveOccurred())
		Expect(client.calls).To(BeEmpty())
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := applier.Apply(ctx, policy.Partition(corpus))

		Expect(err).To(MatchError(context.Canceled))
		Expect(client.calls).To(BeEmpty())
	})
})

var _ = Describe("BestEffort", func() {
	It("maps removal results to outcomes", func() {
		client := newTracker()
		client.labels["u"] = map[string]bool{"x": true}
		labeler := labels.BestEffort(client)

		Expect(labeler.RemoveIssueLabel(context.Background(), "u", "x").Outcome).To(Equal(labels.Removed))

		absent := labeler.RemoveIssueLabel(context.Background(), "u", "x")
		Expect(absent.Outcome).To(Equal(labels.Absent))
		Expect(api.IsNotFound(absent.Err)).To(BeTrue())

		client.failRm = "u"
		Expect(labeler.RemoveIssueLabel(context.Background(), "u", "x").Outcome).To(Equal(labels.Failed))
	})
})
