package triage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wesm/issue-overseer/internal/models"
	"github.com/wesm/issue-overseer/internal/triage"
)

func comment(association models.Association, login string) models.Comment {
	return models.Comment{BodyText: "text", AuthorAssociation: association, AuthorLogin: login}
}

func issue(number int, association models.Association, comments ...models.Comment) models.Issue {
	return models.Issue{
		Repository:        "acme/web",
		Title:             "title",
		URL:               "https://github.com/acme/web/issues/1",
		Number:            number,
		AuthorAssociation: association,
		Comments:          comments,
	}
}

var _ = Describe("Policy", func() {
	var policy triage.Policy

	BeforeEach(func() {
		policy = triage.NewPolicy(triage.DefaultBots, triage.FullWindow)
	})

	Describe("Classify", func() {
		It("treats issues opened by a member as internal", func() {
			Expect(policy.Classify(issue(1, models.AssociationMember))).To(Equal(triage.Internal))
		})

		It("never evaluates comments of internal issues", func() {
			Expect(policy.Classify(issue(1, models.AssociationMember,
				comment(models.AssociationNone, "outsider"),
			))).To(Equal(triage.Internal))
		})

		It("returns not-answered for an outside issue without comments", func() {
			Expect(policy.Classify(issue(1, models.AssociationNone))).To(Equal(triage.NotAnswered))
		})

		It("returns answered when a member spoke last", func() {
			Expect(policy.Classify(issue(1, models.AssociationContributor,
				comment(models.AssociationNone, "reporter"),
				comment(models.AssociationMember, "maintainer"),
			))).To(Equal(triage.Answered))
		})

		It("returns not-answered when an outsider spoke last", func() {
			Expect(policy.Classify(issue(1, models.AssociationNone,
				comment(models.AssociationMember, "maintainer"),
				comment(models.AssociationNone, "reporter"),
			))).To(Equal(triage.NotAnswered))
		})

		It("skips a trailing bot comment and finds the member answer", func() {
			Expect(policy.Classify(issue(1, models.AssociationNone,
				comment(models.AssociationMember, "maintainer"),
				comment(models.AssociationNone, "issuehunt-app"),
			))).To(Equal(triage.Answered))
		})

		It("matches bot logins case-insensitively", func() {
			Expect(policy.Classify(issue(1, models.AssociationNone,
				comment(models.AssociationMember, "maintainer"),
				comment(models.AssociationNone, "IssueHunt-App"),
			))).To(Equal(triage.Answered))
		})

		It("returns not-answered when every comment comes from a bot", func() {
			Expect(policy.Classify(issue(1, models.AssociationNone,
				comment(models.AssociationNone, "issuehunt-app"),
				comment(models.AssociationMember, "issuehunt-app"),
			))).To(Equal(triage.NotAnswered))
		})

		It("treats comments from deleted accounts as outside comments", func() {
			Expect(policy.Classify(issue(1, models.AssociationNone,
				comment(models.AssociationMember, "maintainer"),
				comment(models.AssociationNone, ""),
			))).To(Equal(triage.NotAnswered))
		})

		It("only counts MEMBER as an answer", func() {
			for _, association := range []models.Association{
				models.AssociationOwner,
				models.AssociationCollaborator,
				models.AssociationContributor,
				models.AssociationNone,
			} {
				Expect(policy.Classify(issue(1, models.AssociationNone,
					comment(association, "someone"),
				))).To(Equal(triage.NotAnswered), string(association))
			}
		})

		Context("with the last-comment strategy", func() {
			BeforeEach(func() {
				policy = triage.NewPolicy(triage.DefaultBots, triage.LastComment)
			})

			It("classifies on the newest comment even when a bot posted it", func() {
				Expect(policy.Classify(issue(1, models.AssociationNone,
					comment(models.AssociationMember, "maintainer"),
					comment(models.AssociationNone, "issuehunt-app"),
				))).To(Equal(triage.NotAnswered))
			})

			It("counts a bot comment with MEMBER association as an answer", func() {
				Expect(policy.Classify(issue(1, models.AssociationNone,
					comment(models.AssociationMember, "issuehunt-app"),
				))).To(Equal(triage.Answered))
			})
		})

		Context("without bots", func() {
			It("does not skip any comment", func() {
				policy = triage.NewPolicy(nil, triage.FullWindow)
				Expect(policy.Classify(issue(1, models.AssociationNone,
					comment(models.AssociationMember, "maintainer"),
					comment(models.AssociationNone, "issuehunt-app"),
				))).To(Equal(triage.NotAnswered))
			})
		})
	})

	Describe("Partition", func() {
		It("splits an empty corpus into empty buckets", func() {
			partition := policy.Partition(nil)

			Expect(partition.Internal).To(BeEmpty())
			Expect(partition.Answered).To(BeEmpty())
			Expect(partition.NotAnswered).To(BeEmpty())
		})

		It("places every issue in exactly one bucket, keeping corpus order", func() {
			corpus := []models.Issue{
				issue(1, models.AssociationMember),
				issue(2, models.AssociationNone, comment(models.AssociationMember, "maintainer")),
				issue(3, models.AssociationNone),
				issue(4, models.AssociationMember, comment(models.AssociationNone, "reporter")),
				issue(5, models.AssociationNone, comment(models.AssociationNone, "issuehunt-app")),
				issue(6, models.AssociationFirstTimer,
					comment(models.AssociationMember, "maintainer"),
					comment(models.AssociationNone, "issuehunt-app"),
				),
			}

			partition := policy.Partition(corpus)

			numbers := func(issues []models.Issue) []int {
				result := []int{}
				for _, i := range issues {
					result = append(result, i.Number)
				}
				return result
			}
			Expect(numbers(partition.Internal)).To(Equal([]int{1, 4}))
			Expect(numbers(partition.Answered)).To(Equal([]int{2, 6}))
			Expect(numbers(partition.NotAnswered)).To(Equal([]int{3, 5}))
			Expect(partition.Len()).To(Equal(len(corpus)))
		})

		It("exposes buckets by class", func() {
			partition := policy.Partition([]models.Issue{issue(7, models.AssociationMember)})

			Expect(partition.Bucket(triage.Internal)).To(HaveLen(1))
			Expect(partition.Bucket(triage.Answered)).To(BeEmpty())
			Expect(partition.Bucket(triage.NotAnswered)).To(BeEmpty())
		})
	})
})

var _ = Describe("Strategy", func() {
	DescribeTable("ParseStrategy",
		func(name string, want triage.Strategy) {
			strategy, err := triage.ParseStrategy(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(strategy).To(Equal(want))
		},
		Entry("empty defaults to full window", "", triage.FullWindow),
		Entry("full window", "full-window", triage.FullWindow),
		Entry("last comment", "last-comment", triage.LastComment),
		Entry("case and whitespace", " Last-Comment ", triage.LastComment),
	)

	It("rejects unknown strategies", func() {
		_, err := triage.ParseStrategy("newest")
		Expect(err).To(MatchError(ContainSubstring("unknown triage strategy")))
	})

	It("sizes the comment window from the strategy", func() {
		Expect(triage.FullWindow.CommentWindow()).To(Equal(100))
		Expect(triage.LastComment.CommentWindow()).To(Equal(1))
	})
})
