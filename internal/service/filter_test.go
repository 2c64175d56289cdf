package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sanctumos/code-buddy/internal/model"
	"github.com/sanctumos/code-buddy/internal/service"
)

func repoNamed(name string) *model.Repository {
	fullName := "acme/" + name
	return &model.Repository{Name: &name, FullName: &fullName}
}

var _ = Describe("AdmissionFilter", func() {
	var (
		ctx    context.Context
		filter *service.AdmissionFilter
	)

	BeforeEach(func() {
		ctx = context.Background()
		filter = service.NewAdmissionFilter(nil)
	})

	It("admits a normal event", func() {
		event := &model.Event{EventType: "issues", Repository: repoNamed("widgets")}
		Expect(filter.Admit(ctx, event)).To(BeTrue())
	})

	It("rejects parse_error records", func() {
		event := &model.Event{EventType: model.EventTypeParseError, Repository: repoNamed("widgets")}
		Expect(filter.Admit(ctx, event)).To(BeFalse())
	})

	It("rejects repositories whose display name contains the reserved marker", func() {
		Expect(filter.Admit(ctx, &model.Event{EventType: "push", Repository: repoNamed("test-repo")})).To(BeFalse())
		Expect(filter.Admit(ctx, &model.Event{EventType: "push", Repository: repoNamed("integration-Tests")})).To(BeFalse())
	})

	It("admits events without a repository", func() {
		Expect(filter.Admit(ctx, &model.Event{EventType: "ping"})).To(BeTrue())
	})
})
