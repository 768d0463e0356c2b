package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/yearbook/pkg/kv"
	"github.com/papercomputeco/yearbook/pkg/kv/sqlite"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *sqlite.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = sqlite.NewStore(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("NewStore", func() {
		It("creates a database file", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "yearbook.db")

			s, err := sqlite.NewStore(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			// Verify file was created
			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps documents across reopen", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "yearbook.db")

			s, err := sqlite.NewStore(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Set(ctx, "yearbook_memories", []byte(`[{"id":"local_1_a"}]`))).To(Succeed())
			Expect(s.Close()).To(Succeed())

			s, err = sqlite.NewStore(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			doc, err := s.Get(ctx, "yearbook_memories")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(doc)).To(Equal(`[{"id":"local_1_a"}]`))
		})
	})

	It("returns ErrNotFound for absent keys", func() {
		_, err := store.Get(ctx, "missing")
		Expect(err).To(MatchError(kv.ErrNotFound))
	})

	It("upserts documents", func() {
		Expect(store.Set(ctx, "k", []byte("one"))).To(Succeed())
		Expect(store.Set(ctx, "k", []byte("two"))).To(Succeed())

		doc, err := store.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(doc)).To(Equal("two"))
	})

	It("removes keys idempotently", func() {
		Expect(store.Set(ctx, "k", []byte("v"))).To(Succeed())
		Expect(store.Remove(ctx, "k")).To(Succeed())
		Expect(store.Remove(ctx, "k")).To(Succeed())

		_, err := store.Get(ctx, "k")
		Expect(err).To(MatchError(kv.ErrNotFound))
	})

	It("enforces the quota", func() {
		s, err := sqlite.NewStore(ctx, ":memory:", sqlite.WithQuota(2))
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		Expect(s.Set(ctx, "k", []byte("abc"))).To(MatchError(kv.ErrQuotaExceeded))
	})
})
