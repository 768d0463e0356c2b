package local_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/yearbook/pkg/kv"
	"github.com/papercomputeco/yearbook/pkg/kv/inmemory"
	"github.com/papercomputeco/yearbook/pkg/logger"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
	"github.com/papercomputeco/yearbook/pkg/storage/local"
)

// failingStore fails every operation with err.
type failingStore struct {
	err error
}

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Set(context.Context, string, []byte) error   { return f.err }
func (f failingStore) Remove(context.Context, string) error        { return f.err }
func (f failingStore) Close() error                                { return nil }

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		store  *inmemory.Store
		driver *local.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
		driver = local.NewDriver(store, logger.Nop())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("reports the local backing", func() {
		Expect(driver.Backing()).To(Equal(storage.BackingLocal))
	})

	Describe("Insert", func() {
		It("assigns a local id built from the clock and a random suffix", func() {
			driver.SetNow(func() time.Time { return time.UnixMilli(1700000000123) })

			row, err := driver.Insert(ctx, record.Memories, record.Fields{"content": "hi", "year_number": 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(row.ID()).To(MatchRegexp(`^local_1700000000123_[0-9a-z]{9}$`))
			Expect(row.CreatedAt()).To(Equal("2023-11-14T22:13:20.123Z"))
		})

		It("keeps a supplied created_at", func() {
			row, err := driver.Insert(ctx, record.Memories, record.Fields{"created_at": "2019-01-01T00:00:00.000Z"})
			Expect(err).NotTo(HaveOccurred())
			Expect(row.CreatedAt()).To(Equal("2019-01-01T00:00:00.000Z"))
		})

		It("never reuses ids within a collection", func() {
			driver.SetNow(func() time.Time { return time.UnixMilli(1) })

			seen := map[string]bool{}
			for range 200 {
				row, err := driver.Insert(ctx, record.Memories, record.Fields{})
				Expect(err).NotTo(HaveOccurred())
				Expect(seen).NotTo(HaveKey(row.ID()))
				seen[row.ID()] = true
			}
		})

		It("persists one document per collection under the prefixed key", func() {
			_, err := driver.Insert(ctx, record.Letters, record.Fields{"message": "hello"})
			Expect(err).NotTo(HaveOccurred())

			doc, err := store.Get(ctx, local.KeyPrefix+record.Letters)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.HasPrefix(string(doc), "[")).To(BeTrue())
			Expect(string(doc)).To(ContainSubstring(`"message":"hello"`))
		})

		It("does not let callers mutate stored rows", func() {
			row, err := driver.Insert(ctx, record.Memories, record.Fields{"content": "orig"})
			Expect(err).NotTo(HaveOccurred())
			row["content"] = "changed"

			rows, err := driver.Query(ctx, record.Memories, storage.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows[0]["content"]).To(Equal("orig"))
		})

		It("keeps every concurrent insert", func() {
			var wg sync.WaitGroup
			for i := range 50 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := driver.Insert(ctx, record.Memories, record.Fields{"content": fmt.Sprint(i)})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			rows, err := driver.Query(ctx, record.Memories, storage.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(50))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			for _, f := range []record.Fields{
				{"content": "a", "year_number": 1, "created_at": "2025-01-01T00:00:00.000Z"},
				{"content": "b", "year_number": 2, "created_at": "2025-06-01T00:00:00.000Z"},
				{"content": "c", "year_number": 1, "created_at": "2025-03-01T00:00:00.000Z"},
				{"content": "d", "year_number": 1, "created_at": "2025-03-01T00:00:00.000Z"},
			} {
				_, err := driver.Insert(ctx, record.Memories, f)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		contents := func(rows []record.Fields) []string {
			out := make([]string, 0, len(rows))
			for _, r := range rows {
				out = append(out, r["content"].(string))
			}
			return out
		}

		It("returns nothing for an unknown collection", func() {
			rows, err := driver.Query(ctx, "unknown", storage.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})

		It("orders newest first by default, keeping insertion order on ties", func() {
			rows, err := driver.Query(ctx, record.Memories, storage.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(contents(rows)).To(Equal([]string{"b", "c", "d", "a"}))
		})

		It("filters by a single equality", func() {
			rows, err := driver.Query(ctx, record.Memories, storage.Query{Equals: storage.Eq("year_number", 1)})
			Expect(err).NotTo(HaveOccurred())
			Expect(contents(rows)).To(Equal([]string{"c", "d", "a"}))
		})

		It("orders ascending on request", func() {
			rows, err := driver.Query(ctx, record.Memories, storage.Query{
				Equals:  storage.Eq("year_number", "1"),
				OrderBy: storage.Asc(record.FieldCreatedAt),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(contents(rows)).To(Equal([]string{"a", "c", "d"}))
		})

		It("re-reads the store on every call", func() {
			other := local.NewDriver(store, logger.Nop())
			_, err := other.Insert(ctx, record.Memories, record.Fields{"content": "e", "year_number": 1, "created_at": "2026-01-01T00:00:00.000Z"})
			Expect(err).NotTo(HaveOccurred())

			rows, err := driver.Query(ctx, record.Memories, storage.Query{Equals: storage.Eq("year_number", 1)})
			Expect(err).NotTo(HaveOccurred())
			Expect(contents(rows)[0]).To(Equal("e"))
		})
	})

	Describe("DeleteByID", func() {
		It("removes the record and reports it", func() {
			row, err := driver.Insert(ctx, record.Memories, record.Fields{"content": "x"})
			Expect(err).NotTo(HaveOccurred())

			removed, err := driver.DeleteByID(ctx, record.Memories, row.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())

			rows, err := driver.Query(ctx, record.Memories, storage.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})

		It("reports false for an absent id without error", func() {
			removed, err := driver.DeleteByID(ctx, record.Memories, "local_0_missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})
	})

	Describe("Subscribe", func() {
		It("returns a subscription that never fires", func() {
			fired := false
			sub, err := driver.Subscribe(ctx, record.Memories, storage.Eq("year_number", 1), func(storage.Change) {
				fired = true
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.Insert(ctx, record.Memories, record.Fields{"year_number": 1})
			Expect(err).NotTo(HaveOccurred())

			Consistently(func() bool { return fired }, "50ms").Should(BeFalse())
			Expect(sub.Unsubscribe()).To(Succeed())
			Expect(sub.Unsubscribe()).To(Succeed())
		})
	})

	Describe("failures", func() {
		It("reports quota exhaustion as transient", func() {
			d := local.NewDriver(inmemory.NewStore(inmemory.WithQuota(64)), logger.Nop())

			_, err := d.Insert(ctx, record.Memories, record.Fields{"content": strings.Repeat("x", 128)})
			Expect(err).To(HaveOccurred())
			Expect(storage.IsTransient(err)).To(BeTrue())
			Expect(err).To(MatchError(kv.ErrQuotaExceeded))
		})

		It("reports a corrupted document as transient", func() {
			Expect(store.Set(ctx, local.KeyPrefix+record.Memories, []byte("{not json"))).To(Succeed())

			_, err := driver.Query(ctx, record.Memories, storage.Query{})
			Expect(storage.IsTransient(err)).To(BeTrue())
		})

		It("reports store faults as transient", func() {
			d := local.NewDriver(failingStore{err: fmt.Errorf("disk gone")}, logger.Nop())

			_, err := d.Query(ctx, record.Memories, storage.Query{})
			Expect(storage.IsTransient(err)).To(BeTrue())
		})
	})
})
