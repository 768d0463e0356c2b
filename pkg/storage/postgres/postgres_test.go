package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/yearbook/pkg/logger"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
	"github.com/papercomputeco/yearbook/pkg/storage/postgres"
	testutils "github.com/papercomputeco/yearbook/pkg/utils/test"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("YEARBOOK_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("YEARBOOK_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	var (
		driver     *postgres.Driver
		ctx        context.Context
		collection string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dsn := connStr()

		var err error
		driver, err = postgres.NewDriver(ctx, postgres.Config{DSN: dsn}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		// A fresh table per test keeps runs isolated without truncation.
		collection = fmt.Sprintf("memories_test_%d", time.Now().UnixNano())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	It("reports the remote backing", func() {
		Expect(driver.Backing()).To(Equal(storage.BackingRemote))
	})

	Describe("Insert", func() {
		It("assigns an id and defaults created_at", func() {
			row, err := driver.Insert(ctx, collection, record.Fields{"content": "hello", "year_number": 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(row.ID()).NotTo(BeEmpty())
			Expect(row.CreatedAt()).NotTo(BeEmpty())
		})

		It("ignores a caller supplied id", func() {
			row, err := driver.Insert(ctx, collection, record.Fields{"id": "mine", "content": "x"})
			Expect(err).NotTo(HaveOccurred())
			Expect(row.ID()).NotTo(Equal("mine"))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			for i, ts := range []string{"2025-01-01T00:00:00.000Z", "2025-03-01T00:00:00.000Z", "2025-02-01T00:00:00.000Z"} {
				_, err := driver.Insert(ctx, collection, record.Fields{
					"content":     fmt.Sprintf("m%d", i),
					"year_number": 1,
					"created_at":  ts,
				})
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := driver.Insert(ctx, collection, record.Fields{"content": "other", "year_number": 2})
			Expect(err).NotTo(HaveOccurred())
		})

		It("filters by equality and orders newest first by default", func() {
			rows, err := driver.Query(ctx, collection, storage.Query{Equals: storage.Eq("year_number", 1)})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
			Expect(rows[0]["content"]).To(Equal("m1"))
			Expect(rows[1]["content"]).To(Equal("m2"))
			Expect(rows[2]["content"]).To(Equal("m0"))
		})

		It("matches numeric fields given as strings", func() {
			rows, err := driver.Query(ctx, collection, storage.Query{Equals: storage.Eq("year_number", "2")})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
		})

		It("orders ascending on request", func() {
			rows, err := driver.Query(ctx, collection, storage.Query{
				Equals:  storage.Eq("year_number", 1),
				OrderBy: storage.Asc(record.FieldCreatedAt),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows[0]["content"]).To(Equal("m0"))
		})

		It("matches named-type values like their base kind", func() {
			_, err := driver.Insert(ctx, collection, record.Fields{"type": "video", "year_number": 5})
			Expect(err).NotTo(HaveOccurred())

			rows, err := driver.Query(ctx, collection, storage.Query{Equals: storage.Eq("type", record.TypeVideo)})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
		})

		It("returns equal keys in the same order every time", func() {
			for range 3 {
				_, err := driver.Insert(ctx, collection, record.Fields{"year_number": 9, "created_at": "2025-05-05T00:00:00.000Z"})
				Expect(err).NotTo(HaveOccurred())
			}

			ids := func() []string {
				rows, err := driver.Query(ctx, collection, storage.Query{Equals: storage.Eq("year_number", 9)})
				Expect(err).NotTo(HaveOccurred())
				out := make([]string, 0, len(rows))
				for _, r := range rows {
					out = append(out, r.ID())
				}
				return out
			}

			first := ids()
			Expect(first).To(HaveLen(3))
			Expect(ids()).To(Equal(first))
		})

		It("round-trips every memory field", func() {
			memories := storage.NewCollection[record.Memory](driver, collection)
			want := testutils.FullMemory()

			stored, err := memories.Insert(ctx, want)
			Expect(err).NotTo(HaveOccurred())
			want.ID = stored.ID

			got, err := memories.Query(ctx, storage.Query{Equals: storage.Eq(record.FieldYearNumber, want.YearNumber)})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]record.Memory{want}))
		})

		It("rejects invalid field names", func() {
			_, err := driver.Query(ctx, collection, storage.Query{Equals: storage.Eq("doc'; --", 1)})
			Expect(storage.IsRejected(err)).To(BeTrue())
		})
	})

	Describe("DeleteByID", func() {
		It("reports whether a row was removed", func() {
			row, err := driver.Insert(ctx, collection, record.Fields{"content": "bye"})
			Expect(err).NotTo(HaveOccurred())

			removed, err := driver.DeleteByID(ctx, collection, row.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())

			removed, err = driver.DeleteByID(ctx, collection, row.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})
	})

	Describe("Subscribe", func() {
		It("delivers matching inserts only", func() {
			var (
				mu      sync.Mutex
				changes []storage.Change
			)
			sub, err := driver.Subscribe(ctx, collection, storage.Eq("year_number", 1), func(c storage.Change) {
				mu.Lock()
				defer mu.Unlock()
				changes = append(changes, c)
			})
			Expect(err).NotTo(HaveOccurred())
			defer sub.Unsubscribe()

			_, err = driver.Insert(ctx, collection, record.Fields{"content": "skip", "year_number": 2})
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.Insert(ctx, collection, record.Fields{"content": "keep", "year_number": 1})
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() int {
				mu.Lock()
				defer mu.Unlock()
				return len(changes)
			}).Should(Equal(1))

			mu.Lock()
			defer mu.Unlock()
			Expect(changes[0].Type).To(Equal(storage.ChangeInsert))
			Expect(changes[0].Record["content"]).To(Equal("keep"))
		})
	})
})
