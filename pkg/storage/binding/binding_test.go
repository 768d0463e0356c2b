package binding_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
	"github.com/papercomputeco/yearbook/pkg/storage/binding"
)

var _ = Describe("Decide", func() {
	DescribeTable("binds remote only for a well-formed URL with a key",
		func(url, key string, want storage.Backing) {
			got, reason := binding.Decide(binding.Options{RemoteURL: url, RemoteKey: key})
			Expect(got).To(Equal(want))
			Expect(reason).NotTo(BeEmpty())
		},
		Entry("https with key", "https://abc.supabase.co", "k", storage.BackingRemote),
		Entry("http with key", "http://localhost:54321", "k", storage.BackingRemote),
		Entry("postgres with key", "postgres://db:5432/yearbook", "k", storage.BackingRemote),
		Entry("postgresql with key", "postgresql://db/yearbook", "k", storage.BackingRemote),
		Entry("mixed case scheme", "HTTPS://abc.supabase.co", "k", storage.BackingRemote),
		Entry("no URL", "", "k", storage.BackingLocal),
		Entry("placeholder URL", "your_supabase_url", "k", storage.BackingLocal),
		Entry("unknown scheme", "ftp://abc", "k", storage.BackingLocal),
		Entry("no key", "https://abc.supabase.co", "", storage.BackingLocal),
		Entry("blank key", "https://abc.supabase.co", "   ", storage.BackingLocal),
	)
})

var _ = Describe("ParseScheme", func() {
	It("classifies endpoints", func() {
		Expect(binding.ParseScheme("https://x")).To(Equal(binding.SchemeREST))
		Expect(binding.ParseScheme("postgres://x")).To(Equal(binding.SchemePostgres))
		Expect(binding.ParseScheme("x")).To(Equal(binding.SchemeNone))
	})
})

var _ = Describe("New", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("binds an in-memory local store without remote configuration", func() {
		b, err := binding.New(ctx, binding.Options{})
		Expect(err).NotTo(HaveOccurred())
		defer b.Close()

		Expect(b.Backing()).To(Equal(storage.BackingLocal))
		Expect(b.Reason()).To(ContainSubstring("no remote URL"))

		stored, err := b.Memories().Insert(ctx, record.Memory{Type: record.TypeText, Content: "x", YearNumber: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.ID).To(HavePrefix("local_"))
	})

	It("binds a durable local store at LocalPath", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "yearbook.db")

		b, err := binding.New(ctx, binding.Options{LocalPath: dbPath})
		Expect(err).NotTo(HaveOccurred())

		_, err = b.Letters().Insert(ctx, record.Letter{Message: "hi", Recipient: "ann"})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Close()).To(Succeed())

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())

		b, err = binding.New(ctx, binding.Options{LocalPath: dbPath})
		Expect(err).NotTo(HaveOccurred())
		defer b.Close()

		letters, err := b.Letters().Query(ctx, storage.Query{})
		Expect(err).NotTo(HaveOccurred())
		Expect(letters).To(HaveLen(1))
	})

	It("binds the rest backing and never falls back once bound", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		b, err := binding.New(ctx, binding.Options{RemoteURL: server.URL, RemoteKey: "k", LocalPath: ""})
		Expect(err).NotTo(HaveOccurred())
		defer b.Close()
		Expect(b.Backing()).To(Equal(storage.BackingRemote))

		_, err = b.Memories().Query(ctx, storage.Query{})
		Expect(storage.IsTransient(err)).To(BeTrue())
		Expect(b.Backing()).To(Equal(storage.BackingRemote))
	})
})
