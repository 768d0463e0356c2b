package wire_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/config"
	"github.com/papercomputeco/yearbook/pkg/dotdir"
	"github.com/papercomputeco/yearbook/pkg/eventstream/kafka"
	"github.com/papercomputeco/yearbook/pkg/eventstream/nop"
	"github.com/papercomputeco/yearbook/pkg/journal"
	"github.com/papercomputeco/yearbook/pkg/logger"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

func newCmd(configDir string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config-dir", configDir, "")
	cmd.Flags().Bool("debug", false, "")
	wire.AddJournalFlags(cmd)
	return cmd
}

var _ = Describe("wire", func() {
	var configDir string

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	Describe("AddJournalFlags", func() {
		It("registers every journal flag", func() {
			cmd := newCmd(configDir)
			for _, key := range wire.JournalFlags {
				Expect(cmd.Flags().Lookup(config.Registry[key].Name)).NotTo(BeNil(), key)
			}
		})
	})

	Describe("NewServiceLogger", func() {
		It("appends JSON lines to the log file in the yearbook directory", func() {
			cmd := newCmd(configDir)
			stderr := &bytes.Buffer{}
			cmd.SetErr(stderr)

			log, closeLog, err := wire.NewServiceLogger(cmd, wire.ServeLogFile)
			Expect(err).NotTo(HaveOccurred())
			log.Info("api server ready", "backing", "local")
			Expect(closeLog()).To(Succeed())

			raw, err := os.ReadFile(filepath.Join(configDir, wire.ServeLogFile))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(ContainSubstring(`"msg":"api server ready"`))
			Expect(string(raw)).To(ContainSubstring(`"backing":"local"`))
			Expect(stderr.String()).To(ContainSubstring("api server ready"))
		})

		It("keeps earlier runs in the log file", func() {
			for _, msg := range []string{"first run", "second run"} {
				log, closeLog, err := wire.NewServiceLogger(newCmd(configDir), wire.ServeLogFile)
				Expect(err).NotTo(HaveOccurred())
				log.Info(msg)
				Expect(closeLog()).To(Succeed())
			}

			raw, err := os.ReadFile(filepath.Join(configDir, wire.ServeLogFile))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(ContainSubstring("first run"))
			Expect(string(raw)).To(ContainSubstring("second run"))
		})
	})

	Describe("LoadConfig", func() {
		It("returns defaults when nothing is configured", func() {
			cmd := newCmd(configDir)
			cfg, err := wire.LoadConfig(cmd, wire.JournalFlags)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Events.Provider).To(Equal("nop"))
			Expect(cfg.Storage.RemoteURL).To(BeEmpty())
		})

		It("defaults the local store into the yearbook directory", func() {
			cfg, err := wire.LoadConfig(newCmd(configDir), wire.JournalFlags)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.LocalPath).To(Equal(filepath.Join(configDir, "yearbook.db")))
		})

		It("leaves the local path empty for ephemeral runs", func() {
			cmd := newCmd(configDir)
			Expect(cmd.Flags().Set("ephemeral", "true")).To(Succeed())

			cfg, err := wire.LoadConfig(cmd, wire.JournalFlags)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.LocalPath).To(BeEmpty())
		})

		It("lets flags override the config file", func() {
			err := os.WriteFile(filepath.Join(configDir, "config.toml"),
				[]byte("[storage]\nlocal_path = \"from-file.db\"\nlocal_quota = 10\n"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			cmd := newCmd(configDir)
			Expect(cmd.Flags().Set("local-quota", "2048")).To(Succeed())

			cfg, err := wire.LoadConfig(cmd, wire.JournalFlags)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.LocalPath).To(Equal("from-file.db"))
			Expect(cfg.Storage.LocalQuota).To(Equal(int64(2048)))
		})
	})

	Describe("NewPublisher", func() {
		It("defaults to the nop publisher", func() {
			p, err := wire.NewPublisher(config.EventsConfig{})
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("builds a kafka publisher from the broker list", func() {
			p, err := wire.NewPublisher(config.EventsConfig{Provider: "kafka", Brokers: "a:9092, b:9092"})
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
			Expect(p.Close()).To(Succeed())
		})

		It("requires brokers for kafka", func() {
			_, err := wire.NewPublisher(config.EventsConfig{Provider: "kafka"})
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown providers", func() {
			_, err := wire.NewPublisher(config.EventsConfig{Provider: "carrier-pigeon"})
			Expect(err).To(MatchError(ContainSubstring("carrier-pigeon")))
		})
	})

	Describe("OpenJournal", func() {
		It("binds local storage without a remote and posts text", func() {
			cfg := config.NewDefaultConfig()
			j, err := wire.OpenJournal(context.Background(), cfg, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			defer func() { Expect(j.Close()).To(Succeed()) }()

			Expect(j.Service.Backing()).To(Equal(storage.BackingLocal))
			Expect(j.Service.MediaConfigured()).To(BeFalse())

			m, err := j.Service.Post(context.Background(), journal.Draft{Content: "first day", YearNumber: 1})
			Expect(err).NotTo(HaveOccurred())

			memories, err := j.Service.ListYear(context.Background(), 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(memories).To(HaveLen(1))
			Expect(memories[0].ID).To(Equal(m.ID))
		})

		It("reports the media provider once both credentials are set", func() {
			cfg := config.NewDefaultConfig()
			cfg.Media.BotToken = "token"
			cfg.Media.ChatID = "42"
			j, err := wire.OpenJournal(context.Background(), cfg, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			defer j.Close()

			Expect(j.Service.MediaConfigured()).To(BeTrue())
		})

		It("rejects a malformed cache ttl", func() {
			cfg := config.NewDefaultConfig()
			cfg.Media.ResolveCacheTTL = "soon"
			_, err := wire.OpenJournal(context.Background(), cfg, logger.Nop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Selection", func() {
		It("prefers explicit values", func() {
			year, author, err := wire.Selection(newCmd(configDir), 3, "sam")
			Expect(err).NotTo(HaveOccurred())
			Expect(year).To(Equal(3))
			Expect(author).To(Equal("sam"))
		})

		It("falls back to the saved session", func() {
			err := dotdir.NewManager().SaveSession(&dotdir.Session{Year: 2, Author: "ari"}, configDir)
			Expect(err).NotTo(HaveOccurred())

			year, author, err := wire.Selection(newCmd(configDir), 0, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(year).To(Equal(2))
			Expect(author).To(Equal("ari"))
		})

		It("errors when no year is known", func() {
			_, _, err := wire.Selection(newCmd(configDir), 0, "")
			Expect(err).To(MatchError(ContainSubstring("no year selected")))
		})
	})
})

var _ = Describe("SelectYear", func() {
	It("returns an explicit year without reading the session", func() {
		cmd := newCmd("/nonexistent/never/read")
		year, err := wire.SelectYear(cmd, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(year).To(Equal(4))
	})

	It("reads the session year", func() {
		dir := GinkgoT().TempDir()
		Expect(dotdir.NewManager().SaveSession(&dotdir.Session{Year: 6}, dir)).To(Succeed())

		year, err := wire.SelectYear(newCmd(dir), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(year).To(Equal(6))
	})
})
