package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/yearbook/cmd/yearbook/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "yearbook-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .yearbook dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".yearbook"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	execute := func(args ...string) (string, error) {
		out := &bytes.Buffer{}
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			_, err := execute("set", "storage.remote_url", "https://db.example.com")
			Expect(err).NotTo(HaveOccurred())

			// Verify the config file was created
			_, err = os.Stat(filepath.Join(tmpDir, ".yearbook", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			_, err := execute("set", "invalid_key", "value")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			_, err := execute("set", "storage.remote_url")
			Expect(err).To(HaveOccurred())
		})

		It("rejects zero arguments", func() {
			_, err := execute("set")
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid quota values", func() {
			_, err := execute("set", "storage.local_quota", "not-a-number")
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown event providers", func() {
			_, err := execute("set", "events.provider", "carrier-pigeon")
			Expect(err).To(HaveOccurred())
		})

		It("masks secrets in its confirmation", func() {
			out, err := execute("set", "media.bot_token", "123456:ABCDEF")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("****CDEF"))
			Expect(out).NotTo(ContainSubstring("123456:ABCDEF"))
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			_, err := execute("set", "storage.remote_url", "https://db.example.com")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("get", "storage.remote_url")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("https://db.example.com"))
		})

		It("masks secrets unless revealed", func() {
			_, err := execute("set", "storage.remote_key", "supersecretkey")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("get", "storage.remote_key")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).NotTo(ContainSubstring("supersecretkey"))

			out, err = execute("get", "storage.remote_key", "--reveal")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("supersecretkey"))
		})

		It("runs without error for unset key", func() {
			out, err := execute("get", "storage.remote_url")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			_, err := execute("get", "invalid_key")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			_, err := execute("get")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("runs without error when no config exists", func() {
			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("api.listen"))
		})

		It("lists set values with secrets masked", func() {
			_, err := execute("set", "api.access_code", "letmein-please")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("****ease"))
			Expect(out).NotTo(ContainSubstring("letmein-please"))
		})

		It("rejects any arguments", func() {
			_, err := execute("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})
