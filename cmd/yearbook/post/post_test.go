package postcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	postcmder "github.com/papercomputeco/yearbook/cmd/yearbook/post"
	"github.com/papercomputeco/yearbook/pkg/dotdir"
)

var _ = Describe("NewPostCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := postcmder.NewPostCmd()
		Expect(cmd.Use).To(Equal("post [files...]"))
	})

	It("accepts up to ten files", func() {
		cmd := postcmder.NewPostCmd()
		Expect(cmd.Args(cmd, make([]string, 10))).To(Succeed())
		Expect(cmd.Args(cmd, make([]string, 11))).To(HaveOccurred())
	})
})

var _ = Describe("Post command execution", func() {
	var (
		configDir string
		out       *bytes.Buffer
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	run := func(args ...string) error {
		cmd := postcmder.NewPostCmd()
		cmd.Flags().String("config-dir", configDir, "")
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("posts a text memory to the in-memory store", func() {
		Expect(run("-m", "first day", "--year", "1", "--author", "sam")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("[text]"))
		Expect(out.String()).To(ContainSubstring("sam"))
	})

	It("uses the saved session year", func() {
		Expect(dotdir.NewManager().SaveSession(&dotdir.Session{Year: 2}, configDir)).To(Succeed())
		Expect(run("-m", "hello")).To(Succeed())
	})

	It("requires a year", func() {
		Expect(run("-m", "hello")).To(MatchError(ContainSubstring("no year selected")))
	})

	It("rejects an empty memory", func() {
		Expect(run("--year", "1")).To(MatchError(ContainSubstring("invalid draft")))
	})

	It("refuses files when the media provider is not configured", func() {
		photo := filepath.Join(configDir, "photo.png")
		Expect(os.WriteFile(photo, []byte("\x89PNG\r\n\x1a\n0000"), 0o600)).To(Succeed())

		err := run(photo, "--year", "1")
		Expect(err).To(MatchError(ContainSubstring("media provider not configured")))
	})

	It("reports missing files", func() {
		err := run(filepath.Join(configDir, "nope.jpg"), "--year", "1")
		Expect(err).To(HaveOccurred())
	})
})
