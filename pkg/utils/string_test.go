package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	DescribeTable("cuts memory text at a rune count",
		func(in string, n int, want string) {
			Expect(Truncate(in, n)).To(Equal(want))
		},
		Entry("shorter than the limit", "first snow", 20, "first snow"),
		Entry("exactly the limit", "12345", 5, "12345"),
		Entry("longer than the limit", "we finally saw the lake", 10, "we finally..."),
		Entry("multibyte text", "ñandú ñandú", 5, "ñandú..."),
		Entry("emoji are single runes", "🎉🎉🎉", 2, "🎉🎉..."),
		Entry("empty", "", 3, ""),
	)
})
