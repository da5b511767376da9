package extract

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractDate", func() {
	var extractor *Extractor

	BeforeEach(func() {
		extractor = newTestExtractor()
	})

	Context("with numeric year-first dates", func() {
		It("parses slash separators with a time of day", func() {
			date := extractor.ExtractDate("ご利用日 2026/01/15 13:34")
			Expect(date).To(HaveValue(Equal(civil(2026, time.January, 15))))
		})

		It("parses dot separators", func() {
			date := extractor.ExtractDate("2026.03.07")
			Expect(date).To(HaveValue(Equal(civil(2026, time.March, 7))))
		})

		It("parses Japanese 年月日 markers", func() {
			date := extractor.ExtractDate("発行日 2025年12月31日")
			Expect(date).To(HaveValue(Equal(civil(2025, time.December, 31))))
		})

		It("expands two-digit years near the current year into the 2000s", func() {
			date := extractor.ExtractDate("取引日 26/01/15")
			Expect(date).To(HaveValue(Equal(civil(2026, time.January, 15))))
		})

		It("expands two-digit years far past the current year into the 1900s", func() {
			date := extractor.ExtractDate("日付 98-04-01")
			Expect(date).To(HaveValue(Equal(civil(1998, time.April, 1))))
		})
	})

	Context("with era-based Japanese calendar notations", func() {
		It("converts Reiwa years", func() {
			date := extractor.ExtractDate("取引日 令和6年2月3日")
			Expect(date).To(HaveValue(Equal(civil(2024, time.February, 3))))
		})

		It("converts Heisei years", func() {
			date := extractor.ExtractDate("平成31年4月30日")
			Expect(date).To(HaveValue(Equal(civil(2019, time.April, 30))))
		})

		It("converts Showa years", func() {
			date := extractor.ExtractDate("昭和64年1月7日")
			Expect(date).To(HaveValue(Equal(civil(1989, time.January, 7))))
		})

		It("accepts the abbreviated era letter", func() {
			date := extractor.ExtractDate("R6.2.3")
			Expect(date).To(HaveValue(Equal(civil(2024, time.February, 3))))
		})
	})

	Context("with other layouts", func() {
		It("parses dates with the year last", func() {
			date := extractor.ExtractDate("利用日 1/15/2026")
			Expect(date).To(HaveValue(Equal(civil(2026, time.January, 15))))
		})

		It("parses compact YYYYMMDD digit runs", func() {
			date := extractor.ExtractDate("取引日 20260115")
			Expect(date).To(HaveValue(Equal(civil(2026, time.January, 15))))
		})

		It("normalizes full-width digits and separators", func() {
			date := extractor.ExtractDate("ご利用日 ２０２６／０１／１５")
			Expect(date).To(HaveValue(Equal(civil(2026, time.January, 15))))
		})
	})

	Context("when validating candidates", func() {
		It("rejects month 13", func() {
			Expect(extractor.ExtractDate("2026/13/01")).To(BeNil())
		})

		It("rejects February 30", func() {
			Expect(extractor.ExtractDate("2026/02/30")).To(BeNil())
		})

		It("returns nil for text with no date", func() {
			Expect(extractor.ExtractDate("合計 ¥1,078\nありがとうございました")).To(BeNil())
		})

		It("returns nil for empty text", func() {
			Expect(extractor.ExtractDate("")).To(BeNil())
		})
	})

	Context("when several candidates compete", func() {
		It("prefers the transaction date over an expiry date", func() {
			text := "取引日 2026/07/01\n商品A\n有効期限 2027/07/01"
			date := extractor.ExtractDate(text)
			Expect(date).To(HaveValue(Equal(civil(2026, time.July, 1))))
		})

		It("prefers the transaction date even when the expiry date is listed first", func() {
			text := "有効期限 2027/03/31\n商品B\n\n\n取引日時 2026/06/15 09:12"
			date := extractor.ExtractDate(text)
			Expect(date).To(HaveValue(Equal(civil(2026, time.June, 15))))
		})

		It("breaks ties between past dates by recency", func() {
			text := "2026/05/01\n2026/06/01"
			date := extractor.ExtractDate(text)
			Expect(date).To(HaveValue(Equal(civil(2026, time.June, 1))))
		})

		It("penalizes dates far in the future", func() {
			text := "2027/05/01\n2026/07/20"
			date := extractor.ExtractDate(text)
			Expect(date).To(HaveValue(Equal(civil(2026, time.July, 20))))
		})

		It("falls back to future candidates when nothing is in the past", func() {
			date := extractor.ExtractDate("お届け予定 2026/09/10")
			Expect(date).To(HaveValue(Equal(civil(2026, time.September, 10))))
		})

		It("scores context from the adjacent lines too", func() {
			text := "ご利用日\n2026/04/02\nレジ 003"
			date := extractor.ExtractDate(text)
			Expect(date).To(HaveValue(Equal(civil(2026, time.April, 2))))
		})
	})
})
