package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractTotal", func() {
	var extractor *Extractor

	BeforeEach(func() {
		extractor = newTestExtractor()
	})

	Context("with a total keyword line", func() {
		It("prefers the total line over subtotal and tax lines", func() {
			total := extractor.ExtractTotal("小計 ¥980\n税 ¥98\n合計 ¥1,078")
			Expect(total).To(HaveValue(Equal(1078.0)))
		})

		It("recognizes English TOTAL regardless of case", func() {
			total := extractor.ExtractTotal("Subtotal $9.80\ntotal 1,078")
			Expect(total).To(HaveValue(Equal(1078.0)))
		})

		It("takes the maximum when a total line carries several amounts", func() {
			total := extractor.ExtractTotal("合計 2点 ¥1,540")
			Expect(total).To(HaveValue(Equal(1540.0)))
		})

		It("ignores a total keyword on a line that also carries an excluded keyword", func() {
			total := extractor.ExtractTotal("合計(税込) ¥1,078\nご利用額 ¥1,200")
			Expect(total).To(HaveValue(Equal(1200.0)))
		})

		It("parses fraction digits", func() {
			total := extractor.ExtractTotal("TOTAL 1,234.56")
			Expect(total).To(HaveValue(Equal(1234.56)))
		})
	})

	Context("without a total keyword", func() {
		It("falls back to currency-marked lines", func() {
			total := extractor.ExtractTotal("お品代\n¥1,540\nまたのご来店を")
			Expect(total).To(HaveValue(Equal(1540.0)))
		})

		It("falls back to grouped-digit amounts", func() {
			total := extractor.ExtractTotal("1,540\n320")
			Expect(total).To(HaveValue(Equal(1540.0)))
		})

		It("ignores plain ungrouped numbers on keyword-free lines", func() {
			Expect(extractor.ExtractTotal("レジ 003\n担当 12")).To(BeNil())
		})
	})

	Context("when rejecting implausible amounts", func() {
		It("rejects long ungrouped digit runs that look like phone numbers", func() {
			Expect(extractor.ExtractTotal("合計 0312345678")).To(BeNil())
		})

		It("accepts large amounts with thousands separators", func() {
			total := extractor.ExtractTotal("合計 ¥12,345,678")
			Expect(total).To(HaveValue(Equal(12345678.0)))
		})

		It("rejects amounts above one hundred million", func() {
			Expect(extractor.ExtractTotal("合計 ¥200,000,000")).To(BeNil())
		})

		It("returns nil when no line carries an amount", func() {
			Expect(extractor.ExtractTotal("ありがとうございました\nまたのご来店を")).To(BeNil())
		})

		It("returns nil for empty text", func() {
			Expect(extractor.ExtractTotal("")).To(BeNil())
		})
	})

	It("accepts full-width currency symbols and commas", func() {
		total := extractor.ExtractTotal("合計 ￥1，078")
		Expect(total).To(HaveValue(Equal(1078.0)))
	})
})
