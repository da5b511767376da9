package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// testReceiptPNG renders a small white image with a dark band, enough for
// the preprocessing pipeline to chew on.
func testReceiptPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 64; x++ {
			if y > 30 && y < 40 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

var _ = Describe("BuildVariants", func() {
	Context("with multi-pass enabled", func() {
		var variants []Variant

		BeforeEach(func() {
			variants = BuildVariants(testReceiptPNG(), DefaultVariantOptions)
		})

		It("produces four variants", func() {
			Expect(variants).To(HaveLen(4))
		})

		It("always puts the untouched original first", func() {
			Expect(variants[0].Strategy).To(Equal("original-sparse"))
			Expect(variants[0].Image).To(Equal(testReceiptPNG()))
			Expect(variants[0].Segmentation).To(Equal(SegmentSparseText))
		})

		It("assigns each strategy its segmentation mode", func() {
			modes := map[string]SegmentationMode{}
			for _, v := range variants {
				modes[v.Strategy] = v.Segmentation
			}
			Expect(modes).To(Equal(map[string]SegmentationMode{
				"original-sparse": SegmentSparseText,
				"enhanced-sparse": SegmentSparseText,
				"binary-block":    SegmentSingleBlock,
				"enhanced-auto":   SegmentAuto,
			}))
		})

		It("encodes every processed variant as a decodable image", func() {
			for _, v := range variants[1:] {
				_, _, err := image.Decode(bytes.NewReader(v.Image))
				Expect(err).NotTo(HaveOccurred())
			}
		})
	})

	Context("with multi-pass disabled", func() {
		It("returns only the original variant", func() {
			variants := BuildVariants(testReceiptPNG(), VariantOptions{MultiPass: false})
			Expect(variants).To(HaveLen(1))
			Expect(variants[0].Strategy).To(Equal("original-sparse"))
		})
	})

	Context("when the source image cannot be decoded", func() {
		It("degrades to the original variant without failing", func() {
			variants := BuildVariants([]byte("not an image"), DefaultVariantOptions)
			Expect(variants).To(HaveLen(1))
			Expect(variants[0].Strategy).To(Equal("original-sparse"))
		})
	})

	Context("with a faded low-contrast source", func() {
		// A uniform gray just below the binarize cutoff only crosses it
		// after the contrast normalization of the shared base.
		fadedPNG := func() []byte {
			img := image.NewRGBA(image.Rect(0, 0, 64, 48))
			for y := 0; y < 48; y++ {
				for x := 0; x < 64; x++ {
					img.Set(x, y, color.RGBA{R: 150, G: 150, B: 150, A: 255})
				}
			}
			var buf bytes.Buffer
			Expect(png.Encode(&buf, img)).NotTo(HaveOccurred())
			return buf.Bytes()
		}

		It("normalizes the base before binarizing", func() {
			opts := DefaultVariantOptions
			opts.BinarizeThreshold = 152
			variants := BuildVariants(fadedPNG(), opts)
			Expect(variants).To(HaveLen(4))

			var binary Variant
			for _, v := range variants {
				if v.Strategy == "binary-block" {
					binary = v
				}
			}
			Expect(binary.Image).NotTo(BeEmpty())

			img, _, err := image.Decode(bytes.NewReader(binary.Image))
			Expect(err).NotTo(HaveOccurred())
			r, g, b, _ := img.At(32, 24).RGBA()
			Expect(r).To(Equal(uint32(0xffff)))
			Expect(g).To(Equal(uint32(0xffff)))
			Expect(b).To(Equal(uint32(0xffff)))
		})
	})

	Context("when the source is wider than the bound", func() {
		It("scales processed variants down to the maximum width", func() {
			opts := DefaultVariantOptions
			opts.MaxWidth = 32
			variants := BuildVariants(testReceiptPNG(), opts)
			Expect(variants).To(HaveLen(4))

			img, _, err := image.Decode(bytes.NewReader(variants[1].Image))
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(32))
		})
	})
})
