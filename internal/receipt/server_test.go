package receipt

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		queue       *mockQueue
		service     *Service
		server      *Server
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		queue = &mockQueue{}
		service = NewService(db, storage, queue)
		server = NewServerWithMux(service, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	uploadRequest := func(fieldName, filename, contentType string, data []byte) *http.Response {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile(fieldName, filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).NotTo(HaveOccurred())

		req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/receipts", &buf)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("GET /api/receipts", func() {
		When("receipts exist", func() {
			BeforeEach(func() {
				db.receipts["id1"] = &Receipt{ID: "id1", Status: StatusPending}
				db.receipts["id2"] = &Receipt{ID: "id2", Status: StatusSuccess}
			})

			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return all receipts", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var receipts []*Receipt
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &receipts)).NotTo(HaveOccurred())
				Expect(receipts).To(HaveLen(2))
			})

			It("should set Content-Type to application/json", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})
		})

		When("no receipts exist", func() {
			It("should return an empty JSON array, not null", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(bytes.TrimSpace(body))).To(Equal("[]"))
			})
		})
	})

	Describe("POST /api/receipts", func() {
		When("a file is uploaded", func() {
			It("should return status Created with the pending receipt", func() {
				resp := uploadRequest("file", "receipt.jpg", "image/jpeg", []byte("image bytes"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).NotTo(HaveOccurred())
				Expect(receipt.Status).To(Equal(StatusPending))
			})

			It("should enqueue a recognition job", func() {
				resp := uploadRequest("file", "receipt.jpg", "image/jpeg", []byte("image bytes"))
				resp.Body.Close()
				Expect(queue.enqueued).To(HaveLen(1))
			})

			It("should infer the content type from the file extension", func() {
				resp := uploadRequest("file", "receipt.pdf", "", []byte("%PDF-1.4"))
				defer resp.Body.Close()

				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).NotTo(HaveOccurred())
				Expect(receipt.ContentType).To(Equal("application/pdf"))
			})
		})

		When("no file field is present", func() {
			It("should return status Bad Request", func() {
				resp := uploadRequest("wrong-field", "receipt.jpg", "image/jpeg", []byte("data"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})

			It("should not enqueue anything", func() {
				resp := uploadRequest("wrong-field", "receipt.jpg", "image/jpeg", []byte("data"))
				resp.Body.Close()
				Expect(queue.enqueued).To(BeEmpty())
			})
		})
	})

	Describe("GET /api/receipts/{id}", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				db.receipts["r1"] = &Receipt{ID: "r1", Status: StatusSuccess}
			})

			It("should return the receipt", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/r1")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).NotTo(HaveOccurred())
				Expect(receipt.ID).To(Equal("r1"))
			})
		})

		When("the receipt does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/missing")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("GET /api/receipts/{id}/file", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				db.receipts["r1"] = &Receipt{ID: "r1", Filename: "r1_receipt.jpg", ContentType: "image/jpeg"}
				storage.files["r1_receipt.jpg"] = []byte("jpeg bytes")
			})

			It("should return the file with its content type", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/r1/file")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))

				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(Equal("jpeg bytes"))
			})
		})

		When("the file is missing", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/missing/file")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("POST /api/receipts/{id}/reprocess", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				merchant := "イオン"
				db.receipts["r1"] = &Receipt{
					ID:       "r1",
					Filename: "r1_receipt.jpg",
					Status:   StatusFailed,
					Merchant: &merchant,
				}
			})

			It("should return status Accepted with the reset receipt", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/r1/reprocess", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).NotTo(HaveOccurred())
				Expect(receipt.Status).To(Equal(StatusPending))
				Expect(receipt.Merchant).To(BeNil())
			})

			It("should enqueue a new recognition job", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/r1/reprocess", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(queue.enqueued).To(HaveLen(1))
				Expect(queue.enqueued[0].ReceiptID).To(Equal("r1"))
			})
		})

		When("the receipt does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/missing/reprocess", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("DELETE /api/receipts/{id}", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				db.receipts["r1"] = &Receipt{ID: "r1", Filename: "r1_receipt.jpg"}
				storage.files["r1_receipt.jpg"] = []byte("data")
			})

			It("should return status No Content", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/receipts/r1", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
			})

			It("should remove the receipt and its file", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/receipts/r1", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(db.receipts).NotTo(HaveKey("r1"))
				Expect(storage.files).NotTo(HaveKey("r1_receipt.jpg"))
			})
		})
	})
})
