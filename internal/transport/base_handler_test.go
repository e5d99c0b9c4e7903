package transport_test

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/transport"
)

var _ = Describe("BaseHandler", func() {
	var h *transport.BaseHandler

	BeforeEach(func() {
		h = transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	Describe("ExtractTokenFromHeader", func() {
		It("returns the bearer token", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer abc.def")
			Expect(h.ExtractTokenFromHeader(req)).To(Equal("abc.def"))
		})

		It("ignores other schemes", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
			Expect(h.ExtractTokenFromHeader(req)).To(BeEmpty())
		})
	})

	Describe("DecodeJSON", func() {
		type body struct {
			Status string `json:"status"`
		}

		It("decodes a valid body", func() {
			req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"accepted"}`))
			rec := httptest.NewRecorder()

			var dst body
			Expect(h.DecodeJSON(rec, req, &dst)).To(BeTrue())
			Expect(dst.Status).To(Equal("accepted"))
		})

		It("answers 400 on malformed JSON", func() {
			req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":`))
			rec := httptest.NewRecorder()

			var dst body
			Expect(h.DecodeJSON(rec, req, &dst)).To(BeFalse())
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects bodies over the limit", func() {
			huge := `{"status":"` + strings.Repeat("a", 2<<20) + `"}`
			req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(huge))
			rec := httptest.NewRecorder()

			var dst body
			Expect(h.DecodeJSON(rec, req, &dst)).To(BeFalse())
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("HandleServiceError", func() {
		It("uses the app error status and code", func() {
			rec := httptest.NewRecorder()
			h.HandleServiceError(rec, errors.ErrOrderStatusChanged)

			Expect(rec.Code).To(Equal(http.StatusConflict))
			var resp map[string]map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["error"]["code"]).To(Equal("ORDER_STATUS_CHANGED"))
		})

		It("hides unknown errors behind a 500", func() {
			rec := httptest.NewRecorder()
			h.HandleServiceError(rec, stderrors.New("dial tcp: connection refused"))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).NotTo(ContainSubstring("connection refused"))
		})
	})
})
