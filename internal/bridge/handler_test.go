package bridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arityo/merchant-bridge/internal/bridge"
	"github.com/arityo/merchant-bridge/internal/identity"
)

type stubBridgeService struct {
	result   *bridge.Result
	err      error
	lastDTO  *bridge.BridgeDTO
	invoked  int
	lastURLs []string
}

func (s *stubBridgeService) AuthorizeURL(state, derivedRedirect string) string {
	s.lastURLs = append(s.lastURLs, derivedRedirect)
	return "https://provider.test/oauth2/authorize?state=" + state
}

func (s *stubBridgeService) Bridge(ctx context.Context, dto *bridge.BridgeDTO) (*bridge.Result, error) {
	s.invoked++
	s.lastDTO = dto
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

var _ = Describe("Bridge Handler", func() {
	var (
		service *stubBridgeService
		handler *bridge.Handler
	)

	BeforeEach(func() {
		service = &stubBridgeService{
			result: &bridge.Result{
				MerchantID:   "M1",
				BusinessName: "Shear Genius",
				AccessToken:  "tok1",
				Session:      &identity.Session{AccessToken: "sess-a", RefreshToken: "sess-r"},
			},
		}
		handler = bridge.NewHandler(service)
	})

	Describe("Authorize", func() {
		It("should set the state cookie and redirect to the provider", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/square/authorize", nil)
			rec := httptest.NewRecorder()

			handler.Authorize(rec, req)

			Expect(rec.Code).To(Equal(http.StatusFound))

			var stateCookie *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == "square_oauth_state" {
					stateCookie = c
				}
			}
			Expect(stateCookie).NotTo(BeNil())
			Expect(stateCookie.HttpOnly).To(BeTrue())
			Expect(stateCookie.SameSite).To(Equal(http.SameSiteLaxMode))
			Expect(stateCookie.MaxAge).To(Equal(600))

			location := rec.Header().Get("Location")
			Expect(location).To(HavePrefix("https://provider.test/oauth2/authorize?state="))
			Expect(location).To(ContainSubstring(stateCookie.Value))
		})
	})

	Describe("Callback", func() {
		It("should reject a missing state cookie", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/square/callback?code=abc&state=xyz", nil)
			rec := httptest.NewRecorder()

			handler.Callback(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(service.invoked).To(BeZero())
		})

		It("should reject a state that does not match the cookie", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/square/callback?code=abc&state=forged", nil)
			req.AddCookie(&http.Cookie{Name: "square_oauth_state", Value: "legit"})
			rec := httptest.NewRecorder()

			handler.Callback(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(service.invoked).To(BeZero())
		})

		It("should run the bridge with the callback code when state matches", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/square/callback?code=abc&state=legit", nil)
			req.AddCookie(&http.Cookie{Name: "square_oauth_state", Value: "legit"})
			rec := httptest.NewRecorder()

			handler.Callback(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(service.invoked).To(Equal(1))
			Expect(service.lastDTO.Code).To(Equal("abc"))

			var result bridge.Result
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.MerchantID).To(Equal("M1"))
			Expect(result.Session).NotTo(BeNil())
		})

		It("should expire the state cookie after use", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/square/callback?code=abc&state=legit", nil)
			req.AddCookie(&http.Cookie{Name: "square_oauth_state", Value: "legit"})
			rec := httptest.NewRecorder()

			handler.Callback(rec, req)

			var cleared *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == "square_oauth_state" {
					cleared = c
				}
			}
			Expect(cleared).NotTo(BeNil())
			Expect(cleared.MaxAge).To(BeNumerically("<", 0))
		})
	})

	Describe("Bridge", func() {
		It("should pass the JSON body through to the service", func() {
			body, _ := json.Marshal(bridge.BridgeDTO{
				Email:       "a@b.com",
				AccessToken: "tok1",
				MerchantID:  "M1",
			})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/oauth/square/bridge", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Bridge(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(service.lastDTO.Email).To(Equal("a@b.com"))
			Expect(service.lastDTO.AccessToken).To(Equal("tok1"))
		})

		It("should reject a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/oauth/square/bridge", bytes.NewReader([]byte("{not json")))
			rec := httptest.NewRecorder()

			handler.Bridge(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(service.invoked).To(BeZero())
		})

		It("should render the needsEmail branch without a session", func() {
			service.result = &bridge.Result{
				NeedsEmail:   true,
				MerchantID:   "M1",
				BusinessName: "Admin",
				AccessToken:  "tok1",
			}

			body, _ := json.Marshal(bridge.BridgeDTO{Code: "abc"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/oauth/square/bridge", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Bridge(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var payload map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &payload)).To(Succeed())
			Expect(payload["needsEmail"]).To(Equal(true))
			Expect(payload["supabase_session"]).To(BeNil())
			Expect(payload).NotTo(HaveKey("code"))
		})
	})
})
