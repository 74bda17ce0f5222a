package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/advising-auth/internal/httputil"
)

func newTestRouter(env *testEnv) http.Handler {
	h := NewHandler(env.svc)
	r := chi.NewRouter()
	r.Route("/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/signin", h.SignIn)
		r.Post("/verify-otp", h.VerifyOTP)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
		r.Get("/profile", h.GetProfile)
		r.Put("/update-profile", h.UpdateProfile)
		r.Post("/resend-verification", h.ResendVerification)
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandler_FullFlow(t *testing.T) {
	env := newTestEnv(t, Config{})
	router := newTestRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/user/register", RegisterRequest{FirstName: "Amy", LastName: "Lee", Email: "amy@x.com", Password: "Secret123"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, http.StatusCreated, created.Status)

	rec = doJSON(t, router, http.MethodPost, "/user/signin", SignInRequest{Email: "amy@x.com", Password: "Secret123"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, httputil.CodeEmailNotVerified, decodeError(t, rec).Code)

	token := tokenFromLink(t, env.mailer.last(t, "verification").link)
	rec = doJSON(t, router, http.MethodGet, "/user/verify-email?token="+url.QueryEscape(token), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Email verified successfully!")
	assert.Contains(t, rec.Body.String(), `href="http://client.test/signin.html"`)
	assert.NotContains(t, rec.Body.String(), "data-code")

	rec = doJSON(t, router, http.MethodGet, "/user/verify-email?token="+url.QueryEscape(token), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "token is single-use")

	rec = doJSON(t, router, http.MethodPost, "/user/signin", SignInRequest{Email: "amy@x.com", Password: "Secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var signIn SignInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signIn))
	assert.Equal(t, "amy@x.com", signIn.Email)
	assert.Equal(t, "OTP sent to email. Please verify.", signIn.Message)
	assert.NotContains(t, rec.Body.String(), "argon2id")

	code := env.mailer.last(t, "otp").code
	rec = doJSON(t, router, http.MethodPost, "/user/verify-otp", VerifyOTPRequest{Email: "amy@x.com", OTP: OTPValue(code)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/user/verify-otp", VerifyOTPRequest{Email: "amy@x.com", OTP: OTPValue(code)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidOTP, decodeError(t, rec).Code)
}

func TestHandler_VerifyOTPAcceptsNumericCode(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.registerVerified(t, "amy@x.com", "Secret123")
	router := newTestRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/user/signin", SignInRequest{Email: "amy@x.com", Password: "Secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	code := env.mailer.last(t, "otp").code

	body := `{"email":"amy@x.com","otp":` + code + `}`
	req := httptest.NewRequest(http.MethodPost, "/user/verify-otp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHandler_VerifyOTPBlankCode(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.registerVerified(t, "amy@x.com", "Secret123")
	router := newTestRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/user/verify-otp", VerifyOTPRequest{Email: "amy@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidOTP, decodeError(t, rec).Code)
}

func TestHandler_RegisterErrors(t *testing.T) {
	env := newTestEnv(t, Config{})
	router := newTestRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/user/register", RegisterRequest{Email: "amy@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeFieldsRequired, decodeError(t, rec).Code)

	req := httptest.NewRequest(http.MethodPost, "/user/register", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidRequestBody, decodeError(t, rec).Code)

	env.register(t, "amy@x.com", "Secret123")
	rec = doJSON(t, router, http.MethodPost, "/user/register", RegisterRequest{FirstName: "A", LastName: "B", Email: "amy@x.com", Password: "Secret123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeEmailAlreadyExists, decodeError(t, rec).Code)
}

func TestHandler_RegisterEmailFailure(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.mailer.err = errors.New("smtp down")
	router := newTestRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/user/register", RegisterRequest{FirstName: "Amy", LastName: "Lee", Email: "amy@x.com", Password: "Secret123"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, httputil.CodeEmailDeliveryFailed, decodeError(t, rec).Code)
}

func TestHandler_SignInSameMessageForUnknownAndWrongPassword(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.registerVerified(t, "amy@x.com", "Secret123")
	router := newTestRouter(env)

	unknown := doJSON(t, router, http.MethodPost, "/user/signin", SignInRequest{Email: "nobody@x.com", Password: "Secret123"})
	wrong := doJSON(t, router, http.MethodPost, "/user/signin", SignInRequest{Email: "amy@x.com", Password: "Secret999"})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
}

func TestHandler_VerifyEmailPages(t *testing.T) {
	env := newTestEnv(t, Config{})
	router := newTestRouter(env)

	rec := doJSON(t, router, http.MethodGet, "/user/verify-email", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Verification token missing")
	assert.Contains(t, rec.Body.String(), `data-code="VERIFICATION_TOKEN_REQUIRED"`)

	rec = doJSON(t, router, http.MethodGet, "/user/verify-email?token=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or already used verification link")
	assert.Contains(t, rec.Body.String(), `data-code="INVALID_VERIFICATION_TOKEN"`)
}

func TestHandler_VerifyEmailExpired(t *testing.T) {
	env := newTestEnv(t, Config{VerificationTTL: 1})
	router := newTestRouter(env)
	token := env.register(t, "amy@x.com", "Secret123")

	rec := doJSON(t, router, http.MethodGet, "/user/verify-email?token="+url.QueryEscape(token), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Verification link has expired")
	assert.Contains(t, rec.Body.String(), `data-code="VERIFICATION_EXPIRED"`)
}

func TestHandler_ForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.registerVerified(t, "amy@x.com", "Secret123")
	router := newTestRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/user/forgot-password", EmailRequest{Email: "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodeUserNotFound, decodeError(t, rec).Code)

	rec = doJSON(t, router, http.MethodPost, "/user/forgot-password", EmailRequest{Email: "amy@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Password reset email sent!"}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/user/reset-password", ResetPasswordRequest{Email: "amy@x.com", NewPassword: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodePasswordTooShort, decodeError(t, rec).Code)

	rec = doJSON(t, router, http.MethodPost, "/user/reset-password", ResetPasswordRequest{Email: "nobody@x.com", NewPassword: "NewSecret456"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/user/reset-password", ResetPasswordRequest{Email: "amy@x.com", NewPassword: "NewSecret456"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Password updated successfully!"}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/user/signin", SignInRequest{Email: "amy@x.com", Password: "NewSecret456"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Profile(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.registerVerified(t, "amy@x.com", "Secret123")
	router := newTestRouter(env)

	rec := doJSON(t, router, http.MethodGet, "/user/profile", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeEmailRequired, decodeError(t, rec).Code)

	rec = doJSON(t, router, http.MethodGet, "/user/profile?email=nobody%40x.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/user/update-profile", UpdateProfileRequest{Email: "amy@x.com", FirstName: "Amelia"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/user/update-profile", UpdateProfileRequest{Email: "nobody@x.com", FirstName: "X"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/user/update-profile", UpdateProfileRequest{FirstName: "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/user/profile?email=amy%40x.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Amelia", body["firstName"])
	assert.Equal(t, "Lee", body["lastName"])
	assert.Equal(t, "amy@x.com", body["email"])
	assert.Equal(t, true, body["isVerified"])
	assert.Equal(t, false, body["isAdmin"])
	assert.NotContains(t, body, "passwordHash")
	assert.NotContains(t, rec.Body.String(), "argon2id")
}

func TestHandler_ResendVerificationIsGeneric(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.register(t, "amy@x.com", "Secret123")
	router := newTestRouter(env)

	known := doJSON(t, router, http.MethodPost, "/user/resend-verification", EmailRequest{Email: "amy@x.com"})
	unknown := doJSON(t, router, http.MethodPost, "/user/resend-verification", EmailRequest{Email: "nobody@x.com"})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Equal(t, 2, env.mailer.count("verification"))
}

func TestHandler_StoreFailureIs500(t *testing.T) {
	env := newTestEnv(t, Config{})
	router := newTestRouter(env)
	require.NoError(t, env.db.Close())

	rec := doJSON(t, router, http.MethodPost, "/user/signin", SignInRequest{Email: "amy@x.com", Password: "Secret123"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, httputil.CodeInternalError, decodeError(t, rec).Code)

	rec = doJSON(t, router, http.MethodGet, "/user/verify-email?token=abc", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_WorksWithoutRequestLogger(t *testing.T) {
	env := newTestEnv(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/user/profile?email=a%40b.c", nil).WithContext(context.Background())
	rec := httptest.NewRecorder()
	newTestRouter(env).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
