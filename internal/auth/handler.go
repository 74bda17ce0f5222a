package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/redmonkez12/advising-auth/internal/httputil"
	"github.com/redmonkez12/advising-auth/internal/logging"
)

const maxBodyBytes = 1 << 20

// Handler contains HTTP handlers for the /user endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// SignInRequest represents the sign-in request body
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyOTPRequest represents the OTP confirmation request body
type VerifyOTPRequest struct {
	Email string   `json:"email"`
	OTP   OTPValue `json:"otp" swaggertype:"string"`
}

// OTPValue accepts the code as a JSON string or a JSON number.
type OTPValue string

func (v *OTPValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = OTPValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = OTPValue(n.String())
	return nil
}

// EmailRequest is used by forgot-password and resend-verification
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset request body
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// UpdateProfileRequest represents the profile update request body
type UpdateProfileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// StatusResponse is returned by register and verify-otp
type StatusResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// SignInResponse is returned once the OTP has been sent
type SignInResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Email   string `json:"email"`
}

// MessageResponse carries a confirmation message
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse = httputil.ErrorResponse

// Register handles user registration
// @Summary      Register a new user
// @Description  Create an unverified account. A verification link is emailed to the user.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} StatusResponse
// @Failure      400 {object} ErrorResponse "Missing fields, validation error or email already registered"
// @Failure      500 {object} ErrorResponse "Internal server error or email delivery failure"
// @Router       /user/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	acc, err := h.service.Register(r.Context(), RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, ErrNotify) {
			logger.Error("account created but verification email failed", "account_id", acc.ID, "error", err.Error())
			respondError(w, "account created but the verification email could not be sent, please request a new one", httputil.CodeEmailDeliveryFailed, http.StatusInternalServerError)
			return
		}
		writeServiceError(w, logger, "registration", err)
		return
	}

	logger.Info("user registered", "account_id", acc.ID)

	respondJSON(w, StatusResponse{
		Status:  http.StatusCreated,
		Message: "User registered successfully! Please verify your email.",
	}, http.StatusCreated)
}

// VerifyEmail handles the link from the verification email
// @Summary      Verify email
// @Description  Consume a verification token. Responds with an HTML page linking to sign-in.
// @Tags         user
// @Produce      html
// @Param        token query string true "Verification token"
// @Success      200 {string} string "HTML confirmation page"
// @Failure      400 {string} string "HTML page for a missing, invalid, used or expired token"
// @Failure      500 {string} string "HTML error page"
// @Router       /user/verify-email [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	err := h.service.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	switch {
	case err == nil:
		logger.Info("email verified")
		renderVerifyPage(w, r, http.StatusOK, verifyPage{
			Title:     "Email verified successfully!",
			Message:   "You can now sign in.",
			LinkURL:   h.service.SignInURL(),
			LinkLabel: "Go to Sign In",
		})
	case errors.Is(err, ErrVerificationTokenRequired):
		logger.Warn("email verification failed: token missing")
		renderVerifyPage(w, r, http.StatusBadRequest, verifyPage{
			Title:   "Verification token missing",
			Message: "Open the link from your verification email.",
			Code:    httputil.CodeVerificationTokenRequired,
		})
	case errors.Is(err, ErrVerificationExpired):
		logger.Warn("email verification failed: token expired")
		renderVerifyPage(w, r, http.StatusBadRequest, verifyPage{
			Title:   "Verification link has expired",
			Message: "Request a new verification email and try again.",
			Code:    httputil.CodeVerificationExpired,
		})
	case errors.Is(err, ErrNotFound):
		logger.Warn("email verification failed: invalid token")
		renderVerifyPage(w, r, http.StatusBadRequest, verifyPage{
			Title:     "Invalid or already used verification link",
			Message:   "If you already verified your email you can sign in.",
			LinkURL:   h.service.SignInURL(),
			LinkLabel: "Go to Sign In",
			Code:      httputil.CodeInvalidVerificationToken,
		})
	default:
		logger.Error("email verification failed: internal error", "error", err.Error())
		renderVerifyPage(w, r, http.StatusInternalServerError, verifyPage{
			Title:   "Something went wrong",
			Message: "Please try again later.",
			Code:    httputil.CodeInternalError,
		})
	}
}

// SignIn checks the password and emails a one-time passcode
// @Summary      Sign in
// @Description  Verify email and password of a verified account and email a 6-digit OTP.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body SignInRequest true "Credentials"
// @Success      200 {object} SignInResponse
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid email or password"
// @Failure      403 {object} ErrorResponse "Email not verified"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /user/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SignInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.service.SignIn(r.Context(), req.Email, req.Password); err != nil {
		writeServiceError(w, logger, "sign in", err)
		return
	}

	logger.Info("otp sent")

	respondJSON(w, SignInResponse{
		Status:  http.StatusOK,
		Message: "OTP sent to email. Please verify.",
		Email:   req.Email,
	}, http.StatusOK)
}

// VerifyOTP confirms the one-time passcode
// @Summary      Verify OTP
// @Description  Consume the pending OTP. Each code works once.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body VerifyOTPRequest true "Email and OTP"
// @Success      200 {object} StatusResponse
// @Failure      400 {object} ErrorResponse "Invalid or expired OTP"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /user/verify-otp [post]
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.service.ConfirmOTP(r.Context(), req.Email, string(req.OTP)); err != nil {
		writeServiceError(w, logger, "otp verification", err)
		return
	}

	logger.Info("otp verified")

	respondJSON(w, StatusResponse{
		Status:  http.StatusOK,
		Message: "OTP verified successfully",
	}, http.StatusOK)
}

// ForgotPassword emails a password reset link
// @Summary      Forgot password
// @Description  Email a link to the password reset page.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Account email"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      404 {object} ErrorResponse "Email not found"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /user/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req EmailRequest
	if !decodeBody(w, r, &req) {
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, logger, "forgot password", err)
		return
	}

	respondJSON(w, MessageResponse{Message: "Password reset email sent!"}, http.StatusOK)
}

// ResetPassword sets a new password
// @Summary      Reset password
// @Description  Replace the password of the account identified by email.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Email and new password"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      404 {object} ErrorResponse "Email not found"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /user/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.service.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		writeServiceError(w, logger, "reset password", err)
		return
	}

	logger.Info("password reset")

	respondJSON(w, MessageResponse{Message: "Password updated successfully!"}, http.StatusOK)
}

// GetProfile returns the public profile
// @Summary      Get profile
// @Description  Return the profile of the account identified by email. The password hash is never included.
// @Tags         user
// @Produce      json
// @Param        email query string true "Account email"
// @Success      200 {object} Profile
// @Failure      400 {object} ErrorResponse "Missing email"
// @Failure      404 {object} ErrorResponse "User not found"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /user/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	profile, err := h.service.GetProfile(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, logger, "get profile", err)
		return
	}

	respondJSON(w, profile, http.StatusOK)
}

// UpdateProfile changes names and/or password
// @Summary      Update profile
// @Description  Overwrite the supplied fields. Empty fields are left unchanged.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Fields to update"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse "Missing email or nothing to update"
// @Failure      404 {object} ErrorResponse "User not found"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /user/update-profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	err := h.service.UpdateProfile(r.Context(), ProfileInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(w, logger, "update profile", err)
		return
	}

	logger.Info("profile updated")

	respondJSON(w, MessageResponse{Message: "Profile updated successfully"}, http.StatusOK)
}

// ResendVerification emails a new verification link
// @Summary      Resend verification email
// @Description  Rotate the verification token of an unverified account and email a new link. Always responds the same way.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Account email"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Router       /user/resend-verification [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req EmailRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, logger, "resend verification", err)
		return
	}

	respondJSON(w, MessageResponse{
		Message: "If your email is registered and not verified, a new verification link has been sent.",
	}, http.StatusOK)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("invalid request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return false
	}
	return true
}

// writeServiceError maps engine errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		logger.Warn(op+" failed: validation error", "error", err.Error())
		respondError(w, err.Error(), validationCode(err), http.StatusBadRequest)
	case errors.Is(err, ErrConflict):
		logger.Warn(op + " failed: email already registered")
		respondError(w, "Email already registered.", httputil.CodeEmailAlreadyExists, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCredentials):
		logger.Warn(op + " failed: invalid credentials")
		respondError(w, "Invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
	case errors.Is(err, ErrEmailNotVerified):
		logger.Warn(op + " failed: email not verified")
		respondError(w, "Please verify your email first.", httputil.CodeEmailNotVerified, http.StatusForbidden)
	case errors.Is(err, ErrInvalidOTP):
		logger.Warn(op + " failed: invalid otp")
		respondError(w, "Invalid or expired OTP", httputil.CodeInvalidOTP, http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		logger.Warn(op + " failed: user not found")
		respondError(w, "User not found", httputil.CodeUserNotFound, http.StatusNotFound)
	case errors.Is(err, ErrNotify):
		logger.Error(op+" failed: email delivery", "error", err.Error())
		respondError(w, "failed to send email, please try again later", httputil.CodeEmailDeliveryFailed, http.StatusInternalServerError)
	default:
		logger.Error(op+" failed: internal error", "error", err.Error())
		respondError(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func validationCode(err error) string {
	switch {
	case errors.Is(err, ErrAllFieldsRequired), errors.Is(err, ErrCredentialsRequired):
		return httputil.CodeFieldsRequired
	case errors.Is(err, ErrEmailRequired):
		return httputil.CodeEmailRequired
	case errors.Is(err, ErrInvalidEmailFormat):
		return httputil.CodeInvalidEmailFormat
	case errors.Is(err, ErrPasswordRequired):
		return httputil.CodePasswordRequired
	case errors.Is(err, ErrPasswordTooShort):
		return httputil.CodePasswordTooShort
	case errors.Is(err, ErrVerificationTokenRequired):
		return httputil.CodeVerificationTokenRequired
	default:
		return httputil.CodeValidationFailed
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}
