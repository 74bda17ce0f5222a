package httputil

// Machine-readable error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequestBody        = "INVALID_REQUEST_BODY"
	CodeValidationFailed          = "VALIDATION_FAILED"
	CodeFieldsRequired            = "FIELDS_REQUIRED"
	CodeEmailRequired             = "EMAIL_REQUIRED"
	CodeInvalidEmailFormat        = "INVALID_EMAIL_FORMAT"
	CodePasswordRequired          = "PASSWORD_REQUIRED"
	CodePasswordTooShort          = "PASSWORD_TOO_SHORT"
	CodeEmailAlreadyExists        = "EMAIL_ALREADY_EXISTS"
	CodeInvalidCredentials        = "INVALID_CREDENTIALS"
	CodeEmailNotVerified          = "EMAIL_NOT_VERIFIED"
	CodeVerificationTokenRequired = "VERIFICATION_TOKEN_REQUIRED"
	CodeInvalidVerificationToken  = "INVALID_VERIFICATION_TOKEN"
	CodeVerificationExpired       = "VERIFICATION_EXPIRED"
	CodeInvalidOTP                = "INVALID_OTP"
	CodeUserNotFound              = "USER_NOT_FOUND"
	CodeEmailDeliveryFailed       = "EMAIL_DELIVERY_FAILED"
	CodeInternalError             = "INTERNAL_ERROR"
)
