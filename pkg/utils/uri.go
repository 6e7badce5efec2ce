package utils

var (
	HealthURI         = "/health"
	MetricsURI        = "/metrics"
	ForgotPasswordURI = "/password/forgot"
	ResetPasswordURI  = "/password/reset"
	ResetStatusURI    = "/password/reset-status"
	BotUploadURI      = "/bot/upload"
)

func GetURIs() map[string]string {
	return map[string]string{
		"Health":         HealthURI,
		"Metrics":        MetricsURI,
		"ForgotPassword": ForgotPasswordURI,
		"ResetPassword":  ResetPasswordURI,
		"ResetStatus":    ResetStatusURI,
		"BotUpload":      BotUploadURI,
	}
}
