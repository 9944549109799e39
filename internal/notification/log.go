package notification

import "log/slog"

// LogSender writes codes to the log instead of sending email. It stands in
// for the SMTP sender in development when no SMTP host is configured.
type LogSender struct{}

func (LogSender) SendTwoFactorCode(to, code string) error {
	slog.Info("two-factor code (email not configured)", "to", to, "code", code)
	return nil
}

func (LogSender) SendPasswordResetCode(to, code string) error {
	slog.Info("password reset code (email not configured)", "to", to, "code", code)
	return nil
}
