package logger

import "log/slog"

// Error records err under "error". Nil errors produce an empty attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// AccountID records the account whose second factor is being handled.
func AccountID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("account_id", id)
}

// Component names the package or service that logs.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Action names the operation being logged.
func Action(name string) slog.Attr {
	return slog.String("action", name)
}

// Method names how a code was verified.
func Method(name string) slog.Attr {
	return slog.String("method", name)
}

// Remaining records how many backup codes are left.
func Remaining(n int) slog.Attr {
	return slog.Int("remaining", n)
}
