// Package twofactor manages TOTP second factors for accounts.
//
// An account moves through three states. Setup creates a pending record with
// a fresh TOTP seed and a list of backup codes, both sealed by the vault
// before they reach storage. ConfirmEnable turns the record on once the user
// proves their authenticator produces valid codes. Disable deletes it again.
//
//	svc := twofactor.NewService(store, v,
//		twofactor.WithIssuer("Acme"),
//		twofactor.WithAuditLogger(auditLog),
//	)
//
//	res, err := svc.Setup(ctx, accountID)
//	// show res.ProvisioningURI as a QR code and res.BackupCodes once
//
//	ok, err := svc.ConfirmEnable(ctx, accountID, codeFromApp)
//
// VerifyForLogin accepts either a TOTP code or an unused backup code. Accounts
// without an enabled record pass through, so a missing second factor never
// blocks sign-in.
//
// # Storage
//
// Every operation that reads and then changes a record runs inside a single
// Storage.Update or Storage.Upsert call. Implementations must serialize those
// callbacks per account; the decrypt, consume and persist sequence for a
// backup code is therefore atomic and a code can be spent only once even
// under concurrent logins. MemoryStorage ships here, pgstore, redisstore and
// mongostore in sub-packages.
//
// # Audit
//
// When an AuditLogger is configured the service records setup, enable,
// disable, backup code use, regeneration and failed verifications. Events are
// sent from a separate goroutine with a detached context, so a slow or broken
// audit sink never changes an operation's result. Close waits for in-flight
// events.
package twofactor
