package twofactor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/twofactor/pkg/audit"
	"github.com/dmitrymomot/twofactor/pkg/backupcode"
	"github.com/dmitrymomot/twofactor/pkg/base32"
	"github.com/dmitrymomot/twofactor/pkg/logger"
	"github.com/dmitrymomot/twofactor/pkg/qrcode"
	"github.com/dmitrymomot/twofactor/pkg/totp"
)

const defaultIssuer = "TwoFactor"

// Audit actions.
const (
	ActionSetup                  = "TWO_FACTOR_SETUP"
	ActionEnabled                = "TWO_FACTOR_ENABLED"
	ActionDisabled               = "TWO_FACTOR_DISABLED"
	ActionVerificationFailed     = "TWO_FACTOR_VERIFICATION_FAILED"
	ActionBackupCodeUsed         = "TWO_FACTOR_BACKUP_CODE_USED"
	ActionBackupCodesRegenerated = "TWO_FACTOR_BACKUP_CODES_REGENERATED"
)

// Verification methods reported in logs and audit metadata.
const (
	MethodTOTP       = "totp"
	MethodBackupCode = "backup_code"
)

// Service runs the second-factor lifecycle on top of a Storage.
type Service struct {
	storage Storage
	vault   Vault
	log     *slog.Logger
	audit   AuditLogger
	limiter Limiter
	now     func() time.Time

	issuer          string
	window          int
	backupCodeCount int
	auditTimeout    time.Duration
	labelFor        func(ctx context.Context, accountID string) string

	inflight sync.WaitGroup
	closers  []func() error
}

// NewService panics on a nil storage or vault.
func NewService(storage Storage, v Vault, opts ...Option) *Service {
	if storage == nil {
		panic("twofactor: storage cannot be nil")
	}
	if v == nil {
		panic("twofactor: vault cannot be nil")
	}

	s := &Service{
		storage:         storage,
		vault:           v,
		log:             logger.Discard(),
		now:             time.Now,
		issuer:          defaultIssuer,
		window:          totp.DefaultWindow,
		backupCodeCount: backupcode.DefaultCount,
		auditTimeout:    5 * time.Second,
		labelFor:        func(_ context.Context, accountID string) string { return accountID },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("twofactor"))

	return s
}

// SetupResult carries the plaintext material shown to the user exactly once.
type SetupResult struct {
	SecretText      string
	BackupCodes     []string
	ProvisioningURI string
}

// QRCode renders the provisioning URI as a PNG data URI.
func (r *SetupResult) QRCode(size int) (string, error) {
	return qrcode.DataURI(r.ProvisioningURI, size)
}

// Setup creates or replaces a pending record with a new seed and backup
// codes. An enabled record is never replaced: disable it first.
func (s *Service) Setup(ctx context.Context, accountID string) (*SetupResult, error) {
	if accountID == "" {
		return nil, ErrMissingAccountID
	}

	seed, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	secretText := base32.Encode(seed)

	uri, err := totp.URI(totp.Params{
		Secret:      secretText,
		AccountName: s.labelFor(ctx, accountID),
		Issuer:      s.issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("build provisioning uri: %w", err)
	}

	codes, err := backupcode.Generate(s.backupCodeCount)
	if err != nil {
		return nil, err
	}

	sealedSecret, err := s.vault.Encrypt(ctx, secretText)
	if err != nil {
		return nil, err
	}
	sealedCodes, err := s.sealCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.storage.Upsert(ctx, accountID, func(rec *Record, exists bool) error {
		if exists && rec.Enabled {
			return ErrAlreadyEnabled
		}
		rec.EncryptedSecret = sealedSecret
		rec.EncryptedBackupCodes = sealedCodes
		rec.Enabled = false
		rec.LastUsedAt = nil
		rec.CreatedAt = now
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "two-factor setup started", logger.AccountID(accountID))
	s.emit(ctx, ActionSetup, accountID, nil)

	return &SetupResult{
		SecretText:      secretText,
		BackupCodes:     codes,
		ProvisioningURI: uri,
	}, nil
}

// ConfirmEnable enables a pending record when code is a valid TOTP code for
// its seed. A mismatch returns false and leaves the record untouched. For an
// already enabled record the code is checked without any write.
func (s *Service) ConfirmEnable(ctx context.Context, accountID, code string) (bool, error) {
	if accountID == "" {
		return false, ErrMissingAccountID
	}

	var (
		ok      bool
		enabled bool
	)
	now := s.now().UTC()
	try := s.newAttempt(accountID)
	err := s.storage.Update(ctx, accountID, func(rec *Record) error {
		ok, enabled = false, false
		if err := try.spend(ctx); err != nil {
			return err
		}

		key, err := s.openSecret(ctx, rec)
		if err != nil {
			return err
		}
		if ok = s.verifyTOTP(key, code, now); !ok || rec.Enabled {
			return errNoChange
		}

		rec.Enabled = true
		rec.LastUsedAt = &now
		rec.UpdatedAt = now
		enabled = true
		return nil
	})

	switch {
	case errors.Is(err, ErrRecordNotFound):
		return false, ErrNotSetUp
	case err != nil && !errors.Is(err, errNoChange):
		return false, s.failed(ctx, "confirm", accountID, err)
	}

	if !ok {
		s.mismatch(ctx, "confirm", accountID)
		return false, nil
	}

	s.resetAttempts(ctx, accountID)
	if enabled {
		s.log.InfoContext(ctx, "two-factor enabled", logger.AccountID(accountID))
		s.emit(ctx, ActionEnabled, accountID, nil)
	}

	return true, nil
}

// VerifyForLogin checks a TOTP code, then a backup code. Accounts without an
// enabled record pass. A matched backup code is removed in the same storage
// update that records the login.
func (s *Service) VerifyForLogin(ctx context.Context, accountID, code string) (bool, error) {
	if accountID == "" {
		return false, ErrMissingAccountID
	}

	var (
		res  verification
		pass bool
	)
	now := s.now().UTC()
	try := s.newAttempt(accountID)
	err := s.storage.Update(ctx, accountID, func(rec *Record) error {
		res, pass = verification{}, false
		if !rec.Enabled {
			pass = true
			return errNoChange
		}
		if err := try.spend(ctx); err != nil {
			return err
		}

		var err error
		if res, err = s.check(ctx, rec, code, now); err != nil {
			return err
		}
		if !res.ok {
			return errNoChange
		}
		return s.commit(ctx, rec, res, now)
	})

	switch {
	case errors.Is(err, ErrRecordNotFound):
		return true, nil
	case err != nil && !errors.Is(err, errNoChange):
		return false, s.failed(ctx, "login", accountID, err)
	case pass:
		return true, nil
	}

	if !res.ok {
		s.mismatch(ctx, "login", accountID)
		return false, nil
	}

	s.succeeded(ctx, accountID, res)
	return true, nil
}

// Disable deletes the record after verifying code. Enabled records accept a
// TOTP or backup code, pending records only a TOTP code. The check and the
// delete are one storage step, so a failure leaves the record as it was.
func (s *Service) Disable(ctx context.Context, accountID, code string) (bool, error) {
	if accountID == "" {
		return false, ErrMissingAccountID
	}

	var res verification
	now := s.now().UTC()
	try := s.newAttempt(accountID)
	err := s.storage.DeleteIf(ctx, accountID, func(rec *Record) error {
		res = verification{}
		if err := try.spend(ctx); err != nil {
			return err
		}

		var err error
		if rec.Enabled {
			res, err = s.check(ctx, rec, code, now)
		} else {
			var key []byte
			if key, err = s.openSecret(ctx, rec); err == nil {
				res = verification{ok: s.verifyTOTP(key, code, now), method: MethodTOTP}
			}
		}
		if err != nil {
			return err
		}
		if !res.ok {
			return errNoChange
		}
		return nil
	})

	switch {
	case errors.Is(err, ErrRecordNotFound):
		return false, ErrNotSetUp
	case err != nil && !errors.Is(err, errNoChange):
		return false, s.failed(ctx, "disable", accountID, err)
	}

	if !res.ok {
		s.mismatch(ctx, "disable", accountID)
		return false, nil
	}

	s.resetAttempts(ctx, accountID)
	s.log.InfoContext(ctx, "two-factor disabled", logger.AccountID(accountID), logger.Method(res.method))
	s.emit(ctx, ActionDisabled, accountID, nil, audit.WithMetadata("method", res.method))

	return true, nil
}

// RegenerateBackupCodes replaces every backup code of an enabled record after
// verifying code. The new codes are returned once and never again.
func (s *Service) RegenerateBackupCodes(ctx context.Context, accountID, code string) ([]string, error) {
	if accountID == "" {
		return nil, ErrMissingAccountID
	}

	codes, err := backupcode.Generate(s.backupCodeCount)
	if err != nil {
		return nil, err
	}
	sealed, err := s.sealCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	var res verification
	now := s.now().UTC()
	try := s.newAttempt(accountID)
	err = s.storage.Update(ctx, accountID, func(rec *Record) error {
		res = verification{}
		if !rec.Enabled {
			return ErrNotSetUp
		}
		if err := try.spend(ctx); err != nil {
			return err
		}

		var err error
		if res, err = s.check(ctx, rec, code, now); err != nil {
			return err
		}
		if !res.ok {
			return ErrInvalidCode
		}

		rec.EncryptedBackupCodes = sealed
		rec.LastUsedAt = &now
		rec.UpdatedAt = now
		return nil
	})

	switch {
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrNotSetUp):
		return nil, ErrNotSetUp
	case errors.Is(err, ErrInvalidCode):
		s.mismatch(ctx, "regenerate", accountID)
		return nil, ErrInvalidCode
	case err != nil:
		return nil, s.failed(ctx, "regenerate", accountID, err)
	}

	s.resetAttempts(ctx, accountID)
	s.log.InfoContext(ctx, "backup codes regenerated", logger.AccountID(accountID))
	s.emit(ctx, ActionBackupCodesRegenerated, accountID, nil, audit.WithMetadata("count", len(codes)))

	return codes, nil
}

// IsEnabled reports whether the account has a confirmed second factor.
func (s *Service) IsEnabled(ctx context.Context, accountID string) (bool, error) {
	state, err := s.State(ctx, accountID)
	if err != nil {
		return false, err
	}
	return state == StateEnabled, nil
}

// State reports StateUnset when the account has no record.
func (s *Service) State(ctx context.Context, accountID string) (State, error) {
	if accountID == "" {
		return StateUnset, ErrMissingAccountID
	}

	rec, err := s.storage.Find(ctx, accountID)
	if errors.Is(err, ErrRecordNotFound) {
		return StateUnset, nil
	}
	if err != nil {
		return StateUnset, err
	}
	return rec.State(), nil
}

// RemainingBackupCodeCount is zero for accounts without a record.
func (s *Service) RemainingBackupCodeCount(ctx context.Context, accountID string) (int, error) {
	if accountID == "" {
		return 0, ErrMissingAccountID
	}

	rec, err := s.storage.Find(ctx, accountID)
	if errors.Is(err, ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	codes, err := s.openCodes(ctx, &rec)
	if err != nil {
		return 0, s.failed(ctx, "count", accountID, err)
	}
	return len(codes), nil
}

// Close waits for in-flight audit events or until ctx is done, then releases
// resources the service owns, such as the attempt limiter store built by
// NewServiceFromConfig.
func (s *Service) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) sealCodes(ctx context.Context, codes []string) (string, error) {
	raw, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return s.vault.Encrypt(ctx, string(raw))
}

func (s *Service) openCodes(ctx context.Context, rec *Record) ([]string, error) {
	raw, err := s.vault.Decrypt(ctx, rec.EncryptedBackupCodes)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, errors.Join(ErrDecryptionFailure, err)
	}
	return codes, nil
}

func (s *Service) openSecret(ctx context.Context, rec *Record) ([]byte, error) {
	text, err := s.vault.Decrypt(ctx, rec.EncryptedSecret)
	if err != nil {
		return nil, err
	}
	key := base32.Decode(text)
	if len(key) == 0 {
		return nil, errors.Join(ErrDecryptionFailure, errors.New("stored secret is empty"))
	}
	return key, nil
}

func (s *Service) verifyTOTP(key []byte, code string, now time.Time) bool {
	if strings.TrimSpace(code) == "" {
		return false
	}
	return totp.Verify(key, code, now, s.window)
}
