package twofactor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrymomot/twofactor/pkg/audit"
	"github.com/dmitrymomot/twofactor/pkg/backupcode"
	"github.com/dmitrymomot/twofactor/pkg/logger"
)

type verification struct {
	ok        bool
	method    string
	remaining []string // backup codes left after a backup code match
}

// check tries code as a TOTP code, then as a backup code. It never writes.
func (s *Service) check(ctx context.Context, rec *Record, code string, now time.Time) (verification, error) {
	if strings.TrimSpace(code) == "" {
		return verification{}, nil
	}

	key, err := s.openSecret(ctx, rec)
	if err != nil {
		return verification{}, err
	}
	if s.verifyTOTP(key, code, now) {
		return verification{ok: true, method: MethodTOTP}, nil
	}

	codes, err := s.openCodes(ctx, rec)
	if err != nil {
		return verification{}, err
	}
	matched, remaining := backupcode.Consume(codes, code)
	if !matched {
		return verification{}, nil
	}

	return verification{ok: true, method: MethodBackupCode, remaining: remaining}, nil
}

// commit applies a successful verification to rec.
func (s *Service) commit(ctx context.Context, rec *Record, res verification, now time.Time) error {
	if res.method == MethodBackupCode {
		sealed, err := s.sealCodes(ctx, res.remaining)
		if err != nil {
			return err
		}
		rec.EncryptedBackupCodes = sealed
	}
	rec.LastUsedAt = &now
	rec.UpdatedAt = now
	return nil
}

func attemptKey(accountID string) string {
	return "twofactor:" + accountID
}

// attempt spends at most one limiter token per service call, however many
// times the storage runs the callback.
type attempt struct {
	s         *Service
	accountID string
	spent     bool
}

func (s *Service) newAttempt(accountID string) *attempt {
	return &attempt{s: s, accountID: accountID}
}

func (a *attempt) spend(ctx context.Context) error {
	if a.spent {
		return nil
	}
	if err := a.s.allow(ctx, a.accountID); err != nil {
		return err
	}
	a.spent = true
	return nil
}

func (s *Service) allow(ctx context.Context, accountID string) error {
	if s.limiter == nil {
		return nil
	}

	res, err := s.limiter.Allow(ctx, attemptKey(accountID))
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	if !res.Allowed() {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *Service) resetAttempts(ctx context.Context, accountID string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, attemptKey(accountID)); err != nil {
		s.log.WarnContext(ctx, "failed to reset attempt limiter",
			logger.AccountID(accountID), logger.Error(err))
	}
}

func (s *Service) succeeded(ctx context.Context, accountID string, res verification) {
	s.resetAttempts(ctx, accountID)

	if res.method != MethodBackupCode {
		s.log.DebugContext(ctx, "two-factor verified", logger.AccountID(accountID), logger.Method(res.method))
		return
	}

	s.log.InfoContext(ctx, "backup code used",
		logger.AccountID(accountID),
		logger.Remaining(len(res.remaining)))
	s.emit(ctx, ActionBackupCodeUsed, accountID, nil, audit.WithMetadata("remaining", len(res.remaining)))
}

func (s *Service) mismatch(ctx context.Context, op, accountID string) {
	s.log.DebugContext(ctx, "two-factor code rejected", logger.AccountID(accountID), logger.Action(op))
	s.emit(ctx, ActionVerificationFailed, accountID, ErrInvalidCode, audit.WithMetadata("operation", op))
}

// failed logs err at a level matching its cause and returns it unchanged.
func (s *Service) failed(ctx context.Context, op, accountID string, err error) error {
	attrs := []any{logger.AccountID(accountID), logger.Action(op), logger.Error(err)}

	switch {
	case errors.Is(err, ErrTooManyAttempts):
		s.log.WarnContext(ctx, "two-factor attempts exhausted", attrs...)
		s.emit(ctx, ActionVerificationFailed, accountID, err, audit.WithMetadata("operation", op))
	case errors.Is(err, ErrDecryptionFailure):
		s.log.ErrorContext(ctx, "failed to decrypt two-factor record", attrs...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.log.DebugContext(ctx, "two-factor operation cancelled", attrs...)
	default:
		s.log.ErrorContext(ctx, "two-factor operation failed", attrs...)
	}

	return err
}

// emit records an audit event without blocking the caller. The event keeps
// the caller's context values but not its cancellation.
func (s *Service) emit(ctx context.Context, action, accountID string, cause error, opts ...audit.EventOption) {
	if s.audit == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	opts = append(opts, audit.WithAccount(accountID))

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(ctx, s.auditTimeout)
		defer cancel()

		var err error
		if cause != nil {
			err = s.audit.LogError(ctx, action, cause, append(opts, audit.WithResult(audit.ResultFailure))...)
		} else {
			err = s.audit.Log(ctx, action, opts...)
		}
		if err != nil {
			s.log.WarnContext(ctx, "failed to record audit event",
				logger.Action(action), logger.AccountID(accountID), logger.Error(err))
		}
	}()
}
