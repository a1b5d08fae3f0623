package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pquerna/otp/totp"

	"github.com/hireloop/platform-core/pkg/cache"
)

// FieldCipher encrypts secrets at rest with tenant-scoped keys. Satisfied by
// the security package's Encryptor.
type FieldCipher interface {
	EncryptForTenant(plaintext, tenantID string) (string, error)
	DecryptForTenant(ciphertext, tenantID string) (string, error)
}

type mfaRecord struct {
	SecretEncrypted string `json:"secret_encrypted"`
	Enabled         bool   `json:"enabled"`
	EnrolledAt      int64  `json:"enrolled_at"`
}

func mfaKey(userID string) string {
	return fmt.Sprintf("auth:mfa:%s", userID)
}

// EnrollMFA generates a TOTP secret for the user and stores it encrypted
// under the tenant's derived key. MFA stays disabled until the first code is
// verified.
func (s *Service) EnrollMFA(ctx context.Context, userID, tenantID, email string) (secret, otpauthURL string, err error) {
	if s.cipher == nil {
		return "", "", fmt.Errorf("mfa: no field cipher configured")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "hireloop",
		AccountName: email,
		SecretSize:  32,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}

	encrypted, err := s.cipher.EncryptForTenant(key.Secret(), tenantID)
	if err != nil {
		return "", "", fmt.Errorf("encrypt totp secret: %w", err)
	}

	record := mfaRecord{
		SecretEncrypted: encrypted,
		Enabled:         false,
		EnrolledAt:      s.now().Unix(),
	}
	if err := s.store.Set(ctx, mfaKey(userID), record, 0); err != nil {
		return "", "", fmt.Errorf("store mfa record: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// VerifyMFA validates a TOTP code. The first successful verification after
// enrolment switches MFA on for the account.
func (s *Service) VerifyMFA(ctx context.Context, userID, tenantID, code string) error {
	if s.cipher == nil {
		return fmt.Errorf("mfa: no field cipher configured")
	}

	raw, err := s.store.Get(ctx, mfaKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return ErrMFAInvalid
		}
		return fmt.Errorf("load mfa record: %w", err)
	}

	var record mfaRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return fmt.Errorf("corrupt mfa record: %w", err)
	}

	secret, err := record.secret(s.cipher, tenantID)
	if err != nil {
		return err
	}

	if !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}

	if !record.Enabled {
		record.Enabled = true
		record.EnrolledAt = s.now().Unix()
		if err := s.store.Set(ctx, mfaKey(userID), record, 0); err != nil {
			s.logger.Warn("failed to mark mfa enabled", "user_id", userID, "error", err)
		}
	}
	return nil
}

// MFAEnabled reports whether the user has completed MFA enrolment.
func (s *Service) MFAEnabled(ctx context.Context, userID string) (bool, error) {
	raw, err := s.store.Get(ctx, mfaKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	var record mfaRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return false, err
	}
	return record.Enabled, nil
}

// DisableMFA removes the user's TOTP enrolment.
func (s *Service) DisableMFA(ctx context.Context, userID string) error {
	_, err := s.store.Delete(ctx, mfaKey(userID))
	return err
}

func (r *mfaRecord) secret(cipher FieldCipher, tenantID string) (string, error) {
	secret, err := cipher.DecryptForTenant(r.SecretEncrypted, tenantID)
	if err != nil {
		return "", fmt.Errorf("decrypt totp secret: %w", err)
	}
	return secret, nil
}
