package service

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/healthpoint/consent-access-api/internal/crypto"
	"github.com/healthpoint/consent-access-api/internal/database"
)

// fakeTxRunner runs the callback directly, without a database. The nil
// transaction is fine because store mocks never dereference it.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTransaction(_ context.Context, fn func(*database.Transaction) error) error {
	return fn(nil)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	cipher, err := crypto.NewCipher(key, "test-salt")
	require.NoError(t, err)
	return cipher
}
