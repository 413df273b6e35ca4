package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudsecops/orgonboard/internal/config"
	"github.com/cloudsecops/orgonboard/internal/ledger"
)

func Test_Open_RejectsUnknownDriver(t *testing.T) {
	_, err := ledger.Open(context.Background(), "mysql", "postgres://localhost/audit", nil)

	assert.ErrorIs(t, err, ledger.ErrUnknownDriver)
}

func Test_Open_RejectsEmptyDSN(t *testing.T) {
	_, err := ledger.Open(context.Background(), config.LedgerDriverPGX, "", nil)

	assert.ErrorIs(t, err, ledger.ErrEmptyDSN)
}

func Test_Open_PGX_InvalidDSN(t *testing.T) {
	_, err := ledger.Open(context.Background(), config.LedgerDriverPGX, "postgres://%zz", nil)

	assert.ErrorContains(t, err, "parse ledger dsn")
}
