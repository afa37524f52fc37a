// Package dbtest opens migrated in-memory stores for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory SQLite store private to the test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_", "'", "").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)

	client, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		URL:    dsn,
		Logger: logger.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, client.Migrate())

	t.Cleanup(func() {
		_ = client.Close()
	})
	return client.DB
}
