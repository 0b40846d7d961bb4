package catalog

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// These run against live servers and are skipped unless the DSN is set.

func TestPostgresCatalog(t *testing.T) {
	dsn := os.Getenv("CATALOG_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CATALOG_TEST_PG_DSN not set")
	}
	runCatalogSuite(t, func(t *testing.T) *Catalog {
		c, err := OpenPostgres(context.Background(), dsn)
		require.NoError(t, err)
		clearCatalog(t, c)
		t.Cleanup(func() { c.Close() })
		return c
	})
}

func TestMySQLCatalog(t *testing.T) {
	dsn := os.Getenv("CATALOG_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("CATALOG_TEST_MYSQL_DSN not set")
	}
	runCatalogSuite(t, func(t *testing.T) *Catalog {
		c, err := OpenMySQL(dsn)
		require.NoError(t, err)
		clearCatalog(t, c)
		t.Cleanup(func() { c.Close() })
		return c
	})
}

func TestRedisCatalog(t *testing.T) {
	addr := os.Getenv("CATALOG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CATALOG_TEST_REDIS_ADDR not set")
	}
	runCatalogSuite(t, func(t *testing.T) *Catalog {
		c, err := OpenRedis(context.Background(), addr)
		require.NoError(t, err)
		clearCatalog(t, c)
		t.Cleanup(func() { c.Close() })
		return c
	})
}
