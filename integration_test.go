//go:build integration

package dbcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	integrationDSNURLPattern   = regexp.MustCompile(`(?i)postgres(?:ql)?://[^\s]+`)
	integrationPasswordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)
)

func requireIntegrationEnv(t *testing.T) string {
	t.Helper()

	url := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if url == "" {
		t.Fatal("integration requires environment variable DATABASE_URL")
	}
	return url
}

func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = integrationDSNURLPattern.ReplaceAllString(msg, "[REDACTED_DSN]")
	msg = integrationPasswordPattern.ReplaceAllString(msg, "password=[REDACTED]")
	return msg
}

func mustNoErr(t *testing.T, err error, operation string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %s", operation, sanitizeErrorMessage(err))
	}
}

func TestIntegration_AcquireSharesOnePool(t *testing.T) {
	url := requireIntegrationEnv(t)

	cache, err := NewPool(Config{
		ConnectionString: url,
		ConnectTimeout:   30 * time.Second,
	})
	mustNoErr(t, err, "NewPool")
	defer cache.Close()

	const callers = 4
	pools := make([]*Pool, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pools[i], errs[i] = cache.Acquire(context.Background())
		}()
	}
	wg.Wait()

	for i := range callers {
		mustNoErr(t, errs[i], fmt.Sprintf("Acquire (caller %d)", i))
		if pools[i] != pools[0] {
			t.Fatal("concurrent callers received different pools")
		}
	}

	var one int
	err = pools[0].QueryRow(context.Background(), "SELECT 1").Scan(&one)
	mustNoErr(t, err, "SELECT 1")
	if one != 1 {
		t.Fatalf("SELECT 1 = %d", one)
	}
}

func TestIntegration_HealthCheckAndWithTx(t *testing.T) {
	url := requireIntegrationEnv(t)

	cache, err := NewPool(Config{
		ConnectionString: url,
		ConnectTimeout:   30 * time.Second,
	})
	mustNoErr(t, err, "NewPool")
	defer cache.Close()

	status, err := HealthCheck(context.Background(), cache)
	mustNoErr(t, err, "HealthCheck")
	if status.Status != "ok" {
		t.Fatalf("status=%q, want ok", status.Status)
	}

	pool, err := cache.Acquire(context.Background())
	mustNoErr(t, err, "Acquire")

	rollback := errors.New("forced rollback")
	err = WithTx(context.Background(), pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(context.Background(), "SELECT 1"); err != nil {
			return err
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("WithTx error = %s, want forced rollback", sanitizeErrorMessage(err))
	}
}

func TestIntegration_InvalidateReconnects(t *testing.T) {
	url := requireIntegrationEnv(t)

	cache, err := NewPool(Config{
		ConnectionString: url,
		ConnectTimeout:   30 * time.Second,
	})
	mustNoErr(t, err, "NewPool")
	defer cache.Close()

	first, err := cache.Acquire(context.Background())
	mustNoErr(t, err, "first Acquire")

	cache.Invalidate()

	second, err := cache.Acquire(context.Background())
	mustNoErr(t, err, "Acquire after Invalidate")
	if second == first {
		t.Fatal("expected a fresh pool after Invalidate")
	}
	mustNoErr(t, second.Ping(context.Background()), "Ping")
}
