package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testLock(t *testing.T) (*ContactLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewContactLock(client, 5*time.Second), mr
}

func TestContactLockMutualExclusion(t *testing.T) {
	lock, _ := testLock(t)
	tenantID := uuid.New()

	release, err := lock.Acquire(context.Background(), tenantID, "+5531988887777")
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := lock.Acquire(ctx, tenantID, "+5531988887777"); err == nil {
		t.Fatal("second acquire should block until context expires")
	}

	release()

	release2, err := lock.Acquire(context.Background(), tenantID, "+5531988887777")
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	release2()
}

func TestContactLockIsScopedToPair(t *testing.T) {
	lock, _ := testLock(t)
	tenantID := uuid.New()

	release, err := lock.Acquire(context.Background(), tenantID, "+5531988887777")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer release()

	// Same phone under another tenant is a different lock.
	releaseOther, err := lock.Acquire(context.Background(), uuid.New(), "+5531988887777")
	if err != nil {
		t.Fatalf("acquire for other tenant failed: %v", err)
	}
	releaseOther()

	// Another phone under the same tenant is also free.
	releasePhone, err := lock.Acquire(context.Background(), tenantID, "+5531977776666")
	if err != nil {
		t.Fatalf("acquire for other phone failed: %v", err)
	}
	releasePhone()
}

func TestContactLockExpiresWithTTL(t *testing.T) {
	lock, mr := testLock(t)
	tenantID := uuid.New()

	if _, err := lock.Acquire(context.Background(), tenantID, "+5531988887777"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// Simulate a crashed holder: the TTL elapses without a release.
	mr.FastForward(6 * time.Second)

	release, err := lock.Acquire(context.Background(), tenantID, "+5531988887777")
	if err != nil {
		t.Fatalf("acquire after expiry failed: %v", err)
	}
	release()
}
