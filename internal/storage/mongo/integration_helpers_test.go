package mongo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

const defaultLocalIntegrationURI = "mongodb://localhost:27017"

// openMongoStoreForIntegrationTest подключается к отдельной базе на каждый тест
// и удаляет её по завершении.
func openMongoStoreForIntegrationTest(t *testing.T) *Store {
	t.Helper()

	uri := strings.TrimSpace(os.Getenv("MARKETPLACE_MONGO_TEST_URI"))
	if uri == "" {
		uri = defaultLocalIntegrationURI
	}
	database := fmt.Sprintf("marketplace_test_%s", uuid.NewString()[:8])

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	store, err := Connect(ctx, uri, database)
	if err != nil {
		t.Skipf("mongodb is not available for integration tests: %v", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Database().Drop(cleanupCtx)
		_ = store.Close(cleanupCtx)
	})
	return store
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// now возвращает текущее время с точностью BSON datetime.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
