package mongostore_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/mongo"
	"github.com/dmitrymomot/twofactor/svc/twofactor"
	"github.com/dmitrymomot/twofactor/svc/twofactor/mongostore"
	"github.com/dmitrymomot/twofactor/svc/twofactor/storagetest"
)

func TestStore_Contract(t *testing.T) {
	url := os.Getenv("TEST_MONGODB_URL")
	if url == "" {
		t.Skip("TEST_MONGODB_URL not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, mongo.Config{ConnectionURL: url, RetryAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	coll := client.Database("twofactor_test").Collection("records_" + uuid.NewString())
	t.Cleanup(func() { _ = coll.Drop(context.Background()) })

	storagetest.Run(t, func(*testing.T) twofactor.Storage {
		return mongostore.New(coll, mongostore.WithMaxRetries(200))
	})
}
