package pubsub

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishSendsJSONWithEventAttribute(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "housing-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "commitments")
	require.NoError(t, err)

	pub := New(topic)
	id, err := pub.Publish(ctx, "commitment.recorded", map[string]any{"municipality": "Cherry Hill Township", "total_units": 1150})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, pub.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"municipality":"Cherry Hill Township","total_units":1150}`, string(msgs[0].Data))
	assert.Equal(t, "commitment.recorded", msgs[0].Attributes["event"])
}

func TestPublishWithoutTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := (&Publisher{}).Publish(ctx, "commitment.recorded", struct{}{})
	require.Error(t, err)
	require.NoError(t, (&Publisher{}).Close())
}
