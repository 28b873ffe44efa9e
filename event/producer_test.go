package event

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	json "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaramaProducerSendsDuelResult(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg DuelResultMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		assert.Equal(t, "b1", msg.BattleID)
		assert.Len(t, msg.Players, 2)
		return nil
	})

	p := NewSaramaProducer(mp)
	msg := DuelResultMessage{
		BattleID: "b1",
		ResultID: "r1",
		WinnerID: "u1",
		Score:    16,
		Players: []PlayerRating{
			{UserID: "u1", OldRating: 1000, NewRating: 1016},
			{UserID: "u2", OldRating: 1000, NewRating: 984},
		},
		FinishedAt: time.Now(),
	}
	val, err := msg.Marshal()
	require.NoError(t, err)

	_, _, err = p.Produce(context.Background(), &sarama.ProducerMessage{
		Topic: DuelResultTopic,
		Key:   sarama.StringEncoder(msg.BattleID),
		Value: sarama.ByteEncoder(val),
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestSaramaProducerHonoursCancelledContext(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	p := NewSaramaProducer(mp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := p.Produce(ctx, &sarama.ProducerMessage{Topic: DuelResultTopic})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, p.Close())
}
