package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalDecodeBind(t *testing.T) {
	data, err := Marshal(EventPlayedCard, PlayedCard{
		Base:      Base{PlayerID: "anna", TableID: "welcome"},
		CardID:    17,
		CardName:  "Herz-Zehn",
		DealStamp: 1234,
	})
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, EventPlayedCard, env.Event)

	var msg PlayedCard
	require.NoError(t, env.Bind(&msg))
	assert.Equal(t, "anna", msg.PlayerID)
	assert.Equal(t, "welcome", msg.TableID)
	assert.Equal(t, 17, msg.CardID)
	assert.Equal(t, int64(1234), msg.DealStamp)
}

func TestDecode_RejectsMissingEvent(t *testing.T) {
	_, err := Decode([]byte(`{"payload":{}}`))
	require.Error(t, err)
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"event":"who-am-i"`))
	require.Error(t, err)
}

func TestMarshal_EmptyPayload(t *testing.T) {
	data, err := Marshal(EventConfirmDealAgain, nil)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, EventConfirmDealAgain, env.Event)
	assert.Empty(t, env.Payload)
}

func TestSyncTracker_DuplicateIsIdempotent(t *testing.T) {
	var tr SyncTracker
	tr.Seed(5)

	assert.Equal(t, Duplicate, tr.Observe(5))
	assert.Equal(t, uint64(5), tr.Local())
	assert.Equal(t, Duplicate, tr.Observe(5))
	assert.Equal(t, uint64(5), tr.Local())
}

func TestSyncTracker_AppliesExpectedNextStep(t *testing.T) {
	var tr SyncTracker
	tr.Seed(5)

	assert.Equal(t, Apply, tr.Observe(6))
	assert.Equal(t, Apply, tr.Observe(7))
	assert.Equal(t, uint64(7), tr.Local())
}

func TestSyncTracker_GapForcesSnapshotRefetch(t *testing.T) {
	var tr SyncTracker
	tr.Seed(5)

	// local 5, broadcast 7 arrives: a step was missed
	assert.Equal(t, Desync, tr.Observe(7))
	// after a desync nothing is trusted until the tracker is re-seeded
	assert.Equal(t, Desync, tr.Observe(8))
	tr.Seed(12)
	assert.Equal(t, Apply, tr.Observe(13))
}

func TestSyncTracker_BackwardsCountIsDesync(t *testing.T) {
	var tr SyncTracker
	tr.Seed(5)
	assert.Equal(t, Desync, tr.Observe(3))
}

func TestSyncTracker_UnseededIsDesync(t *testing.T) {
	var tr SyncTracker
	assert.Equal(t, Desync, tr.Observe(1))
}
