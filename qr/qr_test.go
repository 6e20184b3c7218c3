package qr

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gso_supply_tracker/models"
)

func TestSupplyTokenRoundTrip(t *testing.T) {
	s := &models.Supply{ID: 42, Name: "Whiteboard Marker Set Extra Long Name"}
	tok := SupplyToken(s)
	assert.Equal(t, "SUPPLY-42-WHITEBOARD-MARKER-SE", tok)

	ref, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, Ref{Kind: KindSupply, ID: 42}, ref)
}

func TestInstanceTokenRoundTrip(t *testing.T) {
	inst := &models.EquipmentInstance{ID: 7}
	ref, err := Decode(InstanceToken(inst))
	require.NoError(t, err)
	assert.Equal(t, Ref{Kind: KindInstance, ID: 7}, ref)
}

func TestRequestTokenRoundTrip(t *testing.T) {
	r := &models.SupplyRequest{ID: 15, RequesterID: uuid.NewString(), SupplyID: 3}
	ref, err := Decode(RequestToken(r))
	require.NoError(t, err)
	assert.Equal(t, Ref{Kind: KindRequest, ID: 15}, ref)
}

// A batched request's token must decode as a batch even though the batch
// prefix contains the plain borrow prefix.
func TestBatchTokenWinsOverRequestPrefix(t *testing.T) {
	batchID := uuid.NewString()
	r := &models.SupplyRequest{ID: 15, BatchGroupID: &batchID}
	tok := RequestToken(r)
	assert.Equal(t, BatchToken(batchID), tok)

	ref, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, KindBatch, ref.Kind)
	assert.Equal(t, batchID, ref.BatchID)
	assert.Zero(t, ref.ID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, tok := range []string{
		"",
		"LANYARD-7",
		"SUPPLY-",
		"SUPPLY-abc-PENS",
		"SUPPLY-0-PENS",
		"INSTANCE-x",
		"BORROW-",
		"BORROW-BATCH-not-a-uuid",
	} {
		_, err := Decode(tok)
		assert.Error(t, err, tok)
	}
}
