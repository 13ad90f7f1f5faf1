package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestMovementKind_Direction(t *testing.T) {
	inbound := []entity.MovementKind{entity.KindEntry, entity.KindPurchaseReceipt, entity.KindProductionOutput, entity.KindCountSurplus, entity.KindReturnIn}
	outbound := []entity.MovementKind{entity.KindExit, entity.KindSale, entity.KindProductionConsumption, entity.KindCountShortfall, entity.KindScrap, entity.KindReturnOut}

	for _, k := range inbound {
		assert.Equal(t, entity.DirectionInbound, k.Direction(), k)
		assert.True(t, k.RequiresDestination(), k)
		assert.False(t, k.RequiresSource(), k)
	}
	for _, k := range outbound {
		assert.Equal(t, entity.DirectionOutbound, k.Direction(), k)
		assert.True(t, k.RequiresSource(), k)
		assert.False(t, k.RequiresDestination(), k)
	}
	assert.Equal(t, entity.DirectionTransfer, entity.KindTransfer.Direction())
	assert.True(t, entity.KindTransfer.RequiresSource())
	assert.True(t, entity.KindTransfer.RequiresDestination())

	assert.Len(t, entity.MovementKinds(), len(inbound)+len(outbound)+1)
}

func TestMovementKind_Desconocido(t *testing.T) {
	k := entity.MovementKind("ADJUSTMENT")
	assert.False(t, k.Valid())
	assert.Equal(t, entity.DirectionUnknown, k.Direction())
	assert.Equal(t, "unknown", k.Direction().String())
}
