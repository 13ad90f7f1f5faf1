package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RegisterMovementFromRequest adapta el request HTTP al caso de uso CreateMovement(ctx, MovementInputDTO).
// userID queda como autor del movimiento.
func (uc *RegisterMovementUseCase) RegisterMovementFromRequest(ctx context.Context, userID string, in dto.RegisterMovementRequest) (*dto.MovementResponse, error) {
	input := MovementInputDTO{
		UserID:                 userID,
		ItemID:                 in.ItemID,
		Kind:                   entity.MovementKind(in.Kind),
		Quantity:               in.Quantity,
		SourceWarehouseID:      in.SourceWarehouseID,
		DestinationWarehouseID: in.DestinationWarehouseID,
		UnitPrice:              in.UnitPrice,
		DocumentNo:             in.DocumentNo,
		DocumentType:           in.DocumentType,
		Description:            in.Description,
		MovementDate:           in.MovementDate,
		AllowNegativeStock:     in.AllowNegativeStock,
	}
	mov, err := uc.CreateMovement(ctx, input)
	if err != nil {
		return nil, err
	}
	out := ToMovementResponse(mov)
	return &out, nil
}

// ToMovementResponse mapea la entidad a su representación HTTP.
func ToMovementResponse(m *entity.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:                     m.ID,
		ItemID:                 m.ItemID,
		Kind:                   string(m.Kind),
		Quantity:               m.Quantity,
		SourceWarehouseID:      m.SourceWarehouseID,
		DestinationWarehouseID: m.DestinationWarehouseID,
		UnitCost:               m.UnitCost,
		TotalValue:             m.TotalValue,
		DocumentNo:             m.DocumentNo,
		DocumentType:           m.DocumentType,
		Description:            m.Description,
		MovementDate:           m.MovementDate,
		CreatedAt:              m.CreatedAt,
		CreatedBy:              m.CreatedBy,
	}
}

// ToBalanceResponse mapea un saldo a su representación HTTP.
func ToBalanceResponse(b *entity.Balance) dto.BalanceResponse {
	return dto.BalanceResponse{
		ItemID:      b.ItemID,
		WarehouseID: b.WarehouseID,
		Quantity:    b.Quantity,
		UnitCost:    b.UnitCost,
		Value:       b.Value(),
		UpdatedAt:   b.UpdatedAt,
	}
}
