package item

import (
	"context"

	"github.com/fekuna/pantry-service/internal/item/dto"
	"github.com/fekuna/pantry-service/internal/model"
)

type UseCase interface {
	CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.Item, error)
	GetItem(ctx context.Context, id string) (*model.Item, error)
	UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.Item, error)
	DeleteItem(ctx context.Context, input *dto.DeleteItemInput) (*model.Item, error)
}
