package registry

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.beyond.io/tdi-ingest/internal/core"
)

// deviceCollection is the part of *mongo.Collection used by the registry, which also allows for mocking in tests.
type deviceCollection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
}

type mongoRegistry struct {
	devices deviceCollection
}

// NewMongo returns a registry reading the given devices collection.
func NewMongo(devices deviceCollection) core.DeviceRegistry {
	return &mongoRegistry{devices: devices}
}

func (r *mongoRegistry) Type() string {
	return TypeMongo
}

func (r *mongoRegistry) ExistsInStore(ctx context.Context, storeCode string, deviceID string) (bool, error) {
	filter := bson.D{
		{Key: "store_code", Value: storeCode},
		{Key: "device_id", Value: deviceID},
	}
	opts := options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 1}})

	err := r.devices.FindOne(ctx, filter, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *mongoRegistry) FindByID(ctx context.Context, deviceID string) (*core.Device, error) {
	var device core.Device
	err := r.devices.FindOne(ctx, bson.D{{Key: "device_id", Value: deviceID}}).Decode(&device)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}

	return &device, nil
}
