package core

import "context"

// Handler receives a payload published on topic by any instance.
type Handler func(topic string, payload []byte)

// Fanout is the publish/subscribe bridge between gateway instances.
// Every subscriber, including the publishing instance, receives each
// publication once.
type Fanout interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe registers h for every topic under the fanout prefix.
	Subscribe(ctx context.Context, h Handler) error
	// Name identifies the driver in logs.
	Name() string
	Close() error
}
