// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"bike_monitor/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	LoadWindow(ctx context.Context, monitor string) ([]model.Footprint, error)
	SaveWindow(ctx context.Context, monitor string, fps []model.Footprint) error

	RecordNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, monitor string, limit int) ([]model.Notification, error)
	CountNotifications(ctx context.Context, monitor string, status model.NotificationStatus) (int, error)

	Close() error
}

// WindowStore persists the rolling window of one monitor in a Storage.
type WindowStore struct {
	storage Storage
	monitor string
}

// NewWindowStore returns the window store of monitor.
func NewWindowStore(s Storage, monitor string) *WindowStore {
	return &WindowStore{storage: s, monitor: monitor}
}

// Load returns the monitor's footprints, newest first.
func (w *WindowStore) Load(ctx context.Context) ([]model.Footprint, error) {
	return w.storage.LoadWindow(ctx, w.monitor)
}

// Save replaces the monitor's footprints.
func (w *WindowStore) Save(ctx context.Context, fps []model.Footprint) error {
	return w.storage.SaveWindow(ctx, w.monitor, fps)
}
