// Package receipt renders plain-text purchase receipts and stores them in the
// fs-jetstream object store.
package receipt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// BucketName is the object store bucket holding receipts.
const BucketName = "receipts"

// ReceiptModule provides receipt services.
type ReceiptModule struct {
	storage *fsjetstream.PluginModule
	bucket  fsjetstream.FileStoragePort
	service *ReceiptService
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*ReceiptModule)(nil)
	_ mono.ServiceProviderModule = (*ReceiptModule)(nil)
	_ mono.UsePluginModule       = (*ReceiptModule)(nil)
	_ mono.HealthCheckableModule = (*ReceiptModule)(nil)
)

// NewModule creates a new ReceiptModule.
func NewModule(logger types.Logger) *ReceiptModule {
	return &ReceiptModule{
		logger: logger,
	}
}

// Name returns the module name.
func (m *ReceiptModule) Name() string {
	return "receipt"
}

// SetPlugin receives the storage plugin.
func (m *ReceiptModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "storage" {
		return
	}
	storage, ok := plugin.(*fsjetstream.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for storage", "alias", alias, "expected", "*fsjetstream.PluginModule")
		return
	}
	m.storage = storage
}

// Start resolves the receipts bucket.
func (m *ReceiptModule) Start(_ context.Context) error {
	if m.storage == nil {
		return fmt.Errorf("required plugin 'storage' not registered")
	}
	m.bucket = m.storage.Bucket(BucketName)
	if m.bucket == nil {
		return fmt.Errorf("bucket '%s' not found in storage plugin", BucketName)
	}
	m.service = NewReceiptService(m.bucket)
	m.logger.Info("Receipt module started", "bucket", BucketName)
	return nil
}

// Stop shuts down the module.
func (m *ReceiptModule) Stop(_ context.Context) error {
	m.logger.Info("Receipt module stopped")
	return nil
}

// Health reports whether the receipts bucket is available.
func (m *ReceiptModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "bucket not initialized"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"bucket": BucketName},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *ReceiptModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(container, "render-receipt", json.Unmarshal, json.Marshal, m.handleRender); err != nil {
		return fmt.Errorf("failed to register render-receipt service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "get-receipt", json.Unmarshal, json.Marshal, m.handleGet); err != nil {
		return fmt.Errorf("failed to register get-receipt service: %w", err)
	}
	m.logger.Info("Registered services", "services", "render-receipt, get-receipt")
	return nil
}

func (m *ReceiptModule) handleRender(ctx context.Context, req RenderReceiptRequest, _ *mono.Msg) (RenderReceiptResponse, error) {
	resp, err := m.service.Store(ctx, req)
	if err != nil {
		m.logger.WithError(err).Error("Failed to store receipt", "purchase_id", req.PurchaseID)
		return RenderReceiptResponse{}, err
	}
	m.logger.Info("Receipt stored", "purchase_id", req.PurchaseID, "key", resp.Key, "size", resp.Size)
	return *resp, nil
}

func (m *ReceiptModule) handleGet(ctx context.Context, req GetReceiptRequest, _ *mono.Msg) (GetReceiptResponse, error) {
	resp, err := m.service.Get(ctx, req.PurchaseID)
	if err != nil {
		return GetReceiptResponse{}, err
	}
	return *resp, nil
}
