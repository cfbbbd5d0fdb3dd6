package receipt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/domain/apperror"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	"github.com/google/uuid"
)

// ReceiptService renders receipts and keeps them in an object bucket.
type ReceiptService struct {
	bucket fsjetstream.FileStoragePort
}

// NewReceiptService creates a receipt service backed by bucket.
func NewReceiptService(bucket fsjetstream.FileStoragePort) *ReceiptService {
	return &ReceiptService{bucket: bucket}
}

// Store renders the receipt of a purchase and writes it under its key,
// replacing any previous version.
func (s *ReceiptService) Store(ctx context.Context, req RenderReceiptRequest) (*RenderReceiptResponse, error) {
	if err := validatePurchaseID(req.PurchaseID); err != nil {
		return nil, err
	}

	key := Key(req.PurchaseID)
	info, err := s.bucket.Put(ctx, key, Render(req),
		fsjetstream.WithDescription(fmt.Sprintf("Receipt for purchase %s", req.Reference)),
		fsjetstream.WithHeaders(map[string]string{
			"Content-Type": ContentType,
			"Purchase-ID":  req.PurchaseID,
			"User-ID":      req.UserID,
			"Rendered-At":  time.Now().UTC().Format(time.RFC3339),
		}),
	)
	if err != nil {
		return nil, apperror.Internal("failed to store receipt", err)
	}

	return &RenderReceiptResponse{
		Key:    key,
		Size:   int64(info.Size),
		Digest: info.Digest,
	}, nil
}

// Get returns the stored receipt of a purchase.
func (s *ReceiptService) Get(_ context.Context, purchaseID string) (*GetReceiptResponse, error) {
	if err := validatePurchaseID(purchaseID); err != nil {
		return nil, err
	}

	key := Key(purchaseID)
	objects, err := s.bucket.List(fsjetstream.WithPrefix(key))
	if err != nil && !isNoObjects(err) {
		return nil, apperror.Internal("failed to look up receipt", err)
	}
	found := false
	for _, obj := range objects {
		if obj.Name == key {
			found = true
			break
		}
	}
	if !found {
		return nil, apperror.New(apperror.KindNotFound, "receipt not found")
	}

	data, err := s.bucket.Get(key)
	if err != nil {
		return nil, apperror.Internal("failed to read receipt", err)
	}
	return &GetReceiptResponse{
		Key:         key,
		ContentType: ContentType,
		Size:        int64(len(data)),
		Content:     data,
	}, nil
}

// isNoObjects reports the error an empty bucket returns on listing.
func isNoObjects(err error) bool {
	return strings.Contains(err.Error(), "no objects found")
}

func validatePurchaseID(id string) error {
	if id == "" {
		return apperror.New(apperror.KindInvalidInput, "purchase_id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperror.Newf(apperror.KindInvalidInput, "invalid purchase_id %q", id)
	}
	return nil
}
