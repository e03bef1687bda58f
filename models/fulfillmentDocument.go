package models

import (
	"context"
	"fmt"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/google/uuid"
)

// FulfillmentDocument is a typed file attached to a fulfillment order:
// packing slips, BOLs, proof-of-delivery photos.
type FulfillmentDocument struct {
	OwnedBase
	FulfillmentOrderId string  `gorm:"type:uuid;not null;index" json:"fulfillment_order_id"`
	DocumentType       string  `gorm:"size:50;not null" json:"document_type"`
	FileName           string  `gorm:"size:255;not null" json:"file_name"`
	ContentType        string  `gorm:"size:100" json:"content_type"`
	FilePath           string  `gorm:"size:512;not null" json:"file_path"`
	SizeBytes          int64   `json:"size_bytes"`
	Notes              *string `gorm:"size:255" json:"notes"`
}

type NewFulfillmentDocument struct {
	FulfillmentOrderId string  `json:"fulfillment_order_id" binding:"required"`
	DocumentType       string  `json:"document_type" binding:"required"`
	FileName           string  `json:"file_name" binding:"required"`
	ContentType        string  `json:"content_type"`
	Content            []byte  `json:"content" binding:"required"`
	Notes              *string `json:"notes"`
}

// UploadFulfillmentDocument stores the file and records the reference.
func UploadFulfillmentDocument(ctx context.Context, input *NewFulfillmentDocument) (*FulfillmentDocument, error) {
	if err := utils.ValidateResourceId[FulfillmentOrder](ctx, "FulfillmentOrder", input.FulfillmentOrderId); err != nil {
		return nil, err
	}
	if len(input.Content) == 0 {
		return nil, utils.NewValidationError("document content is empty")
	}

	storage, err := utils.NewS3Storage(ctx)
	if err != nil {
		return nil, err
	}
	bucket := utils.GetStorageBucket()
	key := fmt.Sprintf("fulfillment/%s/%s_%s",
		input.FulfillmentOrderId, uuid.NewString(), input.FileName)
	if err := storage.Upload(ctx, bucket, key, input.Content, input.ContentType); err != nil {
		return nil, err
	}

	doc := FulfillmentDocument{
		FulfillmentOrderId: input.FulfillmentOrderId,
		DocumentType:       input.DocumentType,
		FileName:           input.FileName,
		ContentType:        input.ContentType,
		FilePath:           utils.BuildFilePath(bucket, key),
		SizeBytes:          int64(len(input.Content)),
		Notes:              input.Notes,
	}
	doc.stampCreatedBy(ctx)
	if err := dbFrom(ctx).Create(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetFulfillmentDocumentUrl presigns a download link for the stored file.
func GetFulfillmentDocumentUrl(ctx context.Context, id string) (string, error) {
	doc, err := utils.FetchModel[FulfillmentDocument](ctx, "FulfillmentDocument", id)
	if err != nil {
		return "", err
	}
	bucket, key, ok := utils.SplitFilePath(doc.FilePath)
	if !ok {
		return "", utils.NewValidationError("document has no valid storage path")
	}
	storage, err := utils.NewS3Storage(ctx)
	if err != nil {
		return "", err
	}
	return storage.Presign(ctx, bucket, key, time.Hour)
}

func GetFulfillmentDocuments(ctx context.Context, fulfillmentOrderId string) ([]*FulfillmentDocument, error) {
	var docs []*FulfillmentDocument
	if err := dbFrom(ctx).
		Where("fulfillment_order_id = ?", fulfillmentOrderId).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func DeleteFulfillmentDocument(ctx context.Context, id string) (*FulfillmentDocument, error) {
	doc, err := utils.FetchModel[FulfillmentDocument](ctx, "FulfillmentDocument", id)
	if err != nil {
		return nil, err
	}
	if bucket, key, ok := utils.SplitFilePath(doc.FilePath); ok {
		storage, serr := utils.NewS3Storage(ctx)
		if serr == nil {
			// best effort; the DB row is the source of truth
			_ = storage.Delete(ctx, bucket, key)
		}
	}
	if err := dbFrom(ctx).Delete(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}
