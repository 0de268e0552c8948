package services

import (
	"context"

	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
	apperrors "github.com/activmedica/backend/pkg/errors"
	"github.com/activmedica/backend/pkg/retry"
)

const pdfContentType = "application/pdf"

// ReportArchiver uploads a rendered report to blob storage and appends the
// retrieval record under the owning user. The upload strictly precedes the
// record append, so a record never references a missing blob.
type ReportArchiver struct {
	blobs    providers.BlobStore
	records  providers.RecordStore
	retryCfg retry.Config
}

// NewReportArchiver creates a new report archiver.
func NewReportArchiver(blobs providers.BlobStore, records providers.RecordStore, retryCfg retry.Config) *ReportArchiver {
	return &ReportArchiver{
		blobs:    blobs,
		records:  records,
		retryCfg: retryCfg,
	}
}

// Archive uploads the document and appends its record. An upload failure
// aborts with no record written. A record failure after a successful upload
// returns the retrieval URL together with a RECORD_WRITE error; the blob is
// retained.
func (a *ReportArchiver) Archive(ctx context.Context, doc *entities.ReportDocument, patientName, userID string) (string, error) {
	err := retry.Do(ctx, a.retryCfg, func() error {
		return a.blobs.Put(ctx, doc.Filename, doc.Content, pdfContentType)
	})
	if err != nil {
		return "", apperrors.NewUploadError("failed to upload report document", err)
	}

	url, err := a.blobs.GetURL(ctx, doc.Filename)
	if err != nil {
		return "", apperrors.NewUploadError("failed to resolve report retrieval url", err)
	}

	record := &entities.ReportRecord{
		UserID: userID,
		Name:   patientName,
		PDFURL: url,
	}
	if err := a.records.Append(ctx, record); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeRecordWrite) {
			return url, err
		}
		return url, apperrors.NewRecordWriteError("failed to append report record", err)
	}

	return url, nil
}
