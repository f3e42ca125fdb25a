package service

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ripsnc/internal/config"
	"ripsnc/internal/domain"
	"ripsnc/internal/port"
)

// ExportArchiver copies rendered exports to object storage.
type ExportArchiver struct {
	storage port.ObjectStorage
	bucket  string
	prefix  string
	expiry  int64
	log     *zap.Logger
}

// NewExportArchiver creates an archiver writing under cfg.Prefix in the
// configured bucket.
func NewExportArchiver(storage port.ObjectStorage, s3Cfg *config.S3Config, archiveCfg *config.ArchiveConfig, log *zap.Logger) *ExportArchiver {
	return &ExportArchiver{
		storage: storage,
		bucket:  s3Cfg.Bucket,
		prefix:  archiveCfg.Prefix,
		expiry:  s3Cfg.PresignExpiry,
		log:     log,
	}
}

// Archive uploads out under {prefix}/{sessionID}/{filename} and returns a
// presigned download URL when one can be issued.
func (a *ExportArchiver) Archive(ctx context.Context, sessionID uuid.UUID, out *ExportOutput) (*domain.ArchivedExport, error) {
	key := path.Join(a.prefix, sessionID.String(), out.Filename)
	res, err := a.storage.Upload(ctx, port.UploadInput{
		Bucket:      a.bucket,
		Key:         key,
		Body:        bytes.NewReader(out.Data),
		ContentType: out.ContentType,
		Filename:    out.Filename,
	})
	if err != nil {
		return nil, fmt.Errorf("archiving export: %w", err)
	}

	archived := &domain.ArchivedExport{Key: key, Location: res.Location}
	url, err := a.storage.GetPresignedURL(ctx, a.bucket, key, a.expiry)
	if err != nil {
		a.log.Warn("ExportArchiver.Archive: presign failed", zap.String("key", key), zap.Error(err))
	} else {
		archived.DownloadURL = url
	}
	a.log.Info("ExportArchiver.Archive: export archived", zap.String("key", key))
	return archived, nil
}
