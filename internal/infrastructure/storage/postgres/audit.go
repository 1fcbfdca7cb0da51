package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"retaildw/internal/core/apperror"
	"retaildw/internal/domain/loader"
)

// Compile-time check that LoadRunLog implements loader.RunLog.
var _ loader.RunLog = (*LoadRunLog)(nil)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// LoadCompletedChannel is the NOTIFY channel a completed run is announced on.
// The payload is the run id. Postgres delivers it only once the load commits.
const LoadCompletedChannel = "dw_load_completed"

// defaultCompressThreshold is the manifest size above which it is stored compressed.
const defaultCompressThreshold = 10 * 1024

// loadRunRow is one dw_load_runs row.
type loadRunRow struct {
	ID                 uuid.UUID        `db:"id"`
	StartedAt          time.Time        `db:"started_at"`
	FinishedAt         time.Time        `db:"finished_at"`
	Status             string           `db:"status"`
	RowCounts          map[string]int64 `db:"row_counts"`
	Error              string           `db:"error"`
	Manifest           []byte           `db:"manifest"`
	ManifestCompressed []byte           `db:"manifest_compressed"`
	CompressionAlgo    CompressionAlgo  `db:"compression_algo"`
}

// LoadRunLog records bulk load runs in dw_load_runs. The per-step manifest
// is stored as JSONB, or zstd-compressed once it exceeds the threshold.
type LoadRunLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes, default 10KB
}

// NewLoadRunLog creates a new load run log.
func NewLoadRunLog(txManager *TxManager) (*LoadRunLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &LoadRunLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Save records run through the querier of ctx, so a completed run commits
// together with the rows it describes.
func (l *LoadRunLog) Save(ctx context.Context, run *loader.Run) error {
	row, err := l.encode(run)
	if err != nil {
		return err
	}

	sql := `
		INSERT INTO dw_load_runs (
			id, started_at, finished_at, status, row_counts, error,
			manifest, manifest_compressed, compression_algo
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	querier := l.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		row.ID, row.StartedAt, row.FinishedAt, row.Status, row.RowCounts, row.Error,
		row.Manifest, row.ManifestCompressed, row.CompressionAlgo,
	)
	if err != nil {
		return MapError(err)
	}

	if run.Status != loader.StatusCompleted {
		return nil
	}
	if _, err := querier.Exec(ctx, "SELECT pg_notify($1, $2)", LoadCompletedChannel, run.ID.String()); err != nil {
		return MapError(err)
	}
	return nil
}

// Last returns the most recently started run.
func (l *LoadRunLog) Last(ctx context.Context) (*loader.Run, error) {
	sql := `
		SELECT id, started_at, finished_at, status, row_counts, error,
			   manifest, manifest_compressed, compression_algo
		FROM dw_load_runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	var row loadRunRow
	if err := pgxscan.Get(ctx, l.txManager.GetQuerier(ctx), &row, sql); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("dw_load_runs", "last")
		}
		return nil, MapError(err)
	}
	return l.decode(row)
}

func (l *LoadRunLog) encode(run *loader.Run) (loadRunRow, error) {
	row := loadRunRow{
		ID:              run.ID,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		Status:          string(run.Status),
		RowCounts:       run.RowCounts,
		Error:           run.Error,
		CompressionAlgo: CompressionNone,
	}
	if row.RowCounts == nil {
		row.RowCounts = map[string]int64{}
	}
	if len(run.Steps) == 0 {
		return row, nil
	}

	manifest, err := json.Marshal(run.Steps)
	if err != nil {
		return row, fmt.Errorf("marshal manifest: %w", err)
	}

	// Compress large manifests
	if len(manifest) > l.compressThreshold {
		row.ManifestCompressed = l.encoder.EncodeAll(manifest, nil)
		row.CompressionAlgo = CompressionZstd
		return row, nil
	}
	row.Manifest = manifest
	return row, nil
}

func (l *LoadRunLog) decode(row loadRunRow) (*loader.Run, error) {
	run := &loader.Run{
		ID:         row.ID,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
		Status:     loader.Status(row.Status),
		RowCounts:  row.RowCounts,
		Error:      row.Error,
	}

	manifest := row.Manifest
	if row.CompressionAlgo == CompressionZstd && len(row.ManifestCompressed) > 0 {
		decompressed, err := l.decoder.DecodeAll(row.ManifestCompressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress manifest: %w", err)
		}
		manifest = decompressed
	}
	if len(manifest) > 0 {
		if err := json.Unmarshal(manifest, &run.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal manifest: %w", err)
		}
	}
	return run, nil
}
