package repository

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/forecast"

	"github.com/klauspost/compress/zstd"
)

const (
	artifactFormat  = "demandcast.model"
	artifactVersion = 1
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

type artifactEnvelope struct {
	Format   string          `json:"format"`
	Version  int             `json:"version"`
	Features []string        `json:"features"`
	Checksum string          `json:"sha256"`
	Payload  json.RawMessage `json:"payload"`
}

type artifactBody struct {
	Scaler    *forecast.Scaler           `json:"scaler"`
	Model     *forecast.GradientBoosting `json:"model"`
	RunID     string                     `json:"run_id"`
	TrainedAt time.Time                  `json:"trained_at"`
	Metrics   models.Metrics             `json:"metrics"`
}

// EncodeArtifact serialises a trained model into one self-describing,
// zstd-compressed blob.
func EncodeArtifact(tm *forecast.TrainedModel) ([]byte, error) {
	if tm == nil {
		return nil, fmt.Errorf("encode artifact: nil model: %w", models.ErrInvalidArgument)
	}
	payload, err := json.Marshal(artifactBody{
		Scaler:    tm.Scaler,
		Model:     tm.Model,
		RunID:     tm.RunID,
		TrainedAt: tm.TrainedAt,
		Metrics:   tm.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("encode artifact payload: %w", err)
	}
	sum := sha256.Sum256(payload)
	env, err := json.Marshal(artifactEnvelope{
		Format:   artifactFormat,
		Version:  artifactVersion,
		Features: models.FeatureNames(),
		Checksum: hex.EncodeToString(sum[:]),
		Payload:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode artifact envelope: %w", err)
	}
	return zstdEncoder.EncodeAll(env, nil), nil
}

// DecodeArtifact reverses EncodeArtifact. Any mismatch in format, version,
// feature schema, checksum or model shape yields models.ErrCorruptArtifact.
func DecodeArtifact(blob []byte) (*forecast.TrainedModel, error) {
	raw, err := zstdDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, corrupt("decompress: %v", err)
	}
	var env artifactEnvelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return nil, corrupt("envelope: %v", err)
	}
	if env.Format != artifactFormat {
		return nil, corrupt("unexpected format %q", env.Format)
	}
	if env.Version != artifactVersion {
		return nil, corrupt("unsupported version %d", env.Version)
	}
	if !slices.Equal(env.Features, models.FeatureNames()) {
		return nil, corrupt("feature schema %v does not match %v", env.Features, models.FeatureNames())
	}
	sum := sha256.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return nil, corrupt("checksum mismatch")
	}

	var body artifactBody
	if err := json.Unmarshal(env.Payload, &body); err != nil {
		return nil, corrupt("payload: %v", err)
	}
	if body.Scaler == nil || body.Model == nil {
		return nil, corrupt("payload missing scaler or model")
	}
	tm, err := forecast.NewTrainedModel(body.Scaler, body.Model, body.RunID, body.TrainedAt, body.Metrics)
	if err != nil {
		return nil, corrupt("%v", err)
	}
	return tm, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), models.ErrCorruptArtifact)
}
