package model

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/rotisserie/eris"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"riskradar/config"
)

/*
Artifacts are the outputs of the offline training script.

They are loaded once at startup and never modified afterwards, so they can
be shared between concurrent requests without locking.
*/
type Artifacts struct {
	Booster  *Booster
	Scaler   *StandardScaler
	Features []string
}

/*
LoadArtifacts reads the classifier, scaler and feature list from cfg.Dir.

Loading is all-or-nothing: any missing, malformed or mutually inconsistent
file returns an error and no artifacts.
*/
func LoadArtifacts(ctx context.Context, cfg config.ModelConfig) (*Artifacts, error) {
	var (
		artifacts Artifacts
		g, gctx   = errgroup.WithContext(ctx)
	)

	g.Go(func() error {
		data, err := readArtifact(gctx, cfg.Dir, cfg.ModelFile)
		if err != nil {
			return err
		}
		artifacts.Booster, err = ParseBooster(data)
		return eris.Wrapf(err, "load %s", cfg.ModelFile)
	})

	g.Go(func() error {
		data, err := readArtifact(gctx, cfg.Dir, cfg.ScalerFile)
		if err != nil {
			return err
		}
		var scaler StandardScaler
		if err := json.Unmarshal(data, &scaler); err != nil {
			return eris.Wrapf(ErrInvalidArtifact, "decode %s: %v", cfg.ScalerFile, err)
		}
		if err := scaler.Validate(); err != nil {
			return eris.Wrapf(err, "load %s", cfg.ScalerFile)
		}
		artifacts.Scaler = &scaler
		return nil
	})

	g.Go(func() error {
		data, err := readArtifact(gctx, cfg.Dir, cfg.FeaturesFile)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &artifacts.Features); err != nil {
			return eris.Wrapf(ErrInvalidArtifact, "decode %s: %v", cfg.FeaturesFile, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := artifacts.check(); err != nil {
		return nil, err
	}
	return &artifacts, nil
}

// check verifies the three artifacts agree with each other and the feature builder.
func (a *Artifacts) check() error {
	if len(a.Features) != NumFeatures {
		return eris.Wrapf(ErrInvalidArtifact, "feature list has %d names, want %d", len(a.Features), NumFeatures)
	}
	if nf := a.Booster.NumFeature(); nf != 0 && nf != NumFeatures {
		return eris.Wrapf(ErrInvalidArtifact, "booster expects %d features, want %d", nf, NumFeatures)
	}
	if idx := a.Booster.MaxFeatureIndex(); idx >= NumFeatures {
		return eris.Wrapf(ErrInvalidArtifact, "booster splits on feature %d", idx)
	}
	if !slices.Equal(a.Features, FeatureOrder) {
		log.WithFields(log.Fields{
			"loaded":   a.Features,
			"expected": FeatureOrder,
		}).Warn("Feature names differ from the builder's column order")
	}
	return nil
}

func readArtifact(ctx context.Context, dir, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrArtifactNotFound, "%s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	log.WithField("path", path).Debug("Read model artifact")
	return data, nil
}
