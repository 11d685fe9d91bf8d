package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"texforge/internal/asset"
	"texforge/internal/logging"
	"texforge/internal/services"
)

// Finalize stamps the terminal status and writes the metadata document next
// to the organized maps. It is the last stage of a processed asset.
type Finalize struct {
	base
}

// NewFinalize constructs the metadata finalization stage.
func NewFinalize() *Finalize { return &Finalize{} }

// Name returns the stage name.
func (f *Finalize) Name() string { return NameFinalize }

// Execute writes <output>/<asset dir>/<asset>_metadata.json.
func (f *Finalize) Execute(_ context.Context, ac *asset.Context) error {
	md := ac.Metadata
	if md == nil {
		return services.Wrap(services.ErrValidation, NameFinalize, "finalize", "metadata was never initialized", nil)
	}
	dir, err := allocateAssetDir(ac)
	if err != nil {
		return err
	}

	produced := len(md.FinalOutputFiles)
	md.FinalOutputFiles = nil
	md.Status = asset.StatusProcessed
	md.OutputPath = dir
	md.ProcessingEndTime = ac.Timestamp()

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrOutput, NameFinalize, "encode", "metadata", err)
	}
	data = append(data, '\n')

	target := filepath.Join(ac.OutputBase, filepath.FromSlash(dir), MetadataFileName(ac.Name()))
	if err := writeFileAtomic(target, data); err != nil {
		return services.Wrap(services.ErrOutput, NameFinalize, "write", MetadataFileName(ac.Name()), err)
	}
	f.log().Info(
		"metadata written",
		logging.String(logging.FieldEventType, "metadata_written"),
		logging.String("path", target),
		logging.Int("maps", len(md.Maps)),
		logging.Int("files", produced),
	)
	return nil
}

// ReadMetadata loads a metadata document written by Finalize.
func ReadMetadata(path string) (*asset.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var md asset.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return &md, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
