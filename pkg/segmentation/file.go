package segmentation

import (
	"fmt"
	"io"
	"os"

	"slicerio/pkg/logging"
	"slicerio/pkg/nrrd"
	"slicerio/pkg/volume"
)

// ReadOptions control how a segmentation file is read.
type ReadOptions struct {
	// SkipVoxels reads metadata only; Segmentation.Voxels is left nil.
	SkipVoxels bool
}

// WriteOptions control how a segmentation file is written.
type WriteOptions struct {
	// CompressionLevel is the gzip level, 0 (store) to 9 (best).
	CompressionLevel int
}

// DefaultWriteOptions returns maximum compression.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{CompressionLevel: nrrd.DefaultCompressionLevel}
}

// Read decodes a segmentation from an NRRD stream.
func Read(r io.Reader, opts ReadOptions) (*Segmentation, error) {
	var (
		h   *nrrd.Header
		vol *volume.Volume
		err error
	)
	if opts.SkipVoxels {
		h, err = nrrd.ReadHeader(r)
	} else {
		h, vol, err = nrrd.Read(r)
	}
	if err != nil {
		return nil, err
	}
	return Decode(h, vol)
}

// ReadFile decodes the segmentation file at path.
func ReadFile(path string, opts ReadOptions) (*Segmentation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segmentation: %w", err)
	}
	defer f.Close()

	s, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	logging.Default().WithFile(path).Debug("read segmentation", "segments", len(s.Segments), "voxels", s.Voxels != nil)
	return s, nil
}

// Write encodes s as an NRRD stream.
func Write(w io.Writer, s *Segmentation, opts WriteOptions) error {
	h, err := s.Encode()
	if err != nil {
		return err
	}
	return nrrd.Write(w, h, s.Voxels, nrrd.WriteOptions{CompressionLevel: opts.CompressionLevel})
}

// WriteFile encodes s to the file at path.
func WriteFile(path string, s *Segmentation, opts WriteOptions) error {
	h, err := s.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode segmentation: %w", err)
	}
	if err := nrrd.WriteFile(path, h, s.Voxels, nrrd.WriteOptions{CompressionLevel: opts.CompressionLevel}); err != nil {
		return err
	}
	logging.Default().WithFile(path).Debug("wrote segmentation", "segments", len(s.Segments))
	return nil
}
