package netfile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Bundle member names.
const (
	sceneEntry = "scene.json"
	metaEntry  = "meta.toml"
)

// BundleExt is the extension of zipped scene bundles.
const BundleExt = ".nnc"

// Meta is the meta.toml content of a bundle.
type Meta struct {
	Network NetworkMeta `toml:"network"`
}

// NetworkMeta describes a saved network.
type NetworkMeta struct {
	Version     int       `toml:"version"`
	Name        string    `toml:"name"`
	Description string    `toml:"description,omitempty"`
	Saved       time.Time `toml:"saved"`
}

// WriteBundle writes d as a zip archive holding scene.json and, when meta
// is not nil, meta.toml.
func WriteBundle(w io.Writer, d *Document, meta *Meta) error {
	zw := zip.NewWriter(w)

	data, err := Marshal(d, true)
	if err != nil {
		return err
	}
	sw, err := zw.Create(sceneEntry)
	if err != nil {
		return err
	}
	if _, err := sw.Write(data); err != nil {
		return err
	}

	if meta != nil {
		if meta.Network.Version == 0 {
			meta.Network.Version = 1
		}
		mw, err := zw.Create(metaEntry)
		if err != nil {
			return err
		}
		if err := toml.NewEncoder(mw).Encode(meta); err != nil {
			return err
		}
	}
	return zw.Close()
}

// ReadBundle reads a bundle written by WriteBundle. The returned Meta is
// nil when the archive has no meta.toml.
func ReadBundle(r io.ReaderAt, size int64) (*Document, *Meta, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var sceneData, metaData []byte
	for _, f := range zr.File {
		if f.Name != sceneEntry && f.Name != metaEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, err
		}
		if f.Name == sceneEntry {
			sceneData = data
		} else {
			metaData = data
		}
	}

	if sceneData == nil {
		return nil, nil, fmt.Errorf("%w: %s not found in archive", ErrInvalidDocument, sceneEntry)
	}
	d, err := Parse(sceneData)
	if err != nil {
		return nil, nil, err
	}

	var meta *Meta
	if metaData != nil {
		meta = &Meta{}
		if _, err := toml.Decode(string(metaData), meta); err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, metaEntry, err)
		}
	}
	return d, meta, nil
}

// ReadFile loads a scene from a .json file or a .nnc bundle.
func ReadFile(path string) (*Document, *Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if isBundle(path) {
		return ReadBundle(bytes.NewReader(data), int64(len(data)))
	}
	d, err := Parse(data)
	return d, nil, err
}

// WriteFile saves a scene to path. The format follows the extension; meta
// is only written into bundles.
func WriteFile(path string, d *Document, meta *Meta) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isBundle(path) {
		if err := WriteBundle(f, d, meta); err != nil {
			return err
		}
		return f.Close()
	}
	data, err := Marshal(d, true)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Close()
}

func isBundle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), BundleExt)
}
