// Package omx inspects Open Matrix (OMX) demand files.
//
// OMX files are HDF5 containers holding trip tables under /data and zone
// mappings under /lookup. HDF5Inspector reads that layout; files it cannot
// parse are only checked for the HDF5 signature.
package omx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/scigolib/hdf5"
)

// OMX group names.
const (
	DataGroup   = "data"
	LookupGroup = "lookup"
)

// Signature is the 8-byte HDF5 format signature.
var Signature = []byte("\x89HDF\r\n\x1a\n")

// superblockOffsets are the offsets HDF5 may place its superblock at.
var superblockOffsets = []int64{0, 512, 1024, 2048}

// ErrStructureUnavailable is returned when an inspector cannot list matrices.
var ErrStructureUnavailable = errors.New("matrix structure cannot be read without an HDF5 reader")

// Shape is the dimensions of a matrix.
type Shape struct {
	Rows int
	Cols int
}

// Square reports whether the matrix has as many rows as columns.
func (s Shape) Square() bool {
	return s.Rows == s.Cols
}

// Info describes the contents of an OMX file.
type Info struct {
	Matrices map[string]Shape
	Mappings []string
}

// HasMatrix reports whether a named matrix exists.
func (i *Info) HasMatrix(name string) bool {
	_, ok := i.Matrices[name]
	return ok
}

// HasMapping reports whether a named zone mapping exists.
func (i *Info) HasMapping(name string) bool {
	for _, m := range i.Mappings {
		if m == name {
			return true
		}
	}
	return false
}

// Inspector reads the structure of an OMX file.
type Inspector interface {
	// Inspect returns the file's matrices and mappings.
	// It returns ErrStructureUnavailable when only the container format could be verified.
	Inspect(path string) (*Info, error)
}

// SignatureInspector checks that a file is an HDF5 container without reading it.
type SignatureInspector struct{}

// Inspect verifies the HDF5 signature and reports ErrStructureUnavailable.
func (SignatureInspector) Inspect(path string) (*Info, error) {
	ok, err := IsHDF5(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s is not an HDF5 file", path)
	}
	return nil, ErrStructureUnavailable
}

// HDF5Inspector lists the matrices and mappings of an OMX file with a pure-Go
// HDF5 reader.
type HDF5Inspector struct{}

// Inspect reads the /data and /lookup groups. When the container cannot be
// parsed the error wraps ErrStructureUnavailable.
func (HDF5Inspector) Inspect(path string) (info *Info, err error) {
	if _, err := (SignatureInspector{}).Inspect(path); !errors.Is(err, ErrStructureUnavailable) {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			info, err = nil, fmt.Errorf("%w: %v", ErrStructureUnavailable, p)
		}
	}()

	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructureUnavailable, err)
	}
	defer f.Close()

	info = &Info{Matrices: make(map[string]Shape)}
	for _, child := range f.Root().Children() {
		g, ok := child.(*hdf5.Group)
		if !ok {
			continue
		}
		switch baseName(g.Name()) {
		case DataGroup:
			for _, obj := range g.Children() {
				ds, ok := obj.(*hdf5.Dataset)
				if !ok {
					continue
				}
				shape, err := datasetShape(ds)
				if err != nil {
					return nil, fmt.Errorf("%w: matrix %s: %v", ErrStructureUnavailable, baseName(ds.Name()), err)
				}
				info.Matrices[baseName(ds.Name())] = shape
			}
		case LookupGroup:
			for _, obj := range g.Children() {
				if ds, ok := obj.(*hdf5.Dataset); ok {
					info.Mappings = append(info.Mappings, baseName(ds.Name()))
				}
			}
		}
	}
	return info, nil
}

// dataspacePattern matches the dataspace part of a dataset description,
// e.g. "2D array [3 x 3]".
var dataspacePattern = regexp.MustCompile(`\d+D array \[([0-9x ]+)\]`)

func datasetShape(ds *hdf5.Dataset) (Shape, error) {
	desc, err := ds.Info()
	if err != nil {
		return Shape{}, err
	}
	m := dataspacePattern.FindStringSubmatch(desc)
	if m == nil {
		return Shape{}, fmt.Errorf("unsupported dataspace: %s", desc)
	}
	var dims []int
	for _, field := range strings.Fields(strings.ReplaceAll(m[1], "x", " ")) {
		n, err := strconv.Atoi(field)
		if err != nil {
			return Shape{}, fmt.Errorf("dimension %q: %w", field, err)
		}
		dims = append(dims, n)
	}
	switch len(dims) {
	case 1:
		return Shape{Rows: dims[0], Cols: 1}, nil
	case 2:
		return Shape{Rows: dims[0], Cols: dims[1]}, nil
	default:
		return Shape{Rows: dims[0], Cols: -1}, nil
	}
}

func baseName(name string) string {
	return path.Base("/" + strings.Trim(name, "/"))
}

// IsHDF5 reports whether the file carries the HDF5 signature at a valid superblock offset.
func IsHDF5(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, len(Signature))
	for _, off := range superblockOffsets {
		n, err := f.ReadAt(buf, off)
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		if n < len(buf) {
			return false, nil
		}
		if bytes.Equal(buf, Signature) {
			return true, nil
		}
	}
	return false, nil
}

// StaticInspector returns fixed answers keyed by path.
type StaticInspector map[string]*Info

// Inspect returns the configured info or an error for unknown paths.
func (s StaticInspector) Inspect(path string) (*Info, error) {
	info, ok := s[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return info, nil
}
