package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scigolib/hdf5"
)

// Matrix is an OMX trip table fixture of Rows x Cols zeros.
type Matrix struct {
	Name string
	Rows int
	Cols int
}

// WriteOMX writes an OMX file with the matrices under /data and one integer
// zone mapping of the given size per name under /lookup.
func WriteOMX(t testing.TB, path string, matrices []Matrix, zones int, mappings ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create directory for %s: %v", path, err)
	}

	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	if err != nil {
		t.Fatalf("create omx file: %v", err)
	}

	if _, err := fw.CreateGroup("/data"); err != nil {
		t.Fatalf("create /data: %v", err)
	}
	for _, m := range matrices {
		ds, err := fw.CreateDataset("/data/"+m.Name, hdf5.Float64, []uint64{uint64(m.Rows), uint64(m.Cols)})
		if err != nil {
			t.Fatalf("create matrix %s: %v", m.Name, err)
		}
		if err := ds.Write(make([]float64, m.Rows*m.Cols)); err != nil {
			t.Fatalf("write matrix %s: %v", m.Name, err)
		}
	}

	if _, err := fw.CreateGroup("/lookup"); err != nil {
		t.Fatalf("create /lookup: %v", err)
	}
	for _, name := range mappings {
		ds, err := fw.CreateDataset("/lookup/"+name, hdf5.Int32, []uint64{uint64(zones)})
		if err != nil {
			t.Fatalf("create mapping %s: %v", name, err)
		}
		ids := make([]int32, zones)
		for i := range ids {
			ids[i] = int32(i + 1)
		}
		if err := ds.Write(ids); err != nil {
			t.Fatalf("write mapping %s: %v", name, err)
		}
	}

	if err := fw.Close(); err != nil {
		t.Fatalf("close omx file: %v", err)
	}
}
