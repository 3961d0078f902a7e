package singlerun

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// setupFolder recreates a run folder from the AEMaster template and the
// demand matrix of the economic scenario. Stale folders from aborted runs
// are removed first.
func setupFolder(inputDir, runFolder, socio string, log *slog.Logger) error {
	master := filepath.Join(inputDir, MasterDir)
	if info, err := os.Stat(master); err != nil || !info.IsDir() {
		return fmt.Errorf("AEMaster folder %s could not be found", master)
	}
	demand := filepath.Join(master, MatricesDir, DemandMatrix(socio))
	if _, err := os.Stat(demand); err != nil {
		return fmt.Errorf("demand OMX file %s could not be found", demand)
	}

	if _, err := os.Stat(runFolder); err == nil {
		log.Warn("run folder already exists, removing it and re-running", "folder", runFolder)
		if err := os.RemoveAll(runFolder); err != nil {
			return fmt.Errorf("failed to remove stale run folder: %w", err)
		}
	}

	log.Debug("creating run folder", "folder", runFolder)
	if err := copyTree(master, runFolder, func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), ".omx")
	}); err != nil {
		return fmt.Errorf("failed to copy AEMaster: %w", err)
	}
	if err := copyFile(demand, filepath.Join(runFolder, MatricesDir, filepath.Base(demand))); err != nil {
		return fmt.Errorf("failed to copy demand matrix: %w", err)
	}
	return nil
}

// copyTree copies src into dst, skipping files for which skip returns true.
func copyTree(src, dst string, skip func(name string) bool) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if skip != nil && skip(d.Name()) {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
