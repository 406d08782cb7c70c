// SPDX-License-Identifier: MPL-2.0

// Package ziputil writes export archives. The writer is atomic with
// respect to the output path: the archive is assembled in a temp file
// next to the destination and renamed into place only on success, so a
// failed or cancelled export never leaves a half-written archive
// behind.
package ziputil

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExtraFile is an in-memory entry added at the archive root, such as a
// generated index.
type ExtraFile struct {
	Name string
	Data []byte
}

// Options configures one archive build.
type Options struct {
	// OutputPath is the final archive location.
	OutputPath string

	// Root is the directory all Files are relativized against.
	Root string

	// Files are the absolute paths to embed.
	Files []string

	// Prefix is prepended to every embedded file's archive path
	// (e.g. "overrides/").
	Prefix string

	// Exclude holds root-relative slash paths to skip even though they
	// appear in Files.
	Exclude map[string]struct{}

	// Extra are in-memory entries written at the archive root.
	Extra []ExtraFile

	// OnFile is called before each file is written with its archive
	// path.
	OnFile func(archivePath string)

	// OnProgress is called with cumulative and total byte counts as
	// content is copied.
	OnProgress func(done, total int64)
}

// Export builds the archive described by opts. Cancellation via ctx
// aborts the build, removes the temp file and returns ctx.Err().
func Export(ctx context.Context, opts Options) (err error) {
	absRoot, err := filepath.Abs(opts.Root)
	if err != nil {
		return fmt.Errorf("resolve archive root: %w", err)
	}

	type entry struct {
		absPath string
		relPath string
		size    int64
	}

	entries := make([]entry, 0, len(opts.Files))
	var total int64
	for _, file := range opts.Files {
		rel, relErr := filepath.Rel(absRoot, file)
		if relErr != nil {
			return fmt.Errorf("relativize %s: %w", file, relErr)
		}
		rel = filepath.ToSlash(rel)
		if _, skip := opts.Exclude[rel]; skip {
			continue
		}

		info, statErr := os.Stat(file)
		if statErr != nil {
			return fmt.Errorf("stat %s: %w", file, statErr)
		}
		entries = append(entries, entry{absPath: file, relPath: rel, size: info.Size()})
		total += info.Size()
	}
	for _, extra := range opts.Extra {
		total += int64(len(extra.Data))
	}

	outDir := filepath.Dir(opts.OutputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(outDir, "."+filepath.Base(opts.OutputPath)+".*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()        //nolint:errcheck // already failing
			os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		}
	}()

	zw := zip.NewWriter(tmp)

	var done int64
	progress := func(n int64) {
		done += n
		if opts.OnProgress != nil {
			opts.OnProgress(done, total)
		}
	}

	for _, e := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		archivePath := opts.Prefix + e.relPath
		if opts.OnFile != nil {
			opts.OnFile(archivePath)
		}

		if err := writeFileEntry(ctx, zw, archivePath, e.absPath, progress); err != nil {
			return err
		}
	}

	for _, extra := range opts.Extra {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if opts.OnFile != nil {
			opts.OnFile(extra.Name)
		}

		w, createErr := zw.Create(extra.Name)
		if createErr != nil {
			return fmt.Errorf("create archive entry %s: %w", extra.Name, createErr)
		}
		if _, writeErr := w.Write(extra.Data); writeErr != nil {
			return fmt.Errorf("write archive entry %s: %w", extra.Name, writeErr)
		}
		progress(int64(len(extra.Data)))
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpPath, opts.OutputPath); err != nil {
		return fmt.Errorf("move archive into place: %w", err)
	}
	committed = true
	return nil
}

// writeFileEntry streams one file into the archive, checking for
// cancellation between copy chunks.
func writeFileEntry(ctx context.Context, zw *zip.Writer, archivePath, absPath string, progress func(int64)) error {
	f, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", absPath, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", absPath, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header for %s: %w", absPath, err)
	}
	header.Name = archivePath
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", archivePath, err)
	}

	buf := make([]byte, 64*1024)
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("write archive entry %s: %w", archivePath, writeErr)
			}
			progress(int64(n))
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read %s: %w", absPath, readErr)
		}
	}
}

// ReadEntry extracts a single named entry from an existing archive.
// Used to pull the index back out of a built pack.
func ReadEntry(archivePath, name string) ([]byte, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer zr.Close() //nolint:errcheck // read-only handle

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, openErr := f.Open()
		if openErr != nil {
			return nil, fmt.Errorf("open entry %s: %w", name, openErr)
		}
		defer rc.Close() //nolint:errcheck // read-only handle
		data, readErr := io.ReadAll(rc)
		if readErr != nil {
			return nil, fmt.Errorf("read entry %s: %w", name, readErr)
		}
		return data, nil
	}
	return nil, fmt.Errorf("archive %s has no entry %s", archivePath, name)
}
