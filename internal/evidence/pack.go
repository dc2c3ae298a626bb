// Package evidence builds zip evidence packs from report artifacts and
// run logs.
package evidence

import (
	"archive/zip"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/flate"

	"github.com/agentic-radar/agentic-radar/internal/objectstore"
	"github.com/agentic-radar/agentic-radar/pkg/errors"
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// Metadata describes the contents of an evidence pack. It is written as
// the pack's metadata.json entry.
type Metadata struct {
	ArtifactType string   `json:"artifact_type"`
	CreatedAt    string   `json:"created_at"`
	Findings     []string `json:"findings"`
	Logs         []string `json:"logs"`
	TraceIDs     []string `json:"trace_ids"`
}

// PackResult reports where a built pack landed.
type PackResult struct {
	PackPath   string
	StoredPath string
}

// PackBuilder assembles evidence packs.
type PackBuilder struct {
	store objectstore.ObjectStore
}

// NewPackBuilder creates a PackBuilder. The object store is optional;
// when present, built packs are also stored there.
func NewPackBuilder(store objectstore.ObjectStore) *PackBuilder {
	return &PackBuilder{store: store}
}

// Build writes a zip evidence pack containing the findings files, any
// log contents and a trailing metadata.json entry. Entry order is
// deterministic: findings in caller order, logs in sorted relative path
// order, metadata last.
func (b *PackBuilder) Build(findingsPaths []string, logsPath, outputPath string, traceIDs []string) (*PackResult, error) {
	if len(findingsPaths) == 0 {
		return nil, errors.NewEvidenceError("at least one findings file is required")
	}
	for _, path := range findingsPaths {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.NewEvidenceError("findings file does not exist").WithDetail("path", path).WithCause(err)
		}
	}
	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(findingsPaths[0]), "evidence-pack.zip")
	}

	logEntries, err := collectLogs(logsPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, errors.NewEvidenceError("failed to create output directory").WithCause(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".radar-evidence-*")
	if err != nil {
		return nil, errors.NewEvidenceError("failed to create temp pack").WithCause(err)
	}
	tmpName := tmp.Name()

	if err := b.writeArchive(tmp, findingsPaths, logEntries, traceIDs); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, errors.NewEvidenceError("failed to close pack").WithCause(err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		os.Remove(tmpName)
		return nil, errors.NewEvidenceError("failed to finalize pack").WithCause(err)
	}

	result := &PackResult{PackPath: outputPath}
	if b.store != nil {
		stored, err := b.store.PutFile(outputPath, filepath.Base(outputPath))
		if err != nil {
			return nil, err
		}
		result.StoredPath = stored
	}
	return result, nil
}

type logEntry struct {
	relative string
	absolute string
}

// collectLogs resolves a logs path into archive entries: a directory is
// walked recursively, a regular file becomes a single entry.
func collectLogs(logsPath string) ([]logEntry, error) {
	if logsPath == "" {
		return nil, nil
	}
	info, err := os.Stat(logsPath)
	if err != nil {
		return nil, errors.NewEvidenceError("logs path does not exist").WithDetail("path", logsPath)
	}
	if !info.IsDir() {
		return []logEntry{{relative: filepath.Base(logsPath), absolute: logsPath}}, nil
	}
	var entries []logEntry
	walkErr := filepath.WalkDir(logsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(logsPath, path)
		if err != nil {
			return err
		}
		entries = append(entries, logEntry{relative: filepath.ToSlash(rel), absolute: path})
		return nil
	})
	if walkErr != nil {
		return nil, errors.NewEvidenceError("failed to walk logs directory").WithCause(walkErr)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].relative < entries[j].relative })
	return entries, nil
}

func (b *PackBuilder) writeArchive(target io.Writer, findingsPaths []string, logEntries []logEntry, traceIDs []string) error {
	writer := zip.NewWriter(target)
	writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	metadata := Metadata{
		ArtifactType: "agentic-radar-evidence",
		CreatedAt:    types.NowUTC(),
		Findings:     []string{},
		Logs:         []string{},
		TraceIDs:     traceIDs,
	}
	if metadata.TraceIDs == nil {
		metadata.TraceIDs = []string{}
	}

	for _, path := range findingsPaths {
		entryName := "findings/" + filepath.Base(path)
		if err := addFileEntry(writer, entryName, path); err != nil {
			return err
		}
		metadata.Findings = append(metadata.Findings, entryName)
	}
	for _, entry := range logEntries {
		entryName := "logs/" + entry.relative
		if err := addFileEntry(writer, entryName, entry.absolute); err != nil {
			return err
		}
		metadata.Logs = append(metadata.Logs, entryName)
	}

	payload, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return errors.NewEvidenceError("failed to marshal pack metadata").WithCause(err)
	}
	entry, err := writer.Create("metadata.json")
	if err != nil {
		return errors.NewEvidenceError("failed to create metadata entry").WithCause(err)
	}
	if _, err := entry.Write(payload); err != nil {
		return errors.NewEvidenceError("failed to write metadata entry").WithCause(err)
	}

	if err := writer.Close(); err != nil {
		return errors.NewEvidenceError("failed to close pack archive").WithCause(err)
	}
	return nil
}

func addFileEntry(writer *zip.Writer, entryName, sourcePath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return errors.NewEvidenceError("failed to open pack input").WithDetail("path", sourcePath).WithCause(err)
	}
	defer source.Close()
	entry, err := writer.Create(entryName)
	if err != nil {
		return errors.NewEvidenceError("failed to create pack entry").WithDetail("entry", entryName).WithCause(err)
	}
	if _, err := io.Copy(entry, source); err != nil {
		return errors.NewEvidenceError("failed to write pack entry").WithDetail("entry", entryName).WithCause(err)
	}
	return nil
}
