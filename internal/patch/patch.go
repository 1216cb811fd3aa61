// Package patch inserts the Jetson Nano half-precision compatibility
// shims into a llama.cpp ggml.c source file, exactly once, with a
// timestamped backup taken before any mutation.
package patch

import (
	"errors"
	"strings"

	"github.com/nomad-traveller/jetsonprep/internal/fileio"
	"github.com/nomad-traveller/jetsonprep/internal/probe"
	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

var errMarkerMissing = errors.New("marker not found after write")

// Marker identifies an already-patched file. The marker search is the
// idempotence guarantee: it runs before any write, and again after the
// write to verify the insertion landed.
const Marker = "JETSON_NANO_COMPAT"

// compatBlock is inserted verbatim. CUDA 10.2 ships a gcc toolchain whose
// ARM NEON fp16 intrinsics disagree with the ones ggml.c expects; the
// shims keep the fp16 conversion paths on plain casts.
var compatBlock = []string{
	"",
	"// JETSON_NANO_COMPAT: fp16 shims for the CUDA 10.2 gcc toolchain",
	"#if defined(__ARM_NEON) && !defined(__ARM_FEATURE_FP16_VECTOR_ARITHMETIC)",
	"typedef __fp16 ggml_fp16_internal_t;",
	"#undef  GGML_COMPUTE_FP16_TO_FP32",
	"#undef  GGML_COMPUTE_FP32_TO_FP16",
	"#define GGML_COMPUTE_FP16_TO_FP32(x) ((float) (x))",
	"#define GGML_COMPUTE_FP32_TO_FP16(x) ((ggml_fp16_internal_t) (x))",
	"#endif",
	"",
}

// targetName is the file the shims belong in.
const targetName = "ggml.c"

// searchLocations are the conventional places the target lives in a
// llama.cpp checkout, relative to the working directory.
var searchLocations = []string{
	"ggml.c",
	"ggml/src/ggml.c",
	"src/ggml.c",
	"llama.cpp/ggml.c",
	"llama.cpp/ggml/src/ggml.c",
	"llama.cpp/src/ggml.c",
}

// Result reports what Insert did.
type Result struct {
	// Path is the file that was examined (and possibly patched).
	Path string
	// Inserted is false when the marker was already present.
	Inserted bool
	// BackupPath is the pre-patch copy; empty when no write happened.
	BackupPath string
}

// Locate resolves the target file. An explicit path is used as-is and
// must exist; an empty path triggers a search over the conventional
// locations. Returns NotFoundError listing every path tried.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		if probe.PathExists(explicit) {
			return explicit, nil
		}
		return "", jperrors.NewNotFoundError(targetName, []string{explicit})
	}

	for _, candidate := range searchLocations {
		if probe.PathExists(candidate) {
			return candidate, nil
		}
	}
	return "", jperrors.NewNotFoundError(targetName, searchLocations)
}

// AlreadyPatched reports whether the file at targetPath (located via
// Locate when empty) already carries the marker. Read-only, so dry-run
// can give the same already-present verdict a real run would.
func AlreadyPatched(targetPath string) (string, bool, error) {
	path, err := Locate(targetPath)
	if err != nil {
		return "", false, err
	}

	state, err := fileio.ReadFileState(path, "")
	if err != nil {
		return path, false, jperrors.NewStateError(path, err)
	}
	if !state.Exists {
		return path, false, jperrors.NewNotFoundError(targetName, []string{path})
	}
	return path, strings.Contains(state.Content, Marker), nil
}

// Insert applies the compatibility block to the file at targetPath
// (located via Locate when empty). The sequence is fixed: marker check,
// backup, anchor selection, atomic write, re-read verification. A file
// already carrying the marker is returned untouched with Inserted=false
// and no backup. After the backup exists every failure report carries
// the backup path; the write is never retried.
func Insert(targetPath string) (Result, error) {
	path, err := Locate(targetPath)
	if err != nil {
		return Result{}, err
	}
	res := Result{Path: path}

	state, err := fileio.ReadFileState(path, "")
	if err != nil {
		return res, jperrors.NewStateError(path, err)
	}
	if !state.Exists {
		return res, jperrors.NewNotFoundError(targetName, []string{path})
	}

	if strings.Contains(state.Content, Marker) {
		return res, nil
	}

	idx, err := insertionPoint(state.Lines)
	if err != nil {
		return res, jperrors.NewValidationError(path, err.Error(), err)
	}

	backup, err := fileio.CreateBackup(state.Path, []byte(state.Content), state.Permissions)
	if err != nil {
		return res, jperrors.NewExecutionError(path, err)
	}
	res.BackupPath = backup

	patched := make([]string, 0, len(state.Lines)+len(compatBlock))
	patched = append(patched, state.Lines[:idx]...)
	patched = append(patched, compatBlock...)
	patched = append(patched, state.Lines[idx:]...)
	content := fileio.JoinLines(patched, state.TrailingNewline)

	if err := fileio.WriteAtomic(state.Path, []byte(content), state.Permissions); err != nil {
		return res, jperrors.NewCorruptionError(path, backup, err)
	}

	verify, err := fileio.ReadFileState(path, "")
	if err != nil {
		return res, jperrors.NewCorruptionError(path, backup, err)
	}
	if !strings.Contains(verify.Content, Marker) {
		return res, jperrors.NewCorruptionError(path, backup, errMarkerMissing)
	}

	res.Inserted = true
	return res, nil
}
