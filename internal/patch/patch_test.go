package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

const sampleSource = `#include <stdio.h>
#include <math.h>

#if defined(__ARM_NEON)
#include <arm_neon.h>
#endif

static void ggml_compute_forward(void) {}
`

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ggml.c")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func backupsBeside(t *testing.T, path string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.bak"))
	require.NoError(t, err)
	return matches
}

func TestInsertAddsBlockExactlyOnce(t *testing.T) {
	t.Parallel()

	path := writeSample(t, sampleSource)
	res, err := Insert(path)
	require.NoError(t, err)
	require.True(t, res.Inserted)
	require.NotEmpty(t, res.BackupPath)

	patched, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(patched), Marker))
	require.Contains(t, string(patched), "GGML_COMPUTE_FP16_TO_FP32(x) ((float) (x))")

	// block lands inside the NEON guard, before the arm_neon include
	lines := strings.Split(string(patched), "\n")
	guardIdx := -1
	for i, l := range lines {
		if l == "#if defined(__ARM_NEON)" {
			guardIdx = i
			break
		}
	}
	require.GreaterOrEqual(t, guardIdx, 0)
	require.Contains(t, lines[guardIdx+2], Marker)
}

func TestInsertSecondCallIsNoOp(t *testing.T) {
	t.Parallel()

	path := writeSample(t, sampleSource)
	first, err := Insert(path)
	require.NoError(t, err)
	require.True(t, first.Inserted)

	afterFirst, err := os.ReadFile(path)
	require.NoError(t, err)

	second, err := Insert(path)
	require.NoError(t, err)
	require.False(t, second.Inserted)
	require.Empty(t, second.BackupPath, "no write means no backup")

	afterSecond, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, afterFirst, afterSecond)
	require.Len(t, backupsBeside(t, path), 1, "second call must not create another backup")
}

func TestInsertBackupMatchesOriginal(t *testing.T) {
	t.Parallel()

	path := writeSample(t, sampleSource)
	require.NoError(t, os.Chmod(path, 0o600))

	res, err := Insert(path)
	require.NoError(t, err)

	backup, err := os.ReadFile(res.BackupPath)
	require.NoError(t, err)
	require.Equal(t, sampleSource, string(backup), "backup is the byte-exact pre-patch content")

	info, err := os.Stat(res.BackupPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestInsertFollowsSymlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "ggml.real.c")
	link := filepath.Join(dir, "ggml.c")
	require.NoError(t, os.WriteFile(target, []byte(sampleSource), 0o644))
	require.NoError(t, os.Symlink(target, link))

	res, err := Insert(link)
	require.NoError(t, err)
	require.True(t, res.Inserted)

	info, err := os.Lstat(link)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&os.ModeSymlink, "the symlink must survive the patch")

	patched, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Contains(t, string(patched), Marker, "the block lands in the link target")
}

func TestAlreadyPatched(t *testing.T) {
	t.Parallel()

	path := writeSample(t, sampleSource)

	found, patched, err := AlreadyPatched(path)
	require.NoError(t, err)
	require.Equal(t, path, found)
	require.False(t, patched)

	_, err = Insert(path)
	require.NoError(t, err)

	_, patched, err = AlreadyPatched(path)
	require.NoError(t, err)
	require.True(t, patched)
}

func TestInsertMissingTarget(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "ggml.c")
	_, err := Insert(missing)
	require.True(t, jperrors.IsNotFound(err))
	require.Contains(t, err.Error(), missing)
	require.Empty(t, backupsBeside(t, missing), "no backup before the target is located")
}

func TestInsertNoAnchorLeavesFileUntouched(t *testing.T) {
	t.Parallel()

	content := "int main(void) { return 0; }\n"
	path := writeSample(t, content)

	_, err := Insert(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no safe insertion point")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, string(after))
	require.Empty(t, backupsBeside(t, path), "anchor selection happens before the backup")
}

func TestInsertPreambleFallback(t *testing.T) {
	t.Parallel()

	content := "#include <stdio.h>\n#include <string.h>\n\nstatic int n;\n"
	path := writeSample(t, content)

	res, err := Insert(path)
	require.NoError(t, err)
	require.True(t, res.Inserted)

	patched, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(patched), "\n")
	require.Equal(t, "#include <string.h>", lines[1])
	require.Contains(t, lines[3], Marker, "block sits right after the last include")
}

func TestLocateSearchesConventionalPaths(t *testing.T) {
	dir := t.TempDir()
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err := Locate("")
	require.True(t, jperrors.IsNotFound(err))
	require.Contains(t, err.Error(), "ggml/src/ggml.c")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ggml", "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ggml", "src", "ggml.c"), []byte(sampleSource), 0o644))

	found, err := Locate("")
	require.NoError(t, err)
	require.Equal(t, "ggml/src/ggml.c", found)
}
