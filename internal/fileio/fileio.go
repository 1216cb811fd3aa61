package fileio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const defaultFileMode os.FileMode = 0o644

// FileState captures the state of a text file at probe time.
type FileState struct {
	Path            string
	Exists          bool
	Permissions     os.FileMode
	Content         string
	Lines           []string
	TrailingNewline bool
}

// ReadFileState reads path and splits its content into lines. A missing
// file is not an error: it yields Exists=false with empty lines, so probes
// can treat "absent" as observed state rather than a failure.
func ReadFileState(path, encodingName string) (*FileState, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	state := &FileState{Path: expanded}

	// Resolve symlinks so later writes land on the target file instead of
	// replacing the link itself (a symlinked ~/.bashrc is common).
	resolved, err := filepath.EvalSymlinks(expanded)
	if err == nil {
		state.Path = resolved
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	info, err := os.Stat(state.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			state.Permissions = defaultFileMode
			state.Lines = []string{}
			return state, nil
		}
		return nil, err
	}

	state.Exists = true
	state.Permissions = info.Mode().Perm()

	data, err := os.ReadFile(state.Path)
	if err != nil {
		return nil, err
	}

	decoded, err := DecodeContent(data, encodingName)
	if err != nil {
		return nil, err
	}

	state.Content = decoded
	state.Lines, state.TrailingNewline = SplitLines(decoded)
	return state, nil
}

// SplitLines splits content into lines, reporting whether a trailing
// newline was present so writes can preserve it.
func SplitLines(content string) ([]string, bool) {
	if content == "" {
		return []string{}, false
	}
	trailing := strings.HasSuffix(content, "\n")
	trimmed := content
	if trailing {
		trimmed = strings.TrimSuffix(content, "\n")
	}
	if trimmed == "" {
		if trailing {
			return []string{}, true
		}
		return []string{""}, false
	}
	return strings.Split(trimmed, "\n"), trailing
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string, trailing bool) string {
	if len(lines) == 0 {
		if trailing {
			return "\n"
		}
		return ""
	}
	joined := strings.Join(lines, "\n")
	if trailing {
		return joined + "\n"
	}
	return joined
}

// ExpandPath resolves ~ and relative paths to an absolute path.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			path = home
		} else if strings.HasPrefix(path, "~/") {
			path = filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(path)
}

// WriteAtomic writes data to path via a temp file and rename so readers
// never observe a partially written file.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".jetsonprep-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}

// CreateBackup writes a timestamp-suffixed copy of content beside path,
// preserving the original permissions. The backup is never deleted by this
// tool; it is the user's recovery mechanism.
func CreateBackup(path string, content []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	timestamp := time.Now().UTC().Format("20060102T150405")

	// The timestamp has one-second resolution; earlier backups from the
	// same second must not be overwritten, so collide into a -N suffix.
	for attempt := 0; ; attempt++ {
		name := fmt.Sprintf("%s.%s.bak", base, timestamp)
		if attempt > 0 {
			name = fmt.Sprintf("%s.%s-%d.bak", base, timestamp, attempt)
		}
		backupPath := filepath.Join(dir, name)

		f, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return backupPath, nil
	}
}

// DecodeContent decodes raw bytes using the named encoding. Unknown or
// empty names fall through to UTF-8 passthrough.
func DecodeContent(data []byte, name string) (string, error) {
	enc := encodingByName(name)
	if enc == nil {
		return string(data), nil
	}

	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// EncodeContent encodes content using the named encoding.
func EncodeContent(content string, name string) ([]byte, error) {
	enc := encodingByName(name)
	if enc == nil {
		return []byte(content), nil
	}
	var buf bytes.Buffer
	writer := transform.NewWriter(&buf, enc.NewEncoder())
	if _, err := writer.Write([]byte(content)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodingByName(name string) encoding.Encoding {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1
	case "windows-1252":
		return charmap.Windows1252
	case "utf-16", "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	default:
		return nil
	}
}
