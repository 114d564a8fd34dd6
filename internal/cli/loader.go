package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/portmatch/internal/store"
	"github.com/roach88/portmatch/internal/vocab"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Input file unreadable
	ErrCodeParseFailed = "E003" // Input file malformed
	ErrCodeVocabulary  = "E004" // Vocabulary failed to load or is unsuitable
	ErrCodeNotFound    = "E005" // Path or session not found
	ErrCodeDatabase    = "E006" // Archive database error
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeScenarioFailed  = "E101" // Scenario expectations or assertions failed
	ErrCodeReplayDiverged  = "E102" // Replay did not reproduce the session
	ErrCodeDocumentsDiffer = "E103" // diff found differences
	ErrCodeInvalidVocab    = "E104" // vocabulary file has validation errors
	ErrCodeTestFailed      = "E_TEST_FAILED"
)

// loadVocabulary resolves the vocabulary: --vocab, then the config file,
// then the embedded default. The config's vocabulary_constraint is checked
// against the result.
func (o *RootOptions) loadVocabulary() (*vocab.Vocabulary, error) {
	path := o.Vocabulary
	if path == "" {
		path = o.Config.Vocabulary
	}

	v := vocab.Default()
	if path != "" {
		var err error
		if v, err = vocab.Load(path); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: failed to load vocabulary %s", ErrCodeVocabulary, path), err)
		}
	}

	if c := o.Config.VocabularyConstraint; c != "" {
		ok, err := v.Satisfies(c)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, ErrCodeVocabulary+": invalid vocabulary constraint", err)
		}
		if !ok {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("%s: vocabulary %s does not satisfy %s", ErrCodeVocabulary, v.Version, c))
		}
	}
	o.logger().Debug("vocabulary loaded", "version", v.Version, "path", path)
	return v, nil
}

// databasePath returns flag, or the config file's database when flag is empty.
func (o *RootOptions) databasePath(flag string) string {
	if flag != "" {
		return flag
	}
	return o.Config.Database
}

// openStore opens the archive at path. required controls whether an empty
// path is an error or means "no archive".
func (o *RootOptions) openStore(path string, required bool) (*store.Store, error) {
	if path == "" {
		if required {
			return nil, NewExitError(ExitCommandError,
				ErrCodeDatabase+": no database: pass --db or set database in the config file")
		}
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to open database", err)
	}
	o.logger().Debug("database ready", "path", path)
	return st, nil
}

// closeStore closes st, logging failures.
func (o *RootOptions) closeStore(st *store.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		o.logger().Error("error closing database", "error", err)
	}
}

// archive saves an export document to st when st is non-nil.
func (o *RootOptions) archive(ctx context.Context, st *store.Store, data []byte) (bool, error) {
	if st == nil {
		return false, nil
	}
	inserted, err := st.SaveSession(ctx, data)
	if err != nil {
		return false, WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to archive session", err)
	}
	o.logger().Info("session archived", "inserted", inserted)
	return inserted, nil
}

// exportPath picks where an export document goes: --out, then the config
// file's export_dir as <dir>/<session>.json. Empty means stdout.
func (o *RootOptions) exportPath(out, sessionID string) string {
	if out != "" {
		return out
	}
	if o.Config.ExportDir != "" {
		return filepath.Join(o.Config.ExportDir, sessionID+".json")
	}
	return ""
}

// writeExport writes data to path, creating parent directories.
func writeExport(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return WrapExitError(ExitCommandError, ErrCodeWriteFailed+": failed to create export directory", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return WrapExitError(ExitCommandError, ErrCodeWriteFailed+": failed to write export", err)
	}
	return nil
}

// readFile reads an input file, mapping a missing file to E005.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: file not found: %s", ErrCodeNotFound, path))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeReadFailed+": failed to read "+path, err)
	}
	return data, nil
}
