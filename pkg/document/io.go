package document

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/hrhrng/clash-sub002/pkg/errors"
)

// =============================================================================
// Document Serialization API
// =============================================================================

// Marshal encodes d as indented JSON.
func Marshal(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes and validates a document.
func Unmarshal(data []byte) (*Document, error) {
	return Read(bytes.NewReader(data))
}

// Write encodes d as indented JSON to w.
func Write(w io.Writer, d *Document) error {
	return writeJSON(w, d)
}

// WriteFile writes d to path with 0644 permissions.
func WriteFile(path string, d *Document) error {
	return writeFile(path, d)
}

// Read decodes and validates a document from r.
func Read(r io.Reader) (*Document, error) {
	var d Document
	if err := readJSON(r, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ReadFile reads and validates the document at path.
func ReadFile(path string) (*Document, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// =============================================================================
// PatchSet Serialization API
// =============================================================================

// WritePatchSet encodes ps as indented JSON to w.
func WritePatchSet(w io.Writer, ps PatchSet) error {
	return writeJSON(w, ps)
}

// WritePatchSetFile writes ps to path with 0644 permissions.
func WritePatchSetFile(path string, ps PatchSet) error {
	return writeFile(path, ps)
}

// ReadPatchSet decodes a patch set from r.
func ReadPatchSet(r io.Reader) (PatchSet, error) {
	var ps PatchSet
	err := readJSON(r, &ps)
	return ps, err
}

// ReadPatchSetFile reads the patch set at path.
func ReadPatchSetFile(path string) (PatchSet, error) {
	f, err := open(path)
	if err != nil {
		return PatchSet{}, err
	}
	defer f.Close()
	return ReadPatchSet(f)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open %s", path)
	}
	return f, nil
}

func writeFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create %s", path)
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "close %s", path)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode")
	}
	return nil
}

func readJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode")
	}
	return nil
}
