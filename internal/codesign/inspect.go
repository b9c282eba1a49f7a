package codesign

import (
	"debug/macho"
	"errors"
	"io"
)

// Inspector decides whether a file is a native binary that needs a signature.
type Inspector interface {
	IsNative(path string) (bool, error)
}

// MachOInspector recognises thin and universal (fat) Mach-O files.
type MachOInspector struct{}

// IsNative reports whether path parses as Mach-O. Files in any other format
// return (false, nil).
func (MachOInspector) IsNative(path string) (bool, error) {
	if f, err := macho.OpenFat(path); err == nil {
		_ = f.Close()
		return true, nil
	} else if !isFormatError(err) {
		return false, err
	}

	f, err := macho.Open(path)
	if err == nil {
		_ = f.Close()
		return true, nil
	}
	if isFormatError(err) {
		return false, nil
	}
	return false, err
}

// isFormatError reports errors meaning "not Mach-O" rather than "unreadable".
// Files shorter than a header surface as EOF.
func isFormatError(err error) bool {
	var fe *macho.FormatError
	return errors.As(err, &fe) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
