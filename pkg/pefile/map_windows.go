package pefile

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Open memory-maps the image at path read-only and parses it. The
// returned File owns the mapping; Close releases it.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		fh.Close()
		return nil, fmt.Errorf("pefile: %s is empty", path)
	}

	mapping, err := windows.CreateFileMapping(windows.Handle(fh.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		fh.Close()
		return nil, err
	}
	view, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, 0)
	if err != nil {
		windows.CloseHandle(mapping)
		fh.Close()
		return nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(view)), int(size))
	f, err := New(data)
	if err != nil {
		windows.UnmapViewOfFile(view)
		windows.CloseHandle(mapping)
		fh.Close()
		return nil, err
	}
	f.closer = func() error {
		err := windows.UnmapViewOfFile(view)
		windows.CloseHandle(mapping)
		fh.Close()
		return err
	}
	return f, nil
}
