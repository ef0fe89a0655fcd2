//go:build !windows
// +build !windows

package pefile

import "io/ioutil"

// Open reads the whole image into memory. Hosts other than Windows
// have no debuggee to share a mapping with and only use the static
// parser, so a plain read is sufficient there.
func Open(path string) (*File, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(data)
}
