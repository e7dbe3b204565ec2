// Copyright (c) 2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package cache persists directory snapshots (users and channels) to disk
// as encrypted JSONL files, so that the server does not have to run a full
// listing on every start.  Missing or unreadable files are not an error to
// the caller: the directory simply performs a full fetch.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rusq/encio"
)

// container is the interface to operate with the snapshot container file.
// The production container encrypts the data (workspace directories carry
// email addresses and DM names), tests substitute a plaintext one.
type container interface {
	Create(filename string) (io.WriteCloser, error)
	Open(filename string) (io.ReadCloser, error)
}

// encryptedFile is the encrypted file container.
type encryptedFile struct{}

func (encryptedFile) Open(filename string) (io.ReadCloser, error) {
	return encio.Open(filename)
}

func (encryptedFile) Create(filename string) (io.WriteCloser, error) {
	return encio.Create(filename)
}

// filer is the container used by Load and Save.  It is a variable to allow
// tests to substitute a plaintext container.
var filer container = encryptedFile{}

var ErrEmpty = errors.New("empty cache file")

// Save writes tt to filename as a stream of JSON objects, one per line,
// replacing the previous contents.
func Save[T any](filename string, tt []T) error {
	f, err := filer.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer f.Close()
	if err := writeSlice(f, tt); err != nil {
		return fmt.Errorf("file: %s, error: %w", filename, err)
	}
	return nil
}

// Load reads the slice of T from the JSONL file created by Save.
func Load[T any](filename string) ([]T, error) {
	if err := checkCacheFile(filename); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	f, err := filer.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()
	tt, err := read[T](f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data from %s: %w", filename, err)
	}
	return tt, nil
}

func writeSlice[T any](w io.Writer, tt []T) error {
	enc := json.NewEncoder(w)
	for _, t := range tt {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to encode data: %w", err)
		}
	}
	return nil
}

// read reads the data from the reader r until it reaches the EOF and
// returns it as a slice of T.
func read[T any](r io.Reader) ([]T, error) {
	dec := json.NewDecoder(r)
	tt := make([]T, 0, 500) // 500 T. reasonable?
	for {
		var t T
		if err := dec.Decode(&t); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		tt = append(tt, t)
	}
	return tt, nil
}

// checkCacheFile checks that the cache file exists and is not empty.
func checkCacheFile(filename string) error {
	if filename == "" {
		return errors.New("no cache filename")
	}
	fi, err := os.Stat(filename)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return errors.New("cache file is a directory")
	}
	if fi.Size() == 0 {
		return ErrEmpty
	}
	return nil
}
