// Copyright 2016 The Sandpass Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cipherio provides I/O interfaces for block cipher streams.
package cipherio // import "zombiezen.com/go/kdbview/pkg/cipherio"

import (
	"crypto/cipher"
	"errors"
	"io"

	"zombiezen.com/go/kdbview/pkg/padding"
)

const readBufferSize = 4096

type reader struct {
	r    io.Reader
	mode cipher.BlockMode
	pad  padding.Padding

	rbuf    []byte
	pending []byte // ciphertext not yet decrypted
	out     []byte // plaintext not yet returned
	err     error
}

// NewReader creates a new reader that decrypts r with mode and strips
// padding from the end of the stream.  The final block is held back until
// r reports io.EOF.  A stream that is empty or does not end on a block
// boundary fails with io.ErrUnexpectedEOF; bad padding fails with the
// error from pad.
func NewReader(r io.Reader, mode cipher.BlockMode, pad padding.Padding) io.Reader {
	bufSize := readBufferSize
	if bs := mode.BlockSize(); bs > bufSize {
		bufSize = bs
	}
	return &reader{
		r:    r,
		mode: mode,
		pad:  pad,
		rbuf: make([]byte, bufSize),
	}
}

func (r *reader) Read(p []byte) (n int, err error) {
	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.fill()
	}
	n = copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

// fill reads more ciphertext and decrypts every complete block except the
// last one, which may carry padding.
func (r *reader) fill() {
	n, err := r.r.Read(r.rbuf)
	r.pending = append(r.pending, r.rbuf[:n]...)
	if err == io.EOF {
		r.finish()
		return
	}
	if err != nil {
		r.err = err
		return
	}
	bs := r.mode.BlockSize()
	ready := len(r.pending) - bs
	ready -= ready % bs
	if ready > 0 {
		r.decrypt(ready)
	}
}

func (r *reader) finish() {
	bs := r.mode.BlockSize()
	if len(r.pending) == 0 || len(r.pending)%bs != 0 {
		r.err = io.ErrUnexpectedEOF
		return
	}
	last := r.pending
	r.mode.CryptBlocks(last, last)
	plain, err := r.pad.Strip(last, bs)
	if err != nil {
		r.err = err
		return
	}
	r.out = plain
	r.pending = nil
	r.err = io.EOF
}

func (r *reader) decrypt(n int) {
	chunk := r.pending[:n]
	r.mode.CryptBlocks(chunk, chunk)
	r.out = append([]byte(nil), chunk...)
	r.pending = append(r.pending[:0], r.pending[n:]...)
}

type writer struct {
	w    io.Writer
	mode cipher.BlockMode
	pad  padding.Padding

	buf []byte // plaintext shorter than one block
	err error
}

// NewWriter creates a new writer that encrypts its input with mode and
// writes to w.  Closing the writer pads and writes the final block but
// does not close w.
func NewWriter(w io.Writer, mode cipher.BlockMode, pad padding.Padding) io.WriteCloser {
	return &writer{
		w:    w,
		mode: mode,
		pad:  pad,
		buf:  make([]byte, 0, readBufferSize),
	}
}

func (w *writer) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	w.buf = append(w.buf, p...)
	bs := w.mode.BlockSize()
	full := len(w.buf) - len(w.buf)%bs
	if full == 0 {
		return len(p), nil
	}
	chunk := w.buf[:full]
	w.mode.CryptBlocks(chunk, chunk)
	if _, err := w.w.Write(chunk); err != nil {
		w.err = err
		return 0, err
	}
	w.buf = append(w.buf[:0], w.buf[full:]...)
	return len(p), nil
}

func (w *writer) Close() error {
	if w.err == errClosed {
		return nil
	} else if w.err != nil {
		return w.err
	}
	last := w.pad.Pad(w.buf, w.mode.BlockSize())
	w.mode.CryptBlocks(last, last)
	_, err := w.w.Write(last)
	w.err = errClosed
	return err
}

var errClosed = errors.New("cipherio: write on closed writer")
