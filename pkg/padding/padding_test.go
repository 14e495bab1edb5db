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

package padding

import (
	"bytes"
	"testing"
)

var stripTests = []struct {
	padded    []byte
	blockSize int
	want      []byte
	err       error
}{
	{
		padded:    repeat(16, 16),
		blockSize: 16,
		want:      []byte{},
	},
	{
		padded:    append([]byte("Meta-Info"), repeat(7, 7)...),
		blockSize: 16,
		want:      []byte("Meta-Info"),
	},
	{
		padded:    append([]byte("fifteen bytes!!"), 0x01),
		blockSize: 16,
		want:      []byte("fifteen bytes!!"),
	},
	{
		padded:    append(repeat(0xaa, 16), repeat(16, 16)...),
		blockSize: 16,
		want:      repeat(0xaa, 16),
	},
	{
		padded:    []byte{},
		blockSize: 16,
		err:       ErrDataSize,
	},
	{
		padded:    repeat(1, 15),
		blockSize: 16,
		err:       ErrDataSize,
	},
	{
		padded:    append(repeat(0, 15), 0),
		blockSize: 16,
		err:       ErrWrongPadding,
	},
	{
		padded:    append(repeat(0, 15), 17),
		blockSize: 16,
		err:       ErrWrongPadding,
	},
	{
		padded:    append(repeat(0, 13), 3, 2, 3),
		blockSize: 16,
		err:       ErrWrongPadding,
	},
	{
		padded:    []byte{0x01},
		blockSize: 1,
		err:       ErrBadBlockSize,
	},
	{
		padded:    make([]byte, 256),
		blockSize: 256,
		err:       ErrBadBlockSize,
	},
}

func TestPKCS7_Strip(t *testing.T) {
	for _, test := range stripTests {
		in := append([]byte(nil), test.padded...)
		out, err := PKCS7.Strip(in, test.blockSize)
		if err != test.err {
			t.Errorf("PKCS7.Strip(%v, %d) error = %v; want %v", test.padded, test.blockSize, err, test.err)
			continue
		}
		want := test.want
		if test.err != nil {
			want = test.padded
		}
		if !bytes.Equal(out, want) {
			t.Errorf("PKCS7.Strip(%v, %d) = %v; want %v", test.padded, test.blockSize, out, want)
		}
	}
}

func TestPKCS7_PadThenStrip(t *testing.T) {
	for _, blockSize := range []int{2, 8, 16, 255} {
		for n := 0; n <= 2*blockSize; n++ {
			data := repeat(0x5a, n)
			padded := PKCS7.Pad(append([]byte(nil), data...), blockSize)
			if len(padded)%blockSize != 0 || len(padded) <= n {
				t.Errorf("len(PKCS7.Pad(%d bytes, %d)) = %d", n, blockSize, len(padded))
				continue
			}
			out, err := PKCS7.Strip(padded, blockSize)
			if err != nil {
				t.Errorf("PKCS7.Strip(PKCS7.Pad(%d bytes, %d)) error: %v", n, blockSize, err)
				continue
			}
			if !bytes.Equal(out, data) {
				t.Errorf("PKCS7.Strip(PKCS7.Pad(%d bytes, %d)) = %v; want %v", n, blockSize, out, data)
			}
		}
	}
}

func repeat(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}
