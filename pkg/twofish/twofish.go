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

// Package twofish implements Bruce Schneier's Twofish block cipher as
// described in "Twofish: A 128-Bit Block Cipher" (1998).
//
// The package provides a crypto/cipher.Block over 16-byte blocks with
// 128, 192, or 256-bit keys, which is what KeePass1 databases need.
package twofish // import "zombiezen.com/go/kdbview/pkg/twofish"

import (
	"encoding/binary"
	"math/bits"
	"strconv"
)

// BlockSize is the Twofish block size in bytes.
const BlockSize = 16

// Field polynomials.
const (
	mdsPolynomial = 0x169 // x^8 + x^6 + x^5 + x^3 + 1
	rsPolynomial  = 0x14d // x^8 + x^6 + x^3 + x^2 + 1
)

// A KeySizeError is returned for keys that are not 16, 24, or 32 bytes.
type KeySizeError int

func (k KeySizeError) Error() string {
	return "twofish: invalid key size " + strconv.Itoa(int(k))
}

// Cipher is a Twofish instance keyed with a particular key.
// It implements crypto/cipher.Block.
type Cipher struct {
	// s holds the key-dependent S-boxes already multiplied through the
	// MDS matrix, one table per input byte position.
	s [4][256]uint32
	// k holds the 8 whitening words followed by the 32 round subkeys.
	k [40]uint32
}

// NewCipher creates and returns a Cipher.
// The key argument should be 16, 24, or 32 bytes long.
func NewCipher(key []byte) (*Cipher, error) {
	n := len(key)
	if n != 16 && n != 24 && n != 32 {
		return nil, KeySizeError(n)
	}
	k := n / 8
	c := new(Cipher)

	// Subkeys: h over the even words Me and the odd words Mo.
	var me, mo [4][4]byte
	for i := 0; i < k; i++ {
		copy(me[i][:], key[8*i:8*i+4])
		copy(mo[i][:], key[8*i+4:8*i+8])
	}
	for i := byte(0); i < 20; i++ {
		a := h(2*i, &me, k)
		b := bits.RotateLeft32(h(2*i+1, &mo, k), 8)
		c.k[2*i] = a + b
		c.k[2*i+1] = bits.RotateLeft32(a+2*b, 9)
	}

	// S-box key words, applied in reverse order: the last word computed
	// from the key is the first one mixed in by g.
	var sw [4][4]byte
	for i := 0; i < k; i++ {
		sw[k-1-i] = rsMult(key[8*i : 8*i+8])
	}
	for x := 0; x < 256; x++ {
		b := byte(x)
		y := permute([4]byte{b, b, b, b}, &sw, k)
		for j := range c.s {
			c.s[j][x] = mdsColumnMult(y[j], j)
		}
	}
	return c, nil
}

// BlockSize returns the Twofish block size, 16 bytes.
func (c *Cipher) BlockSize() int { return BlockSize }

// Encrypt encrypts the 16-byte block in src and stores the result in dst.
// dst and src may overlap entirely.
func (c *Cipher) Encrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("twofish: input not full block")
	}
	if len(dst) < BlockSize {
		panic("twofish: output not full block")
	}
	r0 := binary.LittleEndian.Uint32(src[0:4]) ^ c.k[0]
	r1 := binary.LittleEndian.Uint32(src[4:8]) ^ c.k[1]
	r2 := binary.LittleEndian.Uint32(src[8:12]) ^ c.k[2]
	r3 := binary.LittleEndian.Uint32(src[12:16]) ^ c.k[3]

	// Two Feistel rounds per iteration, swapping halves implicitly.
	for i := 0; i < 8; i++ {
		k := c.k[8+4*i : 12+4*i]

		t0 := c.g(r0)
		t1 := c.g(bits.RotateLeft32(r1, 8))
		r2 = bits.RotateLeft32(r2^(t0+t1+k[0]), -1)
		r3 = bits.RotateLeft32(r3, 1) ^ (t0 + 2*t1 + k[1])

		t0 = c.g(r2)
		t1 = c.g(bits.RotateLeft32(r3, 8))
		r0 = bits.RotateLeft32(r0^(t0+t1+k[2]), -1)
		r1 = bits.RotateLeft32(r1, 1) ^ (t0 + 2*t1 + k[3])
	}

	// Undo the last swap and apply output whitening.
	binary.LittleEndian.PutUint32(dst[0:4], r2^c.k[4])
	binary.LittleEndian.PutUint32(dst[4:8], r3^c.k[5])
	binary.LittleEndian.PutUint32(dst[8:12], r0^c.k[6])
	binary.LittleEndian.PutUint32(dst[12:16], r1^c.k[7])
}

// Decrypt decrypts the 16-byte block in src and stores the result in dst.
// dst and src may overlap entirely.
func (c *Cipher) Decrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("twofish: input not full block")
	}
	if len(dst) < BlockSize {
		panic("twofish: output not full block")
	}
	r2 := binary.LittleEndian.Uint32(src[0:4]) ^ c.k[4]
	r3 := binary.LittleEndian.Uint32(src[4:8]) ^ c.k[5]
	r0 := binary.LittleEndian.Uint32(src[8:12]) ^ c.k[6]
	r1 := binary.LittleEndian.Uint32(src[12:16]) ^ c.k[7]

	for i := 7; i >= 0; i-- {
		k := c.k[8+4*i : 12+4*i]

		t0 := c.g(r2)
		t1 := c.g(bits.RotateLeft32(r3, 8))
		r0 = bits.RotateLeft32(r0, 1) ^ (t0 + t1 + k[2])
		r1 = bits.RotateLeft32(r1^(t0+2*t1+k[3]), -1)

		t0 = c.g(r0)
		t1 = c.g(bits.RotateLeft32(r1, 8))
		r2 = bits.RotateLeft32(r2, 1) ^ (t0 + t1 + k[0])
		r3 = bits.RotateLeft32(r3^(t0+2*t1+k[1]), -1)
	}

	binary.LittleEndian.PutUint32(dst[0:4], r0^c.k[0])
	binary.LittleEndian.PutUint32(dst[4:8], r1^c.k[1])
	binary.LittleEndian.PutUint32(dst[8:12], r2^c.k[2])
	binary.LittleEndian.PutUint32(dst[12:16], r3^c.k[3])
}

// g is the key-dependent round function, using the precomputed tables.
func (c *Cipher) g(x uint32) uint32 {
	return c.s[0][byte(x)] ^ c.s[1][byte(x>>8)] ^ c.s[2][byte(x>>16)] ^ c.s[3][byte(x>>24)]
}

// h computes the h function on the word whose four bytes are all x,
// keyed by the k words in l.
func h(x byte, l *[4][4]byte, k int) uint32 {
	y := permute([4]byte{x, x, x, x}, l, k)
	var z uint32
	for i := range y {
		z ^= mdsColumnMult(y[i], i)
	}
	return z
}

// permute applies the q0/q1 cascade of h, mixing in l[k-1] first and l[0] last.
func permute(y [4]byte, l *[4][4]byte, k int) [4]byte {
	switch k {
	case 4:
		y[0] = q1[y[0]] ^ l[3][0]
		y[1] = q0[y[1]] ^ l[3][1]
		y[2] = q0[y[2]] ^ l[3][2]
		y[3] = q1[y[3]] ^ l[3][3]
		fallthrough
	case 3:
		y[0] = q1[y[0]] ^ l[2][0]
		y[1] = q1[y[1]] ^ l[2][1]
		y[2] = q0[y[2]] ^ l[2][2]
		y[3] = q0[y[3]] ^ l[2][3]
	}
	y[0] = q1[q0[q0[y[0]]^l[1][0]]^l[0][0]]
	y[1] = q0[q0[q1[y[1]]^l[1][1]]^l[0][1]]
	y[2] = q1[q1[q0[y[2]]^l[1][2]]^l[0][2]]
	y[3] = q0[q1[q1[y[3]]^l[1][3]]^l[0][3]]
	return y
}

// rsMult multiplies an 8-byte key word by the Reed-Solomon matrix.
func rsMult(m []byte) [4]byte {
	var s [4]byte
	for row := range rs {
		for col, v := range rs[row] {
			s[row] ^= gfMult(m[col], v, rsPolynomial)
		}
	}
	return s
}

// mdsColumnMult returns the column col of the MDS matrix multiplied by in,
// packed little-endian.
//
//	01 EF 5B 5B
//	5B EF EF 01
//	EF 5B 01 EF
//	EF 01 EF 5B
func mdsColumnMult(in byte, col int) uint32 {
	m01 := uint32(in)
	m5b := uint32(gfMult(in, 0x5b, mdsPolynomial))
	mef := uint32(gfMult(in, 0xef, mdsPolynomial))
	switch col {
	case 0:
		return m01 | m5b<<8 | mef<<16 | mef<<24
	case 1:
		return mef | mef<<8 | m5b<<16 | m01<<24
	case 2:
		return m5b | mef<<8 | m01<<16 | mef<<24
	case 3:
		return m5b | m01<<8 | mef<<16 | m5b<<24
	}
	panic("twofish: bad MDS column")
}

// gfMult multiplies a and b in GF(2^8) modulo the polynomial p.
func gfMult(a, b byte, p uint32) byte {
	bb := uint32(b)
	var r uint32
	for ; a != 0; a >>= 1 {
		if a&1 != 0 {
			r ^= bb
		}
		bb <<= 1
		if bb&0x100 != 0 {
			bb ^= p
		}
	}
	return byte(r)
}
