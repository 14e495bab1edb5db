// Copyright 2016 Ross Light
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

// Package kdbcrypt derives keys for and decrypts data in the KeePass1 encryption scheme.
package kdbcrypt // import "zombiezen.com/go/kdbview/pkg/kdbcrypt"

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"io"

	"zombiezen.com/go/kdbview/pkg/cipherio"
	"zombiezen.com/go/kdbview/pkg/padding"
	"zombiezen.com/go/kdbview/pkg/twofish"
)

// ErrUnknownCipher is returned for a Cipher value outside the known set.
var ErrUnknownCipher = errors.New("kdbcrypt: unknown cipher")

// BlockSize is the block size in bytes of both KeePass1 ciphers.
const BlockSize = 16

// KeySize is the size in bytes of a computed key.
const KeySize = sha256.Size

// ProgressInterval is the number of transform rounds between progress reports.
const ProgressInterval = 250

// A ProgressFunc receives the number of completed transform rounds.
// It is called every ProgressInterval rounds and when the last round is
// done, on the goroutine that called Compute.  The final call always has
// done == total.
type ProgressFunc func(done, total uint32)

// Params specifies the decryption values.
type Params struct {
	Key    Key
	Cipher Cipher
	IV     [16]byte
}

// A Key is the set of parameters used to build the cipher key.
type Key struct {
	Password        []byte // optional
	KeyFileHash     []byte // must be nil or length 32
	MasterSeed      [16]byte
	TransformSeed   [32]byte
	TransformRounds uint32
}

// Compute derives the 32-byte cipher key.  The two halves of the
// password hash are transformed concurrently; progress may be nil.
func (k *Key) Compute(progress ProgressFunc) []byte {
	base := k.baseHash()
	c, err := aes.NewCipher(k.TransformSeed[:])
	if err != nil {
		// Only reachable with a bad key length, and the seed is a fixed 32 bytes.
		panic(err)
	}

	var tk [sha256.Size]byte
	done := make(chan struct{})
	go func() {
		transformKeyBlock(tk[aes.BlockSize:], base[aes.BlockSize:], c, k.TransformRounds, nil)
		close(done)
	}()
	transformKeyBlock(tk[:aes.BlockSize], base[:aes.BlockSize], c, k.TransformRounds, progress)
	<-done
	tk = sha256.Sum256(tk[:])

	sum := sha256.New()
	sum.Write(k.MasterSeed[:])
	sum.Write(tk[:])
	return sum.Sum(nil)
}

// baseHash returns the key's hash prior to encryption rounds.
func (k *Key) baseHash() [sha256.Size]byte {
	if len(k.KeyFileHash) == 0 {
		return sha256.Sum256(k.Password)
	}
	if len(k.Password) == 0 {
		var a [sha256.Size]byte
		copy(a[:], k.KeyFileHash)
		return a
	}
	h := sha256.New()
	p := sha256.Sum256(k.Password)
	h.Write(p[:])
	h.Write(k.KeyFileHash)
	var a [sha256.Size]byte
	h.Sum(a[:0])
	return a
}

// transformKeyBlock applies rounds of ECB encryption under c to src and
// stores the result in dst.
func transformKeyBlock(dst, src []byte, c cipher.Block, rounds uint32, progress ProgressFunc) {
	dst = dst[:c.BlockSize()]
	copy(dst, src)
	ecb := NewECBEncrypter(c)
	for i := uint32(0); i < rounds; i++ {
		ecb.CryptBlocks(dst, dst)
		if progress != nil && (i+1)%ProgressInterval == 0 {
			progress(i+1, rounds)
		}
	}
	if progress != nil && (rounds == 0 || rounds%ProgressInterval != 0) {
		progress(rounds, rounds)
	}
}

// Cipher is a cipher algorithm.
type Cipher int

// Available ciphers
const (
	RijndaelCipher Cipher = iota
	TwofishCipher
)

// String returns the cipher's name.
func (c Cipher) String() string {
	switch c {
	case RijndaelCipher:
		return "Rijndael"
	case TwofishCipher:
		return "Twofish"
	default:
		return "Cipher(?)"
	}
}

// Block returns the block cipher keyed with key.
func (c Cipher) Block(key []byte) (cipher.Block, error) {
	switch c {
	case RijndaelCipher:
		return aes.NewCipher(key)
	case TwofishCipher:
		return twofish.NewCipher(key)
	default:
		return nil, ErrUnknownCipher
	}
}

// NewDecrypter creates a new reader that decrypts and strips padding from r.
// It computes the key from params, reporting key progress to progress.
func NewDecrypter(r io.Reader, params *Params, progress ProgressFunc) (io.Reader, error) {
	if params.Cipher != RijndaelCipher && params.Cipher != TwofishCipher {
		return nil, ErrUnknownCipher
	}
	return NewKeyDecrypter(r, params.Cipher, params.Key.Compute(progress), params.IV)
}

// NewKeyDecrypter creates a new reader that decrypts r using an already
// computed key.
func NewKeyDecrypter(r io.Reader, c Cipher, key []byte, iv [16]byte) (io.Reader, error) {
	ciph, err := c.Block(key)
	if err != nil {
		return nil, err
	}
	d := cipher.NewCBCDecrypter(ciph, iv[:])
	return cipherio.NewReader(r, d, padding.PKCS7), nil
}

// NewEncrypter creates a new writer that encrypts to w.  Closing the
// new writer writes the final, padded block but does not close w.
func NewEncrypter(w io.Writer, params *Params) (io.WriteCloser, error) {
	ciph, err := params.Cipher.Block(params.Key.Compute(nil))
	if err != nil {
		return nil, err
	}
	e := cipher.NewCBCEncrypter(ciph, params.IV[:])
	return cipherio.NewWriter(w, e, padding.PKCS7), nil
}
