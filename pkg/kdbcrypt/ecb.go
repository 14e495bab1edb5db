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

package kdbcrypt

import "crypto/cipher"

type ecbEncrypter struct {
	b cipher.Block
}

// NewECBEncrypter returns a BlockMode which encrypts each block
// independently with b.
func NewECBEncrypter(b cipher.Block) cipher.BlockMode {
	return &ecbEncrypter{b: b}
}

func (x *ecbEncrypter) BlockSize() int { return x.b.BlockSize() }

func (x *ecbEncrypter) CryptBlocks(dst, src []byte) {
	bs := x.b.BlockSize()
	if len(src)%bs != 0 {
		panic("kdbcrypt: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("kdbcrypt: output smaller than input")
	}
	for len(src) > 0 {
		x.b.Encrypt(dst[:bs], src[:bs])
		src = src[bs:]
		dst = dst[bs:]
	}
}
