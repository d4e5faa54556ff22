// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cat

import (
	"fmt"
	"strings"
)

// Invocation is one logical command: a code and an optional value. An empty
// value makes it a query.
type Invocation struct {
	Code  string
	Value string
}

// Query returns the query form of code
func Query(code string) Invocation {
	return Invocation{Code: code}
}

// Set returns an invocation of code carrying value
func Set(code, value string) Invocation {
	return Invocation{Code: code, Value: value}
}

// IsQuery reports whether the invocation carries no value
func (i Invocation) IsQuery() bool {
	return i.Value == ""
}

// Frame returns the wire frame for the invocation
func (i Invocation) Frame() string {
	return i.Code + i.Value + string(Terminator)
}

func (i Invocation) String() string {
	return i.Frame()
}

// Encode validates the invocations and concatenates their frames so they can
// go out in a single write.
func Encode(invs ...Invocation) ([]byte, error) {
	if len(invs) == 0 {
		return nil, fmt.Errorf("nothing to encode")
	}

	var b strings.Builder
	for _, inv := range invs {
		if err := validateCode(inv.Code); err != nil {
			return nil, err
		}
		for j := 0; j < len(inv.Value); j++ {
			if !isDigit(inv.Value[j]) {
				return nil, fmt.Errorf("%s: value %q is not numeric", inv.Code, inv.Value)
			}
		}
		b.WriteString(inv.Frame())
	}

	if b.Len() > MaxFrameSize*len(invs) {
		return nil, fmt.Errorf("encoded batch too large: %d bytes", b.Len())
	}

	return []byte(b.String()), nil
}

// MustEncode is like Encode but panics on error
func MustEncode(invs ...Invocation) []byte {
	data, err := Encode(invs...)
	if err != nil {
		panic(fmt.Sprintf("cat: encode error: %v", err))
	}
	return data
}
