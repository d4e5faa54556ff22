// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Registry construction
// ============================================================

func TestFTdx10Registry(t *testing.T) {
	t.Parallel()

	reg := FTdx10()

	assert.Len(t, reg.Commands(), 7)
	assert.Equal(t, []string{"BI", "CO02", "KR", "KS", "PC"}, reg.Queryable())

	ks, ok := reg.Lookup("KS")
	require.True(t, ok)
	assert.Equal(t, KindRange, ks.Kind())
	assert.Equal(t, "Keyer speed", ks.Description())
	assert.Equal(t, 3, ks.Width())
	r, ok := ks.Range()
	require.True(t, ok)
	assert.Equal(t, Range{Min: 4, Max: 60}, r)

	bs, ok := reg.Lookup("BS")
	require.True(t, ok)
	assert.Equal(t, KindNone, bs.Kind())
	assert.False(t, bs.Queryable())
	assert.Nil(t, bs.Reply())

	_, ok = reg.Lookup("XX")
	assert.False(t, ok)
}

func TestNewRegistry_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		defs []Definition
	}{
		{
			name: "duplicate code",
			defs: []Definition{ActionCommand("ZI", "Zero in"), ActionCommand("ZI", "again")},
		},
		{
			name: "code too short",
			defs: []Definition{ActionCommand("Z", "short")},
		},
		{
			name: "code too long",
			defs: []Definition{ActionCommand("ABCDEF", "long")},
		},
		{
			name: "lowercase code",
			defs: []Definition{ActionCommand("ks", "lower")},
		},
		{
			name: "boolean without reply",
			defs: []Definition{BooleanCommand("BI", "Break-in", "1", "0", 0, "")},
		},
		{
			name: "boolean with equal encodings",
			defs: []Definition{BooleanCommand("BI", "Break-in", "1", "01", 2, "BI[0-9][0-9];")},
		},
		{
			name: "range reversed",
			defs: []Definition{RangeCommand("KS", "Keyer speed", 60, 4, 3, "KS0[0-6][0-9];")},
		},
		{
			name: "range without width",
			defs: []Definition{RangeCommand("KS", "Keyer speed", 4, 60, 0, "KS0[0-6][0-9];")},
		},
		{
			name: "range max wider than width",
			defs: []Definition{RangeCommand("PC", "Power", 5, 100, 2, "PC[0-9][0-9];")},
		},
		{
			name: "action with reply",
			defs: []Definition{{Code: "ZI", Description: "Zero in", Reply: "ZI[0-9];"}},
		},
		{
			name: "reply for another code",
			defs: []Definition{BooleanCommand("KR", "Keyer", "1", "0", 0, "BI[0-9];")},
		},
		{
			name: "broken reply",
			defs: []Definition{BooleanCommand("KR", "Keyer", "1", "0", 0, "KR[0-9]")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRegistry(tt.defs...)
			assert.Error(t, err)
		})
	}
}

func TestMustNewRegistry_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustNewRegistry(ActionCommand("ZI", "a"), ActionCommand("ZI", "b"))
	})
}

// ============================================================
// Encoding helpers
// ============================================================

func TestCommand_Pad(t *testing.T) {
	t.Parallel()

	reg := FTdx10()
	co, _ := reg.Lookup("CO02")
	bi, _ := reg.Lookup("BI")
	ks, _ := reg.Lookup("KS")

	assert.Equal(t, "0001", co.Pad("1"))
	assert.Equal(t, "0000", co.Pad("0000"))
	assert.Equal(t, "1", bi.Pad("1"), "no width means no padding")
	assert.Equal(t, "007", ks.Pad("7"))
	assert.Equal(t, "abc", ks.Pad("abc"), "non-numeric literals are left alone")
	assert.Equal(t, "060", ks.FormatInt(60))
}

func TestCommand_ParseReply(t *testing.T) {
	t.Parallel()

	reg := FTdx10()
	ks, _ := reg.Lookup("KS")
	co, _ := reg.Lookup("CO02")
	zi, _ := reg.Lookup("ZI")

	value, ok := ks.ParseReply([]byte("KS045;"))
	require.True(t, ok)
	assert.Equal(t, "045", value)

	_, ok = ks.ParseReply([]byte("KS999;"))
	assert.False(t, ok)

	value, ok = co.ParseReply([]byte("BI1;CO020001;KR0;"))
	require.True(t, ok)
	assert.Equal(t, "0001", value)

	_, ok = zi.ParseReply([]byte("ZI0;"))
	assert.False(t, ok, "action commands have no reply")
}

func TestRange_Clamp(t *testing.T) {
	t.Parallel()

	r := Range{Min: 4, Max: 60}
	assert.Equal(t, 4, r.Clamp(-3))
	assert.Equal(t, 4, r.Clamp(4))
	assert.Equal(t, 33, r.Clamp(33))
	assert.Equal(t, 60, r.Clamp(61))
	assert.True(t, r.Contains(60))
	assert.False(t, r.Contains(3))
}

func TestValueKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", KindNone.String())
	assert.Equal(t, "boolean", KindBoolean.String())
	assert.Equal(t, "range", KindRange.String())
	assert.Equal(t, "ValueKind(9)", ValueKind(9).String())
}

func TestRegistry_Identify(t *testing.T) {
	t.Parallel()

	reg := FTdx10()

	cmd, ok := reg.Identify([]byte("PC050;"))
	require.True(t, ok)
	assert.Equal(t, "PC", cmd.Code())

	_, ok = reg.Identify([]byte("BS05;"))
	assert.False(t, ok, "action commands are never identified")
}
