package iter

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calfront/calfront/internal/idl"
)

type elem struct {
	value int
}

func TestLookahead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	numValues := 10

	for x := 0; x < numValues; x = x + 1 {
		t.Run(fmt.Sprintf("LA(%d)", x), func(t *testing.T) {
			elems := make([]*elem, 0, numValues)
			for y := 0; y < numValues; y = y + 1 {
				elems = append(elems, &elem{value: y})
			}
			iter := NewSlice(elems)
			look := NewLookahead(iter, uint8(x))
			for y := 0; y < numValues; y = y + 1 {
				val := look.Next(ctx)
				require.NotNil(t, val)
				require.True(t, val.IsPresent())
				expected := y
				require.Equal(t, expected, val.Value().value)

				expectedPeek := y + x
				expectedPeekOK := expectedPeek < numValues
				peek := look.Lookahead(ctx, uint8(x))
				if expectedPeekOK {
					require.True(t, peek.IsPresent())
					require.Equal(t, expectedPeek, peek.Value().value)
				} else {
					require.False(t, peek.IsPresent())
				}
			}
			require.Nil(t, look.Close(ctx))
		})
	}
}

func TestLookaheadFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	numValues := 10
	filter := idl.Filter[*elem](FilterFunc[*elem](func(ctx context.Context, val *elem) bool {
		return val.value%2 == 0
	}))
	for x := 0; x < numValues/2; x = x + 1 {
		t.Run(fmt.Sprintf("LA(%d)", x), func(t *testing.T) {
			elems := make([]*elem, 0, numValues)
			for y := 0; y < numValues; y = y + 1 {
				elems = append(elems, &elem{value: y})
			}
			iter := NewSlice(elems)
			iter = NewIteratorFilter(iter, filter)
			look := NewLookahead(iter, uint8(x))
			for y := 0; y < numValues/2; y = y + 2 {
				val := look.Next(ctx)
				require.NotNil(t, val)
				require.True(t, val.IsPresent())
				expected := y
				require.Equal(t, expected, val.Value().value)

				expectedPeek := y + (x * 2)
				expectedPeekOK := expectedPeek < numValues
				peek := look.Lookahead(ctx, uint8(x))
				if expectedPeekOK {
					require.True(t, peek.IsPresent())
					require.Equal(t, expectedPeek, peek.Value().value)
				} else {
					require.False(t, peek.IsPresent())
				}
			}
			require.Nil(t, look.Close(ctx))
		})
	}
}

var benchEscapeValue *elem
var benchEscapeValuePeek *elem

func BenchmarkLookahead(b *testing.B) {
	ctx := context.Background()
	sliceSize := 1000
	slice := make([]*elem, sliceSize)
	for x := 0; x < sliceSize; x = x + 1 {
		slice[x] = &elem{value: x}
	}
	iter := NewSlice(slice)
	look := NewLookahead(iter, 1)

	var loopEscapeValue *elem
	var loopEscapeValuePeek *elem
	b.ResetTimer()
	for n := 0; n < b.N; n = n + 1 {
		for x := 0; x < sliceSize; x = x + 1 {
			loopEscapeValue = look.Next(ctx).Value()
			loopEscapeValuePeek = look.Lookahead(ctx, 1).Value()
		}
	}
	benchEscapeValue = loopEscapeValue
	benchEscapeValuePeek = loopEscapeValuePeek
}

func TestUnicodeString(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	points, err := Collect(ctx, NewUnicodeString("Ab€\n"))
	require.NoError(t, err)
	require.Equal(t, []idl.CodePoint{'A', 'b', '€', '\n'}, points)

	look := NewLookahead(NewUnicodeString("xy"), 2)
	require.Equal(t, idl.CodePoint('x'), look.Lookahead(ctx, 0).Value())
	require.Equal(t, idl.CodePoint('y'), look.Lookahead(ctx, 1).Value())
	require.False(t, look.Lookahead(ctx, 2).IsPresent())
	require.Equal(t, idl.CodePoint('x'), look.Next(ctx).Value())
	require.Equal(t, idl.CodePoint('y'), look.Lookahead(ctx, 1).Value())
	require.False(t, look.Lookahead(ctx, 2).IsPresent())
}

type bytesBody struct {
	b []byte
}

func (f *bytesBody) Read(ctx context.Context, size int32) ([]byte, error) {
	if len(f.b) == 0 {
		return nil, io.EOF
	}
	n := min(int(size), len(f.b))
	out := f.b[:n]
	f.b = f.b[n:]
	return out, nil
}

func (f *bytesBody) Close(ctx context.Context) error {
	return nil
}

func TestUnicodeInvalidBytes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	source := "a\xffé\xc3"
	for name, it := range map[string]idl.Iterator[idl.CodePoint]{
		"string": NewUnicodeString(source),
		"body":   NewUnicodeFileBody(&bytesBody{b: []byte(source)}),
	} {
		points, err := Collect(ctx, it)
		require.NoError(t, err, name)
		require.Len(t, points, 4, name)
		require.Equal(t, idl.CodePoint('a'), points[0], name)
		require.True(t, IsInvalidByte(points[1]), name)
		require.Equal(t, idl.CodePoint('é'), points[2], name)
		require.True(t, IsInvalidByte(points[3]), name)
		require.False(t, IsInvalidByte(points[2]), name)
	}
}

func TestCollectFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	odd := idl.Filter[int](FilterFunc[int](func(ctx context.Context, v int) bool {
		return v%2 == 1
	}))
	values, err := Collect(ctx, NewIteratorFilter(NewSlice([]int{1, 2, 3, 4, 5}), odd))
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 5}, values)
}
