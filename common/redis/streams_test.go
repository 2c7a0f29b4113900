package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdder struct {
	calls []*redis.XAddArgs
}

func (f *fakeAdder) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("1-0")
	return cmd
}

func TestFormatStreamValue(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{"x", "x"},
		{[]byte("y"), "y"},
		{42, "42"},
		{int64(-7), "-7"},
		{0.27, "0.27"},
		{true, "true"},
		{map[string]int{"a": 1}, `{"a":1}`},
	}
	for _, c := range cases {
		got, err := FormatStreamValue(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestPublishJSONToStream_TrimsApprox(t *testing.T) {
	f := &fakeAdder{}

	id, err := PublishJSONToStream(context.Background(), f, "drowsy:telemetry:stream", 100, "telemetry", map[string]any{"ear": 0.27})
	require.NoError(t, err)
	assert.Equal(t, "1-0", id)

	require.Len(t, f.calls, 1)
	args := f.calls[0]
	assert.Equal(t, "drowsy:telemetry:stream", args.Stream)
	assert.Equal(t, int64(100), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]interface{})
	assert.Equal(t, "telemetry", values["kind"])
	var decoded map[string]float64
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &decoded))
	assert.Equal(t, 0.27, decoded["ear"])
}

func TestPublishToStream_NoTrimWhenUnbounded(t *testing.T) {
	f := &fakeAdder{}

	_, err := PublishToStream(context.Background(), f, "s", 0, map[string]interface{}{"k": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.calls[0].MaxLen)
	assert.False(t, f.calls[0].Approx)
}
