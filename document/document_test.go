package document

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_InlineBase64(t *testing.T) {
	p := InlineBase64("JVBERi0x")

	got, err := p.Bytes()

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1"), got)
	assert.Equal(t, KindInlineBase64, p.Kind())
	assert.False(t, p.IsZero())
}

func TestPayload_RawBytes(t *testing.T) {
	raw := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}
	p := RawBytes(raw)

	got, err := p.Bytes()

	require.NoError(t, err)
	assert.Equal(t, raw, got)
	assert.Equal(t, KindRawBytes, p.Kind())
}

func TestPayload_IsZero(t *testing.T) {
	assert.True(t, Payload{}.IsZero())
	assert.True(t, InlineBase64("").IsZero())
	assert.True(t, RawBytes(nil).IsZero())
	assert.True(t, RawBytes([]byte{}).IsZero())
	assert.False(t, RawBytes([]byte{0}).IsZero())
}

func TestPayload_BytesOnEmpty(t *testing.T) {
	_, err := Payload{}.Bytes()

	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestDecodeBase64_MatchesStandardDecoding(t *testing.T) {
	samples := [][]byte{
		[]byte("%PDF-1.7"),
		{0x00},
		{0xfb, 0xff, 0xfe},
		[]byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj"),
	}

	for _, sample := range samples {
		encoded := base64.StdEncoding.EncodeToString(sample)
		got, err := DecodeBase64(encoded)
		require.NoError(t, err, encoded)
		assert.Equal(t, sample, got, encoded)
	}
}

func TestDecodeBase64_Lenient(t *testing.T) {
	want := []byte{0xfb, 0xff, 0xfe, 0x25}

	cases := []string{
		"+//+JQ==",
		"+//+JQ",
		"-__-JQ==",
		" +//+\r\nJQ==\n",
	}

	for _, in := range cases {
		got, err := DecodeBase64(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestDecodeBase64_Invalid(t *testing.T) {
	for _, in := range []string{"J", "JVBE*i0x", "ab==cd"} {
		_, err := DecodeBase64(in)
		assert.Error(t, err, in)
	}
}

func TestPayload_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		name string
		json string
		kind Kind
		want []byte
	}{
		{name: "string", json: `"JVBERi0x"`, kind: KindInlineBase64, want: []byte("%PDF-1")},
		{name: "node buffer", json: `{"type":"Buffer","data":[37,80,68,70]}`, kind: KindRawBytes, want: []byte("%PDF")},
		{name: "byte array", json: `[37, 80, 68, 70, 0]`, kind: KindRawBytes, want: []byte("%PDF\x00")},
		{name: "null", json: `null`, kind: KindNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p Payload
			require.NoError(t, json.Unmarshal([]byte(tc.json), &p))
			assert.Equal(t, tc.kind, p.Kind())
			if tc.want != nil {
				got, err := p.Bytes()
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestPayload_UnmarshalJSON_Rejects(t *testing.T) {
	for _, in := range []string{
		`42`,
		`true`,
		`{"type":"Blob","data":[1]}`,
		`[256]`,
		`[-1]`,
		`{"type":"Buffer","data":"AAA"}`,
	} {
		var p Payload
		assert.Error(t, json.Unmarshal([]byte(in), &p), in)
	}
}

func TestPayload_InsideStruct(t *testing.T) {
	var req struct {
		PDF Payload `json:"pdf"`
		To  string  `json:"to"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"to":"a@b.com"}`), &req))
	assert.True(t, req.PDF.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"pdf":"JVBERi0x","to":"a@b.com"}`), &req))
	assert.Equal(t, KindInlineBase64, req.PDF.Kind())
}

func TestPayload_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(RawBytes([]byte("%PDF-1")))
	require.NoError(t, err)
	assert.JSONEq(t, `"JVBERi0x"`, string(data))

	var back Payload
	require.NoError(t, json.Unmarshal(data, &back))
	got, err := back.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1"), got)

	data, err = json.Marshal(Payload{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestStatusError(t *testing.T) {
	assert.Equal(t, "Failed to get PDF: 404", (&StatusError{Code: 404}).Error())
}

func TestRouter(t *testing.T) {
	var hits []string
	recorder := func(name string) Fetcher {
		return FetcherFunc(func(_ context.Context, rawURL string) ([]byte, error) {
			hits = append(hits, name+" "+rawURL)
			return []byte(name), nil
		})
	}

	router := NewRouter(recorder("http")).Handle("S3", recorder("s3"))
	ctx := context.Background()

	for _, u := range []string{"s3://tickets/a.pdf", "S3://tickets/b.pdf", "https://x.test/c.pdf", "ftp://x.test/d.pdf", "no-scheme"} {
		_, err := router.Fetch(ctx, u)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"s3 s3://tickets/a.pdf",
		"s3 S3://tickets/b.pdf",
		"http https://x.test/c.pdf",
		"http ftp://x.test/d.pdf",
		"http no-scheme",
	}, hits)
}
