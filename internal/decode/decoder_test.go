package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sift-ai/sift/internal/extract"
)

func strict() *Decoder {
	return New(extract.Config{Start: "x"})
}

func TestDecodeCallStyle(t *testing.T) {
	rec, perr := strict().Decode(`get_weather(location='Riyadh, Saudi Arabia', temp_unit="celsius", count=5)`)
	require.Nil(t, perr)

	assert.Equal(t, "get_weather", rec.Name)
	assert.Equal(t, extract.StringValue("Riyadh, Saudi Arabia"), rec.Args["location"])
	assert.Equal(t, extract.StringValue("celsius"), rec.Args["temp_unit"])
	assert.Equal(t, extract.NumberValue(5), rec.Args["count"])
	assert.Empty(t, rec.Notes)
}

func TestDecodePrintWrapper(t *testing.T) {
	rec, perr := strict().Decode(`print(get_weather(location='Riyadh'))`)
	require.Nil(t, perr)
	assert.Equal(t, "get_weather", rec.Name)
	assert.Equal(t, extract.StringValue("Riyadh"), rec.Args["location"])
}

func TestDecodeObjectStyle(t *testing.T) {
	rec, perr := strict().Decode(`search{"query": "go generics", "limit": 10}`)
	require.Nil(t, perr)
	assert.Equal(t, "search", rec.Name)
	assert.Equal(t, extract.StringValue("go generics"), rec.Args["query"])
	assert.Equal(t, extract.NumberValue(10), rec.Args["limit"])
}

func TestDecodeBareObjectForm(t *testing.T) {
	rec, perr := strict().Decode(`{"name": "ping", "args": {"host": "example.com", "count": 3}}`)
	require.Nil(t, perr)
	assert.Equal(t, "ping", rec.Name)
	assert.Equal(t, extract.StringValue("example.com"), rec.Args["host"])
	assert.Equal(t, extract.NumberValue(3), rec.Args["count"])
}

func TestDecodeBareObjectFormWithoutName(t *testing.T) {
	_, perr := strict().Decode(`{"args": {"host": "example.com"}}`)
	require.NotNil(t, perr)
	assert.Equal(t, extract.ReasonMissingName, perr.Reason)
}

func TestDecodeBareTokens(t *testing.T) {
	rec, perr := strict().Decode(`configure(debug=True, retries=3, mode=fast, extra=None)`)
	require.Nil(t, perr)
	assert.Equal(t, extract.BoolValue(true), rec.Args["debug"])
	assert.Equal(t, extract.NumberValue(3), rec.Args["retries"])
	assert.Equal(t, extract.StringValue("fast"), rec.Args["mode"])
	assert.Equal(t, extract.NullValue(), rec.Args["extra"])
}

func TestDecodeNestedValues(t *testing.T) {
	rec, perr := strict().Decode(`plot(series=[1, 2.5, -3e2], opts={"grid": true, "title": null})`)
	require.Nil(t, perr)

	assert.Equal(t, extract.ArrayValue([]extract.Value{
		extract.NumberValue(1),
		extract.NumberValue(2.5),
		extract.NumberValue(-300),
	}), rec.Args["series"])

	opts := rec.Args["opts"]
	require.Equal(t, extract.ValueObject, opts.Kind)
	assert.Equal(t, extract.BoolValue(true), opts.Obj["grid"])
	assert.Equal(t, extract.NullValue(), opts.Obj["title"])
}

func TestDecodeNoArguments(t *testing.T) {
	rec, perr := strict().Decode(`refresh()`)
	require.Nil(t, perr)
	assert.Equal(t, "refresh", rec.Name)
	assert.Empty(t, rec.Args)

	rec, perr = strict().Decode(`refresh`)
	require.Nil(t, perr)
	assert.Equal(t, "refresh", rec.Name)
	assert.Empty(t, rec.Args)
}

func TestDecodeMissingName(t *testing.T) {
	for _, body := range []string{"", "   ", `(a=1)`} {
		_, perr := strict().Decode(body)
		require.NotNil(t, perr, "body %q", body)
		assert.Equal(t, extract.ReasonMissingName, perr.Reason, "body %q", body)
	}
}

func TestDecodeInvalidName(t *testing.T) {
	_, perr := strict().Decode(`bad name(a=1)`)
	require.NotNil(t, perr)
	assert.Equal(t, extract.ReasonMalformedPayload, perr.Reason)
}

func TestDecodeMalformedPayloads(t *testing.T) {
	bodies := []string{
		`foo(a={"x":1)}`,   // bracket kinds mismatched
		`foo(a=1`,          // never closed
		`foo(a=1) trailing`, // junk after payload
		`foo(a)`,           // not key=value
		`foo(a=')`,         // unterminated string
		`foo{"a": }`,       // invalid literal
	}
	for _, body := range bodies {
		_, perr := strict().Decode(body)
		require.NotNil(t, perr, "body %q", body)
		assert.Equal(t, extract.ReasonMalformedPayload, perr.Reason, "body %q", body)
	}
}

func TestDecodeDuplicateKeyLastWins(t *testing.T) {
	rec, perr := strict().Decode(`foo(a=1, a=2)`)
	require.Nil(t, perr)
	assert.Equal(t, extract.NumberValue(2), rec.Args["a"])
	require.Len(t, rec.Notes, 1)
	assert.Equal(t, extract.ReasonDuplicateKey, rec.Notes[0].Reason)
}

func TestDecodeDuplicateObjectKeyLastWins(t *testing.T) {
	rec, perr := strict().Decode(`foo{"a": 1, "a": 2}`)
	require.Nil(t, perr)
	assert.Equal(t, extract.NumberValue(2), rec.Args["a"])
	require.Len(t, rec.Notes, 1)
	assert.Equal(t, extract.ReasonDuplicateKey, rec.Notes[0].Reason)
}

func TestDecodeLenientRepair(t *testing.T) {
	lenient := New(extract.Config{Start: "x", LenientRepair: true})

	// Trailing comma is rejected strictly but repairable.
	rec, perr := lenient.Decode(`foo{"a": 1,}`)
	require.Nil(t, perr)
	assert.Equal(t, extract.NumberValue(1), rec.Args["a"])
	require.NotEmpty(t, rec.Notes)
	assert.Equal(t, extract.ReasonMalformedPayload, rec.Notes[len(rec.Notes)-1].Reason)

	_, perr = strict().Decode(`foo{"a": 1,}`)
	require.NotNil(t, perr)
}

func TestDecodeStringEscapes(t *testing.T) {
	rec, perr := strict().Decode(`emit(s="line\nbreak \"quoted\" café 😀")`)
	require.Nil(t, perr)
	assert.Equal(t, extract.StringValue("line\nbreak \"quoted\" café 😀"), rec.Args["s"])
}

func TestDecodeQuotedCommasAndBrackets(t *testing.T) {
	rec, perr := strict().Decode(`f(a='one, two', b="x=(y)")`)
	require.Nil(t, perr)
	assert.Equal(t, extract.StringValue("one, two"), rec.Args["a"])
	assert.Equal(t, extract.StringValue("x=(y)"), rec.Args["b"])
}
