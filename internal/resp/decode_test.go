package resp

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func newR(b []byte) *bufio.Reader { return bufio.NewReader(bytes.NewReader(b)) }

func TestDecodeSimpleTypes(t *testing.T) {
	payload := append(
		append(EncodeStatus("OK"), EncodeError("ERR wrong type")...),
		EncodeInt(123)...,
	)
	r := newR(payload)

	v, err := Decode(r)
	if err != nil || v.Type != Status || v.Str != "OK" {
		t.Fatalf("status decode failed, got %#v err %v", v, err)
	}
	v, err = Decode(r)
	if err != nil || v.Type != Error || v.Str != "ERR wrong type" {
		t.Fatalf("error decode failed, got %#v err %v", v, err)
	}
	v, err = Decode(r)
	if err != nil || v.Type != Integer || v.Int != 123 {
		t.Fatalf("integer decode failed, got %#v err %v", v, err)
	}
}

func TestDecodeBulkStrings(t *testing.T) {
	r := newR(append(EncodeBulk([]byte("hello")), EncodeBulk(nil)...))

	v, err := Decode(r)
	if err != nil || v.Type != Bulk || v.Str != "hello" || v.IsNil {
		t.Fatalf("bulk decode failed, got %#v err %v", v, err)
	}
	v, err = Decode(r)
	if err != nil || v.Type != Bulk || !v.IsNil {
		t.Fatalf("nil bulk decode failed, got %#v err %v", v, err)
	}
}

func TestDecodeArrays(t *testing.T) {
	payload := []byte("*3\r\n")
	payload = append(payload, EncodeStatus("OK")...)
	payload = append(payload, EncodeInt(42)...)
	payload = append(payload, EncodeBulk([]byte("hi"))...)
	r := newR(payload)

	v, err := Decode(r)
	if err != nil || v.Type != Array || len(v.Elems) != 3 {
		t.Fatalf("array decode failed, got %#v err %v", v, err)
	}
	if v.Elems[0].Type != Status || v.Elems[0].Str != "OK" {
		t.Fatal("array element 0 mismatch")
	}
	if v.Elems[1].Type != Integer || v.Elems[1].Int != 42 {
		t.Fatal("array element 1 mismatch")
	}
	if v.Elems[2].Type != Bulk || v.Elems[2].Str != "hi" {
		t.Fatal("array element 2 mismatch")
	}
}

func TestDecodeNilArray(t *testing.T) {
	r := newR(EncodeNilArray())
	v, err := Decode(r)
	if err != nil || v.Type != Array || !v.IsNil {
		t.Fatalf("nil array decode failed, got %#v err %v", v, err)
	}
}

func TestDecodeStrictCRLF(t *testing.T) {
	r := newR([]byte("+OK\n"))
	_, err := Decode(r)
	if !errors.Is(err, ErrBadLineEnding) {
		t.Fatalf("expected ErrBadLineEnding, got %v", err)
	}
}

func TestDecodeNestedArray(t *testing.T) {
	inner := EncodeArray([]byte("a"), []byte("b"))
	var payload []byte
	payload = append(payload, []byte("*2\r\n")...)
	payload = append(payload, inner...)
	payload = append(payload, EncodeInt(7)...)
	r := newR(payload)

	v, err := Decode(r)
	if err != nil {
		t.Fatal(err)
	}
	if v.Type != Array || len(v.Elems) != 2 {
		t.Fatalf("outer array mismatch: %#v", v)
	}
	if v.Elems[0].Type != Array || len(v.Elems[0].Elems) != 2 {
		t.Fatalf("inner array mismatch: %#v", v.Elems[0])
	}
	if v.Elems[1].Int != 7 {
		t.Fatalf("trailing integer mismatch: %#v", v.Elems[1])
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < MaxDepth+2; i++ {
		buf.WriteString("*1\r\n")
	}
	buf.Write(EncodeInt(1))
	r := bufio.NewReader(&buf)

	_, err := Decode(r)
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("expected ErrTooDeep, got %v", err)
	}
}

func TestDecodeUnknownPrefix(t *testing.T) {
	r := newR([]byte("!bogus\r\n"))
	_, err := Decode(r)
	if !errors.Is(err, ErrUnknownPrefix) {
		t.Fatalf("expected ErrUnknownPrefix, got %v", err)
	}
}

func TestDecodeOversizedBulk(t *testing.T) {
	r := newR([]byte("$999999999999\r\n"))
	_, err := Decode(r)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestPairsToMap(t *testing.T) {
	arr := EncodeArray([]byte("field1"), []byte("v1"), []byte("field2"), []byte("v2"))
	r := newR(arr)
	v, err := Decode(r)
	if err != nil {
		t.Fatal(err)
	}
	m, err := PairsToMap(v)
	if err != nil {
		t.Fatal(err)
	}
	if m["field1"] != "v1" || m["field2"] != "v2" {
		t.Fatalf("unexpected map: %#v", m)
	}
}

func TestPairsToMapOddLength(t *testing.T) {
	arr := EncodeArray([]byte("field1"))
	r := newR(arr)
	v, err := Decode(r)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := PairsToMap(v); err == nil {
		t.Fatal("expected error for odd-length array")
	}
}
