package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeFlatReaderKeepsLiteralKinds(t *testing.T) {
	t.Parallel()

	payload := `{"id":"x1","rf.sample_rate":30720000,"rf.uplink_cfo":-0.5,"rf.rx":1e9,"enable_recorder":true,"pcap_folder":"/tmp","n":null}`
	flat, problems, err := DecodeFlatReader(json.NewDecoder(strings.NewReader(payload)))
	if err != nil {
		t.Fatalf("decode flat: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("unexpected problems %v", problems)
	}

	cases := map[string]Kind{
		"id":              KindString,
		"rf.sample_rate":  KindInt,
		"rf.uplink_cfo":   KindFloat,
		"rf.rx":           KindFloat,
		"enable_recorder": KindBool,
		"pcap_folder":     KindString,
		"n":               KindNull,
	}
	for key, want := range cases {
		value, ok := flat.Get(key)
		if !ok {
			t.Fatalf("missing key %q", key)
		}
		if value.Kind != want {
			t.Fatalf("key %q: expected kind %s, got %s", key, want, value.Kind)
		}
	}
	if got := flat["rf.sample_rate"].Text; got != "30720000" {
		t.Fatalf("expected verbatim literal, got %q", got)
	}
}

func TestDecodeFlatReaderReportsNonScalars(t *testing.T) {
	t.Parallel()

	flat, problems, err := DecodeFlatReader(json.NewDecoder(strings.NewReader(`{"b":[1],"a":{"x":1},"c":1}`)))
	if err != nil {
		t.Fatalf("decode flat: %v", err)
	}
	if len(problems) != 2 || problems[0] != "a must be a scalar value" || problems[1] != "b must be a scalar value" {
		t.Fatalf("unexpected problems %v", problems)
	}
	if _, ok := flat.Get("c"); !ok {
		t.Fatalf("expected scalar key to survive")
	}
}

func TestDecodeFlatReaderRejectsNonObject(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{"null", "[1,2]", `"text"`} {
		if _, _, err := DecodeFlatReader(json.NewDecoder(strings.NewReader(payload))); err == nil {
			t.Fatalf("expected error for %s", payload)
		}
	}
}

func TestValueFromJSONRejectsContainers(t *testing.T) {
	t.Parallel()

	if _, err := ValueFromJSON([]any{1}); !errors.Is(err, ErrNotScalar) {
		t.Fatalf("expected ErrNotScalar, got %v", err)
	}
}

func TestKindSetString(t *testing.T) {
	t.Parallel()

	if got := Kinds(KindInt, KindFloat).String(); got != "float or int" {
		t.Fatalf("unexpected label %q", got)
	}
	if !Kinds(KindBool).Has(KindBool) || Kinds(KindBool).Has(KindInt) {
		t.Fatalf("bool set membership is wrong")
	}
}

func TestPopIDRemovesReservedKey(t *testing.T) {
	t.Parallel()

	flat := FlatMap{"id": String("x1"), "a": Int(1)}
	id, ok := flat.PopID()
	if !ok || id != "x1" {
		t.Fatalf("unexpected id %q ok=%v", id, ok)
	}
	if _, present := flat["id"]; present {
		t.Fatalf("id must be removed")
	}
}

func TestFloatLiteralKeepsFraction(t *testing.T) {
	t.Parallel()

	if got := Float(3).Text; got != "3.0" {
		t.Fatalf("unexpected literal %q", got)
	}
	if got := Float(0.25).Text; got != "0.25" {
		t.Fatalf("unexpected literal %q", got)
	}
}
