package helper

import (
	"strings"
	"testing"
)

type testNested struct {
	Size int    `errorTxt:"batch size" mandatory:"yes" validate:"gt=0"`
	Env  string `errorTxt:"environment" validate:"omitempty,oneof=production development testing"`
}

type testCfg struct {
	Name   string `errorTxt:"name" mandatory:"yes"`
	Nested testNested
}

func TestValidateStructIsPopulated(t *testing.T) {
	err := ValidateStructIsPopulated(&testCfg{})
	if err == nil {
		t.Fatal("expected an error for missing mandatory fields")
	}
	if !strings.Contains(err.Error(), "name") || !strings.Contains(err.Error(), "batch size") {
		t.Fatalf("expected both missing fields to be reported; got: %v", err)
	}
	if err := ValidateStructIsPopulated(&testCfg{Name: "x", Nested: testNested{Size: 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStructValues(t *testing.T) {
	err := ValidateStructValues(&testCfg{Name: "x", Nested: testNested{Size: -1, Env: "staging"}})
	if err == nil {
		t.Fatal("expected value validation to fail")
	}
	if !strings.Contains(err.Error(), "batch size") || !strings.Contains(err.Error(), "environment") {
		t.Fatalf("expected errorTxt labels in message; got: %v", err)
	}
	if err := ValidateStruct(&testCfg{Name: "x", Nested: testNested{Size: 3, Env: "testing"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
