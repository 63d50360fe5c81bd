package helper

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidateMobile(t *testing.T) {
	cases := map[string]bool{
		"13800000000":  true,
		"19912345678":  true,
		"12800000000":  false,
		"1380000000":   false,
		"138000000000": false,
		"1380000000a":  false,
		"":             false,
	}
	for in, want := range cases {
		if got := ValidateMobile(in); got != want {
			t.Fatalf("ValidateMobile(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidateName(t *testing.T) {
	if ValidateName("   ") {
		t.Fatal("blank name should be invalid")
	}
	if !ValidateName("张三") {
		t.Fatal("name should be valid")
	}
	if ValidateName(strings.Repeat("名", MaxNameLen+1)) {
		t.Fatal("too long name should be invalid")
	}
}

func TestMask(t *testing.T) {
	if got := MaskPhone("13812345678"); got != "138****5678" {
		t.Fatalf("MaskPhone = %s", got)
	}
	if got := MaskName("张三丰"); got != "张**" {
		t.Fatalf("MaskName = %s", got)
	}
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("13800000000")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte("13800000000")) != nil {
		t.Fatal("password should match")
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte("13800000001")) == nil {
		t.Fatal("password should not match")
	}
}
