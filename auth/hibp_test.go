package auth

import (
	"strings"
	"testing"
)

func TestScanRange(t *testing.T) {
	body := strings.Join([]string{
		"0018A45C4D1DEF81644B54AB7F969B88D65:1",
		"00D4F6E8FA6EECAD2A3AA415EEC418D38EC:0", // padding entry
		"011053FD0102E94D6AE2F8B83D76FAF94F6:3861493",
		"012A7CA357541F0AC487871FEEC1891C49C:2",
	}, "\r\n")

	count, err := scanRange(strings.NewReader(body), "011053FD0102E94D6AE2F8B83D76FAF94F6")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if count != 3861493 {
		t.Fatalf("count %d, want 3861493", count)
	}

	count, err = scanRange(strings.NewReader(body), "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF")
	if err != nil {
		t.Fatalf("scan miss: %v", err)
	}
	if count != 0 {
		t.Fatalf("count %d for absent suffix, want 0", count)
	}
}
