package iso7816

import (
	"strings"
	"testing"
)

func TestStatusWordClassification(t *testing.T) {
	tests := []struct {
		name       string
		sw         StatusWord
		isSuccess  bool
		isNotFound bool
		moreData   int
	}{
		{"9000 success", SW_NO_ERROR, true, false, 0},
		{"61xx success with data", NewStatusWord(0x61, 0x2A), true, false, 42},
		{"6A88 not found", SW_ERR_REF_DATA_NOT_FOUND, false, true, 0},
		{"6A82 not found", SW_ERR_FILE_NOT_FOUND, false, true, 0},
		{"6A83 not found", SW_ERR_RECORD_NOT_FOUND, false, true, 0},
		{"6982 plain error", SW_ERR_SECURITY_STATUS_NOT_SAT, false, false, 0},
		{"6983 blocked is not not-found", SW_ERR_AUTH_METHOD_BLOCKED, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sw.IsSuccess(); got != tt.isSuccess {
				t.Errorf("IsSuccess() = %v, expected %v", got, tt.isSuccess)
			}
			if got := tt.sw.IsNotFound(); got != tt.isNotFound {
				t.Errorf("IsNotFound() = %v, expected %v", got, tt.isNotFound)
			}
			if got := tt.sw.BytesAvailable(); got != tt.moreData {
				t.Errorf("BytesAvailable() = %d, expected %d", got, tt.moreData)
			}
		})
	}
}

func TestRetryCounter(t *testing.T) {
	sw := NewStatusWord(0x63, 0xC2)
	if !sw.IsRetryCounter() {
		t.Fatal("63C2 should be a retry counter")
	}
	if sw.RetryCount() != 2 {
		t.Errorf("RetryCount() = %d, expected 2", sw.RetryCount())
	}

	if NewStatusWord(0x63, 0x82).IsRetryCounter() {
		t.Error("6382 is not a retry counter")
	}
	if NewStatusWord(0x62, 0xC2).RetryCount() != -1 {
		t.Error("non-counter status must report -1")
	}
}

func TestParseStatusWord(t *testing.T) {
	sw, err := ParseStatusWord("6A88")
	if err != nil {
		t.Fatalf("ParseStatusWord: %v", err)
	}
	if sw != SW_ERR_REF_DATA_NOT_FOUND {
		t.Errorf("parsed %s, expected 6A88", sw.Hex())
	}

	for _, bad := range []string{"", "90", "90000", "XXZZ"} {
		if _, err := ParseStatusWord(bad); err == nil {
			t.Errorf("ParseStatusWord(%q) should fail", bad)
		}
	}
}

func TestVerbose(t *testing.T) {
	tests := []struct {
		name     string
		sw       StatusWord
		contains string
	}{
		{"61xx dynamic", NewStatusWord(0x61, 0x10), "16 bytes available"},
		{"6Cxx dynamic", NewStatusWord(0x6C, 0x08), "correct Le is 8"},
		{"63CX counter", NewStatusWord(0x63, 0xC1), "1 retries left"},
		{"Catalogue entry", SW_ERR_FILE_NOT_FOUND, "not found"},
		{"Category fallback", NewStatusWord(0x6A, 0x99), "Wrong parameters"},
		{"Literal SW included", SW_ERR_SECURITY_STATUS_NOT_SAT, "6982"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sw.Verbose()
			if !strings.Contains(strings.ToLower(got), strings.ToLower(tt.contains)) {
				t.Errorf("Verbose() = %q, expected to contain %q", got, tt.contains)
			}
		})
	}
}
