package pii

import (
	"strings"
	"testing"
)

// verhoeffInv maps the final checksum state to the check digit that
// neutralizes it.
var verhoeffInv = [10]int{0, 4, 3, 2, 1, 5, 6, 7, 8, 9}

// withVerhoeffCheckDigit appends the check digit that makes the full number
// pass Verhoeff validation.
func withVerhoeffCheckDigit(payload string) string {
	c := 0
	for i := 0; i < len(payload); i++ {
		d := int(payload[len(payload)-1-i] - '0')
		c = verhoeffD[c][verhoeffP[(i+1)%8][d]]
	}
	return payload + string(rune('0'+verhoeffInv[c]))
}

func TestVerhoeff(t *testing.T) {
	valid := withVerhoeffCheckDigit("23456789012")
	if len(valid) != 12 {
		t.Fatalf("generated number has %d digits, want 12", len(valid))
	}

	t.Run("valid number passes", func(t *testing.T) {
		if !Verhoeff(valid) {
			t.Errorf("Verhoeff(%q) = false, want true", valid)
		}
	})

	t.Run("separators are ignored", func(t *testing.T) {
		spaced := valid[:4] + " " + valid[4:8] + " " + valid[8:]
		if !Verhoeff(spaced) {
			t.Errorf("Verhoeff(%q) = false, want true", spaced)
		}
		dashed := valid[:4] + "-" + valid[4:8] + "-" + valid[8:]
		if !Verhoeff(dashed) {
			t.Errorf("Verhoeff(%q) = false, want true", dashed)
		}
	})

	t.Run("single digit flip is caught", func(t *testing.T) {
		for i := 0; i < len(valid); i++ {
			flipped := []byte(valid)
			flipped[i] = '0' + byte((int(flipped[i]-'0')+1)%10)
			if Verhoeff(string(flipped)) {
				t.Errorf("Verhoeff(%q) = true after flipping digit %d, want false", flipped, i)
			}
		}
	})

	t.Run("adjacent transposition is caught", func(t *testing.T) {
		for i := 0; i+1 < len(valid); i++ {
			if valid[i] == valid[i+1] {
				continue
			}
			swapped := []byte(valid)
			swapped[i], swapped[i+1] = swapped[i+1], swapped[i]
			if Verhoeff(string(swapped)) {
				t.Errorf("Verhoeff(%q) = true after swapping digits %d and %d, want false", swapped, i, i+1)
			}
		}
	})

	t.Run("wrong length fails closed", func(t *testing.T) {
		for _, input := range []string{"", "123", valid[:11], valid + "0", strings.Repeat("0", 13)} {
			if Verhoeff(input) {
				t.Errorf("Verhoeff(%q) = true, want false", input)
			}
		}
	})
}

func TestLuhn(t *testing.T) {
	t.Run("valid card numbers pass", func(t *testing.T) {
		for _, number := range []string{
			"4111111111111111",
			"4012888888881881",
			"4111-1111-1111-1111",
			"4111 1111 1111 1111",
		} {
			if !Luhn(number) {
				t.Errorf("Luhn(%q) = false, want true", number)
			}
		}
	})

	t.Run("bad check digit fails", func(t *testing.T) {
		if Luhn("4111111111111112") {
			t.Error("Luhn accepted a number with a wrong check digit")
		}
	})

	t.Run("length outside 13-19 fails closed", func(t *testing.T) {
		// 79927398713 passes the raw mod-10 check but is only 11 digits.
		for _, input := range []string{"", "79927398713", strings.Repeat("0", 12), strings.Repeat("0", 20)} {
			if Luhn(input) {
				t.Errorf("Luhn(%q) = true, want false", input)
			}
		}
	})
}

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1234 5678 9012", "123456789012"},
		{"+91-98765-43210", "919876543210"},
		{"no digits here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := digitsOnly(tt.input); got != tt.want {
			t.Errorf("digitsOnly(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
