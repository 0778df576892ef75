package export_test

import (
	"testing"
	"time"

	"vmx-go/internal/export"
	"vmx-go/internal/vmx"
)

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"+12345678900", "+1 (234) 567-8900"},
		{"+12025551234", "+1 (202) 555-1234"},
		{"+441onetwo", "+441onetwo"},   // not NANP
		{"+4420, 7946 0958", "+4420, 7946 0958"}, // not NANP
		{"+1234567", "+1234567"},       // too short
		{"12345678900", "12345678900"}, // no plus prefix
		{"", ""},
	}
	for _, c := range cases {
		if got := export.FormatNumber(c.in); got != c.want {
			t.Errorf("FormatNumber(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNewSidecar(t *testing.T) {
	desc := &vmx.BackupDescriptor{Identifier: "aaaa1234"}

	t.Run("matched payload carries attribute fields", func(t *testing.T) {
		expires := time.Unix(1712847022, 0).UTC()
		p := &vmx.ExtractedPayload{
			Domain:       "HomeDomain",
			RelativePath: "Library/Voicemail/1710255022.amr",
			Format:       "amr",
			Size:         1024,
			Record: &vmx.AttributeRecord{
				Received:   time.Unix(1710255022, 0).UTC(),
				Sender:     "+12345678900",
				Duration:   31,
				Expiration: &expires,
				Flags:      vmx.FlagRead,
			},
		}

		sc := export.NewSidecar(desc, p)
		if sc.Identifier != "aaaa1234" {
			t.Errorf("Identifier = %q", sc.Identifier)
		}
		if sc.Caller != "+1 (234) 567-8900" {
			t.Errorf("Caller = %q", sc.Caller)
		}
		if sc.Received != "2024-03-12T14:50:22Z" {
			t.Errorf("Received = %q", sc.Received)
		}
		if sc.Expiration == "" {
			t.Error("Expiration should be set")
		}
		if !sc.Read || sc.Spam {
			t.Errorf("Read = %v, Spam = %v", sc.Read, sc.Spam)
		}
	})

	t.Run("unmatched payload omits attribute fields", func(t *testing.T) {
		p := &vmx.ExtractedPayload{
			Domain:       "HomeDomain",
			RelativePath: "Library/Voicemail/greeting.amr",
			Format:       "amr",
			Size:         512,
		}

		sc := export.NewSidecar(desc, p)
		if sc.Received != "" || sc.Caller != "" || sc.Duration != 0 {
			t.Errorf("unmatched sidecar carries attribute fields: %+v", sc)
		}
		if sc.RelativePath != "Library/Voicemail/greeting.amr" {
			t.Errorf("RelativePath = %q", sc.RelativePath)
		}
	})
}
