package export

import (
	"strings"
	"time"

	"vmx-go/internal/vmx"
)

// Sidecar is the JSON document exported next to each audio file. Times
// are RFC3339; absent timestamps are omitted rather than zeroed.
type Sidecar struct {
	Identifier   string `json:"backup_identifier"`
	Domain       string `json:"domain"`
	RelativePath string `json:"relative_path"`
	Format       string `json:"format"`
	SizeBytes    int64  `json:"size_bytes"`

	// Attribute fields, present only when reconciliation found a match.
	Received    string `json:"received,omitempty"`
	Caller      string `json:"caller,omitempty"`
	CallbackNum string `json:"callback_number,omitempty"`
	Duration    int64  `json:"duration_seconds,omitempty"`
	Expiration  string `json:"expiration,omitempty"`
	Read        bool   `json:"read,omitempty"`
	Spam        bool   `json:"spam,omitempty"`
}

// NewSidecar builds the sidecar document for one payload.
func NewSidecar(backup *vmx.BackupDescriptor, p *vmx.ExtractedPayload) *Sidecar {
	sc := &Sidecar{
		Identifier:   backup.Identifier,
		Domain:       p.Domain,
		RelativePath: p.RelativePath,
		Format:       p.Format,
		SizeBytes:    p.Size,
	}
	if rec := p.Record; rec != nil {
		if !rec.Received.IsZero() {
			sc.Received = rec.Received.UTC().Format(time.RFC3339)
		}
		sc.Caller = FormatNumber(rec.Sender)
		sc.CallbackNum = FormatNumber(rec.CallbackNum)
		sc.Duration = rec.Duration
		if rec.Expiration != nil {
			sc.Expiration = rec.Expiration.UTC().Format(time.RFC3339)
		}
		sc.Read = rec.Read()
		sc.Spam = rec.Spam()
	}
	return sc
}

// FormatNumber pretty-prints NANP numbers ("+12345678900" becomes
// "+1 (234) 567-8900") and passes everything else through untouched.
func FormatNumber(number string) string {
	digits := strings.TrimPrefix(number, "+1")
	if digits == number || len(digits) != 10 || !allDigits(digits) {
		return number
	}
	return "+1 (" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
