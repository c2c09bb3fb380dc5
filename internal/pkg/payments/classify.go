package payments

import (
	"strings"

	"github.com/voltagency/voltsite/app/models"
)

// InvoiceKind classifies what a paid invoice means for the project's
// financial state.
type InvoiceKind string

const (
	KindDeposit InvoiceKind = "deposit"
	KindFinal   InvoiceKind = "final"
	KindUnknown InvoiceKind = "unknown"
)

var (
	depositKeywords = []string{"acompte", "deposit"}
	finalKeywords   = []string{"solde", "final"}
)

// ClassifyInvoiceKind decides whether a paid invoice is the project deposit
// or the final payment. The explicit Kind column set at creation time is
// authoritative; the case-insensitive notes keyword scan only covers legacy
// rows. When the notes match both keyword groups, or neither, the result is
// KindUnknown and the project flags are left for manual review.
func ClassifyInvoiceKind(inv *models.Invoice) InvoiceKind {
	switch inv.Kind {
	case models.InvoiceKindDeposit:
		return KindDeposit
	case models.InvoiceKindFinal:
		return KindFinal
	case models.InvoiceKindOther:
		return KindUnknown
	}

	notes := strings.ToLower(inv.Notes)
	deposit := containsAny(notes, depositKeywords)
	final := containsAny(notes, finalKeywords)
	switch {
	case deposit && !final:
		return KindDeposit
	case final && !deposit:
		return KindFinal
	default:
		return KindUnknown
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
