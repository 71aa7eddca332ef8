package candidate

import (
	"encoding/json"
	"strings"
)

// ReferenceKind identifies which variant a Reference holds.
type ReferenceKind int

const (
	// ReferenceNone means the payload was empty or could not be decoded.
	ReferenceNone ReferenceKind = iota
	// ReferenceInvoiceNumber is a direct invoice number.
	ReferenceInvoiceNumber
	// ReferenceList is a list of free-form reference strings.
	ReferenceList
)

// Reference is the decoded reference payload of an obligation. Exactly one
// variant is populated, selected by Kind.
type Reference struct {
	Kind          ReferenceKind
	InvoiceNumber string
	Items         []string
}

// DirectReference builds a Reference holding an invoice number.
func DirectReference(invoiceNo string) Reference {
	return Reference{Kind: ReferenceInvoiceNumber, InvoiceNumber: invoiceNo}
}

// ListReference builds a Reference holding reference strings.
func ListReference(items ...string) Reference {
	return Reference{Kind: ReferenceList, Items: items}
}

type rawReference struct {
	InvoiceNo  string   `json:"invoiceNo"`
	References []string `json:"references"`
}

// DecodeReference turns a stored reference payload into a Reference.
//
// Accepted shapes:
//
//	{"invoiceNo": "INV-001"}
//	{"references": ["PO 7781", "INV-001"]}
//	["PO 7781", "INV-001"]
//
// Anything else, including malformed JSON, decodes to ReferenceNone.
func DecodeReference(raw []byte) Reference {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Reference{}
	}

	var obj rawReference
	if err := json.Unmarshal(raw, &obj); err == nil {
		if s := strings.TrimSpace(obj.InvoiceNo); s != "" {
			return DirectReference(s)
		}
		if len(obj.References) > 0 {
			return ListReference(obj.References...)
		}
		return Reference{}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return ListReference(list...)
	}

	return Reference{}
}

// Encode renders the reference in the object form accepted by DecodeReference.
func (r Reference) Encode() []byte {
	var obj rawReference
	switch r.Kind {
	case ReferenceInvoiceNumber:
		obj.InvoiceNo = r.InvoiceNumber
	case ReferenceList:
		obj.References = r.Items
	default:
		return nil
	}
	data, _ := json.Marshal(obj)
	return data
}

// ResolveInvoiceNumber returns the invoice number this reference points at.
// A direct reference wins; otherwise the first list item carrying one of the
// recognised prefixes is used.
func (r Reference) ResolveInvoiceNumber(prefixes []string) (string, bool) {
	switch r.Kind {
	case ReferenceInvoiceNumber:
		return r.InvoiceNumber, r.InvoiceNumber != ""
	case ReferenceList:
		for _, item := range r.Items {
			item = strings.TrimSpace(item)
			for _, p := range prefixes {
				if p != "" && strings.HasPrefix(item, p) {
					return item, true
				}
			}
		}
	}
	return "", false
}
