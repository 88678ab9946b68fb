// Package fields parses OCR text from Thai bank transfer slips into a
// structured record using independent label-anchored rules.
package fields

// Field names a slip attribute. Values double as JSON keys.
type Field string

const (
	FromAccount  Field = "from_account"
	ToAccount    Field = "to_account"
	SenderName   Field = "sender_name"
	ReceiverName Field = "receiver_name"
	BankName     Field = "bank_name"
	Date         Field = "date"
	Time         Field = "time"
	Amount       Field = "amount"
)

// All lists every extractable field in record order.
var All = []Field{FromAccount, ToAccount, SenderName, ReceiverName, BankName, Date, Time, Amount}

// Record is the structured result of one extraction. A nil field was not
// found; RawText is always the text the extractor was given.
type Record struct {
	FromAccount  *string `json:"from_account"`
	ToAccount    *string `json:"to_account"`
	SenderName   *string `json:"sender_name"`
	ReceiverName *string `json:"receiver_name"`
	BankName     *string `json:"bank_name"`
	Date         *string `json:"date"`
	Time         *string `json:"time"`
	Amount       *string `json:"amount"`
	RawText      string  `json:"raw_text"`
}

// Get returns the value of f, nil when absent or unknown.
func (r *Record) Get(f Field) *string {
	if p := r.slot(f); p != nil {
		return *p
	}
	return nil
}

// Set stores v for f. Unknown fields are ignored.
func (r *Record) Set(f Field, v string) {
	if p := r.slot(f); p != nil {
		*p = &v
	}
}

// Found lists the fields that carry a value, in record order.
func (r *Record) Found() []Field {
	var out []Field
	for _, f := range All {
		if r.Get(f) != nil {
			out = append(out, f)
		}
	}
	return out
}

func (r *Record) slot(f Field) **string {
	switch f {
	case FromAccount:
		return &r.FromAccount
	case ToAccount:
		return &r.ToAccount
	case SenderName:
		return &r.SenderName
	case ReceiverName:
		return &r.ReceiverName
	case BankName:
		return &r.BankName
	case Date:
		return &r.Date
	case Time:
		return &r.Time
	case Amount:
		return &r.Amount
	}
	return nil
}

// Value dereferences p, returning "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
